// Package goals finds finished savings goals of clients whose spending
// profile resembles the target user's, giving the assistant concrete peer
// examples to cite.
package goals

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/zamanbank/assistant/internal/analytics"
)

var (
	// ErrUnknownUser indicates the user has no transactions and therefore no
	// feature vector in the current snapshot.
	ErrUnknownUser = errors.New("user not present in feature snapshot")
	// ErrNotReady indicates Relevant was called before a snapshot was built.
	ErrNotReady = errors.New("feature snapshot not built yet")
)

// Goal is a client's savings goal as stored in financial_goals.
type Goal struct {
	UserID       int64
	Name         string
	TargetAmount float64
	Currency     string
	Deadline     time.Time
	Finished     bool
}

// MarshalJSON renders the deadline as a plain date, which is all the model
// needs to reason about timelines.
func (g Goal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name         string  `json:"name"`
		TargetAmount float64 `json:"target_amount"`
		Currency     string  `json:"currency"`
		Deadline     string  `json:"deadline"`
	}{
		Name:         g.Name,
		TargetAmount: g.TargetAmount,
		Currency:     g.Currency,
		Deadline:     g.Deadline.Format("2006-01-02"),
	})
}

// Querier is the storage dependency, defined by the consumer.
type Querier interface {
	AllTransactions(ctx context.Context) ([]analytics.Transaction, error)
	FinishedGoals(ctx context.Context, userID int64) ([]Goal, error)
}
