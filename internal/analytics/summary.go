// Package analytics computes per-client financial summaries over the bank's
// transaction history: income, expenses, top spending categories and
// rule-based savings advice, all normalized to tenge.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"
)

// ErrNoData indicates the user has no transactions in the requested window.
var ErrNoData = errors.New("no transactions for user")

// Transaction is one money movement. UserID is the receiving side,
// FromAccountID the paying side; a user's expenses are the transactions
// where they pay.
type Transaction struct {
	ID            int64
	UserID        int64
	FromAccountID int64
	OccurredAt    time.Time
	Amount        float64
	Currency      string
	Category      string
}

// Querier is the storage dependency. Defined by the consumer so tests can
// supply an in-memory implementation.
type Querier interface {
	TransactionsSince(ctx context.Context, since time.Time) ([]Transaction, error)
}

// CategoryAmount is one entry of the top-spending breakdown.
type CategoryAmount struct {
	Category  string  `json:"category"`
	AmountKZT float64 `json:"amount_kzt"`
}

// Summary is the per-user financial picture, all amounts in KZT.
type Summary struct {
	UserID               int64            `json:"user_id"`
	Income               float64          `json:"income"`
	Expense              float64          `json:"expense"`
	NetBalance           float64          `json:"net_balance"`
	TopExpenseCategories []CategoryAmount `json:"top_expense_categories"`
	Recommendations      []string         `json:"recommendations"`
}

// Service computes summaries.
type Service struct {
	db     Querier
	rates  Rates
	logger *slog.Logger
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(db Querier, rates Rates, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, rates: rates, logger: logger}
}

// Summary aggregates the user's transactions over the last n days.
// lastNDays <= 0 means the whole history.
func (s *Service) Summary(ctx context.Context, userID int64, lastNDays int) (*Summary, error) {
	since := time.Time{}
	if lastNDays > 0 {
		since = time.Now().AddDate(0, 0, -lastNDays)
	}

	txs, err := s.db.TransactionsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	fromEUR, err := s.rates.FromEUR(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading exchange rates: %w", err)
	}

	var income, expense float64
	byCategory := make(map[string]float64)
	seen := false

	for _, tx := range txs {
		kzt, convErr := ConvertToKZT(tx.Amount, tx.Currency, fromEUR)
		if convErr != nil {
			s.logger.Warn("skipping transaction with unconvertible currency",
				"tx_id", tx.ID, "currency", tx.Currency, "error", convErr)
			continue
		}
		if tx.UserID == userID {
			income += kzt
			seen = true
		}
		if tx.FromAccountID == userID {
			expense += kzt
			byCategory[tx.Category] += kzt
			seen = true
		}
	}

	if !seen {
		return nil, fmt.Errorf("%w: user %d", ErrNoData, userID)
	}

	summary := &Summary{
		UserID:     userID,
		Income:     round2(income),
		Expense:    round2(expense),
		NetBalance: round2(income - expense),
	}

	categories := make([]CategoryAmount, 0, len(byCategory))
	for cat, amount := range byCategory {
		categories = append(categories, CategoryAmount{Category: cat, AmountKZT: round2(amount)})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].AmountKZT != categories[j].AmountKZT {
			return categories[i].AmountKZT > categories[j].AmountKZT
		}
		return categories[i].Category < categories[j].Category
	})
	if len(categories) > 5 {
		categories = categories[:5]
	}
	summary.TopExpenseCategories = categories
	summary.Recommendations = recommendations(summary, categories, byCategory)

	return summary, nil
}

// recommendations derives the personalized advice lines shown to the client.
func recommendations(s *Summary, top []CategoryAmount, byCategory map[string]float64) []string {
	var recs []string

	if len(byCategory) == 0 {
		return []string{"Отличная финансовая стабильность — нет трат."}
	}

	var total float64
	for _, amount := range byCategory {
		total += amount
	}
	avg := total / float64(len(byCategory))

	limit := min(len(top), 3)
	for _, cat := range top[:limit] {
		if cat.AmountKZT > avg {
			recs = append(recs, fmt.Sprintf("Сократите расходы в категории %s (потрачено %.0f ₸)", cat.Category, cat.AmountKZT))
		}
	}
	if s.NetBalance < 0 {
		recs = append(recs, "У вас отрицательный баланс, стоит пересмотреть траты или увеличить доход.")
	}
	return recs
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
