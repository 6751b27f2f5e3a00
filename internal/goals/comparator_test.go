package goals

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/zamanbank/assistant/internal/analytics"
	"github.com/zamanbank/assistant/internal/log"
)

type mockQuerier struct {
	txs   []analytics.Transaction
	goals map[int64][]Goal
	err   error
}

func (m *mockQuerier) AllTransactions(context.Context) ([]analytics.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.txs, nil
}

func (m *mockQuerier) FinishedGoals(_ context.Context, userID int64) ([]Goal, error) {
	return m.goals[userID], nil
}

func spend(userID int64, amount float64, currency, category string) analytics.Transaction {
	return analytics.Transaction{
		UserID:   userID,
		Amount:   amount,
		Currency: currency,
		Category: category,
	}
}

func goal(userID int64, name string, deadline string) Goal {
	d, _ := time.Parse("2006-01-02", deadline)
	return Goal{UserID: userID, Name: name, TargetAmount: 1_000_000, Currency: "KZT", Deadline: d, Finished: true}
}

// Three users with near-identical spending plus one outlier. With this few
// users everyone is a neighbor; the assertions cover ordering, the cap and
// self-exclusion.
func fixtureQuerier() *mockQuerier {
	var txs []analytics.Transaction
	for _, id := range []int64{1, 2, 3} {
		txs = append(txs,
			spend(id, 1000, "KZT", "food"),
			spend(id, 1100, "KZT", "food"),
			spend(id, 900, "KZT", "transport"),
		)
	}
	// user 4 spends differently on every axis
	txs = append(txs,
		spend(4, 90_000, "USD", "travel"),
		spend(4, 80_000, "USD", "travel"),
	)
	return &mockQuerier{
		txs: txs,
		goals: map[int64][]Goal{
			2: {goal(2, "Машина", "2025-03-01"), goal(2, "Отпуск", "2025-06-01")},
			3: {goal(3, "Ремонт", "2025-05-01")},
			4: {goal(4, "Яхта", "2025-12-31")},
		},
	}
}

func TestRelevantReturnsPeerGoalsNewestFirst(t *testing.T) {
	c := NewComparator(fixtureQuerier(), log.NewNop())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, err := c.Relevant(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d goals, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Deadline.After(got[i-1].Deadline) {
			t.Errorf("goals not sorted newest-first: %v before %v", got[i-1].Deadline, got[i].Deadline)
		}
	}
	for _, g := range got {
		if g.UserID == 1 {
			t.Error("target user's own goal returned")
		}
	}
}

func TestRelevantBeforeRefresh(t *testing.T) {
	c := NewComparator(fixtureQuerier(), log.NewNop())
	if _, err := c.Relevant(context.Background(), 1); !errors.Is(err, ErrNotReady) {
		t.Errorf("error = %v, want ErrNotReady", err)
	}
}

func TestRelevantUnknownUser(t *testing.T) {
	c := NewComparator(fixtureQuerier(), log.NewNop())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Relevant(context.Background(), 404); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("error = %v, want ErrUnknownUser", err)
	}
}

func TestRefreshPropagatesQueryError(t *testing.T) {
	c := NewComparator(&mockQuerier{err: errors.New("db down")}, log.NewNop())
	if err := c.Refresh(context.Background()); err == nil {
		t.Error("expected error from failing querier")
	}
}

func TestRunZeroIntervalDoesNotPanic(t *testing.T) {
	c := NewComparator(fixtureQuerier(), log.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, 0)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	// the initial refresh still happened
	if _, err := c.Relevant(context.Background(), 1); err != nil {
		t.Errorf("snapshot not built: %v", err)
	}
}

func TestRelevantCapsAtThree(t *testing.T) {
	q := fixtureQuerier()
	q.goals[3] = append(q.goals[3],
		goal(3, "Дача", "2025-07-01"),
		goal(3, "Образование", "2025-08-01"),
	)
	c := NewComparator(q, log.NewNop())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, err := c.Relevant(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("got %d goals, want cap of 3", len(got))
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, 2},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineDistance(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineDistance = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestGoalMarshalJSON(t *testing.T) {
	g := goal(2, "Машина", "2025-03-01")
	raw, err := json.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["deadline"] != "2025-03-01" {
		t.Errorf("deadline = %v, want plain date", decoded["deadline"])
	}
	if decoded["name"] != "Машина" {
		t.Errorf("name = %v", decoded["name"])
	}
}
