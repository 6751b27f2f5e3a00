package analytics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/zamanbank/assistant/internal/log"
)

// ============================================================================
// Mocks
// ============================================================================

type mockQuerier struct {
	txs []Transaction
	err error
}

func (m *mockQuerier) TransactionsSince(_ context.Context, since time.Time) ([]Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []Transaction
	for _, tx := range m.txs {
		if !tx.OccurredAt.Before(since) {
			out = append(out, tx)
		}
	}
	return out, nil
}

type staticRates map[string]float64

func (r staticRates) FromEUR(context.Context) (map[string]float64, error) {
	return r, nil
}

type failingRates struct{}

func (failingRates) FromEUR(context.Context) (map[string]float64, error) {
	return nil, errors.New("rates endpoint unreachable")
}

// rates: 1 EUR = 500 KZT, 1 EUR = 1.1 USD.
var testRates = staticRates{"kzt": 500, "usd": 1.1}

func tx(userID, fromID int64, amount float64, currency, category string, daysAgo int) Transaction {
	return Transaction{
		UserID:        userID,
		FromAccountID: fromID,
		OccurredAt:    time.Now().AddDate(0, 0, -daysAgo),
		Amount:        amount,
		Currency:      currency,
		Category:      category,
	}
}

// ============================================================================
// Conversion
// ============================================================================

func TestConvertToKZT(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		currency string
		want     float64
	}{
		{"kzt identity", 1000, "KZT", 1000},
		{"eur direct", 10, "EUR", 5000},
		{"usd cross rate", 11, "USD", 5000}, // 11 USD -> 10 EUR -> 5000 KZT
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertToKZT(tt.amount, tt.currency, testRates)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("ConvertToKZT = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestConvertToKZTUnknownCurrency(t *testing.T) {
	if _, err := ConvertToKZT(5, "XYZ", testRates); !errors.Is(err, ErrUnknownCurrency) {
		t.Errorf("error = %v, want ErrUnknownCurrency", err)
	}
}

// ============================================================================
// Summary
// ============================================================================

func TestSummaryAggregates(t *testing.T) {
	db := &mockQuerier{txs: []Transaction{
		tx(7, 1, 100_000, "KZT", "salary", 5),  // income for user 7
		tx(2, 7, 30_000, "KZT", "food", 4),     // expense
		tx(3, 7, 20, "EUR", "transport", 3),    // expense, 10_000 KZT
		tx(4, 7, 10_000, "KZT", "food", 2),     // expense
		tx(9, 5, 999_999, "KZT", "other", 1),   // unrelated user
	}}
	svc := NewService(db, testRates, log.NewNop())

	got, err := svc.Summary(context.Background(), 7, 0)
	if err != nil {
		t.Fatal(err)
	}

	if got.Income != 100_000 {
		t.Errorf("income = %f, want 100000", got.Income)
	}
	if got.Expense != 50_000 {
		t.Errorf("expense = %f, want 50000", got.Expense)
	}
	if got.NetBalance != 50_000 {
		t.Errorf("net = %f, want 50000", got.NetBalance)
	}
	if len(got.TopExpenseCategories) != 2 {
		t.Fatalf("top categories = %v", got.TopExpenseCategories)
	}
	if got.TopExpenseCategories[0].Category != "food" || got.TopExpenseCategories[0].AmountKZT != 40_000 {
		t.Errorf("top category = %+v, want food 40000", got.TopExpenseCategories[0])
	}
}

func TestSummaryWindowFiltering(t *testing.T) {
	db := &mockQuerier{txs: []Transaction{
		tx(7, 1, 100, "KZT", "salary", 60),
		tx(7, 1, 200, "KZT", "salary", 5),
	}}
	svc := NewService(db, testRates, log.NewNop())

	got, err := svc.Summary(context.Background(), 7, 30)
	if err != nil {
		t.Fatal(err)
	}
	if got.Income != 200 {
		t.Errorf("income = %f, want only the recent transaction", got.Income)
	}
}

func TestSummaryNoData(t *testing.T) {
	svc := NewService(&mockQuerier{}, testRates, log.NewNop())
	if _, err := svc.Summary(context.Background(), 7, 30); !errors.Is(err, ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func TestSummaryRatesFailure(t *testing.T) {
	db := &mockQuerier{txs: []Transaction{tx(7, 1, 100, "KZT", "salary", 1)}}
	svc := NewService(db, failingRates{}, log.NewNop())
	if _, err := svc.Summary(context.Background(), 7, 0); err == nil {
		t.Error("expected error when rates provider fails")
	}
}

func TestSummaryNegativeBalanceAdvice(t *testing.T) {
	db := &mockQuerier{txs: []Transaction{
		tx(7, 1, 1_000, "KZT", "salary", 2),
		tx(2, 7, 5_000, "KZT", "entertainment", 1),
	}}
	svc := NewService(db, testRates, log.NewNop())

	got, err := svc.Summary(context.Background(), 7, 0)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, rec := range got.Recommendations {
		if rec == "У вас отрицательный баланс, стоит пересмотреть траты или увеличить доход." {
			found = true
		}
	}
	if !found {
		t.Errorf("negative balance advice missing from %v", got.Recommendations)
	}
}

func TestSummaryNoExpensesAdvice(t *testing.T) {
	db := &mockQuerier{txs: []Transaction{tx(7, 1, 1_000, "KZT", "salary", 1)}}
	svc := NewService(db, testRates, log.NewNop())

	got, err := svc.Summary(context.Background(), 7, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Recommendations) != 1 || got.Recommendations[0] != "Отличная финансовая стабильность — нет трат." {
		t.Errorf("recommendations = %v", got.Recommendations)
	}
}
