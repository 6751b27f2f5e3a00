package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/zamanbank/assistant/internal/analytics"
	"github.com/zamanbank/assistant/internal/goals"
	"github.com/zamanbank/assistant/internal/invest"
	"github.com/zamanbank/assistant/internal/savings"
)

// ErrNoUser indicates a per-user tool ran without a user id in context.
var ErrNoUser = errors.New("no user id in context")

// Summarizer computes a user's financial summary. Defined here, by the
// consumer, so tests can supply a fake.
type Summarizer interface {
	Summary(ctx context.Context, userID int64, lastNDays int) (*analytics.Summary, error)
}

// InvestmentAdvisor returns portfolio advice for a named risk level.
type InvestmentAdvisor interface {
	Recommendations(ctx context.Context, level string) (map[string]any, error)
}

// GoalComparer returns finished goals of clients similar to the user.
type GoalComparer interface {
	Relevant(ctx context.Context, userID int64) ([]goals.Goal, error)
}

// Handler holds the business logic behind every tool. Methods are plain
// functions of their inputs, independently testable without Genkit.
type Handler struct {
	summarizer Summarizer
	advisor    InvestmentAdvisor
	comparer   GoalComparer
	products   []savings.Product
}

// NewHandler creates a Handler. All dependencies are required.
func NewHandler(summarizer Summarizer, advisor InvestmentAdvisor, comparer GoalComparer) (*Handler, error) {
	if summarizer == nil {
		return nil, errors.New("summarizer is required")
	}
	if advisor == nil {
		return nil, errors.New("advisor is required")
	}
	if comparer == nil {
		return nil, errors.New("comparer is required")
	}
	return &Handler{
		summarizer: summarizer,
		advisor:    advisor,
		comparer:   comparer,
		products:   savings.Catalog,
	}, nil
}

// SavingStrategies simulates the deposit products against the client's goal.
func (h *Handler) SavingStrategies(_ context.Context, in SavingStrategiesInput) (map[string]any, error) {
	strategies := savings.StrategiesFor(h.products,
		float64(in.FinancialGoal), float64(in.CurrentBalance), float64(in.MonthlySavings))
	return map[string]any{"strategies": strategies}, nil
}

// FinancialSummary aggregates the user's income and spending.
func (h *Handler) FinancialSummary(ctx context.Context, in FinancialSummaryInput) (map[string]any, error) {
	userID, ok := UserIDFrom(ctx)
	if !ok {
		return nil, ErrNoUser
	}
	summary, err := h.summarizer.Summary(ctx, userID, in.LastNDays)
	if err != nil {
		return nil, fmt.Errorf("computing summary: %w", err)
	}
	return map[string]any{"analytics": summary}, nil
}

// Investments returns advice for the requested risk level.
func (h *Handler) Investments(ctx context.Context, in InvestmentInput) (map[string]any, error) {
	recommendations, err := h.advisor.Recommendations(ctx, invest.RiskLevel(in.RiskLevel))
	if err != nil {
		return nil, fmt.Errorf("building recommendations: %w", err)
	}
	return map[string]any{"recommendations": recommendations}, nil
}

// CompareGoals returns finished goals of clients similar to the user.
func (h *Handler) CompareGoals(ctx context.Context, _ CompareGoalsInput) (map[string]any, error) {
	userID, ok := UserIDFrom(ctx)
	if !ok {
		return nil, ErrNoUser
	}
	relevant, err := h.comparer.Relevant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("finding peer goals: %w", err)
	}
	return map[string]any{"top_3_relevant_goals": relevant}, nil
}
