// Package invest builds investment recommendations per risk profile.
//
// Live market-data fetching is deliberately out of scope; quotes come from a
// Quotes provider and the shipped implementation serves a static snapshot.
package invest

import (
	"context"
	"fmt"
)

// Risk profile identifiers.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// RiskLevel maps the numeric risk level the model passes (1..3) onto a
// profile name. Out-of-range values fall back to medium.
func RiskLevel(n int) string {
	switch n {
	case 1:
		return RiskLow
	case 3:
		return RiskHigh
	default:
		return RiskMedium
	}
}

// Quote is one instrument's latest price snapshot.
type Quote struct {
	Price              float64 `json:"current_price"`
	MonthGrowthPercent float64 `json:"month_growth_percent"`
}

// Quotes supplies price snapshots for a set of tickers.
type Quotes interface {
	Latest(ctx context.Context, symbols []string) (map[string]Quote, error)
}

// StaticQuotes serves a fixed snapshot. Stands in for a market-data feed.
type StaticQuotes struct{}

var staticTable = map[string]Quote{
	"AAPL": {Price: 227.50, MonthGrowthPercent: 3.1},
	"MSFT": {Price: 441.20, MonthGrowthPercent: 2.4},
	"GOOGL": {Price: 178.35, MonthGrowthPercent: 4.0},
	"NVDA": {Price: 131.80, MonthGrowthPercent: 9.7},
	"TSLA": {Price: 262.10, MonthGrowthPercent: 12.3},
	"AMD":  {Price: 158.44, MonthGrowthPercent: 7.2},
	"META": {Price: 563.09, MonthGrowthPercent: 5.8},
	"PLTR": {Price: 42.15, MonthGrowthPercent: 15.4},
}

// Latest returns snapshot entries for the requested symbols, skipping
// unknown tickers.
func (StaticQuotes) Latest(_ context.Context, symbols []string) (map[string]Quote, error) {
	out := make(map[string]Quote, len(symbols))
	for _, s := range symbols {
		if q, ok := staticTable[s]; ok {
			out[s] = q
		}
	}
	return out, nil
}

// Advisor assembles recommendation sets per risk profile.
type Advisor struct {
	quotes Quotes
}

// NewAdvisor creates an Advisor. A nil quotes provider falls back to the
// static snapshot.
func NewAdvisor(quotes Quotes) *Advisor {
	if quotes == nil {
		quotes = StaticQuotes{}
	}
	return &Advisor{quotes: quotes}
}

// Recommendations returns a JSON-compatible recommendation payload for the
// given risk profile.
func (a *Advisor) Recommendations(ctx context.Context, level string) (map[string]any, error) {
	switch level {
	case RiskLow:
		return map[string]any{
			"risk_level": RiskLow,
			"recommendations": []any{
				map[string]any{
					"type":                   "bank_deposit",
					"name":                   "Депозит 'Овернайт'",
					"expected_yield_percent": 12,
					"description":            "Надёжный вариант с фиксированной доходностью и минимальным риском.",
				},
				map[string]any{
					"type":                   "gov_bond",
					"name":                   "Гособлигации РК",
					"expected_yield_percent": 10,
					"description":            "Минимальный риск, стабильный доход.",
				},
			},
		}, nil

	case RiskMedium:
		quotes, err := a.quotes.Latest(ctx, []string{"AAPL", "MSFT", "GOOGL"})
		if err != nil {
			return nil, fmt.Errorf("fetching medium-risk quotes: %w", err)
		}
		companies := make(map[string]any, len(quotes))
		for sym, q := range quotes {
			companies[sym] = q.Price
		}
		return map[string]any{
			"risk_level": RiskMedium,
			"recommendations": []any{
				map[string]any{"type": "ETF", "name": "SPY (S&P 500)", "expected_yield_percent": 15},
				map[string]any{"type": "stocks", "companies": companies},
			},
		}, nil

	case RiskHigh:
		quotes, err := a.quotes.Latest(ctx, []string{"NVDA", "TSLA", "AMD", "META", "PLTR"})
		if err != nil {
			return nil, fmt.Errorf("fetching high-risk quotes: %w", err)
		}
		companies := make(map[string]any, len(quotes))
		for sym, q := range quotes {
			companies[sym] = map[string]any{
				"current_price":        q.Price,
				"month_growth_percent": q.MonthGrowthPercent,
			}
		}
		return map[string]any{
			"risk_level": RiskHigh,
			"recommendations": []any{
				map[string]any{
					"type":        "stocks",
					"companies":   companies,
					"description": "Самые быстрорастущие акции по данным рынка.",
				},
				map[string]any{
					"type":        "crypto",
					"assets":      map[string]any{"BTC": "Bitcoin", "ETH": "Ethereum"},
					"description": "Криптовалюты — высокая волатильность, высокая доходность.",
				},
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown risk level %q", level)
	}
}
