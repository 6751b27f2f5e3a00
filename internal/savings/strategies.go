// Package savings simulates how fast the bank's deposit products bring a
// client to a financial goal.
package savings

import (
	"math"
	"sort"
)

// Product describes one deposit product offered by the bank.
type Product struct {
	Name               string
	Type               string
	YieldPercent       float64
	MinAmountTenge     float64
	MaxAmountTenge     float64
	MinTermMonths      int
	MaxTermMonths      int
}

// Catalog is the bank's current deposit lineup.
var Catalog = []Product{
	{
		Name:           "Овернайт",
		Type:           "Депозитный",
		YieldPercent:   12,
		MinAmountTenge: 1_000_000,
		MaxAmountTenge: 100_000_000,
		MinTermMonths:  1,
		MaxTermMonths:  12,
	},
	{
		Name:           "Выгодный",
		Type:           "Депозитный",
		YieldPercent:   17,
		MinAmountTenge: 500_000,
		MaxAmountTenge: 100_000_000,
		MinTermMonths:  3,
		MaxTermMonths:  12,
	},
}

// Strategy is one simulated path to the goal.
type Strategy struct {
	ProductName           string  `json:"product_name"`
	EstimatedMonthsToGoal int     `json:"estimated_months_to_goal"`
	FinalAmount           float64 `json:"final_amount"`
}

// Strategies simulates monthly growth of the client's balance across every
// product in the catalog and returns the products that reach the goal within
// their maximum term, fastest first.
//
// Products whose minimum amount exceeds the current balance are skipped.
// Interest accrues monthly as the annual rate divided by 12, applied after
// the monthly deposit.
func Strategies(financialGoal, currentBalance, monthlySavings float64) []Strategy {
	return StrategiesFor(Catalog, financialGoal, currentBalance, monthlySavings)
}

// StrategiesFor is Strategies over an explicit product list. Split out for
// tests and for future per-client product eligibility.
func StrategiesFor(products []Product, financialGoal, currentBalance, monthlySavings float64) []Strategy {
	var strategies []Strategy

	for _, p := range products {
		if currentBalance < p.MinAmountTenge {
			continue
		}

		rate := p.YieldPercent / 100
		balance := currentBalance
		months := 0
		maxTerm := p.MaxTermMonths
		if maxTerm <= 0 {
			maxTerm = 1200
		}

		for balance < financialGoal && months < maxTerm {
			balance += monthlySavings
			balance += balance * (rate / 12)
			months++
		}

		if balance >= financialGoal {
			strategies = append(strategies, Strategy{
				ProductName:           p.Name,
				EstimatedMonthsToGoal: months,
				FinalAmount:           math.Round(balance*100) / 100,
			})
		}
	}

	sort.Slice(strategies, func(i, j int) bool {
		return strategies[i].EstimatedMonthsToGoal < strategies[j].EstimatedMonthsToGoal
	})
	return strategies
}
