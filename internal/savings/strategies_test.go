package savings

import "testing"

func TestStrategiesReachGoal(t *testing.T) {
	// Balance qualifies for both products; 17% must win.
	got := Strategies(10_000_000, 2_000_000, 500_000)

	if len(got) != 2 {
		t.Fatalf("got %d strategies, want 2", len(got))
	}
	if got[0].ProductName != "Выгодный" {
		t.Errorf("fastest product = %q, want Выгодный (higher yield)", got[0].ProductName)
	}
	if got[0].EstimatedMonthsToGoal > got[1].EstimatedMonthsToGoal {
		t.Error("strategies not sorted by months to goal")
	}
	for _, s := range got {
		if s.FinalAmount < 10_000_000 {
			t.Errorf("%s final amount %.2f below goal", s.ProductName, s.FinalAmount)
		}
		if s.EstimatedMonthsToGoal <= 0 || s.EstimatedMonthsToGoal > 12 {
			t.Errorf("%s months %d outside product term", s.ProductName, s.EstimatedMonthsToGoal)
		}
	}
}

func TestStrategiesSkipsBelowMinimum(t *testing.T) {
	// 600k qualifies only for Выгодный (min 500k), not Овернайт (min 1M).
	got := Strategies(2_000_000, 600_000, 200_000)

	for _, s := range got {
		if s.ProductName == "Овернайт" {
			t.Error("product with unmet minimum balance produced a strategy")
		}
	}
}

func TestStrategiesUnreachableGoal(t *testing.T) {
	// Goal far beyond what 12 months of saving can reach.
	got := Strategies(1_000_000_000, 2_000_000, 10_000)

	if len(got) != 0 {
		t.Errorf("unreachable goal produced %d strategies, want 0", len(got))
	}
}

func TestStrategiesGoalAlreadyMet(t *testing.T) {
	got := Strategies(1_000_000, 2_000_000, 0)

	if len(got) != 2 {
		t.Fatalf("got %d strategies, want 2", len(got))
	}
	for _, s := range got {
		if s.EstimatedMonthsToGoal != 0 {
			t.Errorf("%s took %d months for an already-met goal", s.ProductName, s.EstimatedMonthsToGoal)
		}
	}
}

func TestStrategiesForCapsAtMaxTerm(t *testing.T) {
	products := []Product{{
		Name:           "Тест",
		YieldPercent:   10,
		MinAmountTenge: 0,
		MaxTermMonths:  3,
	}}

	got := StrategiesFor(products, 1_000_000, 100, 1)
	if len(got) != 0 {
		t.Error("simulation ran past the product's maximum term")
	}
}
