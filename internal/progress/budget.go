// Package progress derives budget status and drives the goal contribution
// state machine. Nothing here touches storage.
package progress

import (
	"github.com/Veraticus/finsight/internal/model"
	"github.com/shopspring/decimal"
)

// Budget derives the spending state of b given what has been spent in its
// window. allocationSpent maps category id to spend for each allocation.
func Budget(b model.Budget, spent decimal.Decimal, allocations []model.BudgetAllocation, allocationSpent map[string]decimal.Decimal) model.BudgetProgress {
	pct := model.Percent(spent, b.TotalAmount)

	p := model.BudgetProgress{
		Budget:          b,
		Spent:           spent,
		Remaining:       b.TotalAmount.Sub(spent),
		SpentPercentage: pct,
		OverBudget:      spent.GreaterThan(b.TotalAmount),
		ShouldAlert:     b.AlertEnabled && b.TotalAmount.IsPositive() && pct >= float64(threshold(b.AlertThreshold)),
	}

	for _, a := range allocations {
		p.Allocations = append(p.Allocations, Allocation(a, allocationSpent[a.CategoryID]))
	}

	return p
}

// Allocation derives the spending state of one budget allocation.
func Allocation(a model.BudgetAllocation, spent decimal.Decimal) model.AllocationProgress {
	pct := model.Percent(spent, a.Amount)
	return model.AllocationProgress{
		Allocation:      a,
		Spent:           spent,
		Remaining:       a.Amount.Sub(spent),
		SpentPercentage: pct,
		OverBudget:      spent.GreaterThan(a.Amount),
		ShouldAlert:     a.Amount.IsPositive() && pct >= float64(threshold(a.AlertThreshold)),
	}
}

// AlertTransition decides whether reading p should fire a budget alert.
// It returns whether to fire and the alert flag to persist on the budget:
// an alert fires once when spending crosses the threshold and re-arms when
// spending drops back below it.
func AlertTransition(p model.BudgetProgress) (fire bool, alertSent bool) {
	switch {
	case p.ShouldAlert && !p.Budget.AlertSent:
		return true, true
	case !p.ShouldAlert:
		return false, false
	default:
		return false, true
	}
}

func threshold(t int) int {
	if t <= 0 {
		return model.DefaultAlertThreshold
	}
	return t
}
