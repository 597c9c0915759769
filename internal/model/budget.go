package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultAlertThreshold is the spent percentage that triggers a budget alert.
const DefaultAlertThreshold = 80

// BudgetPeriod is the cadence a budget covers.
type BudgetPeriod string

// Budget periods.
const (
	BudgetPeriodWeekly    BudgetPeriod = "weekly"
	BudgetPeriodMonthly   BudgetPeriod = "monthly"
	BudgetPeriodQuarterly BudgetPeriod = "quarterly"
	BudgetPeriodYearly    BudgetPeriod = "yearly"
)

// Valid reports whether p is a known period.
func (p BudgetPeriod) Valid() bool {
	switch p {
	case BudgetPeriodWeekly, BudgetPeriodMonthly, BudgetPeriodQuarterly, BudgetPeriodYearly:
		return true
	}
	return false
}

// EndFrom returns the last day covered by a period starting at start.
func (p BudgetPeriod) EndFrom(start time.Time) time.Time {
	switch p {
	case BudgetPeriodWeekly:
		return start.AddDate(0, 0, 6)
	case BudgetPeriodQuarterly:
		return start.AddDate(0, 3, -1)
	case BudgetPeriodYearly:
		return start.AddDate(1, 0, -1)
	default:
		return start.AddDate(0, 1, -1)
	}
}

// BudgetStatus is the lifecycle state of a budget.
type BudgetStatus string

// Budget statuses.
const (
	BudgetStatusActive    BudgetStatus = "active"
	BudgetStatusPaused    BudgetStatus = "paused"
	BudgetStatusCompleted BudgetStatus = "completed"
	BudgetStatusArchived  BudgetStatus = "archived"
)

// Budget caps spending in one category, or across all expenses when
// CategoryID is empty, over [StartDate, EndDate].
type Budget struct {
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	CreatedAt      time.Time       `json:"created_at"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Name           string          `json:"name"`
	CategoryID     string          `json:"category_id,omitempty"`
	Period         BudgetPeriod    `json:"period"`
	Status         BudgetStatus    `json:"status"`
	AlertThreshold int             `json:"alert_threshold"`
	AlertEnabled   bool            `json:"alert_enabled"`
	AlertSent      bool            `json:"alert_sent"`
	IsActive       bool            `json:"is_active"`
}

// IsCurrent reports whether the budget is active and has not ended by day.
func (b *Budget) IsCurrent(day time.Time) bool {
	return b.IsActive && b.Status == BudgetStatusActive && !DayOf(b.EndDate).Before(DayOf(day))
}

// BudgetAllocation splits a budget across categories.
type BudgetAllocation struct {
	Amount         decimal.Decimal `json:"allocated_amount"`
	ID             string          `json:"id"`
	BudgetID       string          `json:"budget_id"`
	CategoryID     string          `json:"category_id"`
	AlertThreshold int             `json:"alert_threshold"`
}

// BudgetProgress is the derived spending state of a budget.
type BudgetProgress struct {
	Budget          Budget               `json:"budget"`
	Spent           decimal.Decimal      `json:"spent_amount"`
	Remaining       decimal.Decimal      `json:"remaining_amount"`
	Allocations     []AllocationProgress `json:"allocations,omitempty"`
	SpentPercentage float64              `json:"spent_percentage"`
	OverBudget      bool                 `json:"is_over_budget"`
	ShouldAlert     bool                 `json:"should_alert"`
}

// AllocationProgress is the derived spending state of one allocation.
type AllocationProgress struct {
	Allocation      BudgetAllocation `json:"allocation"`
	Spent           decimal.Decimal  `json:"spent_amount"`
	Remaining       decimal.Decimal  `json:"remaining_amount"`
	SpentPercentage float64          `json:"spent_percentage"`
	OverBudget      bool             `json:"is_over_budget"`
	ShouldAlert     bool             `json:"should_alert"`
}

// DayOf truncates t to midnight in its own location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
