package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCents(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		cents int64
	}{
		{name: "whole", in: "12", cents: 1200},
		{name: "two places", in: "12.34", cents: 1234},
		{name: "rounds half up", in: "0.005", cents: 1},
		{name: "negative", in: "-3.10", cents: -310},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cents(decimal.RequireFromString(tt.in))
			assert.Equal(t, tt.cents, got)
			assert.True(t, FromCents(got).Equal(decimal.RequireFromString(tt.in).Round(2)))
		})
	}
}

func TestPercent(t *testing.T) {
	assert.InDelta(t, 50.0, Percent(decimal.NewFromInt(50), decimal.NewFromInt(100)), 0.0001)
	assert.Zero(t, Percent(decimal.NewFromInt(50), decimal.Zero))
	assert.Zero(t, Percent(decimal.NewFromInt(50), decimal.NewFromInt(-1)))
}

func TestFormsCycle(t *testing.T) {
	parents := map[string]string{
		"child":      "parent",
		"parent":     "grandparent",
		"unrelated":  "",
		"loop-a":     "loop-b",
		"loop-b":     "loop-a",
		"standalone": "",
	}

	tests := []struct {
		name     string
		category string
		parent   string
		want     bool
	}{
		{name: "no parent", category: "child", parent: "", want: false},
		{name: "self parent", category: "child", parent: "child", want: true},
		{name: "ancestor becomes child", category: "grandparent", parent: "child", want: true},
		{name: "unrelated parent", category: "child", parent: "unrelated", want: false},
		{name: "existing loop terminates", category: "standalone", parent: "loop-a", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormsCycle(tt.category, tt.parent, parents))
		})
	}
}

func TestGoal_ProgressPercentage(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		target    string
		want      float64
		remaining string
	}{
		{name: "half way", current: "500", target: "1000", want: 50, remaining: "500"},
		{name: "over target caps at 100", current: "1500", target: "1000", want: 100, remaining: "0"},
		{name: "zero target", current: "10", target: "0", want: 0, remaining: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Goal{
				CurrentAmount: decimal.RequireFromString(tt.current),
				TargetAmount:  decimal.RequireFromString(tt.target),
			}
			assert.InDelta(t, tt.want, g.ProgressPercentage(), 0.0001)
			assert.True(t, g.RemainingAmount().Equal(decimal.RequireFromString(tt.remaining)))
		})
	}
}

func TestGoalMilestone_TargetAmount(t *testing.T) {
	m := GoalMilestone{TargetPercentage: decimal.NewFromInt(25)}
	assert.True(t, m.TargetAmount(decimal.NewFromInt(1000)).Equal(decimal.NewFromInt(250)))
}

func TestBudgetPeriod_EndFrom(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		period BudgetPeriod
		want   time.Time
	}{
		{period: BudgetPeriodWeekly, want: time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)},
		{period: BudgetPeriodMonthly, want: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		{period: BudgetPeriodQuarterly, want: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)},
		{period: BudgetPeriodYearly, want: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.period.EndFrom(start))
		})
	}
}

func TestBudget_IsCurrent(t *testing.T) {
	today := time.Date(2024, 6, 15, 13, 0, 0, 0, time.UTC)
	b := Budget{
		IsActive: true,
		Status:   BudgetStatusActive,
		EndDate:  time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, b.IsCurrent(today), "budget ending today is still current")

	b.EndDate = today.AddDate(0, 0, -1)
	assert.False(t, b.IsCurrent(today))

	b.EndDate = today.AddDate(0, 1, 0)
	b.Status = BudgetStatusPaused
	assert.False(t, b.IsCurrent(today))
}

func TestTransaction_GenerateHash(t *testing.T) {
	base := Transaction{
		Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString("42.50"),
		Description: "Coffee Shop",
		AccountID:   "acc-1",
		Type:        TransactionTypeExpense,
		UserID:      "user-1",
	}

	same := base
	same.Description = "  coffee shop "
	assert.Equal(t, base.GenerateHash(), same.GenerateHash())

	different := base
	different.Amount = decimal.RequireFromString("42.51")
	assert.NotEqual(t, base.GenerateHash(), different.GenerateHash())
}

func TestTransaction_BalanceDelta(t *testing.T) {
	amount := decimal.NewFromInt(10)
	assert.True(t, (&Transaction{Type: TransactionTypeIncome, Amount: amount}).BalanceDelta().Equal(amount))
	assert.True(t, (&Transaction{Type: TransactionTypeExpense, Amount: amount}).BalanceDelta().Equal(amount.Neg()))
	assert.True(t, (&Transaction{Type: TransactionTypeTransfer, Amount: amount}).BalanceDelta().Equal(amount.Neg()))
}

func TestCleanMerchant(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"STARBUCKS STORE 12345678", "Starbucks Store"},
		{"ACME WIDGETS LLC", "Acme Widgets"},
		{"big box corp co", "Big Box"},
		{"uber   trip", "Uber Trip"},
		{"COSTCO", "Costco"},
		{"7-ELEVEN", "7-Eleven"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanMerchant(tt.in))
		})
	}
}
