package scoring

import (
	"testing"
	"time"

	"github.com/Veraticus/finsight/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute_Overall(t *testing.T) {
	tests := []struct {
		name  string
		in    model.HealthInputs
		want  int
		grade string
	}{
		{
			name: "thirty percent savings with full engagement clamps to 100",
			in: model.HealthInputs{
				MonthlyIncome:      money("5000"),
				MonthlyExpenses:    money("3500"),
				ActiveAccountCount: 3,
				ActiveBudgetCount:  2,
				ActiveGoalCount:    1,
			},
			want:  100,
			grade: "A+",
		},
		{
			name:  "nothing at all is the base score",
			in:    model.HealthInputs{},
			want:  50,
			grade: "F",
		},
		{
			name: "zero income gives no savings bonus",
			in: model.HealthInputs{
				MonthlyExpenses:    money("1200"),
				ActiveAccountCount: 1,
			},
			want:  55,
			grade: "F",
		},
		{
			name: "overspending gives no savings bonus",
			in: model.HealthInputs{
				MonthlyIncome:      money("1000"),
				MonthlyExpenses:    money("1500"),
				ActiveAccountCount: 2,
				ActiveBudgetCount:  1,
			},
			want:  70,
			grade: "C",
		},
		{
			name: "break even earns the smallest savings bonus",
			in: model.HealthInputs{
				MonthlyIncome:     money("1000"),
				MonthlyExpenses:   money("1000"),
				ActiveBudgetCount: 3,
				ActiveGoalCount:   2,
			},
			want:  80,
			grade: "B",
		},
		{
			name: "seven percent savings",
			in: model.HealthInputs{
				MonthlyIncome:   money("1000"),
				MonthlyExpenses: money("930"),
			},
			want:  60,
			grade: "D",
		},
		{
			name: "twelve percent savings",
			in: model.HealthInputs{
				MonthlyIncome:   money("1000"),
				MonthlyExpenses: money("880"),
				ActiveGoalCount: 1,
			},
			want:  70,
			grade: "C",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute("user-1", tt.in, now)
			assert.Equal(t, tt.want, got.Overall)
			assert.Equal(t, tt.grade, got.Grade)
			assert.False(t, got.Degraded)
			assert.Equal(t, now, got.CalculatedAt)
			assert.Equal(t, "user-1", got.UserID)
		})
	}
}

func TestCompute_Bounded(t *testing.T) {
	incomes := []string{"0", "1", "100", "5000", "1000000"}
	expenses := []string{"0", "1", "50", "5000", "9999999"}
	counts := []int{0, 1, 2, 3, 50}

	for _, inc := range incomes {
		for _, exp := range expenses {
			for _, n := range counts {
				got := Compute("u", model.HealthInputs{
					MonthlyIncome:      money(inc),
					MonthlyExpenses:    money(exp),
					ActiveAccountCount: n,
					ActiveBudgetCount:  n,
					ActiveGoalCount:    n,
				}, now)
				require.GreaterOrEqual(t, got.Overall, 0)
				require.LessOrEqual(t, got.Overall, 100)
			}
		}
	}
}

func TestSavingsBonus_Monotonic(t *testing.T) {
	prev := -1
	for rate := -50.0; rate <= 100; rate += 0.5 {
		bonus := savingsBonus(rate)
		assert.GreaterOrEqual(t, bonus, prev, "rate %.1f", rate)
		prev = bonus
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, "A+"}, {95, "A+"}, {94, "A"}, {90, "A"}, {89, "B+"}, {85, "B+"},
		{84, "B"}, {80, "B"}, {79, "C+"}, {75, "C+"}, {74, "C"}, {70, "C"},
		{69, "D"}, {60, "D"}, {59, "F"}, {0, "F"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.score), "score %d", tt.score)
	}
}

func TestCompute_RatiosAndComponents(t *testing.T) {
	in := model.HealthInputs{
		MonthlyIncome:    money("4000"),
		MonthlyExpenses:  money("2000"),
		LiquidBalance:    money("8000"),
		LiabilityBalance: money("9600"),
		CreditBalance:    money("500"),
		CreditLimit:      money("5000"),
		BudgetAllocated:  money("1000"),
		BudgetSpent:      money("1050"),
		AccountTypeCount: 3,
	}

	got := Compute("u", in, now)

	assert.InDelta(t, 50.0, got.Ratios.SavingsRate, 0.001)
	assert.InDelta(t, 20.0, got.Ratios.DebtToIncome, 0.001)
	assert.InDelta(t, 10.0, got.Ratios.CreditUtilization, 0.001)
	assert.InDelta(t, 5.0, got.Ratios.BudgetVariance, 0.001)
	assert.InDelta(t, 4.0, got.Ratios.EmergencyFundMonths, 0.001)

	assert.Equal(t, model.HealthComponents{
		SavingsRate:         100,
		DebtToIncome:        100,
		BudgetAdherence:     75,
		CreditUtilization:   100,
		EmergencyFund:       75,
		InvestmentDiversity: 60,
	}, got.Components)

	assert.Equal(t, in, got.Data.Inputs)
	assert.Equal(t, 20, got.Data.Bonuses.Savings)
}

func TestCompute_ComponentsWithoutData(t *testing.T) {
	got := Compute("u", model.HealthInputs{}, now)

	assert.Equal(t, 0, got.Components.SavingsRate)
	assert.Equal(t, 100, got.Components.DebtToIncome)
	assert.Equal(t, 100, got.Components.CreditUtilization)
	assert.Equal(t, BaseScore, got.Components.BudgetAdherence)
	assert.Equal(t, BaseScore, got.Components.EmergencyFund)
	assert.Equal(t, 0, got.Components.InvestmentDiversity)
}

func TestCompute_DebtWithoutIncome(t *testing.T) {
	got := Compute("u", model.HealthInputs{LiabilityBalance: money("100")}, now)
	assert.InDelta(t, 100.0, got.Ratios.DebtToIncome, 0.001)
	assert.Equal(t, 25, got.Components.DebtToIncome)
}

func TestDegraded(t *testing.T) {
	got := Degraded("u", now)
	assert.Equal(t, BaseScore, got.Overall)
	assert.True(t, got.Degraded)
	assert.Equal(t, "F", got.Grade)
}
