package cli

import (
	"testing"
	"time"

	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRenderHealth(t *testing.T) {
	h := model.HealthScore{
		Overall:    82,
		Grade:      "B",
		Components: model.HealthComponents{SavingsRate: 90, EmergencyFund: 40},
		Ratios:     model.HealthRatios{SavingsRate: 21.5, EmergencyFundMonths: 2.4},
	}
	out := RenderHealth(h)
	assert.Contains(t, out, "82/100")
	assert.Contains(t, out, "Savings rate")
	assert.Contains(t, out, "21.5%")
	assert.Contains(t, out, "2.4 mo")
	assert.NotContains(t, out, "partial")

	h.Degraded = true
	assert.Contains(t, RenderHealth(h), "partial")
}

func TestRenderBudgets(t *testing.T) {
	assert.Contains(t, RenderBudgets(nil), "No active budgets")

	out := RenderBudgets([]model.BudgetProgress{{
		Budget:          model.Budget{Name: "Groceries", Period: model.BudgetPeriodMonthly, TotalAmount: decimal.NewFromInt(400)},
		Spent:           decimal.NewFromInt(450),
		Remaining:       decimal.NewFromInt(-50),
		SpentPercentage: 112.5,
		OverBudget:      true,
	}})
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "$400.00")
	assert.Contains(t, out, "$-50.00")
	assert.Contains(t, out, "112.5%")
}

func TestRenderGoalDetail(t *testing.T) {
	achieved := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	d := &engine.GoalDetail{
		Progress: model.GoalProgress{
			Goal: model.Goal{
				Name: "Vacation", Status: model.GoalStatusActive,
				CurrentAmount: decimal.NewFromInt(500), TargetAmount: decimal.NewFromInt(2000),
				TargetDate: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
			},
			ProgressPercentage: 25,
		},
		Milestones: []model.GoalMilestone{
			{Name: "Quarter", TargetPercentage: decimal.NewFromInt(25), IsAchieved: true, AchievedAt: &achieved},
			{Name: "Half", TargetPercentage: decimal.NewFromInt(50)},
		},
		Contributions: []model.GoalContribution{
			{CreatedAt: achieved, Amount: decimal.NewFromInt(500), Source: model.ContributionManual, Description: "bonus"},
		},
	}
	out := RenderGoalDetail(d)
	assert.Contains(t, out, "Vacation")
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "2026-12-01")
	assert.Contains(t, out, "Quarter")
	assert.Contains(t, out, "2026-03-01")
	assert.Contains(t, out, "bonus")
}

func TestRenderSpending(t *testing.T) {
	assert.Contains(t, RenderSpending(model.SpendingForecast{}), "Not enough spending history")

	out := RenderSpending(model.SpendingForecast{
		TotalPredicted: decimal.RequireFromString("312.40"),
		Predictions: []model.SpendingPrediction{
			{Category: "Dining", Amount: decimal.RequireFromString("312.40"), Confidence: model.ConfidenceHigh, Kind: "recurring", Window: "next_month"},
		},
	})
	assert.Contains(t, out, "Dining")
	assert.Contains(t, out, "High")
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "$312.40")
}

func TestRenderHealthForecast(t *testing.T) {
	out := RenderHealthForecast(model.HealthForecast{
		CurrentScore: 70,
		TrendLabel:   model.TrendImproving,
		Points:       []model.HealthForecastPoint{{Label: "Nov 2026", Month: 1, PredictedScore: 73, Improvement: 3}},
		Predictions: model.ImprovementPredictions{
			SavingsRate: &model.ImprovementPrediction{Current: 10, Predicted: 15},
		},
	})
	assert.Contains(t, out, "improving")
	assert.Contains(t, out, "Nov 2026")
	assert.Contains(t, out, "+3")
	assert.Contains(t, out, "Savings rate")

	out = RenderHealthForecast(model.HealthForecast{TrendLabel: model.TrendStable})
	assert.NotContains(t, out, "Savings rate")
}

func TestRenderReport(t *testing.T) {
	out := RenderReport(&model.FinancialReport{
		GeneratedAt: time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC),
		User:        model.User{Email: "pat@example.com"},
		Health:      model.HealthScore{Overall: 55, Grade: "F"},
	})
	for _, s := range []string{"pat@example.com", "2026-10-01 09:30", "55/100", "Budgets", "Goals", "Spending Forecast"} {
		assert.Contains(t, out, s)
	}
}

func TestRenderLearning(t *testing.T) {
	out := RenderLearning(&engine.LearningSummary{
		Streak:       model.LearningStreak{CurrentStreak: 4, LongestStreak: 9},
		Points:       35,
		Courses:      []model.CourseProgress{{CourseID: "budgeting-101", Status: model.CourseInProgress, CompletedLessons: 2, CompletionPercentage: 40}},
		Achievements: []model.UserAchievement{{Title: "First Steps", PointsEarned: 10}},
	})
	assert.Contains(t, out, "4 day streak (longest 9), 35 points")
	assert.Contains(t, out, "budgeting-101")
	assert.Contains(t, out, "First Steps (+10)")
}

func TestRenderLessonResult(t *testing.T) {
	tests := []struct {
		name   string
		result engine.LessonResult
		want   []string
	}{
		{
			name: "first completion",
			result: engine.LessonResult{
				Progress: model.CourseProgress{CompletionPercentage: 50},
				Streak:   model.LearningStreak{CurrentStreak: 1},
				Awarded:  []model.UserAchievement{{Title: "First Steps", PointsEarned: 10}},
			},
			want: []string{"course 50.0% done", "1 day streak", "Achievement unlocked: First Steps (+10 points)"},
		},
		{
			name:   "repeat",
			result: engine.LessonResult{Repeat: true},
			want:   []string{"Lesson already completed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderLessonResult(&tt.result)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestRenderImportResult(t *testing.T) {
	out := RenderImportResult("ofx", engine.ImportResult{Imported: 12, Duplicates: 3, AccountsCreated: 1})
	assert.Contains(t, out, "Imported 12 transactions from ofx (3 duplicates skipped; 1 accounts created, 0 updated)")
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percent float64
		filled  int
	}{
		{0, 0},
		{55, 5},
		{100, 10},
		{140, 10},
		{-5, 0},
	}
	for _, tt := range tests {
		bar := progressBar(tt.percent, 10)
		assert.Equal(t, tt.filled, countRune(bar, '█'))
		assert.Equal(t, 10-tt.filled, countRune(bar, '░'))
	}
}

func countRune(s string, r rune) int {
	n := 0
	for _, c := range s {
		if c == r {
			n++
		}
	}
	return n
}
