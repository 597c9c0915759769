package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBudget(t *testing.T) {
	tests := []struct {
		name        string
		total       string
		spent       string
		threshold   int
		enabled     bool
		wantPct     float64
		wantRemain  string
		wantAlert   bool
		wantOverrun bool
	}{
		{name: "under threshold", total: "500", spent: "200", threshold: 80, enabled: true, wantPct: 40, wantRemain: "300"},
		{name: "at threshold alerts", total: "500", spent: "400", threshold: 80, enabled: true, wantPct: 80, wantRemain: "100", wantAlert: true},
		{name: "alerts disabled", total: "500", spent: "450", threshold: 80, enabled: false, wantPct: 90, wantRemain: "50"},
		{name: "over budget", total: "500", spent: "650", threshold: 80, enabled: true, wantPct: 130, wantRemain: "-150", wantAlert: true, wantOverrun: true},
		{name: "zero total is zero percent", total: "0", spent: "25", threshold: 80, enabled: true, wantPct: 0, wantRemain: "-25", wantOverrun: true},
		{name: "unset threshold uses default", total: "100", spent: "80", threshold: 0, enabled: true, wantPct: 80, wantRemain: "20", wantAlert: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := model.Budget{
				TotalAmount:    d(tt.total),
				AlertThreshold: tt.threshold,
				AlertEnabled:   tt.enabled,
			}
			got := Budget(b, d(tt.spent), nil, nil)

			assert.InDelta(t, tt.wantPct, got.SpentPercentage, 0.0001)
			assert.True(t, got.Remaining.Equal(d(tt.wantRemain)), "remaining %s", got.Remaining)
			assert.Equal(t, tt.wantAlert, got.ShouldAlert)
			assert.Equal(t, tt.wantOverrun, got.OverBudget)
		})
	}
}

func TestBudget_Allocations(t *testing.T) {
	b := model.Budget{TotalAmount: d("1000"), AlertThreshold: 80, AlertEnabled: true}
	allocations := []model.BudgetAllocation{
		{CategoryID: "food", Amount: d("400"), AlertThreshold: 50},
		{CategoryID: "fun", Amount: d("100"), AlertThreshold: 90},
		{CategoryID: "none", Amount: d("0")},
	}
	spent := map[string]decimal.Decimal{
		"food": d("250"),
		"fun":  d("20"),
	}

	got := Budget(b, d("270"), allocations, spent)

	require.Len(t, got.Allocations, 3)
	assert.True(t, got.Allocations[0].ShouldAlert)
	assert.InDelta(t, 62.5, got.Allocations[0].SpentPercentage, 0.0001)
	assert.False(t, got.Allocations[1].ShouldAlert)
	assert.True(t, got.Allocations[1].Remaining.Equal(d("80")))
	assert.Zero(t, got.Allocations[2].SpentPercentage)
	assert.False(t, got.Allocations[2].ShouldAlert)
}

func TestAlertTransition(t *testing.T) {
	tests := []struct {
		name      string
		alerting  bool
		sent      bool
		wantFire  bool
		wantState bool
	}{
		{name: "crossing fires", alerting: true, sent: false, wantFire: true, wantState: true},
		{name: "already sent stays quiet", alerting: true, sent: true, wantFire: false, wantState: true},
		{name: "dropping below re-arms", alerting: false, sent: true, wantFire: false, wantState: false},
		{name: "quiet stays quiet", alerting: false, sent: false, wantFire: false, wantState: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fire, state := AlertTransition(model.BudgetProgress{
				Budget:      model.Budget{AlertSent: tt.sent},
				ShouldAlert: tt.alerting,
			})
			assert.Equal(t, tt.wantFire, fire)
			assert.Equal(t, tt.wantState, state)
		})
	}
}

func newGoal() model.Goal {
	return model.Goal{
		ID:            "goal-1",
		Name:          "Emergency fund",
		TargetAmount:  d("1000"),
		CurrentAmount: decimal.Zero,
		Status:        model.GoalStatusActive,
		IsActive:      true,
	}
}

func newMilestones() []model.GoalMilestone {
	return []model.GoalMilestone{
		{ID: "m25", Name: "Quarter", TargetPercentage: d("25")},
		{ID: "m50", Name: "Half", TargetPercentage: d("50")},
		{ID: "m100", Name: "Done", TargetPercentage: d("100")},
	}
}

func TestAddContribution_Scenario(t *testing.T) {
	first, err := AddContribution(newGoal(), newMilestones(), d("400"), "paycheck", model.ContributionManual, now)
	require.NoError(t, err)

	assert.True(t, first.Goal.CurrentAmount.Equal(d("400")))
	assert.False(t, first.Completed)
	assert.Equal(t, model.GoalStatusActive, first.Goal.Status)
	require.Len(t, first.NewlyAchieved, 1)
	assert.Equal(t, "m25", first.NewlyAchieved[0].ID)
	assert.True(t, first.Milestones[0].IsAchieved)
	assert.False(t, first.Milestones[1].IsAchieved)
	require.NotNil(t, first.Contribution)
	assert.True(t, first.Contribution.Amount.Equal(d("400")))
	assert.Equal(t, "paycheck", first.Contribution.Description)

	later := now.Add(time.Hour)
	second, err := AddContribution(first.Goal, first.Milestones, d("700"), "", "", later)
	require.NoError(t, err)

	assert.True(t, second.Goal.CurrentAmount.Equal(d("1100")))
	assert.True(t, second.Completed)
	assert.Equal(t, model.GoalStatusCompleted, second.Goal.Status)
	assert.False(t, second.Goal.IsActive)
	require.NotNil(t, second.Goal.CompletedAt)
	assert.Equal(t, later, *second.Goal.CompletedAt)
	assert.Equal(t, model.ContributionManual, second.Contribution.Source)
	for _, m := range second.Milestones {
		assert.True(t, m.IsAchieved, m.ID)
	}
	// the quarter milestone keeps its original timestamp
	assert.Equal(t, now, *second.Milestones[0].AchievedAt)
	assert.Len(t, second.NewlyAchieved, 2)
}

func TestAddContribution_CompletionFiresOnce(t *testing.T) {
	done, err := AddContribution(newGoal(), newMilestones(), d("1000"), "", model.ContributionManual, now)
	require.NoError(t, err)
	require.True(t, done.Completed)

	again, err := AddContribution(done.Goal, done.Milestones, d("50"), "", model.ContributionManual, now.Add(24*time.Hour))
	require.NoError(t, err)

	assert.False(t, again.Completed)
	assert.Empty(t, again.NewlyAchieved)
	assert.Equal(t, now, *again.Goal.CompletedAt)
	assert.True(t, again.Goal.CurrentAmount.Equal(d("1050")))
}

func TestAddContribution_Additive(t *testing.T) {
	goal := newGoal()
	goal.CurrentAmount = d("12.50")
	goal.TargetAmount = d("100000")
	amounts := []string{"10", "0.01", "99.99", "250"}

	var milestones []model.GoalMilestone
	for _, a := range amounts {
		out, err := AddContribution(goal, milestones, d(a), "", model.ContributionAuto, now)
		require.NoError(t, err)
		goal, milestones = out.Goal, out.Milestones
	}

	assert.True(t, goal.CurrentAmount.Equal(d("372.50")), "current %s", goal.CurrentAmount)
}

func TestAddContribution_Rejects(t *testing.T) {
	cancelled := newGoal()
	cancelled.Status = model.GoalStatusCancelled

	tests := []struct {
		name   string
		goal   model.Goal
		amount string
	}{
		{name: "zero amount", goal: newGoal(), amount: "0"},
		{name: "negative amount", goal: newGoal(), amount: "-5"},
		{name: "cancelled goal", goal: cancelled, amount: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.goal.CurrentAmount
			out, err := AddContribution(tt.goal, newMilestones(), d(tt.amount), "", model.ContributionManual, now)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrValidation))
			assert.Nil(t, out.Contribution)
			assert.True(t, tt.goal.CurrentAmount.Equal(before))
		})
	}
}

func TestAddContribution_PausedGoalDefersCompletion(t *testing.T) {
	goal := newGoal()
	goal.Status = model.GoalStatusPaused
	goal.IsActive = false

	out, err := AddContribution(goal, newMilestones(), d("1200"), "", model.ContributionManual, now)
	require.NoError(t, err)

	assert.False(t, out.Completed)
	assert.Equal(t, model.GoalStatusPaused, out.Goal.Status)
	for _, m := range out.Milestones {
		assert.True(t, m.IsAchieved)
	}

	resumed, err := Transition(out.Goal, out.Milestones, model.GoalStatusActive, now)
	require.NoError(t, err)
	assert.True(t, resumed.Completed)
	assert.Equal(t, model.GoalStatusCompleted, resumed.Goal.Status)
	assert.Empty(t, resumed.NewlyAchieved)
}

func TestAddContribution_MilestonesNeverRevert(t *testing.T) {
	achievedAt := now.Add(-48 * time.Hour)
	milestones := []model.GoalMilestone{
		{ID: "m90", TargetPercentage: d("90"), IsAchieved: true, AchievedAt: &achievedAt},
	}

	out, err := AddContribution(newGoal(), milestones, d("1"), "", model.ContributionManual, now)
	require.NoError(t, err)

	assert.True(t, out.Milestones[0].IsAchieved)
	assert.Equal(t, achievedAt, *out.Milestones[0].AchievedAt)
	assert.Empty(t, out.NewlyAchieved)
}

func TestTransition(t *testing.T) {
	active := newGoal()
	paused := newGoal()
	paused.Status = model.GoalStatusPaused
	paused.IsActive = false
	completed := newGoal()
	completed.Status = model.GoalStatusCompleted
	cancelled := newGoal()
	cancelled.Status = model.GoalStatusCancelled

	tests := []struct {
		name       string
		goal       model.Goal
		to         model.GoalStatus
		wantStatus model.GoalStatus
		wantActive bool
		wantErr    bool
	}{
		{name: "pause active", goal: active, to: model.GoalStatusPaused, wantStatus: model.GoalStatusPaused},
		{name: "cancel active", goal: active, to: model.GoalStatusCancelled, wantStatus: model.GoalStatusCancelled},
		{name: "resume paused", goal: paused, to: model.GoalStatusActive, wantStatus: model.GoalStatusActive, wantActive: true},
		{name: "cancel paused", goal: paused, to: model.GoalStatusCancelled, wantStatus: model.GoalStatusCancelled},
		{name: "same status is a no-op", goal: active, to: model.GoalStatusActive, wantStatus: model.GoalStatusActive, wantActive: true},
		{name: "cannot complete manually", goal: active, to: model.GoalStatusCompleted, wantErr: true},
		{name: "completed is terminal", goal: completed, to: model.GoalStatusActive, wantErr: true},
		{name: "cancelled is terminal", goal: cancelled, to: model.GoalStatusActive, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Transition(tt.goal, nil, tt.to, now)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, common.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, out.Goal.Status)
			assert.Equal(t, tt.wantActive, out.Goal.IsActive)
			assert.False(t, out.Completed)
		})
	}
}

func TestValidateNewGoal(t *testing.T) {
	valid := func() model.Goal {
		g := newGoal()
		g.TargetDate = now.AddDate(1, 0, 0)
		return g
	}

	tests := []struct {
		name    string
		mutate  func(*model.Goal)
		wantErr string
	}{
		{name: "valid", mutate: func(*model.Goal) {}},
		{name: "target date today", mutate: func(g *model.Goal) { g.TargetDate = model.DayOf(now) }},
		{name: "missing name", mutate: func(g *model.Goal) { g.Name = "" }, wantErr: "name"},
		{name: "zero target", mutate: func(g *model.Goal) { g.TargetAmount = decimal.Zero }, wantErr: "target_amount"},
		{name: "negative current", mutate: func(g *model.Goal) { g.CurrentAmount = d("-1") }, wantErr: "current_amount"},
		{name: "past date", mutate: func(g *model.Goal) { g.TargetDate = now.AddDate(0, 0, -1) }, wantErr: "target_date"},
		{name: "auto without amount", mutate: func(g *model.Goal) {
			g.AutoContribute = true
			g.ContributionFrequency = model.FrequencyMonthly
		}, wantErr: "contribution_amount"},
		{name: "auto with bad frequency", mutate: func(g *model.Goal) {
			g.AutoContribute = true
			g.ContributionAmount = d("50")
			g.ContributionFrequency = "daily"
		}, wantErr: "contribution_frequency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := valid()
			tt.mutate(&g)
			err := ValidateNewGoal(g, now)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var verr *common.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, verr.Field)
		})
	}
}

func TestValidateMilestone(t *testing.T) {
	assert.NoError(t, ValidateMilestone(model.GoalMilestone{Name: "Half", TargetPercentage: d("50")}))
	assert.NoError(t, ValidateMilestone(model.GoalMilestone{Name: "All", TargetPercentage: d("100")}))
	assert.Error(t, ValidateMilestone(model.GoalMilestone{Name: "Zero", TargetPercentage: d("0")}))
	assert.Error(t, ValidateMilestone(model.GoalMilestone{Name: "Over", TargetPercentage: d("100.01")}))
	assert.Error(t, ValidateMilestone(model.GoalMilestone{TargetPercentage: d("10")}))
}

func TestAutoContributionDue(t *testing.T) {
	at := func(days int) *time.Time {
		v := now.AddDate(0, 0, -days)
		return &v
	}
	monthAgo := now.AddDate(0, -1, 0)

	tests := []struct {
		name      string
		frequency model.ContributionFrequency
		last      *time.Time
		want      bool
	}{
		{name: "never contributed", frequency: model.FrequencyMonthly, last: nil, want: true},
		{name: "weekly after six days", frequency: model.FrequencyWeekly, last: at(6), want: false},
		{name: "weekly after seven days", frequency: model.FrequencyWeekly, last: at(7), want: true},
		{name: "biweekly after thirteen days", frequency: model.FrequencyBiweekly, last: at(13), want: false},
		{name: "biweekly after fourteen days", frequency: model.FrequencyBiweekly, last: at(14), want: true},
		{name: "monthly exactly one month", frequency: model.FrequencyMonthly, last: &monthAgo, want: true},
		{name: "monthly after twenty days", frequency: model.FrequencyMonthly, last: at(20), want: false},
		{name: "quarterly after sixty days", frequency: model.FrequencyQuarterly, last: at(60), want: false},
		{name: "quarterly after a hundred days", frequency: model.FrequencyQuarterly, last: at(100), want: true},
		{name: "unknown frequency", frequency: "daily", last: at(100), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGoal()
			g.AutoContribute = true
			g.ContributionAmount = d("25")
			g.ContributionFrequency = tt.frequency
			g.LastAutoContributionAt = tt.last
			assert.Equal(t, tt.want, AutoContributionDue(g, now))
		})
	}

	t.Run("paused goals are skipped", func(t *testing.T) {
		g := newGoal()
		g.AutoContribute = true
		g.ContributionAmount = d("25")
		g.ContributionFrequency = model.FrequencyWeekly
		g.Status = model.GoalStatusPaused
		assert.False(t, AutoContributionDue(g, now))
	})
}
