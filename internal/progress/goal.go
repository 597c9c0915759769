package progress

import (
	"fmt"
	"time"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/shopspring/decimal"
)

// Outcome is the result of applying a change to a goal. Milestones holds
// every milestone of the goal after the change; NewlyAchieved only those
// that flipped during it.
type Outcome struct {
	Goal          model.Goal              `json:"goal"`
	Contribution  *model.GoalContribution `json:"contribution,omitempty"`
	Milestones    []model.GoalMilestone   `json:"milestones"`
	NewlyAchieved []model.GoalMilestone   `json:"newly_achieved,omitempty"`
	Completed     bool                    `json:"completed"`
}

// AddContribution applies a contribution to goal. Invalid input returns a
// validation error and no outcome.
func AddContribution(goal model.Goal, milestones []model.GoalMilestone, amount decimal.Decimal, note string, source model.ContributionSource, now time.Time) (Outcome, error) {
	if !amount.IsPositive() {
		return Outcome{}, common.NewValidationError("amount", "must be greater than zero")
	}
	if goal.Status == model.GoalStatusCancelled {
		return Outcome{}, common.NewValidationError("goal", "is cancelled")
	}
	if source == "" {
		source = model.ContributionManual
	}

	out := Outcome{
		Goal:       goal,
		Milestones: append([]model.GoalMilestone(nil), milestones...),
		Contribution: &model.GoalContribution{
			GoalID:      goal.ID,
			Amount:      amount,
			Description: note,
			Source:      source,
			CreatedAt:   now,
		},
	}
	out.Goal.CurrentAmount = goal.CurrentAmount.Add(amount)

	if goal.Status == model.GoalStatusCompleted {
		return out, nil
	}

	out.checkMilestones(now)

	if out.Goal.Status == model.GoalStatusActive && out.reachedTarget() {
		out.complete(now)
	}

	return out, nil
}

// Transition moves goal to a new status by user request.
func Transition(goal model.Goal, milestones []model.GoalMilestone, to model.GoalStatus, now time.Time) (Outcome, error) {
	out := Outcome{
		Goal:       goal,
		Milestones: append([]model.GoalMilestone(nil), milestones...),
	}

	switch goal.Status {
	case model.GoalStatusCompleted, model.GoalStatusCancelled:
		return Outcome{}, common.NewValidationError("status", fmt.Sprintf("cannot change a %s goal", goal.Status))
	}
	if goal.Status == to {
		return out, nil
	}

	switch to {
	case model.GoalStatusPaused:
		if goal.Status != model.GoalStatusActive {
			return Outcome{}, common.NewValidationError("status", "only active goals can be paused")
		}
		out.Goal.Status = model.GoalStatusPaused
		out.Goal.IsActive = false
	case model.GoalStatusCancelled:
		out.Goal.Status = model.GoalStatusCancelled
		out.Goal.IsActive = false
	case model.GoalStatusActive:
		out.Goal.Status = model.GoalStatusActive
		out.Goal.IsActive = true
		if out.reachedTarget() {
			out.complete(now)
		}
	default:
		return Outcome{}, common.NewValidationError("status", fmt.Sprintf("cannot move goal to %q", to))
	}

	return out, nil
}

func (o *Outcome) reachedTarget() bool {
	return o.Goal.CurrentAmount.GreaterThanOrEqual(o.Goal.TargetAmount)
}

func (o *Outcome) checkMilestones(now time.Time) {
	for i := range o.Milestones {
		m := &o.Milestones[i]
		if m.IsAchieved {
			continue
		}
		if o.Goal.CurrentAmount.GreaterThanOrEqual(m.TargetAmount(o.Goal.TargetAmount)) {
			o.achieve(m, now)
		}
	}
}

func (o *Outcome) complete(now time.Time) {
	completedAt := now
	o.Goal.Status = model.GoalStatusCompleted
	o.Goal.IsActive = false
	o.Goal.CompletedAt = &completedAt
	o.Completed = true

	for i := range o.Milestones {
		if !o.Milestones[i].IsAchieved {
			o.achieve(&o.Milestones[i], now)
		}
	}
}

func (o *Outcome) achieve(m *model.GoalMilestone, now time.Time) {
	achievedAt := now
	m.IsAchieved = true
	m.AchievedAt = &achievedAt
	o.NewlyAchieved = append(o.NewlyAchieved, *m)
}

// ValidateNewGoal checks a goal before it is created.
func ValidateNewGoal(goal model.Goal, now time.Time) error {
	if goal.Name == "" {
		return common.NewValidationError("name", "is required")
	}
	if !goal.TargetAmount.IsPositive() {
		return common.NewValidationError("target_amount", "must be greater than zero")
	}
	if goal.CurrentAmount.IsNegative() {
		return common.NewValidationError("current_amount", "cannot be negative")
	}
	if goal.TargetDate.IsZero() {
		return common.NewValidationError("target_date", "is required")
	}
	if model.DayOf(goal.TargetDate).Before(model.DayOf(now)) {
		return common.NewValidationError("target_date", "cannot be in the past")
	}
	if goal.AutoContribute {
		if !goal.ContributionAmount.IsPositive() {
			return common.NewValidationError("contribution_amount", "must be greater than zero for automatic contributions")
		}
		if !goal.ContributionFrequency.Valid() {
			return common.NewValidationError("contribution_frequency", "is not a valid frequency")
		}
	}
	return nil
}

// ValidateMilestone checks a milestone before it is created.
func ValidateMilestone(m model.GoalMilestone) error {
	if m.Name == "" {
		return common.NewValidationError("name", "is required")
	}
	if !m.TargetPercentage.IsPositive() || m.TargetPercentage.GreaterThan(model.Hundred) {
		return common.NewValidationError("target_percentage", "must be greater than 0 and at most 100")
	}
	return nil
}

// NextAutoContribution returns when the next automatic contribution is due.
// A goal that has never auto-contributed is due immediately.
func NextAutoContribution(goal model.Goal) (time.Time, bool) {
	if goal.LastAutoContributionAt == nil {
		return time.Time{}, true
	}
	last := *goal.LastAutoContributionAt
	switch goal.ContributionFrequency {
	case model.FrequencyWeekly:
		return last.AddDate(0, 0, 7), true
	case model.FrequencyBiweekly:
		return last.AddDate(0, 0, 14), true
	case model.FrequencyMonthly:
		return last.AddDate(0, 1, 0), true
	case model.FrequencyQuarterly:
		return last.AddDate(0, 3, 0), true
	default:
		return time.Time{}, false
	}
}

// AutoContributionDue reports whether goal should receive an automatic
// contribution at now.
func AutoContributionDue(goal model.Goal, now time.Time) bool {
	if !goal.AutoContribute || goal.Status != model.GoalStatusActive || !goal.ContributionAmount.IsPositive() {
		return false
	}
	next, ok := NextAutoContribution(goal)
	if !ok {
		return false
	}
	return !now.Before(next)
}
