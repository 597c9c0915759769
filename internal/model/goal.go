package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

// Goal statuses.
const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusPaused    GoalStatus = "paused"
	GoalStatusCancelled GoalStatus = "cancelled"
)

// ContributionFrequency is how often an automatic contribution is made.
type ContributionFrequency string

// Contribution frequencies.
const (
	FrequencyWeekly    ContributionFrequency = "weekly"
	FrequencyBiweekly  ContributionFrequency = "biweekly"
	FrequencyMonthly   ContributionFrequency = "monthly"
	FrequencyQuarterly ContributionFrequency = "quarterly"
)

// Valid reports whether f is a known frequency.
func (f ContributionFrequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly:
		return true
	}
	return false
}

// ContributionSource records who made a contribution.
type ContributionSource string

// Contribution sources.
const (
	ContributionManual ContributionSource = "manual"
	ContributionAuto   ContributionSource = "auto"
)

// Goal is a savings target.
type Goal struct {
	TargetDate             time.Time             `json:"target_date"`
	CreatedAt              time.Time             `json:"created_at"`
	LastAutoContributionAt *time.Time            `json:"last_auto_contribution_at,omitempty"`
	CompletedAt            *time.Time            `json:"completed_at,omitempty"`
	TargetAmount           decimal.Decimal       `json:"target_amount"`
	CurrentAmount          decimal.Decimal       `json:"current_amount"`
	ContributionAmount     decimal.Decimal       `json:"contribution_amount"`
	ID                     string                `json:"id"`
	UserID                 string                `json:"user_id"`
	Name                   string                `json:"name"`
	Description            string                `json:"description,omitempty"`
	GoalType               string                `json:"goal_type"`
	Status                 GoalStatus            `json:"status"`
	ContributionFrequency  ContributionFrequency `json:"contribution_frequency,omitempty"`
	IsActive               bool                  `json:"is_active"`
	AutoContribute         bool                  `json:"auto_contribute"`
}

// ProgressPercentage returns current/target*100, capped at 100.
func (g *Goal) ProgressPercentage() float64 {
	pct := Percent(g.CurrentAmount, g.TargetAmount)
	if pct > 100 {
		return 100
	}
	return pct
}

// RemainingAmount returns how much is still needed, never negative.
func (g *Goal) RemainingAmount() decimal.Decimal {
	remaining := g.TargetAmount.Sub(g.CurrentAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// GoalContribution is an append-only ledger entry against a goal.
type GoalContribution struct {
	CreatedAt   time.Time          `json:"created_at"`
	Amount      decimal.Decimal    `json:"amount"`
	ID          string             `json:"id"`
	GoalID      string             `json:"goal_id"`
	Description string             `json:"description,omitempty"`
	Source      ContributionSource `json:"source"`
}

// GoalMilestone is reached when a goal's current amount crosses
// TargetPercentage of its target.
type GoalMilestone struct {
	AchievedAt       *time.Time      `json:"achieved_at,omitempty"`
	TargetPercentage decimal.Decimal `json:"target_percentage"`
	ID               string          `json:"id"`
	GoalID           string          `json:"goal_id"`
	Name             string          `json:"name"`
	IsAchieved       bool            `json:"is_achieved"`
}

// TargetAmount returns the amount at which the milestone is reached.
func (m *GoalMilestone) TargetAmount(goalTarget decimal.Decimal) decimal.Decimal {
	return goalTarget.Mul(m.TargetPercentage).Div(Hundred)
}

// GoalProgress is a goal with its derived figures, used in reports and
// financial context.
type GoalProgress struct {
	Goal               Goal            `json:"goal"`
	Remaining          decimal.Decimal `json:"remaining_amount"`
	ProgressPercentage float64         `json:"progress_percentage"`
}

// NewGoalProgress derives progress figures for g.
func NewGoalProgress(g Goal) GoalProgress {
	return GoalProgress{
		Goal:               g,
		Remaining:          g.RemainingAmount(),
		ProgressPercentage: g.ProgressPercentage(),
	}
}

// GoalTemplate prefills a new goal. System templates have no owner and are
// offered to every user.
type GoalTemplate struct {
	CreatedAt             time.Time       `json:"created_at"`
	DefaultTargetAmount   decimal.Decimal `json:"default_target_amount"`
	ID                    string          `json:"id"`
	UserID                string          `json:"user_id,omitempty"`
	Name                  string          `json:"name"`
	Description           string          `json:"description,omitempty"`
	GoalType              string          `json:"goal_type"`
	Icon                  string          `json:"icon,omitempty"`
	SuggestedDurationDays int             `json:"suggested_duration_days"`
	UsageCount            int             `json:"usage_count"`
	IsSystemTemplate      bool            `json:"is_system_template"`
}
