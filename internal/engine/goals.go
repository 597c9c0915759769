package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/progress"
	"github.com/Veraticus/finsight/internal/service"
	"github.com/shopspring/decimal"
)

// CreateGoal validates and stores a new goal.
func (e *Engine) CreateGoal(ctx context.Context, g *model.Goal) error {
	if err := progress.ValidateNewGoal(*g, e.now()); err != nil {
		return err
	}
	g.Status = model.GoalStatusActive
	g.IsActive = true
	return e.store.CreateGoal(ctx, g)
}

// AddMilestone attaches a milestone to a goal the user owns. A milestone
// already covered by the goal's progress is marked achieved immediately.
func (e *Engine) AddMilestone(ctx context.Context, userID string, m *model.GoalMilestone) error {
	if err := progress.ValidateMilestone(*m); err != nil {
		return err
	}
	g, err := e.store.GetGoal(ctx, userID, m.GoalID)
	if err != nil {
		return err
	}
	if g.CurrentAmount.GreaterThanOrEqual(m.TargetAmount(g.TargetAmount)) {
		at := e.now()
		m.IsAchieved = true
		m.AchievedAt = &at
	}
	return e.store.CreateMilestone(ctx, m)
}

// GoalDetail is a goal with its milestones and contribution ledger.
type GoalDetail struct {
	Progress      model.GoalProgress       `json:"progress"`
	Milestones    []model.GoalMilestone    `json:"milestones"`
	Contributions []model.GoalContribution `json:"contributions"`
}

// Goal loads a goal with its milestones and contributions.
func (e *Engine) Goal(ctx context.Context, userID, goalID string) (*GoalDetail, error) {
	g, err := e.store.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	milestones, err := e.store.ListMilestones(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	contributions, err := e.store.ListContributions(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	return &GoalDetail{
		Progress:      model.NewGoalProgress(*g),
		Milestones:    milestones,
		Contributions: contributions,
	}, nil
}

// Contribute adds money to a goal. The contribution, goal total, newly
// achieved milestones and completion are committed together.
func (e *Engine) Contribute(ctx context.Context, userID, goalID string, amount decimal.Decimal, note string) (progress.Outcome, error) {
	var out progress.Outcome
	err := e.inTx(ctx, func(tx service.Transaction, events *[]model.Event) error {
		g, err := tx.GetGoal(ctx, userID, goalID)
		if err != nil {
			return err
		}
		out, err = e.contribute(ctx, tx, *g, amount, note, model.ContributionManual, events)
		return err
	})
	return out, err
}

func (e *Engine) contribute(ctx context.Context, tx service.Transaction, g model.Goal, amount decimal.Decimal, note string, source model.ContributionSource, events *[]model.Event) (progress.Outcome, error) {
	milestones, err := tx.ListMilestones(ctx, g.ID)
	if err != nil {
		return progress.Outcome{}, fmt.Errorf("failed to list milestones: %w", err)
	}
	now := e.now()
	out, err := progress.AddContribution(g, milestones, amount, note, source, now)
	if err != nil {
		return progress.Outcome{}, err
	}
	if source == model.ContributionAuto {
		out.Goal.LastAutoContributionAt = &now
	}
	if err := tx.AddContribution(ctx, out.Contribution); err != nil {
		return progress.Outcome{}, err
	}
	if err := e.saveOutcome(ctx, tx, out, events); err != nil {
		return progress.Outcome{}, err
	}
	return out, nil
}

// SetGoalStatus pauses, resumes or cancels a goal. Resuming a goal whose
// target was reached while paused completes it.
func (e *Engine) SetGoalStatus(ctx context.Context, userID, goalID string, to model.GoalStatus) (progress.Outcome, error) {
	var out progress.Outcome
	err := e.inTx(ctx, func(tx service.Transaction, events *[]model.Event) error {
		g, err := tx.GetGoal(ctx, userID, goalID)
		if err != nil {
			return err
		}
		milestones, err := tx.ListMilestones(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("failed to list milestones: %w", err)
		}
		out, err = progress.Transition(*g, milestones, to, e.now())
		if err != nil {
			return err
		}
		return e.saveOutcome(ctx, tx, out, events)
	})
	return out, err
}

// saveOutcome persists the goal and any milestones that flipped, and
// queues their events.
func (e *Engine) saveOutcome(ctx context.Context, tx service.Transaction, out progress.Outcome, events *[]model.Event) error {
	if err := tx.UpdateGoal(ctx, &out.Goal); err != nil {
		return err
	}
	now := e.now()
	for i := range out.NewlyAchieved {
		m := out.NewlyAchieved[i]
		if err := tx.UpdateMilestone(ctx, &m); err != nil {
			return err
		}
		*events = append(*events, model.Event{
			OccurredAt: now,
			Type:       model.EventMilestoneAchieved,
			UserID:     out.Goal.UserID,
			EntityID:   m.ID,
			Message:    fmt.Sprintf("Milestone %q reached on goal %q", m.Name, out.Goal.Name),
		})
	}
	if out.Completed {
		*events = append(*events, model.Event{
			OccurredAt: now,
			Type:       model.EventGoalCompleted,
			UserID:     out.Goal.UserID,
			EntityID:   out.Goal.ID,
			Message:    fmt.Sprintf("Goal %q completed at %s", out.Goal.Name, out.Goal.CurrentAmount.StringFixed(2)),
		})
	}
	return nil
}

// RunAutoContributions makes every automatic contribution that is due.
// Each goal is committed on its own; a failing goal is logged and skipped.
func (e *Engine) RunAutoContributions(ctx context.Context) (int, error) {
	goals, err := e.store.ListAutoContributeGoals(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list auto-contribute goals: %w", err)
	}

	now := e.now()
	made := 0
	for _, g := range goals {
		if ctx.Err() != nil {
			return made, ctx.Err()
		}
		if !progress.AutoContributionDue(g, now) {
			continue
		}
		contributed := false
		err := e.inTx(ctx, func(tx service.Transaction, events *[]model.Event) error {
			// The listed copy may be stale by now.
			fresh, err := tx.GetGoal(ctx, g.UserID, g.ID)
			if err != nil {
				return err
			}
			if !progress.AutoContributionDue(*fresh, now) {
				return nil
			}
			if _, err := e.contribute(ctx, tx, *fresh, fresh.ContributionAmount, "automatic contribution", model.ContributionAuto, events); err != nil {
				return err
			}
			contributed = true
			return nil
		})
		if err != nil {
			e.logger.Error("failed to auto-contribute", "goal_id", g.ID, "user_id", g.UserID, "error", err)
			continue
		}
		if contributed {
			made++
		}
	}

	e.logger.Info("auto-contributions complete", "due_goals", len(goals), "made", made)
	return made, nil
}

// GoalTemplates lists the system templates and the user's own.
func (e *Engine) GoalTemplates(ctx context.Context, userID string) ([]model.GoalTemplate, error) {
	return e.store.ListGoalTemplates(ctx, userID)
}

// CreateGoalTemplate stores a template owned by t.UserID.
func (e *Engine) CreateGoalTemplate(ctx context.Context, t *model.GoalTemplate) error {
	t.IsSystemTemplate = false
	t.UsageCount = 0
	return e.store.CreateGoalTemplate(ctx, t)
}

// TemplateOverrides replaces template defaults when set.
type TemplateOverrides struct {
	TargetDate   time.Time
	TargetAmount decimal.Decimal
	Name         string
	Description  string
}

// CreateGoalFromTemplate creates a goal prefilled from a template and
// counts the use. Without a target date the template's suggested duration
// from today is used.
func (e *Engine) CreateGoalFromTemplate(ctx context.Context, userID, templateID string, o TemplateOverrides) (*model.Goal, error) {
	var g *model.Goal
	err := e.inTx(ctx, func(tx service.Transaction, _ *[]model.Event) error {
		t, err := tx.GetGoalTemplate(ctx, userID, templateID)
		if err != nil {
			return err
		}
		now := e.now()
		g = &model.Goal{
			UserID:       userID,
			Name:         t.Name,
			Description:  t.Description,
			GoalType:     t.GoalType,
			TargetAmount: t.DefaultTargetAmount,
			TargetDate:   now.AddDate(0, 0, t.SuggestedDurationDays),
			Status:       model.GoalStatusActive,
			IsActive:     true,
		}
		if o.Name != "" {
			g.Name = o.Name
		}
		if o.Description != "" {
			g.Description = o.Description
		}
		if !o.TargetAmount.IsZero() {
			g.TargetAmount = o.TargetAmount
		}
		if !o.TargetDate.IsZero() {
			g.TargetDate = o.TargetDate
		}
		if err := progress.ValidateNewGoal(*g, now); err != nil {
			return err
		}
		if err := tx.CreateGoal(ctx, g); err != nil {
			return err
		}
		return tx.IncrementTemplateUsage(ctx, t.ID)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}
