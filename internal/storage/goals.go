package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const goalColumns = `id, user_id, name, description, goal_type, target_cents, current_cents, target_date,
	status, is_active, auto_contribute, contribution_cents, contribution_frequency,
	last_auto_contribution_at, completed_at, created_at`

// CreateGoal inserts a goal.
func (q *queries) CreateGoal(ctx context.Context, goal *model.Goal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateGoal(goal); err != nil {
		return err
	}
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	if goal.Status == "" {
		goal.Status = model.GoalStatusActive
		goal.IsActive = true
	}
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = nowUTC()
	}

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		goal.ID, goal.UserID, goal.Name, goal.Description, goal.GoalType,
		model.Cents(goal.TargetAmount), model.Cents(goal.CurrentAmount), goal.TargetDate.UTC(),
		string(goal.Status), goal.IsActive, goal.AutoContribute, model.Cents(goal.ContributionAmount),
		string(goal.ContributionFrequency), nullTime(goal.LastAutoContributionAt),
		nullTime(goal.CompletedAt), goal.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}
	return nil
}

// GetGoal returns one of the user's goals.
func (q *queries) GetGoal(ctx context.Context, userID, id string) (*model.Goal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	row := q.q.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? AND id = ?`, userID, id)
	g, err := scanGoal(row)
	if err != nil {
		return nil, notFound(err, "goal", id)
	}
	return g, nil
}

// ListGoals returns the user's goals ordered by target date.
func (q *queries) ListGoals(ctx context.Context, userID string) ([]model.Goal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return q.listGoals(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY target_date, name`, userID)
}

// ListAutoContributeGoals returns active goals with automatic contributions enabled.
func (q *queries) ListAutoContributeGoals(ctx context.Context) ([]model.Goal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return q.listGoals(ctx,
		`SELECT `+goalColumns+` FROM goals
		WHERE auto_contribute = 1 AND status = 'active' AND contribution_cents > 0
		ORDER BY user_id, created_at`)
}

func (q *queries) listGoals(ctx context.Context, query string, args ...any) ([]model.Goal, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var goals []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// UpdateGoal saves a goal's mutable fields.
func (q *queries) UpdateGoal(ctx context.Context, goal *model.Goal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateGoal(goal); err != nil {
		return err
	}
	res, err := q.q.ExecContext(ctx, `
		UPDATE goals
		SET name = ?, description = ?, goal_type = ?, target_cents = ?, current_cents = ?,
			target_date = ?, status = ?, is_active = ?, auto_contribute = ?, contribution_cents = ?,
			contribution_frequency = ?, last_auto_contribution_at = ?, completed_at = ?
		WHERE user_id = ? AND id = ?`,
		goal.Name, goal.Description, goal.GoalType, model.Cents(goal.TargetAmount),
		model.Cents(goal.CurrentAmount), goal.TargetDate.UTC(), string(goal.Status), goal.IsActive,
		goal.AutoContribute, model.Cents(goal.ContributionAmount), string(goal.ContributionFrequency),
		nullTime(goal.LastAutoContributionAt), nullTime(goal.CompletedAt), goal.UserID, goal.ID)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return checkAffected(res, "goal", goal.ID)
}

// AddContribution appends a ledger entry. The goal's running total is
// saved separately through UpdateGoal.
func (q *queries) AddContribution(ctx context.Context, contribution *model.GoalContribution) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if contribution == nil {
		return fmt.Errorf("%w: contribution", ErrNilParameter)
	}
	if err := validateString(contribution.GoalID, "goal_id"); err != nil {
		return err
	}
	if !contribution.Amount.IsPositive() {
		return common.NewValidationError("amount", "must be positive")
	}
	if contribution.ID == "" {
		contribution.ID = uuid.NewString()
	}
	if contribution.Source == "" {
		contribution.Source = model.ContributionManual
	}
	if contribution.CreatedAt.IsZero() {
		contribution.CreatedAt = nowUTC()
	}

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO goal_contributions (id, goal_id, amount_cents, description, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		contribution.ID, contribution.GoalID, model.Cents(contribution.Amount),
		contribution.Description, string(contribution.Source), contribution.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert contribution: %w", err)
	}
	return nil
}

// ListContributions returns a goal's contributions, oldest first.
func (q *queries) ListContributions(ctx context.Context, goalID string) ([]model.GoalContribution, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, goal_id, amount_cents, description, source, created_at
		FROM goal_contributions WHERE goal_id = ? ORDER BY created_at, id`, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contributions []model.GoalContribution
	for rows.Next() {
		var (
			c      model.GoalContribution
			cents  int64
			source string
		)
		if err := rows.Scan(&c.ID, &c.GoalID, &cents, &c.Description, &source, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		c.Amount = model.FromCents(cents)
		c.Source = model.ContributionSource(source)
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

// CreateMilestone inserts a milestone for a goal.
func (q *queries) CreateMilestone(ctx context.Context, milestone *model.GoalMilestone) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if milestone == nil {
		return fmt.Errorf("%w: milestone", ErrNilParameter)
	}
	if err := validateString(milestone.GoalID, "goal_id"); err != nil {
		return err
	}
	if milestone.ID == "" {
		milestone.ID = uuid.NewString()
	}

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO goal_milestones (id, goal_id, name, target_percentage, is_achieved, achieved_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		milestone.ID, milestone.GoalID, milestone.Name, milestone.TargetPercentage.String(),
		milestone.IsAchieved, nullTime(milestone.AchievedAt))
	if err != nil {
		return fmt.Errorf("failed to insert milestone: %w", err)
	}
	return nil
}

// ListMilestones returns a goal's milestones in ascending target order.
func (q *queries) ListMilestones(ctx context.Context, goalID string) ([]model.GoalMilestone, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, goal_id, name, target_percentage, is_achieved, achieved_at
		FROM goal_milestones WHERE goal_id = ? ORDER BY CAST(target_percentage AS REAL), name`, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query milestones: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var milestones []model.GoalMilestone
	for rows.Next() {
		var (
			m          model.GoalMilestone
			percentage string
			achievedAt sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.GoalID, &m.Name, &percentage, &m.IsAchieved, &achievedAt); err != nil {
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		pct, err := decimal.NewFromString(percentage)
		if err != nil {
			return nil, fmt.Errorf("milestone %s has invalid target percentage %q: %w", m.ID, percentage, err)
		}
		m.TargetPercentage = pct
		m.AchievedAt = timePtr(achievedAt)
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

// UpdateMilestone saves a milestone's achievement state.
func (q *queries) UpdateMilestone(ctx context.Context, milestone *model.GoalMilestone) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if milestone == nil {
		return fmt.Errorf("%w: milestone", ErrNilParameter)
	}
	res, err := q.q.ExecContext(ctx, `
		UPDATE goal_milestones SET name = ?, target_percentage = ?, is_achieved = ?, achieved_at = ?
		WHERE id = ?`,
		milestone.Name, milestone.TargetPercentage.String(), milestone.IsAchieved,
		nullTime(milestone.AchievedAt), milestone.ID)
	if err != nil {
		return fmt.Errorf("failed to update milestone: %w", err)
	}
	return checkAffected(res, "milestone", milestone.ID)
}

func validateGoal(g *model.Goal) error {
	if g == nil {
		return fmt.Errorf("%w: goal", ErrNilParameter)
	}
	if err := validateString(g.UserID, "user_id"); err != nil {
		return err
	}
	if strings.TrimSpace(g.Name) == "" {
		return common.NewValidationError("name", "is required")
	}
	if !g.TargetAmount.IsPositive() {
		return common.NewValidationError("target_amount", "must be positive")
	}
	if g.CurrentAmount.IsNegative() {
		return common.NewValidationError("current_amount", "cannot be negative")
	}
	return nil
}

func scanGoal(s scanner) (*model.Goal, error) {
	var (
		g           model.Goal
		target      int64
		current     int64
		contrib     int64
		status      string
		frequency   string
		lastAuto    sql.NullTime
		completedAt sql.NullTime
	)
	if err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &g.GoalType, &target, &current,
		&g.TargetDate, &status, &g.IsActive, &g.AutoContribute, &contrib, &frequency,
		&lastAuto, &completedAt, &g.CreatedAt); err != nil {
		return nil, err
	}
	g.TargetAmount = model.FromCents(target)
	g.CurrentAmount = model.FromCents(current)
	g.ContributionAmount = model.FromCents(contrib)
	g.Status = model.GoalStatus(status)
	g.ContributionFrequency = model.ContributionFrequency(frequency)
	g.LastAutoContributionAt = timePtr(lastAuto)
	g.CompletedAt = timePtr(completedAt)
	return &g, nil
}
