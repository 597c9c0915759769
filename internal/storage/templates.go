package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/google/uuid"
)

const templateColumns = `id, user_id, name, description, goal_type, default_target_cents,
	suggested_duration_days, icon, is_system_template, usage_count, created_at`

// CreateGoalTemplate stores a template owned by a user.
func (q *queries) CreateGoalTemplate(ctx context.Context, t *model.GoalTemplate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("%w: goal template", ErrNilParameter)
	}
	if err := validateString(t.Name, "name"); err != nil {
		return err
	}
	if !t.DefaultTargetAmount.IsPositive() {
		return common.NewValidationError("default_target_amount", "must be positive")
	}
	if t.SuggestedDurationDays <= 0 {
		return common.NewValidationError("suggested_duration_days", "must be positive")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.GoalType == "" {
		t.GoalType = "savings"
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = nowUTC()
	}

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO goal_templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, nullString(t.UserID), t.Name, t.Description, t.GoalType, model.Cents(t.DefaultTargetAmount),
		t.SuggestedDurationDays, t.Icon, t.IsSystemTemplate, t.UsageCount, t.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert goal template: %w", err)
	}
	return nil
}

// GetGoalTemplate returns a system template or one the user owns.
func (q *queries) GetGoalTemplate(ctx context.Context, userID, id string) (*model.GoalTemplate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	row := q.q.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM goal_templates
		WHERE id = ? AND (is_system_template = 1 OR user_id = ?)`, id, userID)
	t, err := scanTemplate(row)
	if err != nil {
		return nil, notFound(err, "goal template", id)
	}
	return t, nil
}

// ListGoalTemplates returns the system templates and the user's own,
// system templates first.
func (q *queries) ListGoalTemplates(ctx context.Context, userID string) ([]model.GoalTemplate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx, `SELECT `+templateColumns+` FROM goal_templates
		WHERE is_system_template = 1 OR user_id = ?
		ORDER BY is_system_template DESC, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goal templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.GoalTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal template: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// IncrementTemplateUsage counts one more goal created from a template.
func (q *queries) IncrementTemplateUsage(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	res, err := q.q.ExecContext(ctx,
		`UPDATE goal_templates SET usage_count = usage_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to count template usage: %w", err)
	}
	return checkAffected(res, "goal template", id)
}

func scanTemplate(s scanner) (*model.GoalTemplate, error) {
	var (
		t      model.GoalTemplate
		userID sql.NullString
		target int64
	)
	if err := s.Scan(&t.ID, &userID, &t.Name, &t.Description, &t.GoalType, &target,
		&t.SuggestedDurationDays, &t.Icon, &t.IsSystemTemplate, &t.UsageCount, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.UserID = userID.String
	t.DefaultTargetAmount = model.FromCents(target)
	return &t, nil
}
