package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/google/uuid"
)

const budgetColumns = `id, user_id, name, category_id, period, total_cents, start_date, end_date,
	alert_threshold, alert_enabled, alert_sent, is_active, status, created_at`

// CreateBudget inserts a budget. A missing end date is derived from the period.
func (q *queries) CreateBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(budget); err != nil {
		return err
	}
	if budget.ID == "" {
		budget.ID = uuid.NewString()
	}
	if budget.EndDate.IsZero() {
		budget.EndDate = budget.Period.EndFrom(budget.StartDate)
	}
	if budget.AlertThreshold == 0 {
		budget.AlertThreshold = model.DefaultAlertThreshold
	}
	if budget.Status == "" {
		budget.Status = model.BudgetStatusActive
	}
	if budget.CreatedAt.IsZero() {
		budget.CreatedAt = nowUTC()
	}
	if budget.EndDate.Before(budget.StartDate) {
		return common.NewValidationError("end_date", "must not be before start_date")
	}

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		budget.ID, budget.UserID, budget.Name, nullString(budget.CategoryID), string(budget.Period),
		model.Cents(budget.TotalAmount), budget.StartDate.UTC(), budget.EndDate.UTC(),
		budget.AlertThreshold, budget.AlertEnabled, budget.AlertSent, budget.IsActive,
		string(budget.Status), budget.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert budget: %w", err)
	}
	return nil
}

// GetBudget returns one of the user's budgets.
func (q *queries) GetBudget(ctx context.Context, userID, id string) (*model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	row := q.q.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND id = ?`, userID, id)
	b, err := scanBudget(row)
	if err != nil {
		return nil, notFound(err, "budget", id)
	}
	return b, nil
}

// ListBudgets returns the user's budgets, latest start first.
func (q *queries) ListBudgets(ctx context.Context, userID string) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? ORDER BY start_date DESC, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

// UpdateBudget saves a budget's mutable fields.
func (q *queries) UpdateBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(budget); err != nil {
		return err
	}
	res, err := q.q.ExecContext(ctx, `
		UPDATE budgets
		SET name = ?, category_id = ?, period = ?, total_cents = ?, start_date = ?, end_date = ?,
			alert_threshold = ?, alert_enabled = ?, alert_sent = ?, is_active = ?, status = ?
		WHERE user_id = ? AND id = ?`,
		budget.Name, nullString(budget.CategoryID), string(budget.Period), model.Cents(budget.TotalAmount),
		budget.StartDate.UTC(), budget.EndDate.UTC(), budget.AlertThreshold, budget.AlertEnabled,
		budget.AlertSent, budget.IsActive, string(budget.Status), budget.UserID, budget.ID)
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}
	return checkAffected(res, "budget", budget.ID)
}

// SetBudgetAlertSent records whether the current alert has been delivered.
func (q *queries) SetBudgetAlertSent(ctx context.Context, id string, sent bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	res, err := q.q.ExecContext(ctx, `UPDATE budgets SET alert_sent = ? WHERE id = ?`, sent, id)
	if err != nil {
		return fmt.Errorf("failed to update budget alert: %w", err)
	}
	return checkAffected(res, "budget", id)
}

// CreateAllocation inserts a per-category allocation of a budget.
func (q *queries) CreateAllocation(ctx context.Context, allocation *model.BudgetAllocation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if allocation == nil {
		return fmt.Errorf("%w: allocation", ErrNilParameter)
	}
	if err := validateString(allocation.BudgetID, "budget_id"); err != nil {
		return err
	}
	if allocation.CategoryID == "" {
		return common.NewValidationError("category_id", "is required")
	}
	if allocation.Amount.IsNegative() {
		return common.NewValidationError("allocated_amount", "cannot be negative")
	}
	if allocation.ID == "" {
		allocation.ID = uuid.NewString()
	}
	if allocation.AlertThreshold == 0 {
		allocation.AlertThreshold = model.DefaultAlertThreshold
	}

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO budget_allocations (id, budget_id, category_id, amount_cents, alert_threshold)
		VALUES (?, ?, ?, ?, ?)`,
		allocation.ID, allocation.BudgetID, allocation.CategoryID,
		model.Cents(allocation.Amount), allocation.AlertThreshold)
	if err != nil {
		return duplicate(err, "budget allocation")
	}
	return nil
}

// ListAllocations returns a budget's allocations.
func (q *queries) ListAllocations(ctx context.Context, budgetID string) ([]model.BudgetAllocation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, budget_id, category_id, amount_cents, alert_threshold
		FROM budget_allocations WHERE budget_id = ? ORDER BY category_id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var allocations []model.BudgetAllocation
	for rows.Next() {
		var (
			a     model.BudgetAllocation
			cents int64
		)
		if err := rows.Scan(&a.ID, &a.BudgetID, &a.CategoryID, &cents, &a.AlertThreshold); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		a.Amount = model.FromCents(cents)
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func validateBudget(b *model.Budget) error {
	if b == nil {
		return fmt.Errorf("%w: budget", ErrNilParameter)
	}
	if err := validateString(b.UserID, "user_id"); err != nil {
		return err
	}
	if strings.TrimSpace(b.Name) == "" {
		return common.NewValidationError("name", "is required")
	}
	if !b.Period.Valid() {
		return common.NewValidationError("period", fmt.Sprintf("unknown period %q", b.Period))
	}
	if b.TotalAmount.IsNegative() {
		return common.NewValidationError("total_amount", "cannot be negative")
	}
	if b.StartDate.IsZero() {
		return common.NewValidationError("start_date", "is required")
	}
	if b.AlertThreshold < 0 || b.AlertThreshold > 100 {
		return common.NewValidationError("alert_threshold", "must be between 0 and 100")
	}
	return nil
}

func scanBudget(s scanner) (*model.Budget, error) {
	var (
		b        model.Budget
		category sql.NullString
		period   string
		status   string
		cents    int64
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.Name, &category, &period, &cents, &b.StartDate, &b.EndDate,
		&b.AlertThreshold, &b.AlertEnabled, &b.AlertSent, &b.IsActive, &status, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.CategoryID = category.String
	b.Period = model.BudgetPeriod(period)
	b.Status = model.BudgetStatus(status)
	b.TotalAmount = model.FromCents(cents)
	return &b, nil
}
