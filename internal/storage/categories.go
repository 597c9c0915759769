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

const categoryColumns = `id, user_id, name, category_type, parent_id, created_at`

// CreateCategory inserts a category.
func (q *queries) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := q.validateCategory(ctx, category); err != nil {
		return err
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = nowUTC()
	}

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		category.ID, category.UserID, category.Name, string(category.Type),
		nullString(category.ParentID), category.CreatedAt.UTC())
	if err != nil {
		return duplicate(err, "category")
	}
	return nil
}

// GetCategory returns one of the user's categories.
func (q *queries) GetCategory(ctx context.Context, userID, id string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	row := q.q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	c, err := scanCategory(row)
	if err != nil {
		return nil, notFound(err, "category", id)
	}
	return c, nil
}

// ListCategories returns the user's categories ordered by name.
func (q *queries) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

// UpdateCategory renames or re-parents a category.
func (q *queries) UpdateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := q.validateCategory(ctx, category); err != nil {
		return err
	}
	res, err := q.q.ExecContext(ctx, `
		UPDATE categories SET name = ?, category_type = ?, parent_id = ?
		WHERE user_id = ? AND id = ?`,
		category.Name, string(category.Type), nullString(category.ParentID), category.UserID, category.ID)
	if err != nil {
		return duplicate(err, "category")
	}
	return checkAffected(res, "category", category.ID)
}

// DeleteCategory removes a category. Transactions keep no category.
func (q *queries) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	res, err := q.q.ExecContext(ctx, `DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return checkAffected(res, "category", id)
}

func (q *queries) validateCategory(ctx context.Context, category *model.Category) error {
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if err := validateString(category.UserID, "user_id"); err != nil {
		return err
	}
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return common.NewValidationError("name", "is required")
	}
	if !category.Type.Valid() {
		return common.NewValidationError("category_type", fmt.Sprintf("unknown type %q", category.Type))
	}
	if category.ParentID == "" {
		return nil
	}

	parents, err := q.categoryParents(ctx, category.UserID)
	if err != nil {
		return err
	}
	if _, ok := parents[category.ParentID]; !ok {
		return common.NotFoundError("category", category.ParentID)
	}
	if category.ID != "" && model.FormsCycle(category.ID, category.ParentID, parents) {
		return common.NewValidationError("parent_id", "would create a category cycle")
	}
	return nil
}

func (q *queries) categoryParents(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT id, parent_id FROM categories WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category parents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	parents := make(map[string]string)
	for rows.Next() {
		var (
			id     string
			parent sql.NullString
		)
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, fmt.Errorf("failed to scan category parent: %w", err)
		}
		parents[id] = parent.String
	}
	return parents, rows.Err()
}

func scanCategory(s scanner) (*model.Category, error) {
	var (
		c      model.Category
		typ    string
		parent sql.NullString
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &typ, &parent, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Type = model.CategoryType(typ)
	c.ParentID = parent.String
	return &c, nil
}
