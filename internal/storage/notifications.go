package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/finsight/internal/model"
	"github.com/google/uuid"
)

// CreateNotification stores a notification for a user.
func (q *queries) CreateNotification(ctx context.Context, n *model.Notification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("%w: notification", ErrNilParameter)
	}
	if err := validateString(n.UserID, "user_id"); err != nil {
		return err
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = nowUTC()
	}

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, event_type, entity_id, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Type), n.EntityID, n.Message, n.IsRead, n.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns the user's notifications, newest first.
func (q *queries) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	query := `SELECT id, user_id, event_type, entity_id, message, is_read, created_at
		FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Notification
	for rows.Next() {
		var (
			n   model.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.EntityID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = model.EventType(typ)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags one notification as read.
func (q *queries) MarkNotificationRead(ctx context.Context, userID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	res, err := q.q.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return checkAffected(res, "notification", id)
}
