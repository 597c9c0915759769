package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/finsight/internal/model"
	"github.com/google/uuid"
)

// CreateConversation starts a conversation for a user.
func (q *queries) CreateConversation(ctx context.Context, c *model.Conversation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: conversation", ErrNilParameter)
	}
	if err := validateString(c.UserID, "user_id"); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = nowUTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO ai_conversations (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Title, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// GetConversation returns one of the user's conversations without its
// messages.
func (q *queries) GetConversation(ctx context.Context, userID, id string) (*model.Conversation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	var c model.Conversation
	err := q.q.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM ai_conversations WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "conversation", id)
	}
	return &c, nil
}

// ListConversations returns the user's conversations, most recently active
// first. A limit of zero returns all of them.
func (q *queries) ListConversations(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	query := `SELECT id, user_id, title, created_at, updated_at
		FROM ai_conversations WHERE user_id = ? ORDER BY updated_at DESC, created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateConversation stores the title and activity time.
func (q *queries) UpdateConversation(ctx context.Context, c *model.Conversation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: conversation", ErrNilParameter)
	}
	res, err := q.q.ExecContext(ctx,
		`UPDATE ai_conversations SET title = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		c.Title, c.UpdatedAt.UTC(), c.UserID, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return checkAffected(res, "conversation", c.ID)
}

// AddChatMessage appends a message to a conversation.
func (q *queries) AddChatMessage(ctx context.Context, m *model.ChatMessage) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%w: chat message", ErrNilParameter)
	}
	if err := validateString(m.ConversationID, "conversation_id"); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = nowUTC()
	}

	// seq keeps turns ordered when two share a timestamp.
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO ai_messages (id, conversation_id, role, content, seq, created_at)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM ai_messages WHERE conversation_id = ?), ?)`,
		m.ID, m.ConversationID, string(m.Role), m.Content, m.ConversationID, m.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// ListChatMessages returns the last limit messages of a conversation in the
// order they were written. A limit of zero returns all of them.
func (q *queries) ListChatMessages(ctx context.Context, conversationID string, limit int) ([]model.ChatMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	query := `SELECT id, conversation_id, role, content, created_at
		FROM ai_messages WHERE conversation_id = ? ORDER BY seq DESC`
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ChatMessage
	for rows.Next() {
		var (
			m    model.ChatMessage
			role string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.Role = model.ChatRole(role)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
