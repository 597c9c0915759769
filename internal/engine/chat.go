package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/service"
)

const (
	// ChatHistoryTurns is how many earlier messages a responder sees.
	ChatHistoryTurns = 10
	// ChatHistoryConversations is how many conversations ChatHistory
	// returns by default.
	ChatHistoryConversations = 10
)

// Responder answers a chat message given the earlier turns of its
// conversation, oldest first.
type Responder interface {
	Chat(ctx context.Context, message string, history []model.ChatMessage, fc *model.FinancialContext) string
}

// ChatTurn is one exchange of a conversation.
type ChatTurn struct {
	ConversationID string            `json:"conversation_id"`
	UserMessage    model.ChatMessage `json:"user_message"`
	Reply          model.ChatMessage `json:"ai_response"`
}

// Chat answers message within a conversation and stores both sides of the
// exchange. An empty or unknown conversation id starts a new conversation.
// The responder runs outside any database transaction.
func (e *Engine) Chat(ctx context.Context, userID, conversationID, message string, r Responder) (*ChatTurn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, common.NewValidationError("message", "is required")
	}

	conv, history, err := e.openConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	fc, err := e.FinancialContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	reply := r.Chat(ctx, message, history, fc)

	turn := &ChatTurn{}
	err = e.inTx(ctx, func(tx service.Transaction, _ *[]model.Event) error {
		now := e.now()
		if conv.ID == "" {
			conv.CreatedAt, conv.UpdatedAt = now, now
			if err := tx.CreateConversation(ctx, conv); err != nil {
				return err
			}
		}
		turn.ConversationID = conv.ID
		turn.UserMessage = model.ChatMessage{ConversationID: conv.ID, Role: model.ChatRoleUser, Content: message, CreatedAt: now}
		turn.Reply = model.ChatMessage{ConversationID: conv.ID, Role: model.ChatRoleAssistant, Content: reply, CreatedAt: now}
		if err := tx.AddChatMessage(ctx, &turn.UserMessage); err != nil {
			return err
		}
		if err := tx.AddChatMessage(ctx, &turn.Reply); err != nil {
			return err
		}
		conv.UpdatedAt = now
		return tx.UpdateConversation(ctx, conv)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save chat turn: %w", err)
	}
	e.logger.Debug("chat turn saved", "user_id", userID, "conversation_id", conv.ID, "history", len(history))
	return turn, nil
}

// openConversation loads a conversation and its recent turns, or returns an
// unsaved conversation when id is empty or unknown.
func (e *Engine) openConversation(ctx context.Context, userID, id string) (*model.Conversation, []model.ChatMessage, error) {
	if id != "" {
		conv, err := e.store.GetConversation(ctx, userID, id)
		switch {
		case err == nil:
			history, err := e.store.ListChatMessages(ctx, conv.ID, ChatHistoryTurns)
			if err != nil {
				return nil, nil, err
			}
			return conv, history, nil
		case !errors.Is(err, common.ErrNotFound):
			return nil, nil, err
		}
		e.logger.Info("unknown conversation, starting a new one", "user_id", userID, "conversation_id", id)
	}
	return &model.Conversation{UserID: userID, Title: "New Chat Session"}, nil, nil
}

// ChatHistory returns the user's most recently active conversations with
// their messages. A non-positive limit uses ChatHistoryConversations.
func (e *Engine) ChatHistory(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	if limit <= 0 {
		limit = ChatHistoryConversations
	}
	convs, err := e.store.ListConversations(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		msgs, err := e.store.ListChatMessages(ctx, convs[i].ID, 0)
		if err != nil {
			return nil, err
		}
		convs[i].Messages = msgs
	}
	return convs, nil
}
