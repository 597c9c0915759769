package model

import "time"

// ChatRole is the author of a chat message.
type ChatRole string

// Chat roles.
const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// Conversation is a chat session between a user and the assistant.
type Conversation struct {
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages,omitempty"`
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	CreatedAt      time.Time `json:"created_at"`
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           ChatRole  `json:"role"`
	Content        string    `json:"content"`
}
