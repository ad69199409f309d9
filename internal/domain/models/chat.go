package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the three known values.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Conversation is a chat session. TokenCount is the running sum of the
// token costs of all stored messages; it is maintained incrementally by
// the append-message write path and is never recomputed from scratch on
// the fast path, so every message insert MUST go through that path.
type Conversation struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Title        string     `json:"title"`
	TokenCount   int        `json:"token_count"`
	MessageCount int        `json:"message_count"`
	// Summary holds compressed prose covering messages up to and
	// including SummarizedUpToID. Written only by the history manager.
	Summary          *string   `json:"summary,omitempty"`
	SummarizedUpToID int64     `json:"summarized_up_to_id"`
	LastActive       time.Time `json:"last_active"`
	CreatedAt        time.Time `json:"created_at"`
}

// Message is a stored conversation message. IDs are monotonically
// increasing and orderable. Messages are immutable once written and
// belong to exactly one conversation.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Model          *string   `json:"model,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PromptMessage is the role+content pair sent to the completion
// provider. History assembly and token accounting operate on these.
type PromptMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt converts a stored message to its provider representation.
func (m *Message) Prompt() PromptMessage {
	return PromptMessage{Role: m.Role, Content: m.Content}
}
