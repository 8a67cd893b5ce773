package inferenceports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role tags the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn represents one message exchanged in a conversation. Immutable once
// persisted; ordered by insertion within a conversation.
type Turn struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           Role
	Content        string
	SentimentScore *float64          // user turns only
	RiskScore      *float64          // user turns only
	Emotions       map[string]string // e.g. {"primary": "NEGATIVE"}
	CreatedAt      time.Time
}

// Conversation is the persistence-level conversation record.
type Conversation struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Title      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	IsArchived bool
}

// ErrConversationNotFound is returned when a conversation does not exist or
// does not belong to the requesting user.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationStore persists conversations and their turns.
type ConversationStore interface {
	CreateConversation(ctx context.Context, userID uuid.UUID, title string) (*Conversation, error)
	// GetConversation enforces ownership: a conversation belonging to another
	// user is reported as ErrConversationNotFound.
	GetConversation(ctx context.Context, conversationID, userID uuid.UUID) (*Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Conversation, error)
	DeleteConversation(ctx context.Context, conversationID, userID uuid.UUID) error

	// FetchHistory returns all turns of a conversation in ascending insertion order.
	FetchHistory(ctx context.Context, conversationID uuid.UUID) ([]Turn, error)
	// PersistTurn is append-only; insertion order is preserved for retrieval.
	PersistTurn(ctx context.Context, turn *Turn) error
	TouchConversation(ctx context.Context, conversationID uuid.UUID, at time.Time) error

	// ListUserTurnsSince returns the user's own turns across all conversations,
	// newest first, for analytics.
	ListUserTurnsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]Turn, error)
}
