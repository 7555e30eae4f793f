package store

import (
	"context"
	"database/sql"
	"time"
)

// Store is the persistence interface for the conversation capture pipeline.
// Implementations own the lifecycle of the underlying database handle.
//
// Job queue operations are deliberately not part of this interface: the
// job_queue table is created here (schema ownership is centralized), but
// internal/queue owns its read-modify-write semantics. Callers that need a
// queue construct one over this store's DB handle.
type Store interface {
	ConversationStore
	SanitizationLogStore
	LearningStore

	// DB returns the underlying database handle, for constructing a
	// internal/queue.Queue over the same connection pool.
	DB() *sql.DB

	// Close releases database resources.
	Close() error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
}

// ─── Conversation store ───────────────────────────────────────────────────────

// Conversation is a persisted conversation session.
type Conversation struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single sanitized message in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // user | assistant
	Content        string    `json:"content"`
	Sequence       int       `json:"sequence"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	// GetOrCreateConversationBySession returns the conversation for a given
	// host session id, creating one if none exists yet.
	GetOrCreateConversationBySession(ctx context.Context, sessionID string) (*Conversation, error)

	// GetConversation retrieves a conversation by ID.
	GetConversation(ctx context.Context, id string) (*Conversation, error)

	// TouchConversation bumps updated_at to now.
	TouchConversation(ctx context.Context, id string, now time.Time) error

	// AppendMessage inserts a message, assigning the next sequence number
	// within the conversation. Returns the assigned message with its
	// sequence filled in.
	AppendMessage(ctx context.Context, conversationID, role, content string, now time.Time) (*Message, error)

	// GetMessages returns messages for a conversation, ordered by sequence.
	GetMessages(ctx context.Context, conversationID string) ([]*Message, error)

	// GetMessage retrieves a single message by ID.
	GetMessage(ctx context.Context, id string) (*Message, error)
}

// ─── Sanitization log store ───────────────────────────────────────────────────

// SanitizationLogEntry records residual PII the async validator found in an
// already-sanitized message.
type SanitizationLogEntry struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	Issues    string    `json:"issues"` // JSON-encoded array
	CreatedAt time.Time `json:"created_at"`
}

// SanitizationLogStore persists audit findings from the async validator.
type SanitizationLogStore interface {
	// AppendSanitizationLog stores a validator finding. Append-only.
	AppendSanitizationLog(ctx context.Context, messageID, issues string, now time.Time) (*SanitizationLogEntry, error)

	// GetSanitizationLogsForMessage returns all findings for a message.
	GetSanitizationLogsForMessage(ctx context.Context, messageID string) ([]*SanitizationLogEntry, error)
}

// ─── Learning store ───────────────────────────────────────────────────────────

// Learning is a short, sanitized derived artifact extracted from a conversation.
type Learning struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Category       string    `json:"category"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// LearningStore persists and serves extracted learnings. Append-only.
type LearningStore interface {
	// AppendLearning inserts a new learning.
	AppendLearning(ctx context.Context, conversationID, category, title, content string, now time.Time) (*Learning, error)

	// GetLearning retrieves a learning by ID. Returns nil, nil if absent.
	GetLearning(ctx context.Context, id string) (*Learning, error)

	// SearchLearnings performs a case-sensitive substring search over title
	// and content, ORed, ordered by created_at descending, limited to limit
	// rows (caller is responsible for clamping limit to [1, 50]).
	SearchLearnings(ctx context.Context, query string, limit int) ([]*Learning, error)
}
