// Package ingest implements the hook-side intake path: receive one event
// from the host's lifecycle hook, sanitize it, persist it, and enqueue the
// asynchronous work it triggers. It is deliberately thin and silent — every
// failure is logged and swallowed so the host never sees an error from a
// privacy-preserving background pipeline.
//
// Event types:
//
//	"message" (the only type currently recognized) — a single turn in a
//	conversation, role "user" (carrying prompt) or "assistant" (carrying
//	content). Unrecognized types are dropped without enqueuing work.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/convolog/convolog/internal/logging"
	"github.com/convolog/convolog/internal/queue"
	"github.com/convolog/convolog/internal/sanitize"
	"github.com/convolog/convolog/internal/store"
)

// Event is the JSON shape read from the hook's standard input, per the
// external hook transport contract.
type Event struct {
	Type           string `json:"type"`
	Role           string `json:"role"`
	Prompt         string `json:"prompt,omitempty"`
	Content        string `json:"content,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
}

// ErrInvalidInput marks an event that cannot be processed: unparseable
// shape, unknown role, or an empty payload for its role.
var ErrInvalidInput = errors.New("ingest: invalid input")

// Ingester is a short-lived unit of work invoked once per hook event.
type Ingester interface {
	// Handle resolves the conversation, sanitizes the content, persists one
	// message, and enqueues the jobs the message triggers.
	Handle(ctx context.Context, event Event) error
}

type ingester struct {
	store  store.Store
	queue  queue.Queue
	logger logging.Logger
}

// New builds an Ingester over a store and queue sharing the same database
// handle, and a logger for diagnostics.
func New(s store.Store, q queue.Queue, logger logging.Logger) Ingester {
	return &ingester{store: s, queue: q, logger: logger}
}

func (i *ingester) Handle(ctx context.Context, event Event) error {
	content, err := eventContent(event)
	if err != nil {
		_ = i.logger.LogIngestDropped(ctx, event.SessionID, err.Error())
		return err
	}

	now := time.Now().UTC()

	conv, err := i.resolveConversation(ctx, event, now)
	if err != nil {
		_ = i.logger.LogIngestDropped(ctx, event.SessionID, fmt.Sprintf("resolve conversation: %v", err))
		return fmt.Errorf("resolve conversation: %w", err)
	}

	result, err := sanitize.Sanitize(content)
	if err != nil {
		_ = i.logger.LogIngestDropped(ctx, event.SessionID, fmt.Sprintf("sanitize: %v", err))
		return fmt.Errorf("sanitize: %w", err)
	}

	msg, err := i.store.AppendMessage(ctx, conv.ID, event.Role, result.Sanitized, now)
	if err != nil {
		_ = i.logger.LogIngestDropped(ctx, event.SessionID, fmt.Sprintf("append message: %v", err))
		return fmt.Errorf("append message: %w", err)
	}

	if result.RedactionCount > 0 {
		_ = i.logger.LogSanitizationFinding(ctx, msg.ID, result.RedactionCount)
	}

	sanitizePayload, _ := json.Marshal(map[string]string{"message_id": msg.ID})
	if _, err := i.queue.Enqueue(ctx, queue.JobTypeSanitizeAsync, string(sanitizePayload), now); err != nil {
		return fmt.Errorf("enqueue sanitize_async: %w", err)
	}

	if event.Role == "assistant" {
		extractPayload, _ := json.Marshal(map[string]string{"conversation_id": conv.ID})
		if _, err := i.queue.Enqueue(ctx, queue.JobTypeExtractLearning, string(extractPayload), now); err != nil {
			return fmt.Errorf("enqueue extract_learning_ai: %w", err)
		}
	}

	return nil
}

func (i *ingester) resolveConversation(ctx context.Context, event Event, now time.Time) (*store.Conversation, error) {
	if event.ConversationID != "" {
		conv, err := i.store.GetConversation(ctx, event.ConversationID)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			return conv, nil
		}
	}
	return i.store.GetOrCreateConversationBySession(ctx, event.SessionID)
}

func eventContent(event Event) (string, error) {
	switch event.Role {
	case "user":
		if event.Prompt == "" {
			return "", fmt.Errorf("%w: user event missing prompt", ErrInvalidInput)
		}
		return event.Prompt, nil
	case "assistant":
		if event.Content == "" {
			return "", fmt.Errorf("%w: assistant event missing content", ErrInvalidInput)
		}
		return event.Content, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, event.Role)
	}
}
