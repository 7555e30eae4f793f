// Package worker implements the drain-loop runtime shared by both
// asynchronous job types: claim, dispatch to a type-specific Processor,
// then complete or fail with cooperative backoff. Two Processor
// implementations are provided — one for sanitize_async (internal/validator),
// one for extract_learning_ai (internal/extractor) — so spec's "two
// runtimes" become one Runtime type parameterized by Processor, matching
// cmd/worker's single binary with a --type flag.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/convolog/convolog/internal/queue"
	"github.com/convolog/convolog/internal/store"
	"github.com/convolog/convolog/internal/validator"
)

// Processor executes the work a single job type requires. It never
// transitions the job's queue state itself — that's the Runtime's job —
// so a Processor's only failure mode is returning a non-nil error.
type Processor interface {
	// JobType is the queue.JobType this processor drains.
	JobType() string

	// Process performs the job's work. The job's payload has already been
	// claimed; Process must not assume exclusivity beyond the current call.
	Process(ctx context.Context, job *queue.Job) error
}

// sanitizeAsyncPayload is the opaque JSON payload of a sanitize_async job.
type sanitizeAsyncPayload struct {
	MessageID string `json:"message_id"`
}

// SanitizeProcessor implements Processor for spec.md's async validator: it
// loads the referenced message's sanitized content, submits it to a
// Validator, and appends a sanitization_log row when residual PII survives.
// The message row itself is never modified.
type SanitizeProcessor struct {
	Store     store.Store
	Validator validator.Validator
}

func (p *SanitizeProcessor) JobType() string { return queue.JobTypeSanitizeAsync }

func (p *SanitizeProcessor) Process(ctx context.Context, job *queue.Job) error {
	var payload sanitizeAsyncPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		return fmt.Errorf("decode sanitize_async payload: %w", err)
	}

	msg, err := p.Store.GetMessage(ctx, payload.MessageID)
	if err != nil {
		return fmt.Errorf("load message %s: %w", payload.MessageID, err)
	}
	if msg == nil {
		// The message (and its conversation) may have been deleted since
		// this job was enqueued. Nothing left to validate.
		return nil
	}

	report, err := p.Validator.Check(ctx, msg.Content)
	if err != nil {
		return fmt.Errorf("validate message %s: %w", payload.MessageID, err)
	}

	if !report.IsClean {
		issuesJSON, err := json.Marshal(report.Issues)
		if err != nil {
			return fmt.Errorf("marshal validator issues: %w", err)
		}
		if _, err := p.Store.AppendSanitizationLog(ctx, msg.ID, string(issuesJSON), time.Now()); err != nil {
			return fmt.Errorf("append sanitization log: %w", err)
		}
	}

	return nil
}

// extractLearningPayload is the opaque JSON payload of an extract_learning_ai job.
type extractLearningPayload struct {
	ConversationID string `json:"conversation_id"`
}
