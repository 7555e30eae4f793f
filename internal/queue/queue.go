// Package queue implements the durable, at-most-once job queue backing
// asynchronous sanitization validation and learning extraction. It operates
// on the job_queue table created by internal/store's migrations, sharing
// that package's database handle rather than owning a connection of its own.
package queue

import (
	"context"
	"time"
)

// Job statuses, forming the state machine: queued -> in_progress ->
// completed, or queued -> in_progress -> failed -> (queued | dead_letter).
const (
	JobStatusQueued     = "queued"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusDeadLetter = "dead_letter"
)

// Job types recognized by the queue. mine_upload is reserved for a future
// batch-mining worker and is never enqueued today.
const (
	JobTypeSanitizeAsync   = "sanitize_async"
	JobTypeExtractLearning = "extract_learning_ai"
	JobTypeMineUpload      = "mine_upload"
	DefaultMaxAttempts     = 3
)

// Job is a durable unit of asynchronous work.
type Job struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Payload     string    `json:"payload"` // opaque JSON
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Queue implements the durable at-most-once job queue described by the
// capture pipeline's asynchronous stages.
type Queue interface {
	// Enqueue inserts a new job in status queued with attempts=0.
	Enqueue(ctx context.Context, jobType, payload string, now time.Time) (*Job, error)

	// Claim atomically claims the oldest queued job of the given type,
	// transitioning it to in_progress and incrementing attempts. Returns
	// nil, nil if no job is available.
	Claim(ctx context.Context, jobType string, now time.Time) (*Job, error)

	// Complete marks a job completed.
	Complete(ctx context.Context, id string, now time.Time) error

	// Fail records an error for a job. If the job's attempts are still
	// below max_attempts it returns to queued; otherwise it is dead-lettered.
	Fail(ctx context.Context, id, errMsg string, now time.Time) error

	// Get retrieves a job by ID.
	Get(ctx context.Context, id string) (*Job, error)

	// RequeueDeadLetters resets every dead_letter job of the given type
	// back to queued with attempts reset to 0. Returns the count requeued.
	// An empty jobType matches all types.
	RequeueDeadLetters(ctx context.Context, jobType string, now time.Time) (int, error)
}
