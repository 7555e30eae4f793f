package logging

import "time"

// EventType represents the type of a structured log event emitted by the
// pipeline's components.
type EventType string

const (
	EventIngestReceived EventType = "ingest.received"
	EventIngestDropped  EventType = "ingest.dropped"

	EventJobEnqueued     EventType = "job.enqueued"
	EventJobClaimed      EventType = "job.claimed"
	EventJobCompleted    EventType = "job.completed"
	EventJobFailed       EventType = "job.failed"
	EventJobDeadLettered EventType = "job.dead_lettered"

	EventSanitizationFinding EventType = "sanitization.finding"
	EventLearningExtracted   EventType = "learning.extracted"

	EventQueryToolCalled EventType = "query.tool_called"

	EventWorkerStarted  EventType = "system.worker_started"
	EventWorkerShutdown EventType = "system.worker_shutdown"
)

// Result represents the outcome of a logged event.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultDropped Result = "dropped"
)

// Event represents a single structured log event.
type Event struct {
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
	EventType     EventType              `json:"event_type"`
	Result        Result                 `json:"result"`
	Resource      string                 `json:"resource,omitempty"` // e.g. job id, conversation id
	Description   string                 `json:"description,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Error         string                 `json:"error,omitempty"`
	DurationMs    int64                  `json:"duration_ms,omitempty"`
}

// NewEvent creates a new event with default values.
func NewEvent(eventType EventType) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Result:    ResultSuccess,
		Metadata:  make(map[string]interface{}),
	}
}

func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

func (e *Event) WithResource(resource string) *Event {
	e.Resource = resource
	return e
}

func (e *Event) WithDescription(desc string) *Event {
	e.Description = desc
	return e
}

func (e *Event) WithResult(result Result) *Event {
	e.Result = result
	return e
}

func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.Error = err.Error()
		e.Result = ResultFailure
	}
	return e
}

func (e *Event) WithDuration(d time.Duration) *Event {
	e.DurationMs = d.Milliseconds()
	return e
}

func (e *Event) WithMetadata(key string, value interface{}) *Event {
	e.Metadata[key] = value
	return e
}
