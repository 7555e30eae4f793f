package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger defines the structured logging interface shared by the hook,
// worker, and query binaries.
type Logger interface {
	// Log records a structured event, buffering it for batched flush.
	Log(ctx context.Context, event *Event) error

	LogIngestDropped(ctx context.Context, sessionID, reason string) error
	LogJobClaimed(ctx context.Context, jobID, jobType string) error
	LogJobCompleted(ctx context.Context, jobID, jobType string, duration time.Duration) error
	LogJobFailed(ctx context.Context, jobID, jobType string, err error, deadLettered bool) error
	LogSanitizationFinding(ctx context.Context, messageID string, issueCount int) error
	LogLearningExtracted(ctx context.Context, learningID, conversationID string) error

	// Sync flushes buffered log entries.
	Sync() error

	// Close stops background flushing and releases file handles.
	Close() error
}

// Config represents structured logger configuration.
type Config struct {
	// LogPath is the path to the rotated structured log file.
	LogPath string

	// MaxSize is the maximum size in megabytes before rotation.
	MaxSize int

	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int

	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int

	Compress bool

	// Level is the minimum log level (debug, info, warn, error).
	Level string
}

// DefaultConfig returns default structured logger configuration.
func DefaultConfig() *Config {
	return &Config{
		LogPath:    "./data/convolog.log",
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
		Level:      "info",
	}
}

type logger struct {
	zl          *zap.Logger
	config      *Config
	mu          sync.Mutex
	buffer      []*Event
	flushTicker *time.Ticker
	stopCh      chan struct{}
}

// NewLogger creates a new structured logger writing rotated JSON lines.
func NewLogger(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", config.Level, err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	rotator := &lumberjack.Logger{
		Filename:   config.LogPath,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		level,
	)

	zl := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	l := &logger{
		zl:          zl,
		config:      config,
		buffer:      make([]*Event, 0, 100),
		flushTicker: time.NewTicker(time.Second),
		stopCh:      make(chan struct{}),
	}

	go l.autoFlush()

	return l, nil
}

func (l *logger) Log(ctx context.Context, event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buffer = append(l.buffer, event)

	if len(l.buffer) >= 100 {
		return l.flushLocked()
	}
	return nil
}

func (l *logger) flushLocked() error {
	if len(l.buffer) == 0 {
		return nil
	}

	for _, event := range l.buffer {
		eventJSON, err := json.Marshal(event)
		if err != nil {
			l.zl.Error("failed to marshal event", zap.Error(err), zap.String("event_type", string(event.EventType)))
			continue
		}

		l.zl.Info(string(eventJSON),
			zap.String("correlation_id", event.CorrelationID),
			zap.String("event_type", string(event.EventType)),
			zap.String("result", string(event.Result)),
		)
	}

	l.buffer = l.buffer[:0]
	return nil
}

func (l *logger) autoFlush() {
	for {
		select {
		case <-l.flushTicker.C:
			l.mu.Lock()
			_ = l.flushLocked()
			l.mu.Unlock()
		case <-l.stopCh:
			return
		}
	}
}

func (l *logger) LogIngestDropped(ctx context.Context, sessionID, reason string) error {
	event := NewEvent(EventIngestDropped).
		WithResource(sessionID).
		WithResult(ResultDropped).
		WithDescription(reason)
	return l.Log(ctx, event)
}

func (l *logger) LogJobClaimed(ctx context.Context, jobID, jobType string) error {
	event := NewEvent(EventJobClaimed).
		WithResource(jobID).
		WithMetadata("job_type", jobType).
		WithDescription(fmt.Sprintf("job %s claimed", jobID))
	return l.Log(ctx, event)
}

func (l *logger) LogJobCompleted(ctx context.Context, jobID, jobType string, duration time.Duration) error {
	event := NewEvent(EventJobCompleted).
		WithResource(jobID).
		WithMetadata("job_type", jobType).
		WithDuration(duration).
		WithDescription(fmt.Sprintf("job %s completed", jobID))
	return l.Log(ctx, event)
}

func (l *logger) LogJobFailed(ctx context.Context, jobID, jobType string, err error, deadLettered bool) error {
	eventType := EventJobFailed
	if deadLettered {
		eventType = EventJobDeadLettered
	}
	event := NewEvent(eventType).
		WithResource(jobID).
		WithMetadata("job_type", jobType).
		WithError(err).
		WithDescription(fmt.Sprintf("job %s failed", jobID))
	return l.Log(ctx, event)
}

func (l *logger) LogSanitizationFinding(ctx context.Context, messageID string, issueCount int) error {
	event := NewEvent(EventSanitizationFinding).
		WithResource(messageID).
		WithMetadata("issue_count", issueCount).
		WithDescription(fmt.Sprintf("validator found %d residual issue(s) in message %s", issueCount, messageID))
	return l.Log(ctx, event)
}

func (l *logger) LogLearningExtracted(ctx context.Context, learningID, conversationID string) error {
	event := NewEvent(EventLearningExtracted).
		WithResource(learningID).
		WithMetadata("conversation_id", conversationID).
		WithDescription(fmt.Sprintf("learning %s extracted from conversation %s", learningID, conversationID))
	return l.Log(ctx, event)
}

func (l *logger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.flushLocked(); err != nil {
		return err
	}
	return l.zl.Sync()
}

func (l *logger) Close() error {
	close(l.stopCh)
	l.flushTicker.Stop()
	return l.Sync()
}

type correlationIDKey struct{}

// WithCorrelationID attaches a correlation id to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// GetCorrelationID extracts the correlation id from the context, if any.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// GenerateCorrelationID generates a new ephemeral correlation id for request
// tracing. Unlike entity ids (ULIDs), this id is never persisted.
func GenerateCorrelationID() string {
	return uuid.NewString()
}
