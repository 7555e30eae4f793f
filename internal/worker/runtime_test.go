package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/convolog/convolog/internal/logging"
	"github.com/convolog/convolog/internal/queue"
	"github.com/convolog/convolog/internal/store"
)

func newTestRuntimeDeps(t *testing.T) (store.Store, queue.Queue, logging.Logger) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger, err := logging.NewLogger(&logging.Config{LogPath: t.TempDir() + "/test.log", Level: "info"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })

	return s, queue.NewSQLiteQueue(s.DB()), logger
}

type countingProcessor struct {
	jobType string
	calls   int32
	fail    bool
}

func (p *countingProcessor) JobType() string { return p.jobType }

func (p *countingProcessor) Process(ctx context.Context, job *queue.Job) error {
	atomic.AddInt32(&p.calls, 1)
	if p.fail {
		return errors.New("processor failure")
	}
	return nil
}

func TestRuntimeCompletesSuccessfulJob(t *testing.T) {
	s, q, logger := newTestRuntimeDeps(t)
	ctx := context.Background()
	now := time.Now()

	job, err := q.Enqueue(ctx, queue.JobTypeSanitizeAsync, `{"message_id":"m1"}`, now)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	proc := &countingProcessor{jobType: queue.JobTypeSanitizeAsync}
	rt := NewRuntime(q, proc, logger)
	rt.PollInterval = 10 * time.Millisecond

	runCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		rt.Run(runCtx)
		close(done)
	}()

	deadline := time.After(400 * time.Millisecond)
	for {
		got, err := q.Get(ctx, job.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Status == queue.JobStatusCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job never completed, status=%s", got.Status)
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	cancel()
	<-done
	_ = s
}

func TestRuntimeRetriesThenDeadLetters(t *testing.T) {
	_, q, logger := newTestRuntimeDeps(t)
	ctx := context.Background()
	now := time.Now()

	job, err := q.Enqueue(ctx, queue.JobTypeSanitizeAsync, `{"message_id":"m1"}`, now)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	proc := &countingProcessor{jobType: queue.JobTypeSanitizeAsync, fail: true}
	rt := NewRuntime(q, proc, logger)
	rt.PollInterval = 5 * time.Millisecond
	rt.Backoff = BackoffConfig{Base: time.Millisecond, Max: 5 * time.Millisecond}

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		rt.Run(runCtx)
		close(done)
	}()

	deadline := time.After(1800 * time.Millisecond)
	for {
		got, err := q.Get(ctx, job.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Status == queue.JobStatusDeadLetter {
			if got.Attempts != queue.DefaultMaxAttempts {
				t.Fatalf("expected %d attempts, got %d", queue.DefaultMaxAttempts, got.Attempts)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job never dead-lettered, status=%s attempts=%d", got.Status, got.Attempts)
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	cancel()
	<-done
}
