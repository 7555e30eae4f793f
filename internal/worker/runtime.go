package worker

import (
	"context"
	"time"

	"github.com/convolog/convolog/internal/logging"
	"github.com/convolog/convolog/internal/metrics"
	"github.com/convolog/convolog/internal/queue"
)

// BackoffConfig tunes the cooperative retry delay applied by the Runtime
// after a failed job, per spec: min(maxBackoff, base*2^attempts). The queue
// itself carries no scheduled-visibility concept — backoff lives here.
type BackoffConfig struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff matches internal/config's default worker tuning knobs.
var DefaultBackoff = BackoffConfig{
	Base: 500 * time.Millisecond,
	Max:  60 * time.Second,
}

// Runtime drains jobs of one type from the queue, dispatching each to a
// Processor and transitioning it to completed or (re-queued/dead-lettered)
// failed. It honors cooperative cancellation: a cancelled context is only
// observed between jobs, never mid-job, since a job is the unit of
// atomicity.
type Runtime struct {
	Queue     queue.Queue
	Processor Processor
	Logger    logging.Logger
	Backoff   BackoffConfig

	// PollInterval is how long to sleep between Claim attempts when the
	// queue reports no available work.
	PollInterval time.Duration
}

// NewRuntime builds a Runtime with default polling and backoff tuning.
func NewRuntime(q queue.Queue, p Processor, logger logging.Logger) *Runtime {
	return &Runtime{
		Queue:        q,
		Processor:    p,
		Logger:       logger,
		Backoff:      DefaultBackoff,
		PollInterval: 250 * time.Millisecond,
	}
}

// Run drains jobs until ctx is cancelled. It returns once the current job
// (if any) finishes and no further job is claimed — the caller is
// responsible for bounding how long it waits for Run to return after
// cancelling ctx (spec's 5-second shutdown budget lives in cmd/worker).
func (r *Runtime) Run(ctx context.Context) {
	jobType := r.Processor.JobType()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := r.Queue.Claim(ctx, jobType, time.Now())
		if err != nil {
			_ = r.Logger.LogJobFailed(ctx, "", jobType, err, false)
			r.sleep(ctx, r.PollInterval)
			continue
		}
		if job == nil {
			r.sleep(ctx, r.PollInterval)
			continue
		}

		metrics.JobsClaimedTotal.WithLabelValues(jobType).Inc()
		_ = r.Logger.LogJobClaimed(ctx, job.ID, jobType)

		r.runOne(ctx, job)
	}
}

func (r *Runtime) runOne(ctx context.Context, job *queue.Job) {
	start := time.Now()
	err := r.Processor.Process(ctx, job)
	duration := time.Since(start)
	metrics.JobDuration.WithLabelValues(job.Type).Observe(duration.Seconds())

	now := time.Now()
	if err == nil {
		if completeErr := r.Queue.Complete(ctx, job.ID, now); completeErr != nil {
			_ = r.Logger.LogJobFailed(ctx, job.ID, job.Type, completeErr, false)
			return
		}
		metrics.JobsCompletedTotal.WithLabelValues(job.Type).Inc()
		_ = r.Logger.LogJobCompleted(ctx, job.ID, job.Type, duration)
		return
	}

	metrics.JobsFailedTotal.WithLabelValues(job.Type).Inc()
	deadLettered := job.Attempts >= job.MaxAttempts
	if failErr := r.Queue.Fail(ctx, job.ID, err.Error(), now); failErr != nil {
		_ = r.Logger.LogJobFailed(ctx, job.ID, job.Type, failErr, false)
		return
	}
	_ = r.Logger.LogJobFailed(ctx, job.ID, job.Type, err, deadLettered)
	if deadLettered {
		metrics.JobsDeadLetteredTotal.WithLabelValues(job.Type).Inc()
		return
	}

	r.sleep(ctx, r.backoffFor(job.Attempts))
}

// backoffFor computes min(max, base*2^attempts).
func (r *Runtime) backoffFor(attempts int) time.Duration {
	d := r.Backoff.Base
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= r.Backoff.Max {
			return r.Backoff.Max
		}
	}
	return d
}

// sleep waits for d or for ctx to be cancelled, whichever comes first.
func (r *Runtime) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
