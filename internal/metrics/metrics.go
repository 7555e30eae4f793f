package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics for production monitoring of the worker runtime.
var (
	JobsClaimedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convolog_jobs_claimed_total",
			Help: "Total number of jobs claimed from the queue",
		},
		[]string{"type"},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convolog_jobs_completed_total",
			Help: "Total number of jobs completed successfully",
		},
		[]string{"type"},
	)

	JobsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convolog_jobs_failed_total",
			Help: "Total number of job attempts that failed (includes retried and dead-lettered)",
		},
		[]string{"type"},
	)

	JobsDeadLetteredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convolog_jobs_dead_lettered_total",
			Help: "Total number of jobs that exhausted max_attempts and moved to dead_letter",
		},
		[]string{"type"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "convolog_job_duration_seconds",
			Help:    "Job processing duration in seconds, from claim to terminal state",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"type"},
	)

	// LLM metrics, populated only when the Anthropic-backed validator or
	// extractor path is in use.
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convolog_llm_requests_total",
			Help: "Total number of LLM API requests issued by the validator and extractor",
		},
		[]string{"component", "status"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "convolog_llm_request_duration_seconds",
			Help:    "LLM request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
		[]string{"component"},
	)

	SanitizationRedactionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "convolog_sanitization_redactions_total",
			Help: "Total number of PII redactions performed by the fast sanitizer",
		},
	)

	ValidatorFindingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "convolog_validator_findings_total",
			Help: "Total number of residual PII findings recorded by the async validator",
		},
	)
)
