// Command worker runs one of the two asynchronous drain loops: the
// sanitize_async validator or the extract_learning_ai learning extractor,
// selected by --type. Multiple instances of either type may run
// concurrently against the same database file; the job queue's
// claim-with-compare-and-set makes that safe.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/convolog/convolog/internal/config"
	"github.com/convolog/convolog/internal/extractor"
	"github.com/convolog/convolog/internal/llmclient"
	"github.com/convolog/convolog/internal/logging"
	"github.com/convolog/convolog/internal/queue"
	"github.com/convolog/convolog/internal/store"
	"github.com/convolog/convolog/internal/validator"
	"github.com/convolog/convolog/internal/worker"
)

var (
	configPath = flag.String("config", "convolog.yaml", "Path to configuration file")
	jobType    = flag.String("type", "", "Job type to drain: sanitize_async | extract_learning_ai")
	requeue    = flag.String("requeue-dead-letters", "", "Reset dead_letter jobs of this type (or \"all\") back to queued, then exit")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfiguration(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: FATAL: load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&logging.Config{
		LogPath:    cfg.Logging.Path,
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
		Level:      cfg.Logging.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: FATAL: start logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: FATAL: open store at %s: %v\n", cfg.Database.Path, err)
		os.Exit(1)
	}
	defer s.Close()

	if err := s.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "worker: FATAL: database integrity check failed: %v\n", err)
		os.Exit(1)
	}

	q := queue.NewSQLiteQueue(s.DB())

	if *requeue != "" {
		jt := *requeue
		if jt == "all" {
			jt = ""
		}
		n, err := q.RequeueDeadLetters(ctx, jt, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "worker: FATAL: requeue dead letters: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("worker: requeued %d dead-letter job(s)\n", n)
		return
	}

	processor, err := buildProcessor(*jobType, cfg, s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: FATAL: %v\n", err)
		os.Exit(1)
	}

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr)
	}

	rt := worker.NewRuntime(q, processor, logger)
	rt.Backoff = worker.BackoffConfig{
		Base: time.Duration(cfg.Worker.BaseBackoffMS) * time.Millisecond,
		Max:  time.Duration(cfg.Worker.MaxBackoffMS) * time.Millisecond,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	runDone := make(chan struct{})
	go func() {
		rt.Run(ctx)
		close(runDone)
	}()

	sig := <-shutdown
	fmt.Printf("worker: received signal %v, finishing current job\n", sig)
	cancel()

	select {
	case <-runDone:
		fmt.Println("worker: stopped gracefully")
	case <-time.After(time.Duration(cfg.Worker.ShutdownGraceS) * time.Second):
		fmt.Println("worker: shutdown grace period exceeded, exiting anyway")
	}
}

// buildProcessor selects the worker.Processor for jobType, and within it
// the heuristic or Anthropic-backed backend depending on whether
// ANTHROPIC_API_KEY is configured.
func buildProcessor(jobType string, cfg *config.Config, s store.Store) (worker.Processor, error) {
	switch jobType {
	case queue.JobTypeSanitizeAsync:
		return &worker.SanitizeProcessor{
			Store:     s,
			Validator: buildValidator(cfg),
		}, nil
	case queue.JobTypeExtractLearning:
		return &worker.ExtractProcessor{
			Store:     s,
			Extractor: buildExtractor(cfg),
		}, nil
	case "":
		return nil, fmt.Errorf("--type is required: sanitize_async | extract_learning_ai")
	default:
		return nil, fmt.Errorf("unknown --type %q: must be sanitize_async or extract_learning_ai", jobType)
	}
}

func buildValidator(cfg *config.Config) validator.Validator {
	if cfg.LLM.AnthropicAPIKey == "" {
		return validator.NewHeuristic()
	}
	client, err := llmclient.New(cfg.LLM.AnthropicAPIKey)
	if err != nil {
		return validator.NewHeuristic()
	}
	return validator.NewAnthropic(client)
}

func buildExtractor(cfg *config.Config) extractor.Extractor {
	if cfg.LLM.AnthropicAPIKey == "" {
		return extractor.NewHeuristic()
	}
	client, err := llmclient.New(cfg.LLM.AnthropicAPIKey)
	if err != nil {
		return extractor.NewHeuristic()
	}
	return extractor.NewAnthropic(client)
}

// loadConfiguration loads and validates configuration from all sources.
func loadConfiguration(ctx context.Context, cfgPath string) (*config.Config, error) {
	mgr, err := config.NewManager(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("create config manager: %w", err)
	}
	if err := mgr.Load(ctx); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := mgr.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}
	return mgr.Get(ctx), nil
}

// serveMetrics exposes Prometheus counters/histograms, off by default and
// enabled only via CONVOLOG_METRICS_ADDR / metrics.addr. It carries only
// counts and durations, never message content, so it cannot violate the
// pipeline's no-network-upload non-goal.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "worker: metrics server error: %v\n", err)
	}
}
