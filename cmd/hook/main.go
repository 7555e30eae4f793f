// Command hook is the standalone binary a coding-assistant host invokes once
// per lifecycle event. It reads a single JSON event from standard input,
// hands it to the ingestion pipeline, and always exits 0: a privacy pipeline
// must never surface an error to the host, and dropping an event is always
// preferable to blocking or crashing the caller.
//
// It embeds its own copy of the pattern catalog (catalog.Duplicate()) for
// one purpose only: sanitizing whatever fragment of an event it might need
// to put in a diagnostic log line. That pre-filter does not depend on
// internal/sanitize succeeding, so even if the rest of the ingestion
// pipeline were unreachable, this binary still never writes raw PII to
// standard error.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/convolog/convolog/internal/catalog"
	"github.com/convolog/convolog/internal/config"
	"github.com/convolog/convolog/internal/ingest"
	"github.com/convolog/convolog/internal/logging"
	"github.com/convolog/convolog/internal/queue"
	"github.com/convolog/convolog/internal/store"
)

// ingestBudget is the wall-clock budget for the hook's synchronous work,
// per spec: end-to-end latency at the 95th percentile should stay under
// 100ms. Exceeding it is logged, never blocking.
const ingestBudget = 100 * time.Millisecond

func main() {
	os.Exit(run())
}

// run contains the actual logic so main can guarantee an exit(0) regardless
// of what happens inside, per the hook's silent-failure contract.
func run() int {
	logger, err := logging.NewLogger(logging.DefaultConfig())
	if err != nil {
		// Even the logger failed to come up; there is nowhere left to report
		// this, so stay silent and exit clean.
		return 0
	}
	defer logger.Close()

	raw, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		fmt.Fprintf(os.Stderr, "hook: read stdin: %v\n", err)
		return 0
	}

	var event ingest.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		fmt.Fprintf(os.Stderr, "hook: malformed event: %s\n", embeddedSanitize(err.Error()))
		return 0
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		cfg := config.DefaultConfig()
		dbPath = cfg.Database.Path
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hook: open store: %v\n", err)
		return 0
	}
	defer s.Close()

	q := queue.NewSQLiteQueue(s.DB())
	ingester := ingest.New(s, q, logger)

	ctx, cancel := context.WithTimeout(context.Background(), ingestBudget)
	defer cancel()

	if err := ingester.Handle(ctx, event); err != nil {
		fmt.Fprintf(os.Stderr, "hook: dropped event: %s\n", embeddedSanitize(err.Error()))
	}

	return 0
}

// embeddedSanitize runs the hook's self-contained copy of the pattern
// catalog over a string about to be written to standard error. It is
// independent of internal/sanitize.
func embeddedSanitize(text string) string {
	for _, p := range catalog.Duplicate() {
		text = p.Regexp.ReplaceAllString(text, p.Replacement)
	}
	return text
}
