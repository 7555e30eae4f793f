// Command query serves the learnings query protocol over stdio: get_learning
// and search_learnings, per spec.md §4.8/§6. It is invoked as a subprocess
// by a host following the tool-call framing documented there; packaging
// that framing as a specific host's tool-call transport is out of scope
// (spec.md §1) beyond implementing the documented stdio contract itself.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/convolog/convolog/internal/config"
	"github.com/convolog/convolog/internal/logging"
	"github.com/convolog/convolog/internal/query"
	"github.com/convolog/convolog/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = config.DefaultConfig().Database.Path
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query: FATAL: open store at %s: %v\n", dbPath, err)
		return 1
	}
	defer s.Close()

	if err := s.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "query: FATAL: database integrity check failed: %v\n", err)
		return 1
	}

	logger, err := logging.NewLogger(logging.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "query: FATAL: start logger: %v\n", err)
		return 1
	}
	defer logger.Close()

	svc := query.NewService(s)
	srv := query.NewServer(svc, logger)

	if err := srv.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "query: server error: %v\n", err)
		return 1
	}
	return 0
}
