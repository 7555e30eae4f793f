package config

import "context"

// Package config provides configuration management for convolog.
//
// Responsibilities:
//   - Load configuration from a YAML file, environment variables, and defaults
//   - Validate configuration on startup
//   - Provide runtime access to all configuration
//   - Support hot-reload of worker tuning knobs via fsnotify
//
// Configuration Sources (priority order, high to low):
//   1. CLI flags (highest priority, applied by callers after Load)
//   2. Environment variables (CONVOLOG_* prefix, plus DB_PATH / ANTHROPIC_API_KEY)
//   3. YAML config file (default: ./convolog.yaml)
//   4. Built-in defaults (lowest priority)
//
// Config struct contains all configuration fields.
type Config struct {
	// Database configuration.
	Database struct {
		// Path to the SQLite database file. Mirrors DB_PATH.
		Path string
	}

	// LLM backend configuration for the async validator and learning extractor.
	LLM struct {
		// AnthropicAPIKey, when non-empty, selects the model-backed validator
		// and extractor; otherwise both fall back to local heuristics.
		AnthropicAPIKey string
		Model           string
	}

	// Worker runtime configuration.
	Worker struct {
		MaxAttempts    int
		BaseBackoffMS  int
		MaxBackoffMS   int
		ShutdownGraceS int
	}

	// Logging configuration.
	Logging struct {
		Level string // debug | info | warn | error
		Path  string // file path for rotated structured logs
	}

	// Metrics configuration.
	Metrics struct {
		// Addr to serve Prometheus /metrics on. Empty disables the listener.
		Addr string
	}
}

// Manager defines the interface for configuration access.
type Manager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches for configuration file changes and reloads worker tuning
	// knobs. Unsupported fields (database path, logging path) are frozen
	// after Load and are never pushed through the returned channel.
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources.
	Reload(ctx context.Context) error
}

// NewManager creates a new configuration manager reading from configPath.
func NewManager(configPath string) (Manager, error) {
	mgr := &viperManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}
	return mgr, nil
}
