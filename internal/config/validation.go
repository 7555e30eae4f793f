package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, &ValidationError{
			Field:   "database.path",
			Message: "database path is required",
		})
	}

	if strings.TrimSpace(c.LLM.Model) == "" {
		errs = append(errs, &ValidationError{
			Field:   "llm.model",
			Message: "model is required even when running in local-heuristic mode",
		})
	}

	if c.Worker.MaxAttempts < 1 {
		errs = append(errs, &ValidationError{
			Field:   "worker.max_attempts",
			Message: fmt.Sprintf("max_attempts must be at least 1, got %d", c.Worker.MaxAttempts),
		})
	}

	if c.Worker.BaseBackoffMS < 1 {
		errs = append(errs, &ValidationError{
			Field:   "worker.base_backoff_ms",
			Message: fmt.Sprintf("base_backoff_ms must be positive, got %d", c.Worker.BaseBackoffMS),
		})
	}

	if c.Worker.MaxBackoffMS < c.Worker.BaseBackoffMS {
		errs = append(errs, &ValidationError{
			Field:   "worker.max_backoff_ms",
			Message: fmt.Sprintf("max_backoff_ms (%d) must be >= base_backoff_ms (%d)", c.Worker.MaxBackoffMS, c.Worker.BaseBackoffMS),
		})
	}

	if c.Worker.ShutdownGraceS < 1 {
		errs = append(errs, &ValidationError{
			Field:   "worker.shutdown_grace_s",
			Message: fmt.Sprintf("shutdown_grace_s must be at least 1, got %d", c.Worker.ShutdownGraceS),
		})
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}

	if strings.TrimSpace(c.Logging.Path) == "" {
		errs = append(errs, &ValidationError{
			Field:   "logging.path",
			Message: "logging path is required",
		})
	}

	if c.Metrics.Addr != "" {
		_, port, err := net.SplitHostPort(c.Metrics.Addr)
		if err != nil {
			errs = append(errs, &ValidationError{
				Field:   "metrics.addr",
				Message: fmt.Sprintf("invalid address format (expected host:port): %v", err),
			})
		} else if port == "" {
			errs = append(errs, &ValidationError{
				Field:   "metrics.addr",
				Message: "metrics port cannot be empty",
			})
		}
	}

	return errs
}
