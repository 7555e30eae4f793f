package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "./data/context.db", cfg.Database.Path)
	assert.Empty(t, cfg.LLM.AnthropicAPIKey)
	assert.NotEmpty(t, cfg.LLM.Model)

	assert.Equal(t, 5, cfg.Worker.MaxAttempts)
	assert.Equal(t, 500, cfg.Worker.BaseBackoffMS)
	assert.Equal(t, 60000, cfg.Worker.MaxBackoffMS)
	assert.Equal(t, 5, cfg.Worker.ShutdownGraceS)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Logging.Path)

	assert.Empty(t, cfg.Metrics.Addr)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		modifyFn  func(*Config)
		wantError bool
		errorMsg  string
	}{
		{
			name:     "valid default config",
			modifyFn: func(cfg *Config) {},
		},
		{
			name: "missing database path",
			modifyFn: func(cfg *Config) {
				cfg.Database.Path = ""
			},
			wantError: true,
			errorMsg:  "database path is required",
		},
		{
			name: "missing model",
			modifyFn: func(cfg *Config) {
				cfg.LLM.Model = ""
			},
			wantError: true,
			errorMsg:  "model is required",
		},
		{
			name: "invalid max attempts",
			modifyFn: func(cfg *Config) {
				cfg.Worker.MaxAttempts = 0
			},
			wantError: true,
			errorMsg:  "max_attempts must be at least 1",
		},
		{
			name: "max backoff below base backoff",
			modifyFn: func(cfg *Config) {
				cfg.Worker.BaseBackoffMS = 1000
				cfg.Worker.MaxBackoffMS = 500
			},
			wantError: true,
			errorMsg:  "must be >= base_backoff_ms",
		},
		{
			name: "invalid log level",
			modifyFn: func(cfg *Config) {
				cfg.Logging.Level = "verbose"
			},
			wantError: true,
			errorMsg:  "invalid log level",
		},
		{
			name: "invalid metrics addr",
			modifyFn: func(cfg *Config) {
				cfg.Metrics.Addr = "not-an-address"
			},
			wantError: true,
			errorMsg:  "invalid address format",
		},
		{
			name: "valid metrics addr is fine",
			modifyFn: func(cfg *Config) {
				cfg.Metrics.Addr = ":9090"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modifyFn(cfg)

			errs := cfg.Validate()

			if tt.wantError {
				require.NotEmpty(t, errs, "expected validation errors but got none")
				found := false
				for _, err := range errs {
					if strings.Contains(err.Error(), tt.errorMsg) {
						found = true
						break
					}
				}
				assert.True(t, found, "expected error message containing '%s', got: %v", tt.errorMsg, errs)
			} else {
				assert.Empty(t, errs, "expected no validation errors but got: %v", errs)
			}
		})
	}
}

func TestManagerLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  path: "/data/custom.db"

llm:
  model: "claude-3-5-sonnet-20241022"

worker:
  max_attempts: 8
  base_backoff_ms: 200

logging:
  level: "debug"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	mgr, err := NewManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	cfg := mgr.Get(ctx)
	require.NotNil(t, cfg)

	assert.Equal(t, "/data/custom.db", cfg.Database.Path)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.LLM.Model)
	assert.Equal(t, 8, cfg.Worker.MaxAttempts)
	assert.Equal(t, 200, cfg.Worker.BaseBackoffMS)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestManagerEnvironmentOverrides(t *testing.T) {
	os.Setenv("DB_PATH", "/env/override.db")
	os.Setenv("ANTHROPIC_API_KEY", "env-anthropic-key")
	defer func() {
		os.Unsetenv("DB_PATH")
		os.Unsetenv("ANTHROPIC_API_KEY")
	}()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  path: "/data/custom.db"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	mgr, err := NewManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	cfg := mgr.Get(ctx)
	assert.Equal(t, "/env/override.db", cfg.Database.Path, "DB_PATH should override the config file")
	assert.Equal(t, "env-anthropic-key", cfg.LLM.AnthropicAPIKey)
}

func TestManagerMissingFile(t *testing.T) {
	configPath := "/tmp/nonexistent-convolog-config.yaml"

	mgr, err := NewManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	cfg := mgr.Get(ctx)
	assert.NotNil(t, cfg)
	assert.Equal(t, "./data/context.db", cfg.Database.Path)
}

func TestManagerValidation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  path: ""

logging:
  level: "nonsense"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	mgr, err := NewManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	err = mgr.Validate(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}
