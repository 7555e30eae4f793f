package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// viperManager implements Manager using Viper.
type viperManager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
}

// Load loads configuration from all sources.
func (m *viperManager) Load(ctx context.Context) error {
	m.viper = viper.New()

	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	m.viper.SetEnvPrefix("CONVOLOG")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file. Defaults + env vars carry us.
		} else if os.IsNotExist(err) {
			// Same as above, surfaced via the os error path instead of viper's.
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.applyEnvOverrides()

	return nil
}

// Get returns the current configuration.
func (m *viperManager) Get(ctx context.Context) *Config {
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperManager) Validate(ctx context.Context) error {
	errs := m.config.Validate()
	if len(errs) > 0 {
		var errMsgs []string
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errMsgs, "\n  - "))
	}
	return nil
}

// Watch watches for configuration file changes and pushes reloaded worker
// tuning knobs to the returned channel. Database path and logging path are
// read once at Load and never change out from under an already-running
// store or logger.
func (m *viperManager) Watch(ctx context.Context) <-chan Config {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		prevPath := m.config.Database.Path
		prevLogPath := m.config.Logging.Path
		if err := m.unmarshalConfig(); err != nil {
			return
		}
		m.config.Database.Path = prevPath
		m.config.Logging.Path = prevLogPath
		select {
		case m.watchChan <- *m.config:
		default:
		}
	})

	return m.watchChan
}

// Reload reloads configuration from sources.
func (m *viperManager) Reload(ctx context.Context) error {
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.applyEnvOverrides()

	return nil
}

// setDefaults sets default values in viper.
func (m *viperManager) setDefaults() {
	defaults := DefaultConfig()

	m.viper.SetDefault("database.path", defaults.Database.Path)

	m.viper.SetDefault("llm.anthropic_api_key", defaults.LLM.AnthropicAPIKey)
	m.viper.SetDefault("llm.model", defaults.LLM.Model)

	m.viper.SetDefault("worker.max_attempts", defaults.Worker.MaxAttempts)
	m.viper.SetDefault("worker.base_backoff_ms", defaults.Worker.BaseBackoffMS)
	m.viper.SetDefault("worker.max_backoff_ms", defaults.Worker.MaxBackoffMS)
	m.viper.SetDefault("worker.shutdown_grace_s", defaults.Worker.ShutdownGraceS)

	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.path", defaults.Logging.Path)

	m.viper.SetDefault("metrics.addr", defaults.Metrics.Addr)
}

// unmarshalConfig unmarshals viper config into Config struct.
func (m *viperManager) unmarshalConfig() error {
	cfg := &Config{}

	cfg.Database.Path = m.viper.GetString("database.path")

	cfg.LLM.AnthropicAPIKey = m.viper.GetString("llm.anthropic_api_key")
	cfg.LLM.Model = m.viper.GetString("llm.model")

	cfg.Worker.MaxAttempts = m.viper.GetInt("worker.max_attempts")
	cfg.Worker.BaseBackoffMS = m.viper.GetInt("worker.base_backoff_ms")
	cfg.Worker.MaxBackoffMS = m.viper.GetInt("worker.max_backoff_ms")
	cfg.Worker.ShutdownGraceS = m.viper.GetInt("worker.shutdown_grace_s")

	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.Path = m.viper.GetString("logging.path")

	cfg.Metrics.Addr = m.viper.GetString("metrics.addr")

	m.config = cfg
	return nil
}

// applyEnvOverrides applies environment variable overrides that fall outside
// the CONVOLOG_ prefix convention.
func (m *viperManager) applyEnvOverrides() {
	// DB_PATH is the conventional override used by the hook binary, which
	// may run in contexts without a loaded YAML file at all.
	if path := os.Getenv("DB_PATH"); path != "" {
		m.config.Database.Path = path
	}

	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		m.config.LLM.AnthropicAPIKey = apiKey
	}
}
