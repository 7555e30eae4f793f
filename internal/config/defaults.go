package config

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Database.Path = "./data/context.db"

	cfg.LLM.AnthropicAPIKey = ""
	cfg.LLM.Model = "claude-3-5-sonnet-20241022"

	cfg.Worker.MaxAttempts = 5
	cfg.Worker.BaseBackoffMS = 500
	cfg.Worker.MaxBackoffMS = 60000
	cfg.Worker.ShutdownGraceS = 5

	cfg.Logging.Level = "info"
	cfg.Logging.Path = "./data/convolog.log"

	cfg.Metrics.Addr = ""

	return cfg
}
