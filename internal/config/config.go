package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultAPIKeyEnv names the variable holding the upstream credential.
const DefaultAPIKeyEnv = "OPENAI_API_KEY"

// Config is the typed view of the merged viper settings: defaults, optional
// YAML file, then PLAINLY_* environment variables and bound flags.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
	Debug     DebugConfig     `mapstructure:"debug"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// PromptsDir overrides the embedded simplify prompt when set.
	PromptsDir string `mapstructure:"prompts_dir"`

	// Source is the config file that was read, empty when none was found.
	Source string `mapstructure:"-"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// LoggingConfig selects the server log level and sink format.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is json or console.
	Format      string `mapstructure:"format"`
	Environment string `mapstructure:"environment"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Port is the exporter's own listener; /metrics on the main port proxies it.
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig gates diagnostic endpoints such as /api/usage.
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// UpstreamConfig describes the chat-completion provider.
type UpstreamConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKeyEnv     string        `mapstructure:"api_key_env"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Temperature   float64       `mapstructure:"temperature"`
	StandardModel string        `mapstructure:"standard_model"`
	PremiumModel  string        `mapstructure:"premium_model"`
}

// APIKey reads the credential from the configured environment variable at call
// time. Blank values count as missing.
func (u UpstreamConfig) APIKey() (string, bool) {
	name := strings.TrimSpace(u.APIKeyEnv)
	if name == "" {
		name = DefaultAPIKeyEnv
	}
	value, ok := os.LookupEnv(name)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

// RateLimitConfig is the premium tier quota.
type RateLimitConfig struct {
	PremiumLimit int           `mapstructure:"premium_limit"`
	Window       time.Duration `mapstructure:"window"`
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port out of range: %d", c.Metrics.Port)
	}
	if c.RateLimit.PremiumLimit < 1 {
		return fmt.Errorf("rate_limit.premium_limit must be at least 1, got %d", c.RateLimit.PremiumLimit)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive, got %s", c.RateLimit.Window)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive, got %s", c.Upstream.Timeout)
	}
	if c.Upstream.Temperature < 0 || c.Upstream.Temperature > 2 {
		return fmt.Errorf("upstream.temperature must be within [0, 2], got %v", c.Upstream.Temperature)
	}
	if strings.TrimSpace(c.Upstream.StandardModel) == "" || strings.TrimSpace(c.Upstream.PremiumModel) == "" {
		return fmt.Errorf("upstream.standard_model and upstream.premium_model are required")
	}
	if c.Upstream.StandardModel == c.Upstream.PremiumModel {
		return fmt.Errorf("upstream.standard_model and upstream.premium_model must differ")
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must not be negative")
	}
	return nil
}
