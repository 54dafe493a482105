// Package config loads plainly's settings. Precedence, lowest first: built-in
// defaults, an optional YAML file (XDG config dir or ./config), .env files,
// then PLAINLY_* environment variables and bound flags.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/plainly/plainly/internal/ailink/driver/openai"
	"github.com/plainly/plainly/internal/appid"
	"github.com/plainly/plainly/internal/core/engine"
)

// DefaultDotEnvFiles are read when present, in order. Existing env vars win.
var DefaultDotEnvFiles = []string{".env", ".env.local"}

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// LoadOptions controls where Load looks for settings. Zero values use the app
// identity and the XDG config dir.
type LoadOptions struct {
	// ConfigFile is an explicit file path, e.g. from --config.
	ConfigFile string
	// ConfigName is the XDG directory name; defaults to the identity's config_name.
	ConfigName string
	// EnvPrefix defaults to the identity's env_prefix.
	EnvPrefix string
	// DotEnvFiles overrides DefaultDotEnvFiles; an empty non-nil slice disables them.
	DotEnvFiles []string
}

// Load merges every layer into v and decodes the result. It is safe to call
// again on the same viper instance for reloads.
func Load(ctx context.Context, v *viper.Viper, opts LoadOptions) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	identity, _ := appid.GetOrFallback(ctx)
	configName := strings.TrimSpace(opts.ConfigName)
	if configName == "" {
		configName = identity.ConfigName
	}
	if configName == "" {
		configName = identity.BinaryName
	}
	prefix := strings.TrimSpace(opts.EnvPrefix)
	if prefix == "" {
		prefix = appid.EnvPrefix(ctx)
	}

	dotenv := opts.DotEnvFiles
	if dotenv == nil {
		dotenv = DefaultDotEnvFiles
	}
	if err := LoadDotEnv(dotenv...); err != nil {
		return nil, err
	}

	SetDefaults(v)
	bindEnv(v, prefix)

	source, err := readConfigFile(v, opts.ConfigFile, configName)
	if err != nil {
		return nil, err
	}

	cfg, err := Decode(v.AllSettings())
	if err != nil {
		return nil, err
	}
	cfg.Source = source

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	setConfig(cfg)
	return cfg, nil
}

// Decode converts merged settings into a Config.
func Decode(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.environment", "production")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)

	v.SetDefault("debug.enabled", false)

	v.SetDefault("upstream.base_url", openai.DefaultBaseURL)
	v.SetDefault("upstream.api_key_env", DefaultAPIKeyEnv)
	v.SetDefault("upstream.timeout", engine.DefaultTimeout.String())
	v.SetDefault("upstream.temperature", engine.DefaultTemperature)
	v.SetDefault("upstream.standard_model", engine.DefaultStandardModel)
	v.SetDefault("upstream.premium_model", engine.DefaultPremiumModel)

	v.SetDefault("rate_limit.premium_limit", engine.DefaultPremiumLimit)
	v.SetDefault("rate_limit.window", engine.DefaultWindow.String())

	v.SetDefault("prompts_dir", "")
}

// LoadDotEnv reads each existing file into the process environment without
// overriding variables that are already set.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// bindEnv maps PLAINLY_SECTION_KEY onto section.key and adds the short
// aliases operators expect (PLAINLY_PORT, PLAINLY_LOG_LEVEL, ...).
func bindEnv(v *viper.Viper, prefix string) {
	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	aliases := map[string]string{
		"server.host":              "HOST",
		"server.port":              "PORT",
		"logging.level":            "LOG_LEVEL",
		"metrics.port":             "METRICS_PORT",
		"debug.enabled":            "DEBUG",
		"rate_limit.premium_limit": "PREMIUM_LIMIT",
	}
	for key, alias := range aliases {
		envKey := prefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, envKey, prefix+alias)
	}
}

func readConfigFile(v *viper.Viper, explicit, configName string) (string, error) {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config %s: %w", explicit, err)
		}
		return v.ConfigFileUsed(), nil
	}

	if dir := gfconfig.GetAppConfigDir(configName); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// DefaultConfigPath returns the XDG path of the user config file.
func DefaultConfigPath(ctx context.Context) string {
	identity, _ := appid.GetOrFallback(ctx)
	dir := gfconfig.GetAppConfigDir(identity.ConfigName)
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// GetConfig returns the most recently loaded configuration.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}
