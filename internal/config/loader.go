// Package config loads brainboard configuration through viper and decodes it
// into typed sections with go-viper/mapstructure.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Application naming used for XDG paths and environment variables.
const (
	AppName   = "brainboard"
	EnvPrefix = "BRAINBOARD"
)

// Store drivers.
const (
	DriverLibsql = "libsql"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers every default on v. Keys must be known to viper for
// environment overrides to reach Unmarshal, so every field gets one.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://api.brainboard.example.com/v1")
	v.SetDefault("api.timeout", "15s")

	v.SetDefault("session.codec", "xor")
	v.SetDefault("session.refresh_interval", "30s")
	v.SetDefault("session.max_session_age", "24h")

	v.SetDefault("rate_limit.max_per_window", 100)
	v.SetDefault("rate_limit.window", "60s")

	v.SetDefault("upload.max_bytes", 10<<20)

	v.SetDefault("store.driver", DriverLibsql)
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_prefix", AppName)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.environment", "development")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9464)

	v.SetDefault("mock.host", "localhost")
	v.SetDefault("mock.port", 8787)
	v.SetDefault("mock.token_ttl", "15m")
	v.SetDefault("mock.refresh_ttl", "168h")
	v.SetDefault("mock.signing_key", "")
	v.SetDefault("mock.shutdown_timeout", "10s")
	v.SetDefault("mock.upload_dir", "")
}

// BindEnv makes v read BRAINBOARD_SECTION_KEY variables for section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) ([]string, error) {
	loaded := []string{}
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

// Load decodes the settings held by v, validates them and makes the result
// available through GetConfig.
func Load(v *viper.Viper) (*Config, error) {
	cfg, err := Decode(v.AllSettings())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setConfig(cfg)
	return cfg, nil
}

// Decode converts a nested settings map into a Config.
func Decode(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Driver == DriverLibsql && strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if parsed, err := url.Parse(strings.TrimSpace(c.API.BaseURL)); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		problems = append(problems, fmt.Sprintf("api.base_url %q is not an absolute URL", c.API.BaseURL))
	}
	if c.API.Timeout < 0 {
		problems = append(problems, "api.timeout must not be negative")
	}
	switch strings.ToLower(c.Session.Codec) {
	case "", "xor", "aead":
	default:
		problems = append(problems, fmt.Sprintf("session.codec %q must be xor or aead", c.Session.Codec))
	}
	if c.RateLimit.MaxPerWindow < 0 {
		problems = append(problems, "rate_limit.max_per_window must not be negative")
	}
	if c.RateLimit.Window < 0 || c.Session.RefreshInterval < 0 || c.Session.MaxSessionAge < 0 {
		problems = append(problems, "durations must not be negative")
	}
	switch c.Store.Driver {
	case DriverLibsql, DriverRedis, DriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q must be libsql, redis or memory", c.Store.Driver))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// TimeoutOrDefault returns the API timeout, defaulting to 15s.
func (c APIConfig) TimeoutOrDefault() time.Duration {
	if c.Timeout <= 0 {
		return 15 * time.Second
	}
	return c.Timeout
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

// DefaultConfigDir returns the XDG config directory for brainboard.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir(AppName)
}

// DefaultConfigPath returns the XDG path of the user config file.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultDataDir returns the XDG data directory for brainboard.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// DefaultStorePath returns the path of the local libsql database.
func DefaultStorePath() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}
