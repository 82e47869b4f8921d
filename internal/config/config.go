package config

import "time"

// Config is the complete brainboard configuration. Values come from, in
// increasing precedence: built-in defaults, the YAML config file, a .env
// file, BRAINBOARD_* environment variables and command-line flags.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Session   SessionConfig   `mapstructure:"session"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Mock      MockConfig      `mapstructure:"mock"`
}

// APIConfig points the client at the feed API.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SessionConfig controls credential handling.
type SessionConfig struct {
	// Codec is "xor" (obfuscation) or "aead" (XChaCha20-Poly1305).
	Codec           string        `mapstructure:"codec"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	MaxSessionAge   time.Duration `mapstructure:"max_session_age"`
}

// RateLimitConfig sizes the local request window.
type RateLimitConfig struct {
	MaxPerWindow int           `mapstructure:"max_per_window"`
	Window       time.Duration `mapstructure:"window"`
}

// UploadConfig bounds uploads.
type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// StoreConfig selects where credentials and the rate window live.
type StoreConfig struct {
	// Driver is libsql, redis or memory.
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	// RedisPrefix namespaces every key the redis backend writes.
	RedisPrefix string `mapstructure:"redis_prefix"`
}

// LoggingConfig controls the gofulmen loggers.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Environment is attached to structured server logs.
	Environment string `mapstructure:"environment"`
}

// MetricsConfig controls the Prometheus exporter started by mock-serve.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// MockConfig configures the simulated feed API.
type MockConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	RefreshTTL      time.Duration `mapstructure:"refresh_ttl"`
	SigningKey      string        `mapstructure:"signing_key"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	UploadDir       string        `mapstructure:"upload_dir"`
}
