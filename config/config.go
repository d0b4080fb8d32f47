package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Scan       ScanConfig       `yaml:"scan"`
	NATS       NATSConfig       `yaml:"nats"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" env:"CCSTOCK_PORT, overwrite"`
	UserHeader      string  `yaml:"user_header" env:"CCSTOCK_USER_HEADER, overwrite"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" env:"CCSTOCK_RATE_LIMIT_PER_SEC, overwrite"`
	RateLimitBurst  int     `yaml:"rate_limit_burst" env:"CCSTOCK_RATE_LIMIT_BURST, overwrite"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds" env:"CCSTOCK_CACHE_TTL_SECONDS, overwrite"`

	CacheTTL time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" env:"CCSTOCK_DATABASE_DRIVER, overwrite"`
	DSN                    string `yaml:"dsn" env:"CCSTOCK_DATABASE_DSN, overwrite"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ScanConfig controls the lifetime of scan pairing sessions.
type ScanConfig struct {
	SessionTTLSeconds int `yaml:"session_ttl_seconds" env:"CCSTOCK_SCAN_SESSION_TTL_SECONDS, overwrite"`
	// PendingTTLSeconds of 0 keeps a captured half scan until it is paired or cancelled.
	PendingTTLSeconds int `yaml:"pending_ttl_seconds" env:"CCSTOCK_SCAN_PENDING_TTL_SECONDS, overwrite"`

	SessionTTL time.Duration `yaml:"-"`
	PendingTTL time.Duration `yaml:"-"`
}

// NATSConfig enables the cross-instance placement relay when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url" env:"CCSTOCK_NATS_URL, overwrite"`
	Subject string `yaml:"subject" env:"CCSTOCK_NATS_SUBJECT, overwrite"`
	Stream  string `yaml:"stream" env:"CCSTOCK_NATS_STREAM, overwrite"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" env:"CCSTOCK_VAPID_PUBLIC_KEY, overwrite"`
	PrivateKey string `yaml:"vapid_private_key" env:"CCSTOCK_VAPID_PRIVATE_KEY, overwrite"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string `yaml:"level" env:"CCSTOCK_LOG_LEVEL, overwrite"`
	Format string `yaml:"format" env:"CCSTOCK_LOG_FORMAT, overwrite"`
}

// Load reads the configuration from the given path and applies CCSTOCK_*
// environment overrides.
func Load(path string) (*Config, error) {
	return LoadWith(context.Background(), path, envconfig.OsLookuper())
}

// LoadWith is Load with an explicit environment lookuper.
func LoadWith(ctx context.Context, path string, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case os.IsNotExist(err):
		log.Warn().Str("path", path).Msg("config file not found; using defaults and environment")
	default:
		return nil, err
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.UserHeader == "" {
		cfg.Server.UserHeader = "X-User-Email"
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Scan.SessionTTLSeconds <= 0 {
		cfg.Scan.SessionTTLSeconds = 12 * 60 * 60
	}
	cfg.Scan.SessionTTL = time.Duration(cfg.Scan.SessionTTLSeconds) * time.Second
	if cfg.Scan.PendingTTLSeconds < 0 {
		cfg.Scan.PendingTTLSeconds = 0
	}
	cfg.Scan.PendingTTL = time.Duration(cfg.Scan.PendingTTLSeconds) * time.Second

	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = "ccstock.placements"
	}
	if cfg.NATS.Stream == "" {
		cfg.NATS.Stream = "CCSTOCK"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Debug().Msg("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
