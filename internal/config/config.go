// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :4000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; required for server, worker, migrate, and seed.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTAccessSecret signs access tokens (HS256); min 16 bytes.
	JWTAccessSecret string `mapstructure:"JWT_ACCESS_SECRET"`
	// JWTRefreshSecret signs refresh tokens (HS256); min 16 bytes, must differ from JWT_ACCESS_SECRET.
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// WorkerConcurrency is the number of concurrent provisioning workers; default 5.
	WorkerConcurrency int `mapstructure:"WORKER_CONCURRENCY"`
	// ProvisionMaxAttempts is the delivery attempt limit per job; default 3.
	ProvisionMaxAttempts int `mapstructure:"PROVISION_MAX_ATTEMPTS"`
	// ProvisionBackoffBase is the first retry delay (doubles per attempt); default "1s".
	ProvisionBackoffBase string `mapstructure:"PROVISION_BACKOFF_BASE"`
	// ProvisionDryRun selects the dry-run provisioner instead of touching real servers; default true.
	ProvisionDryRun bool `mapstructure:"PROVISION_DRY_RUN"`
	// AdminEmail is the seed admin account email (cmd/seed only).
	AdminEmail string `mapstructure:"ADMIN_EMAIL"`
	// AdminPassword is the seed admin account password (cmd/seed only).
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Events (optional). When Kafka brokers are set, the queue and worker emit
	// provisioning lifecycle events to Kafka.
	// KafkaBrokers is a comma-separated list of broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// ProvisionKafkaTopic is the topic for provisioning events (default pnm-provision-events).
	ProvisionKafkaTopic string `mapstructure:"PROVISION_KAFKA_TOPIC"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":4000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("WORKER_CONCURRENCY", 5)
	v.SetDefault("PROVISION_MAX_ATTEMPTS", 3)
	v.SetDefault("PROVISION_BACKOFF_BASE", "1s")
	v.SetDefault("PROVISION_DRY_RUN", true)
	v.SetDefault("ADMIN_EMAIL", "admin@pnm.local")
	v.SetDefault("ADMIN_PASSWORD", "AdminPass123")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("PROVISION_KAFKA_TOPIC", "pnm-provision-events")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if len(cfg.JWTAccessSecret) < 16 {
		return nil, errors.New("config: JWT_ACCESS_SECRET must be at least 16 bytes")
	}
	if len(cfg.JWTRefreshSecret) < 16 {
		return nil, errors.New("config: JWT_REFRESH_SECRET must be at least 16 bytes")
	}
	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.WorkerConcurrency <= 0 {
		return nil, errors.New("config: WORKER_CONCURRENCY must be positive")
	}
	if cfg.ProvisionMaxAttempts <= 0 {
		return nil, errors.New("config: PROVISION_MAX_ATTEMPTS must be positive")
	}

	for _, d := range []struct{ name, value string }{
		{"JWT_ACCESS_TTL", cfg.JWTAccessTTL},
		{"JWT_REFRESH_TTL", cfg.JWTRefreshTTL},
		{"PROVISION_BACKOFF_BASE", cfg.ProvisionBackoffBase},
	} {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("config: %s is not a valid duration: %q", d.name, d.value)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("config: %s must be positive: %q", d.name, d.value)
		}
	}

	return &cfg, nil
}

// AccessTTL returns JWTAccessTTL as a time.Duration. Load rejects invalid values.
func (c *Config) AccessTTL() time.Duration {
	d, _ := time.ParseDuration(c.JWTAccessTTL)
	return d
}

// RefreshTTL returns JWTRefreshTTL as a time.Duration. Load rejects invalid values.
func (c *Config) RefreshTTL() time.Duration {
	d, _ := time.ParseDuration(c.JWTRefreshTTL)
	return d
}

// BackoffBase returns ProvisionBackoffBase as a time.Duration. Load rejects invalid values.
func (c *Config) BackoffBase() time.Duration {
	d, _ := time.ParseDuration(c.ProvisionBackoffBase)
	return d
}

// KafkaBrokersList returns broker addresses from the comma-separated config.
// Used to decide if event publishing is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
