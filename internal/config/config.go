// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH" envDefault:"./data/fairshare.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	// RedisURL enables the Redis notifier and trigger queue when set.
	RedisURL             string        `env:"REDIS_URL"`
	NotifyChannel        string        `env:"NOTIFY_CHANNEL" envDefault:"fairshare:events"`
	ScheduleKey          string        `env:"SCHEDULE_KEY" envDefault:"fairshare:settlements"`
	// SchedulePollInterval is also the retry delay after a failed delivery.
	SchedulePollInterval time.Duration `env:"SCHEDULE_POLL_INTERVAL" envDefault:"5s"`
	SettlementWindow     time.Duration `env:"SETTLEMENT_WINDOW" envDefault:"160s"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

// Load reads .env if present, then parses the environment.
func Load() (*Config, error) {
	// A missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that depend on each other.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}
	if c.SchedulePollInterval <= 0 {
		errs = append(errs, errors.New("SCHEDULE_POLL_INTERVAL must be positive"))
	}
	if c.SettlementWindow < 0 {
		errs = append(errs, errors.New("SETTLEMENT_WINDOW must not be negative"))
	}
	return errors.Join(errs...)
}
