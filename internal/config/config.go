// Package config defines the top-level configuration for the market
// simulator and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/thermalcommons/coolmarket/internal/carbon"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by COOL_* environment variables.
type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	Grid       GridConfig       `toml:"grid"`
	Consumer   ConsumerConfig   `toml:"consumer"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Archive    ArchiveConfig    `toml:"archive"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// SimulationConfig holds the tick loop parameters.
type SimulationConfig struct {
	Buildings       int      `toml:"buildings"`
	TickInterval    duration `toml:"tick_interval"`
	SnapshotEvery   int64    `toml:"snapshot_every"`
	OrderTTL        duration `toml:"order_ttl"`
	TradeWindow     int      `toml:"trade_window"`
	BootstrapTrades int      `toml:"bootstrap_trades"`
	CarbonFactorKg  float64  `toml:"carbon_factor_kg"`
}

// GridConfig holds the stress signal generator parameters.
type GridConfig struct {
	CycleMinutes int    `toml:"cycle_minutes"`
	PeakLevel    string `toml:"peak_level"`
}

// ConsumerConfig holds the background matching consumer parameters.
type ConsumerConfig struct {
	Enabled      bool     `toml:"enabled"`
	QueueSize    int      `toml:"queue_size"`
	PollInterval duration `toml:"poll_interval"`
	ErrorBudget  int      `toml:"error_budget"`
}

// PostgresConfig holds PostgreSQL connection parameters. Enabled=false runs
// the simulator with in-memory persistence only.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the signal bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for archiving.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the explicit archive mode. KeepSnapshots is the
// number of most recent history rows left in the primary store.
type ArchiveConfig struct {
	RetentionDays int   `toml:"retention_days"`
	KeepSnapshots int64 `toml:"keep_snapshots"`
	Prune         bool  `toml:"prune"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel parameters.
type NotifyConfig struct {
	WebhookURL string   `toml:"webhook_url"`
	Events     []string `toml:"events"`
}

// duration wraps time.Duration for TOML decoding of strings like "5s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. These
// match config.example.toml.
func Defaults() Config {
	return Config{
		Simulation: SimulationConfig{
			Buildings:       8,
			TickInterval:    duration{5 * time.Second},
			SnapshotEvery:   10,
			OrderTTL:        duration{5 * time.Minute},
			TradeWindow:     100,
			BootstrapTrades: 100,
			CarbonFactorKg:  carbon.DefaultFactorKgPerKWH,
		},
		Grid: GridConfig{
			CycleMinutes: 60,
			PeakLevel:    "high",
		},
		Consumer: ConsumerConfig{
			Enabled:      false,
			QueueSize:    256,
			PollInterval: duration{time.Second},
			ErrorBudget:  5,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "coolmarket",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "coolmarket-data",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			RetentionDays: 30,
			KeepSnapshots: 1000,
			Prune:         false,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Mode:     "sim",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"sim":     true,
	"archive": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validPeakLevels = map[string]bool{
	"low":      true,
	"medium":   true,
	"high":     true,
	"critical": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: sim, archive)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Simulation.Buildings < 1 {
		errs = append(errs, "simulation: buildings must be >= 1")
	}
	if c.Simulation.TickInterval.Duration <= 0 {
		errs = append(errs, "simulation: tick_interval must be positive")
	}
	if c.Simulation.SnapshotEvery < 1 {
		errs = append(errs, "simulation: snapshot_every must be >= 1")
	}
	if c.Simulation.TradeWindow < 1 {
		errs = append(errs, "simulation: trade_window must be >= 1")
	}

	if c.Grid.CycleMinutes < 1 {
		errs = append(errs, "grid: cycle_minutes must be >= 1")
	}
	if !validPeakLevels[strings.ToLower(c.Grid.PeakLevel)] {
		errs = append(errs, fmt.Sprintf("grid: unknown peak_level %q (valid: low, medium, high, critical)", c.Grid.PeakLevel))
	}

	if c.Consumer.Enabled {
		if c.Consumer.QueueSize < 1 {
			errs = append(errs, "consumer: queue_size must be >= 1")
		}
		if c.Consumer.ErrorBudget < 1 {
			errs = append(errs, "consumer: error_budget must be >= 1")
		}
	}

	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when enabled")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	if strings.ToLower(c.Mode) == "archive" {
		if !c.S3.Enabled {
			errs = append(errs, "archive mode requires s3.enabled = true")
		}
		if !c.Postgres.Enabled {
			errs = append(errs, "archive mode requires postgres.enabled = true")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.KeepSnapshots < 0 {
			errs = append(errs, "archive: keep_snapshots must be >= 0")
		}
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
