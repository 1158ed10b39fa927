package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies COOL_* environment variable overrides, and
// returns the final Config. The caller should invoke Config.Validate()
// afterwards.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env if present; a missing file is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known COOL_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Simulation ──
	setInt(&cfg.Simulation.Buildings, "COOL_SIMULATION_BUILDINGS")
	setDuration(&cfg.Simulation.TickInterval, "COOL_SIMULATION_TICK_INTERVAL")
	setInt64(&cfg.Simulation.SnapshotEvery, "COOL_SIMULATION_SNAPSHOT_EVERY")
	setDuration(&cfg.Simulation.OrderTTL, "COOL_SIMULATION_ORDER_TTL")
	setInt(&cfg.Simulation.TradeWindow, "COOL_SIMULATION_TRADE_WINDOW")
	setInt(&cfg.Simulation.BootstrapTrades, "COOL_SIMULATION_BOOTSTRAP_TRADES")
	setFloat(&cfg.Simulation.CarbonFactorKg, "COOL_SIMULATION_CARBON_FACTOR_KG")

	// ── Grid ──
	setInt(&cfg.Grid.CycleMinutes, "COOL_GRID_CYCLE_MINUTES")
	setStr(&cfg.Grid.PeakLevel, "COOL_GRID_PEAK_LEVEL")

	// ── Consumer ──
	setBool(&cfg.Consumer.Enabled, "COOL_CONSUMER_ENABLED")
	setInt(&cfg.Consumer.QueueSize, "COOL_CONSUMER_QUEUE_SIZE")
	setDuration(&cfg.Consumer.PollInterval, "COOL_CONSUMER_POLL_INTERVAL")
	setInt(&cfg.Consumer.ErrorBudget, "COOL_CONSUMER_ERROR_BUDGET")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "COOL_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "COOL_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "COOL_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "COOL_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "COOL_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "COOL_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "COOL_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "COOL_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "COOL_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "COOL_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "COOL_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "COOL_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "COOL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "COOL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "COOL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "COOL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "COOL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "COOL_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "COOL_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "COOL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "COOL_S3_REGION")
	setStr(&cfg.S3.Bucket, "COOL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "COOL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "COOL_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "COOL_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "COOL_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setInt(&cfg.Archive.RetentionDays, "COOL_ARCHIVE_RETENTION_DAYS")
	setInt64(&cfg.Archive.KeepSnapshots, "COOL_ARCHIVE_KEEP_SNAPSHOTS")
	setBool(&cfg.Archive.Prune, "COOL_ARCHIVE_PRUNE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "COOL_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "COOL_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "COOL_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "COOL_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.WebhookURL, "COOL_NOTIFY_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "COOL_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "COOL_MODE")
	setStr(&cfg.LogLevel, "COOL_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
