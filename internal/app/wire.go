package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/thermalcommons/coolmarket/internal/blob/s3"
	"github.com/thermalcommons/coolmarket/internal/bus"
	"github.com/thermalcommons/coolmarket/internal/cache/redis"
	"github.com/thermalcommons/coolmarket/internal/config"
	"github.com/thermalcommons/coolmarket/internal/domain"
	"github.com/thermalcommons/coolmarket/internal/notify"
	"github.com/thermalcommons/coolmarket/internal/store/memory"
	"github.com/thermalcommons/coolmarket/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. Wire constructs it; the returned cleanup function tears it down.
type Dependencies struct {
	// Stores. Always non-nil: without Postgres they fall back to the
	// in-memory implementation (reduced durability).
	Trades  domain.TradeStore
	History domain.HistoryStore

	// Signals is the external pub/sub bridge; nil when Redis is disabled.
	Signals domain.SignalBus

	// Blob storage; nil unless S3 is enabled.
	BlobWriter domain.BlobWriter
	Archiver   *s3blob.Archiver

	// EventBus is the in-process synchronous bus, always present.
	EventBus *bus.Bus

	// Notifier delivers operator alerts; has no senders when no webhook is
	// configured.
	Notifier *notify.Notifier

	// Durable reports whether persistence is backed by Postgres.
	Durable bool
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them with a cleanup function.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		EventBus: bus.New(logger),
	}

	// --- Persistence ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.Trades = postgres.NewTradeStore(pgClient)
		deps.History = postgres.NewHistoryStore(pgClient)
		deps.Durable = true
	} else {
		store := memory.New()
		deps.Trades = store
		deps.History = memory.HistoryView{Store: store}
		logger.Warn("postgres disabled, using in-memory persistence")
	}

	// --- Redis signal bus ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Signals = redis.NewSignalBus(redisClient)
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3 health: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.Trades, deps.History, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.WebhookURL != "" {
		senders = append(senders, notify.NewWebhookSender(cfg.Notify.WebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
