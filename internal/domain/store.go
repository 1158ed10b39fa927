package domain

import (
	"context"
	"io"
	"time"
)

// TradeStore is the durable append log for executed trades. All writes are
// idempotent upserts keyed by trade id: replaying the same trade is a no-op.
type TradeStore interface {
	// UpsertBatch persists a batch of trades. Trades whose id already
	// exists are silently skipped.
	UpsertBatch(ctx context.Context, trades []Trade) error

	// ListRecent returns up to limit trades, most recent first.
	ListRecent(ctx context.Context, limit int) ([]Trade, error)

	// ListBefore returns all trades executed strictly before the cutoff,
	// oldest first. Used by the archiver.
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)

	// DeleteBefore removes trades executed before the cutoff and returns
	// the number deleted. Pruning is always an explicit operation.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// HistoryStore persists periodic simulation snapshots keyed by step.
type HistoryStore interface {
	// UpsertSnapshot persists a snapshot; writing the same step twice
	// replaces the earlier row.
	UpsertSnapshot(ctx context.Context, snap Snapshot) error

	// ListRecent returns up to limit snapshots, newest step first.
	ListRecent(ctx context.Context, limit int) ([]Snapshot, error)

	// ListBefore returns all snapshots with step strictly below the cutoff,
	// oldest first.
	ListBefore(ctx context.Context, step int64) ([]Snapshot, error)

	// DeleteBefore removes snapshots with step below the cutoff and returns
	// the number deleted.
	DeleteBefore(ctx context.Context, step int64) (int64, error)
}

// SignalBus fans simulation events out of the process, typically to Redis
// Pub/Sub, so dashboards can follow the market live. Implementations must be
// cheap: publishers call this synchronously from the tick loop.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter uploads archive objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error

	// PutMultipart uploads a large payload in concurrently uploaded parts.
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}
