// Package memory implements the domain store interfaces in process memory.
// It backs simulation runs with persistence disabled and the orchestrator
// tests; semantics (idempotent upserts, explicit pruning) mirror the
// Postgres implementation.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/thermalcommons/coolmarket/internal/domain"
)

// Store holds trades and history snapshots in maps guarded by one mutex.
type Store struct {
	mu      sync.RWMutex
	trades  map[string]domain.Trade
	history map[int64]domain.Snapshot
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		trades:  make(map[string]domain.Trade),
		history: make(map[int64]domain.Snapshot),
	}
}

// UpsertBatch stores trades keyed by id; replaying a trade id is a no-op.
func (s *Store) UpsertBatch(_ context.Context, trades []domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range trades {
		if _, exists := s.trades[t.ID]; exists {
			continue
		}
		s.trades[t.ID] = t
	}
	return nil
}

// ListRecent returns up to limit trades, most recent first.
func (s *Store) ListRecent(_ context.Context, limit int) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Trade, 0, len(s.trades))
	for _, t := range s.trades {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].ExecutedAt.Equal(all[j].ExecutedAt) {
			return all[i].ExecutedAt.After(all[j].ExecutedAt)
		}
		return all[i].ID > all[j].ID
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ListBefore returns trades executed strictly before the cutoff, oldest first.
func (s *Store) ListBefore(_ context.Context, before time.Time) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Trade
	for _, t := range s.trades {
		if t.ExecutedAt.Before(before) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecutedAt.Before(out[j].ExecutedAt) })
	return out, nil
}

// DeleteBefore removes trades executed before the cutoff.
func (s *Store) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, t := range s.trades {
		if t.ExecutedAt.Before(before) {
			delete(s.trades, id)
			n++
		}
	}
	return n, nil
}

// UpsertSnapshot stores a snapshot keyed by step, replacing any earlier row.
func (s *Store) UpsertSnapshot(_ context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[snap.Step] = snap
	return nil
}

// ListRecentSnapshots returns up to limit snapshots, highest step first.
func (s *Store) ListRecentSnapshots(_ context.Context, limit int) ([]domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Snapshot, 0, len(s.history))
	for _, snap := range s.history {
		all = append(all, snap)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Step > all[j].Step })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ListSnapshotsBefore returns snapshots with step below the cutoff, oldest first.
func (s *Store) ListSnapshotsBefore(_ context.Context, step int64) ([]domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Snapshot
	for _, snap := range s.history {
		if snap.Step < step {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

// DeleteSnapshotsBefore removes snapshots with step below the cutoff.
func (s *Store) DeleteSnapshotsBefore(_ context.Context, step int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k := range s.history {
		if k < step {
			delete(s.history, k)
			n++
		}
	}
	return n, nil
}

// TradeCount reports the number of stored trades, for tests and stats.
func (s *Store) TradeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trades)
}

// HistoryView adapts Store to domain.HistoryStore: the snapshot methods
// carry distinct names on Store so it can satisfy both interfaces at once.
type HistoryView struct{ *Store }

func (h HistoryView) UpsertSnapshot(ctx context.Context, snap domain.Snapshot) error {
	return h.Store.UpsertSnapshot(ctx, snap)
}

func (h HistoryView) ListRecent(ctx context.Context, limit int) ([]domain.Snapshot, error) {
	return h.Store.ListRecentSnapshots(ctx, limit)
}

func (h HistoryView) ListBefore(ctx context.Context, step int64) ([]domain.Snapshot, error) {
	return h.Store.ListSnapshotsBefore(ctx, step)
}

func (h HistoryView) DeleteBefore(ctx context.Context, step int64) (int64, error) {
	return h.Store.DeleteSnapshotsBefore(ctx, step)
}

// Compile-time interface checks.
var (
	_ domain.TradeStore   = (*Store)(nil)
	_ domain.HistoryStore = HistoryView{}
)
