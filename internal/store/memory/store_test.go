package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermalcommons/coolmarket/internal/domain"
)

func trade(id string, executedAt time.Time) domain.Trade {
	return domain.Trade{
		ID:         id,
		BidID:      "bid-" + id,
		AskID:      "ask-" + id,
		Price:      9.0,
		Quantity:   5.0,
		ExecutedAt: executedAt,
	}
}

func TestUpsertBatchIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tr := trade("t1", at)
	require.NoError(t, s.UpsertBatch(ctx, []domain.Trade{tr}))
	require.NoError(t, s.UpsertBatch(ctx, []domain.Trade{tr}))
	require.NoError(t, s.UpsertBatch(ctx, []domain.Trade{tr, trade("t2", at)}))

	assert.Equal(t, 2, s.TradeCount())
}

func TestListRecentOrdersNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertBatch(ctx, []domain.Trade{
		trade("t1", base),
		trade("t2", base.Add(time.Minute)),
		trade("t3", base.Add(2*time.Minute)),
	}))

	got, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t3", got[0].ID)
	assert.Equal(t, "t2", got[1].ID)
}

func TestTradePruning(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertBatch(ctx, []domain.Trade{
		trade("old", base.Add(-time.Hour)),
		trade("new", base),
	}))

	listed, err := s.ListBefore(ctx, base)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "old", listed[0].ID)

	n, err := s.DeleteBefore(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, s.TradeCount())
}

func TestSnapshotUpsertKeyedByStep(t *testing.T) {
	s := New()
	h := HistoryView{s}
	ctx := context.Background()

	require.NoError(t, h.UpsertSnapshot(ctx, domain.Snapshot{Step: 5, TotalEnergyKWH: 10}))
	require.NoError(t, h.UpsertSnapshot(ctx, domain.Snapshot{Step: 5, TotalEnergyKWH: 20}))
	require.NoError(t, h.UpsertSnapshot(ctx, domain.Snapshot{Step: 10, TotalEnergyKWH: 30}))

	got, err := h.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Newest first, and the replayed step carries the latest value.
	assert.Equal(t, int64(10), got[0].Step)
	assert.Equal(t, int64(5), got[1].Step)
	assert.Equal(t, 20.0, got[1].TotalEnergyKWH)
}

func TestListRecentSnapshotsOrdersNewestFirst(t *testing.T) {
	s := New()
	h := HistoryView{s}
	ctx := context.Background()

	for step := int64(1); step <= 3; step++ {
		require.NoError(t, h.UpsertSnapshot(ctx, domain.Snapshot{Step: step}))
	}

	got, err := h.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].Step)
	assert.Equal(t, int64(2), got[1].Step)
}

func TestSnapshotPruning(t *testing.T) {
	s := New()
	h := HistoryView{s}
	ctx := context.Background()

	for step := int64(1); step <= 6; step++ {
		require.NoError(t, h.UpsertSnapshot(ctx, domain.Snapshot{Step: step}))
	}

	n, err := h.DeleteBefore(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := h.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(6), got[0].Step)
	assert.Equal(t, int64(4), got[2].Step)
}
