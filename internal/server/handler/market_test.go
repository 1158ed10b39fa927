package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermalcommons/coolmarket/internal/bus"
	"github.com/thermalcommons/coolmarket/internal/domain"
	"github.com/thermalcommons/coolmarket/internal/gridstress"
	"github.com/thermalcommons/coolmarket/internal/sim"
	"github.com/thermalcommons/coolmarket/internal/store/memory"
)

type mixedSource struct{}

func (mixedSource) Read(buildingID string, _ int64) (domain.Telemetry, error) {
	switch buildingID {
	case "Building_01":
		return domain.NewTelemetry(buildingID, 27.9, 60.0, 79.0)
	default:
		return domain.NewTelemetry(buildingID, 24.0, 50.0, 36.0)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T) (*MarketHandler, *sim.Engine, *memory.Store) {
	t.Helper()

	store := memory.New()
	history := memory.HistoryView{Store: store}
	cfg := sim.Config{
		Buildings:     2,
		TickInterval:  time.Millisecond,
		SnapshotEvery: 1,
		OrderTTL:      time.Minute,
	}
	engine := sim.New(cfg, mixedSource{}, gridstress.New(60, domain.StressHigh), bus.New(testLogger()), sim.Deps{
		Trades:  store,
		History: history,
	}, testLogger())

	for i := 0; i < 3; i++ {
		require.NoError(t, engine.Tick(context.Background()))
	}

	return NewMarketHandler(engine, store, history, testLogger()), engine, store
}

func get(t *testing.T, fn http.HandlerFunc, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	return rec
}

func TestGetBook(t *testing.T) {
	h, engine, _ := newTestHandler(t)

	var snap domain.OrderBookSnapshot
	rec := get(t, h.GetBook, "/api/book", &snap)

	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	want := engine.BookSnapshot()
	assert.Len(t, snap.Bids, len(want.Bids))
	assert.Len(t, snap.Asks, len(want.Asks))
}

func TestListTrades(t *testing.T) {
	h, engine, _ := newTestHandler(t)

	var trades []domain.Trade
	get(t, h.ListTrades, "/api/trades?limit=10", &trades)

	require.NotEmpty(t, trades)
	assert.Len(t, trades, len(engine.RecentTrades(10)))
	for _, tr := range trades {
		assert.Positive(t, tr.Price)
		assert.Positive(t, tr.Quantity)
	}
}

func TestListTradesFallsBackToStore(t *testing.T) {
	h, _, store := newTestHandler(t)

	// Ask for more than the window holds so the store path runs too.
	var trades []domain.Trade
	get(t, h.ListTrades, "/api/trades?limit=500", &trades)
	assert.Len(t, trades, store.TradeCount())
}

func TestGetGrid(t *testing.T) {
	h, engine, _ := newTestHandler(t)

	var sig domain.GridStressSignal
	get(t, h.GetGrid, "/api/grid", &sig)

	assert.Equal(t, engine.CurrentSignal().Level, sig.Level)
	assert.InDelta(t, engine.CurrentSignal().Value, sig.Value, 1e-9)
}

func TestGetStats(t *testing.T) {
	h, engine, _ := newTestHandler(t)

	var stats sim.Stats
	get(t, h.GetStats, "/api/stats", &stats)

	assert.Equal(t, engine.Step(), stats.Step)
	assert.Equal(t, engine.Stats().TradeCount, stats.TradeCount)
}

func TestListHistory(t *testing.T) {
	h, _, _ := newTestHandler(t)

	var snaps []domain.Snapshot
	get(t, h.ListHistory, "/api/history?limit=10", &snaps)

	// SnapshotEvery=1 over 3 ticks.
	require.Len(t, snaps, 3)
	assert.Equal(t, int64(3), snaps[0].Step)
}

func TestListHistoryWithoutStoreServesLatest(t *testing.T) {
	_, engine, _ := newTestHandler(t)
	bare := NewMarketHandler(engine, nil, nil, testLogger())

	var snaps []domain.Snapshot
	get(t, bare.ListHistory, "/api/history", &snaps)

	require.Len(t, snaps, 1)
	assert.Equal(t, engine.LatestSnapshot().Step, snaps[0].Step)
}
