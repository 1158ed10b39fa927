package handler

import (
	"log/slog"
	"net/http"

	"github.com/thermalcommons/coolmarket/internal/domain"
	"github.com/thermalcommons/coolmarket/internal/sim"
)

// MarketHandler serves market state: the order book, trades, grid stress,
// snapshot history, and summary statistics. Live state comes from the
// simulation engine; history falls back to the trade store when one is
// configured.
type MarketHandler struct {
	engine  *sim.Engine
	trades  domain.TradeStore
	history domain.HistoryStore
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler. The stores may be nil, in which
// case only in-memory state is served.
func NewMarketHandler(engine *sim.Engine, trades domain.TradeStore, history domain.HistoryStore, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		engine:  engine,
		trades:  trades,
		history: history,
		logger:  logger.With(slog.String("handler", "market")),
	}
}

// GetBook returns the post-match order book from the latest tick.
// GET /api/book
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.BookSnapshot())
}

// ListTrades returns recent trades. The rolling in-memory window answers
// small requests; larger ones fall through to the store.
// GET /api/trades?limit=N
func (h *MarketHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	trades := h.engine.RecentTrades(limit)
	if len(trades) < limit && h.trades != nil {
		stored, err := h.trades.ListRecent(r.Context(), limit)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "list trades from store failed",
				slog.Any("error", err))
		} else if len(stored) > len(trades) {
			trades = stored
		}
	}
	if trades == nil {
		trades = []domain.Trade{}
	}

	writeJSON(w, http.StatusOK, trades)
}

// GetGrid returns the current grid stress signal.
// GET /api/grid
func (h *MarketHandler) GetGrid(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.CurrentSignal())
}

// GetStats returns summary statistics over the rolling trade window.
// GET /api/stats
func (h *MarketHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Stats())
}

// ListHistory returns persisted snapshots, newest first. Without a history
// store only the latest in-memory snapshot is available.
// GET /api/history?limit=N
func (h *MarketHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	if h.history == nil {
		latest := h.engine.LatestSnapshot()
		if latest.Step == 0 {
			writeJSON(w, http.StatusOK, []domain.Snapshot{})
			return
		}
		writeJSON(w, http.StatusOK, []domain.Snapshot{latest})
		return
	}

	snaps, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list history failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if snaps == nil {
		snaps = []domain.Snapshot{}
	}

	writeJSON(w, http.StatusOK, snaps)
}
