// Package decision implements the per-building bid/ask decision engine: a
// deterministic multi-factor heuristic over telemetry, grid stress, and a
// rolling trade-history window. It never errors out of the strategy chain;
// every call yields a valid, auditable decision.
package decision

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/thermalcommons/coolmarket/internal/domain"
)

const (
	// historyWindow bounds the rolling trade memory per engine.
	historyWindow = 50

	// Post-processing floors applied to every decision.
	minPrice    = 0.5
	minQuantity = 1.0
)

// memory is the engine's rolling bookkeeping. Owned and mutated only by its
// engine instance; never shared across buildings.
type memory struct {
	window      []domain.Trade
	observed    int
	successful  int
	sumPaid     float64
	paidCount   int
	sumReceived float64
	recvCount   int
	avgPaid     float64
	avgReceived float64
}

func (m *memory) successRate() float64 {
	return float64(m.successful) / math.Max(1, float64(m.observed))
}

// Engine makes bid/ask decisions for one building. Not safe for concurrent
// use; the orchestrator owns one engine per building in its state map.
type Engine struct {
	buildingID string
	ttl        time.Duration
	logger     *slog.Logger
	mem        memory
}

// NewEngine creates an engine for the given building. Orders it emits carry
// the given TTL.
func NewEngine(buildingID string, ttl time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		buildingID: buildingID,
		ttl:        ttl,
		logger: logger.With(
			slog.String("component", "decision"),
			slog.String("building", buildingID),
		),
	}
}

// Decide analyses the current reading and grid signal and returns the
// decision together with the concrete bid and ask orders ready for the book.
func (e *Engine) Decide(t domain.Telemetry, sig *domain.GridStressSignal) (domain.Decision, domain.Order, domain.Order, error) {
	f := computeFactors(t, sig, &e.mem)
	v := selectVariant(f)

	d := v.decide(f, t.PowerLoadKW)
	d.BidPrice = round2(math.Max(minPrice, d.BidPrice))
	d.AskPrice = round2(math.Max(minPrice, d.AskPrice))
	d.BidQuantity = round1(math.Max(minQuantity, d.BidQuantity))
	d.AskQuantity = round1(math.Max(minQuantity, d.AskQuantity))

	bid, err := domain.NewBid(e.buildingID, d.BidPrice, d.BidQuantity, e.ttl)
	if err != nil {
		return domain.Decision{}, domain.Order{}, domain.Order{}, fmt.Errorf("decision: %w", err)
	}
	ask, err := domain.NewAsk(e.buildingID, d.AskPrice, d.AskQuantity, e.ttl)
	if err != nil {
		return domain.Decision{}, domain.Order{}, domain.Order{}, fmt.Errorf("decision: %w", err)
	}
	bid.Reasoning = d.Reasoning
	ask.Reasoning = d.Reasoning

	e.logger.Debug("decision made",
		slog.String("strategy", string(d.Strategy)),
		slog.Float64("bid_price", d.BidPrice),
		slog.Float64("ask_price", d.AskPrice),
		slog.Float64("confidence", d.Confidence),
	)

	return d, bid, ask, nil
}

// ObserveMarket feeds the tick's executed trades into the rolling window.
// This is bookkeeping, not learning: it only maintains the counters and
// window the opportunistic branch reads.
func (e *Engine) ObserveMarket(trades []domain.Trade) {
	if len(trades) == 0 {
		return
	}
	e.mem.window = append(e.mem.window, trades...)
	if n := len(e.mem.window); n > historyWindow {
		e.mem.window = e.mem.window[n-historyWindow:]
	}
	e.mem.observed += len(trades)
}

// RecordFill tells the engine that one of its own orders traded. Side is
// the side of this building's order in the trade: buy updates the average
// price paid, sell the average price received.
func (e *Engine) RecordFill(t domain.Trade, side domain.OrderSide) {
	e.mem.successful++
	switch side {
	case domain.OrderSideBuy:
		e.mem.sumPaid += t.Price
		e.mem.paidCount++
		e.mem.avgPaid = e.mem.sumPaid / float64(e.mem.paidCount)
	case domain.OrderSideSell:
		e.mem.sumReceived += t.Price
		e.mem.recvCount++
		e.mem.avgReceived = e.mem.sumReceived / float64(e.mem.recvCount)
	}
}

// AvgPriceReceived exposes the running average sell price, for stats.
func (e *Engine) AvgPriceReceived() float64 { return e.mem.avgReceived }

// AvgPricePaid exposes the running average buy price, for stats.
func (e *Engine) AvgPricePaid() float64 { return e.mem.avgPaid }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
