// Package sim drives the market simulation: one tick reads telemetry,
// collects decisions, matches orders, and fans out the resulting trades.
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thermalcommons/coolmarket/internal/bus"
	"github.com/thermalcommons/coolmarket/internal/carbon"
	"github.com/thermalcommons/coolmarket/internal/decision"
	"github.com/thermalcommons/coolmarket/internal/domain"
	"github.com/thermalcommons/coolmarket/internal/gridstress"
	"github.com/thermalcommons/coolmarket/internal/market"
	"github.com/thermalcommons/coolmarket/internal/telemetry"
)

const (
	defaultTradeWindow   = 100
	defaultSnapshotEvery = 10
)

// Config controls the simulation loop.
type Config struct {
	// Buildings is the number of participants.
	Buildings int

	// TickInterval is the wall-clock delay between ticks in Run.
	TickInterval time.Duration

	// SnapshotEvery persists a full snapshot every Nth tick.
	SnapshotEvery int64

	// OrderTTL bounds how long an order stays valid.
	OrderTTL time.Duration

	// BootstrapTrades is how many recent trades to load on startup.
	BootstrapTrades int

	// TradeWindow bounds the rolling in-memory trade history.
	TradeWindow int

	// CarbonFactorKg is the grid emission factor in kg CO2 per kWh.
	CarbonFactorKg float64
}

// Deps carries the optional external collaborators. Nil stores and a nil
// signal bus degrade to in-memory-only operation.
type Deps struct {
	Trades  domain.TradeStore
	History domain.HistoryStore
	Signals domain.SignalBus
}

// Channel names used when forwarding events to the external signal bus.
const (
	SignalChannelTrades    = "trades"
	SignalChannelGrid      = "grid"
	SignalChannelTelemetry = "telemetry"
)

// Engine owns all cross-tick state. One tick runs to completion before the
// next begins; the read accessors take a lock so HTTP handlers can query
// concurrently with the loop.
type Engine struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	source  telemetry.Source
	grid    *gridstress.Generator
	bus     *bus.Bus
	matcher *market.Matcher
	carbon  *carbon.Calculator

	engines map[string]*decision.Engine

	mu          sync.RWMutex
	step        int64
	window      []domain.Trade
	totalEnergy float64
	lastLevel   domain.StressLevel
	lastSignal  domain.GridStressSignal
	lastBook    domain.OrderBookSnapshot
	lastSnap    domain.Snapshot
}

// New creates an Engine for the given participants.
func New(cfg Config, source telemetry.Source, grid *gridstress.Generator, eventBus *bus.Bus, deps Deps, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Buildings <= 0 {
		cfg.Buildings = 1
	}
	if cfg.SnapshotEvery <= 0 {
		cfg.SnapshotEvery = defaultSnapshotEvery
	}
	if cfg.TradeWindow <= 0 {
		cfg.TradeWindow = defaultTradeWindow
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 5 * time.Second
	}
	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = 5 * time.Minute
	}

	engines := make(map[string]*decision.Engine)
	for _, id := range telemetry.BuildingIDs(cfg.Buildings) {
		engines[id] = decision.NewEngine(id, cfg.OrderTTL, logger)
	}

	return &Engine{
		cfg:     cfg,
		deps:    deps,
		logger:  logger.With(slog.String("component", "sim")),
		source:  source,
		grid:    grid,
		bus:     eventBus,
		matcher: market.NewMatcher(logger),
		carbon:  carbon.NewCalculator(cfg.CarbonFactorKg),
		engines: engines,
	}
}

// Bootstrap pre-warms rolling state from the stores after a restart. Missing
// stores are skipped; load errors are returned so the operator sees them.
func (e *Engine) Bootstrap(ctx context.Context) error {
	if e.deps.Trades != nil {
		limit := e.cfg.BootstrapTrades
		if limit <= 0 {
			limit = e.cfg.TradeWindow
		}
		trades, err := e.deps.Trades.ListRecent(ctx, limit)
		if err != nil {
			return fmt.Errorf("sim: bootstrap trades: %w", err)
		}
		// ListRecent is newest first; the window is oldest first.
		for i := len(trades) - 1; i >= 0; i-- {
			e.window = append(e.window, trades[i])
		}
		e.trimWindow()
		for _, eng := range e.engines {
			eng.ObserveMarket(e.window)
		}
		e.logger.Info("bootstrapped trades", slog.Int("count", len(trades)))
	}

	if e.deps.History != nil {
		snaps, err := e.deps.History.ListRecent(ctx, 1)
		if err != nil {
			return fmt.Errorf("sim: bootstrap snapshots: %w", err)
		}
		if len(snaps) > 0 {
			e.step = snaps[0].Step
			e.totalEnergy = snaps[0].TotalEnergyKWH
			e.lastSnap = snaps[0]
			e.logger.Info("bootstrapped snapshot",
				slog.Int64("step", e.step),
				slog.Float64("total_energy_kwh", e.totalEnergy))
		}
	}

	return nil
}

// Run ticks at the configured interval until the context is cancelled.
// Per-tick errors are logged and do not stop the loop.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	e.logger.Info("simulation loop started",
		slog.Int("buildings", e.cfg.Buildings),
		slog.Duration("tick_interval", e.cfg.TickInterval))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("simulation loop stopped", slog.Int64("step", e.Step()))
			return ctx.Err()
		case <-ticker.C:
			if err := e.Tick(ctx); err != nil {
				e.logger.Error("tick failed", slog.Any("error", err))
			}
		}
	}
}

// Tick runs one full simulation step.
func (e *Engine) Tick(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.step++
	step := e.step
	now := time.Now().UTC()

	// Telemetry for every participant.
	readings := make(map[string]domain.Telemetry, len(e.engines))
	for _, id := range telemetry.BuildingIDs(e.cfg.Buildings) {
		reading, err := e.source.Read(id, step)
		if err != nil {
			return fmt.Errorf("sim: read telemetry for %s: %w", id, err)
		}
		readings[id] = reading
	}
	e.bus.Publish(bus.TopicTelemetryUpdated, readings)

	// Grid stress, with a change event when the band shifts.
	sig := e.grid.Signal()
	if sig.Level != e.lastLevel {
		e.bus.Publish(bus.TopicGridStressChanged, sig)
		e.forward(ctx, SignalChannelGrid, sig)
		e.lastLevel = sig.Level
	}
	e.lastSignal = sig

	// Decisions feed a fresh book; unmatched orders do not rest across ticks.
	book := market.NewOrderBook()
	attribution := make(map[string]domain.Order)
	for id, eng := range e.engines {
		reading := readings[id]
		_, bid, ask, err := eng.Decide(reading, &sig)
		if err != nil {
			e.logger.Warn("decision failed",
				slog.String("building_id", id),
				slog.Any("error", err))
			continue
		}
		for _, o := range []domain.Order{bid, ask} {
			if err := book.Add(o); err != nil {
				e.logger.Warn("order rejected",
					slog.String("order_id", o.ID),
					slog.Any("error", err))
				continue
			}
			attribution[o.ID] = o
		}
	}

	trades := e.matcher.Match(book)
	e.lastBook = book.Snapshot()

	// Rolling state and per-participant bookkeeping.
	for _, trade := range trades {
		e.window = append(e.window, trade)
		e.totalEnergy += trade.Quantity

		bid := attribution[trade.BidID]
		ask := attribution[trade.AskID]
		if eng, ok := e.engines[bid.BuildingID]; ok {
			eng.RecordFill(trade, domain.OrderSideBuy)
		}
		if eng, ok := e.engines[ask.BuildingID]; ok {
			eng.RecordFill(trade, domain.OrderSideSell)
		}

		event := domain.TradeEvent{
			TradeID:          trade.ID,
			BidID:            trade.BidID,
			AskID:            trade.AskID,
			Price:            trade.Price,
			Quantity:         trade.Quantity,
			ExecutedAt:       trade.ExecutedAt,
			BuyerBuildingID:  bid.BuildingID,
			SellerBuildingID: ask.BuildingID,
			BuyerReasoning:   bid.Reasoning,
			SellerReasoning:  ask.Reasoning,
		}
		e.bus.Publish(bus.TopicTradeExecuted, event)
		e.forward(ctx, SignalChannelTrades, event)
	}
	e.trimWindow()
	for _, eng := range e.engines {
		eng.ObserveMarket(trades)
	}

	// Durability is best-effort: failures are logged, the tick completes.
	if e.deps.Trades != nil && len(trades) > 0 {
		if err := e.deps.Trades.UpsertBatch(ctx, trades); err != nil {
			e.logger.Error("persist trades failed",
				slog.Int64("step", step),
				slog.Any("error", err))
		}
	}

	snap := domain.Snapshot{
		Step:           step,
		Timestamp:      now,
		Telemetry:      readings,
		GridStress:     sig.Level,
		TotalEnergyKWH: e.totalEnergy,
	}
	e.lastSnap = snap
	e.forward(ctx, SignalChannelTelemetry, snap)

	if e.deps.History != nil && step%e.cfg.SnapshotEvery == 0 {
		if err := e.deps.History.UpsertSnapshot(ctx, snap); err != nil {
			e.logger.Error("persist snapshot failed",
				slog.Int64("step", step),
				slog.Any("error", err))
		}
	}

	e.logger.Info("tick complete",
		slog.Int64("step", step),
		slog.Int("orders", len(attribution)),
		slog.Int("trades", len(trades)),
		slog.String("grid_stress", string(sig.Level)),
		slog.Float64("total_energy_kwh", e.totalEnergy))

	return nil
}

// forward publishes a JSON payload to the external signal bus, best-effort.
func (e *Engine) forward(ctx context.Context, channel string, payload any) {
	if e.deps.Signals == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.Warn("marshal signal payload failed",
			slog.String("channel", channel),
			slog.Any("error", err))
		return
	}
	if err := e.deps.Signals.Publish(ctx, channel, data); err != nil {
		e.logger.Warn("publish signal failed",
			slog.String("channel", channel),
			slog.Any("error", err))
	}
}

func (e *Engine) trimWindow() {
	if len(e.window) > e.cfg.TradeWindow {
		e.window = e.window[len(e.window)-e.cfg.TradeWindow:]
	}
}

// Step returns the current tick number.
func (e *Engine) Step() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.step
}

// BookSnapshot returns the post-match order book from the latest tick.
func (e *Engine) BookSnapshot() domain.OrderBookSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastBook
}

// CurrentSignal returns the latest grid stress signal observed by the loop.
func (e *Engine) CurrentSignal() domain.GridStressSignal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSignal
}

// LatestSnapshot returns the most recent per-tick snapshot.
func (e *Engine) LatestSnapshot() domain.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSnap
}

// RecentTrades returns up to limit trades from the rolling window, newest
// first.
func (e *Engine) RecentTrades(limit int) []domain.Trade {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := len(e.window)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.Trade, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, e.window[i])
	}
	return out
}

// Stats summarises market activity for the API layer.
type Stats struct {
	Step              int64   `json:"step"`
	TotalEnergyKWH    float64 `json:"total_energy_kwh"`
	TradeCount        int     `json:"trade_count"`
	AvgPrice          float64 `json:"avg_price"`
	CarbonSavedKg     float64 `json:"carbon_saved_kg"`
	CarbonSavedTonnes float64 `json:"carbon_saved_tonnes"`
	GridStress        string  `json:"grid_stress"`
}

// Stats computes summary statistics over the rolling trade window.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var sum float64
	for _, t := range e.window {
		sum += t.Price
	}
	avg := 0.0
	if len(e.window) > 0 {
		avg = sum / float64(len(e.window))
	}

	return Stats{
		Step:              e.step,
		TotalEnergyKWH:    e.totalEnergy,
		TradeCount:        len(e.window),
		AvgPrice:          avg,
		CarbonSavedKg:     e.carbon.KgCO2(e.totalEnergy),
		CarbonSavedTonnes: e.carbon.TonnesCO2(e.totalEnergy),
		GridStress:        string(e.lastSignal.Level),
	}
}
