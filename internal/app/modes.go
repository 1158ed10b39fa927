package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thermalcommons/coolmarket/internal/config"
	"github.com/thermalcommons/coolmarket/internal/domain"
	"github.com/thermalcommons/coolmarket/internal/gridstress"
	"github.com/thermalcommons/coolmarket/internal/market"
	"github.com/thermalcommons/coolmarket/internal/notify"
	"github.com/thermalcommons/coolmarket/internal/server"
	"github.com/thermalcommons/coolmarket/internal/server/handler"
	"github.com/thermalcommons/coolmarket/internal/server/ws"
	"github.com/thermalcommons/coolmarket/internal/sim"
	"github.com/thermalcommons/coolmarket/internal/telemetry"
)

// ordersChannel is the signal bus channel carrying externally submitted
// bid/ask pairs for the background matching consumer.
const ordersChannel = "orders"

// SimMode runs the tick loop, the optional background matching consumer,
// and the HTTP/WebSocket API.
func (a *App) SimMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sim mode")

	grid := gridstress.New(a.cfg.Grid.CycleMinutes,
		domain.StressLevel(strings.ToLower(a.cfg.Grid.PeakLevel)))

	engine := sim.New(simConfig(a.cfg), telemetry.NewSynthetic(), grid, deps.EventBus, sim.Deps{
		Trades:  deps.Trades,
		History: deps.History,
		Signals: deps.Signals,
	}, a.logger)

	if err := engine.Bootstrap(ctx); err != nil {
		return fmt.Errorf("sim mode: %w", err)
	}

	notify.WatchGridStress(ctx, deps.EventBus, deps.Notifier)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.Run(ctx)
	})

	if a.cfg.Consumer.Enabled {
		a.startConsumer(ctx, g, deps)
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, engine)
	}

	return g.Wait()
}

// startConsumer runs the background matching consumer fed by externally
// submitted order pairs on the signal bus.
func (a *App) startConsumer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Signals == nil {
		a.logger.Warn("consumer enabled but redis is disabled; no order source, skipping")
		return
	}

	consumer := market.NewConsumer(
		a.cfg.Consumer.QueueSize,
		a.cfg.Consumer.PollInterval.Duration,
		a.cfg.Consumer.ErrorBudget,
		func(trade domain.Trade) {
			if err := deps.Trades.UpsertBatch(ctx, []domain.Trade{trade}); err != nil {
				a.logger.Error("persist consumer trade failed", slog.Any("error", err))
			}
		},
		a.logger,
	)

	g.Go(func() error {
		err := consumer.Run(ctx)
		if err != nil && errors.Is(err, domain.ErrConsumerHalted) {
			// Fatal: the queue cannot self-heal, so this alert bypasses
			// the event filter.
			_ = deps.Notifier.NotifyAll(context.WithoutCancel(ctx),
				"Matching consumer halted", err.Error())
		}
		return err
	})

	g.Go(func() error {
		ch, err := deps.Signals.Subscribe(ctx, ordersChannel)
		if err != nil {
			return fmt.Errorf("sim mode: subscribe %s: %w", ordersChannel, err)
		}
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case data, ok := <-ch:
				if !ok {
					return nil
				}
				var pair market.OrderPair
				if err := json.Unmarshal(data, &pair); err != nil {
					a.logger.Warn("malformed order pair", slog.Any("error", err))
					continue
				}
				if err := consumer.Submit(ctx, pair); err != nil {
					return err
				}
			}
		}
	})
}

// startHTTPServer starts the API server and, when an external signal bus is
// available, the WebSocket hub.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, engine *sim.Engine) {
	var hub *ws.Hub
	if deps.Signals != nil {
		hub = ws.NewHub(deps.Signals, a.logger)
		g.Go(func() error {
			err := hub.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Market: handler.NewMarketHandler(engine, deps.Trades, deps.History, a.logger),
	}, hub, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// ArchiveMode uploads aged trades and history snapshots to object storage,
// optionally pruning them from the primary store, then exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	if deps.Archiver == nil {
		return fmt.Errorf("archive mode: s3 is not configured")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)

	tradeCount, err := deps.Archiver.ArchiveTrades(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archive mode: %w", err)
	}

	var snapCount int64
	latest, err := deps.History.ListRecent(ctx, 1)
	if err != nil {
		return fmt.Errorf("archive mode: latest snapshot: %w", err)
	}
	if len(latest) > 0 {
		beforeStep := latest[0].Step - a.cfg.Archive.KeepSnapshots
		if beforeStep > 0 {
			snapCount, err = deps.Archiver.ArchiveSnapshots(ctx, beforeStep)
			if err != nil {
				return fmt.Errorf("archive mode: %w", err)
			}
			if a.cfg.Archive.Prune && snapCount > 0 {
				if _, err := deps.Archiver.PruneSnapshots(ctx, beforeStep); err != nil {
					return fmt.Errorf("archive mode: %w", err)
				}
			}
		}
	}

	if a.cfg.Archive.Prune && tradeCount > 0 {
		if _, err := deps.Archiver.PruneTrades(ctx, cutoff); err != nil {
			return fmt.Errorf("archive mode: %w", err)
		}
	}

	summary := fmt.Sprintf("archived %d trades and %d snapshots (cutoff %s, prune=%v)",
		tradeCount, snapCount, cutoff.Format(time.RFC3339), a.cfg.Archive.Prune)
	a.logger.InfoContext(ctx, "archive complete",
		slog.Int64("trades", tradeCount),
		slog.Int64("snapshots", snapCount),
		slog.Bool("prune", a.cfg.Archive.Prune))
	_ = deps.Notifier.Notify(ctx, notify.EventArchiveDone, "Archive complete", summary)

	return nil
}

// simConfig maps the file configuration onto the engine configuration.
func simConfig(cfg *config.Config) sim.Config {
	return sim.Config{
		Buildings:       cfg.Simulation.Buildings,
		TickInterval:    cfg.Simulation.TickInterval.Duration,
		SnapshotEvery:   cfg.Simulation.SnapshotEvery,
		OrderTTL:        cfg.Simulation.OrderTTL.Duration,
		BootstrapTrades: cfg.Simulation.BootstrapTrades,
		TradeWindow:     cfg.Simulation.TradeWindow,
		CarbonFactorKg:  cfg.Simulation.CarbonFactorKg,
	}
}
