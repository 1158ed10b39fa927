package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thermalcommons/coolmarket/internal/domain"
)

// OrderPair is one externally submitted bid/ask candidate for the consumer.
type OrderPair struct {
	Bid domain.Order
	Ask domain.Order
}

// TradeSink receives trades produced by the consumer.
type TradeSink func(domain.Trade)

// Consumer is the optional background matching variant: it drains a queue
// of externally submitted bid/ask pairs one at a time. It polls with a
// bounded timeout so a cancelled context is observed within one interval,
// and it halts with ErrConsumerHalted once a configured number of
// consecutive processing errors is exceeded, so a corrupted queue cannot
// spin forever.
type Consumer struct {
	queue        chan OrderPair
	pollInterval time.Duration
	errorBudget  int
	sink         TradeSink
	logger       *slog.Logger
}

// NewConsumer creates a Consumer with the given queue capacity, poll
// interval, and consecutive-error budget. The sink is invoked synchronously
// for every trade produced; it may be nil.
func NewConsumer(queueSize int, pollInterval time.Duration, errorBudget int, sink TradeSink, logger *slog.Logger) *Consumer {
	if queueSize <= 0 {
		queueSize = 256
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if errorBudget <= 0 {
		errorBudget = 5
	}
	return &Consumer{
		queue:        make(chan OrderPair, queueSize),
		pollInterval: pollInterval,
		errorBudget:  errorBudget,
		sink:         sink,
		logger:       logger.With(slog.String("component", "consumer")),
	}
}

// Submit enqueues a pair for matching. When the queue is full it blocks
// until space frees up or the context is cancelled.
func (c *Consumer) Submit(ctx context.Context, pair OrderPair) error {
	select {
	case c.queue <- pair:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until the context is cancelled or the error budget
// is exceeded. Cancellation returns ctx.Err(); an exhausted budget returns
// ErrConsumerHalted, a fatal condition the operator must see.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("matching consumer started",
		slog.Duration("poll_interval", c.pollInterval),
		slog.Int("error_budget", c.errorBudget),
	)

	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	consecutive := 0
	for {
		timer.Reset(c.pollInterval)

		select {
		case <-ctx.Done():
			c.logger.Info("matching consumer stopped")
			return ctx.Err()
		case <-timer.C:
			// Poll timeout: nothing queued, check for cancellation again.
			continue
		case pair := <-c.queue:
			if err := c.process(pair); err != nil {
				consecutive++
				c.logger.Error("pair rejected",
					slog.String("bid", pair.Bid.ID),
					slog.String("ask", pair.Ask.ID),
					slog.Int("consecutive_errors", consecutive),
					slog.String("error", err.Error()),
				)
				if consecutive >= c.errorBudget {
					return fmt.Errorf("market: after %d consecutive errors: %w",
						consecutive, domain.ErrConsumerHalted)
				}
				continue
			}
			consecutive = 0
		}
	}
}

// process validates one pair and executes it when the prices cross. A
// non-crossing pair is not an error, just no trade.
func (c *Consumer) process(pair OrderPair) error {
	bid, ask := pair.Bid, pair.Ask

	if !bid.Open() || !ask.Open() {
		return fmt.Errorf("market: consumer pair %s/%s: %w", bid.ID, ask.ID, domain.ErrOrderNotOpen)
	}
	now := time.Now().UTC()
	if bid.Expired(now) || ask.Expired(now) {
		return fmt.Errorf("market: consumer pair %s/%s: %w", bid.ID, ask.ID, domain.ErrOrderExpired)
	}
	if bid.Price <= 0 || ask.Price <= 0 {
		return fmt.Errorf("market: consumer pair %s/%s: %w", bid.ID, ask.ID, domain.ErrInvalidPrice)
	}
	if bid.Quantity <= 0 || ask.Quantity <= 0 {
		return fmt.Errorf("market: consumer pair %s/%s: %w", bid.ID, ask.ID, domain.ErrInvalidQuantity)
	}
	if bid.BuildingID == ask.BuildingID {
		return fmt.Errorf("market: consumer pair %s/%s: self-trade for %s",
			bid.ID, ask.ID, bid.BuildingID)
	}

	if bid.Price < ask.Price {
		return nil
	}

	qty := bid.Quantity
	if ask.Quantity < qty {
		qty = ask.Quantity
	}
	trade := domain.NewTrade(bid.ID, ask.ID, (bid.Price+ask.Price)/2.0, qty)
	if c.sink != nil {
		c.sink(trade)
	}
	return nil
}
