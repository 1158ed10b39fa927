package market

import (
	"log/slog"

	"github.com/thermalcommons/coolmarket/internal/domain"
)

// Matcher runs the single-pass continuous double auction over an order
// book. The scan is O(bids x asks); fine at district scale and deliberately
// not optimised, because any reordering would change which orders trade.
type Matcher struct {
	logger *slog.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(logger *slog.Logger) *Matcher {
	return &Matcher{logger: logger.With(slog.String("component", "matcher"))}
}

// Match executes one matching pass and returns the trades produced, in
// execution order. Bids are taken by price descending and asks by price
// ascending, ties broken by earliest CreatedAt then id. A bid never matches
// an ask from its own building, trade price is the bid/ask midpoint, and
// partial fills leave the remainder open and eligible within the same pass.
// Finding no match is a normal, silent outcome.
func (m *Matcher) Match(book *OrderBook) []domain.Trade {
	var trades []domain.Trade

	for {
		matched := false

		bids := book.OpenBids()
		asks := book.OpenAsks()

		for _, bid := range bids {
			curBid, ok := book.Get(bid.ID)
			if !ok {
				continue
			}
			for _, ask := range asks {
				if ask.Price > bid.Price {
					// Asks are sorted ascending: nothing further crosses.
					break
				}
				if ask.BuildingID == bid.BuildingID {
					continue
				}
				curAsk, ok := book.Get(ask.ID)
				if !ok {
					// Exhausted earlier in this pass.
					continue
				}

				qty := curBid.Quantity
				if curAsk.Quantity < qty {
					qty = curAsk.Quantity
				}
				if qty <= 0 {
					continue
				}

				price := (bid.Price + ask.Price) / 2.0
				trade := domain.NewTrade(bid.ID, ask.ID, price, qty)
				trades = append(trades, trade)

				m.applyFill(book, bid.ID, curBid.Quantity-qty)
				m.applyFill(book, ask.ID, curAsk.Quantity-qty)

				m.logger.Debug("trade executed",
					slog.String("trade", trade.ID),
					slog.String("bid", bid.ID),
					slog.String("ask", ask.ID),
					slog.Float64("price", price),
					slog.Float64("quantity", qty),
				)

				matched = true
				break
			}
		}

		if !matched {
			return trades
		}
	}
}

// applyFill reduces an order's remaining quantity; a zero remainder removes
// the order from the book (filled).
func (m *Matcher) applyFill(book *OrderBook, id string, remaining float64) {
	if err := book.UpdateQuantity(id, remaining); err != nil {
		// Only possible if the order vanished mid-pass, which the Get
		// above rules out; log rather than corrupt the pass.
		m.logger.Warn("fill bookkeeping failed",
			slog.String("order", id),
			slog.String("error", err.Error()),
		)
	}
}
