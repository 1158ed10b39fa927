// Package market implements the per-tick order book and the continuous
// double-auction matching engine. The book is rebuilt fresh each tick;
// unmatched orders do not rest across ticks.
package market

import (
	"fmt"
	"sort"
	"time"

	"github.com/thermalcommons/coolmarket/internal/domain"
)

// OrderBook is a per-tick mutable collection of orders. It has a single
// logical owner per tick (the orchestrator), so it is not synchronised.
type OrderBook struct {
	orders map[string]*domain.Order
	seq    []string // insertion order, for stable iteration
}

// NewOrderBook returns an empty book.
func NewOrderBook() *OrderBook {
	return &OrderBook{orders: make(map[string]*domain.Order)}
}

// Add accepts an order into the book. Only open orders with positive price
// and quantity are accepted; anything else was rejected at construction and
// indicates a caller bug.
func (b *OrderBook) Add(o domain.Order) error {
	if !o.Open() {
		return fmt.Errorf("market: add %s: %w", o.ID, domain.ErrOrderNotOpen)
	}
	if o.Price <= 0 {
		return fmt.Errorf("market: add %s: %w", o.ID, domain.ErrInvalidPrice)
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("market: add %s: %w", o.ID, domain.ErrInvalidQuantity)
	}
	if _, dup := b.orders[o.ID]; !dup {
		b.seq = append(b.seq, o.ID)
	}
	b.orders[o.ID] = &o
	return nil
}

// Remove deletes an order by id. Removing an unknown id reports
// ErrOrderNotFound.
func (b *OrderBook) Remove(id string) error {
	if _, ok := b.orders[id]; !ok {
		return fmt.Errorf("market: remove %s: %w", id, domain.ErrOrderNotFound)
	}
	delete(b.orders, id)
	return nil
}

// UpdateQuantity replaces an order's remaining quantity in place, keeping it
// open. A new quantity at or below zero removes the order instead.
func (b *OrderBook) UpdateQuantity(id string, quantity float64) error {
	o, ok := b.orders[id]
	if !ok {
		return fmt.Errorf("market: update %s: %w", id, domain.ErrOrderNotFound)
	}
	if quantity <= 0 {
		delete(b.orders, id)
		return nil
	}
	o.Quantity = quantity
	return nil
}

// Get returns a copy of the order with the given id.
func (b *OrderBook) Get(id string) (domain.Order, bool) {
	o, ok := b.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return *o, true
}

// Len returns the number of orders currently in the book.
func (b *OrderBook) Len() int { return len(b.orders) }

// OpenBids returns the open, unexpired buy orders sorted for matching: price
// descending, then earliest CreatedAt, then id. The tie-break makes the
// matching pass deterministic.
func (b *OrderBook) OpenBids() []domain.Order {
	bids := b.side(domain.OrderSideBuy)
	sort.Slice(bids, func(i, j int) bool {
		if bids[i].Price != bids[j].Price {
			return bids[i].Price > bids[j].Price
		}
		return olderFirst(bids[i], bids[j])
	})
	return bids
}

// OpenAsks returns the open, unexpired sell orders sorted for matching: price
// ascending, then earliest CreatedAt, then id.
func (b *OrderBook) OpenAsks() []domain.Order {
	asks := b.side(domain.OrderSideSell)
	sort.Slice(asks, func(i, j int) bool {
		if asks[i].Price != asks[j].Price {
			return asks[i].Price < asks[j].Price
		}
		return olderFirst(asks[i], asks[j])
	})
	return asks
}

func olderFirst(a, b domain.Order) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (b *OrderBook) side(side domain.OrderSide) []domain.Order {
	now := time.Now().UTC()
	var out []domain.Order
	for _, id := range b.seq {
		o, ok := b.orders[id]
		if !ok || o.Side != side || !o.Open() || o.Expired(now) {
			continue
		}
		out = append(out, *o)
	}
	return out
}

// Snapshot returns an immutable point-in-time copy of the open orders.
func (b *OrderBook) Snapshot() domain.OrderBookSnapshot {
	return domain.OrderBookSnapshot{
		Bids: b.OpenBids(),
		Asks: b.OpenAsks(),
		At:   time.Now().UTC(),
	}
}
