package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderSide indicates whether this is a buy (bid) or sell (ask) order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus tracks the order lifecycle. Transitions are monotone:
// open -> filled | cancelled | expired, never backwards.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
)

// Order is a limit order for energy capacity submitted by a building. The
// same shape serves both sides; Side tags bid vs ask. Quantity decreases in
// place on partial fills while Status stays open; it reaches filled only
// when the remaining quantity hits zero.
type Order struct {
	ID         string      `json:"id"`
	BuildingID string      `json:"building_id"`
	Side       OrderSide   `json:"side"`
	Price      float64     `json:"price"`
	Quantity   float64     `json:"quantity"`
	Status     OrderStatus `json:"status"`
	Reasoning  string      `json:"reasoning,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	ExpiresAt  time.Time   `json:"expires_at,omitzero"`
}

// NewBid constructs an open buy-side order. Orders with non-positive price
// or quantity are rejected here and never reach the book.
func NewBid(buildingID string, price, quantity float64, ttl time.Duration) (Order, error) {
	return newOrder("bid", buildingID, OrderSideBuy, price, quantity, ttl)
}

// NewAsk constructs an open sell-side order.
func NewAsk(buildingID string, price, quantity float64, ttl time.Duration) (Order, error) {
	return newOrder("ask", buildingID, OrderSideSell, price, quantity, ttl)
}

func newOrder(prefix, buildingID string, side OrderSide, price, quantity float64, ttl time.Duration) (Order, error) {
	if price <= 0 {
		return Order{}, fmt.Errorf("domain: new %s for %s: %w", prefix, buildingID, ErrInvalidPrice)
	}
	if quantity <= 0 {
		return Order{}, fmt.Errorf("domain: new %s for %s: %w", prefix, buildingID, ErrInvalidQuantity)
	}

	now := time.Now().UTC()
	o := Order{
		ID:         fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8]),
		BuildingID: buildingID,
		Side:       side,
		Price:      price,
		Quantity:   quantity,
		Status:     OrderStatusOpen,
		CreatedAt:  now,
	}
	if ttl > 0 {
		o.ExpiresAt = now.Add(ttl)
	}
	return o, nil
}

// Open reports whether the order can still participate in matching.
func (o Order) Open() bool {
	return o.Status == OrderStatusOpen
}

// Expired reports whether the order's TTL has elapsed at the given time.
// Orders without an expiry never expire.
func (o Order) Expired(at time.Time) bool {
	return !o.ExpiresAt.IsZero() && at.After(o.ExpiresAt)
}
