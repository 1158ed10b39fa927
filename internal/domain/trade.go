package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Trade is an executed match between one bid and one ask from two distinct
// buildings. Trades are immutable once created.
type Trade struct {
	ID         string    `json:"id"`
	BidID      string    `json:"bid_id"`
	AskID      string    `json:"ask_id"`
	Price      float64   `json:"price"`
	Quantity   float64   `json:"quantity"`
	ExecutedAt time.Time `json:"executed_at"`
}

// NewTrade creates a trade with a fresh id and execution timestamp.
func NewTrade(bidID, askID string, price, quantity float64) Trade {
	return Trade{
		ID:         fmt.Sprintf("trade-%s", uuid.NewString()[:8]),
		BidID:      bidID,
		AskID:      askID,
		Price:      price,
		Quantity:   quantity,
		ExecutedAt: time.Now().UTC(),
	}
}

// TradeEvent is the payload published on the event bus for every executed
// trade, enriched with buyer/seller attribution and their decision reasoning
// when available.
type TradeEvent struct {
	TradeID         string    `json:"trade_id"`
	BidID           string    `json:"bid_id"`
	AskID           string    `json:"ask_id"`
	Price           float64   `json:"price"`
	Quantity        float64   `json:"quantity"`
	ExecutedAt      time.Time `json:"executed_at"`
	BuyerBuildingID string    `json:"buyer_building_id"`
	SellerBuildingID string   `json:"seller_building_id"`
	BuyerReasoning  string    `json:"buyer_reasoning,omitempty"`
	SellerReasoning string    `json:"seller_reasoning,omitempty"`
}
