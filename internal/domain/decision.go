package domain

// StrategyTag names the pricing branch that produced a decision.
type StrategyTag string

const (
	StrategyAggressive    StrategyTag = "aggressive"
	StrategyConservative  StrategyTag = "conservative"
	StrategyOpportunistic StrategyTag = "opportunistic"
	StrategyAdaptive      StrategyTag = "adaptive"
)

// Decision is the decision engine's output for one building and one tick:
// the prices and quantities for the bid/ask pair, the strategy that chose
// them, and a human-readable justification. Pure value, never persisted.
type Decision struct {
	BidPrice    float64     `json:"bid_price"`
	AskPrice    float64     `json:"ask_price"`
	BidQuantity float64     `json:"bid_quantity"`
	AskQuantity float64     `json:"ask_quantity"`
	Reasoning   string      `json:"reasoning"`
	Strategy    StrategyTag `json:"strategy"`
	Confidence  float64     `json:"confidence"` // [0,1]
}
