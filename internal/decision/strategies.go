package decision

import (
	"fmt"

	"github.com/thermalcommons/coolmarket/internal/domain"
)

// adaptationFactor is the markup applied on top of the running average when
// replicating a previously successful price point.
const adaptationFactor = 0.10

// variant is one branch of the strategy chain: a predicate over the factor
// struct plus a pure pricing function. Branches are evaluated in order and
// the first match wins; each is independently unit-testable.
type variant struct {
	tag     domain.StrategyTag
	applies func(Factors) bool
	decide  func(Factors, float64) domain.Decision
}

// chain is the priority-ordered strategy dispatch. The adaptive variant
// matches unconditionally, so selection always succeeds.
var chain = []variant{
	{
		tag: domain.StrategyAggressive,
		applies: func(f Factors) bool {
			return f.Level.Elevated() && f.Power > 0.7
		},
		decide: decideAggressive,
	},
	{
		tag: domain.StrategyConservative,
		applies: func(f Factors) bool {
			return f.Level == domain.StressLow && f.Temp < 0.3
		},
		decide: decideConservative,
	},
	{
		tag: domain.StrategyOpportunistic,
		applies: func(f Factors) bool {
			return f.SuccessRate > 0.6 && f.AvgPriceReceived > 0
		},
		decide: decideOpportunistic,
	},
	{
		tag:     domain.StrategyAdaptive,
		applies: func(Factors) bool { return true },
		decide:  decideAdaptive,
	},
}

// decideAggressive maximises load shedding under elevated grid stress:
// prices scale up with stress and temperature, quantities with load.
func decideAggressive(f Factors, loadKW float64) domain.Decision {
	return domain.Decision{
		BidPrice:    8.0 + f.Stress*12.0 + f.Temp*5.0,
		AskPrice:    6.0 + f.Stress*10.0,
		BidQuantity: loadKW * 0.15,
		AskQuantity: loadKW * 0.20,
		Strategy:    domain.StrategyAggressive,
		Confidence:  0.85,
		Reasoning: fmt.Sprintf(
			"high grid stress (%s) with high power load (%.1fkW): shedding aggressively to support the grid",
			f.Level, loadKW),
	}
}

// decideConservative minimises participation when the grid is calm and the
// building is comfortable; the ask is priced high (reluctant seller).
func decideConservative(f Factors, loadKW float64) domain.Decision {
	return domain.Decision{
		BidPrice:    3.0 + f.Stress*4.0,
		AskPrice:    8.0 + (1.0-f.Temp)*5.0,
		BidQuantity: loadKW * 0.05,
		AskQuantity: loadKW * 0.08,
		Strategy:    domain.StrategyConservative,
		Confidence:  0.75,
		Reasoning: fmt.Sprintf(
			"low grid stress with comfortable temperature (factor %.2f): maintaining comfort, minimal participation",
			f.Temp),
	}
}

// decideOpportunistic anchors on the running average sell price after a run
// of successful trades, bidding below and asking above the anchor.
func decideOpportunistic(f Factors, loadKW float64) domain.Decision {
	anchor := f.AvgPriceReceived * (1.0 + adaptationFactor)
	return domain.Decision{
		BidPrice:    anchor * 0.9,
		AskPrice:    anchor * 1.1,
		BidQuantity: loadKW * 0.10,
		AskQuantity: loadKW * 0.12,
		Strategy:    domain.StrategyOpportunistic,
		Confidence:  0.80,
		Reasoning: fmt.Sprintf(
			"success rate %.0f%% with avg price %.2f: replicating the working price point, adjusted by %.0f%%",
			f.SuccessRate*100, f.AvgPriceReceived, adaptationFactor*100),
	}
}

// decideAdaptive is the default branch: price and quantity scale linearly
// with the blended urgency score.
func decideAdaptive(f Factors, loadKW float64) domain.Decision {
	u := f.Urgency()
	return domain.Decision{
		BidPrice:    5.0 + u*8.0,
		AskPrice:    7.0 + u*6.0,
		BidQuantity: loadKW * (0.08 + u*0.07),
		AskQuantity: loadKW * (0.10 + u*0.08),
		Strategy:    domain.StrategyAdaptive,
		Confidence:  0.70,
		Reasoning: fmt.Sprintf(
			"adaptive: urgency %.2f (stress %.2f, power %.2f, temp %.2f), balancing grid needs with comfort",
			u, f.Stress, f.Power, f.Temp),
	}
}

// selectVariant walks the chain and returns the first matching variant.
func selectVariant(f Factors) variant {
	for _, v := range chain {
		if v.applies(f) {
			return v
		}
	}
	// Unreachable: the adaptive variant always applies.
	return chain[len(chain)-1]
}
