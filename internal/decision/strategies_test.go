package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thermalcommons/coolmarket/internal/domain"
)

func TestSelectVariantPriorityChain(t *testing.T) {
	tests := []struct {
		name string
		f    Factors
		want domain.StrategyTag
	}{
		{
			name: "critical stress with high power picks aggressive",
			f:    Factors{Level: domain.StressCritical, Power: 0.8, Stress: 0.9},
			want: domain.StrategyAggressive,
		},
		{
			name: "high stress with high power picks aggressive",
			f:    Factors{Level: domain.StressHigh, Power: 0.71, Stress: 0.9},
			want: domain.StrategyAggressive,
		},
		{
			name: "high stress with low power falls through aggressive",
			f:    Factors{Level: domain.StressHigh, Power: 0.5, Stress: 0.9},
			want: domain.StrategyAdaptive,
		},
		{
			name: "calm grid and comfortable temp picks conservative",
			f:    Factors{Level: domain.StressLow, Temp: 0.1, Stress: 0.25},
			want: domain.StrategyConservative,
		},
		{
			name: "calm grid but warm building is not conservative",
			f:    Factors{Level: domain.StressLow, Temp: 0.5, Stress: 0.25},
			want: domain.StrategyAdaptive,
		},
		{
			name: "good track record picks opportunistic",
			f:    Factors{Level: domain.StressMedium, SuccessRate: 0.7, AvgPriceReceived: 9.5},
			want: domain.StrategyOpportunistic,
		},
		{
			name: "good success rate without a sell average stays adaptive",
			f:    Factors{Level: domain.StressMedium, SuccessRate: 0.7},
			want: domain.StrategyAdaptive,
		},
		{
			name: "aggressive outranks opportunistic",
			f: Factors{
				Level: domain.StressCritical, Power: 0.9, Stress: 1.0,
				SuccessRate: 0.9, AvgPriceReceived: 12.0,
			},
			want: domain.StrategyAggressive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectVariant(tt.f).tag)
		})
	}
}

func TestAggressivePricing(t *testing.T) {
	f := Factors{Level: domain.StressCritical, Power: 1.0, Stress: 1.0, Temp: 1.0}
	d := decideAggressive(f, 80.0)

	assert.InDelta(t, 25.0, d.BidPrice, 1e-9) // 8 + 12 + 5
	assert.InDelta(t, 16.0, d.AskPrice, 1e-9) // 6 + 10
	assert.InDelta(t, 12.0, d.BidQuantity, 1e-9)
	assert.InDelta(t, 16.0, d.AskQuantity, 1e-9)
	assert.Equal(t, 0.85, d.Confidence)
}

func TestConservativeAsksHighWhenComfortable(t *testing.T) {
	f := Factors{Level: domain.StressLow, Stress: 0.25, Temp: 0.0}
	d := decideConservative(f, 50.0)

	assert.InDelta(t, 4.0, d.BidPrice, 1e-9)  // 3 + 0.25*4
	assert.InDelta(t, 13.0, d.AskPrice, 1e-9) // 8 + 5*(1-0)
	assert.Greater(t, d.AskPrice, d.BidPrice)
	assert.Equal(t, 0.75, d.Confidence)
}

func TestOpportunisticAnchorsOnAverage(t *testing.T) {
	f := Factors{SuccessRate: 0.8, AvgPriceReceived: 10.0}
	d := decideOpportunistic(f, 60.0)

	// Anchor = 10 * 1.10 = 11; bid 9.9, ask 12.1.
	assert.InDelta(t, 9.9, d.BidPrice, 1e-9)
	assert.InDelta(t, 12.1, d.AskPrice, 1e-9)
	assert.Equal(t, 0.80, d.Confidence)
}

func TestAdaptiveUrgencyBlend(t *testing.T) {
	f := Factors{Stress: 0.5, Power: 0.5, Temp: 0.5}
	u := f.Urgency()
	assert.InDelta(t, 0.5, u, 1e-9)

	d := decideAdaptive(f, 40.0)
	assert.InDelta(t, 5.0+u*8.0, d.BidPrice, 1e-9)
	assert.InDelta(t, 7.0+u*6.0, d.AskPrice, 1e-9)
	assert.Equal(t, 0.70, d.Confidence)
	assert.NotEmpty(t, d.Reasoning)
}
