package decision

import (
	"github.com/thermalcommons/coolmarket/internal/domain"
)

const (
	// Comfort band: factor ramps from 0 at 22C to 1 at 28C.
	comfortBaseC  = 22.0
	comfortSpanC  = 6.0
	// Load normalisation ceiling for a single building, kW.
	maxLoadKW     = 80.0
	// Stress assumed when no grid signal is available.
	neutralStress = 0.5
)

// Factors is the explicit input struct for the strategy variants. All
// normalised fields are clamped to [0,1]; the heuristic is a deterministic,
// side-effect-free function over this struct.
type Factors struct {
	Temp   float64            // (tempC - 22) / 6, clamped
	Power  float64            // powerLoadKW / 80, clamped
	Stress float64            // grid signal value, 0.5 without a signal
	Level  domain.StressLevel // grid signal level, medium without a signal

	SuccessRate      float64 // successful / max(1, observed)
	AvgPriceReceived float64 // running average sell price, 0 until first fill
}

// Urgency is the adaptive branch's blended score.
func (f Factors) Urgency() float64 {
	return 0.4*f.Stress + 0.3*f.Power + 0.3*f.Temp
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// computeFactors derives Factors from one reading, the current grid signal
// (nil-safe) and the engine's rolling trade memory.
func computeFactors(t domain.Telemetry, sig *domain.GridStressSignal, mem *memory) Factors {
	f := Factors{
		Temp:   clamp01((t.TempC - comfortBaseC) / comfortSpanC),
		Power:  clamp01(t.PowerLoadKW / maxLoadKW),
		Stress: neutralStress,
		Level:  domain.StressMedium,
	}
	if sig != nil {
		f.Stress = sig.Value
		f.Level = sig.Level
	}
	if mem != nil {
		f.SuccessRate = mem.successRate()
		f.AvgPriceReceived = mem.avgReceived
	}
	return f
}
