// Package gridstress produces cyclic demand-response signals that drive
// bidding urgency. The generator is a pure function of elapsed wall-clock
// time and a lazily fixed epoch; restarting the process resets the phase.
package gridstress

import (
	"sync"
	"time"

	"github.com/thermalcommons/coolmarket/internal/domain"
)

// Generator cycles low -> medium -> peak -> medium over a configurable
// period. The epoch is fixed on the first Signal call, not at construction.
type Generator struct {
	cycle time.Duration
	peak  domain.StressLevel

	mu    sync.Mutex
	epoch time.Time
}

// New creates a Generator with the given cycle length and peak level.
// A zero or negative cycle falls back to 60 minutes; an empty peak level
// falls back to high.
func New(cycleMinutes int, peak domain.StressLevel) *Generator {
	if cycleMinutes <= 0 {
		cycleMinutes = 60
	}
	if peak == "" {
		peak = domain.StressHigh
	}
	return &Generator{
		cycle: time.Duration(cycleMinutes) * time.Minute,
		peak:  peak,
	}
}

// Signal returns the stress signal for the current wall-clock time.
func (g *Generator) Signal() domain.GridStressSignal {
	return g.SignalAt(time.Now().UTC())
}

// SignalAt returns the stress signal for an arbitrary time. The first call
// fixes the epoch; phase is the fraction of the cycle elapsed since then.
func (g *Generator) SignalAt(at time.Time) domain.GridStressSignal {
	g.mu.Lock()
	if g.epoch.IsZero() {
		g.epoch = at
	}
	epoch := g.epoch
	g.mu.Unlock()

	elapsed := at.Sub(epoch) % g.cycle
	if elapsed < 0 {
		elapsed += g.cycle
	}
	phase := float64(elapsed) / float64(g.cycle)

	var (
		level domain.StressLevel
		value float64
	)
	switch {
	case phase < 0.25:
		level, value = domain.StressLow, 0.25
	case phase < 0.5:
		level, value = domain.StressMedium, 0.5
	case phase < 0.75:
		level, value = g.peak, 0.9
	default:
		level, value = domain.StressMedium, 0.5
	}

	return domain.GridStressSignal{
		Level:    level,
		Value:    value,
		StartsAt: at,
		EndsAt:   at.Add(g.cycle / 4),
	}
}
