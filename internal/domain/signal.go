package domain

import "time"

// StressLevel is the severity band of a demand-response signal.
type StressLevel string

const (
	StressLow      StressLevel = "low"
	StressMedium   StressLevel = "medium"
	StressHigh     StressLevel = "high"
	StressCritical StressLevel = "critical"
)

// Elevated reports whether the level is high or critical, the bands that
// push bidding toward aggressive load shedding.
func (l StressLevel) Elevated() bool {
	return l == StressHigh || l == StressCritical
}

// GridStressSignal is a synthetic demand-response severity indicator derived
// purely from elapsed time. Immutable; valid from StartsAt to EndsAt.
type GridStressSignal struct {
	Level    StressLevel `json:"level"`
	Value    float64     `json:"value"` // normalised to [0,1]
	StartsAt time.Time   `json:"starts_at"`
	EndsAt   time.Time   `json:"ends_at"`
}
