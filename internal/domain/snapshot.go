package domain

import "time"

// OrderBookSnapshot is an immutable point-in-time copy of the open orders.
// It serializes to JSON and round-trips without loss, which is what the
// read-only API and the dashboard consume.
type OrderBookSnapshot struct {
	Bids []Order   `json:"bids"`
	Asks []Order   `json:"asks"`
	At   time.Time `json:"at"`
}

// Snapshot is one persisted simulation history record, keyed by a
// monotonically increasing step number. Snapshots are written on a
// decimation schedule (every Kth tick) to bound write volume.
type Snapshot struct {
	Step           int64                `json:"step"`
	Timestamp      time.Time            `json:"timestamp"`
	Telemetry      map[string]Telemetry `json:"telemetry"`
	GridStress     StressLevel          `json:"grid_stress"`
	TotalEnergyKWH float64              `json:"total_energy_kwh"`
}
