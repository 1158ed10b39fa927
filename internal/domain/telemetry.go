package domain

import (
	"fmt"
	"time"
)

// Telemetry is a single building's sensor reading for one tick. Readings are
// immutable snapshots, produced fresh each tick and discarded after
// consumption.
type Telemetry struct {
	BuildingID  string    `json:"building_id"`
	TempC       float64   `json:"temp_c"`
	HumidityPct float64   `json:"humidity_pct"`
	PowerLoadKW float64   `json:"power_load_kw"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewTelemetry validates and constructs a reading. Ranges follow tropical
// commercial-building envelopes: 15-35 C, 0-100 %RH, non-negative load.
func NewTelemetry(buildingID string, tempC, humidityPct, powerLoadKW float64) (Telemetry, error) {
	if tempC < 15.0 || tempC > 35.0 {
		return Telemetry{}, fmt.Errorf("domain: temp %.1fC for %s: %w", tempC, buildingID, ErrInvalidReading)
	}
	if humidityPct < 0.0 || humidityPct > 100.0 {
		return Telemetry{}, fmt.Errorf("domain: humidity %.1f%% for %s: %w", humidityPct, buildingID, ErrInvalidReading)
	}
	if powerLoadKW < 0.0 {
		return Telemetry{}, fmt.Errorf("domain: power %.1fkW for %s: %w", powerLoadKW, buildingID, ErrInvalidReading)
	}
	return Telemetry{
		BuildingID:  buildingID,
		TempC:       tempC,
		HumidityPct: humidityPct,
		PowerLoadKW: powerLoadKW,
		Timestamp:   time.Now().UTC(),
	}, nil
}
