// Package telemetry defines the telemetry source consumed by the tick
// loop and a synthetic implementation for simulation runs. A real deployment
// would satisfy Source with a BMS-backed reader instead.
package telemetry

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/thermalcommons/coolmarket/internal/domain"
)

// Source yields one reading per building per tick.
type Source interface {
	// Read returns the reading for one building at the given step.
	Read(buildingID string, step int64) (domain.Telemetry, error)
}

// BuildingIDs produces the simulated district roster: Building_01 .. Building_NN.
func BuildingIDs(n int) []string {
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, fmt.Sprintf("Building_%02d", i))
	}
	return ids
}

// Synthetic produces plausible tropical-climate readings: each building has
// a stable baseline derived from its id plus a per-step random walk, so the
// same (building, step) pair always yields the same reading.
type Synthetic struct{}

// NewSynthetic creates a Synthetic source.
func NewSynthetic() *Synthetic { return &Synthetic{} }

// Read derives the reading for one building and step.
func (s *Synthetic) Read(buildingID string, step int64) (domain.Telemetry, error) {
	base := seed(buildingID)
	baseTemp := 23.5 + float64(base%10)/10.0
	baseHumidity := 55.0 + float64(seed(buildingID+"h")%15)
	basePower := 45.0 + float64(seed(buildingID+"p")%25)

	r := rand.New(rand.NewSource(step + int64(base)))
	temp := baseTemp + (r.Float64()-0.5)*2.0
	humidity := baseHumidity + (r.Float64()-0.5)*10.0
	power := basePower + (r.Float64()-0.5)*20.0
	if power < 10.0 {
		power = 10.0
	}

	tel, err := domain.NewTelemetry(buildingID, round1(temp), round0(humidity), round1(power))
	if err != nil {
		return domain.Telemetry{}, fmt.Errorf("telemetry: synthetic read %s step %d: %w", buildingID, step, err)
	}
	return tel, nil
}

func seed(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

func round1(v float64) float64 { return float64(int(v*10+0.5)) / 10 }
func round0(v float64) float64 { return float64(int(v + 0.5)) }
