package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildingIDs(t *testing.T) {
	ids := BuildingIDs(3)
	assert.Equal(t, []string{"Building_01", "Building_02", "Building_03"}, ids)
}

func TestSyntheticIsDeterministicPerStep(t *testing.T) {
	src := NewSynthetic()

	a, err := src.Read("Building_01", 7)
	require.NoError(t, err)
	b, err := src.Read("Building_01", 7)
	require.NoError(t, err)
	assert.Equal(t, a.TempC, b.TempC)
	assert.Equal(t, a.PowerLoadKW, b.PowerLoadKW)

	// A different step drifts the reading.
	c, err := src.Read("Building_01", 8)
	require.NoError(t, err)
	assert.NotEqual(t, [2]float64{a.TempC, a.PowerLoadKW}, [2]float64{c.TempC, c.PowerLoadKW})
}

func TestSyntheticStaysInValidRanges(t *testing.T) {
	src := NewSynthetic()
	for _, id := range BuildingIDs(20) {
		for step := int64(0); step < 50; step++ {
			tel, err := src.Read(id, step)
			require.NoError(t, err, "building %s step %d", id, step)
			assert.GreaterOrEqual(t, tel.PowerLoadKW, 10.0)
			assert.InDelta(t, 60.0, tel.HumidityPct, 40.0)
		}
	}
}
