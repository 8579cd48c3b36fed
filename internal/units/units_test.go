package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	t.Parallel()

	for _, unit := range ValidUnits {
		assert.True(t, IsValid(unit), "unit %q should be valid", unit)
	}
	assert.False(t, IsValid("furlongs"))
	assert.False(t, IsValid(""))
}

func TestConvertSpeed(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 10.0, ConvertSpeed(10, MPS))
	assert.InDelta(t, 36.0, ConvertSpeed(10, KMPH), 1e-9)
	assert.InDelta(t, 36.0, ConvertSpeed(10, KPH), 1e-9)
	assert.InDelta(t, 22.369362920544, ConvertSpeed(10, MPH), 1e-9)

	// Unknown units pass the value through unchanged.
	assert.Equal(t, 10.0, ConvertSpeed(10, "bogus"))
}

func TestDistanceConversions(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, MetersToMiles(1609.344), 1e-12)
	assert.InDelta(t, 1609.344, MilesToMeters(1), 1e-12)

	// Round trip.
	assert.InDelta(t, 420.0, MilesToMeters(MetersToMiles(420)), 1e-9)
}

func TestMPSToKMH(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 130.0, MPSToKMH(36.111111111), 1e-6)
}
