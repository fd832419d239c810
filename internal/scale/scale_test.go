package scale

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToBase(t *testing.T) {
	assert.Equal(t, 1500.0, ToBase(1.5, "thousands"))
	assert.Equal(t, 1_500_000.0, ToBase(1.5, "Millions"))
	assert.Equal(t, 2_000_000_000.0, ToBase(2, "billions"))
	assert.Equal(t, 7.0, ToBase(7, "units"))
}

func TestToBaseUnknownFactorLeavesValue(t *testing.T) {
	assert.Equal(t, 42.0, ToBase(42, "percent"))
	assert.Equal(t, 42.0, ToBase(42, ""))
}

func TestToBaseMissingPassesThrough(t *testing.T) {
	assert.True(t, math.IsNaN(ToBase(math.NaN(), "millions")))
	assert.True(t, math.IsInf(ToBase(math.Inf(1), "millions"), 1))
}

func TestMillionsDerivesFromBase(t *testing.T) {
	assert.Equal(t, 1.5, Millions(1_500_000))
	assert.Equal(t, 0.000001, Millions(1))
	assert.True(t, math.IsNaN(Millions(math.NaN())))
}

func TestMultiplierIsCaseInsensitive(t *testing.T) {
	assert.True(t, Multiplier("THOUSANDS").Equal(Multiplier("thousands")))
	assert.True(t, Multiplier(" Millions ").Equal(Multiplier("million")))
}
