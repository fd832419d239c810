// Package scale converts tabulated values into base units using the
// table's SCALAR_FACTOR descriptor.
package scale

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var multipliers = map[string]decimal.Decimal{
	"units":     decimal.NewFromInt(1),
	"unit":      decimal.NewFromInt(1),
	"thousands": decimal.NewFromInt(1_000),
	"thousand":  decimal.NewFromInt(1_000),
	"millions":  decimal.NewFromInt(1_000_000),
	"million":   decimal.NewFromInt(1_000_000),
	"billions":  decimal.NewFromInt(1_000_000_000),
	"billion":   decimal.NewFromInt(1_000_000_000),
}

var million = decimal.NewFromInt(1_000_000)

// Multiplier maps a scalar factor descriptor (case-insensitive) to its
// magnitude. Unrecognized or empty descriptors mean the value is already
// in base units: multiplier 1, not an error.
func Multiplier(scalarFactor string) decimal.Decimal {
	if m, ok := multipliers[strings.ToLower(strings.TrimSpace(scalarFactor))]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// ToBase scales one value into base units. Scalar factors vary row to row
// within a single table, so this is applied per row. Missing values pass
// through.
func ToBase(value float64, scalarFactor string) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	scaled, _ := decimal.NewFromFloat(value).Mul(Multiplier(scalarFactor)).Float64()
	return scaled
}

// Millions derives the million-unit display value from a base-unit value.
// Derived columns always come from the base-unit value, never from the
// raw tabulated one.
func Millions(baseValue float64) float64 {
	if math.IsNaN(baseValue) || math.IsInf(baseValue, 0) {
		return baseValue
	}
	derived, _ := decimal.NewFromFloat(baseValue).Div(million).Float64()
	return derived
}
