// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/ltvcalc/pkg/constants"
)

// Round rounds an amount to whole agorot.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// IsPositive reports whether a value is a usable positive amount.
// NaN and infinities are not.
func IsPositive(val float64) bool {
	return val > 0 && !math.IsInf(val, 1)
}

// WithinTolerance reports whether two amounts differ by at most tolerance.
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Max returns the maximum of two float64 values
func Max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// PercentToRatio converts a percentage such as 75 into a ratio such as 0.75.
func PercentToRatio(percentage float64) float64 {
	return percentage / constants.PercentageMultiplier
}

// RatioToPercent converts a ratio such as 0.75 into a percentage such as 75.
func RatioToPercent(ratio float64) float64 {
	return ratio * constants.PercentageMultiplier
}
