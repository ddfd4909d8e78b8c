// Package format renders rates and ratios for terminal output.
package format

import (
	"fmt"

	"github.com/iwvelando/ltvcalc/pkg/constants"
)

// Percent renders a percentage with two decimals, e.g. "75.00%".
func Percent(value float64) string {
	return fmt.Sprintf("%.2f%%", value)
}

// Ratio renders a ratio in (0,1] as a percentage.
func Ratio(ratio float64) string {
	return Percent(ratio * constants.PercentageMultiplier)
}
