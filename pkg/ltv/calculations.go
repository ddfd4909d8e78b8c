package ltv

import (
	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/mathutil"
)

// Bounds holds the financing limits for one price/ownership pair.
type Bounds struct {
	PriceOfEstate float64   `json:"priceOfEstate"`
	Ownership     Ownership `json:"propertyOwnership"`
	Ratio         float64   `json:"ltvRatio"`
	MaxLoan       float64   `json:"maxLoanAmount"`
	MinDown       float64   `json:"minDownPayment"`
	MaxDown       float64   `json:"maxDownPayment"`
}

// MaxLoanAmount returns price * ratio for the given ownership status.
// A zero, negative or NaN price yields 1 so that UI sliders always have a
// non-empty range.
func MaxLoanAmount(price float64, o Ownership, ratios RatioTable) float64 {
	if !mathutil.IsPositive(price) {
		return constants.DegenerateMaxLoan
	}
	return price * ratios.Ratio(o)
}

// MinDownPayment returns the part of the price the loan cannot cover, or 0
// when there is no usable price.
func MinDownPayment(price float64, o Ownership, ratios RatioTable) float64 {
	if !mathutil.IsPositive(price) {
		return 0
	}
	return price - MaxLoanAmount(price, o, ratios)
}

// ComputeBounds gathers MaxLoanAmount, MinDownPayment and the down payment
// ceiling (the price itself) into one value.
func ComputeBounds(price float64, o Ownership, ratios RatioTable) Bounds {
	maxDown := price
	if !mathutil.IsPositive(price) {
		maxDown = constants.DegenerateMaxLoan
	}
	return Bounds{
		PriceOfEstate: price,
		Ownership:     o,
		Ratio:         ratios.Ratio(o),
		MaxLoan:       MaxLoanAmount(price, o, ratios),
		MinDown:       MinDownPayment(price, o, ratios),
		MaxDown:       maxDown,
	}
}

// Contains reports whether a down payment lies inside the bounds.
func (b Bounds) Contains(downPayment float64) bool {
	return downPayment >= b.MinDown && downPayment <= b.MaxDown
}

// Balanced reports whether MaxLoan and MinDown add back up to the price,
// to within one agora. Bounds for an unusable price are never balanced.
func (b Bounds) Balanced() bool {
	if !mathutil.IsPositive(b.PriceOfEstate) {
		return false
	}
	return mathutil.WithinTolerance(b.MaxLoan+b.MinDown, b.PriceOfEstate, constants.CurrencyTolerance)
}

// Clamp moves a down payment into the bounds: up to MinDown if it is too
// small, otherwise down to MaxDown if it is too large.
func (b Bounds) Clamp(downPayment float64) float64 {
	if downPayment < b.MinDown {
		return b.MinDown
	}
	if downPayment > b.MaxDown {
		return b.MaxDown
	}
	return downPayment
}
