// Package ltv computes loan-to-value financing bounds for a property
// purchase and keeps a down payment inside those bounds.
//
// Everything in this package is pure and synchronous: callers supply the
// ratio table (usually obtained from the calculation parameters service) and
// receive plain values back. Nothing here can fail; unusable inputs collapse
// to the degenerate bounds documented on each function.
package ltv

import (
	"strings"

	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/mathutil"
)

// Ownership is the applicant's declared relationship to existing property.
type Ownership string

// Known ownership statuses.
const (
	NoProperty      Ownership = constants.OwnershipNoProperty
	HasProperty     Ownership = constants.OwnershipHasProperty
	SellingProperty Ownership = constants.OwnershipSellingProperty
)

// Ownerships lists the statuses the intake form offers, in display order.
func Ownerships() []Ownership {
	return []Ownership{NoProperty, HasProperty, SellingProperty}
}

// ParseOwnership normalises a raw form value. Values that are not one of the
// known statuses are returned as-is so the ratio fallback chain can handle them.
func ParseOwnership(raw string) Ownership {
	return Ownership(strings.ToLower(strings.TrimSpace(raw)))
}

// Known reports whether o is one of the statuses offered by the form.
func (o Ownership) Known() bool {
	switch o {
	case NoProperty, HasProperty, SellingProperty:
		return true
	}
	return false
}

// RatioTable maps an ownership status to its LTV ratio in (0,1].
type RatioTable map[Ownership]float64

// OwnershipLTV is the wire representation of one ownership rule, in percent.
type OwnershipLTV struct {
	LTV            float64 `json:"ltv"`
	MinDownPayment float64 `json:"min_down_payment"`
}

// DefaultRatios returns the hardcoded table used when nothing better is known.
func DefaultRatios() RatioTable {
	return RatioTable{
		NoProperty:      mathutil.PercentToRatio(constants.FallbackNoPropertyLTV),
		HasProperty:     mathutil.PercentToRatio(constants.FallbackHasPropertyLTV),
		SellingProperty: mathutil.PercentToRatio(constants.FallbackSellingPropertyLTV),
	}
}

// RatioTableFromPercentages converts the percentage table returned by the
// calculation parameters endpoint into ratios. Entries outside (0,100] are
// dropped so they fall through to the no_property ratio.
func RatioTableFromPercentages(ltvs map[string]OwnershipLTV) RatioTable {
	table := make(RatioTable, len(ltvs))
	for status, rule := range ltvs {
		if !ValidPercentage(rule.LTV) {
			continue
		}
		table[ParseOwnership(status)] = mathutil.PercentToRatio(rule.LTV)
	}
	return table
}

// ValidPercentage reports whether an LTV percentage is usable.
func ValidPercentage(ltv float64) bool {
	return ltv > 0 && ltv <= constants.PercentageMultiplier
}

// Ratio resolves the ratio for o: the entry for o, else the no_property
// entry, else constants.DefaultLTVRatio.
func (t RatioTable) Ratio(o Ownership) float64 {
	if r, ok := t[o]; ok {
		return r
	}
	if r, ok := t[NoProperty]; ok {
		return r
	}
	return constants.DefaultLTVRatio
}

// Percentages converts the table back into its wire form.
func (t RatioTable) Percentages() map[string]OwnershipLTV {
	out := make(map[string]OwnershipLTV, len(t))
	for status, ratio := range t {
		ltv := mathutil.RatioToPercent(ratio)
		out[string(status)] = OwnershipLTV{
			LTV:            mathutil.Round(ltv),
			MinDownPayment: mathutil.Round(constants.PercentageMultiplier - ltv),
		}
	}
	return out
}

// Clone returns an independent copy of the table.
func (t RatioTable) Clone() RatioTable {
	out := make(RatioTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
