package params

import (
	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/ltv"
)

// Fallbacks holds the parameters substituted when the source is unreachable.
type Fallbacks map[BusinessPath]Parameters

// DefaultFallbacks returns the hardcoded emergency parameters.
func DefaultFallbacks() Fallbacks {
	mortgage := func(path BusinessPath) Parameters {
		return Parameters{
			BusinessPath:          path,
			CurrentInterestRate:   constants.FallbackMortgageRate,
			PropertyOwnershipLTVs: ltv.DefaultRatios().Percentages(),
			Standards: map[string]map[string]Standard{
				"ltv": {"max_ltv": {Value: constants.FallbackMaxLTV, Type: "percentage", Description: "Maximum LTV ratio"}},
				"dti": {"max_dti": {Value: constants.FallbackMaxDTI, Type: "percentage", Description: "Maximum DTI ratio"}},
			},
			IsFallback: true,
		}
	}
	credit := func(path BusinessPath) Parameters {
		return Parameters{
			BusinessPath:          path,
			CurrentInterestRate:   constants.FallbackCreditRate,
			PropertyOwnershipLTVs: map[string]ltv.OwnershipLTV{},
			Standards: map[string]map[string]Standard{
				"dti": {"max_dti": {Value: constants.FallbackMaxDTI, Type: "percentage", Description: "Maximum DTI ratio"}},
			},
			IsFallback: true,
		}
	}

	return Fallbacks{
		Mortgage:          mortgage(Mortgage),
		MortgageRefinance: mortgage(MortgageRefinance),
		Credit:            credit(Credit),
		CreditRefinance:   credit(CreditRefinance),
	}
}

// For returns the fallback for path. Unknown paths get the mortgage fallback
// relabelled, so a caller always receives a usable table.
func (f Fallbacks) For(path BusinessPath) Parameters {
	if p, ok := f[path]; ok {
		out := p.Clone()
		out.BusinessPath = path
		out.IsFallback = true
		return out
	}
	out := DefaultFallbacks()[Mortgage]
	out.BusinessPath = path
	return out
}

// Merge overlays overrides on top of f. Zero rates and empty tables in an
// override leave the base value in place.
func (f Fallbacks) Merge(overrides Fallbacks) Fallbacks {
	out := make(Fallbacks, len(f))
	for path, p := range f {
		out[path] = p.Clone()
	}
	for path, override := range overrides {
		base, ok := out[path]
		if !ok {
			base = DefaultFallbacks().For(path)
		}
		if override.CurrentInterestRate > 0 {
			base.CurrentInterestRate = override.CurrentInterestRate
		}
		if len(override.PropertyOwnershipLTVs) > 0 {
			if base.PropertyOwnershipLTVs == nil {
				base.PropertyOwnershipLTVs = map[string]ltv.OwnershipLTV{}
			}
			for status, rule := range override.PropertyOwnershipLTVs {
				base.PropertyOwnershipLTVs[status] = rule
			}
		}
		for category, names := range override.Standards {
			if base.Standards == nil {
				base.Standards = map[string]map[string]Standard{}
			}
			if base.Standards[category] == nil {
				base.Standards[category] = map[string]Standard{}
			}
			for name, standard := range names {
				base.Standards[category][name] = standard
			}
		}
		base.BusinessPath = path
		base.IsFallback = true
		out[path] = base
	}
	return out
}
