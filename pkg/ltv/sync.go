package ltv

import "github.com/iwvelando/ltvcalc/pkg/mathutil"

// FormValues are the intake form fields the down payment depends on.
type FormValues struct {
	PropertyOwnership Ownership `json:"propertyOwnership"`
	PriceOfEstate     float64   `json:"priceOfEstate"`
	InitialFee        float64   `json:"initialFee"`
}

// Prior records the drivers observed on the previous evaluation.
type Prior struct {
	PropertyOwnership Ownership `json:"propertyOwnership"`
	PriceOfEstate     float64   `json:"priceOfEstate"`
}

// SyncResult is the outcome of one Reduce call. Bounds is only populated
// when the drivers changed and were usable.
type SyncResult struct {
	Values   FormValues `json:"values"`
	Prior    Prior      `json:"prior"`
	Adjusted bool       `json:"adjusted"`
	Bounds   *Bounds    `json:"bounds,omitempty"`
}

// Reduce re-evaluates the down payment after a form change.
//
// When the ownership status or price differs from prior, and both are set,
// InitialFee is clamped into [MinDownPayment, price]. Edits to InitialFee
// alone never trigger a clamp. The returned Prior always reflects values.
func Reduce(prior Prior, values FormValues, ratios RatioTable) SyncResult {
	result := SyncResult{
		Values: values,
		Prior: Prior{
			PropertyOwnership: values.PropertyOwnership,
			PriceOfEstate:     values.PriceOfEstate,
		},
	}

	if !driversChanged(prior, values) {
		return result
	}
	if values.PropertyOwnership == "" || !mathutil.IsPositive(values.PriceOfEstate) {
		return result
	}

	bounds := ComputeBounds(values.PriceOfEstate, values.PropertyOwnership, ratios)
	result.Bounds = &bounds

	if !bounds.Contains(values.InitialFee) {
		result.Values.InitialFee = bounds.Clamp(values.InitialFee)
		result.Adjusted = true
	}
	return result
}

func driversChanged(prior Prior, values FormValues) bool {
	return prior.PropertyOwnership != values.PropertyOwnership ||
		prior.PriceOfEstate != values.PriceOfEstate
}

// Session tracks the prior drivers for a single form. It is not safe for
// concurrent use.
type Session struct {
	prior  Prior
	ratios RatioTable
}

// NewSession starts a form session from the form's initial values. The
// initial values seed the prior, so nothing is clamped until a driver moves.
func NewSession(initial FormValues, ratios RatioTable) *Session {
	if ratios == nil {
		ratios = DefaultRatios()
	}
	return &Session{
		prior: Prior{
			PropertyOwnership: initial.PropertyOwnership,
			PriceOfEstate:     initial.PriceOfEstate,
		},
		ratios: ratios,
	}
}

// Apply runs Reduce against the remembered prior and stores the new prior.
func (s *Session) Apply(values FormValues) SyncResult {
	result := Reduce(s.prior, values, s.ratios)
	s.prior = result.Prior
	return result
}

// SetRatios swaps the ratio table, e.g. after parameters were refetched.
func (s *Session) SetRatios(ratios RatioTable) {
	if ratios != nil {
		s.ratios = ratios
	}
}

// Prior returns the drivers seen on the last Apply.
func (s *Session) Prior() Prior {
	return s.prior
}
