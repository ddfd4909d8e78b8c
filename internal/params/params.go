// Package params retrieves, caches and falls back on the calculation
// parameters (current interest rate, per-ownership LTV table and banking
// standards) that drive the LTV calculator.
package params

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/ltv"
	"github.com/iwvelando/ltvcalc/pkg/mathutil"
)

// ErrUnknownBusinessPath is returned for business paths the platform does not offer.
var ErrUnknownBusinessPath = errors.New("unknown business path")

// ErrMalformedResponse is returned when the parameters payload cannot be used.
var ErrMalformedResponse = errors.New("malformed calculation parameters response")

// BusinessPath selects which product's parameters are requested.
type BusinessPath string

// Supported business paths.
const (
	Mortgage          BusinessPath = constants.BusinessPathMortgage
	Credit            BusinessPath = constants.BusinessPathCredit
	MortgageRefinance BusinessPath = constants.BusinessPathMortgageRefinance
	CreditRefinance   BusinessPath = constants.BusinessPathCreditRefinance
)

// BusinessPaths lists every supported business path.
func BusinessPaths() []BusinessPath {
	return []BusinessPath{Mortgage, Credit, MortgageRefinance, CreditRefinance}
}

// ParseBusinessPath validates a raw business path. An empty value means mortgage.
func ParseBusinessPath(raw string) (BusinessPath, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return Mortgage, nil
	}
	for _, path := range BusinessPaths() {
		if string(path) == trimmed {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBusinessPath, raw)
}

// Standard is one banking standard value, e.g. ltv/max_ltv.
type Standard struct {
	Value       float64 `json:"value" yaml:"value"`
	Type        string  `json:"type,omitempty" yaml:"type,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// Parameters is the data section of the calculation parameters payload.
type Parameters struct {
	BusinessPath          BusinessPath                   `json:"business_path"`
	CurrentInterestRate   float64                        `json:"current_interest_rate"`
	PropertyOwnershipLTVs map[string]ltv.OwnershipLTV    `json:"property_ownership_ltvs"`
	Standards             map[string]map[string]Standard `json:"standards,omitempty"`
	LastUpdated           *time.Time                     `json:"last_updated,omitempty"`
	IsFallback            bool                           `json:"is_fallback"`
}

// Response is the envelope returned by GET /v1/calculation-parameters.
type Response struct {
	Status  string      `json:"status"`
	Data    *Parameters `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Ratios converts the percentage LTV table into calculator ratios.
func (p Parameters) Ratios() ltv.RatioTable {
	return ltv.RatioTableFromPercentages(p.PropertyOwnershipLTVs)
}

// OwnershipLTV returns the LTV percentage for o using the calculator's
// fallback chain: o, then no_property, then 75.
func (p Parameters) OwnershipLTV(o ltv.Ownership) float64 {
	return mathutil.Round(mathutil.RatioToPercent(p.Ratios().Ratio(o)))
}

// StandardValue returns the named standard, or 0 when it is not defined.
func (p Parameters) StandardValue(category, name string) float64 {
	if names, ok := p.Standards[category]; ok {
		if standard, ok := names[name]; ok {
			return standard.Value
		}
	}
	return 0
}

// Clone returns a deep copy so cached values cannot be mutated by callers.
func (p Parameters) Clone() Parameters {
	out := p
	if p.PropertyOwnershipLTVs != nil {
		out.PropertyOwnershipLTVs = make(map[string]ltv.OwnershipLTV, len(p.PropertyOwnershipLTVs))
		for k, v := range p.PropertyOwnershipLTVs {
			out.PropertyOwnershipLTVs[k] = v
		}
	}
	if p.Standards != nil {
		out.Standards = make(map[string]map[string]Standard, len(p.Standards))
		for category, names := range p.Standards {
			copied := make(map[string]Standard, len(names))
			for k, v := range names {
				copied[k] = v
			}
			out.Standards[category] = copied
		}
	}
	if p.LastUpdated != nil {
		ts := *p.LastUpdated
		out.LastUpdated = &ts
	}
	return out
}

// Source produces calculation parameters for a business path.
type Source interface {
	Fetch(ctx context.Context, path BusinessPath) (*Parameters, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, path BusinessPath) (*Parameters, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, path BusinessPath) (*Parameters, error) {
	return f(ctx, path)
}
