package validation

import (
	"errors"
	"fmt"
	"math"
	"net/url"

	"github.com/iwvelando/ltvcalc/pkg/ltv"
)

// ErrInvalidInput marks every validation failure so callers can map it to a
// client error.
var ErrInvalidInput = errors.New("invalid input")

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidatePrice requires a finite, non-negative estate price. Zero is
// accepted and yields degenerate bounds.
func ValidatePrice(price float64) error {
	if !finite(price) || price < 0 {
		return fmt.Errorf("%w: price of estate must be a non-negative number, got %v", ErrInvalidInput, price)
	}
	return nil
}

// ValidateInitialFee requires a finite, non-negative initial fee.
func ValidateInitialFee(fee float64) error {
	if !finite(fee) || fee < 0 {
		return fmt.Errorf("%w: initial fee must be a non-negative number, got %v", ErrInvalidInput, fee)
	}
	return nil
}

// ValidateRate requires an annual rate in percent between 0 and 100.
func ValidateRate(rate float64) error {
	if !finite(rate) || rate < 0 || rate > 100 {
		return fmt.Errorf("%w: annual rate must be between 0 and 100, got %v", ErrInvalidInput, rate)
	}
	return nil
}

// ValidateTerm requires a loan term of 1 to 50 years.
func ValidateTerm(years int) error {
	if years < 1 || years > 50 {
		return fmt.Errorf("%w: term must be between 1 and 50 years, got %d", ErrInvalidInput, years)
	}
	return nil
}

// ValidateOwnership rejects values that would silently fall back to the
// no_property ratio. An empty value is allowed.
func ValidateOwnership(raw string) error {
	if raw == "" {
		return nil
	}
	if !ltv.ParseOwnership(raw).Known() {
		return fmt.Errorf("%w: unknown property ownership %q, expected one of %s, %s or %s",
			ErrInvalidInput, raw, ltv.NoProperty, ltv.HasProperty, ltv.SellingProperty)
	}
	return nil
}

// ValidateSourceURL requires an absolute http or https URL.
func ValidateSourceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: source url %q: %v", ErrInvalidInput, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: source url %q must be an absolute http(s) URL", ErrInvalidInput, raw)
	}
	return nil
}
