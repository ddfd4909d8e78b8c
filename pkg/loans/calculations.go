// Package loans provides common loan payment utilities.
package loans

import (
	"math"

	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/mathutil"
)

// Quote summarises the repayment of one loan.
type Quote struct {
	Principal      float64 `json:"principal"`
	AnnualRate     float64 `json:"annualRate"`
	TermYears      int     `json:"termYears"`
	MonthlyPayment float64 `json:"monthlyPayment"`
	TotalPayment   float64 `json:"totalPayment"`
	TotalInterest  float64 `json:"totalInterest"`
}

// CalculateMonthlyPayment calculates the monthly payment on price minus the
// down payment using the standard amortization formula. The result is floored
// to whole currency units. A non-positive principal or term yields 0.
func CalculateMonthlyPayment(price, downPayment, annualInterestRate float64, termYears int) float64 {
	principal := price - downPayment
	termMonths := termYears * constants.MonthsPerYear
	if !mathutil.IsPositive(principal) || termMonths <= 0 {
		return 0
	}

	if annualInterestRate <= 0 {
		// For zero interest, simply divide the principal by term
		return math.Floor(principal / float64(termMonths))
	}

	periodicInterestRate := periodicRate(annualInterestRate)
	power := math.Pow(1.00+periodicInterestRate, float64(termMonths))
	discountFactor := (power - 1.00) / power
	return math.Floor(principal * periodicInterestRate / discountFactor)
}

// BuildQuote computes the monthly payment along with total paid and total
// interest over the full term.
func BuildQuote(price, downPayment, annualInterestRate float64, termYears int) Quote {
	monthly := CalculateMonthlyPayment(price, downPayment, annualInterestRate, termYears)
	principal := mathutil.Max(price-downPayment, 0)
	total := monthly * float64(termYears*constants.MonthsPerYear)
	return Quote{
		Principal:      mathutil.Round(principal),
		AnnualRate:     annualInterestRate,
		TermYears:      termYears,
		MonthlyPayment: monthly,
		TotalPayment:   mathutil.Round(total),
		TotalInterest:  mathutil.Round(mathutil.Max(total-principal, 0)),
	}
}

// RemainingWithSimpleInterest returns balance grown by simple annual interest
// over the given number of years, rounded to whole currency units.
func RemainingWithSimpleInterest(balance, annualInterestRate float64, years int) float64 {
	if !mathutil.IsPositive(balance) || years <= 0 {
		return mathutil.Max(balance, 0)
	}
	growth := 1 + mathutil.PercentToRatio(annualInterestRate)*float64(years)
	return math.Round(balance * growth)
}

// LoanPeriodYears inverts the amortization formula: given a monthly payment it
// returns how many years it takes to repay price minus the down payment.
// It returns 0 when the payment does not cover the first month's interest.
func LoanPeriodYears(price, downPayment, annualInterestRate, monthlyPayment float64) float64 {
	principal := price - downPayment
	if !mathutil.IsPositive(principal) || !mathutil.IsPositive(monthlyPayment) {
		return 0
	}

	if annualInterestRate <= 0 {
		return principal / monthlyPayment / constants.MonthsPerYear
	}

	r := periodicRate(annualInterestRate)
	remainder := 1 - CalculateInterestPayment(principal, annualInterestRate)/monthlyPayment
	if remainder <= 0 {
		return 0
	}
	months := -math.Log(remainder) / math.Log(1+r)
	return months / constants.MonthsPerYear
}

// CalculateInterestPayment calculates the interest portion of one monthly payment.
func CalculateInterestPayment(remainingPrincipal, annualInterestRate float64) float64 {
	return remainingPrincipal * periodicRate(annualInterestRate)
}

func periodicRate(annualInterestRate float64) float64 {
	return annualInterestRate / (constants.PercentageMultiplier * constants.MonthsPerYear)
}
