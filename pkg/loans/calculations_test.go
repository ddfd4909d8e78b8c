package loans

import (
	"math"
	"testing"
)

func TestCalculateMonthlyPayment(t *testing.T) {
	tests := []struct {
		name               string
		price              float64
		downPayment        float64
		annualInterestRate float64
		termYears          int
		expected           float64
	}{
		{
			name:               "20-year mortgage at 5%",
			price:              1000000,
			downPayment:        200000,
			annualInterestRate: 5.0,
			termYears:          20,
			expected:           5279,
		},
		{
			name:               "no_property split, 75% financed",
			price:              1000000,
			downPayment:        250000,
			annualInterestRate: 5.0,
			termYears:          20,
			expected:           4949,
		},
		{
			name:               "has_property split, 50% financed",
			price:              1000000,
			downPayment:        500000,
			annualInterestRate: 5.0,
			termYears:          20,
			expected:           3299,
		},
		{
			name:               "selling_property split, 70% financed",
			price:              1000000,
			downPayment:        300000,
			annualInterestRate: 5.0,
			termYears:          20,
			expected:           4619,
		},
		{
			name:               "25-year mortgage at 5%",
			price:              1000000,
			downPayment:        200000,
			annualInterestRate: 5.0,
			termYears:          25,
			expected:           4676,
		},
		{
			name:               "5-year credit at 8.5%",
			price:              100000,
			downPayment:        0,
			annualInterestRate: 8.5,
			termYears:          5,
			expected:           2051,
		},
		{
			name:               "Zero interest loan",
			price:              12000,
			downPayment:        2000,
			annualInterestRate: 0.0,
			termYears:          5,
			expected:           166,
		},
		{
			name:               "100% down payment",
			price:              50000,
			downPayment:        50000,
			annualInterestRate: 5.0,
			termYears:          5,
			expected:           0,
		},
		{
			name:               "Zero term",
			price:              50000,
			downPayment:        10000,
			annualInterestRate: 5.0,
			termYears:          0,
			expected:           0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateMonthlyPayment(tt.price, tt.downPayment, tt.annualInterestRate, tt.termYears)
			if result != tt.expected {
				t.Errorf("CalculateMonthlyPayment() = %.2f, expected %.2f", result, tt.expected)
			}
		})
	}
}

func TestPaymentOrderingAcrossOwnership(t *testing.T) {
	noProperty := CalculateMonthlyPayment(1000000, 250000, 5, 20)
	selling := CalculateMonthlyPayment(1000000, 300000, 5, 20)
	hasProperty := CalculateMonthlyPayment(1000000, 500000, 5, 20)

	if !(noProperty > selling && selling > hasProperty) {
		t.Errorf("expected no_property > selling_property > has_property, got %v, %v, %v",
			noProperty, selling, hasProperty)
	}
}

func TestBuildQuote(t *testing.T) {
	quote := BuildQuote(1000000, 200000, 5, 20)

	if quote.Principal != 800000 {
		t.Errorf("expected principal 800000, got %v", quote.Principal)
	}
	if quote.MonthlyPayment != 5279 {
		t.Errorf("expected monthly payment 5279, got %v", quote.MonthlyPayment)
	}
	if quote.TotalPayment != 5279*240 {
		t.Errorf("expected total payment %v, got %v", 5279*240, quote.TotalPayment)
	}
	if quote.TotalInterest != quote.TotalPayment-800000 {
		t.Errorf("expected total interest %v, got %v", quote.TotalPayment-800000, quote.TotalInterest)
	}
}

func TestRemainingWithSimpleInterest(t *testing.T) {
	tests := []struct {
		name     string
		balance  float64
		rate     float64
		years    int
		expected float64
	}{
		{"10 years at 5%", 500000, 5, 10, 750000},
		{"zero years", 500000, 5, 0, 500000},
		{"zero rate", 500000, 0, 10, 500000},
		{"negative balance", -10, 5, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemainingWithSimpleInterest(tt.balance, tt.rate, tt.years); got != tt.expected {
				t.Errorf("RemainingWithSimpleInterest() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestLoanPeriodYears(t *testing.T) {
	period := LoanPeriodYears(1000000, 200000, 5, 5279)
	if period < 19 || period > 21 {
		t.Errorf("expected about 20 years, got %v", period)
	}
	if math.Abs(period-20) > 0.01 {
		t.Errorf("expected period within 0.01 of 20 years, got %v", period)
	}

	if got := LoanPeriodYears(1000000, 200000, 5, 3000); got != 0 {
		t.Errorf("expected 0 when payment does not cover interest, got %v", got)
	}
	if got := LoanPeriodYears(120000, 0, 0, 1000); got != 10 {
		t.Errorf("expected 10 years at zero interest, got %v", got)
	}
}

func TestCalculateInterestPayment(t *testing.T) {
	// First month of a 175,000 loan at 4.5%.
	interest := CalculateInterestPayment(175000, 4.5)
	if math.Abs(interest-656.25) > 0.001 {
		t.Errorf("expected interest 656.25, got %v", interest)
	}
}
