// Package constants provides shared constants for the ltvcalc application.
package constants

import "time"

// Property ownership statuses as sent by the intake form.
const (
	OwnershipNoProperty      = "no_property"
	OwnershipHasProperty     = "has_property"
	OwnershipSellingProperty = "selling_property"
)

// Business paths served by the calculation parameters endpoint.
const (
	BusinessPathMortgage          = "mortgage"
	BusinessPathCredit            = "credit"
	BusinessPathMortgageRefinance = "mortgage_refinance"
	BusinessPathCreditRefinance   = "credit_refinance"
)

// LTV constants
const (
	// DefaultLTVRatio is the last step of the ratio fallback chain
	DefaultLTVRatio = 0.75

	// FallbackNoPropertyLTV is the fallback LTV percentage for first-home buyers
	FallbackNoPropertyLTV = 75.0

	// FallbackHasPropertyLTV is the fallback LTV percentage for applicants who own property
	FallbackHasPropertyLTV = 50.0

	// FallbackSellingPropertyLTV is the fallback LTV percentage for applicants selling property
	FallbackSellingPropertyLTV = 70.0

	// DegenerateMaxLoan keeps slider ranges non-empty when no price is entered
	DegenerateMaxLoan = 1.0
)

// Interest rate fallbacks, in percent.
const (
	FallbackMortgageRate = 5.0
	FallbackCreditRate   = 8.5
)

// Banking standard fallbacks, in percent.
const (
	FallbackMaxLTV = 80.0
	FallbackMaxDTI = 42.0
)

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyTolerance is the tolerance for currency comparisons (1 agora)
	CurrencyTolerance = 0.01

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencySymbol is printed in front of amounts in pretty output
	CurrencySymbol = "₪"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Calculation parameters defaults
const (
	// ParametersPath is appended to the configured source URL
	ParametersPath = "/v1/calculation-parameters"

	// DefaultParametersCacheTTL is how long fetched parameters stay fresh
	DefaultParametersCacheTTL = 5 * time.Minute

	// DefaultParametersTimeout bounds a single parameters request
	DefaultParametersTimeout = 10 * time.Second

	// DefaultWarmSchedule refreshes caches shortly before they expire
	DefaultWarmSchedule = "@every 4m"

	// ResponseStatusSuccess marks a successful API envelope
	ResponseStatusSuccess = "success"

	// ResponseStatusError marks a failed API envelope
	ResponseStatusError = "error"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum JSON request size (64 KB)
	DefaultMaxBodySizeBytes int64 = 64 * 1024

	// DefaultCacheBackend keeps parameters in process memory
	DefaultCacheBackend = "memory"

	// RedisCacheBackend shares parameters between instances
	RedisCacheBackend = "redis"

	// DefaultRedisKeyPrefix namespaces parameter entries in Redis
	DefaultRedisKeyPrefix = "ltvcalc:params:"

	// RequestIDHeader carries the per-request correlation id
	RequestIDHeader = "X-Request-ID"
)
