// Package store reads calculation parameters from the banking_standards
// table in Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/ltvcalc/internal/params"
	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/ltv"
	"github.com/iwvelando/ltvcalc/pkg/mathutil"
	_ "github.com/lib/pq"
)

// ErrNoStandards is returned when a business path has no active standards.
var ErrNoStandards = errors.New("no active banking standards")

// Standard categories with a dedicated meaning.
const (
	CategoryOwnershipLTV = "property_ownership_ltv"
	CategoryRates        = "rates"
	RateCurrentInterest  = "current_interest_rate"
)

const fetchQuery = `
	SELECT standard_category, standard_name, standard_value, value_type, description, updated_at
	FROM banking_standards
	WHERE business_path = $1
		AND is_active = true
		AND (effective_from IS NULL OR effective_from <= CURRENT_DATE)
		AND (effective_to IS NULL OR effective_to >= CURRENT_DATE)
	ORDER BY standard_category, standard_name`

// Repository provides banking standards database operations.
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Fetch builds the calculation parameters for path from active standards.
// It implements params.Source.
func (r *Repository) Fetch(ctx context.Context, path params.BusinessPath) (*params.Parameters, error) {
	rows, err := r.db.QueryContext(ctx, fetchQuery, string(path))
	if err != nil {
		return nil, fmt.Errorf("failed to query banking standards: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	p := &params.Parameters{
		BusinessPath:          path,
		PropertyOwnershipLTVs: map[string]ltv.OwnershipLTV{},
		Standards:             map[string]map[string]params.Standard{},
	}
	var (
		count       int
		lastUpdated time.Time
	)

	for rows.Next() {
		var (
			category, name string
			value          float64
			valueType      sql.NullString
			description    sql.NullString
			updatedAt      sql.NullTime
		)
		if err := rows.Scan(&category, &name, &value, &valueType, &description, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan banking standard: %w", err)
		}
		count++
		if updatedAt.Valid && updatedAt.Time.After(lastUpdated) {
			lastUpdated = updatedAt.Time
		}

		switch {
		case category == CategoryOwnershipLTV:
			p.PropertyOwnershipLTVs[strings.ToLower(name)] = ltv.OwnershipLTV{
				LTV:            value,
				MinDownPayment: mathutil.Round(constants.PercentageMultiplier - value),
			}
		case category == CategoryRates && name == RateCurrentInterest:
			p.CurrentInterestRate = value
		default:
			if p.Standards[category] == nil {
				p.Standards[category] = map[string]params.Standard{}
			}
			p.Standards[category][name] = params.Standard{
				Value:       value,
				Type:        valueType.String,
				Description: description.String,
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate banking standards: %w", err)
	}

	if count == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoStandards, path)
	}
	if !lastUpdated.IsZero() {
		p.LastUpdated = &lastUpdated
	}
	return p, nil
}
