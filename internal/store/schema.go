package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/iwvelando/ltvcalc/internal/params"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS banking_standards (
		id SERIAL PRIMARY KEY,
		business_path VARCHAR(50) NOT NULL,
		standard_category VARCHAR(100) NOT NULL,
		standard_name VARCHAR(100) NOT NULL,
		standard_value NUMERIC(12, 4) NOT NULL,
		value_type VARCHAR(50) DEFAULT 'percentage',
		description TEXT,
		is_active BOOLEAN NOT NULL DEFAULT true,
		effective_from DATE,
		effective_to DATE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

const createIndex = `
	CREATE INDEX IF NOT EXISTS idx_banking_standards_category
	ON banking_standards (business_path, standard_category)`

const countStandards = `SELECT COUNT(*) FROM banking_standards`

const insertStandard = `
	INSERT INTO banking_standards
		(business_path, standard_category, standard_name, standard_value, value_type, description)
	VALUES ($1, $2, $3, $4, $5, $6)`

// SeedRow is one banking standard inserted by EnsureSchema.
type SeedRow struct {
	BusinessPath params.BusinessPath
	Category     string
	Name         string
	Value        float64
	ValueType    string
	Description  string
}

// SeedRows flattens fallbacks into rows for an empty table.
func SeedRows(fallbacks params.Fallbacks) []SeedRow {
	var rows []SeedRow
	for _, path := range params.BusinessPaths() {
		p := fallbacks.For(path)
		rows = append(rows, SeedRow{
			BusinessPath: path,
			Category:     CategoryRates,
			Name:         RateCurrentInterest,
			Value:        p.CurrentInterestRate,
			ValueType:    "percentage",
			Description:  "Current annual interest rate",
		})
		for _, o := range []string{"no_property", "has_property", "selling_property"} {
			rule, ok := p.PropertyOwnershipLTVs[o]
			if !ok {
				continue
			}
			rows = append(rows, SeedRow{
				BusinessPath: path,
				Category:     CategoryOwnershipLTV,
				Name:         o,
				Value:        rule.LTV,
				ValueType:    "percentage",
				Description:  "Maximum LTV for " + o,
			})
		}
		for _, category := range sortedKeys(p.Standards) {
			names := p.Standards[category]
			for _, name := range sortedKeys(names) {
				standard := names[name]
				rows = append(rows, SeedRow{
					BusinessPath: path,
					Category:     category,
					Name:         name,
					Value:        standard.Value,
					ValueType:    standard.Type,
					Description:  standard.Description,
				})
			}
		}
	}
	return rows
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnsureSchema creates the banking_standards table and its index when
// missing, and seeds it from fallbacks when it is empty. It reports how many
// rows were seeded.
func (r *Repository) EnsureSchema(ctx context.Context, fallbacks params.Fallbacks) (int, error) {
	if _, err := r.db.ExecContext(ctx, createTable); err != nil {
		return 0, fmt.Errorf("failed to create banking_standards: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createIndex); err != nil {
		return 0, fmt.Errorf("failed to create banking_standards index: %w", err)
	}

	var existing int
	if err := r.db.QueryRowContext(ctx, countStandards).Scan(&existing); err != nil {
		return 0, fmt.Errorf("failed to count banking standards: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows := SeedRows(fallbacks)
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, insertStandard,
			string(row.BusinessPath), row.Category, row.Name, row.Value, row.ValueType, row.Description); err != nil {
			return 0, fmt.Errorf("failed to seed %s/%s/%s: %w", row.BusinessPath, row.Category, row.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed transaction: %w", err)
	}
	return len(rows), nil
}
