// Package database provides database operations for the plan eligibility engine.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"plan-eligibility-engine/internal/models"
)

const planColumns = `id, company_name, product_name, product_category, product_price_monthly,
			product_benefits, available_states, available_zip_codes, coverage_type, age_range,
			disqualifying_health_conditions, disqualifying_medications, build_chart,
			is_active, created_at, updated_at`

const upsertPlanSQL = `
		INSERT INTO insurance_plans (
			id, company_name, product_name, product_category, product_price_monthly,
			product_benefits, available_states, available_zip_codes, coverage_type, age_range,
			disqualifying_health_conditions, disqualifying_medications, build_chart,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb, true, $14, $14)
		ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			product_name = EXCLUDED.product_name,
			product_category = EXCLUDED.product_category,
			product_price_monthly = EXCLUDED.product_price_monthly,
			product_benefits = EXCLUDED.product_benefits,
			available_states = EXCLUDED.available_states,
			available_zip_codes = EXCLUDED.available_zip_codes,
			coverage_type = EXCLUDED.coverage_type,
			age_range = EXCLUDED.age_range,
			disqualifying_health_conditions = EXCLUDED.disqualifying_health_conditions,
			disqualifying_medications = EXCLUDED.disqualifying_medications,
			build_chart = EXCLUDED.build_chart,
			is_active = true,
			updated_at = EXCLUDED.updated_at`

// PlanRepository handles insurance plan catalog operations.
type PlanRepository struct {
	db *DB
}

// NewPlanRepository creates a new plan repository.
func NewPlanRepository(db *DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// Upsert inserts a plan or replaces the stored plan with the same ID.
// A plan without an ID is assigned one.
func (r *PlanRepository) Upsert(ctx context.Context, plan *models.InsurancePlan) (string, error) {
	args, err := upsertArgs(plan, time.Now().UTC())
	if err != nil {
		return "", err
	}

	if _, err := r.db.ExecContext(ctx, upsertPlanSQL, args...); err != nil {
		return "", fmt.Errorf("failed to upsert insurance plan: %w", err)
	}

	return plan.ID, nil
}

// BulkUpsert writes a catalog in one transaction. Plans that fail validation
// are counted and reported without aborting the rest; a database error rolls
// back the whole batch.
func (r *PlanRepository) BulkUpsert(ctx context.Context, plans []*models.InsurancePlan) (*models.BulkUpsertResult, error) {
	result := &models.BulkUpsertResult{
		Errors: []string{},
	}

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()

		for _, plan := range plans {
			if err := models.ValidatePlan(plan); err != nil {
				result.FailedCount++
				result.Errors = append(result.Errors, fmt.Sprintf("plan %s/%s: %v", plan.CompanyName, plan.ProductName, err))
				continue
			}

			args, err := upsertArgs(plan, now)
			if err != nil {
				result.FailedCount++
				result.Errors = append(result.Errors, fmt.Sprintf("plan %s/%s: %v", plan.CompanyName, plan.ProductName, err))
				continue
			}

			if _, err := tx.Exec(ctx, upsertPlanSQL, args...); err != nil {
				return fmt.Errorf("failed to upsert plan %s: %w", plan.ID, err)
			}
			result.UpsertedCount++
		}
		return nil
	})

	if err != nil {
		result.UpsertedCount = 0
		return result, fmt.Errorf("bulk upsert failed: %w", err)
	}

	return result, nil
}

// GetByID retrieves a plan by its ID.
func (r *PlanRepository) GetByID(ctx context.Context, id string) (*models.InsurancePlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM insurance_plans
		WHERE id = $1`

	plan, err := scanPlan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get insurance plan: %w", err)
	}

	return plan, nil
}

// GetAllActive retrieves the active catalog in a stable order.
func (r *PlanRepository) GetAllActive(ctx context.Context) ([]*models.InsurancePlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM insurance_plans
		WHERE is_active = true
		ORDER BY company_name, product_name, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query insurance plans: %w", err)
	}
	defer rows.Close()

	plans := make([]*models.InsurancePlan, 0)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insurance plan: %w", err)
		}
		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate insurance plans: %w", err)
	}

	return plans, nil
}

// Deactivate removes a plan from the active catalog.
func (r *PlanRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE insurance_plans SET is_active = false, updated_at = $1 WHERE id = $2",
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate insurance plan: %w", err)
	}
	return nil
}

func upsertArgs(plan *models.InsurancePlan, now time.Time) ([]any, error) {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}

	chart := plan.BuildChart
	if chart == nil {
		chart = []models.BuildChartEntry{}
	}
	chartJSON, err := json.Marshal(chart)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal build chart: %w", err)
	}

	return []any{
		plan.ID,
		plan.CompanyName,
		plan.ProductName,
		plan.ProductCategory,
		plan.ProductPriceMonthly,
		plan.ProductBenefits,
		nonNil(plan.AvailableStates),
		nonNil(plan.AvailableZipCodes),
		string(plan.CoverageType),
		plan.AgeRange,
		nonNil(plan.DisqualifyingHealthConditions),
		nonNil(plan.DisqualifyingMedications),
		string(chartJSON),
		now,
	}, nil
}

// scanPlan scans a single row into an InsurancePlan.
func scanPlan(row pgx.Row) (*models.InsurancePlan, error) {
	var plan models.InsurancePlan
	var coverageType string
	var chartJSON []byte

	err := row.Scan(
		&plan.ID,
		&plan.CompanyName,
		&plan.ProductName,
		&plan.ProductCategory,
		&plan.ProductPriceMonthly,
		&plan.ProductBenefits,
		&plan.AvailableStates,
		&plan.AvailableZipCodes,
		&coverageType,
		&plan.AgeRange,
		&plan.DisqualifyingHealthConditions,
		&plan.DisqualifyingMedications,
		&chartJSON,
		&plan.IsActive,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	plan.CoverageType = models.CoverageType(coverageType)

	if len(chartJSON) > 0 {
		if err := json.Unmarshal(chartJSON, &plan.BuildChart); err != nil {
			return nil, fmt.Errorf("failed to decode build chart for plan %s: %w", plan.ID, err)
		}
	}

	return &plan, nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
