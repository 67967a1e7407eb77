// Package database provides database operations for the plan eligibility engine.
package database

import (
	"context"
	"fmt"

	"plan-eligibility-engine/internal/models"
)

// ReferenceRepository reads the canonical condition and medication names shown on the intake form.
type ReferenceRepository struct {
	db *DB
}

// NewReferenceRepository creates a new reference data repository.
func NewReferenceRepository(db *DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// ListHealthConditions returns known health conditions sorted by name.
func (r *ReferenceRepository) ListHealthConditions(ctx context.Context) ([]models.ReferenceItem, error) {
	return r.list(ctx, "SELECT id, name, category FROM health_conditions ORDER BY name")
}

// ListMedications returns known medications sorted by name.
func (r *ReferenceRepository) ListMedications(ctx context.Context) ([]models.ReferenceItem, error) {
	return r.list(ctx, "SELECT id, name, category FROM medications ORDER BY name")
}

func (r *ReferenceRepository) list(ctx context.Context, query string) ([]models.ReferenceItem, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query reference data: %w", err)
	}
	defer rows.Close()

	items := make([]models.ReferenceItem, 0)
	for rows.Next() {
		var item models.ReferenceItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Category); err != nil {
			return nil, fmt.Errorf("failed to scan reference item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reference data: %w", err)
	}

	return items, nil
}
