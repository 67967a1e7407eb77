// Package database provides database operations for the plan eligibility engine.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"plan-eligibility-engine/internal/models"
)

// ClientRepository handles client profile database operations.
type ClientRepository struct {
	db *DB
}

// NewClientRepository creates a new client repository.
func NewClientRepository(db *DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// Create inserts a client and their dependents in one transaction and returns the client ID.
func (r *ClientRepository) Create(ctx context.Context, client *models.ClientProfile) (string, error) {
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO clients (
				id, full_name, email, date_of_birth, state, zip_code, gender, age,
				height_feet, height_inches, legacy_height_inches, weight,
				health_conditions, custom_health_conditions, medications, custom_medications,
				coverage_type, created_at
			) VALUES ($1, $2, $3, NULLIF($4, '')::date, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			client.ID,
			client.FullName,
			client.Email,
			client.DateOfBirth,
			client.State,
			client.ZipCode,
			string(client.Gender),
			client.Age,
			client.Height.Feet,
			client.Height.Inches,
			client.Height.LegacyInches,
			client.Weight,
			nonNil(client.HealthConditions),
			nonNil(client.CustomHealthConditions),
			nonNil(client.Medications),
			nonNil(client.CustomMedications),
			string(client.CoverageType),
			client.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert client: %w", err)
		}

		for i := range client.Dependents {
			dep := &client.Dependents[i]
			if dep.ID == "" {
				dep.ID = uuid.NewString()
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO dependents (
					id, client_id, position, relationship, full_name, date_of_birth, age, gender,
					height_feet, height_inches, legacy_height_inches, weight,
					health_conditions, custom_health_conditions, medications, custom_medications
				) VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::date, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
				dep.ID,
				client.ID,
				i,
				string(dep.Relationship),
				dep.FullName,
				dep.DateOfBirth,
				dep.Age,
				string(dep.Gender),
				dep.Height.Feet,
				dep.Height.Inches,
				dep.Height.LegacyInches,
				dep.Weight,
				nonNil(dep.HealthConditions),
				nonNil(dep.CustomHealthConditions),
				nonNil(dep.Medications),
				nonNil(dep.CustomMedications),
			)
			if err != nil {
				return fmt.Errorf("failed to insert dependent %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return client.ID, nil
}

// GetByID retrieves a client with their dependents. It returns nil if the client does not exist.
func (r *ClientRepository) GetByID(ctx context.Context, id string) (*models.ClientProfile, error) {
	query := `
		SELECT id, full_name, email, COALESCE(to_char(date_of_birth, 'YYYY-MM-DD'), ''), state, zip_code,
			gender, age, height_feet, height_inches, legacy_height_inches, weight,
			health_conditions, custom_health_conditions, medications, custom_medications,
			coverage_type, created_at
		FROM clients
		WHERE id = $1`

	var client models.ClientProfile
	var gender, coverageType string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&client.ID,
		&client.FullName,
		&client.Email,
		&client.DateOfBirth,
		&client.State,
		&client.ZipCode,
		&gender,
		&client.Age,
		&client.Height.Feet,
		&client.Height.Inches,
		&client.Height.LegacyInches,
		&client.Weight,
		&client.HealthConditions,
		&client.CustomHealthConditions,
		&client.Medications,
		&client.CustomMedications,
		&coverageType,
		&client.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	client.Gender = models.Gender(gender)
	client.CoverageType = models.CoverageType(coverageType)

	dependents, err := r.getDependents(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	client.Dependents = dependents

	return &client, nil
}

func (r *ClientRepository) getDependents(ctx context.Context, clientID string) ([]models.Dependent, error) {
	query := `
		SELECT id, relationship, full_name, COALESCE(to_char(date_of_birth, 'YYYY-MM-DD'), ''), age, gender,
			height_feet, height_inches, legacy_height_inches, weight,
			health_conditions, custom_health_conditions, medications, custom_medications
		FROM dependents
		WHERE client_id = $1
		ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependents: %w", err)
	}
	defer rows.Close()

	var dependents []models.Dependent
	for rows.Next() {
		var dep models.Dependent
		var relationship, gender string

		err := rows.Scan(
			&dep.ID,
			&relationship,
			&dep.FullName,
			&dep.DateOfBirth,
			&dep.Age,
			&gender,
			&dep.Height.Feet,
			&dep.Height.Inches,
			&dep.Height.LegacyInches,
			&dep.Weight,
			&dep.HealthConditions,
			&dep.CustomHealthConditions,
			&dep.Medications,
			&dep.CustomMedications,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dependent: %w", err)
		}

		dep.Relationship = models.Relationship(relationship)
		dep.Gender = models.Gender(gender)
		dependents = append(dependents, dep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dependents: %w", err)
	}

	return dependents, nil
}
