// Package database provides database operations for the plan eligibility engine.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"plan-eligibility-engine/internal/models"
)

const upsertMatchSQL = `
		INSERT INTO plan_matches (client_id, plan_id, status, batch_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (client_id, plan_id) DO UPDATE SET
			status = EXCLUDED.status,
			batch_id = EXCLUDED.batch_id,
			updated_at = EXCLUDED.updated_at,
			notified_at = NULL`

// MatchRepository handles plan match database operations.
type MatchRepository struct {
	db *DB
}

// NewMatchRepository creates a new match repository.
func NewMatchRepository(db *DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// BulkInsert stores matches in one transaction, replacing any earlier match
// for the same client and plan. It returns the number of rows written.
func (r *MatchRepository) BulkInsert(ctx context.Context, matches []*models.PlanMatchCreate) (int, error) {
	if len(matches) == 0 {
		return 0, nil
	}

	inserted := 0
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()

		for _, match := range matches {
			status := match.Status
			if status == "" {
				status = models.MatchStatusEligible
			}

			if _, err := tx.Exec(ctx, upsertMatchSQL,
				match.ClientID,
				match.PlanID,
				string(status),
				match.BatchID,
				now,
			); err != nil {
				return fmt.Errorf("failed to insert match for plan %s: %w", match.PlanID, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("bulk insert failed: %w", err)
	}

	return inserted, nil
}

// GetByClientID retrieves all matches for a client with plan details.
func (r *MatchRepository) GetByClientID(ctx context.Context, clientID string) ([]*models.PlanMatchWithDetails, error) {
	query := `
		SELECT
			m.id, m.client_id, m.plan_id, m.status, m.batch_id, m.created_at, m.updated_at, m.notified_at,
			c.full_name, c.email,
			p.company_name, p.product_name, p.product_category, p.product_price_monthly
		FROM plan_matches m
		JOIN clients c ON m.client_id = c.id
		JOIN insurance_plans p ON m.plan_id = p.id
		WHERE m.client_id = $1
		ORDER BY p.company_name, p.product_name, p.id`

	rows, err := r.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches by client: %w", err)
	}
	defer rows.Close()

	return scanMatchDetails(rows)
}

// GetPendingNotifications retrieves eligible matches that have not been sent.
// An empty batchID returns pending matches from every batch.
func (r *MatchRepository) GetPendingNotifications(ctx context.Context, batchID string) ([]*models.PlanMatchWithDetails, error) {
	query := `
		SELECT
			m.id, m.client_id, m.plan_id, m.status, m.batch_id, m.created_at, m.updated_at, m.notified_at,
			c.full_name, c.email,
			p.company_name, p.product_name, p.product_category, p.product_price_monthly
		FROM plan_matches m
		JOIN clients c ON m.client_id = c.id
		JOIN insurance_plans p ON m.plan_id = p.id
		WHERE m.status = 'eligible' AND m.notified_at IS NULL`

	args := []any{}
	if batchID != "" {
		query += " AND m.batch_id = $1"
		args = append(args, batchID)
	}

	query += " ORDER BY m.client_id, p.company_name, p.product_name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending notifications: %w", err)
	}
	defer rows.Close()

	return scanMatchDetails(rows)
}

// MarkAsNotified marks a match as notified.
func (r *MatchRepository) MarkAsNotified(ctx context.Context, matchID string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		"UPDATE plan_matches SET status = 'notified', notified_at = $1, updated_at = $1 WHERE id = $2",
		now, matchID)
	if err != nil {
		return fmt.Errorf("failed to mark match as notified: %w", err)
	}
	return nil
}

// GetBatchSummary returns summary statistics for a batch.
func (r *MatchRepository) GetBatchSummary(ctx context.Context, batchID string) (*models.BatchMatchSummary, error) {
	summary := &models.BatchMatchSummary{
		BatchID: batchID,
	}

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM insurance_plans WHERE is_active = true").Scan(&summary.TotalPlans)
	if err != nil {
		return nil, fmt.Errorf("failed to count plans: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) AS total_matches,
			COUNT(DISTINCT client_id) AS clients_with_matches
		FROM plan_matches
		WHERE batch_id = $1`,
		batchID).Scan(
		&summary.TotalMatches,
		&summary.ClientsWithMatches,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize batch: %w", err)
	}

	summary.TotalClients = summary.ClientsWithMatches
	if summary.ClientsWithMatches > 0 {
		summary.AvgMatchesPerClient = float64(summary.TotalMatches) / float64(summary.ClientsWithMatches)
	}

	return summary, nil
}

// scanMatchDetails scans joined match rows.
func scanMatchDetails(rows pgx.Rows) ([]*models.PlanMatchWithDetails, error) {
	results := make([]*models.PlanMatchWithDetails, 0)
	for rows.Next() {
		var m models.PlanMatchWithDetails
		var status string

		err := rows.Scan(
			&m.ID, &m.ClientID, &m.PlanID, &status, &m.BatchID, &m.CreatedAt, &m.UpdatedAt, &m.NotifiedAt,
			&m.ClientName, &m.ClientEmail,
			&m.CompanyName, &m.ProductName, &m.ProductCategory, &m.ProductPriceMonthly,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}

		m.Status = models.MatchStatus(status)
		results = append(results, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}

	return results, nil
}
