// Package models defines the data structures for the plan eligibility engine.
package models

import (
	"time"
)

// EligibilityStatus annotates plans returned by the engine.
type EligibilityStatus string

// EligibilityStatusEligible is the only status the engine produces: it filters, it does not classify.
const EligibilityStatusEligible EligibilityStatus = "eligible"

// EligibilityResult is a plan that passed every eligibility check.
type EligibilityResult struct {
	InsurancePlan
	EligibilityStatus EligibilityStatus `json:"eligibility_status"`
}

// MatchStatus represents the lifecycle of a stored client-plan match.
type MatchStatus string

const (
	MatchStatusEligible MatchStatus = "eligible"
	MatchStatusNotified MatchStatus = "notified"
	MatchStatusExpired  MatchStatus = "expired"
)

// PlanMatch is a persisted eligibility result for a client.
type PlanMatch struct {
	ID         string      `json:"id" db:"id"`
	ClientID   string      `json:"client_id" db:"client_id"`
	PlanID     string      `json:"plan_id" db:"plan_id"`
	Status     MatchStatus `json:"status" db:"status"`
	BatchID    string      `json:"batch_id,omitempty" db:"batch_id"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
	NotifiedAt *time.Time  `json:"notified_at,omitempty" db:"notified_at"`
}

// PlanMatchCreate represents data needed to store a match.
type PlanMatchCreate struct {
	ClientID string      `json:"client_id" validate:"required"`
	PlanID   string      `json:"plan_id" validate:"required"`
	Status   MatchStatus `json:"status"`
	BatchID  string      `json:"batch_id,omitempty"`
}

// NewPlanMatches converts engine output for one client into storable matches.
func NewPlanMatches(clientID, batchID string, results []EligibilityResult) []*PlanMatchCreate {
	matches := make([]*PlanMatchCreate, len(results))
	for i, r := range results {
		matches[i] = &PlanMatchCreate{
			ClientID: clientID,
			PlanID:   r.ID,
			Status:   MatchStatusEligible,
			BatchID:  batchID,
		}
	}
	return matches
}

// PlanMatchWithDetails contains a match joined with client and plan details.
type PlanMatchWithDetails struct {
	PlanMatch
	ClientName          string  `json:"client_name"`
	ClientEmail         string  `json:"client_email,omitempty"`
	CompanyName         string  `json:"company_name"`
	ProductName         string  `json:"product_name"`
	ProductCategory     string  `json:"product_category"`
	ProductPriceMonthly float64 `json:"product_price_monthly"`
}

// BatchMatchSummary provides summary statistics for a matching batch.
type BatchMatchSummary struct {
	BatchID             string  `json:"batch_id"`
	TotalClients        int     `json:"total_clients"`
	TotalPlans          int     `json:"total_plans"`
	TotalMatches        int     `json:"total_matches"`
	ClientsWithMatches  int     `json:"clients_with_matches"`
	AvgMatchesPerClient float64 `json:"avg_matches_per_client"`
}
