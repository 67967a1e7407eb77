// Package models defines the data structures for the plan eligibility engine.
package models

import (
	"strings"
	"time"
)

// AllAges is the age range value that places no restriction on age.
const AllAges = "All Ages"

// BuildChartEntry is one underwriting weight band for a gender and height.
type BuildChartEntry struct {
	Gender       Gender  `json:"gender" validate:"required,oneof=male female"`
	HeightFeet   int     `json:"height_feet" validate:"gte=0,lte=9"`
	HeightInches int     `json:"height_inches" validate:"gte=0,lte=11"`
	MinWeight    float64 `json:"min_weight" validate:"gte=0"`
	MaxWeight    float64 `json:"max_weight" validate:"gtefield=MinWeight"`
}

// TotalInches returns the row height in inches.
func (e BuildChartEntry) TotalInches() int {
	return e.HeightFeet*12 + e.HeightInches
}

// InsurancePlan represents a carrier offer in the plan catalog.
// Empty restriction fields mean the plan places no restriction on that attribute.
type InsurancePlan struct {
	ID                            string            `json:"id" db:"id"`
	CompanyName                   string            `json:"company_name" db:"company_name" validate:"required,max=200"`
	ProductName                   string            `json:"product_name" db:"product_name" validate:"required,max=200"`
	ProductCategory               string            `json:"product_category" db:"product_category"`
	ProductPriceMonthly           float64           `json:"product_price_monthly" db:"product_price_monthly" validate:"gte=0"`
	ProductBenefits               string            `json:"product_benefits,omitempty" db:"product_benefits"`
	AvailableStates               []string          `json:"available_states,omitempty" db:"available_states"`
	AvailableZipCodes             []string          `json:"available_zip_codes,omitempty" db:"available_zip_codes"`
	CoverageType                  CoverageType      `json:"coverage_type,omitempty" db:"coverage_type" validate:"omitempty,oneof=individual family"`
	AgeRange                      string            `json:"age_range,omitempty" db:"age_range"`
	DisqualifyingHealthConditions []string          `json:"disqualifying_health_conditions,omitempty" db:"disqualifying_health_conditions"`
	DisqualifyingMedications      []string          `json:"disqualifying_medications,omitempty" db:"disqualifying_medications"`
	BuildChart                    []BuildChartEntry `json:"build_chart,omitempty" db:"build_chart" validate:"dive"`
	IsActive                      bool              `json:"is_active" db:"is_active"`
	CreatedAt                     time.Time         `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt                     time.Time         `json:"updated_at,omitempty" db:"updated_at"`
}

// PlanSummary is a lightweight view for display purposes.
type PlanSummary struct {
	ID                  string  `json:"id"`
	CompanyName         string  `json:"company_name"`
	ProductName         string  `json:"product_name"`
	ProductCategory     string  `json:"product_category"`
	ProductPriceMonthly float64 `json:"product_price_monthly"`
}

// ToSummary converts an InsurancePlan to PlanSummary.
func (p *InsurancePlan) ToSummary() PlanSummary {
	return PlanSummary{
		ID:                  p.ID,
		CompanyName:         p.CompanyName,
		ProductName:         p.ProductName,
		ProductCategory:     p.ProductCategory,
		ProductPriceMonthly: p.ProductPriceMonthly,
	}
}

// HasAgeRestriction reports whether the plan restricts age at all.
func (p *InsurancePlan) HasAgeRestriction() bool {
	return p.AgeRange != "" && p.AgeRange != AllAges
}

// Normalize puts catalog fields into the form the matcher compares against:
// uppercase states, lowercase coverage type and canonical build chart genders.
// Blank list entries are dropped.
func (p *InsurancePlan) Normalize() {
	if p == nil {
		return
	}
	p.AvailableStates = cleanList(p.AvailableStates, strings.ToUpper)
	p.AvailableZipCodes = cleanList(p.AvailableZipCodes, nil)
	p.CoverageType = CoverageType(strings.ToLower(strings.TrimSpace(string(p.CoverageType))))
	p.AgeRange = strings.TrimSpace(p.AgeRange)
	for i := range p.BuildChart {
		p.BuildChart[i].Gender = NormalizeGender(string(p.BuildChart[i].Gender))
	}
}

func cleanList(values []string, transform func(string) string) []string {
	if values == nil {
		return nil
	}
	cleaned := values[:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if transform != nil {
			v = transform(v)
		}
		cleaned = append(cleaned, v)
	}
	return cleaned
}

// BulkUpsertResult contains the results of a bulk catalog write.
type BulkUpsertResult struct {
	UpsertedCount int      `json:"upserted_count"`
	FailedCount   int      `json:"failed_count"`
	Errors        []string `json:"errors,omitempty"`
}
