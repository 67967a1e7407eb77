// Package models defines the data structures for the plan eligibility engine.
package models

import (
	"strings"
	"time"
)

// Gender represents the gender recorded on a client or a build chart row.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// NormalizeGender lowercases and trims a gender value. Unknown values are returned as-is.
func NormalizeGender(g string) Gender {
	normalized := strings.ToLower(strings.TrimSpace(g))
	switch normalized {
	case "m":
		return GenderMale
	case "f":
		return GenderFemale
	}
	return Gender(normalized)
}

// CoverageType represents individual or family coverage.
type CoverageType string

const (
	CoverageTypeIndividual CoverageType = "individual"
	CoverageTypeFamily     CoverageType = "family"
)

// IsValid checks if the coverage type is a known value.
func (c CoverageType) IsValid() bool {
	return c == CoverageTypeIndividual || c == CoverageTypeFamily
}

// Relationship is a dependent's relationship to the primary applicant.
type Relationship string

const (
	RelationshipSpouse    Relationship = "spouse"
	RelationshipDependent Relationship = "dependent"
)

// Height holds both height representations a profile may carry.
// LegacyInches, when positive, wins over Feet and Inches.
type Height struct {
	Feet         int `json:"height_feet" db:"height_feet" validate:"gte=0,lte=9"`
	Inches       int `json:"height_inches" db:"height_inches" validate:"gte=0,lte=11"`
	LegacyInches int `json:"legacy_height_inches,omitempty" db:"legacy_height_inches" validate:"gte=0,lte=120"`
}

// TotalInches returns the normalized height in inches.
func (h Height) TotalInches() int {
	if h.LegacyInches > 0 {
		return h.LegacyInches
	}
	return h.Feet*12 + h.Inches
}

// Dependent is a spouse or child covered alongside the primary applicant.
type Dependent struct {
	ID                     string       `json:"id,omitempty" db:"id"`
	Relationship           Relationship `json:"relationship" db:"relationship" validate:"required,oneof=spouse dependent"`
	FullName               string       `json:"full_name,omitempty" db:"full_name"`
	DateOfBirth            string       `json:"date_of_birth,omitempty" db:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Age                    *int         `json:"age,omitempty" db:"age" validate:"omitempty,gte=0,lte=120"`
	Gender                 Gender       `json:"gender,omitempty" db:"gender" validate:"omitempty,oneof=male female"`
	Height                 Height       `json:"height"`
	Weight                 *float64     `json:"weight,omitempty" db:"weight" validate:"omitempty,gt=0"`
	HealthConditions       []string     `json:"health_conditions,omitempty" db:"health_conditions"`
	CustomHealthConditions []string     `json:"custom_health_conditions,omitempty" db:"custom_health_conditions"`
	Medications            []string     `json:"medications,omitempty" db:"medications"`
	CustomMedications      []string     `json:"custom_medications,omitempty" db:"custom_medications"`
}

// AllHealthConditions returns the merged catalog and free-text conditions.
func (d *Dependent) AllHealthConditions() []string {
	return MergeTerms(d.HealthConditions, d.CustomHealthConditions)
}

// AllMedications returns the merged catalog and free-text medications.
func (d *Dependent) AllMedications() []string {
	return MergeTerms(d.Medications, d.CustomMedications)
}

// ClientProfile is the primary applicant submitted through intake.
type ClientProfile struct {
	ID                     string       `json:"id,omitempty" db:"id"`
	FullName               string       `json:"full_name" db:"full_name" validate:"required,max=200"`
	Email                  string       `json:"email,omitempty" db:"email" validate:"omitempty,email"`
	DateOfBirth            string       `json:"date_of_birth,omitempty" db:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	State                  string       `json:"state" db:"state" validate:"required,len=2,alpha"`
	ZipCode                string       `json:"zip_code,omitempty" db:"zip_code" validate:"omitempty,len=5,numeric"`
	Gender                 Gender       `json:"gender,omitempty" db:"gender" validate:"omitempty,oneof=male female"`
	Age                    *int         `json:"age,omitempty" db:"age" validate:"omitempty,gte=0,lte=120"`
	Height                 Height       `json:"height"`
	Weight                 *float64     `json:"weight,omitempty" db:"weight" validate:"omitempty,gt=0"`
	HealthConditions       []string     `json:"health_conditions,omitempty" db:"health_conditions"`
	CustomHealthConditions []string     `json:"custom_health_conditions,omitempty" db:"custom_health_conditions"`
	Medications            []string     `json:"medications,omitempty" db:"medications"`
	CustomMedications      []string     `json:"custom_medications,omitempty" db:"custom_medications"`
	CoverageType           CoverageType `json:"coverage_type,omitempty" db:"coverage_type" validate:"omitempty,oneof=individual family"`
	Dependents             []Dependent  `json:"dependents,omitempty" validate:"dive"`
	CreatedAt              time.Time    `json:"created_at,omitempty" db:"created_at"`
}

// AllHealthConditions returns the merged catalog and free-text conditions.
func (c *ClientProfile) AllHealthConditions() []string {
	return MergeTerms(c.HealthConditions, c.CustomHealthConditions)
}

// AllMedications returns the merged catalog and free-text medications.
func (c *ClientProfile) AllMedications() []string {
	return MergeTerms(c.Medications, c.CustomMedications)
}

// DeriveCoverageType returns family when any dependent is present.
func (c *ClientProfile) DeriveCoverageType() CoverageType {
	if len(c.Dependents) > 0 {
		return CoverageTypeFamily
	}
	return CoverageTypeIndividual
}

// HasWeight reports whether a usable weight was supplied.
func (c *ClientProfile) HasWeight() bool {
	return c.Weight != nil && *c.Weight > 0
}

// Normalize prepares a profile for matching. It uppercases the state, reduces
// a ZIP+4 code to its five-digit base, and derives the coverage type. Age is
// recomputed from DateOfBirth whenever it parses, so a stored profile is aged
// to now; a supplied Age is kept only when there is no usable date of birth.
// now is the single reference instant used for every age in the request.
func (c *ClientProfile) Normalize(now time.Time) {
	c.State = strings.ToUpper(strings.TrimSpace(c.State))
	c.ZipCode = normalizeZipCode(c.ZipCode)
	c.Gender = NormalizeGender(string(c.Gender))
	c.Age = resolveAge(c.Age, c.DateOfBirth, now)

	for i := range c.Dependents {
		d := &c.Dependents[i]
		d.Gender = NormalizeGender(string(d.Gender))
		d.Age = resolveAge(d.Age, d.DateOfBirth, now)
	}

	c.CoverageType = c.DeriveCoverageType()
}

// AgeAt returns the age in whole years on the given date.
func AgeAt(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// normalizeZipCode trims whitespace and drops a "-NNNN" ZIP+4 suffix.
func normalizeZipCode(zip string) string {
	zip = strings.TrimSpace(zip)
	if base, plus4, ok := strings.Cut(zip, "-"); ok && len(base) == 5 && len(plus4) == 4 {
		return base
	}
	return zip
}

func resolveAge(age *int, dob string, now time.Time) *int {
	if derived := ageFromDateOfBirth(dob, now); derived != nil {
		return derived
	}
	return age
}

func ageFromDateOfBirth(dob string, now time.Time) *int {
	if dob == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return nil
	}
	age := AgeAt(parsed, now)
	return &age
}

// MergeTerms unions term lists, keeping first-seen order. Blank entries and
// case-insensitive duplicates are dropped.
func MergeTerms(lists ...[]string) []string {
	var merged []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, term := range list {
			trimmed := strings.TrimSpace(term)
			if trimmed == "" {
				continue
			}
			key := strings.ToLower(trimmed)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, trimmed)
		}
	}
	return merged
}
