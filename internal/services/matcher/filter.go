package matcher

import (
	"slices"

	"go.uber.org/zap"

	"plan-eligibility-engine/internal/models"
)

// Check names an eligibility check. Evaluate returns the first one a plan fails.
type Check string

const (
	CheckPassed          Check = ""
	CheckState           Check = "state"
	CheckZipCode         Check = "zip_code"
	CheckCoverageType    Check = "coverage_type"
	CheckAge             Check = "age"
	CheckHealthCondition Check = "health_condition"
	CheckMedication      Check = "medication"
	CheckBuildChart      Check = "build_chart"
)

// Checks lists every rejecting check in evaluation order.
func Checks() []Check {
	return []Check{
		CheckState,
		CheckZipCode,
		CheckCoverageType,
		CheckAge,
		CheckHealthCondition,
		CheckMedication,
		CheckBuildChart,
	}
}

// Options tunes the engine.
type Options struct {
	// FuzzyPrimaryMedications applies the partial-match rule to the primary
	// applicant's medications. Off by default: primary medications match
	// exactly, dependent medications always match partially.
	FuzzyPrimaryMedications bool
}

// Engine filters a plan catalog for one client profile. It holds no per-call
// state and is safe for concurrent use.
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// NewEngine creates an engine. A nil logger disables rejection tracing.
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{opts: opts, logger: logger}
}

var defaultEngine = NewEngine(Options{}, nil)

// FilterMatchingPlans filters plans with the default options.
func FilterMatchingPlans(client *models.ClientProfile, plans []*models.InsurancePlan) []models.EligibilityResult {
	return defaultEngine.FilterMatchingPlans(client, plans)
}

// FilterMatchingPlans returns the plans the client is eligible for, in input order.
// The client profile must already be normalized.
func (e *Engine) FilterMatchingPlans(client *models.ClientProfile, plans []*models.InsurancePlan) []models.EligibilityResult {
	eligible, _ := e.Filter(client, plans)
	return eligible
}

// Filter is FilterMatchingPlans that also counts rejected plans by failing check.
func (e *Engine) Filter(client *models.ClientProfile, plans []*models.InsurancePlan) ([]models.EligibilityResult, map[Check]int) {
	eligible := make([]models.EligibilityResult, 0, len(plans))
	rejections := make(map[Check]int)
	for _, plan := range plans {
		if check := e.Evaluate(client, plan); check != CheckPassed {
			rejections[check]++
			continue
		}
		eligible = append(eligible, models.EligibilityResult{
			InsurancePlan:     *plan,
			EligibilityStatus: models.EligibilityStatusEligible,
		})
	}
	return eligible, rejections
}

// Evaluate runs the checks in order and returns the first that fails, or CheckPassed.
// A nil client or plan is a caller bug and panics.
func (e *Engine) Evaluate(client *models.ClientProfile, plan *models.InsurancePlan) Check {
	if client == nil {
		panic("matcher: nil client profile")
	}
	if plan == nil {
		panic("matcher: nil insurance plan")
	}

	check := e.evaluate(client, plan)
	if check != CheckPassed {
		e.logger.Debug("Plan rejected",
			zap.String("plan_id", plan.ID),
			zap.String("company", plan.CompanyName),
			zap.String("check", string(check)),
		)
	}
	return check
}

func (e *Engine) evaluate(client *models.ClientProfile, plan *models.InsurancePlan) Check {
	// Check 1: state
	if len(plan.AvailableStates) > 0 && !slices.Contains(plan.AvailableStates, client.State) {
		return CheckState
	}

	// Check 2: zip code, skipped when the client has none
	if len(plan.AvailableZipCodes) > 0 && client.ZipCode != "" && !slices.Contains(plan.AvailableZipCodes, client.ZipCode) {
		return CheckZipCode
	}

	// Check 3: coverage type
	if !coverageCompatible(clientCoverage(client), plan.CoverageType) {
		return CheckCoverageType
	}

	// Check 4: age
	if client.Age != nil && plan.HasAgeRestriction() && !IsAgeInRange(*client.Age, plan.AgeRange) {
		return CheckAge
	}

	// Check 5: health conditions, client and dependents
	if conditions := newDisqualifyingSet(plan.DisqualifyingHealthConditions); !conditions.empty() {
		if conditions.matchesAnyFuzzy(client.AllHealthConditions()) {
			return CheckHealthCondition
		}
		for i := range client.Dependents {
			if conditions.matchesAnyFuzzy(client.Dependents[i].AllHealthConditions()) {
				return CheckHealthCondition
			}
		}
	}

	// Check 6: medications, client exact unless configured, dependents partial
	if medications := newDisqualifyingSet(plan.DisqualifyingMedications); !medications.empty() {
		primary := client.AllMedications()
		if e.opts.FuzzyPrimaryMedications {
			if medications.matchesAnyFuzzy(primary) {
				return CheckMedication
			}
		} else if medications.matchesAnyExact(primary) {
			return CheckMedication
		}
		for i := range client.Dependents {
			if medications.matchesAnyFuzzy(client.Dependents[i].AllMedications()) {
				return CheckMedication
			}
		}
	}

	// Check 7: build chart, skipped without weight or gender
	if len(plan.BuildChart) > 0 && client.HasWeight() && client.Gender != "" {
		if !CheckBuildEligibility(client.Gender, *client.Weight, client.Height, plan.BuildChart) {
			return CheckBuildChart
		}
	}

	return CheckPassed
}

// clientCoverage falls back to the dependent count when the profile was not normalized.
func clientCoverage(client *models.ClientProfile) models.CoverageType {
	if client.CoverageType != "" {
		return client.CoverageType
	}
	return client.DeriveCoverageType()
}

func coverageCompatible(client, plan models.CoverageType) bool {
	switch {
	case client == models.CoverageTypeIndividual && plan == models.CoverageTypeFamily:
		return false
	case client == models.CoverageTypeFamily && plan == models.CoverageTypeIndividual:
		return false
	}
	return true
}
