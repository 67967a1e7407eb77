package matcher

import (
	"strings"

	"plan-eligibility-engine/internal/models"
)

// nearestHeightTolerance is how far, in inches, a chart row may be from the
// applicant's height and still be used when no row matches exactly.
const nearestHeightTolerance = 1

// CheckBuildEligibility tests an applicant's weight against a plan build chart.
//
// Missing data never rejects: an empty chart, a chart with no rows for the
// gender, or no row within one inch of the height all pass. A weight above the
// heaviest row in the whole chart is rejected before any row lookup.
func CheckBuildEligibility(gender models.Gender, weight float64, height models.Height, chart []models.BuildChartEntry) bool {
	if len(chart) == 0 {
		return true
	}

	// Coarse pre-filter across every gender and height.
	if weight > maxChartWeight(chart) {
		return false
	}

	rows := make([]models.BuildChartEntry, 0, len(chart))
	for _, entry := range chart {
		if strings.EqualFold(string(entry.Gender), string(gender)) {
			rows = append(rows, entry)
		}
	}
	if len(rows) == 0 {
		return true
	}

	totalInches := height.TotalInches()

	for _, entry := range rows {
		if entry.TotalInches() == totalInches {
			return inWeightBand(entry, weight)
		}
	}

	nearest := rows[0]
	nearestDiff := absInt(rows[0].TotalInches() - totalInches)
	for _, entry := range rows[1:] {
		diff := absInt(entry.TotalInches() - totalInches)
		if diff < nearestDiff {
			nearest = entry
			nearestDiff = diff
		}
	}

	if nearestDiff <= nearestHeightTolerance {
		return inWeightBand(nearest, weight)
	}

	return true
}

func maxChartWeight(chart []models.BuildChartEntry) float64 {
	maxWeight := chart[0].MaxWeight
	for _, entry := range chart[1:] {
		if entry.MaxWeight > maxWeight {
			maxWeight = entry.MaxWeight
		}
	}
	return maxWeight
}

func inWeightBand(entry models.BuildChartEntry, weight float64) bool {
	return weight >= entry.MinWeight && weight <= entry.MaxWeight
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
