package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"plan-eligibility-engine/internal/models"
)

func chartRow(gender models.Gender, feet, inches int, minWeight, maxWeight float64) models.BuildChartEntry {
	return models.BuildChartEntry{
		Gender:       gender,
		HeightFeet:   feet,
		HeightInches: inches,
		MinWeight:    minWeight,
		MaxWeight:    maxWeight,
	}
}

func TestCheckBuildEligibility_ExactMatch(t *testing.T) {
	chart := []models.BuildChartEntry{chartRow(models.GenderMale, 5, 10, 140, 185)}
	height := models.Height{Feet: 5, Inches: 10}

	assert.True(t, CheckBuildEligibility(models.GenderMale, 160, height, chart))
	assert.True(t, CheckBuildEligibility(models.GenderMale, 140, height, chart), "lower bound is inclusive")
	assert.True(t, CheckBuildEligibility(models.GenderMale, 185, height, chart), "upper bound is inclusive")
	assert.False(t, CheckBuildEligibility(models.GenderMale, 130, height, chart))
	assert.False(t, CheckBuildEligibility(models.GenderMale, 190, height, chart))
}

func TestCheckBuildEligibility_NoRowsForGender(t *testing.T) {
	chart := []models.BuildChartEntry{chartRow(models.GenderMale, 5, 10, 140, 185)}

	assert.True(t, CheckBuildEligibility(models.GenderFemale, 160, models.Height{Feet: 5, Inches: 10}, chart))
}

func TestCheckBuildEligibility_GenderIsCaseInsensitive(t *testing.T) {
	chart := []models.BuildChartEntry{chartRow("Male", 5, 10, 140, 185)}

	assert.False(t, CheckBuildEligibility(models.GenderMale, 130, models.Height{Feet: 5, Inches: 10}, chart))
}

func TestCheckBuildEligibility_NearestNeighbor(t *testing.T) {
	chart := []models.BuildChartEntry{
		chartRow(models.GenderMale, 5, 10, 140, 185),
		chartRow(models.GenderMale, 6, 1, 150, 200),
	}
	height := models.Height{Feet: 5, Inches: 11}

	// 5'10" is one inch away, 6'1" is two.
	assert.True(t, CheckBuildEligibility(models.GenderMale, 180, height, chart))
	assert.False(t, CheckBuildEligibility(models.GenderMale, 190, height, chart))
}

func TestCheckBuildEligibility_NearestTieKeepsFirstRow(t *testing.T) {
	chart := []models.BuildChartEntry{
		chartRow(models.GenderMale, 5, 10, 140, 170),
		chartRow(models.GenderMale, 6, 0, 150, 200),
	}
	height := models.Height{Feet: 5, Inches: 11}

	assert.False(t, CheckBuildEligibility(models.GenderMale, 180, height, chart))
}

func TestCheckBuildEligibility_NoRowWithinTolerance(t *testing.T) {
	chart := []models.BuildChartEntry{
		chartRow(models.GenderMale, 5, 6, 120, 150),
		chartRow(models.GenderMale, 6, 4, 170, 230),
	}

	assert.True(t, CheckBuildEligibility(models.GenderMale, 200, models.Height{Feet: 5, Inches: 11}, chart))
}

func TestCheckBuildEligibility_GlobalMaxRejection(t *testing.T) {
	chart := []models.BuildChartEntry{
		chartRow(models.GenderMale, 5, 10, 140, 185),
		chartRow(models.GenderFemale, 5, 4, 110, 160),
	}

	// No female rows near 6'6", but the weight exceeds every row in the chart.
	assert.False(t, CheckBuildEligibility(models.GenderFemale, 250, models.Height{Feet: 6, Inches: 6}, chart))
	assert.False(t, CheckBuildEligibility("other", 250, models.Height{Feet: 5, Inches: 10}, chart))
}

func TestCheckBuildEligibility_GlobalMaxUsesWholeChart(t *testing.T) {
	chart := []models.BuildChartEntry{
		chartRow(models.GenderMale, 5, 10, 140, 185),
		chartRow(models.GenderMale, 6, 6, 180, 260),
	}

	// Passes the coarse filter, then fails the 5'10" band.
	assert.False(t, CheckBuildEligibility(models.GenderMale, 220, models.Height{Feet: 5, Inches: 10}, chart))
}

func TestCheckBuildEligibility_EmptyChart(t *testing.T) {
	assert.True(t, CheckBuildEligibility(models.GenderMale, 400, models.Height{Feet: 5, Inches: 10}, nil))
}

func TestCheckBuildEligibility_LegacyHeight(t *testing.T) {
	chart := []models.BuildChartEntry{chartRow(models.GenderFemale, 5, 4, 110, 160)}

	// Legacy 64 inches wins over the 6'0" feet and inches.
	height := models.Height{Feet: 6, Inches: 0, LegacyInches: 64}
	assert.True(t, CheckBuildEligibility(models.GenderFemale, 150, height, chart))
	assert.False(t, CheckBuildEligibility(models.GenderFemale, 100, height, chart))
}
