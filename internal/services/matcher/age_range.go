package matcher

import (
	"strconv"
	"strings"

	"plan-eligibility-engine/internal/models"
)

// IsAgeInRange reports whether age satisfies a plan age range.
//
// Accepted formats:
//   - "" or "All Ages": no restriction
//   - "<min>+": age >= min
//   - "<min>-<max>": min <= age <= max, inclusive
//
// Any other format, or a bound that does not parse as an integer, fails closed.
func IsAgeInRange(age int, ageRange string) bool {
	if ageRange == "" || ageRange == models.AllAges {
		return true
	}

	if strings.HasSuffix(ageRange, "+") {
		minAge, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(ageRange, "+")))
		if err != nil {
			return false
		}
		return age >= minAge
	}

	if strings.Contains(ageRange, "-") {
		parts := strings.Split(ageRange, "-")
		if len(parts) != 2 {
			return false
		}
		minAge, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return false
		}
		maxAge, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return false
		}
		return age >= minAge && age <= maxAge
	}

	return false
}
