package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermMatches(t *testing.T) {
	tests := []struct {
		name   string
		client string
		entry  string
		want   bool
	}{
		{"exact", "cancer", "Cancer", true},
		{"entry contains client", "diabetes", "Type 2 Diabetes/Insulin Dependent", true},
		{"client contains entry", "Stage 3 Cancer", "cancer", true},
		{"entry substring", "heart", "Heartburn", true},
		{"token equals client", "copd", "Asthma/COPD", true},
		{"long token inside client", "insulin pump", "Type 2 Diabetes/Insulin Dependent", true},
		{"short token ignored", "hiv positive", "HIV-AIDS", false},
		{"unrelated", "asthma", "Cancer", false},
		{"blank client", "", "Cancer", false},
		{"blank entry", "cancer", "  ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, termMatches(fold(tt.client), fold(tt.entry)))
		})
	}
}

func TestFold_UnicodeCaseless(t *testing.T) {
	assert.Equal(t, fold("STRASSE"), fold("straße"))
	assert.Equal(t, "cancer", fold("  Cancer "))
}

func TestDisqualifyingSet(t *testing.T) {
	set := newDisqualifyingSet([]string{"Warfarin", "", "  ", "Insulin"})

	assert.False(t, set.empty())
	assert.Len(t, set.entries, 2)

	assert.True(t, set.matchesAnyExact([]string{"aspirin", "WARFARIN"}))
	assert.False(t, set.matchesAnyExact([]string{"warfarin sodium"}))
	assert.True(t, set.matchesAnyFuzzy([]string{"warfarin sodium"}))
	assert.False(t, set.matchesAnyFuzzy([]string{"", "metformin"}))

	assert.True(t, newDisqualifyingSet(nil).empty())
	assert.True(t, newDisqualifyingSet([]string{" "}).empty())
}
