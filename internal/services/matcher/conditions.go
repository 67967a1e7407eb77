package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// minTokenLength is the shortest disqualifying-entry token that may match by substring.
const minTokenLength = 4

// fold returns the caseless form of s. A Caser holds state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// isTokenSeparator splits disqualifying entries such as "Type 2 Diabetes/Insulin Dependent".
func isTokenSeparator(r rune) bool {
	return r == '/' || r == ',' || r == '-' || unicode.IsSpace(r)
}

// termMatches reports whether a client term hits a disqualifying entry.
// Both arguments must already be folded.
func termMatches(clientTerm, entry string) bool {
	if clientTerm == "" || entry == "" {
		return false
	}
	if clientTerm == entry || strings.Contains(entry, clientTerm) || strings.Contains(clientTerm, entry) {
		return true
	}

	for _, token := range strings.FieldsFunc(entry, isTokenSeparator) {
		if token == clientTerm {
			return true
		}
		if utf8.RuneCountInString(token) >= minTokenLength && (strings.Contains(clientTerm, token) || strings.Contains(token, clientTerm)) {
			return true
		}
	}
	return false
}

// disqualifyingSet is a folded list of a plan's disqualifying entries.
type disqualifyingSet struct {
	entries []string
	exact   map[string]struct{}
}

func newDisqualifyingSet(entries []string) disqualifyingSet {
	set := disqualifyingSet{
		entries: make([]string, 0, len(entries)),
		exact:   make(map[string]struct{}, len(entries)),
	}
	for _, entry := range entries {
		folded := fold(entry)
		if folded == "" {
			continue
		}
		set.entries = append(set.entries, folded)
		set.exact[folded] = struct{}{}
	}
	return set
}

func (s disqualifyingSet) empty() bool {
	return len(s.entries) == 0
}

// matchesAnyFuzzy reports whether any client term partially matches any entry.
func (s disqualifyingSet) matchesAnyFuzzy(terms []string) bool {
	for _, term := range terms {
		folded := fold(term)
		if folded == "" {
			continue
		}
		for _, entry := range s.entries {
			if termMatches(folded, entry) {
				return true
			}
		}
	}
	return false
}

// matchesAnyExact reports whether any client term equals an entry, ignoring case.
func (s disqualifyingSet) matchesAnyExact(terms []string) bool {
	for _, term := range terms {
		if _, ok := s.exact[fold(term)]; ok {
			return true
		}
	}
	return false
}
