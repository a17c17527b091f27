package ui

import (
	"sort"
	"strings"
)

const (
	// DefaultMaxDistance is the largest edit distance still offered as a suggestion
	DefaultMaxDistance = 3
	// DefaultMaxSuggestions caps the number of suggestions
	DefaultMaxSuggestions = 3
)

// FindSimilar returns up to DefaultMaxSuggestions candidates within
// DefaultMaxDistance edits of target, closest first. Matching ignores case;
// ties keep candidate order.
//
// Example:
//
//	FindSimilar("Custmers", []string{"Customers", "Orders", "Products"})
//	// Returns: ["Customers"]
func FindSimilar(target string, candidates []string) []string {
	type match struct {
		value    string
		distance int
	}

	lower := strings.ToLower(target)
	var matches []match
	for _, c := range candidates {
		if d := LevenshteinDistance(lower, strings.ToLower(c)); d <= DefaultMaxDistance {
			matches = append(matches, match{value: c, distance: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	out := make([]string, 0, DefaultMaxSuggestions)
	for i := 0; i < len(matches) && i < DefaultMaxSuggestions; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// LevenshteinDistance calculates the minimum number of single-character
// insertions, deletions or substitutions turning s1 into s2.
//
// Example:
//
//	LevenshteinDistance("kitten", "sitting") // Returns: 3
func LevenshteinDistance(s1, s2 string) int {
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
