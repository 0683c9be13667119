package catalog

import (
	"slices"
	"strings"
)

// Subsume drops every title that contains a different candidate title as a
// substring (case-insensitively), keeping the shortest, most specific forms.
// Exact duplicates are collapsed; the result is sorted.
//
// The comparison is quadratic in the number of titles, which is fine for the
// low thousands a page index yields per keyword.
func Subsume(titles []string) []string {
	lower := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		lower[strings.ToLower(t)] = struct{}{}
	}

	seen := make(map[string]bool, len(titles))
	var out []string
	for _, t := range titles {
		if seen[t] || subsumed(strings.ToLower(t), lower) {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

func subsumed(title string, others map[string]struct{}) bool {
	for other := range others {
		if other != title && strings.Contains(title, other) {
			return true
		}
	}
	return false
}
