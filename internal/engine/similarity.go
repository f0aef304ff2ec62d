// Package engine holds the pure computation core: row validation, subject
// similarity and reconciliation, and dataset normalization. Nothing in
// this package touches storage; callers persist what they need.
package engine

import "strings"

// Normalize prepares a subject name for fuzzy comparison: trimmed,
// uppercased, whitespace runs collapsed to single spaces. Stored subject
// codes are uppercased and trimmed by the validator but deliberately not
// whitespace-collapsed; this form is for lookups and matching only.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(name)), " ")
}

// Similarity scores two subject names in [0, 1]. Two empty strings score
// 1.0. A shorter string contained in the longer scores a flat 0.9, which
// treats code/name pairs like "CS401" and "CS401 ADVANCED ALGORITHMS" as
// near matches without paying for edit distance. Everything else falls
// through to 1 - distance/len(longer).
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longer, shorter := a, b
	lr := ra
	if len(rb) > len(ra) {
		longer, shorter = b, a
		lr = rb
	}
	if len(lr) == 0 {
		return 1.0
	}
	if a == b {
		return 1.0
	}
	if strings.Contains(longer, shorter) {
		return 0.9
	}
	d := Levenshtein(longer, shorter)
	return 1 - float64(d)/float64(len(lr))
}

// Levenshtein returns the edit distance between two strings, counting
// insertions, deletions, and substitutions at cost 1 each.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[i] = min(curr[i-1]+1, prev[i]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}
