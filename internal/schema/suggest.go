package schema

import "strings"

// maxSuggestDistance bounds how far a rejected value may be from a domain entry
// to be offered as a correction.
const maxSuggestDistance = 2

// Suggest returns the domain entry closest to value, compared case-insensitively,
// when one lies within a small edit distance. Ties keep the earlier entry.
func (f Field) Suggest(value string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	best, bestDist := "", maxSuggestDistance+1
	for _, d := range f.Domain {
		if dist := editDistance(v, strings.ToLower(d)); dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best, best != ""
}

// editDistance is the optimal string alignment distance: insertions, deletions,
// substitutions and adjacent transpositions each cost 1.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev2 := make([]int, len(rb)+1)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				curr[j] = min(curr[j], prev2[j-2]+1)
			}
		}
		prev2, prev, curr = prev, curr, prev2
	}
	return prev[len(rb)]
}
