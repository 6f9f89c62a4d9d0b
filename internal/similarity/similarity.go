// Package similarity ranks candidate identifiers by how closely they resemble
// an unmatched name.
package similarity

import "sort"

// DefaultThreshold is the minimum ratio a candidate needs to be suggested.
const DefaultThreshold = 0.6

// Match is a candidate with its similarity score.
type Match struct {
	Candidate string  `json:"candidate"`
	Score     float64 `json:"score"`
}

// Ratio returns 2*M/T where M is the number of runes covered by matching
// blocks and T the combined rune length. Two empty strings are identical.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

// matchingRunes finds the longest common block, then recurses on both sides.
func matchingRunes(a, b []rune) int {
	i, j, size := longestBlock(a, b)
	if size == 0 {
		return 0
	}
	return size + matchingRunes(a[:i], b[:j]) + matchingRunes(a[i+size:], b[j+size:])
}

// longestBlock returns the longest common substring of a and b. Ties go to the
// block starting earliest in a, then earliest in b.
func longestBlock(a, b []rune) (int, int, int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	bestI, bestJ, best := 0, 0, 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] != b[j-1] {
				cur[j] = 0
				continue
			}
			cur[j] = prev[j-1] + 1
			if cur[j] > best {
				best = cur[j]
				bestI, bestJ = i-best, j-best
			}
		}
		prev, cur = cur, prev
	}
	return bestI, bestJ, best
}

// Suggest scores every candidate against target and returns those at or above
// threshold, best first. Equal scores are ordered by candidate. A limit of
// zero or less returns every match. Duplicate candidates are scored once.
func Suggest(target string, candidates []string, threshold float64, limit int) []Match {
	seen := make(map[string]struct{}, len(candidates))
	var matches []Match
	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if score := Ratio(target, c); score >= threshold {
			matches = append(matches, Match{Candidate: c, Score: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Candidate < matches[j].Candidate
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Names returns the candidate strings of matches in order.
func Names(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Candidate
	}
	return out
}
