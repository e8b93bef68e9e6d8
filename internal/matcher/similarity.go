package matcher

import (
	"regexp"
	"strings"
)

var nonAlnumRx = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeTitle lowercases a title and strips punctuation so that
// "Spider-Man" and "spider man" compare equal.
func normalizeTitle(s string) string {
	s = strings.ToLower(s)
	s = nonAlnumRx.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Similarity scores two titles in [0, 1] using normalized Levenshtein
// distance over the cleaned strings. 1 means identical.
func Similarity(a, b string) float64 {
	na, nb := normalizeTitle(a), normalizeTitle(b)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}
	dist := levenshtein(na, nb)
	longest := len(na)
	if len(nb) > longest {
		longest = len(nb)
	}
	return 1 - float64(dist)/float64(longest)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

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
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
