package linker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fussin-and-lovin/archiver/internal/models"
)

// Match classes, from strongest to weakest
const (
	MatchExact       = "exact"
	MatchFuzzyHigh   = "fuzzy_high"
	MatchFuzzyMedium = "fuzzy_medium"
	MatchFuzzyLow    = "fuzzy_low"
	MatchNone        = "no_match"
)

// Candidate is the closest entry found for a song with no number join
type Candidate struct {
	Entry    *models.Entry
	Score    float64 // 0.0 to 1.0
	Distance int     // Levenshtein distance of the combined key
	Match    string
	Notes    string
}

var punctRe = regexp.MustCompile(`[^\w\s]`)

// Suggest returns the entry whose song and artist are most similar to the
// given song. It is only used to point reviewers at likely fixes; it never
// links records on its own.
func Suggest(s models.Song, entries []models.Entry) (Candidate, bool) {
	want := normalizeText(s.Song + " " + s.Artist)
	best := Candidate{Score: -1}
	for i := range entries {
		c := compare(want, normalizeText(entries[i].Song+" "+entries[i].Artist))
		if c.Score > best.Score {
			c.Entry = &entries[i]
			best = c
		}
	}
	if best.Entry == nil {
		return Candidate{Match: MatchNone}, false
	}
	return best, best.Match != MatchNone
}

// Similarity scores two strings between 0 and 1 after normalization.
func Similarity(a, b string) float64 {
	return compare(normalizeText(a), normalizeText(b)).Score
}

func compare(expNorm, actNorm string) Candidate {
	var c Candidate

	if expNorm == "" || actNorm == "" {
		c.Match = MatchNone
		c.Distance = max(len(expNorm), len(actNorm))
		c.Notes = "Empty key"
		return c
	}

	distance := levenshteinDistance(expNorm, actNorm)
	c.Distance = distance

	if expNorm == actNorm {
		c.Score = 1.0
		c.Match = MatchExact
		c.Notes = "Exact match"
		return c
	}

	maxLen := max(len(expNorm), len(actNorm))
	similarity := 1.0 - (float64(distance) / float64(maxLen))
	c.Score = similarity

	switch {
	case similarity > 0.9:
		c.Match = MatchFuzzyHigh
	case similarity > 0.7:
		c.Match = MatchFuzzyMedium
	case similarity > 0.5:
		c.Match = MatchFuzzyLow
	default:
		c.Match = MatchNone
	}
	c.Notes = fmt.Sprintf("Similarity %.1f%%, Levenshtein: %d", similarity*100, distance)
	return c
}

// normalizeText lowercases, drops punctuation and collapses whitespace
func normalizeText(text string) string {
	text = strings.ToLower(text)
	text = punctRe.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// levenshteinDistance calculates the Levenshtein distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

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
