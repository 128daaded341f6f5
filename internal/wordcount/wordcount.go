// Package wordcount measures the length of an entry write-up. The count is
// produced by a fixed sequence of stages so each cleaning rule can be
// inspected and tested on its own.
package wordcount

import (
	"regexp"
	"strings"
)

const (
	// ThoughtsMarker opens the author's own write-up inside an entry body
	ThoughtsMarker = "Thoughts:"
	// ReplyMarker opens a quoted reply thread
	ReplyMarker = "Reply from"
)

// Policy decides what to count when an entry has no Thoughts marker
type Policy int

const (
	// WholeText counts the entire body when the marker is missing
	WholeText Policy = iota
	// Zero counts nothing when the marker is missing
	Zero
)

func (p Policy) String() string {
	switch p {
	case Zero:
		return "zero"
	default:
		return "whole"
	}
}

// ParsePolicy maps a flag value to a Policy, defaulting to WholeText.
func ParsePolicy(s string) Policy {
	if strings.EqualFold(strings.TrimSpace(s), "zero") {
		return Zero
	}
	return WholeText
}

// NoiseRule is one named cleaning step applied by StripNoise
type NoiseRule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// NoiseRules run in order. Signature, aside and separator removal must
// happen before punctuation is blanked out.
var NoiseRules = []NoiseRule{
	{Name: "signature", Pattern: regexp.MustCompile(`(?m)^[–—].*$`)},
	{Name: "aside", Pattern: regexp.MustCompile(`(?m)^\(.*?\)`)},
	{Name: "separator", Pattern: regexp.MustCompile(`(?m)^_+[ \t]*$`)},
	{Name: "punctuation", Pattern: regexp.MustCompile(`[^\w\s]`), Replacement: " "},
	{Name: "whitespace", Pattern: regexp.MustCompile(`\s+`), Replacement: " "},
}

// Extraction is the trace of every stage for one text body
type Extraction struct {
	Input       string
	MarkerFound bool
	Thoughts    string
	Truncated   bool
	Body        string
	Cleaned     string
	Tokens      []string
}

// Count is the number of tokens that survived every stage
func (e Extraction) Count() int {
	return len(e.Tokens)
}

// LocateThoughts returns the text after the first Thoughts marker. When the
// marker is absent it returns the text unchanged and false.
func LocateThoughts(text string) (string, bool) {
	idx := strings.Index(text, ThoughtsMarker)
	if idx < 0 {
		return text, false
	}
	return text[idx+len(ThoughtsMarker):], true
}

// TruncateAtReply drops the first reply marker and everything after it.
func TruncateAtReply(text string) (string, bool) {
	idx := strings.Index(text, ReplyMarker)
	if idx < 0 {
		return text, false
	}
	return text[:idx], true
}

// StripNoise applies NoiseRules in order and trims the result.
func StripNoise(text string) string {
	for _, rule := range NoiseRules {
		text = rule.Pattern.ReplaceAllString(text, rule.Replacement)
	}
	return strings.TrimSpace(text)
}

// Tokenize splits cleaned text on single spaces, dropping empty tokens.
func Tokenize(cleaned string) []string {
	var tokens []string
	for _, tok := range strings.Split(cleaned, " ") {
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Extract runs every stage under the WholeText policy.
func Extract(text string) Extraction {
	return ExtractWith(text, WholeText)
}

// ExtractWith runs every stage under the given missing-marker policy.
func ExtractWith(text string, policy Policy) Extraction {
	e := Extraction{Input: text}
	if text == "" {
		return e
	}

	e.Thoughts, e.MarkerFound = LocateThoughts(text)
	if !e.MarkerFound && policy == Zero {
		return e
	}

	e.Body, e.Truncated = TruncateAtReply(e.Thoughts)
	e.Cleaned = StripNoise(e.Body)
	e.Tokens = Tokenize(e.Cleaned)
	return e
}

// Count returns the word count of an entry body. It is pure: the same text
// always yields the same count.
func Count(text string) int {
	return Extract(text).Count()
}

// CountWith returns the word count under the given missing-marker policy.
func CountWith(text string, policy Policy) int {
	return ExtractWith(text, policy).Count()
}
