package linker

import (
	"regexp"
	"sort"
	"strings"
)

// Aliases maps shorthand used in write-ups to the full artist name. An alias
// only applies when its artist is part of the archive.
var Aliases = map[string]string{
	"tvz":             "Townes Van Zandt",
	"dbt":             "Drive-By Truckers",
	"gp":              "Gram Parsons",
	"eh":              "Emmylou Harris",
	"tth":             "Tom T. Hall",
	"silos":           "The Silos",
	"tupelo":          "Uncle Tupelo",
	"old 97s":         "Old 97's",
	"magnolia":        "Magnolia Electric Co.",
	"ohia":            "Songs: Ohia",
	"marshall tucker": "The Marshall Tucker Band",
	"pure prairie":    "Pure Prairie League",
	"gourds":          "The Gourds",
	"volt":            "Son Volt",
	"burrito":         "The Flying Burrito Brothers",
	"byrds":           "The Byrds",
	"junkies":         "Cowboy Junkies",
	"knitters":        "The Knitters",
	"don juans":       "The Modern Don Juans",
	"smog":            "Golden Smog",
	"refreshments":    "The Refreshments",
	"tragically hip":  "The Tragically Hip",
	"allman brothers": "Allman Brothers Band",
}

var yearRe = regexp.MustCompile(`^\d{4}$`)

type mentionKey struct {
	pattern *regexp.Regexp
	artists []string
}

// MentionDetector finds archive artists referenced in free text
type MentionDetector struct {
	keys []mentionKey
}

// NewMentionDetector builds lookup keys for the given artists: the full
// name, the last word of multi-word names, and any alias whose artist is
// present. Full names and aliases match case-insensitively; last names must
// match with their original capitalization.
func NewMentionDetector(artists []string) *MentionDetector {
	present := make(map[string]bool, len(artists))
	lookup := make(map[string]map[string]bool)
	caseSensitive := make(map[string]bool)

	add := func(key, artist string, sensitive bool) {
		if key == "" || yearRe.MatchString(key) {
			return
		}
		if lookup[key] == nil {
			lookup[key] = make(map[string]bool)
		}
		lookup[key][artist] = true
		if sensitive {
			caseSensitive[key] = true
		}
	}

	for _, a := range artists {
		a = strings.TrimSpace(a)
		if a == "" || present[a] {
			continue
		}
		present[a] = true
		add(strings.ToLower(a), a, false)
		if parts := strings.Fields(a); len(parts) >= 2 {
			add(parts[len(parts)-1], a, true)
		}
	}
	for alias, artist := range Aliases {
		if present[artist] {
			add(alias, artist, false)
		}
	}

	keys := make([]string, 0, len(lookup))
	for k := range lookup {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := &MentionDetector{}
	for _, k := range keys {
		expr := boundedPattern(k)
		if !caseSensitive[k] {
			expr = `(?i)` + expr
		}
		names := make([]string, 0, len(lookup[k]))
		for a := range lookup[k] {
			names = append(names, a)
		}
		sort.Strings(names)
		d.keys = append(d.keys, mentionKey{pattern: regexp.MustCompile(expr), artists: names})
	}
	return d
}

// boundedPattern matches key as a whole word. Edges that are not word
// characters, like the dot in "Co.", get a non-word or text boundary
// instead of \b, which would never match there.
func boundedPattern(key string) string {
	expr := regexp.QuoteMeta(key)
	if isWordByte(key[0]) {
		expr = `\b` + expr
	} else {
		expr = `(?:^|\W)` + expr
	}
	if isWordByte(key[len(key)-1]) {
		expr += `\b`
	} else {
		expr += `(?:\W|$)`
	}
	return expr
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// Detect returns the sorted artists mentioned in text, excluding self.
func (d *MentionDetector) Detect(text, self string) []string {
	found := make(map[string]bool)
	for _, k := range d.keys {
		if k.pattern.MatchString(text) {
			for _, a := range k.artists {
				if a != self {
					found[a] = true
				}
			}
		}
	}
	out := make([]string, 0, len(found))
	for a := range found {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// DetectMentions is a one-shot helper around MentionDetector.
func DetectMentions(text string, artists []string, self string) []string {
	return NewMentionDetector(artists).Detect(text, self)
}
