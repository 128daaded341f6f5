// Package textnorm holds the string cleaning rules shared by every stage of
// the archive pipeline. All functions are total: malformed input degrades to
// best-effort cleaned text instead of an error.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// KeySeparator joins song and artist in NormalizeKey
const KeySeparator = "|||"

var (
	parenYearRe    = regexp.MustCompile(`\s*\(Year:\s*\d{4}\)`)
	bareYearRe     = regexp.MustCompile(`\s*Year:\s*\d{4}`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	refTagRe       = regexp.MustCompile(`(?is)<ref[^>]*/>|<ref[^>]*>.*?</ref>`)
	innerTemplate  = regexp.MustCompile(`\{\{[^{}]*\}\}`)
	wikiLinkRe     = regexp.MustCompile(`\[\[([^|\]]*)(?:\|([^\]]*))?\]\]`)
	markupCharsRe  = regexp.MustCompile(`[\*\{\}\[\]<>]`)
	nonSlugCharsRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// CleanArtistName strips asterisks and "Year: YYYY" annotations and trims
// the result. Applying it twice gives the same result as applying it once.
func CleanArtistName(raw string) string {
	s := raw
	for {
		next := cleanArtistOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func cleanArtistOnce(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	// parenthesized form first so no empty "()" is left behind
	s = parenYearRe.ReplaceAllString(s, "")
	s = bareYearRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// NormalizeKey builds the join key for a (song, artist) pair.
func NormalizeKey(song, artist string) string {
	return strings.TrimSpace(song) + KeySeparator + CleanArtistName(artist)
}

// CollapseWhitespace replaces runs of whitespace with one space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// StripWikiMarkup reduces a fragment of wikitext to plain text.
func StripWikiMarkup(text string) string {
	s := refTagRe.ReplaceAllString(text, "")
	s = stripTemplates(s)
	s = ReplaceWikiLinks(s)
	s = StripHTML(s)
	s = markupCharsRe.ReplaceAllString(s, "")
	return CollapseWhitespace(s)
}

// ReplaceWikiLinks rewrites [[target|label]] as label and [[target]] as target.
func ReplaceWikiLinks(s string) string {
	return wikiLinkRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := wikiLinkRe.FindStringSubmatch(m)
		if strings.TrimSpace(parts[2]) != "" {
			return parts[2]
		}
		return parts[1]
	})
}

// stripTemplates removes {{...}} blocks from the innermost outward.
func stripTemplates(s string) string {
	for {
		next := innerTemplate.ReplaceAllString(s, "")
		if next == s {
			return next
		}
		s = next
	}
}

// StripHTML drops tags and keeps text content, unescaping entities.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// tags separate words even when the source has no whitespace
			b.WriteByte(' ')
		}
	}
}

// CoverSlug turns an album title into the file stem used for cover art.
func CoverSlug(album string) string {
	s := nonSlugCharsRe.ReplaceAllString(strings.ToLower(album), "_")
	return strings.Trim(s, "_")
}

// CoverPath is the web path of an album's cover image.
func CoverPath(album string) string {
	return "/covers/" + CoverSlug(album) + ".jpg"
}

// TitleWords upper-cases the first letter of each space-separated word and
// lower-cases the rest.
func TitleWords(s string) string {
	// casers keep state, so each call gets its own
	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		words[i] = upper.String(string(r[:1])) + lower.String(string(r[1:]))
	}
	return strings.Join(words, " ")
}
