package textnorm

import (
	"regexp"
	"strings"
)

// genreSynonyms maps lower-cased, hyphen-free genre spellings to their
// canonical label.
var genreSynonyms = map[string]string{
	"alt country":         "Alternative country",
	"alternative country": "Alternative country",
	"americana":           "Americana",
	"americana (music)":   "Americana",
	"bluegrass":           "Bluegrass",
	"bluegrass (music)":   "Bluegrass",
	"country":             "Country",
	"country music":       "Country",
	"country rock":        "Country rock",
	"folk":                "Folk",
	"folk music":          "Folk",
	"folk rock":           "Folk rock",
	"rock":                "Rock",
	"rock music":          "Rock",
	"rock and roll":       "Rock",
	"roots rock":          "Roots rock",
	"southern rock":       "Southern rock",
}

// infobox keywords that leak into genre lists when templates are split
var templateKeywords = map[string]bool{
	"hlist":                     true,
	"flatlist":                  true,
	"flat list":                 true,
	"solo_singer":               true,
	"group_or_band":             true,
	"person":                    true,
	"band":                      true,
	"non_vocal_instrumentalist": true,
}

var (
	genreFieldRe = regexp.MustCompile(`(?i)\|\s*genres?\s*=`)
	listTmplRe   = regexp.MustCompile(`(?is)\{\{\s*(?:hlist|flatlist|flat list|ubl|unbulleted list)\s*\|`)
	genreSplitRe = regexp.MustCompile(`[,;|\n•]`)
)

func synonymKey(s string) string {
	return CollapseWhitespace(strings.ReplaceAll(strings.ToLower(s), "-", " "))
}

// StandardizeGenre maps a raw genre string to its canonical label. Known
// synonyms are matched case-insensitively; anything else is title-cased.
func StandardizeGenre(raw string) string {
	g := StripWikiMarkup(raw)
	if g == "" {
		return ""
	}
	if canonical, ok := genreSynonyms[synonymKey(g)]; ok {
		return canonical
	}
	return TitleWords(g)
}

// StandardizeGenres standardizes each genre, dropping empties and
// duplicates while keeping first-seen order.
func StandardizeGenres(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		g := StandardizeGenre(r)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out
}

// ParseInfoboxGenres extracts the raw genre list from the "genre" field of
// a Wikipedia infobox. It returns nil when the page has no genre field.
func ParseInfoboxGenres(wikitext string) []string {
	loc := genreFieldRe.FindStringIndex(wikitext)
	if loc == nil {
		return nil
	}
	value := fieldValue(wikitext[loc[1]:])

	// unwrap list templates so their items survive template removal
	value = listTmplRe.ReplaceAllString(value, "|")
	value = refTagRe.ReplaceAllString(value, "")
	value = ReplaceWikiLinks(value)
	value = stripTemplates(value)
	value = strings.ReplaceAll(value, "}}", "")

	var genres []string
	seen := make(map[string]bool)
	for _, part := range genreSplitRe.Split(value, -1) {
		g := StripWikiMarkup(part)
		key := strings.ToLower(g)
		if g == "" || templateKeywords[key] || seen[key] {
			continue
		}
		seen[key] = true
		genres = append(genres, g)
	}
	return genres
}

// fieldValue returns the text of one infobox field: everything up to the
// next top-level "|" that starts a line, or the "}}" closing the infobox.
func fieldValue(s string) string {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], "{{") || strings.HasPrefix(s[i:], "[["):
			depth++
			i++
		case strings.HasPrefix(s[i:], "}}") || strings.HasPrefix(s[i:], "]]"):
			if depth == 0 {
				return s[:i]
			}
			depth--
			i++
		case s[i] == '\n' && depth == 0:
			rest := strings.TrimLeft(s[i+1:], " \t")
			if strings.HasPrefix(rest, "|") || strings.HasPrefix(rest, "}}") {
				return s[:i]
			}
		case s[i] == '|' && depth == 0:
			return s[:i]
		}
	}
	return s
}
