// Package ingest turns raw archive sources (an mbox export or a text dump
// of the archive PDF) into entry records.
package ingest

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/textnorm"
)

// ErrMalformed marks a block that has no recognizable entry number or title
var ErrMalformed = errors.New("malformed entry text")

// Block is one candidate entry cut from a source. Number is the entry
// number the source claims for it, or 0 when it does not say.
type Block struct {
	Source string
	Number int
	Text   string
}

// Parsed is an entry together with the album named in its header
type Parsed struct {
	Entry models.Entry
	Album string
}

var (
	songLineRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Song|Fussin'?\s*and\s*Lovin'?)\s*#\s*(\d+)(?::\s*(?:"([^"]+)"|([^"\n]+)))?`),
		regexp.MustCompile(`^#\s*(\d+)(?::\s*(?:"([^"]+)"|([^"\n]+)))?`),
	}
	quotedLineRe = regexp.MustCompile(`^"([^"]+)"`)
	artistRes    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Who Made it:\s*(.+)`),
		regexp.MustCompile(`(?i)\bby:\s*(.+)`),
		regexp.MustCompile(`(?i)\bArtist:\s*(.+)`),
	}
	looseByRe  = regexp.MustCompile(`(?i)\bby\s+(.+)`)
	albumRe    = regexp.MustCompile(`(?i)^Album:\s*(.+)`)
	urlRe      = regexp.MustCompile(`https?://[^\s<>"]+`)
	blankRunRe = regexp.MustCompile(`\n[ \t]*\n\s*`)
	softBreak  = regexp.MustCompile(`=\r?\n`)
)

var smartQuotes = strings.NewReplacer(
	"\u201c", `"`, "\u201d", `"`,
	"\u2018", "'", "\u2019", "'",
	"\u00a0", " ",
	"=3D", "=",
	"\r\n", "\n",
)

// CleanText normalizes quotes and spaces, undoes leftover quoted-printable
// escapes and drops HTML tags. Blank-line runs collapse to one blank line.
func CleanText(s string) string {
	s = softBreak.ReplaceAllString(s, "")
	s = smartQuotes.Replace(s)
	s = textnorm.StripHTML(s)
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// ParseBlock reads the entry header out of a block. The block text is kept
// whole as the entry body. A block with no number or no title fails with
// ErrMalformed, as does one whose number disagrees with the source's.
func ParseBlock(b Block) (Parsed, error) {
	text := CleanText(b.Text)
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return Parsed{}, fmt.Errorf("%w: empty block", ErrMalformed)
	}

	number, title, at := findSongLine(lines)
	if number == 0 {
		number = b.Number
	}
	if number <= 0 {
		return Parsed{}, fmt.Errorf("%w: no entry number", ErrMalformed)
	}
	if b.Number > 0 && number != b.Number {
		return Parsed{}, fmt.Errorf("%w: body says #%d, source says #%d", ErrMalformed, number, b.Number)
	}

	if title == "" {
		title = findTitle(lines, at)
	}
	if title == "" {
		return Parsed{}, fmt.Errorf("%w: no title for #%d", ErrMalformed, number)
	}

	p := Parsed{
		Entry: models.Entry{
			Number:   number,
			Song:     title,
			Artist:   findArtist(header(lines), at),
			TextBody: text,
		},
	}
	for _, l := range header(lines) {
		if m := albumRe.FindStringSubmatch(l); m != nil {
			p.Album = strings.TrimSpace(m[1])
			break
		}
	}
	assignLinks(&p.Entry, lines)
	return p, nil
}

// findSongLine returns the number and inline title of the first header
// line, and its index, or -1 when there is none.
func findSongLine(lines []string) (int, string, int) {
	for i, l := range lines {
		for _, re := range songLineRes {
			m := re.FindStringSubmatch(l)
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			title := m[2]
			if title == "" {
				title = m[3]
			}
			return n, strings.TrimSpace(title), i
		}
	}
	return 0, "", -1
}

func findTitle(lines []string, at int) string {
	for _, l := range lines {
		if m := quotedLineRe.FindStringSubmatch(l); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	if at >= 0 && at+1 < len(lines) {
		return lines[at+1]
	}
	return ""
}

// header is the part of a block before the write-up starts. Loose "by"
// matches are only trusted there.
func header(lines []string) []string {
	for i, l := range lines {
		if strings.HasPrefix(l, "Thoughts:") {
			return lines[:i]
		}
	}
	return lines
}

// findArtist skips the header line at index songLine in its loose pass,
// since titles like "Stand By Your Man" would match there.
func findArtist(lines []string, songLine int) string {
	for _, re := range artistRes {
		for _, l := range lines {
			if m := re.FindStringSubmatch(l); m != nil {
				return strings.TrimSpace(m[1])
			}
		}
	}
	for i, l := range lines {
		if i == songLine {
			continue
		}
		if m := looseByRe.FindStringSubmatch(l); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// assignLinks picks the first Spotify link and the first two Wikipedia
// links. A Wikipedia link on a line mentioning the album is the album page;
// otherwise the first one is the artist page.
func assignLinks(e *models.Entry, lines []string) {
	for _, l := range lines {
		for _, raw := range urlRe.FindAllString(l, -1) {
			raw = strings.TrimRight(raw, ".,;)")
			u, err := url.Parse(raw)
			if err != nil {
				continue
			}
			host := strings.ToLower(u.Hostname())
			switch {
			case strings.HasSuffix(host, "spotify.com"):
				if e.SpotifyLink == "" {
					e.SpotifyLink = raw
				}
			case strings.HasSuffix(host, "wikipedia.org"):
				albumLine := strings.Contains(strings.ToLower(l), "album")
				switch {
				case albumLine && e.AlbumWiki == "":
					e.AlbumWiki = raw
				case !albumLine && e.ArtistWiki == "":
					e.ArtistWiki = raw
				case e.AlbumWiki == "":
					e.AlbumWiki = raw
				}
			}
		}
	}
}

// Dedupe keeps the first record for each number and title pair and sorts
// the result by number.
func Dedupe(records []Parsed) []Parsed {
	seen := make(map[string]bool, len(records))
	out := make([]Parsed, 0, len(records))
	for _, r := range records {
		key := strconv.Itoa(r.Entry.Number) + "-" + r.Entry.Song
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Entry.Number < out[j].Entry.Number })
	return out
}
