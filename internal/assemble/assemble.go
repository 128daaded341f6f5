// Package assemble merges raw song, entry, flag and enrichment inputs into
// the two canonical datasets the site reads.
package assemble

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/fussin-and-lovin/archiver/internal/linker"
	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/textnorm"
	"github.com/fussin-and-lovin/archiver/internal/wordcount"
)

// Assembler holds the inputs of one assembly run. Only Songs is required;
// a nil Flags leaves existing tragic flags as they are and nil enrichment
// maps add nothing.
type Assembler struct {
	Songs   []models.Song
	Entries []models.Entry
	Flags   []models.ArtistFlag
	Genres  map[int][]string
	Related map[int]models.RelatedArtists

	// Policy decides what an entry without a "Thoughts:" marker counts as
	Policy wordcount.Policy
}

// Result is the assembled output. Songs and Entries are sorted by number.
// Records skipped for a bad or repeated number are returned as they were
// given so callers writing in place can keep them.
type Result struct {
	Songs   []models.Song
	Entries []models.Entry
	Issues  []models.Issue
	Changes []models.Change

	SkippedSongs   []models.Song
	SkippedEntries []models.Entry
}

// Run assembles the datasets. Inputs are copied, never modified. Running
// it again on its own output with the same flags and enrichment gives the
// same result.
func (a *Assembler) Run() (*Result, error) {
	if a.Songs == nil {
		return nil, fmt.Errorf("no songs to assemble")
	}

	res := &Result{}
	songs := a.validSongs(res)
	entries := a.validEntries(res)

	res.Changes = append(res.Changes, linker.CleanSongArtists(songs)...)
	res.Changes = append(res.Changes, cleanEntryArtists(entries)...)
	// song records are authoritative for titles and artists
	res.Changes = append(res.Changes, linker.Repair(songs, entries, linker.FieldAll)...)

	idx := linker.Link(songs, entries)
	a.countWords(songs, entries, idx, res)

	if a.Flags != nil {
		flagged := linker.ApplyFlags(songs, a.Flags)
		slog.Debug("Applied artist flags", "flags", len(a.Flags), "flagged", flagged)
	}

	for i := range songs {
		s := &songs[i]
		if raw, ok := a.Genres[s.Number]; ok {
			s.Genres = MergeGenres(s.Genres, raw)
		}
		if rel, ok := a.Related[s.Number]; ok {
			s.RelatedArtists = MergeRelated(s.RelatedArtists, rel)
		}
		s.Normalize()
	}

	sort.SliceStable(songs, func(i, j int) bool { return songs[i].Number < songs[j].Number })
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Number < entries[j].Number })
	sort.SliceStable(res.Issues, func(i, j int) bool { return res.Issues[i].Number < res.Issues[j].Number })

	res.Songs = songs
	res.Entries = entries

	slog.Info("Assembled dataset",
		"songs", len(songs),
		"entries", len(entries),
		"issues", len(res.Issues),
		"changes", len(res.Changes))
	return res, nil
}

// validSongs copies the songs, dropping records with a non-positive or
// repeated number.
func (a *Assembler) validSongs(res *Result) []models.Song {
	out := make([]models.Song, 0, len(a.Songs))
	seen := make(map[int]bool, len(a.Songs))
	for _, s := range a.Songs {
		if issue, ok := checkNumber(s.Number, s.Song, seen); !ok {
			slog.Warn("Skipping song record", "number", s.Number, "song", s.Song, "reason", issue.Message)
			res.Issues = append(res.Issues, issue)
			res.SkippedSongs = append(res.SkippedSongs, s)
			continue
		}
		s.Genres = append([]string(nil), s.Genres...)
		s.RelatedArtists = models.RelatedArtists{
			Album: append([]string(nil), s.RelatedArtists.Album...),
			Other: append([]string(nil), s.RelatedArtists.Other...),
		}
		out = append(out, s)
	}
	return out
}

func (a *Assembler) validEntries(res *Result) []models.Entry {
	out := make([]models.Entry, 0, len(a.Entries))
	seen := make(map[int]bool, len(a.Entries))
	for _, e := range a.Entries {
		if issue, ok := checkNumber(e.Number, e.Song, seen); !ok {
			slog.Warn("Skipping entry record", "number", e.Number, "song", e.Song, "reason", issue.Message)
			res.Issues = append(res.Issues, issue)
			res.SkippedEntries = append(res.SkippedEntries, e)
			continue
		}
		out = append(out, e)
	}
	return out
}

func checkNumber(n int, title string, seen map[int]bool) (models.Issue, bool) {
	switch {
	case n <= 0:
		return models.Issue{
			Kind:    models.IssueSchemaDrift,
			Number:  n,
			Message: fmt.Sprintf("%q has non-positive number %d", title, n),
		}, false
	case seen[n]:
		return models.Issue{
			Kind:    models.IssueSchemaDrift,
			Number:  n,
			Message: fmt.Sprintf("%q repeats number %d", title, n),
		}, false
	}
	seen[n] = true
	return models.Issue{}, true
}

func cleanEntryArtists(entries []models.Entry) []models.Change {
	var changes []models.Change
	for i := range entries {
		e := &entries[i]
		clean := textnorm.CleanArtistName(e.Artist)
		if clean != e.Artist {
			changes = append(changes, models.Change{Number: e.Number, Field: "artist", Old: e.Artist, New: clean})
			e.Artist = clean
		}
	}
	return changes
}

func (a *Assembler) countWords(songs []models.Song, entries []models.Entry, idx *linker.Index, res *Result) {
	joined := make(map[int]bool, len(entries))
	for i := range songs {
		s := &songs[i]
		e, ok := idx.EntryFor(*s)
		if !ok {
			s.WordCount = 0
			res.Issues = append(res.Issues, models.Issue{
				Kind:    models.IssueMissingJoin,
				Number:  s.Number,
				Message: fmt.Sprintf("song %q has no entry", s.Song),
			})
			if c, found := linker.Suggest(*s, entries); found {
				slog.Warn("Song has no entry, closest match",
					"number", s.Number,
					"song", s.Song,
					"candidate", c.Entry.Number,
					"candidate_song", c.Entry.Song,
					"match", c.Match,
					"notes", c.Notes)
			}
			continue
		}
		joined[e.Number] = true

		ex := wordcount.ExtractWith(e.TextBody, a.Policy)
		s.WordCount = ex.Count()
		if strings.TrimSpace(e.TextBody) != "" && !ex.MarkerFound {
			res.Issues = append(res.Issues, models.Issue{
				Kind:    models.IssueMalformedText,
				Number:  e.Number,
				Message: fmt.Sprintf("entry %q has no %q marker, counted as %s", e.Song, wordcount.ThoughtsMarker, a.Policy),
			})
		}
	}

	for _, e := range entries {
		if !joined[e.Number] {
			res.Issues = append(res.Issues, models.Issue{
				Kind:    models.IssueMissingJoin,
				Number:  e.Number,
				Message: fmt.Sprintf("entry %q has no song record", e.Song),
			})
		}
	}
}

// MergeGenres adds standardized raw genres to the existing list. Existing
// genres keep their position and spelling; new ones are appended unless
// already present.
func MergeGenres(existing, raw []string) []string {
	out := append([]string{}, existing...)
	seen := make(map[string]bool, len(existing)+len(raw))
	for _, g := range existing {
		seen[strings.ToLower(g)] = true
	}
	for _, g := range textnorm.StandardizeGenres(raw) {
		if seen[strings.ToLower(g)] {
			continue
		}
		seen[strings.ToLower(g)] = true
		out = append(out, g)
	}
	return out
}

// MergeRelated unions two related-artist sets, keeping first-seen order.
func MergeRelated(existing, extra models.RelatedArtists) models.RelatedArtists {
	return models.RelatedArtists{
		Album: union(existing.Album, extra.Album),
		Other: union(existing.Other, extra.Other),
	}
}

func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
