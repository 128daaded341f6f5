// Package linker joins song records to entry write-ups and repairs drift
// between the two datasets. The song dataset is authoritative.
package linker

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/textnorm"
)

// Pair is a song and its entry. Either side may be nil when the join is
// incomplete.
type Pair struct {
	Song  *models.Song
	Entry *models.Entry
}

// Index answers lookups across the song and entry datasets
type Index struct {
	byNumber map[int]*Pair
	byKey    map[string]*Pair
	numbers  []int
}

// Link builds the lookup index. Numbers are the primary join; the
// normalized (song, artist) key is a secondary join for records whose
// number cannot be trusted. When several records share a key the first
// one in input order wins. The index points into the given slices, so they
// must not be appended to while it is in use.
func Link(songs []models.Song, entries []models.Entry) *Index {
	idx := &Index{
		byNumber: make(map[int]*Pair, len(songs)),
		byKey:    make(map[string]*Pair, len(songs)),
	}

	for i := range songs {
		s := &songs[i]
		p, ok := idx.byNumber[s.Number]
		if !ok {
			p = &Pair{}
			idx.byNumber[s.Number] = p
			idx.numbers = append(idx.numbers, s.Number)
		}
		if p.Song == nil {
			p.Song = s
		}
		key := textnorm.NormalizeKey(s.Song, s.Artist)
		if _, exists := idx.byKey[key]; !exists {
			idx.byKey[key] = &Pair{Song: s}
		}
	}

	for i := range entries {
		e := &entries[i]
		p, ok := idx.byNumber[e.Number]
		if !ok {
			p = &Pair{}
			idx.byNumber[e.Number] = p
			idx.numbers = append(idx.numbers, e.Number)
		}
		if p.Entry == nil {
			p.Entry = e
		}
		key := textnorm.NormalizeKey(e.Song, e.Artist)
		kp, exists := idx.byKey[key]
		if !exists {
			kp = &Pair{}
			idx.byKey[key] = kp
		}
		if kp.Entry == nil {
			kp.Entry = e
		}
	}

	sort.Ints(idx.numbers)
	return idx
}

// ByNumber returns the pair sharing an entry number.
func (idx *Index) ByNumber(number int) (Pair, bool) {
	p, ok := idx.byNumber[number]
	if !ok {
		return Pair{}, false
	}
	return *p, true
}

// ByKey returns the pair whose song or entry has the given song and artist.
func (idx *Index) ByKey(song, artist string) (Pair, bool) {
	p, ok := idx.byKey[textnorm.NormalizeKey(song, artist)]
	if !ok {
		return Pair{}, false
	}
	return *p, true
}

// EntryFor finds the entry for a song: by number first, then by key.
func (idx *Index) EntryFor(s models.Song) (*models.Entry, bool) {
	if p, ok := idx.byNumber[s.Number]; ok && p.Entry != nil {
		return p.Entry, true
	}
	if p, ok := idx.byKey[textnorm.NormalizeKey(s.Song, s.Artist)]; ok && p.Entry != nil {
		return p.Entry, true
	}
	return nil, false
}

// Numbers lists every entry number seen on either side, ascending
func (idx *Index) Numbers() []int {
	out := make([]int, len(idx.numbers))
	copy(out, idx.numbers)
	return out
}

// Missing reports numbers present on only one side of the join.
func (idx *Index) Missing() []models.Issue {
	var issues []models.Issue
	for _, n := range idx.numbers {
		p := idx.byNumber[n]
		switch {
		case p.Song != nil && p.Entry == nil:
			issues = append(issues, models.Issue{
				Kind:    models.IssueMissingJoin,
				Number:  n,
				Message: fmt.Sprintf("song %q has no entry", p.Song.Song),
			})
		case p.Song == nil && p.Entry != nil:
			issues = append(issues, models.Issue{
				Kind:    models.IssueMissingJoin,
				Number:  n,
				Message: fmt.Sprintf("entry %q has no song record", p.Entry.Song),
			})
		}
	}
	return issues
}

// Drift returns the pairs whose entry song or artist disagrees with the
// song record of the same number.
func (idx *Index) Drift() []Pair {
	var drifted []Pair
	for _, n := range idx.numbers {
		p := idx.byNumber[n]
		if p.Song == nil || p.Entry == nil {
			continue
		}
		if p.Song.Song != p.Entry.Song || textnorm.CleanArtistName(p.Song.Artist) != p.Entry.Artist {
			drifted = append(drifted, *p)
		}
	}
	return drifted
}

// FindEntryForDisplay finds an entry by exact song and artist, falling back
// to the first entry with the same title. The fallback can pick another
// artist's song of the same name; display callers accept that.
func FindEntryForDisplay(entries []models.Entry, song, artist string) (*models.Entry, bool) {
	for i := range entries {
		if entries[i].Song == song && entries[i].Artist == artist {
			return &entries[i], true
		}
	}
	for i := range entries {
		if entries[i].Song == song {
			slog.Debug("Display lookup fell back to title match", "song", song, "artist", artist, "matched_artist", entries[i].Artist)
			return &entries[i], true
		}
	}
	return nil, false
}
