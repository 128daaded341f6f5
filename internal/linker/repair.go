package linker

import (
	"log/slog"

	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/textnorm"
)

// Field selects what Repair propagates from songs to entries
type Field int

const (
	FieldArtist Field = 1 << iota
	FieldTitle

	FieldAll = FieldArtist | FieldTitle
)

// Repair copies canonical song titles and artist names onto the entries
// that share their number. Entries are modified in place and every change
// is logged and returned. Entries without a matching song are left alone.
func Repair(songs []models.Song, entries []models.Entry, fields Field) []models.Change {
	byNumber := make(map[int]models.Song, len(songs))
	for _, s := range songs {
		if _, exists := byNumber[s.Number]; !exists {
			byNumber[s.Number] = s
		}
	}

	var changes []models.Change
	for i := range entries {
		e := &entries[i]
		s, ok := byNumber[e.Number]
		if !ok {
			slog.Warn("No song record for entry, skipping repair", "number", e.Number, "song", e.Song)
			continue
		}

		if fields&FieldArtist != 0 {
			want := textnorm.CleanArtistName(s.Artist)
			if e.Artist != want {
				changes = append(changes, models.Change{Number: e.Number, Field: "artist", Old: e.Artist, New: want})
				slog.Info("Repaired entry artist", "number", e.Number, "old", e.Artist, "new", want)
				e.Artist = want
			}
		}

		if fields&FieldTitle != 0 && e.Song != s.Song {
			changes = append(changes, models.Change{Number: e.Number, Field: "song", Old: e.Song, New: s.Song})
			slog.Info("Repaired entry title", "number", e.Number, "old", e.Song, "new", s.Song)
			e.Song = s.Song
		}
	}
	return changes
}

// CleanSongArtists canonicalizes artist names on the song records
// themselves, returning the changes made.
func CleanSongArtists(songs []models.Song) []models.Change {
	var changes []models.Change
	for i := range songs {
		s := &songs[i]
		clean := textnorm.CleanArtistName(s.Artist)
		if clean != s.Artist {
			changes = append(changes, models.Change{Number: s.Number, Field: "artist", Old: s.Artist, New: clean})
			slog.Debug("Cleaned song artist", "number", s.Number, "old", s.Artist, "new", clean)
			s.Artist = clean
		}
	}
	return changes
}
