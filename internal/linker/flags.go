package linker

import (
	"strings"

	"github.com/fussin-and-lovin/archiver/internal/models"
)

// MatchFlag tests the artist against the flag list in order. The first
// flag artist contained in the lower-cased name wins, so list order
// matters. It returns 0 and "" when nothing matches.
func MatchFlag(artist string, flags []models.ArtistFlag) (int, string) {
	name := strings.ToLower(artist)
	for _, f := range flags {
		needle := strings.ToLower(strings.TrimSpace(f.Artist))
		if needle == "" {
			continue
		}
		if strings.Contains(name, needle) {
			if f.Tragic() {
				return 1, f.Artist
			}
			return 0, f.Artist
		}
	}
	return 0, ""
}

// ApplyFlags sets IsTragic on every song and returns how many were flagged.
func ApplyFlags(songs []models.Song, flags []models.ArtistFlag) int {
	flagged := 0
	for i := range songs {
		songs[i].IsTragic, _ = MatchFlag(songs[i].Artist, flags)
		flagged += songs[i].IsTragic
	}
	return flagged
}
