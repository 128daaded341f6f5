package dataset

import (
	"errors"

	"github.com/fussin-and-lovin/archiver/internal/models"
)

// ErrSchemaDrift marks a record that does not have the expected shape.
// Such records are skipped, not fatal.
var ErrSchemaDrift = errors.New("schema drift")

// SongRow is the flat columnar form of a song used for parquet files
type SongRow struct {
	Number       int64    `parquet:"number"`
	Song         string   `parquet:"song"`
	Artist       string   `parquet:"artist"`
	Album        string   `parquet:"album"`
	Genres       []string `parquet:"genres"`
	AlbumArtists []string `parquet:"related_album"`
	OtherArtists []string `parquet:"related_other"`
	WordCount    int64    `parquet:"word_count"`
	IsTragic     int32    `parquet:"is_tragic"`
}

// NewSongRow flattens a song
func NewSongRow(s models.Song) SongRow {
	return SongRow{
		Number:       int64(s.Number),
		Song:         s.Song,
		Artist:       s.Artist,
		Album:        s.Album,
		Genres:       s.Genres,
		AlbumArtists: s.RelatedArtists.Album,
		OtherArtists: s.RelatedArtists.Other,
		WordCount:    int64(s.WordCount),
		IsTragic:     int32(s.IsTragic),
	}
}

// ToSong rebuilds the song record from a row
func (r SongRow) ToSong() models.Song {
	s := models.Song{
		Number:    int(r.Number),
		Song:      r.Song,
		Artist:    r.Artist,
		Album:     r.Album,
		Genres:    r.Genres,
		WordCount: int(r.WordCount),
		IsTragic:  int(r.IsTragic),
	}
	s.RelatedArtists.Album = r.AlbumArtists
	s.RelatedArtists.Other = r.OtherArtists
	s.Normalize()
	return s
}

// WordCountRow is one line of word_counts.csv
type WordCountRow struct {
	Number    int
	Song      string
	Artist    string
	WordCount int
}

// ArtistCoverage is one line of unique_artists_cleaned.csv
type ArtistCoverage struct {
	Artist         string  `json:"artist" yaml:"artist"`
	TotalSongs     int     `json:"total_songs" yaml:"total_songs"`
	SongsWithWords int     `json:"songs_with_words" yaml:"songs_with_words"`
	Percentage     float64 `json:"percentage_with_words" yaml:"percentage_with_words"`
}
