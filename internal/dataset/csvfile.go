package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fussin-and-lovin/archiver/internal/models"
)

// Column names of the hand-edited master spreadsheet export
const (
	colNumber       = "Number"
	colTrack        = "Track Name"
	colArtist       = "Main Artist"
	colAlbum        = "Album"
	colSpotify      = "Spotify Link"
	colText         = "text_body"
	colArtistWiki   = "Artist Wikipedia"
	colAlbumWiki    = "Album Wikipedia"
	colRelatedAlbum = "Related Artists - Album"
	colRelatedOther = "Related Artists - Other"

	relatedSeparator = "; "
)

// WordCountHeader is the header row of word_counts.csv
var WordCountHeader = []string{"number", "song", "artist", "word_count"}

// ArtistCoverageHeader is the header row of unique_artists_cleaned.csv
var ArtistCoverageHeader = []string{"artist", "total_songs", "songs_with_words", "percentage_with_words"}

type csvTable struct {
	columns map[string]int
	rows    [][]string
}

func readCSV(path string) (*csvTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	t := &csvTable{columns: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.columns[strings.ToLower(h)] = i
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func (t *csvTable) has(col string) bool {
	_, ok := t.columns[strings.ToLower(col)]
	return ok
}

func (t *csvTable) get(row []string, col string) string {
	i, ok := t.columns[strings.ToLower(col)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ReadFlags loads the curated artist flag list in file order. The file
// must have Artist and Flag columns; rows with an empty artist are kept so
// that list positions stay stable but never match anything.
func ReadFlags(path string) ([]models.ArtistFlag, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if !t.has("Artist") || !t.has("Flag") {
		return nil, fmt.Errorf("failed to read %s: missing Artist or Flag column", path)
	}

	flags := make([]models.ArtistFlag, 0, len(t.rows))
	for _, row := range t.rows {
		flags = append(flags, models.ArtistFlag{
			Artist: t.get(row, "Artist"),
			Flag:   t.get(row, "Flag"),
		})
	}
	slog.Debug("Loaded artist flags", "path", path, "count", len(flags))
	return flags, nil
}

// ReadSourceCSV converts the master spreadsheet export into song and entry
// records sorted by number. Rows without a song or artist, or with a bad
// number, are skipped and reported.
func ReadSourceCSV(path string) ([]models.Song, []models.Entry, []models.Issue, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, col := range []string{colNumber, colTrack, colArtist} {
		if !t.has(col) {
			return nil, nil, nil, fmt.Errorf("failed to read %s: missing %q column", path, col)
		}
	}

	var (
		songs   []models.Song
		entries []models.Entry
		issues  []models.Issue
	)
	for i, row := range t.rows {
		line := i + 2
		song, artist := t.get(row, colTrack), t.get(row, colArtist)
		if song == "" || artist == "" {
			issues = append(issues, models.Issue{
				Kind:    models.IssueSchemaDrift,
				Message: fmt.Sprintf("line %d skipped: missing song or artist", line),
			})
			continue
		}
		n, err := ParseNumber(t.get(row, colNumber))
		if err != nil {
			issues = append(issues, models.Issue{
				Kind:    models.IssueSchemaDrift,
				Message: fmt.Sprintf("line %d skipped: %v", line, err),
			})
			continue
		}

		s := models.Song{
			Number: n,
			Song:   song,
			Artist: artist,
			Album:  t.get(row, colAlbum),
		}
		s.RelatedArtists.Album = splitList(t.get(row, colRelatedAlbum))
		s.RelatedArtists.Other = splitList(t.get(row, colRelatedOther))
		s.Normalize()
		songs = append(songs, s)

		entries = append(entries, models.Entry{
			Number:      n,
			Song:        song,
			Artist:      artist,
			TextBody:    t.get(row, colText),
			SpotifyLink: t.get(row, colSpotify),
			ArtistWiki:  t.get(row, colArtistWiki),
			AlbumWiki:   t.get(row, colAlbumWiki),
		})
	}

	sort.SliceStable(songs, func(i, j int) bool { return songs[i].Number < songs[j].Number })
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Number < entries[j].Number })

	for _, is := range issues {
		slog.Warn("Skipped source row", "path", path, "reason", is.Message)
	}
	slog.Info("Converted source CSV", "path", path, "songs", len(songs), "skipped", len(issues))
	return songs, entries, issues, nil
}

func splitList(s string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, relatedSeparator) {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

// WriteWordCounts atomically writes word_counts.csv.
func WriteWordCounts(path string, rows []WordCountRow) error {
	return WriteAtomic(path, WriteOptions{}, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(WordCountHeader); err != nil {
			return err
		}
		for _, r := range rows {
			if err := cw.Write([]string{
				strconv.Itoa(r.Number),
				r.Song,
				r.Artist,
				strconv.Itoa(r.WordCount),
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// WriteArtistCoverage atomically writes unique_artists_cleaned.csv.
func WriteArtistCoverage(path string, rows []ArtistCoverage) error {
	return WriteAtomic(path, WriteOptions{}, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(ArtistCoverageHeader); err != nil {
			return err
		}
		for _, r := range rows {
			if err := cw.Write([]string{
				r.Artist,
				strconv.Itoa(r.TotalSongs),
				strconv.Itoa(r.SongsWithWords),
				strconv.FormatFloat(r.Percentage, 'f', 2, 64),
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}
