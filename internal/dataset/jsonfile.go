package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fussin-and-lovin/archiver/internal/models"
)

// songRecord decodes a song whose number may be a string or a number
type songRecord struct {
	models.Song
	Number json.RawMessage `json:"number"`
}

type entryRecord struct {
	models.Entry
	Number json.RawMessage `json:"number"`
}

// ParseNumber reads an entry number from a JSON value or CSV cell. Quoted
// numbers are accepted; anything that is not a positive integer is schema
// drift.
func ParseNumber(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: number %q is not an integer", ErrSchemaDrift, raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: number %d is not positive", ErrSchemaDrift, n)
	}
	return n, nil
}

func readArray(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raw, nil
}

func driftIssue(i int, err error) models.Issue {
	return models.Issue{
		Kind:    models.IssueSchemaDrift,
		Message: fmt.Sprintf("record %d skipped: %v", i, err),
	}
}

// ReadSongs loads a songs.json array. Records that cannot be decoded or
// carry a bad number are skipped and reported as issues; a missing or
// unparseable file is an error.
func ReadSongs(path string) ([]models.Song, []models.Issue, error) {
	songs, _, issues, err := ReadSongsForRewrite(path)
	return songs, issues, err
}

// ReadSongsForRewrite is ReadSongs for callers that write the file back. It
// also returns the skipped records verbatim so WriteSongs can keep them.
func ReadSongsForRewrite(path string) ([]models.Song, []json.RawMessage, []models.Issue, error) {
	raw, err := readArray(path)
	if err != nil {
		return nil, nil, nil, err
	}

	songs := make([]models.Song, 0, len(raw))
	var skipped []json.RawMessage
	var issues []models.Issue
	for i, msg := range raw {
		var rec songRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			issues = append(issues, driftIssue(i, err))
			skipped = append(skipped, msg)
			continue
		}
		n, err := ParseNumber(string(rec.Number))
		if err != nil {
			issues = append(issues, driftIssue(i, err))
			skipped = append(skipped, msg)
			continue
		}
		s := rec.Song
		s.Number = n
		s.Normalize()
		songs = append(songs, s)
	}

	for _, is := range issues {
		slog.Warn("Skipped song record", "path", path, "reason", is.Message)
	}
	slog.Debug("Loaded songs", "path", path, "count", len(songs))
	return songs, skipped, issues, nil
}

// ReadEntries loads an entries.json array with the same skipping rules as
// ReadSongs.
func ReadEntries(path string) ([]models.Entry, []models.Issue, error) {
	entries, _, issues, err := ReadEntriesForRewrite(path)
	return entries, issues, err
}

// ReadEntriesForRewrite is ReadEntries that also returns the skipped
// records verbatim.
func ReadEntriesForRewrite(path string) ([]models.Entry, []json.RawMessage, []models.Issue, error) {
	raw, err := readArray(path)
	if err != nil {
		return nil, nil, nil, err
	}

	entries := make([]models.Entry, 0, len(raw))
	var skipped []json.RawMessage
	var issues []models.Issue
	for i, msg := range raw {
		var rec entryRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			issues = append(issues, driftIssue(i, err))
			skipped = append(skipped, msg)
			continue
		}
		n, err := ParseNumber(string(rec.Number))
		if err != nil {
			issues = append(issues, driftIssue(i, err))
			skipped = append(skipped, msg)
			continue
		}
		e := rec.Entry
		e.Number = n
		entries = append(entries, e)
	}

	for _, is := range issues {
		slog.Warn("Skipped entry record", "path", path, "reason", is.Message)
	}
	slog.Debug("Loaded entries", "path", path, "count", len(entries))
	return entries, skipped, issues, nil
}

// MarshalSongs renders songs sorted by number with defaults filled in,
// followed by any kept records exactly as they were read. The input slice
// is not modified.
func MarshalSongs(songs []models.Song, kept ...json.RawMessage) ([]byte, error) {
	out := make([]models.Song, len(songs))
	copy(out, songs)
	for i := range out {
		out[i].Normalize()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	if len(kept) == 0 {
		return marshalIndent(out)
	}
	return marshalIndent(withKept(out, kept))
}

// MarshalEntries renders entries sorted by number, followed by any kept
// records.
func MarshalEntries(entries []models.Entry, kept ...json.RawMessage) ([]byte, error) {
	out := make([]models.Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	if len(kept) == 0 {
		return marshalIndent(out)
	}
	return marshalIndent(withKept(out, kept))
}

func withKept[T any](records []T, kept []json.RawMessage) []any {
	rows := make([]any, 0, len(records)+len(kept))
	for _, r := range records {
		rows = append(rows, r)
	}
	for _, raw := range kept {
		rows = append(rows, raw)
	}
	return rows
}

func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteSongs atomically writes songs.json. Kept records, usually the ones
// ReadSongsForRewrite skipped, are written after the songs unchanged.
func WriteSongs(path string, songs []models.Song, opts WriteOptions, kept ...json.RawMessage) error {
	data, err := MarshalSongs(songs, kept...)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(path, data, opts); err != nil {
		return err
	}
	slog.Info("Wrote songs", "path", path, "count", len(songs), "kept", len(kept))
	return nil
}

// WriteEntries atomically writes entries.json, keeping records as
// WriteSongs does.
func WriteEntries(path string, entries []models.Entry, opts WriteOptions, kept ...json.RawMessage) error {
	data, err := MarshalEntries(entries, kept...)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(path, data, opts); err != nil {
		return err
	}
	slog.Info("Wrote entries", "path", path, "count", len(entries), "kept", len(kept))
	return nil
}

// ReadGenres loads the genre enrichment file: an object mapping entry
// numbers (as strings) to raw genre lists.
func ReadGenres(path string) (map[int][]string, []models.Issue, error) {
	var raw map[string][]string
	if err := readObject(path, &raw); err != nil {
		return nil, nil, err
	}

	genres := make(map[int][]string, len(raw))
	var issues []models.Issue
	for key, list := range raw {
		n, err := ParseNumber(key)
		if err != nil {
			issues = append(issues, models.Issue{Kind: models.IssueSchemaDrift, Message: fmt.Sprintf("genre key skipped: %v", err)})
			continue
		}
		genres[n] = list
	}
	sortIssues(issues)
	return genres, issues, nil
}

// WriteGenres atomically writes a genre enrichment file.
func WriteGenres(path string, genres map[int][]string) error {
	raw := make(map[string][]string, len(genres))
	for n, list := range genres {
		raw[strconv.Itoa(n)] = list
	}
	data, err := marshalIndent(raw)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, WriteOptions{})
}

// ReadRelated loads an optional related-artist enrichment file mapping entry
// numbers to {album, other} lists.
func ReadRelated(path string) (map[int]models.RelatedArtists, []models.Issue, error) {
	var raw map[string]models.RelatedArtists
	if err := readObject(path, &raw); err != nil {
		return nil, nil, err
	}

	related := make(map[int]models.RelatedArtists, len(raw))
	var issues []models.Issue
	for key, ra := range raw {
		n, err := ParseNumber(key)
		if err != nil {
			issues = append(issues, models.Issue{Kind: models.IssueSchemaDrift, Message: fmt.Sprintf("related key skipped: %v", err)})
			continue
		}
		related[n] = ra
	}
	sortIssues(issues)
	return related, issues, nil
}

// WriteRelated writes the related-artist enrichment file read by ReadRelated.
func WriteRelated(path string, related map[int]models.RelatedArtists) error {
	raw := make(map[string]models.RelatedArtists, len(related))
	for n, ra := range related {
		if ra.Album == nil {
			ra.Album = []string{}
		}
		if ra.Other == nil {
			ra.Other = []string{}
		}
		raw[strconv.Itoa(n)] = ra
	}
	data, err := marshalIndent(raw)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, WriteOptions{})
}

func readObject(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func sortIssues(issues []models.Issue) {
	sort.Slice(issues, func(i, j int) bool { return issues[i].Message < issues[j].Message })
}
