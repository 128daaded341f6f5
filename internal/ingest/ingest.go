package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fussin-and-lovin/archiver/internal/models"
)

// Extractor recovers an entry header from a block the structured parser
// could not read
type Extractor interface {
	ExtractEntry(ctx context.Context, b Block) (Parsed, error)
}

// Run parses every block. Blocks that fail structured parsing go to the
// fallback when one is given; whatever still fails becomes a
// malformed_text issue. The result is deduplicated and sorted by number.
func Run(ctx context.Context, blocks []Block, fallback Extractor) ([]Parsed, []models.Issue, error) {
	var (
		records []Parsed
		issues  []models.Issue
	)

	for _, b := range blocks {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		p, err := ParseBlock(b)
		if err == nil {
			records = append(records, p)
			continue
		}
		if !errors.Is(err, ErrMalformed) {
			return nil, nil, err
		}

		if fallback != nil {
			p, ferr := fallback.ExtractEntry(ctx, b)
			if ferr == nil {
				slog.Info("Recovered entry with fallback extractor", "source", b.Source, "number", p.Entry.Number)
				records = append(records, p)
				continue
			}
			slog.Warn("Fallback extraction failed", "source", b.Source, "error", ferr)
		}

		slog.Warn("Skipping malformed block", "source", b.Source, "error", err)
		issues = append(issues, models.Issue{
			Kind:    models.IssueMalformedText,
			Number:  b.Number,
			Message: fmt.Sprintf("%s: %v", b.Source, err),
		})
	}

	out := Dedupe(records)
	slog.Info("Ingested entries", "blocks", len(blocks), "entries", len(out), "skipped", len(issues))
	return out, issues, nil
}

// Entries returns the entry half of each record
func Entries(records []Parsed) []models.Entry {
	out := make([]models.Entry, len(records))
	for i, r := range records {
		out[i] = r.Entry
	}
	return out
}

// Songs builds one skeleton song record per number from the parsed headers.
func Songs(records []Parsed) []models.Song {
	out := make([]models.Song, 0, len(records))
	seen := make(map[int]bool, len(records))
	for _, r := range records {
		if seen[r.Entry.Number] {
			continue
		}
		seen[r.Entry.Number] = true
		s := models.Song{
			Number: r.Entry.Number,
			Song:   r.Entry.Song,
			Artist: r.Entry.Artist,
			Album:  r.Album,
		}
		s.Normalize()
		out = append(out, s)
	}
	return out
}
