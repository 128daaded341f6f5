package wikipedia

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/fussin-and-lovin/archiver/internal/models"
)

// GenreResult is the lookup outcome for one entry
type GenreResult struct {
	Number int
	Genres []string
	Source string
	Err    error
}

// EnrichGenres looks up raw genres for every entry not already present in
// existing, using up to workers concurrent lookups. The returned map holds
// existing plus every successful lookup; failures come back as
// missing_join issues.
func EnrichGenres(ctx context.Context, c *Client, entries []models.Entry, existing map[int][]string, workers int) (map[int][]string, []models.Issue, error) {
	if workers < 1 {
		workers = 1
	}

	out := make(map[int][]string, len(existing)+len(entries))
	for n, g := range existing {
		out[n] = g
	}

	var todo []models.Entry
	for _, e := range entries {
		if _, done := out[e.Number]; done {
			continue
		}
		if e.AlbumWiki == "" && e.ArtistWiki == "" {
			continue
		}
		todo = append(todo, e)
	}
	slog.Info("Looking up genres", "entries", len(todo), "skipped", len(entries)-len(todo), "workers", workers)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)
	resultsChan := make(chan GenreResult, len(todo))

	for _, e := range todo {
		wg.Add(1)
		go func(e models.Entry) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			if err := ctx.Err(); err != nil {
				resultsChan <- GenreResult{Number: e.Number, Err: err}
				return
			}
			genres, source, err := c.AlbumGenres(ctx, e)
			resultsChan <- GenreResult{Number: e.Number, Genres: genres, Source: source, Err: err}
		}(e)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	var issues []models.Issue
	found := 0
	for r := range resultsChan {
		if r.Err != nil {
			if errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded) {
				continue
			}
			issues = append(issues, models.Issue{
				Kind:    models.IssueMissingJoin,
				Number:  r.Number,
				Message: fmt.Sprintf("genre lookup failed: %v", r.Err),
			})
			continue
		}
		slog.Debug("Found genres", "number", r.Number, "source", r.Source, "genres", r.Genres)
		out[r.Number] = r.Genres
		found++
	}

	if err := ctx.Err(); err != nil {
		return out, issues, fmt.Errorf("genre enrichment interrupted: %w", err)
	}

	sort.Slice(issues, func(i, j int) bool { return issues[i].Number < issues[j].Number })
	slog.Info("Genre lookup complete", "found", found, "failed", len(issues))
	return out, issues, nil
}
