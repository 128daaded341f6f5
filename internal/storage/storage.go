package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fussin-and-lovin/archiver/internal/dataset"
	"github.com/fussin-and-lovin/archiver/internal/graph"
	"github.com/fussin-and-lovin/archiver/internal/linker"
	"github.com/fussin-and-lovin/archiver/internal/models"
)

// Store holds the loaded song and entry datasets. It is created once,
// filled by Load and written back only by Save; readers get copies.
type Store struct {
	songsPath   string
	entriesPath string

	mu      sync.RWMutex
	songs   []models.Song
	entries []models.Entry
	index   *linker.Index
	issues  []models.Issue

	// records the readers skipped, written back untouched by Save
	keptSongs   []json.RawMessage
	keptEntries []json.RawMessage
}

func New(songsPath, entriesPath string) *Store {
	return &Store{
		songsPath:   songsPath,
		entriesPath: entriesPath,
		index:       linker.Link(nil, nil),
	}
}

// Load reads both datasets from disk and rebuilds the join index. A
// missing or unparseable file is an error and leaves the store unchanged.
func (s *Store) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	songs, keptSongs, songIssues, err := dataset.ReadSongsForRewrite(s.songsPath)
	if err != nil {
		return fmt.Errorf("failed to load songs: %w", err)
	}
	entries, keptEntries, entryIssues, err := dataset.ReadEntriesForRewrite(s.entriesPath)
	if err != nil {
		return fmt.Errorf("failed to load entries: %w", err)
	}

	s.Set(songs, entries)

	s.mu.Lock()
	s.issues = append(append(s.issues, songIssues...), entryIssues...)
	s.keptSongs, s.keptEntries = keptSongs, keptEntries
	s.mu.Unlock()

	slog.Info("Loaded datasets", "songs", len(songs), "entries", len(entries), "issues", len(songIssues)+len(entryIssues))
	return nil
}

// Set replaces the in-memory datasets.
func (s *Store) Set(songs []models.Song, entries []models.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.songs = songs
	s.entries = entries
	s.index = linker.Link(s.songs, s.entries)
	s.issues = s.index.Missing()
}

// Save writes both datasets back, keeping a backup of each. Records Load
// could not read are written back as they were.
func (s *Store) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	opts := dataset.WriteOptions{Backup: true}
	if err := dataset.WriteSongs(s.songsPath, s.songs, opts, s.keptSongs...); err != nil {
		return fmt.Errorf("failed to save songs: %w", err)
	}
	if err := dataset.WriteEntries(s.entriesPath, s.entries, opts, s.keptEntries...); err != nil {
		return fmt.Errorf("failed to save entries: %w", err)
	}
	return nil
}

func (s *Store) Songs() []models.Song {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Song, len(s.songs))
	copy(out, s.songs)
	return out
}

func (s *Store) Entries() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Issues returns the soft problems found while loading
func (s *Store) Issues() []models.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

func (s *Store) Song(number int) (models.Song, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.index.ByNumber(number)
	if !ok || p.Song == nil {
		return models.Song{}, false
	}
	return *p.Song, true
}

// EntryFor finds the write-up for a song. It tries the number and key joins
// first and then the loose title-only display match.
func (s *Store) EntryFor(song models.Song) (models.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.index.EntryFor(song); ok {
		return *e, true
	}
	if e, ok := linker.FindEntryForDisplay(s.entries, song.Song, song.Artist); ok {
		return *e, true
	}
	return models.Entry{}, false
}

// Graph computes the relationship graph from the current songs.
func (s *Store) Graph() graph.Graph {
	return graph.Build(s.Songs())
}
