package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fussin-and-lovin/archiver/internal/models"
)

// Loader reads song datasets in any of the formats the pipeline writes
type Loader struct {
	datasetPath string
}

// NewLoader creates a new dataset loader
func NewLoader(datasetPath string) *Loader {
	return &Loader{
		datasetPath: datasetPath,
	}
}

// Path is the file the loader reads
func (l *Loader) Path() string {
	return l.datasetPath
}

// Load loads songs from a dataset file (JSON array, JSONL or Parquet)
func (l *Loader) Load() ([]models.Song, error) {
	return l.LoadSample(-1)
}

// LoadSample loads at most limit songs; a negative limit loads all of them
func (l *Loader) LoadSample(limit int) ([]models.Song, error) {
	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	switch ext {
	case ".parquet":
		return readParquetLimit(l.datasetPath, limit)
	case ".jsonl":
		return l.loadJSONL(limit)
	case ".json":
		songs, _, err := ReadSongs(l.datasetPath)
		if err != nil {
			return nil, err
		}
		if limit >= 0 && len(songs) > limit {
			songs = songs[:limit]
		}
		return songs, nil
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .json, .jsonl, .parquet)", ext)
	}
}

// LoadWithFilter loads songs matching a filter function
func (l *Loader) LoadWithFilter(filterFn func(*models.Song) bool) ([]models.Song, error) {
	songs, err := l.Load()
	if err != nil {
		return nil, err
	}
	var out []models.Song
	for i := range songs {
		if filterFn(&songs[i]) {
			out = append(out, songs[i])
		}
	}
	return out, nil
}

// loadJSONL loads songs from a JSONL file, skipping malformed lines
func (l *Loader) loadJSONL(limit int) ([]models.Song, error) {
	slog.Debug("Opening JSONL file", "path", l.datasetPath)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var songs []models.Song
	scanner := bufio.NewScanner(file)

	// entry bodies can be long
	const maxCapacity = 10 * 1024 * 1024
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() && (limit < 0 || len(songs) < limit) {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec songRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			slog.Warn("Skipping malformed JSONL line", "line", lineNum, "error", err)
			continue
		}
		n, err := ParseNumber(string(rec.Number))
		if err != nil {
			slog.Warn("Skipping JSONL line", "line", lineNum, "error", err)
			continue
		}
		s := rec.Song
		s.Number = n
		s.Normalize()
		songs = append(songs, s)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_records", len(songs), "total_lines", lineNum)
	return songs, nil
}
