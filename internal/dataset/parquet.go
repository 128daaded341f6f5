package dataset

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/fussin-and-lovin/archiver/internal/models"
)

// WriteParquet atomically writes songs as a parquet file of SongRow.
func WriteParquet(path string, songs []models.Song) error {
	rows := make([]SongRow, len(songs))
	for i, s := range songs {
		s.Normalize()
		rows[i] = NewSongRow(s)
	}

	err := WriteAtomic(path, WriteOptions{}, func(w io.Writer) error {
		writer := parquet.NewGenericWriter[SongRow](w)
		if _, err := writer.Write(rows); err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
		return writer.Close()
	})
	if err != nil {
		return err
	}
	slog.Info("Wrote parquet", "path", path, "rows", len(rows))
	return nil
}

// ReadParquet loads songs from a parquet file written by WriteParquet.
func ReadParquet(path string) ([]models.Song, error) {
	return readParquetLimit(path, -1)
}

func readParquetLimit(path string, limit int) ([]models.Song, error) {
	slog.Debug("Opening Parquet file", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[SongRow](pf)
	defer reader.Close()

	var songs []models.Song
	for limit < 0 || len(songs) < limit {
		// fresh buffer per batch: decoded slices are not copied by ToSong
		rows := make([]SongRow, 128)
		n, err := reader.Read(rows)
		for _, r := range rows[:n] {
			if limit >= 0 && len(songs) >= limit {
				break
			}
			songs = append(songs, r.ToSong())
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Finished reading Parquet file", "total_records", len(songs))
	return songs, nil
}
