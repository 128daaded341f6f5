package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fussin-and-lovin/archiver/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// DBExecutor is satisfied by both *sql.DB and *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InitDB runs the embedded schema on the given connection.
func InitDB(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// ExportSQLite writes songs and entries into a SQLite database at path,
// creating tables as needed. Existing rows with the same number are
// replaced, so exporting twice gives the same database.
func ExportSQLite(ctx context.Context, path string, songs []models.Song, entries []models.Entry) error {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	defer db.Close()

	if err := InitDB(ctx, db); err != nil {
		return err
	}
	if err := WriteAll(ctx, db, songs, entries); err != nil {
		return err
	}
	slog.Info("Exported to SQLite", "path", path, "songs", len(songs), "entries", len(entries))
	return nil
}

// WriteAll upserts every song and entry in a single transaction.
func WriteAll(ctx context.Context, db *sql.DB, songs []models.Song, entries []models.Entry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range songs {
		if err := UpsertSong(ctx, tx, s); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := UpsertEntry(ctx, tx, e); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export: %w", err)
	}
	return nil
}

// UpsertSong inserts or replaces a song and its genre and related-artist rows.
func UpsertSong(ctx context.Context, db DBExecutor, s models.Song) error {
	_, err := db.ExecContext(ctx, `INSERT INTO songs (number, song, artist, album, word_count, is_tragic, posted_on)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			song = excluded.song,
			artist = excluded.artist,
			album = excluded.album,
			word_count = excluded.word_count,
			is_tragic = excluded.is_tragic,
			posted_on = excluded.posted_on`,
		s.Number, s.Song, s.Artist, s.Album, s.WordCount, s.IsTragic, models.PostedOn(s.Number).Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("upsert song %d: %w", s.Number, err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM song_genres WHERE number = ?`, s.Number); err != nil {
		return fmt.Errorf("clear genres %d: %w", s.Number, err)
	}
	for i, g := range s.Genres {
		if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO song_genres (number, position, genre) VALUES (?, ?, ?)`, s.Number, i, g); err != nil {
			return fmt.Errorf("insert genre %d: %w", s.Number, err)
		}
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM related_artists WHERE number = ?`, s.Number); err != nil {
		return fmt.Errorf("clear related artists %d: %w", s.Number, err)
	}
	for relation, list := range map[string][]string{"album": s.RelatedArtists.Album, "other": s.RelatedArtists.Other} {
		for _, a := range list {
			if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO related_artists (number, relation, artist) VALUES (?, ?, ?)`, s.Number, relation, a); err != nil {
				return fmt.Errorf("insert related artist %d: %w", s.Number, err)
			}
		}
	}
	return nil
}

// UpsertEntry inserts or replaces an entry.
func UpsertEntry(ctx context.Context, db DBExecutor, e models.Entry) error {
	_, err := db.ExecContext(ctx, `INSERT INTO entries (number, song, artist, text_body, spotify_link, artist_wiki, album_wiki)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''))
		ON CONFLICT(number) DO UPDATE SET
			song = excluded.song,
			artist = excluded.artist,
			text_body = excluded.text_body,
			spotify_link = excluded.spotify_link,
			artist_wiki = excluded.artist_wiki,
			album_wiki = excluded.album_wiki`,
		e.Number, e.Song, e.Artist, e.TextBody, e.SpotifyLink, e.ArtistWiki, e.AlbumWiki)
	if err != nil {
		return fmt.Errorf("upsert entry %d: %w", e.Number, err)
	}
	return nil
}

// CountSongsByGenre returns how many songs carry the genre.
func CountSongsByGenre(ctx context.Context, db DBExecutor, genre string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM song_genres WHERE genre = ?`, genre).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count genre %q: %w", genre, err)
	}
	return n, nil
}
