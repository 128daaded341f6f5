// Package images downloads album cover art for the archive's songs.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fussin-and-lovin/archiver/internal/dataset"
	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/textnorm"
	"github.com/fussin-and-lovin/archiver/internal/wikipedia"
)

// MinCoverBytes is the smallest file accepted as a real cover; anything
// smaller is a placeholder or an icon.
const MinCoverBytes = 5000

// CoverFinder picks the best cover image on a Wikipedia page
type CoverFinder interface {
	CoverImage(ctx context.Context, pageID string) (wikipedia.Image, error)
}

// Fetcher retrieves album covers into Dir
type Fetcher struct {
	HTTPClient *http.Client
	Finder     CoverFinder
	Dir        string
	Delay      time.Duration
	// Force re-downloads covers that already look fine
	Force bool
}

// NewFetcher creates a new cover fetcher
func NewFetcher(finder CoverFinder, dir string) *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Finder: finder,
		Dir:    dir,
		Delay:  500 * time.Millisecond,
	}
}

// Result counts what a fetch run did
type Result struct {
	Albums     int `json:"albums" yaml:"albums"`
	Downloaded int `json:"downloaded" yaml:"downloaded"`
	Skipped    int `json:"skipped" yaml:"skipped"`
	Failed     int `json:"failed" yaml:"failed"`
}

// album is one distinct album with the first song that carries it
type album struct {
	name   string
	number int
	pageID string
}

// CoverFile is where an album's cover lives under dir
func CoverFile(dir, albumName string) string {
	return filepath.Join(dir, textnorm.CoverSlug(albumName)+".jpg")
}

// NeedsCover reports whether the cover at path is missing, too small, or
// too far from square to be an album cover.
func NeedsCover(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() < MinCoverBytes {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		slog.Debug("Could not read cover dimensions", "path", path, "error", err)
		return true
	}
	return !squareEnough(cfg.Width, cfg.Height)
}

func squareEnough(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	ratio := float64(width) / float64(height)
	return ratio >= 0.7 && ratio <= 1.3
}

// FetchCovers downloads one cover per distinct album. Albums are located
// through the album page of the first entry naming them, then the artist
// page. Failures are reported as issues and never stop the run.
func (f *Fetcher) FetchCovers(ctx context.Context, songs []models.Song, entries []models.Entry) (Result, []models.Issue, error) {
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return Result{}, nil, fmt.Errorf("failed to create cover directory: %w", err)
	}

	albums := distinctAlbums(songs, entries)
	res := Result{Albums: len(albums)}
	var issues []models.Issue

	for i, a := range albums {
		if err := ctx.Err(); err != nil {
			return res, issues, err
		}

		path := CoverFile(f.Dir, a.name)
		if !f.Force && !NeedsCover(path) {
			res.Skipped++
			continue
		}
		if a.pageID == "" {
			res.Failed++
			issues = append(issues, models.Issue{Kind: models.IssueMissingJoin, Number: a.number, Message: fmt.Sprintf("no Wikipedia page for album %q", a.name)})
			continue
		}

		if err := f.fetchOne(ctx, a, path); err != nil {
			slog.Warn("Failed to download cover", "album", a.name, "number", a.number, "error", err)
			res.Failed++
			issues = append(issues, models.Issue{Kind: models.IssueMissingJoin, Number: a.number, Message: fmt.Sprintf("cover for %q: %v", a.name, err)})
		} else {
			res.Downloaded++
			slog.Info("Downloaded cover", "album", a.name, "path", path)
		}

		if i < len(albums)-1 && f.Delay > 0 {
			time.Sleep(f.Delay)
		}
	}

	return res, issues, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, a album, path string) error {
	img, err := f.Finder.CoverImage(ctx, a.pageID)
	if err != nil {
		return err
	}
	data, err := f.downloadImage(ctx, img.URL)
	if err != nil {
		return err
	}
	return dataset.WriteFileAtomic(path, data, dataset.WriteOptions{})
}

// downloadImage downloads an image and rejects placeholders
func (f *Fetcher) downloadImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "archiver/1.0 (song archive enrichment)")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	if len(imageData) < MinCoverBytes {
		return nil, fmt.Errorf("image too small (likely placeholder), size: %d bytes", len(imageData))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("unreadable image: %w", err)
	}
	if !squareEnough(cfg.Width, cfg.Height) {
		return nil, fmt.Errorf("image is %dx%d, not cover shaped", cfg.Width, cfg.Height)
	}
	slog.Debug("Fetched image", "url", url, "format", format, "width", cfg.Width, "height", cfg.Height, "bytes", len(imageData))
	return imageData, nil
}

func distinctAlbums(songs []models.Song, entries []models.Entry) []album {
	byNumber := make(map[int]models.Entry, len(entries))
	for _, e := range entries {
		if _, ok := byNumber[e.Number]; !ok {
			byNumber[e.Number] = e
		}
	}

	sorted := append([]models.Song(nil), songs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	index := make(map[string]int)
	var out []album
	for _, s := range sorted {
		slug := textnorm.CoverSlug(s.Album)
		if slug == "" {
			continue
		}
		id := pageFor(byNumber[s.Number])
		if i, seen := index[slug]; seen {
			if out[i].pageID == "" && id != "" {
				out[i].pageID = id
				out[i].number = s.Number
			}
			continue
		}
		index[slug] = len(out)
		out = append(out, album{name: s.Album, number: s.Number, pageID: id})
	}
	return out
}

func pageFor(e models.Entry) string {
	if id, ok := wikipedia.PageID(e.AlbumWiki); ok {
		return id
	}
	if id, ok := wikipedia.PageID(e.ArtistWiki); ok {
		return id
	}
	return ""
}

// ErrNoCover is returned by Lookup when an album has no usable cover file
var ErrNoCover = errors.New("no cover")

// Lookup returns the web path of an album's cover when a good file exists
// under dir.
func Lookup(dir, albumName string) (string, error) {
	if textnorm.CoverSlug(albumName) == "" || NeedsCover(CoverFile(dir, albumName)) {
		return "", ErrNoCover
	}
	return textnorm.CoverPath(albumName), nil
}
