package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/fussin-and-lovin/archiver/internal/models"
)

const albumWikitext = `{{Infobox album
| name = Red Headed Stranger
| genre = [[Country music|Country]], [[outlaw country]]<ref>x</ref>
| label = Columbia
}}`

const artistWikitext = `{{Infobox musical artist
| genre = {{hlist|[[Country music|Country]]|[[Folk music|folk]]}}
}}`

// fakeAPI serves a small MediaWiki API. Page 1 is an album, page 2 an
// artist, page 3 has no infobox.
func fakeAPI(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")

		switch q.Get("prop") {
		case "revisions":
			id := q.Get("pageids")
			text := map[string]string{"1": albumWikitext, "2": artistWikitext, "3": "no infobox here"}[id]
			if text == "" {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"query": map[string]any{"pages": map[string]any{id: map[string]any{"missing": ""}}},
				})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"query": map[string]any{"pages": map[string]any{
					id: map[string]any{"revisions": []any{map[string]any{"*": text}}},
				}},
			})
		case "images":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"query": map[string]any{"pages": map[string]any{
					q.Get("pageids"): map[string]any{"images": []any{
						map[string]any{"title": "File:Willie Nelson live photo.jpg"},
						map[string]any{"title": "File:Red Headed Stranger album cover.jpg"},
						map[string]any{"title": "File:Music icon.svg"},
					}},
				}},
			})
		case "imageinfo":
			info := map[string]map[string]any{
				"File:Willie Nelson live photo.jpg":        {"url": "http://x/photo.jpg", "mime": "image/jpeg", "width": 1200, "height": 800, "size": 400000},
				"File:Red Headed Stranger album cover.jpg": {"url": "http://x/cover.jpg", "mime": "image/jpeg", "width": 600, "height": 600, "size": 150000},
				"File:Music icon.svg":                      {"url": "http://x/icon.svg", "mime": "image/svg+xml", "width": 50, "height": 50, "size": 2000},
			}[q.Get("titles")]
			_ = json.NewEncoder(w).Encode(map[string]any{
				"query": map[string]any{"pages": map[string]any{"-1": map[string]any{"imageinfo": []any{info}}}},
			})
		default:
			http.Error(w, "bad request", http.StatusBadRequest)
		}
	}))
}

func newTestClient(url string) *Client {
	c := NewClient(url)
	c.Delay = 0
	return c
}

func TestPageID(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://en.wikipedia.org/w/index.php?curid=12345", "12345", true},
		{"https://en.wikipedia.org/w/index.php?title=X&curid=7&oldid=1", "7", true},
		{"https://en.wikipedia.org/wiki/Jolene", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := PageID(tt.url)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("PageID(%q): expected (%q, %v), got (%q, %v)", tt.url, tt.want, tt.wantOK, got, ok)
		}
	}
}

func TestWikitextIsCached(t *testing.T) {
	var calls int32
	server := fakeAPI(t, &calls)
	defer server.Close()
	c := newTestClient(server.URL)

	for range 3 {
		if _, err := c.Wikitext(context.Background(), "1"); err != nil {
			t.Fatalf("Wikitext failed: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("Expected 1 request, got %d", calls)
	}
}

func TestAlbumGenres(t *testing.T) {
	var calls int32
	server := fakeAPI(t, &calls)
	defer server.Close()
	c := newTestClient(server.URL)

	tests := []struct {
		name       string
		entry      models.Entry
		wantSource string
		wantFirst  string
		wantErr    bool
	}{
		{
			name:       "album page",
			entry:      models.Entry{Number: 1, AlbumWiki: "https://en.wikipedia.org/w/index.php?curid=1", ArtistWiki: "https://en.wikipedia.org/w/index.php?curid=2"},
			wantSource: "album",
			wantFirst:  "Country",
		},
		{
			name:       "falls back to artist page",
			entry:      models.Entry{Number: 2, AlbumWiki: "https://en.wikipedia.org/w/index.php?curid=3", ArtistWiki: "https://en.wikipedia.org/w/index.php?curid=2"},
			wantSource: "artist",
			wantFirst:  "Country",
		},
		{
			name:    "missing page",
			entry:   models.Entry{Number: 3, AlbumWiki: "https://en.wikipedia.org/w/index.php?curid=99"},
			wantErr: true,
		},
		{
			name:    "no links",
			entry:   models.Entry{Number: 4},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			genres, source, err := c.AlbumGenres(context.Background(), tt.entry)
			if tt.wantErr {
				if !errors.Is(err, ErrNoGenres) {
					t.Errorf("Expected ErrNoGenres, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AlbumGenres failed: %v", err)
			}
			if source != tt.wantSource {
				t.Errorf("Expected source %q, got %q", tt.wantSource, source)
			}
			if len(genres) == 0 || genres[0] != tt.wantFirst {
				t.Errorf("Expected first genre %q, got %v", tt.wantFirst, genres)
			}
		})
	}
}

func TestScoreTitle(t *testing.T) {
	tests := []struct {
		title string
		want  int
	}{
		{"File:Red Headed Stranger album cover.jpg", 15},
		{"File:Willie live in concert.jpg", -20},
		{"File:Band portrait photo.jpg", -35},
		{"File:Something.jpg", 0},
	}
	for _, tt := range tests {
		if got := ScoreTitle(tt.title); got != tt.want {
			t.Errorf("ScoreTitle(%q): expected %d, got %d", tt.title, tt.want, got)
		}
	}
}

func TestScoreInfo(t *testing.T) {
	tests := []struct {
		name string
		img  Image
		want int
	}{
		{name: "square large jpeg", img: Image{MIME: "image/jpeg", Width: 1200, Height: 1200, Size: 500000}, want: 10 + 5 + 2 + 10 + 5},
		{name: "slightly wide", img: Image{MIME: "image/jpeg", Width: 600, Height: 500, Size: 90000}, want: 5 + 2 + 5},
		{name: "landscape photo", img: Image{MIME: "image/jpeg", Width: 1600, Height: 900, Size: 3000000}, want: 5},
		{name: "small png", img: Image{MIME: "image/png", Width: 100, Height: 100, Size: 4000}, want: 17 - 10},
		{name: "svg", img: Image{MIME: "image/svg+xml", Width: 50, Height: 50, Size: 2000}, want: 17 - 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreInfo(tt.img); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCoverImage(t *testing.T) {
	var calls int32
	server := fakeAPI(t, &calls)
	defer server.Close()
	c := newTestClient(server.URL)

	img, err := c.CoverImage(context.Background(), "1")
	if err != nil {
		t.Fatalf("CoverImage failed: %v", err)
	}
	if img.URL != "http://x/cover.jpg" {
		t.Errorf("Expected album cover to win, got %+v", img)
	}
}

func TestEnrichGenres(t *testing.T) {
	var calls int32
	server := fakeAPI(t, &calls)
	defer server.Close()
	c := newTestClient(server.URL)

	entries := []models.Entry{
		{Number: 1, AlbumWiki: "https://en.wikipedia.org/w/index.php?curid=1"},
		{Number: 2, ArtistWiki: "https://en.wikipedia.org/w/index.php?curid=2"},
		{Number: 3, AlbumWiki: "https://en.wikipedia.org/w/index.php?curid=99"},
		{Number: 4},
		{Number: 5, AlbumWiki: "https://en.wikipedia.org/w/index.php?curid=1"},
	}
	existing := map[int][]string{5: {"Already known"}}

	got, issues, err := EnrichGenres(context.Background(), c, entries, existing, 3)
	if err != nil {
		t.Fatalf("EnrichGenres failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Expected 3 genre lists, got %d: %v", len(got), got)
	}
	if got[5][0] != "Already known" {
		t.Errorf("Expected existing genres to be kept, got %v", got[5])
	}
	if len(issues) != 1 || issues[0].Number != 3 || issues[0].Kind != models.IssueMissingJoin {
		t.Errorf("Expected one missing_join issue for #3, got %+v", issues)
	}
}

func TestEnrichGenresCancelled(t *testing.T) {
	var calls int32
	server := fakeAPI(t, &calls)
	defer server.Close()
	c := newTestClient(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := EnrichGenres(ctx, c, []models.Entry{{Number: 1, AlbumWiki: "https://en.wikipedia.org/w/index.php?curid=1"}}, nil, 2)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
