package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fussin-and-lovin/archiver/internal/graph"
	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/storage"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()
	store := storage.New("", "")
	store.Set(
		[]models.Song{
			{Number: 1, Song: "Jolene", Artist: "Dolly Parton", Album: "Jolene", Genres: []string{"Country"}},
			{Number: 2, Song: "Hurt", Artist: "Johnny Cash", Album: "American IV", Genres: []string{"Country", "Rock"}, IsTragic: 1},
		},
		[]models.Entry{
			{Number: 1, Song: "Jolene", Artist: "Dolly Parton", TextBody: "Thoughts: a classic"},
		},
	)

	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>songs</h1>"), 0644); err != nil {
		t.Fatal(err)
	}
	return New(store, static, "")
}

func get(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleSongs(t *testing.T) {
	h := testHandler(t)

	tests := []struct {
		path string
		want int
	}{
		{"/api/songs", 2},
		{"/api/songs?genre=rock", 1},
		{"/api/songs?artist=dolly%20parton", 1},
		{"/api/songs?tragic=1", 1},
		{"/api/songs?genre=jazz", 0},
	}
	for _, tt := range tests {
		rec := get(t, h, tt.path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tt.path, rec.Code)
		}
		var songs []models.Song
		if err := json.Unmarshal(rec.Body.Bytes(), &songs); err != nil {
			t.Fatalf("%s: failed to decode: %v", tt.path, err)
		}
		if len(songs) != tt.want {
			t.Errorf("%s: expected %d songs, got %d", tt.path, tt.want, len(songs))
		}
	}
}

func TestHandleSongDetail(t *testing.T) {
	h := testHandler(t)

	rec := get(t, h, "/api/songs/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var detail SongDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if detail.PostedOn != "2024-05-10" {
		t.Errorf("Expected posted on 2024-05-10, got %s", detail.PostedOn)
	}
	if detail.Entry == nil || detail.Entry.TextBody != "Thoughts: a classic" {
		t.Errorf("Expected linked entry, got %+v", detail.Entry)
	}

	rec = get(t, h, "/api/songs/2")
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if detail.Entry != nil {
		t.Errorf("Expected no entry for song 2, got %+v", detail.Entry)
	}

	tests := []struct {
		path string
		code int
	}{
		{"/api/songs/99", http.StatusNotFound},
		{"/api/songs/abc", http.StatusBadRequest},
		{"/api/songs/0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := get(t, h, tt.path); rec.Code != tt.code {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.code, rec.Code)
		}
	}
}

func TestHandleGraphAndStats(t *testing.T) {
	h := testHandler(t)

	var g graph.Graph
	if err := json.Unmarshal(get(t, h, "/api/graph").Body.Bytes(), &g); err != nil {
		t.Fatalf("Failed to decode graph: %v", err)
	}
	if len(g.Nodes) != 2 || len(g.Links) != 2 {
		t.Errorf("Expected 2 nodes and a genre link each way, got %d nodes and %d links", len(g.Nodes), len(g.Links))
	}

	var report struct {
		Songs  int `json:"songs"`
		Tragic int `json:"tragic"`
	}
	if err := json.Unmarshal(get(t, h, "/api/stats").Body.Bytes(), &report); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if report.Songs != 2 || report.Tragic != 1 {
		t.Errorf("Unexpected stats: %+v", report)
	}

	if rec := get(t, h, "/api/stats?top=x"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad top, got %d", rec.Code)
	}
}

func TestHandleIssues(t *testing.T) {
	h := testHandler(t)

	var issues []models.Issue
	if err := json.Unmarshal(get(t, h, "/api/issues").Body.Bytes(), &issues); err != nil {
		t.Fatalf("Failed to decode issues: %v", err)
	}
	if len(issues) != 1 || issues[0].Number != 2 {
		t.Errorf("Expected one missing join for #2, got %+v", issues)
	}
}

func TestHandleStatic(t *testing.T) {
	h := testHandler(t)

	rec := get(t, h, "/")
	if rec.Code != http.StatusOK || rec.Body.String() != "<h1>songs</h1>" {
		t.Errorf("Expected index.html, got %d %q", rec.Code, rec.Body.String())
	}
	if rec := get(t, h, "/healthcheck"); rec.Body.String() != "OK" {
		t.Errorf("Expected OK, got %q", rec.Body.String())
	}
}
