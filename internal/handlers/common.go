// Package handlers serves the assembled datasets as read-only JSON.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fussin-and-lovin/archiver/internal/storage"
)

type Handler struct {
	store     *storage.Store
	staticDir string
	coversDir string
}

// New creates a handler over a loaded store. staticDir holds the site and
// coversDir the downloaded album covers; either may be empty.
func New(store *storage.Store, staticDir, coversDir string) *Handler {
	return &Handler{
		store:     store,
		staticDir: staticDir,
		coversDir: coversDir,
	}
}

// Routes registers every handler on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/songs", h.HandleSongs)
	mux.HandleFunc("GET /api/songs/{number}", h.HandleSongDetail)
	mux.HandleFunc("GET /api/entries", h.HandleEntries)
	mux.HandleFunc("GET /api/graph", h.HandleGraph)
	mux.HandleFunc("GET /api/stats", h.HandleStats)
	mux.HandleFunc("GET /api/issues", h.HandleIssues)
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	if h.coversDir != "" {
		mux.Handle("GET /covers/", http.StripPrefix("/covers/", http.FileServer(http.Dir(h.coversDir))))
	}
	if h.staticDir != "" {
		mux.HandleFunc("GET /", h.HandleStatic)
	}
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}
