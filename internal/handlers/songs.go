package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/fussin-and-lovin/archiver/internal/images"
	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/stats"
)

// SongDetail is everything the site shows for one song
type SongDetail struct {
	Song     models.Song   `json:"song"`
	Entry    *models.Entry `json:"entry"`
	PostedOn string        `json:"postedOn"`
	Cover    string        `json:"cover,omitempty"`
}

// HandleSongs lists songs. ?genre= and ?artist= filter case-insensitively
// and ?tragic=1 keeps flagged artists only.
func (h *Handler) HandleSongs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	genre := q.Get("genre")
	artist := q.Get("artist")
	tragic := q.Get("tragic") == "1"

	songs := h.store.Songs()
	out := make([]models.Song, 0, len(songs))
	for _, s := range songs {
		if genre != "" && !hasGenre(s, genre) {
			continue
		}
		if artist != "" && !strings.EqualFold(s.Artist, artist) {
			continue
		}
		if tragic && s.IsTragic != 1 {
			continue
		}
		out = append(out, s)
	}
	h.writeJSON(w, out)
}

func hasGenre(s models.Song, genre string) bool {
	for _, g := range s.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

func (h *Handler) HandleSongDetail(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || n <= 0 {
		h.writeError(w, "Invalid song number", http.StatusBadRequest)
		return
	}

	song, ok := h.store.Song(n)
	if !ok {
		h.writeError(w, "Song not found", http.StatusNotFound)
		return
	}

	detail := SongDetail{
		Song:     song,
		PostedOn: models.PostedOn(song.Number).Format("2006-01-02"),
	}
	if e, ok := h.store.EntryFor(song); ok {
		detail.Entry = &e
	}
	if h.coversDir != "" {
		if cover, err := images.Lookup(h.coversDir, song.Album); err == nil {
			detail.Cover = cover
		}
	}
	h.writeJSON(w, detail)
}

func (h *Handler) HandleEntries(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.store.Entries())
}

func (h *Handler) HandleGraph(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.store.Graph())
}

// HandleStats returns the statistics report. ?top= limits the genre and
// artist lists.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	top := 10
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, "Invalid top value", http.StatusBadRequest)
			return
		}
		top = n
	}
	h.writeJSON(w, stats.Compute(h.store.Songs(), top))
}

func (h *Handler) HandleIssues(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.store.Issues())
}
