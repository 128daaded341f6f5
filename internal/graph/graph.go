// Package graph derives the relationship graph drawn on the cork board. The
// graph is recomputed from the song dataset whenever it is needed and is
// never stored.
package graph

import (
	"time"

	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/textnorm"
)

// Tier weights, strongest first. Genre links scale per shared genre.
const (
	SameArtistWeight = 3.0
	AlbumWeight      = 2.0
	MentionWeight    = 1.0
	GenreWeight      = 0.25

	// MinLinkWidth is the thinnest line the renderer draws
	MinLinkWidth = 1.5
)

// Tier names the relation that produced a link
type Tier string

const (
	TierSameArtist Tier = "same_artist"
	TierAlbum      Tier = "album"
	TierMention    Tier = "mention"
	TierGenre      Tier = "genre"
)

// Graph is the D3-style node/link structure
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Node is one song. Its identity in links is Index, the position in the
// input slice, which changes if the songs are re-sorted.
type Node struct {
	Index     int       `json:"index"`
	Number    int       `json:"number"`
	Song      string    `json:"song"`
	Artist    string    `json:"artist"`
	Album     string    `json:"album"`
	Genres    []string  `json:"genres"`
	Cover     string    `json:"cover"`
	PostedOn  time.Time `json:"postedOn"`
	IsTragic  int       `json:"is_tragic"`
	WordCount int       `json:"wordCount"`
}

// Link connects two node indexes
type Link struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Value  float64 `json:"value"`
	Tier   Tier    `json:"tier"`
}

// Width is the rendered line width of the link
func (l Link) Width() float64 {
	return LinkWidth(l.Value)
}

// LinkWidth floors a link value at the minimum visible width.
func LinkWidth(value float64) float64 {
	return max(MinLinkWidth, value)
}

// Build computes the graph. Every ordered pair of distinct songs is tested
// against the tiers in order and gets at most one link, so a pair related
// in both directions appears twice.
func Build(songs []models.Song) Graph {
	g := Graph{
		Nodes: make([]Node, len(songs)),
		Links: []Link{},
	}

	genreSets := make([]map[string]bool, len(songs))
	for i, s := range songs {
		genres := s.Genres
		if genres == nil {
			genres = []string{}
		}
		g.Nodes[i] = Node{
			Index:     i,
			Number:    s.Number,
			Song:      s.Song,
			Artist:    s.Artist,
			Album:     s.Album,
			Genres:    genres,
			Cover:     textnorm.CoverPath(s.Album),
			PostedOn:  models.PostedOn(s.Number),
			IsTragic:  s.IsTragic,
			WordCount: s.WordCount,
		}
		genreSets[i] = make(map[string]bool, len(genres))
		for _, genre := range genres {
			genreSets[i][genre] = true
		}
	}

	for i := range songs {
		for j := range songs {
			if i == j {
				continue
			}
			if l, ok := relate(songs[i], songs[j], genreSets[i], genreSets[j]); ok {
				l.Source, l.Target = i, j
				g.Links = append(g.Links, l)
			}
		}
	}
	return g
}

func relate(a, b models.Song, aGenres, bGenres map[string]bool) (Link, bool) {
	switch {
	case a.Artist == b.Artist:
		return Link{Value: SameArtistWeight, Tier: TierSameArtist}, true
	case contains(a.RelatedArtists.Album, b.Artist):
		return Link{Value: AlbumWeight, Tier: TierAlbum}, true
	case contains(a.RelatedArtists.Other, b.Artist):
		return Link{Value: MentionWeight, Tier: TierMention}, true
	}

	shared := 0
	for genre := range aGenres {
		if bGenres[genre] {
			shared++
		}
	}
	if shared == 0 {
		return Link{}, false
	}
	return Link{Value: GenreWeight * float64(shared), Tier: TierGenre}, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Summary counts links per tier
func (g Graph) Summary() map[Tier]int {
	out := map[Tier]int{
		TierSameArtist: 0,
		TierAlbum:      0,
		TierMention:    0,
		TierGenre:      0,
	}
	for _, l := range g.Links {
		out[l.Tier]++
	}
	return out
}
