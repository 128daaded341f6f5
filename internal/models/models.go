package models

import (
	"strings"
	"time"
)

// Epoch is the day entry #1 was posted. Entry n was posted n-1 days later.
var Epoch = time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)

// Song is one archive entry's song metadata, keyed by Number
type Song struct {
	Number         int            `json:"number"`
	Song           string         `json:"song"`
	Artist         string         `json:"artist"`
	Album          string         `json:"album"`
	Genres         []string       `json:"genres"`
	RelatedArtists RelatedArtists `json:"relatedArtists"`
	WordCount      int            `json:"wordCount"`
	IsTragic       int            `json:"is_tragic"`
}

// RelatedArtists holds artists linked to a song through album personnel or other mentions
type RelatedArtists struct {
	Album []string `json:"album"`
	Other []string `json:"other"`
}

// Entry is the free-text write-up for an archive entry
type Entry struct {
	Number      int    `json:"number"`
	Song        string `json:"song"`
	Artist      string `json:"artist"`
	TextBody    string `json:"textBody"`
	SpotifyLink string `json:"spotifyLink,omitempty"`
	ArtistWiki  string `json:"artistWiki,omitempty"`
	AlbumWiki   string `json:"albumWiki,omitempty"`
}

// ArtistFlag is one row of the curated artist flag list
type ArtistFlag struct {
	Artist string `json:"artist"`
	Flag   string `json:"flag"`
}

// Tragic reports whether the flag value marks the artist
func (f ArtistFlag) Tragic() bool {
	return strings.HasPrefix(strings.TrimSpace(f.Flag), "1")
}

// Normalize replaces absent optional fields with their empty defaults so
// consumers never have to distinguish nil from empty.
func (s *Song) Normalize() {
	if s.Genres == nil {
		s.Genres = []string{}
	}
	if s.RelatedArtists.Album == nil {
		s.RelatedArtists.Album = []string{}
	}
	if s.RelatedArtists.Other == nil {
		s.RelatedArtists.Other = []string{}
	}
	if s.WordCount < 0 {
		s.WordCount = 0
	}
	if s.IsTragic != 0 {
		s.IsTragic = 1
	}
}

// PostedOn returns the calendar day an entry number was posted
func PostedOn(number int) time.Time {
	if number < 1 {
		return Epoch
	}
	return Epoch.AddDate(0, 0, number-1)
}

// IssueKind classifies a soft pipeline error
type IssueKind string

const (
	IssueMissingJoin   IssueKind = "missing_join"
	IssueMalformedText IssueKind = "malformed_text"
	IssueSchemaDrift   IssueKind = "schema_drift"
)

// Issue is a soft error collected for human review. It never aborts a run.
type Issue struct {
	Kind    IssueKind `json:"kind" yaml:"kind"`
	Number  int       `json:"number,omitempty" yaml:"number,omitempty"`
	Message string    `json:"message" yaml:"message"`
}

// Change records one field repaired on an entry
type Change struct {
	Number int    `json:"number" yaml:"number"`
	Field  string `json:"field" yaml:"field"`
	Old    string `json:"old" yaml:"old"`
	New    string `json:"new" yaml:"new"`
}
