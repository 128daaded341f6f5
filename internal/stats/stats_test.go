package stats

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/fussin-and-lovin/archiver/internal/models"
)

func sampleSongs() []models.Song {
	return []models.Song{
		{Number: 1, Song: "A", Artist: "Johnny Cash", WordCount: 50, IsTragic: 1, Genres: []string{"Country"}},
		{Number: 2, Song: "B", Artist: "Johnny Cash***", WordCount: 150, Genres: []string{"Country", "Rockabilly"}},
		{Number: 3, Song: "C", Artist: "Loretta Lynn", WordCount: 0, Genres: []string{"Country"}},
		{Number: 4, Song: "D", Artist: "Emmylou Harris", WordCount: 600, IsTragic: 1},
	}
}

func TestComputeWordCounts(t *testing.T) {
	wc := ComputeWordCounts(sampleSongs())

	if wc.Total != 800 {
		t.Errorf("Expected total 800, got %d", wc.Total)
	}
	if wc.Average != 200 {
		t.Errorf("Expected average 200, got %f", wc.Average)
	}
	// sorted: 0 50 150 600, upper middle
	if wc.Median != 150 {
		t.Errorf("Expected median 150, got %d", wc.Median)
	}
	want := math.Sqrt((150*150 + 50*50 + 200*200 + 400*400) / 4.0)
	if math.Abs(wc.StdDev-want) > 1e-9 {
		t.Errorf("Expected stddev %f, got %f", want, wc.StdDev)
	}
	if wc.Min != 0 || wc.Max != 600 {
		t.Errorf("Expected min 0 and max 600, got %d and %d", wc.Min, wc.Max)
	}
	if wc.Longest == nil || wc.Longest.Number != 4 {
		t.Errorf("Expected longest to be song 4, got %+v", wc.Longest)
	}
	if wc.Shortest == nil || wc.Shortest.Number != 3 {
		t.Errorf("Expected shortest to be song 3, got %+v", wc.Shortest)
	}
	if len(wc.WithoutWords) != 1 || wc.WithoutWords[0].Number != 3 {
		t.Errorf("Expected song 3 without words, got %+v", wc.WithoutWords)
	}

	wantBuckets := map[string]int{"0-100": 2, "101-200": 1, "500+": 1}
	for _, b := range wc.Buckets {
		if b.Count != wantBuckets[b.Label] {
			t.Errorf("Expected %d in bucket %s, got %d", wantBuckets[b.Label], b.Label, b.Count)
		}
	}
}

func TestBucketBoundaries(t *testing.T) {
	tests := []struct {
		count int
		label string
	}{
		{0, "0-100"},
		{100, "0-100"},
		{101, "101-200"},
		{500, "401-500"},
		{501, "500+"},
	}

	for _, tt := range tests {
		wc := ComputeWordCounts([]models.Song{{Number: 1, WordCount: tt.count}})
		for _, b := range wc.Buckets {
			want := 0
			if b.Label == tt.label {
				want = 1
			}
			if b.Count != want {
				t.Errorf("Count %d: expected %d in bucket %s, got %d", tt.count, want, b.Label, b.Count)
			}
		}
	}
}

func TestComputeWordCountsEmpty(t *testing.T) {
	wc := ComputeWordCounts(nil)
	if wc.Entries != 0 || wc.Longest != nil {
		t.Errorf("Expected empty summary, got %+v", wc)
	}
	if len(wc.Buckets) != 6 {
		t.Errorf("Expected 6 buckets, got %d", len(wc.Buckets))
	}
}

func TestCompute(t *testing.T) {
	r := Compute(sampleSongs(), 1)

	if r.Tragic != 2 || r.TragicPct != 50 {
		t.Errorf("Expected 2 tragic songs at 50%%, got %d at %f", r.Tragic, r.TragicPct)
	}
	if len(r.Genres) != 1 || r.Genres[0].Name != "Country" || r.Genres[0].Count != 3 {
		t.Errorf("Expected top genre Country x3, got %+v", r.Genres)
	}
	if len(r.Artists) != 1 || r.Artists[0].Name != "Johnny Cash" || r.Artists[0].Count != 2 {
		t.Errorf("Expected top artist Johnny Cash x2, got %+v", r.Artists)
	}
	// the graph compares artist strings as stored, so "Johnny Cash***" differs
	if r.Graph["same_artist"] != 0 {
		t.Errorf("Expected no same-artist links on raw names, got %d", r.Graph["same_artist"])
	}
}

func TestArtistCoverage(t *testing.T) {
	rows := ArtistCoverage(sampleSongs())

	if len(rows) != 3 {
		t.Fatalf("Expected 3 artists, got %d", len(rows))
	}
	if rows[0].Artist != "Emmylou Harris" {
		t.Errorf("Expected rows sorted by artist, got %s first", rows[0].Artist)
	}
	cash := rows[1]
	if cash.Artist != "Johnny Cash" || cash.TotalSongs != 2 || cash.SongsWithWords != 2 || cash.Percentage != 100 {
		t.Errorf("Unexpected Johnny Cash row: %+v", cash)
	}
	if rows[2].Percentage != 0 {
		t.Errorf("Expected Loretta Lynn at 0%%, got %f", rows[2].Percentage)
	}
}

func TestWordCountRows(t *testing.T) {
	songs := sampleSongs()
	songs[0], songs[3] = songs[3], songs[0]

	rows := WordCountRows(songs)
	for i, r := range rows {
		if r.Number != i+1 {
			t.Errorf("Expected row %d to be number %d, got %d", i, i+1, r.Number)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"YAML", FormatYAML, false},
		{"json", FormatJSON, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q): expected error=%v, got %v", tt.in, tt.wantErr, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestWriteFormats(t *testing.T) {
	r := Compute(sampleSongs(), 0)

	var buf bytes.Buffer
	if err := Write(&buf, r, FormatJSON); err != nil {
		t.Fatalf("JSON write failed: %v", err)
	}
	var fromJSON Report
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	if fromJSON.WordCounts.Total != 800 {
		t.Errorf("Expected total 800 in JSON, got %d", fromJSON.WordCounts.Total)
	}

	buf.Reset()
	if err := Write(&buf, r, FormatYAML); err != nil {
		t.Fatalf("YAML write failed: %v", err)
	}
	var fromYAML Report
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}
	if fromYAML.Tragic != 2 {
		t.Errorf("Expected 2 tragic in YAML, got %d", fromYAML.Tragic)
	}

	buf.Reset()
	if err := Write(&buf, r, FormatTable); err != nil {
		t.Fatalf("Table write failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Word Count Analysis", "Total words", "800", "500+", "Rockabilly"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected table output to contain %q", want)
		}
	}
}
