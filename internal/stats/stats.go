// Package stats summarizes an assembled song dataset.
package stats

import (
	"math"
	"sort"

	"github.com/fussin-and-lovin/archiver/internal/dataset"
	"github.com/fussin-and-lovin/archiver/internal/graph"
	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/textnorm"
)

// SongRef names one song in a report
type SongRef struct {
	Number    int    `json:"number" yaml:"number"`
	Song      string `json:"song" yaml:"song"`
	Artist    string `json:"artist" yaml:"artist"`
	WordCount int    `json:"wordCount" yaml:"wordcount"`
}

// Bucket is one word-count range. Max is -1 for the open-ended top range.
type Bucket struct {
	Label      string  `json:"label" yaml:"label"`
	Min        int     `json:"min" yaml:"min"`
	Max        int     `json:"max" yaml:"max"`
	Count      int     `json:"count" yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// WordCounts describes the distribution of entry lengths
type WordCounts struct {
	Entries      int       `json:"entries" yaml:"entries"`
	Total        int       `json:"total" yaml:"total"`
	Average      float64   `json:"average" yaml:"average"`
	Median       int       `json:"median" yaml:"median"`
	StdDev       float64   `json:"stdDev" yaml:"stddev"`
	Min          int       `json:"min" yaml:"min"`
	Max          int       `json:"max" yaml:"max"`
	Longest      *SongRef  `json:"longest,omitempty" yaml:"longest,omitempty"`
	Shortest     *SongRef  `json:"shortest,omitempty" yaml:"shortest,omitempty"`
	WithoutWords []SongRef `json:"withoutWords" yaml:"withoutwords"`
	Buckets      []Bucket  `json:"buckets" yaml:"buckets"`
}

// Count is a label and how often it occurs
type Count struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// Report is the full statistics summary
type Report struct {
	Songs      int            `json:"songs" yaml:"songs"`
	WordCounts WordCounts     `json:"wordCounts" yaml:"wordcounts"`
	Tragic     int            `json:"tragic" yaml:"tragic"`
	TragicPct  float64        `json:"tragicPercentage" yaml:"tragicpercentage"`
	Genres     []Count        `json:"genres" yaml:"genres"`
	Artists    []Count        `json:"artists" yaml:"artists"`
	Graph      map[string]int `json:"graph" yaml:"graph"`
}

var bucketBounds = []struct {
	label    string
	min, max int
}{
	{"0-100", 0, 100},
	{"101-200", 101, 200},
	{"201-300", 201, 300},
	{"301-400", 301, 400},
	{"401-500", 401, 500},
	{"500+", 501, -1},
}

// Compute builds a report for the songs. topN limits the genre and artist
// lists; zero or less keeps them all.
func Compute(songs []models.Song, topN int) Report {
	r := Report{
		Songs:      len(songs),
		WordCounts: ComputeWordCounts(songs),
		Genres:     GenreFrequency(songs, topN),
		Artists:    ArtistFrequency(songs, topN),
		Graph:      make(map[string]int),
	}

	for _, s := range songs {
		if s.IsTragic == 1 {
			r.Tragic++
		}
	}
	r.TragicPct = percentage(r.Tragic, len(songs))

	for tier, n := range graph.Build(songs).Summary() {
		r.Graph[string(tier)] = n
	}
	return r
}

// ComputeWordCounts summarizes word counts. The median is the upper middle
// value of the sorted counts and the deviation is the population one.
func ComputeWordCounts(songs []models.Song) WordCounts {
	wc := WordCounts{
		Entries:      len(songs),
		WithoutWords: []SongRef{},
		Buckets:      make([]Bucket, len(bucketBounds)),
	}
	for i, b := range bucketBounds {
		wc.Buckets[i] = Bucket{Label: b.label, Min: b.min, Max: b.max}
	}
	if len(songs) == 0 {
		return wc
	}

	counts := make([]int, len(songs))
	longest, shortest := songs[0], songs[0]
	for i, s := range songs {
		counts[i] = s.WordCount
		wc.Total += s.WordCount
		if s.WordCount > longest.WordCount {
			longest = s
		}
		if s.WordCount < shortest.WordCount {
			shortest = s
		}
		if s.WordCount == 0 {
			wc.WithoutWords = append(wc.WithoutWords, ref(s))
		}
		for j, b := range bucketBounds {
			if s.WordCount >= b.min && (b.max < 0 || s.WordCount <= b.max) {
				wc.Buckets[j].Count++
				break
			}
		}
	}

	n := float64(len(songs))
	wc.Average = float64(wc.Total) / n

	var sq float64
	for _, c := range counts {
		d := float64(c) - wc.Average
		sq += d * d
	}
	wc.StdDev = math.Sqrt(sq / n)

	sort.Ints(counts)
	wc.Median = counts[len(counts)/2]
	wc.Min = counts[0]
	wc.Max = counts[len(counts)-1]

	l, s := ref(longest), ref(shortest)
	wc.Longest, wc.Shortest = &l, &s

	for i := range wc.Buckets {
		wc.Buckets[i].Percentage = percentage(wc.Buckets[i].Count, len(songs))
	}
	return wc
}

// GenreFrequency counts songs per genre, most common first.
func GenreFrequency(songs []models.Song, topN int) []Count {
	freq := make(map[string]int)
	for _, s := range songs {
		for _, g := range s.Genres {
			freq[g]++
		}
	}
	return topCounts(freq, topN)
}

// ArtistFrequency counts songs per cleaned artist name, most common first.
func ArtistFrequency(songs []models.Song, topN int) []Count {
	freq := make(map[string]int)
	for _, s := range songs {
		freq[textnorm.CleanArtistName(s.Artist)]++
	}
	return topCounts(freq, topN)
}

// ArtistCoverage reports, per cleaned artist, how many songs have a
// non-empty write-up. Rows are sorted by artist.
func ArtistCoverage(songs []models.Song) []dataset.ArtistCoverage {
	byArtist := make(map[string]*dataset.ArtistCoverage)
	for _, s := range songs {
		name := textnorm.CleanArtistName(s.Artist)
		c, ok := byArtist[name]
		if !ok {
			c = &dataset.ArtistCoverage{Artist: name}
			byArtist[name] = c
		}
		c.TotalSongs++
		if s.WordCount > 0 {
			c.SongsWithWords++
		}
	}

	rows := make([]dataset.ArtistCoverage, 0, len(byArtist))
	for _, c := range byArtist {
		c.Percentage = percentage(c.SongsWithWords, c.TotalSongs)
		rows = append(rows, *c)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Artist < rows[j].Artist })
	return rows
}

// WordCountRows lists every song's word count in number order.
func WordCountRows(songs []models.Song) []dataset.WordCountRow {
	rows := make([]dataset.WordCountRow, len(songs))
	for i, s := range songs {
		rows[i] = dataset.WordCountRow{Number: s.Number, Song: s.Song, Artist: s.Artist, WordCount: s.WordCount}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Number < rows[j].Number })
	return rows
}

func topCounts(freq map[string]int, topN int) []Count {
	out := make([]Count, 0, len(freq))
	for name, n := range freq {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

func ref(s models.Song) SongRef {
	return SongRef{Number: s.Number, Song: s.Song, Artist: s.Artist, WordCount: s.WordCount}
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
