package assemble

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fussin-and-lovin/archiver/internal/dataset"
	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/wordcount"
)

func TestRunEndToEnd(t *testing.T) {
	a := &Assembler{
		Songs: []models.Song{
			{Number: 1, Song: "X", Artist: "A*", Album: "B"},
		},
		Entries: []models.Entry{
			{Number: 1, Song: "X", Artist: "A", TextBody: "...Thoughts: one two three four five Reply from B: ignore this"},
		},
		Flags: []models.ArtistFlag{{Artist: "a", Flag: "1"}},
	}

	res, err := a.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := models.Song{
		Number:         1,
		Song:           "X",
		Artist:         "A",
		Album:          "B",
		Genres:         []string{},
		RelatedArtists: models.RelatedArtists{Album: []string{}, Other: []string{}},
		WordCount:      5,
		IsTragic:       1,
	}
	if len(res.Songs) != 1 {
		t.Fatalf("Expected 1 song, got %d", len(res.Songs))
	}
	if !reflect.DeepEqual(res.Songs[0], want) {
		t.Errorf("Expected %+v, got %+v", want, res.Songs[0])
	}
	if len(res.Issues) != 0 {
		t.Errorf("Expected no issues, got %+v", res.Issues)
	}
	if len(res.Changes) != 1 || res.Changes[0].Old != "A*" {
		t.Errorf("Expected one artist change from A*, got %+v", res.Changes)
	}
}

func TestRunDoesNotModifyInputs(t *testing.T) {
	songs := []models.Song{{Number: 2, Song: "Y", Artist: "C (Year: 1970)", Genres: []string{"Folk"}}}
	a := &Assembler{Songs: songs, Genres: map[int][]string{2: {"alt-country"}}}

	if _, err := a.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if songs[0].Artist != "C (Year: 1970)" {
		t.Errorf("Expected input artist untouched, got %q", songs[0].Artist)
	}
	if len(songs[0].Genres) != 1 {
		t.Errorf("Expected input genres untouched, got %v", songs[0].Genres)
	}
}

func TestRunMissingJoins(t *testing.T) {
	a := &Assembler{
		Songs: []models.Song{
			{Number: 1, Song: "Alone", Artist: "Solo", WordCount: 99},
		},
		Entries: []models.Entry{
			{Number: 2, Song: "Orphan", Artist: "Nobody", TextBody: "Thoughts: hi"},
		},
	}

	res, err := a.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Songs[0].WordCount != 0 {
		t.Errorf("Expected word count 0 for unjoined song, got %d", res.Songs[0].WordCount)
	}

	var kinds []models.IssueKind
	for _, i := range res.Issues {
		kinds = append(kinds, i.Kind)
	}
	want := []models.IssueKind{models.IssueMissingJoin, models.IssueMissingJoin}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("Expected issues %v, got %v", want, kinds)
	}
}

func TestRunKeyJoin(t *testing.T) {
	// the entry's number was mistyped but its title and artist agree
	a := &Assembler{
		Songs:   []models.Song{{Number: 5, Song: "Jolene", Artist: "Dolly Parton"}},
		Entries: []models.Entry{{Number: 50, Song: "Jolene", Artist: "Dolly Parton*", TextBody: "Thoughts: so good"}},
	}

	res, err := a.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Songs[0].WordCount != 2 {
		t.Errorf("Expected word count 2 through key join, got %d", res.Songs[0].WordCount)
	}
	if len(res.Issues) != 0 {
		t.Errorf("Expected no issues, got %+v", res.Issues)
	}
}

func TestRunSchemaDrift(t *testing.T) {
	a := &Assembler{
		Songs: []models.Song{
			{Number: 0, Song: "Zero", Artist: "Z"},
			{Number: 3, Song: "Three", Artist: "T"},
			{Number: 3, Song: "Three again", Artist: "T"},
		},
		Entries: []models.Entry{{Number: -1, Song: "Negative", Artist: "N"}},
	}

	res, err := a.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Songs) != 1 || res.Songs[0].Song != "Three" {
		t.Errorf("Expected only the first song 3 to survive, got %+v", res.Songs)
	}

	drift := 0
	for _, i := range res.Issues {
		if i.Kind == models.IssueSchemaDrift {
			drift++
		}
	}
	if drift != 3 {
		t.Errorf("Expected 3 schema drift issues, got %d", drift)
	}
	if len(res.SkippedSongs) != 2 || res.SkippedSongs[1].Song != "Three again" {
		t.Errorf("Expected skipped songs Zero and Three again, got %+v", res.SkippedSongs)
	}
	if len(res.SkippedEntries) != 1 || res.SkippedEntries[0].Song != "Negative" {
		t.Errorf("Expected skipped entry Negative, got %+v", res.SkippedEntries)
	}
}

func TestRunRepairsDrift(t *testing.T) {
	a := &Assembler{
		Songs:   []models.Song{{Number: 1, Song: "Pancho and Lefty", Artist: "Townes Van Zandt"}},
		Entries: []models.Entry{{Number: 1, Song: "Poncho & Lefty", Artist: "Towns Van Zandt", TextBody: "Thoughts: the best"}},
	}

	res, err := a.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	e := res.Entries[0]
	if e.Song != "Pancho and Lefty" || e.Artist != "Townes Van Zandt" {
		t.Errorf("Expected entry repaired from song record, got %+v", e)
	}
	want := []models.Change{
		{Number: 1, Field: "artist", Old: "Towns Van Zandt", New: "Townes Van Zandt"},
		{Number: 1, Field: "song", Old: "Poncho & Lefty", New: "Pancho and Lefty"},
	}
	if !reflect.DeepEqual(res.Changes, want) {
		t.Errorf("Expected changes %+v, got %+v", want, res.Changes)
	}
	if res.Songs[0].WordCount != 2 {
		t.Errorf("Expected word count 2, got %d", res.Songs[0].WordCount)
	}
	if a.Entries[0].Song != "Poncho & Lefty" {
		t.Errorf("Expected input entry untouched, got %q", a.Entries[0].Song)
	}
}

func TestRunMalformedText(t *testing.T) {
	tests := []struct {
		name   string
		policy wordcount.Policy
		want   int
	}{
		{name: "whole text", policy: wordcount.WholeText, want: 4},
		{name: "zero", policy: wordcount.Zero, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Assembler{
				Songs:   []models.Song{{Number: 1, Song: "S", Artist: "A"}},
				Entries: []models.Entry{{Number: 1, Song: "S", Artist: "A", TextBody: "no marker at all"}},
				Policy:  tt.policy,
			}
			res, err := a.Run()
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if res.Songs[0].WordCount != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, res.Songs[0].WordCount)
			}
			if len(res.Issues) != 1 || res.Issues[0].Kind != models.IssueMalformedText {
				t.Errorf("Expected one malformed_text issue, got %+v", res.Issues)
			}
		})
	}
}

func TestRunMergesStructurally(t *testing.T) {
	a := &Assembler{
		Songs: []models.Song{{
			Number:         1,
			Song:           "S",
			Artist:         "A",
			Album:          "Keep Me",
			Genres:         []string{"Country"},
			RelatedArtists: models.RelatedArtists{Album: []string{"P"}},
			IsTragic:       1,
		}},
		Genres: map[int][]string{
			1: {"country", "Alt Country", "alt-country", "[[Honky-tonk|honky tonk]]"},
		},
		Related: map[int]models.RelatedArtists{
			1: {Album: []string{"Q", "P"}, Other: []string{"R"}},
		},
	}

	res, err := a.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	s := res.Songs[0]

	if s.Album != "Keep Me" {
		t.Errorf("Expected album to survive the merge, got %q", s.Album)
	}
	if s.IsTragic != 1 {
		t.Errorf("Expected tragic flag kept without a flag list, got %d", s.IsTragic)
	}
	wantGenres := []string{"Country", "Alternative country", "Honky Tonk"}
	if !reflect.DeepEqual(s.Genres, wantGenres) {
		t.Errorf("Expected genres %v, got %v", wantGenres, s.Genres)
	}
	wantRelated := models.RelatedArtists{Album: []string{"P", "Q"}, Other: []string{"R"}}
	if !reflect.DeepEqual(s.RelatedArtists, wantRelated) {
		t.Errorf("Expected related %+v, got %+v", wantRelated, s.RelatedArtists)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	flags := []models.ArtistFlag{{Artist: "cash", Flag: "1-shot"}}
	genres := map[int][]string{1: {"alt-country", "Outlaw country"}, 2: {"Folk"}}
	related := map[int]models.RelatedArtists{1: {Other: []string{"Waylon Jennings"}}}

	first := &Assembler{
		Songs: []models.Song{
			{Number: 2, Song: "Pancho and Lefty", Artist: "Townes Van Zandt***"},
			{Number: 1, Song: "Hurt", Artist: "Johnny Cash (Year: 2002)"},
		},
		Entries: []models.Entry{
			{Number: 1, Song: "Hurt", Artist: "Johnny Cash", TextBody: "Thoughts: a cover that\nbecame his own."},
			{Number: 2, Song: "Pancho and Lefty", Artist: "Townes Van Zandt", TextBody: "Thoughts: the best.\n— me"},
		},
		Flags:   flags,
		Genres:  genres,
		Related: related,
	}
	res1, err := first.Run()
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	second := &Assembler{Songs: res1.Songs, Entries: res1.Entries, Flags: flags, Genres: genres, Related: related}
	res2, err := second.Run()
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	b1, err := dataset.MarshalSongs(res1.Songs)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	b2, err := dataset.MarshalSongs(res2.Songs)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Errorf("Expected identical output on rerun\nfirst:\n%s\nsecond:\n%s", b1, b2)
	}
	if len(res2.Changes) != 0 {
		t.Errorf("Expected no changes on rerun, got %+v", res2.Changes)
	}
	if res1.Songs[0].Number != 1 || res1.Songs[0].IsTragic != 1 {
		t.Errorf("Expected song 1 first and flagged, got %+v", res1.Songs[0])
	}
}

func TestRunRequiresSongs(t *testing.T) {
	if _, err := (&Assembler{}).Run(); err == nil {
		t.Error("Expected error when no songs are given")
	}
}

func TestWriteReport(t *testing.T) {
	res := &Result{
		Songs: []models.Song{{Number: 1}},
		Issues: []models.Issue{
			{Kind: models.IssueMissingJoin, Number: 1, Message: "song \"X\" has no entry"},
			{Kind: models.IssueMissingJoin, Number: 2, Message: "entry \"Y\" has no song record"},
		},
	}
	path := filepath.Join(t.TempDir(), "issues.yaml")

	if err := WriteReport(path, res); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	var got Report
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("Failed to parse report: %v", err)
	}
	if got.Counts["missing_join"] != 2 {
		t.Errorf("Expected 2 missing_join issues, got %d", got.Counts["missing_join"])
	}
	if !strings.Contains(string(data), "changes: []") {
		t.Errorf("Expected empty changes list in report, got:\n%s", data)
	}
}

func TestNewReportTimestamp(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewReport(&Result{}, now)
	if r.GeneratedAt != "2025-01-02T03:04:05Z" {
		t.Errorf("Expected RFC3339 timestamp, got %s", r.GeneratedAt)
	}
}
