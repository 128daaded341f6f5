package linker

import (
	"reflect"
	"testing"

	"github.com/fussin-and-lovin/archiver/internal/models"
)

func sampleSongs() []models.Song {
	return []models.Song{
		{Number: 1, Song: "Pancho and Lefty", Artist: "Townes Van Zandt"},
		{Number: 2, Song: "Mama Tried", Artist: "Merle Haggard***"},
		{Number: 3, Song: "Angel from Montgomery", Artist: "John Prine"},
		{Number: 4, Song: "Pancho and Lefty", Artist: "Willie Nelson"},
	}
}

func sampleEntries() []models.Entry {
	return []models.Entry{
		{Number: 1, Song: "Pancho & Lefty", Artist: "Townes Van Zandt", TextBody: "Thoughts: one"},
		{Number: 2, Song: "Mama Tried", Artist: "Merle Haggard (Year: 1968)", TextBody: "Thoughts: two"},
		{Number: 4, Song: "Pancho and Lefty", Artist: "Willie Nelson", TextBody: "Thoughts: four"},
		{Number: 9, Song: "Orphan", Artist: "Nobody", TextBody: "Thoughts: nine"},
	}
}

func TestLinkByNumber(t *testing.T) {
	songs, entries := sampleSongs(), sampleEntries()
	idx := Link(songs, entries)

	for _, s := range songs {
		p, ok := idx.ByNumber(s.Number)
		if !ok {
			t.Fatalf("Expected pair for number %d", s.Number)
		}
		if p.Song == nil || p.Song.Number != s.Number {
			t.Errorf("Expected song %d in pair, got %+v", s.Number, p.Song)
		}
	}

	p, _ := idx.ByNumber(3)
	if p.Entry != nil {
		t.Errorf("Expected no entry for song 3, got %+v", p.Entry)
	}

	if _, ok := idx.ByNumber(42); ok {
		t.Error("Expected no pair for unknown number")
	}

	want := []int{1, 2, 3, 4, 9}
	if got := idx.Numbers(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected numbers %v, got %v", want, got)
	}
}

func TestLinkByKeyDistinguishesArtists(t *testing.T) {
	idx := Link(sampleSongs(), sampleEntries())

	p, ok := idx.ByKey("Pancho and Lefty", "Willie Nelson")
	if !ok || p.Song.Number != 4 {
		t.Fatalf("Expected song 4 for Willie Nelson key, got %+v", p.Song)
	}
	p, ok = idx.ByKey("Pancho and Lefty", "Townes Van Zandt")
	if !ok || p.Song.Number != 1 {
		t.Fatalf("Expected song 1 for Townes key, got %+v", p.Song)
	}
	p, ok = idx.ByKey("Mama Tried", "Merle Haggard")
	if !ok || p.Song.Number != 2 {
		t.Fatalf("Expected cleaned artist to match song 2, got %+v", p.Song)
	}
}

func TestEntryForFallsBackToKey(t *testing.T) {
	songs := []models.Song{{Number: 7, Song: "Mama Tried", Artist: "Merle Haggard"}}
	entries := []models.Entry{{Number: 70, Song: "Mama Tried", Artist: "Merle Haggard", TextBody: "x"}}
	idx := Link(songs, entries)

	e, ok := idx.EntryFor(songs[0])
	if !ok || e.Number != 70 {
		t.Errorf("Expected key fallback to entry 70, got %+v", e)
	}

	if _, ok := idx.EntryFor(models.Song{Number: 8, Song: "Unknown", Artist: "Nobody"}); ok {
		t.Error("Expected no entry for unknown song")
	}
}

func TestMissing(t *testing.T) {
	idx := Link(sampleSongs(), sampleEntries())
	issues := idx.Missing()

	got := map[int]bool{}
	for _, is := range issues {
		if is.Kind != models.IssueMissingJoin {
			t.Errorf("Expected missing_join issue, got %s", is.Kind)
		}
		got[is.Number] = true
	}
	if !got[3] || !got[9] || len(got) != 2 {
		t.Errorf("Expected missing joins for 3 and 9, got %v", got)
	}
}

func TestDrift(t *testing.T) {
	idx := Link(sampleSongs(), sampleEntries())
	drifted := idx.Drift()

	var numbers []int
	for _, p := range drifted {
		numbers = append(numbers, p.Song.Number)
	}
	if !reflect.DeepEqual(numbers, []int{1, 2}) {
		t.Errorf("Expected drift on 1 and 2, got %v", numbers)
	}
}

func TestRepairPropagatesSongToEntry(t *testing.T) {
	songs, entries := sampleSongs(), sampleEntries()
	changes := Repair(songs, entries, FieldAll)

	if entries[0].Song != "Pancho and Lefty" {
		t.Errorf("Expected title repaired, got %q", entries[0].Song)
	}
	if entries[1].Artist != "Merle Haggard" {
		t.Errorf("Expected artist repaired, got %q", entries[1].Artist)
	}
	if entries[3].Song != "Orphan" {
		t.Errorf("Expected orphan entry untouched, got %q", entries[3].Song)
	}
	if songs[1].Artist != "Merle Haggard***" {
		t.Errorf("Expected songs to be left alone, got %q", songs[1].Artist)
	}
	if len(changes) != 2 {
		t.Fatalf("Expected 2 changes, got %d: %+v", len(changes), changes)
	}

	again := Repair(songs, entries, FieldAll)
	if len(again) != 0 {
		t.Errorf("Expected second repair to be a no-op, got %+v", again)
	}
}

func TestRepairSingleField(t *testing.T) {
	songs, entries := sampleSongs(), sampleEntries()
	changes := Repair(songs, entries, FieldArtist)
	for _, c := range changes {
		if c.Field != "artist" {
			t.Errorf("Expected only artist changes, got %+v", c)
		}
	}
	if entries[0].Song != "Pancho & Lefty" {
		t.Errorf("Expected title untouched, got %q", entries[0].Song)
	}
}

func TestCleanSongArtists(t *testing.T) {
	songs := sampleSongs()
	changes := CleanSongArtists(songs)
	if len(changes) != 1 || songs[1].Artist != "Merle Haggard" {
		t.Errorf("Expected one cleaned artist, got %+v", changes)
	}
}

func TestFindEntryForDisplay(t *testing.T) {
	entries := []models.Entry{
		{Number: 1, Song: "Pancho and Lefty", Artist: "Townes Van Zandt"},
		{Number: 4, Song: "Pancho and Lefty", Artist: "Willie Nelson"},
	}

	tests := []struct {
		name   string
		song   string
		artist string
		want   int
		found  bool
	}{
		{"exact", "Pancho and Lefty", "Willie Nelson", 4, true},
		{"title fallback takes first", "Pancho and Lefty", "Emmylou Harris", 1, true},
		{"no match", "Mama Tried", "Merle Haggard", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := FindEntryForDisplay(entries, tt.song, tt.artist)
			if ok != tt.found {
				t.Fatalf("Expected found=%v, got %v", tt.found, ok)
			}
			if ok && e.Number != tt.want {
				t.Errorf("Expected entry %d, got %d", tt.want, e.Number)
			}
		})
	}
}

func TestMatchFlag(t *testing.T) {
	flags := []models.ArtistFlag{
		{Artist: "", Flag: "1"},
		{Artist: "cash", Flag: "1-shot"},
		{Artist: "Johnny", Flag: "0"},
		{Artist: "Gram Parsons", Flag: "1"},
	}

	tests := []struct {
		artist  string
		want    int
		matched string
	}{
		{"Johnny Cash", 1, "cash"},
		{"Johnny Paycheck", 0, "Johnny"},
		{"GRAM PARSONS", 1, "Gram Parsons"},
		{"Emmylou Harris", 0, ""},
	}

	for _, tt := range tests {
		got, matched := MatchFlag(tt.artist, flags)
		if got != tt.want || matched != tt.matched {
			t.Errorf("MatchFlag(%q): expected (%d, %q), got (%d, %q)", tt.artist, tt.want, tt.matched, got, matched)
		}
	}
}

func TestMatchFlagOrderMatters(t *testing.T) {
	first := []models.ArtistFlag{{Artist: "cash", Flag: "0"}, {Artist: "johnny cash", Flag: "1"}}
	if got, _ := MatchFlag("Johnny Cash", first); got != 0 {
		t.Errorf("Expected first listed flag to win, got %d", got)
	}
}

func TestApplyFlags(t *testing.T) {
	songs := []models.Song{{Artist: "Johnny Cash"}, {Artist: "John Prine"}}
	n := ApplyFlags(songs, []models.ArtistFlag{{Artist: "cash", Flag: "1"}})
	if n != 1 || songs[0].IsTragic != 1 || songs[1].IsTragic != 0 {
		t.Errorf("Unexpected flags: count=%d songs=%+v", n, songs)
	}
}

func TestSuggest(t *testing.T) {
	entries := sampleEntries()
	c, ok := Suggest(models.Song{Song: "Pancho and Lefty", Artist: "Townes Van Zandt"}, entries)
	if !ok {
		t.Fatal("Expected a candidate")
	}
	if c.Entry.Number != 1 {
		t.Errorf("Expected entry 1, got %d", c.Entry.Number)
	}
	if c.Match != MatchFuzzyMedium {
		t.Errorf("Expected fuzzy_medium, got %s (%.2f)", c.Match, c.Score)
	}

	if _, ok := Suggest(models.Song{Song: "x"}, nil); ok {
		t.Error("Expected no candidate for empty entries")
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
	}
	for _, tt := range tests {
		if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q): expected %d, got %d", tt.a, tt.b, tt.want, got)
		}
	}
}

func TestDetectMentions(t *testing.T) {
	artists := []string{"Townes Van Zandt", "Johnny Cash", "Son Volt", "Drive-By Truckers", "Gram Parsons", "Big Star 1972", "John Prine", "Hootie & Co."}

	tests := []struct {
		name string
		text string
		self string
		want []string
	}{
		{"full name any case", "reminds me of johnny cash at folsom", "", []string{"Johnny Cash"}},
		{"last name needs capital", "paid in Cash and then some", "", []string{"Johnny Cash"}},
		{"lowercase last name ignored", "paid in cash", "", []string{}},
		{"nickname standalone", "TVZ wrote it better", "", []string{"Townes Van Zandt"}},
		{"nickname inside word ignored", "the gpx file", "", []string{}},
		{"alias", "after Tupelo split, volt happened", "", []string{"Son Volt"}},
		{"self excluded", "Gram Parsons and GP", "Gram Parsons", []string{}},
		{"year key skipped", "released in 1972", "", []string{}},
		{"capitalized last name", "Prine wrote it on a napkin", "", []string{"John Prine"}},
		{"lowercase last name", "a prine-style lyric", "", []string{}},
		{"full name lowercase", "john prine wrote it", "", []string{"John Prine"}},
		{"name ending in punctuation", "saw Hootie & Co. live", "", []string{"Hootie & Co."}},
		{"punctuation at end of text", "nothing like hootie & co.", "", []string{"Hootie & Co."}},
	}

	d := NewMentionDetector(artists)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(tt.text, tt.self)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	if got := DetectMentions("DBT live", artists, ""); !reflect.DeepEqual(got, []string{"Drive-By Truckers"}) {
		t.Errorf("Expected Drive-By Truckers, got %v", got)
	}
}
