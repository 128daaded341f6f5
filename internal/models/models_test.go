package models

import (
	"encoding/json"
	"testing"
)

func TestPostedOn(t *testing.T) {
	tests := []struct {
		number int
		want   string
	}{
		{1, "2024-05-10"},
		{2, "2024-05-11"},
		{23, "2024-06-01"},
		{0, "2024-05-10"},
	}

	for _, tt := range tests {
		got := PostedOn(tt.number).Format("2006-01-02")
		if got != tt.want {
			t.Errorf("PostedOn(%d): expected %s, got %s", tt.number, tt.want, got)
		}
	}
}

func TestArtistFlagTragic(t *testing.T) {
	tests := []struct {
		flag string
		want bool
	}{
		{"1", true},
		{"1-shot", true},
		{" 1", true},
		{"0", false},
		{"", false},
		{"yes", false},
	}

	for _, tt := range tests {
		f := ArtistFlag{Artist: "x", Flag: tt.flag}
		if got := f.Tragic(); got != tt.want {
			t.Errorf("Tragic(%q): expected %v, got %v", tt.flag, tt.want, got)
		}
	}
}

func TestSongNormalizeSerializesEmptyLists(t *testing.T) {
	s := Song{Number: 1, Song: "X", Artist: "A", IsTragic: 5, WordCount: -3}
	s.Normalize()

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	want := `{"number":1,"song":"X","artist":"A","album":"","genres":[],"relatedArtists":{"album":[],"other":[]},"wordCount":0,"is_tragic":1}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}
