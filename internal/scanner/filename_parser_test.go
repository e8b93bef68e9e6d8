package scanner

import (
	"testing"

	"github.com/mediashelf/mediashelf/internal/models"
)

func intPtr(v int) *int { return &v }

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     models.ParsedInfo
	}{
		{
			name:     "movie with year in parens",
			filename: "The Matrix (1999).mkv",
			want:     models.ParsedInfo{Title: "The Matrix", Year: intPtr(1999), Type: models.MediaTypeMovie},
		},
		{
			name:     "movie with dots and release junk",
			filename: "Inception.2010.1080p.BluRay.x264.mkv",
			want:     models.ParsedInfo{Title: "Inception", Year: intPtr(2010), Type: models.MediaTypeMovie},
		},
		{
			name:     "strict episode form",
			filename: "Breaking Bad - S01E05.mkv",
			want:     models.ParsedInfo{Title: "Breaking Bad", Season: intPtr(1), Episode: intPtr(5), Type: models.MediaTypeEpisode},
		},
		{
			name:     "scene episode with junk",
			filename: "The.Office.S03E12.720p.HDTV.x264.mkv",
			want:     models.ParsedInfo{Title: "The Office", Season: intPtr(3), Episode: intPtr(12), Type: models.MediaTypeEpisode},
		},
		{
			name:     "NxM episode form",
			filename: "Firefly 1x11.avi",
			want:     models.ParsedInfo{Title: "Firefly", Season: intPtr(1), Episode: intPtr(11), Type: models.MediaTypeEpisode},
		},
		{
			name:     "episode marker beats year",
			filename: "Show S01E05 (2019).mkv",
			want:     models.ParsedInfo{Title: "Show", Year: intPtr(2019), Season: intPtr(1), Episode: intPtr(5), Type: models.MediaTypeEpisode},
		},
		{
			name:     "series year before marker",
			filename: "Doctor Who (2005) - S04E10.mkv",
			want:     models.ParsedInfo{Title: "Doctor Who", Year: intPtr(2005), Season: intPtr(4), Episode: intPtr(10), Type: models.MediaTypeEpisode},
		},
		{
			name:     "no structure defaults to movie",
			filename: "home_video_clip.mp4",
			want:     models.ParsedInfo{Title: "home video clip", Type: models.MediaTypeMovie},
		},
		{
			name:     "underscores without pattern default to movie",
			filename: "random_name.mkv",
			want:     models.ParsedInfo{Title: "random name", Type: models.MediaTypeMovie},
		},
		{
			name:     "hyphen separated episode",
			filename: "Some-Title-S01E02.mkv",
			want:     models.ParsedInfo{Title: "Some Title", Season: intPtr(1), Episode: intPtr(2), Type: models.MediaTypeEpisode},
		},
		{
			name:     "underscore separators",
			filename: "The_Big_Lebowski_(1998).mkv",
			want:     models.ParsedInfo{Title: "The Big Lebowski", Year: intPtr(1998), Type: models.MediaTypeMovie},
		},
		{
			name:     "year out of range ignored",
			filename: "Movie (1850).mkv",
			want:     models.ParsedInfo{Title: "Movie", Type: models.MediaTypeMovie},
		},
		{
			name:     "empty base name",
			filename: ".mkv",
			want:     models.ParsedInfo{Type: models.MediaTypeUnknown},
		},
		{
			name:     "verbose episode form",
			filename: "Lost Season 2 Episode 4.mkv",
			want:     models.ParsedInfo{Title: "Lost", Season: intPtr(2), Episode: intPtr(4), Type: models.MediaTypeEpisode},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFilename(tt.filename)
			if got.Title != tt.want.Title {
				t.Errorf("Title = %q, want %q", got.Title, tt.want.Title)
			}
			if !intPtrEq(got.Year, tt.want.Year) {
				t.Errorf("Year = %v, want %v", fmtIntPtr(got.Year), fmtIntPtr(tt.want.Year))
			}
			if !intPtrEq(got.Season, tt.want.Season) {
				t.Errorf("Season = %v, want %v", fmtIntPtr(got.Season), fmtIntPtr(tt.want.Season))
			}
			if !intPtrEq(got.Episode, tt.want.Episode) {
				t.Errorf("Episode = %v, want %v", fmtIntPtr(got.Episode), fmtIntPtr(tt.want.Episode))
			}
			if got.Type != tt.want.Type {
				t.Errorf("Type = %q, want %q", got.Type, tt.want.Type)
			}
		})
	}
}

func TestParseFilenameDeterministic(t *testing.T) {
	const name = "The.Office.S03E12.720p.HDTV.x264.mkv"
	first := ParseFilename(name)
	for i := 0; i < 10; i++ {
		if got := ParseFilename(name); got.Title != first.Title || !intPtrEq(got.Season, first.Season) {
			t.Fatalf("parse not deterministic: %+v vs %+v", got, first)
		}
	}
}

func intPtrEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func fmtIntPtr(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
