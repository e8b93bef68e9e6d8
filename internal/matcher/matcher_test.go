package matcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/mediashelf/mediashelf/internal/metadata"
	"github.com/mediashelf/mediashelf/internal/models"
)

func intPtr(v int) *int { return &v }

func movieFile(title string, year *int) models.ScannedFile {
	return models.ScannedFile{
		Name:       title + ".mkv",
		ParsedInfo: &models.ParsedInfo{Title: title, Year: year, Type: models.MediaTypeMovie},
	}
}

func episodeFile(title string, year *int, season, episode int) models.ScannedFile {
	return models.ScannedFile{
		Name: fmt.Sprintf("%s S%02dE%02d.mkv", title, season, episode),
		ParsedInfo: &models.ParsedInfo{
			Title: title, Year: year,
			Season: intPtr(season), Episode: intPtr(episode),
			Type: models.MediaTypeEpisode,
		},
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"The Matrix", "The Matrix", 1, 1},
		{"The Matrix", "the matrix", 1, 1},
		{"Spider-Man", "spider man", 1, 1},
		{"The Matrix", "The Matrix Reloaded", 0.4, 0.7},
		{"The Matrix", "Totally Different", 0, 0.4},
		{"", "anything", 0, 0},
	}
	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if got < tt.min || got > tt.max {
			t.Errorf("Similarity(%q, %q) = %v, want in [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
		}
	}
}

func TestScoreMovieBounds(t *testing.T) {
	parsed := models.ParsedInfo{Title: "The Matrix", Year: intPtr(1999)}
	candidates := []models.MediaRecord{
		{Title: "The Matrix", Year: intPtr(1999), Type: models.MediaTypeMovie},
		{Title: "The Matrix", Year: intPtr(2000), Type: models.MediaTypeMovie},
		{Title: "The Matrix", Year: intPtr(1990), Type: models.MediaTypeMovie},
		{Title: "Unrelated Film", Year: intPtr(1970), Type: models.MediaTypeMovie},
	}
	var scores []float64
	for _, c := range candidates {
		s := ScoreMovie(parsed, c)
		if s < 0 || s > 100 {
			t.Fatalf("score %v out of [0,100]", s)
		}
		scores = append(scores, s)
	}
	if scores[0] != 100 {
		t.Errorf("exact title+year = %v, want 100", scores[0])
	}
	if scores[1] != 85 {
		t.Errorf("off-by-one year = %v, want 85", scores[1])
	}
	if scores[2] != 70 {
		t.Errorf("distant year = %v, want 70 (title only)", scores[2])
	}
	if scores[3] >= scores[2] {
		t.Errorf("unrelated title %v should score below title match %v", scores[3], scores[2])
	}
}

func TestScoreSeriesBonuses(t *testing.T) {
	parsed := models.ParsedInfo{Title: "Breaking Bad", Year: intPtr(2008), Season: intPtr(3)}
	exact := models.MediaRecord{Title: "Breaking Bad", Year: intPtr(2008), Type: models.MediaTypeSeries, TotalSeasons: intPtr(5)}
	if got := ScoreSeries(parsed, exact); got != 100 {
		t.Errorf("exact series = %v, want 100 (70+20+10)", got)
	}

	noSeason := models.MediaRecord{Title: "Breaking Bad", Year: intPtr(2008), Type: models.MediaTypeSeries}
	if got := ScoreSeries(parsed, noSeason); got != 90 {
		t.Errorf("series without season info = %v, want 90", got)
	}

	closeYear := models.MediaRecord{Title: "Breaking Bad", Year: intPtr(2010), Type: models.MediaTypeSeries, TotalSeasons: intPtr(5)}
	if got := ScoreSeries(parsed, closeYear); got != 90 {
		t.Errorf("year within 2 = %v, want 90 (70+10+10)", got)
	}

	tooFewSeasons := models.MediaRecord{Title: "Breaking Bad", Year: intPtr(2008), Type: models.MediaTypeSeries, TotalSeasons: intPtr(2)}
	if got := ScoreSeries(parsed, tooFewSeasons); got != 90 {
		t.Errorf("season beyond total = %v, want 90 (no season bonus)", got)
	}
}

func TestMatchThresholdBands(t *testing.T) {
	m := New(nil, Options{Threshold: 80})
	local := []models.MediaRecord{
		{ID: "1", Title: "The Matrix", Year: intPtr(1999), Type: models.MediaTypeMovie},
	}

	// Exact: confidence 100 >= 80 -> matched.
	a := m.Match(context.Background(), movieFile("The Matrix", intPtr(1999)), local)
	if a.MatchStatus != models.MatchStatusMatched {
		t.Errorf("exact match status = %q, want matched", a.MatchStatus)
	}
	if a.MediaData == nil || a.MediaData.ID != "1" {
		t.Errorf("MediaData = %+v", a.MediaData)
	}

	// Title-only 70: in review band [48, 80).
	b := m.Match(context.Background(), movieFile("The Matrix", nil), local)
	if b.MatchStatus != models.MatchStatusManualReview {
		t.Errorf("band status = %q (conf %v), want manual_review", b.MatchStatus, b.Confidence)
	}
	if b.MediaData != nil {
		t.Error("manual review must not auto-assign media data")
	}

	// Unrelated: below floor -> unmatched.
	c := m.Match(context.Background(), movieFile("Nothing Alike Here", nil), local)
	if c.MatchStatus != models.MatchStatusUnmatched {
		t.Errorf("unrelated status = %q (conf %v), want unmatched", c.MatchStatus, c.Confidence)
	}
}

type fakeLookup struct {
	records []models.MediaRecord
	err     error
	calls   int
}

func (f *fakeLookup) Search(ctx context.Context, title string, year *int, mediaType models.MediaType) ([]models.MediaRecord, error) {
	f.calls++
	return f.records, f.err
}

func (f *fakeLookup) FetchByID(ctx context.Context, id string) (*models.MediaRecord, error) {
	return nil, fmt.Errorf("not implemented")
}

func TestMatchLookupFallback(t *testing.T) {
	lookup := &fakeLookup{records: []models.MediaRecord{
		{ExternalID: "tt0133093", Title: "The Matrix", Year: intPtr(1999), Type: models.MediaTypeMovie},
	}}
	m := New(lookup, Options{Threshold: 80})

	a := m.Match(context.Background(), movieFile("The Matrix", intPtr(1999)), nil)
	if lookup.calls != 1 {
		t.Fatalf("lookup calls = %d, want 1", lookup.calls)
	}
	if a.MatchStatus != models.MatchStatusMatched {
		t.Errorf("status = %q, want matched via lookup", a.MatchStatus)
	}
	if len(a.Suggestions) == 0 || a.Suggestions[0].Source != "lookup" {
		t.Errorf("suggestions = %+v", a.Suggestions)
	}
}

func TestMatchLookupPartialYearBonus(t *testing.T) {
	// A lookup candidate with no year still gets a partial year bonus
	// when the parse carries one: 70 title + 10 = 80, on the threshold.
	lookup := &fakeLookup{records: []models.MediaRecord{
		{ExternalID: "tt0000001", Title: "Obscure Picture", Type: models.MediaTypeMovie},
	}}
	m := New(lookup, Options{Threshold: 80})

	a := m.Match(context.Background(), movieFile("Obscure Picture", intPtr(2010)), nil)
	if a.Confidence != 80 {
		t.Errorf("confidence = %v, want 80 (70 title + 10 partial year)", a.Confidence)
	}
	if a.MatchStatus != models.MatchStatusMatched {
		t.Errorf("status = %q, want matched", a.MatchStatus)
	}

	// Local candidates never get the bonus; the same shape stays at 70.
	local := []models.MediaRecord{{ID: "1", Title: "Obscure Picture", Type: models.MediaTypeMovie}}
	b := New(nil, Options{Threshold: 80}).Match(context.Background(), movieFile("Obscure Picture", intPtr(2010)), local)
	if b.Confidence != 70 {
		t.Errorf("local confidence = %v, want 70", b.Confidence)
	}
}

func TestMatchSkipsLookupWhenLocalConfident(t *testing.T) {
	lookup := &fakeLookup{}
	m := New(lookup, Options{Threshold: 80})
	local := []models.MediaRecord{{Title: "The Matrix", Year: intPtr(1999), Type: models.MediaTypeMovie}}

	m.Match(context.Background(), movieFile("The Matrix", intPtr(1999)), local)
	if lookup.calls != 0 {
		t.Errorf("lookup calls = %d, want 0 when local candidate passes threshold", lookup.calls)
	}
}

func TestMatchLookupFailureDegrades(t *testing.T) {
	lookup := &fakeLookup{err: fmt.Errorf("connection refused")}
	m := New(lookup, Options{Threshold: 80})
	local := []models.MediaRecord{{Title: "The Matrix", Year: intPtr(1999), Type: models.MediaTypeMovie}}

	a := m.Match(context.Background(), movieFile("The Matrix", nil), local)
	if a.Error == "" {
		t.Error("expected recorded lookup error")
	}
	if len(a.Suggestions) == 0 {
		t.Error("local suggestions must survive a lookup failure")
	}
}

func TestMatchLookupNoResultsIsNotAnError(t *testing.T) {
	lookup := &fakeLookup{err: fmt.Errorf("%w for %q", metadata.ErrNoResults, "nothing")}
	m := New(lookup, Options{Threshold: 80})
	local := []models.MediaRecord{{Title: "The Matrix", Year: intPtr(1999), Type: models.MediaTypeMovie}}

	a := m.Match(context.Background(), movieFile("The Matrix", nil), local)
	if a.Error != "" {
		t.Errorf("empty catalogue answer recorded as error: %q", a.Error)
	}
	if len(a.Suggestions) == 0 {
		t.Error("local suggestions must survive an empty lookup")
	}
}

func TestMatchTopFiveSuggestions(t *testing.T) {
	var local []models.MediaRecord
	for i := 0; i < 8; i++ {
		local = append(local, models.MediaRecord{
			ID: fmt.Sprintf("%d", i), Title: "The Matrix", Type: models.MediaTypeMovie,
		})
	}
	m := New(nil, Options{Threshold: 80})
	a := m.Match(context.Background(), movieFile("The Matrix", nil), local)
	if len(a.Suggestions) != 5 {
		t.Errorf("suggestions = %d, want capped at 5", len(a.Suggestions))
	}
	for i := 1; i < len(a.Suggestions); i++ {
		if a.Suggestions[i].Confidence > a.Suggestions[i-1].Confidence {
			t.Error("suggestions not sorted by confidence")
		}
	}
}

func TestConfirmManual(t *testing.T) {
	m := New(nil, Options{})
	rec := models.MediaRecord{ID: "1", Title: "The Matrix", Type: models.MediaTypeMovie}
	a := m.ConfirmManual(movieFile("matrix rip", nil), rec)
	if a.Confidence != 100 {
		t.Errorf("manual confidence = %v, want 100", a.Confidence)
	}
	if a.MatchStatus != models.MatchStatusMatched {
		t.Errorf("status = %q, want matched", a.MatchStatus)
	}

	ep := m.ConfirmManual(episodeFile("Breaking Bad", intPtr(2008), 2, 5), models.MediaRecord{Title: "Breaking Bad", Type: models.MediaTypeSeries})
	if ep.SeasonNumber == nil || *ep.SeasonNumber != 2 || ep.EpisodeNumber == nil || *ep.EpisodeNumber != 5 {
		t.Errorf("episode numbers = %v/%v", ep.SeasonNumber, ep.EpisodeNumber)
	}
}

func TestMatchBatchPreservesOrder(t *testing.T) {
	m := New(nil, Options{Threshold: 80, Concurrency: 2})
	local := []models.MediaRecord{{Title: "The Matrix", Year: intPtr(1999), Type: models.MediaTypeMovie}}
	files := []models.ScannedFile{
		movieFile("The Matrix", intPtr(1999)),
		movieFile("Something Else Entirely", nil),
		movieFile("The Matrix", intPtr(1999)),
	}
	out := m.MatchBatch(context.Background(), files, local)
	if len(out) != 3 {
		t.Fatalf("got %d assignments", len(out))
	}
	if out[0].MatchStatus != models.MatchStatusMatched || out[2].MatchStatus != models.MatchStatusMatched {
		t.Error("matched files out of order")
	}
	if out[1].MatchStatus == models.MatchStatusMatched {
		t.Error("unrelated file should not match")
	}
}
