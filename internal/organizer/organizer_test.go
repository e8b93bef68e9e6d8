package organizer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mediashelf/mediashelf/internal/fsops"
	"github.com/mediashelf/mediashelf/internal/models"
	"github.com/mediashelf/mediashelf/internal/scanner"
)

func intPtr(v int) *int { return &v }

func movieAssignment(fileName, title string, year int) models.FileAssignment {
	return models.FileAssignment{
		File: models.ScannedFile{
			Name: fileName,
			Path: "/lib/incoming/" + fileName,
		},
		Status:         models.AssignmentMatched,
		MatchStatus:    models.MatchStatusMatched,
		AssignmentType: models.MediaTypeMovie,
		MediaData:      &models.MediaRecord{Title: title, Year: intPtr(year), Type: models.MediaTypeMovie},
	}
}

func episodeAssignment(fileName, series string, year, season, episode int) models.FileAssignment {
	a := models.FileAssignment{
		File: models.ScannedFile{
			Name:       fileName,
			Path:       "/lib/incoming/" + fileName,
			ParsedInfo: &models.ParsedInfo{Title: "Pilot"},
		},
		Status:         models.AssignmentMatched,
		MatchStatus:    models.MatchStatusMatched,
		AssignmentType: models.MediaTypeEpisode,
		SeasonNumber:   intPtr(season),
		EpisodeNumber:  intPtr(episode),
	}
	rec := &models.MediaRecord{Title: series, Year: intPtr(year), Type: models.MediaTypeSeries}
	a.MediaData = rec
	a.SeriesData = rec
	return a
}

func TestGenerateFilename(t *testing.T) {
	format := DefaultNamingFormat()

	tests := []struct {
		name       string
		assignment models.FileAssignment
		want       string
		wantErr    bool
	}{
		{
			name:       "movie",
			assignment: movieAssignment("the.matrix.1999.mkv", "The Matrix", 1999),
			want:       "The Matrix (1999).mkv",
		},
		{
			name:       "episode with padding",
			assignment: episodeAssignment("bb.s01e05.mkv", "Breaking Bad", 2008, 1, 5),
			want:       "Breaking Bad S01E05 - Pilot.mkv",
		},
		{
			name:       "missing media data",
			assignment: models.FileAssignment{File: models.ScannedFile{Name: "x.mkv"}},
			wantErr:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateFilename(tt.assignment, format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateFilenameCaseStyles(t *testing.T) {
	a := movieAssignment("x.mkv", "the dark knight", 2008)
	format := DefaultNamingFormat()

	format.Case = CaseTitle
	got, err := GenerateFilename(a, format)
	if err != nil {
		t.Fatal(err)
	}
	if got != "The Dark Knight (2008).mkv" {
		t.Errorf("title case = %q", got)
	}

	format.Case = CaseUpper
	got, _ = GenerateFilename(a, format)
	if got != "THE DARK KNIGHT (2008).mkv" {
		t.Errorf("upper case = %q", got)
	}
}

func TestGenerateFilenameMissingEpisodeNumbers(t *testing.T) {
	a := episodeAssignment("x.mkv", "Show", 2020, 1, 1)
	a.EpisodeNumber = nil
	if _, err := GenerateFilename(a, DefaultNamingFormat()); err == nil {
		t.Fatal("expected error for missing episode number")
	}
}

func TestGenerateFolderPath(t *testing.T) {
	tmpl := DefaultFolderTemplate()

	movie := movieAssignment("x.mkv", "The Matrix", 1999)
	got, err := GenerateFolderPath(movie, "/data/library", tmpl)
	if err != nil {
		t.Fatal(err)
	}
	if got != "/data/library/Movies/The Matrix (1999)" {
		t.Errorf("movie folder = %q", got)
	}

	ep := episodeAssignment("x.mkv", "Breaking Bad", 2008, 3, 7)
	got, err = GenerateFolderPath(ep, "/data/library", tmpl)
	if err != nil {
		t.Fatal(err)
	}
	if got != "/data/library/TV Shows/Breaking Bad (2008)/Season 3" {
		t.Errorf("episode folder = %q", got)
	}
}

func TestRoundTripGeneratedNameParses(t *testing.T) {
	name, err := GenerateFilename(movieAssignment("src.mkv", "Inception", 2010), DefaultNamingFormat())
	if err != nil {
		t.Fatal(err)
	}
	parsed := scanner.ParseFilename(name)
	if parsed.Title != "Inception" {
		t.Errorf("reparsed title = %q", parsed.Title)
	}
	if parsed.Year == nil || *parsed.Year != 2010 {
		t.Errorf("reparsed year = %v", parsed.Year)
	}

	epName, err := GenerateFilename(episodeAssignment("src.mkv", "Breaking Bad", 2008, 1, 5), DefaultNamingFormat())
	if err != nil {
		t.Fatal(err)
	}
	ep := scanner.ParseFilename(epName)
	if ep.Season == nil || *ep.Season != 1 || ep.Episode == nil || *ep.Episode != 5 {
		t.Errorf("reparsed episode = %v/%v", ep.Season, ep.Episode)
	}
}

// recordingGateway counts mutating calls and can fail specific paths.
type recordingGateway struct {
	mu       sync.Mutex
	renames  int
	moves    int
	folders  map[string]int
	failPath string
}

func newRecordingGateway() *recordingGateway {
	return &recordingGateway{folders: map[string]int{}}
}

func (g *recordingGateway) Rename(ctx context.Context, p, newName string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if strings.Contains(p, g.failPath) && g.failPath != "" {
		return "", fmt.Errorf("simulated rename failure")
	}
	g.renames++
	return "/renamed/" + newName, nil
}

func (g *recordingGateway) Move(ctx context.Context, src, dst string, merge bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.moves++
	return nil
}

func (g *recordingGateway) CreateFolder(ctx context.Context, p string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.folders[p]++
	return nil
}

func (g *recordingGateway) Delete(ctx context.Context, p string) error { return nil }
func (g *recordingGateway) ListDirectory(ctx context.Context, p string) ([]fsops.Entry, error) {
	return nil, nil
}
func (g *recordingGateway) PathExists(ctx context.Context, p string) (bool, error) { return false, nil }
func (g *recordingGateway) Stat(ctx context.Context, p string, checksum bool) (*fsops.Metadata, error) {
	return &fsops.Metadata{}, nil
}

func TestExecuteBatchDryRun(t *testing.T) {
	g := newRecordingGateway()
	o := New(g, DefaultNamingFormat(), DefaultFolderTemplate())

	op := o.ExecuteBatch(context.Background(), BatchOperation{
		Files: []models.FileAssignment{
			movieAssignment("a.mkv", "Alpha", 2001),
			movieAssignment("b.mkv", "Beta", 2002),
			movieAssignment("c.mkv", "Gamma", 2003),
		},
		Operation:   OpAssign,
		LibraryRoot: "/data/library",
		DryRun:      true,
	})

	if op.Summary.Total != 3 || op.Summary.Successful != 3 || op.Summary.Failed != 0 {
		t.Errorf("summary = %+v", op.Summary)
	}
	if g.renames != 0 || g.moves != 0 || len(g.folders) != 0 {
		t.Errorf("dry run touched the gateway: renames=%d moves=%d folders=%d", g.renames, g.moves, len(g.folders))
	}
	for _, r := range op.Results {
		if r.NewPath == "" {
			t.Error("dry run must record the would-be path")
		}
	}
}

func TestGenerateFilenameSanitizesReservedCharacters(t *testing.T) {
	a := movieAssignment("mi.1996.mkv", "Mission: Impossible", 1996)

	name, err := GenerateFilename(a, DefaultNamingFormat())
	if err != nil {
		t.Fatalf("GenerateFilename: %v", err)
	}
	if name != "Mission - Impossible (1996).mkv" {
		t.Errorf("name = %q, want colon replaced", name)
	}
	if err := fsops.ValidateName(name); err != nil {
		t.Errorf("generated name fails validation: %v", err)
	}

	folder, err := GenerateFolderPath(a, "/data/library", DefaultFolderTemplate())
	if err != nil {
		t.Fatalf("GenerateFolderPath: %v", err)
	}
	if folder != "/data/library/Movies/Mission - Impossible (1996)" {
		t.Errorf("folder = %q, want colon replaced", folder)
	}
}

func TestGenerateFilenameRequiresSeriesData(t *testing.T) {
	a := episodeAssignment("x.mkv", "Show", 2020, 1, 1)
	a.SeriesData = nil
	if _, err := GenerateFilename(a, DefaultNamingFormat()); err == nil {
		t.Fatal("expected error for missing series data")
	}
	if _, err := GenerateFolderPath(a, "/lib", DefaultFolderTemplate()); err == nil {
		t.Fatal("expected folder error for missing series data")
	}
}

func TestValidateAssignmentEpisodeTriple(t *testing.T) {
	o := New(newRecordingGateway(), DefaultNamingFormat(), DefaultFolderTemplate())

	complete, err := o.Prepare(episodeAssignment("x.mkv", "Show", 2020, 1, 1), "/lib")
	if err != nil {
		t.Fatal(err)
	}
	if err := o.ValidateAssignment(complete); err != nil {
		t.Fatalf("complete episode rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*models.FileAssignment)
	}{
		{"no season", func(a *models.FileAssignment) { a.SeasonNumber = nil }},
		{"no episode", func(a *models.FileAssignment) { a.EpisodeNumber = nil }},
		{"no series data", func(a *models.FileAssignment) { a.SeriesData = nil }},
		{"no media data", func(a *models.FileAssignment) { a.MediaData = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := complete
			tt.mutate(&a)
			if err := o.ValidateAssignment(a); err == nil {
				t.Error("incomplete episode assignment passed validation")
			}
		})
	}
}

func TestExecuteBatchContinueOnError(t *testing.T) {
	g := newRecordingGateway()
	g.failPath = "b.mkv"
	o := New(g, DefaultNamingFormat(), DefaultFolderTemplate())

	op := o.ExecuteBatch(context.Background(), BatchOperation{
		Files: []models.FileAssignment{
			movieAssignment("a.mkv", "Alpha", 2001),
			movieAssignment("b.mkv", "Beta", 2002),
			movieAssignment("c.mkv", "Mission: Impossible", 1996),
		},
		Operation:       OpAssign,
		LibraryRoot:     "/data/library",
		ContinueOnError: true,
		CreateFolders:   true,
	})

	if op.Summary.Successful != 2 || op.Summary.Failed != 1 {
		t.Fatalf("summary = %+v", op.Summary)
	}
	var failure *ItemResult
	for i := range op.Results {
		if !op.Results[i].Success && !op.Results[i].Skipped {
			failure = &op.Results[i]
		}
	}
	if failure == nil {
		t.Fatal("no failing result recorded")
	}
	if !strings.Contains(failure.Error, "rename") {
		t.Errorf("failure error = %q, want rename failure", failure.Error)
	}
}

func TestExecuteBatchStopsAtFirstFailure(t *testing.T) {
	g := newRecordingGateway()
	g.failPath = "b.mkv"
	o := New(g, DefaultNamingFormat(), DefaultFolderTemplate())

	op := o.ExecuteBatch(context.Background(), BatchOperation{
		Files: []models.FileAssignment{
			movieAssignment("a.mkv", "Alpha", 2001),
			movieAssignment("b.mkv", "Beta", 2002),
			movieAssignment("c.mkv", "Gamma", 2003),
		},
		Operation:     OpAssign,
		LibraryRoot:   "/data/library",
		CreateFolders: true,
	})

	if op.Summary.Successful != 1 || op.Summary.Failed != 1 || op.Summary.Skipped != 1 {
		t.Errorf("summary = %+v", op.Summary)
	}
	if !op.Results[2].Skipped {
		t.Error("item after failure should be skipped")
	}
}

func TestExecuteBatchCreateFoldersIdempotent(t *testing.T) {
	g := newRecordingGateway()
	o := New(g, DefaultNamingFormat(), DefaultFolderTemplate())

	// Two episodes landing in the same season folder, run in parallel.
	op := o.ExecuteBatch(context.Background(), BatchOperation{
		Files: []models.FileAssignment{
			episodeAssignment("e1.mkv", "Breaking Bad", 2008, 1, 1),
			episodeAssignment("e2.mkv", "Breaking Bad", 2008, 1, 2),
		},
		Operation:       OpAssign,
		LibraryRoot:     "/data/library",
		ContinueOnError: true,
		CreateFolders:   true,
	})

	if op.Summary.Successful != 2 {
		t.Fatalf("summary = %+v", op.Summary)
	}
	want := "/data/library/TV Shows/Breaking Bad (2008)/Season 1"
	if g.folders[want] == 0 {
		t.Errorf("season folder not created, folders = %v", g.folders)
	}
}

func TestBatchSummaryTimestamps(t *testing.T) {
	o := New(newRecordingGateway(), DefaultNamingFormat(), DefaultFolderTemplate())
	op := o.ExecuteBatch(context.Background(), BatchOperation{
		Files:       []models.FileAssignment{movieAssignment("a.mkv", "Alpha", 2001)},
		Operation:   OpAssign,
		LibraryRoot: "/lib",
		DryRun:      true,
	})
	if op.Summary.StartTime.IsZero() || op.Summary.EndTime.IsZero() {
		t.Error("summary missing timestamps")
	}
	if op.Summary.EndTime.Before(op.Summary.StartTime) {
		t.Error("end before start")
	}
}
