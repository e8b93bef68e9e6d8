package scanner

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mediashelf/mediashelf/internal/fsops"
	"github.com/mediashelf/mediashelf/internal/models"
)

// fakeGateway serves a fixed path->entry tree without touching disk.
type fakeGateway struct {
	mu    sync.Mutex
	files map[string]int64 // path -> size; directories hold -1
	lists int
}

func newFakeGateway(paths map[string]int64) *fakeGateway {
	g := &fakeGateway{files: map[string]int64{}}
	for p, size := range paths {
		g.files[p] = size
		for dir := path.Dir(p); dir != "/" && dir != "."; dir = path.Dir(dir) {
			if _, ok := g.files[dir]; !ok {
				g.files[dir] = -1
			}
		}
	}
	return g
}

func (g *fakeGateway) ListDirectory(ctx context.Context, dir string) ([]fsops.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.lists++
	g.mu.Unlock()
	var entries []fsops.Entry
	for p, size := range g.files {
		if path.Dir(p) != dir {
			continue
		}
		entries = append(entries, fsops.Entry{
			Name:         path.Base(p),
			Path:         p,
			IsDir:        size < 0,
			Size:         size,
			ModifiedTime: time.Unix(1700000000, 0),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

func (g *fakeGateway) PathExists(ctx context.Context, p string) (bool, error) {
	_, ok := g.files[p]
	return ok, nil
}

func (g *fakeGateway) Stat(ctx context.Context, p string, checksum bool) (*fsops.Metadata, error) {
	size, ok := g.files[p]
	if !ok {
		return nil, fmt.Errorf("no such path: %s", p)
	}
	return &fsops.Metadata{Size: size, ModifiedTime: time.Unix(1700000000, 0), IsDir: size < 0}, nil
}

func (g *fakeGateway) Rename(ctx context.Context, p, newName string) (string, error) {
	return "", fmt.Errorf("not supported")
}
func (g *fakeGateway) Move(ctx context.Context, src, dst string, merge bool) error {
	return fmt.Errorf("not supported")
}
func (g *fakeGateway) CreateFolder(ctx context.Context, p string) error { return nil }
func (g *fakeGateway) Delete(ctx context.Context, p string) error       { return nil }

func testLibrary(root string) models.LibraryPath {
	return models.LibraryPath{
		ID:        uuid.New(),
		Name:      "test",
		RootPath:  root,
		MediaType: models.MediaTypeMovies,
	}
}

func TestScanCleanLibrary(t *testing.T) {
	g := newFakeGateway(map[string]int64{
		"/lib/Movies/The Matrix (1999)/The Matrix (1999).mkv": 700,
		"/lib/Movies/Inception (2010)/Inception (2010).mkv":   800,
		"/lib/Movies/Inception (2010)/notes.txt":              10,
		"/lib/Movies/.hidden/secret.mkv":                      5,
	})

	s := New(g)
	result, err := s.Scan(context.Background(), Options{
		Library:    testLibrary("/lib/Movies"),
		Extensions: []string{".mkv"},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Status != models.ScanStatusCompleted {
		t.Errorf("Status = %q, want completed", result.Status)
	}
	if len(result.Files) != 2 {
		t.Fatalf("found %d files, want 2 (hidden dir and .txt skipped)", len(result.Files))
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
	for _, f := range result.Files {
		if f.ParsedInfo == nil || f.ParsedInfo.Year == nil {
			t.Errorf("file %s missing parsed year", f.Name)
		}
		if f.Metadata.Size <= 0 {
			t.Errorf("file %s missing size", f.Name)
		}
	}
}

func TestScanMissingRoot(t *testing.T) {
	s := New(newFakeGateway(nil))
	result, err := s.Scan(context.Background(), Options{Library: testLibrary("/nope")})
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	if result.Status != models.ScanStatusError {
		t.Errorf("Status = %q, want error", result.Status)
	}
	if len(result.Errors) == 0 {
		t.Error("expected a recorded scan error")
	}
}

func TestScanCancellation(t *testing.T) {
	paths := map[string]int64{}
	for i := 0; i < 50; i++ {
		paths[fmt.Sprintf("/lib/dir%02d/file%02d.mkv", i, i)] = 100
	}
	g := newFakeGateway(paths)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(g)
	result, err := s.Scan(ctx, Options{Library: testLibrary("/lib"), Extensions: []string{".mkv"}})
	if err != nil {
		t.Fatalf("cancelled scan should return partial result, got error: %v", err)
	}
	if result.Status != models.ScanStatusCancelled {
		t.Errorf("Status = %q, want cancelled", result.Status)
	}
}

func TestScanProgressFinalEmission(t *testing.T) {
	g := newFakeGateway(map[string]int64{
		"/lib/a.mkv": 1,
		"/lib/b.mkv": 2,
	})

	var mu sync.Mutex
	var last models.ScanProgress
	calls := 0
	s := New(g)
	_, err := s.Scan(context.Background(), Options{
		Library:    testLibrary("/lib"),
		Extensions: []string{".mkv"},
		Progress: func(p models.ScanProgress) {
			mu.Lock()
			last = p
			calls++
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if calls == 0 {
		t.Fatal("no progress emitted")
	}
	if last.Percentage != 100 {
		t.Errorf("final percentage = %v, want 100", last.Percentage)
	}
	if last.FilesProcessed != 2 || last.FilesTotal != 2 {
		t.Errorf("final progress = %+v, want 2/2 files", last)
	}
}

func TestScanDepthLimit(t *testing.T) {
	g := newFakeGateway(map[string]int64{
		"/lib/a/b/c/d/deep.mkv": 1,
		"/lib/top.mkv":          1,
	})

	s := New(g)
	result, err := s.Scan(context.Background(), Options{
		Library:    testLibrary("/lib"),
		Extensions: []string{".mkv"},
		MaxDepth:   1,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Files) != 1 {
		t.Errorf("found %d files, want 1 (deep file beyond depth limit)", len(result.Files))
	}
}

func TestManagerConcurrencyGuard(t *testing.T) {
	g := newFakeGateway(map[string]int64{"/lib/a.mkv": 1})
	m := NewManager(New(g), ManagerOptions{MaxConcurrent: 1})

	libA := testLibrary("/lib")

	// Hold the single slot with a fake active entry.
	m.mu.Lock()
	blocker := uuid.New()
	m.active[blocker] = &activeScan{libraryID: uuid.New(), cancel: func() {}, status: models.ScanStatusScanning}
	m.mu.Unlock()

	if _, err := m.Run(context.Background(), Options{Library: libA}, nil); err == nil {
		t.Fatal("expected concurrency limit error")
	}

	m.mu.Lock()
	delete(m.active, blocker)
	m.mu.Unlock()

	if _, err := m.Run(context.Background(), Options{Library: libA, Extensions: []string{".mkv"}}, nil); err != nil {
		t.Fatalf("Run after slot freed: %v", err)
	}
}

func TestManagerStatusAndResult(t *testing.T) {
	g := newFakeGateway(map[string]int64{"/lib/a.mkv": 1})
	m := NewManager(New(g), ManagerOptions{})
	scanID := uuid.New()

	result, err := m.Run(context.Background(), Options{
		Library:    testLibrary("/lib"),
		ScanID:     scanID,
		Extensions: []string{".mkv"},
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ScanID != scanID {
		t.Errorf("ScanID = %s, want %s", result.ScanID, scanID)
	}

	st, err := m.Status(scanID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Status != models.ScanStatusCompleted {
		t.Errorf("Status = %q, want completed", st.Status)
	}

	got, err := m.Result(scanID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if len(got.Files) != 1 {
		t.Errorf("stored result has %d files, want 1", len(got.Files))
	}

	if _, err := m.Status(uuid.New()); err != ErrScanNotFound {
		t.Errorf("unknown scan error = %v, want ErrScanNotFound", err)
	}
}

func TestManagerCleanupFinished(t *testing.T) {
	m := NewManager(New(newFakeGateway(nil)), ManagerOptions{Retention: time.Hour})
	old := time.Now().UTC().Add(-2 * time.Hour)
	fresh := time.Now().UTC()
	m.results[uuid.New()] = &models.ScanResult{Status: models.ScanStatusCompleted, EndTime: &old}
	m.results[uuid.New()] = &models.ScanResult{Status: models.ScanStatusCompleted, EndTime: &fresh}

	if removed := m.CleanupFinished(); removed != 1 {
		t.Errorf("removed %d, want 1", removed)
	}
	if len(m.results) != 1 {
		t.Errorf("%d results remain, want 1", len(m.results))
	}
}
