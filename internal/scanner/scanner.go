package scanner

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediashelf/mediashelf/internal/fsops"
	"github.com/mediashelf/mediashelf/internal/models"
)

// progressInterval is the minimum time between progress emissions. The
// final state of a scan is always emitted regardless of throttling.
const progressInterval = 500 * time.Millisecond

// defaultMaxDepth bounds directory recursion when Options leaves it unset.
const defaultMaxDepth = 10

// excludedDirNames are directories never descended into.
var excludedDirNames = map[string]bool{
	"@eaDir":                    true,
	"#recycle":                  true,
	".Trash":                    true,
	"lost+found":                true,
	"System Volume Information": true,
}

// Options configures a single scan run.
type Options struct {
	Library    models.LibraryPath
	ScanID     uuid.UUID
	MaxDepth   int
	Extensions []string // accepted file extensions, lowercase with dot
	Checksum   bool
	// Progress receives throttled progress updates. May be nil.
	Progress func(models.ScanProgress)
}

// Scanner walks a library tree through the filesystem gateway and
// produces scan results. Safe for concurrent use; all per-run state
// lives in the run.
type Scanner struct {
	fs fsops.Gateway
}

func New(fs fsops.Gateway) *Scanner {
	return &Scanner{fs: fs}
}

// run carries the mutable state of one scan.
type run struct {
	fs       fsops.Gateway
	opts     Options
	exts     map[string]bool
	maxDepth int

	result   *models.ScanResult
	progress models.ScanProgress
	lastEmit time.Time
}

// Scan walks the library root in two passes: a counting pass so that
// progress percentages are meaningful, then a processing pass that
// collects files and directories. Cancellation is honored at every
// directory boundary; a cancelled scan returns its partial result with
// status cancelled and no error.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*models.ScanResult, error) {
	if opts.ScanID == uuid.Nil {
		opts.ScanID = uuid.New()
	}

	r := &run{
		fs:       s.fs,
		opts:     opts,
		exts:     make(map[string]bool, len(opts.Extensions)),
		maxDepth: opts.MaxDepth,
		result: &models.ScanResult{
			ScanID:      opts.ScanID,
			LibraryID:   opts.Library.ID,
			LibraryPath: opts.Library.RootPath,
			Status:      models.ScanStatusScanning,
			StartTime:   time.Now().UTC(),
		},
	}
	if r.maxDepth <= 0 {
		r.maxDepth = defaultMaxDepth
	}
	for _, ext := range opts.Extensions {
		r.exts[strings.ToLower(ext)] = true
	}

	root := opts.Library.RootPath
	exists, err := s.fs.PathExists(ctx, root)
	if err != nil || !exists {
		r.result.Status = models.ScanStatusError
		r.result.EndTime = timePtr(time.Now().UTC())
		if err == nil {
			err = fmt.Errorf("library path does not exist: %s", root)
		}
		r.addError(models.ErrFileAccess, err.Error(), root)
		return r.result, err
	}

	log.Printf("Scan: starting %s for library %q (%s)", opts.ScanID, opts.Library.Name, root)

	// Pass 1: count. Errors here are not fatal; totals just stay low.
	files, dirs := r.count(ctx, root, 0)
	r.progress.FilesTotal = files
	r.progress.FoldersTotal = dirs
	r.result.TotalFiles = files
	r.result.TotalDirs = dirs

	// Pass 2: process.
	r.walk(ctx, root, 0)

	now := time.Now().UTC()
	r.result.EndTime = &now
	if ctx.Err() != nil {
		r.result.Status = models.ScanStatusCancelled
		log.Printf("Scan: %s cancelled after %d/%d files", opts.ScanID, r.progress.FilesProcessed, files)
	} else {
		r.result.Status = models.ScanStatusCompleted
		log.Printf("Scan: %s completed, %d files, %d dirs, %d errors",
			opts.ScanID, len(r.result.Files), len(r.result.Directories), len(r.result.Errors))
	}
	r.emit(true)
	return r.result, nil
}

// count walks the tree totalling matching files and directories.
func (r *run) count(ctx context.Context, dir string, depth int) (files, dirs int) {
	if ctx.Err() != nil || depth > r.maxDepth {
		return 0, 0
	}
	entries, err := r.fs.ListDirectory(ctx, dir)
	if err != nil {
		return 0, 0
	}
	for _, e := range entries {
		if skipEntry(e) {
			continue
		}
		if e.IsDir {
			dirs++
			f, d := r.count(ctx, e.Path, depth+1)
			files += f
			dirs += d
		} else if r.accepts(e.Name) {
			files++
		}
	}
	return files, dirs
}

// walk is the processing pass. Per-entry failures are recorded and the
// walk continues; only cancellation stops it.
func (r *run) walk(ctx context.Context, dir string, depth int) {
	if ctx.Err() != nil || depth > r.maxDepth {
		return
	}
	entries, err := r.fs.ListDirectory(ctx, dir)
	if err != nil {
		r.addError(models.ErrFileAccess, err.Error(), dir)
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		if skipEntry(e) {
			continue
		}
		if e.IsDir {
			r.processDirectory(ctx, e)
			r.walk(ctx, e.Path, depth+1)
			continue
		}
		if !r.accepts(e.Name) {
			continue
		}
		r.processFile(ctx, e)
	}
}

var seasonDirPattern = regexp.MustCompile(`(?i)^season\s*\d+$`)

func (r *run) processDirectory(ctx context.Context, e fsops.Entry) {
	dirType := models.MediaTypeUnknown
	if seasonDirPattern.MatchString(e.Name) {
		dirType = models.MediaTypeSeason
	}
	r.result.Directories = append(r.result.Directories, models.ScannedDirectory{
		ID:           uuid.New(),
		LibraryID:    r.opts.Library.ID,
		LibraryPath:  r.opts.Library.RootPath,
		ScanID:       r.opts.ScanID,
		Path:         e.Path,
		Name:         e.Name,
		MediaType:    dirType,
		Metadata:     models.FileMetadata{ModifiedTime: e.ModifiedTime},
		DiscoveredAt: time.Now().UTC(),
	})
	r.progress.FoldersProcessed++
	r.progress.CurrentPath = e.Path
	r.emit(false)
}

func (r *run) processFile(ctx context.Context, e fsops.Entry) {
	md := models.FileMetadata{
		Size:         e.Size,
		ModifiedTime: e.ModifiedTime,
	}
	if stat, err := r.fs.Stat(ctx, e.Path, r.opts.Checksum); err != nil {
		r.addError(models.ErrMetadataExtraction, err.Error(), e.Path)
	} else {
		md.Size = stat.Size
		md.ModifiedTime = stat.ModifiedTime
		md.CreatedTime = stat.CreatedTime
		md.Checksum = stat.Checksum
	}

	parsed := ParseFilename(e.Name)
	mediaType := parsed.Type
	if mediaType == models.MediaTypeUnknown {
		switch r.opts.Library.MediaType {
		case models.MediaTypeMovies:
			mediaType = models.MediaTypeMovie
		case models.MediaTypeSeries:
			mediaType = models.MediaTypeEpisode
		}
	}

	r.result.Files = append(r.result.Files, models.ScannedFile{
		ID:           uuid.New(),
		LibraryID:    r.opts.Library.ID,
		LibraryPath:  r.opts.Library.RootPath,
		ScanID:       r.opts.ScanID,
		Path:         e.Path,
		Name:         e.Name,
		Extension:    strings.ToLower(filepath.Ext(e.Name)),
		MediaType:    mediaType,
		Metadata:     md,
		ParsedInfo:   &parsed,
		DiscoveredAt: time.Now().UTC(),
	})
	r.progress.FilesProcessed++
	r.progress.CurrentPath = e.Path
	r.emit(false)
}

func (r *run) accepts(name string) bool {
	if len(r.exts) == 0 {
		return true
	}
	return r.exts[strings.ToLower(filepath.Ext(name))]
}

func (r *run) addError(kind models.ErrorKind, msg, path string) {
	r.result.Errors = append(r.result.Errors, models.ScanError{
		Type:      kind,
		Message:   msg,
		Path:      path,
		Timestamp: time.Now().UTC(),
	})
}

// emit pushes a progress update, at most once per progressInterval
// unless final is set.
func (r *run) emit(final bool) {
	if r.opts.Progress == nil {
		return
	}
	now := time.Now()
	if !final && now.Sub(r.lastEmit) < progressInterval {
		return
	}
	r.lastEmit = now
	p := r.progress
	p.Percentage = percentage(p.FilesProcessed+p.FoldersProcessed, p.FilesTotal+p.FoldersTotal)
	r.opts.Progress(p)
}

func percentage(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(done) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// skipEntry filters hidden files and vendor metadata directories.
func skipEntry(e fsops.Entry) bool {
	if strings.HasPrefix(e.Name, ".") {
		return true
	}
	return e.IsDir && excludedDirNames[e.Name]
}

func timePtr(t time.Time) *time.Time { return &t }
