package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediashelf/mediashelf/internal/models"
)

var (
	ErrTooManyScans    = errors.New("maximum concurrent scans reached")
	ErrScanNotFound    = errors.New("scan not found")
	ErrLibraryScanning = errors.New("library already has an active scan")
)

// ManagerOptions bounds the in-memory scan registry.
type ManagerOptions struct {
	MaxConcurrent int
	// Timeout marks an active scan as lost when no progress arrives for
	// this long.
	Timeout time.Duration
	// Retention is how long finished scan state stays queryable.
	Retention time.Duration
}

// ScanState is the queryable view of one scan, active or finished.
type ScanState struct {
	ScanID    uuid.UUID           `json:"scan_id"`
	LibraryID uuid.UUID           `json:"library_id"`
	Status    models.ScanStatus   `json:"status"`
	Progress  models.ScanProgress `json:"progress"`
	Errors    []models.ScanError  `json:"errors,omitempty"`
	StartedAt time.Time           `json:"started_at"`
	EndedAt   *time.Time          `json:"ended_at,omitempty"`
}

type activeScan struct {
	libraryID  uuid.UUID
	cancel     context.CancelFunc
	progress   models.ScanProgress
	status     models.ScanStatus
	startedAt  time.Time
	lastUpdate time.Time
}

// Manager tracks running scans so the control surface can report
// progress, cancel runs, and fetch finished results. It enforces the
// concurrent-scan limit and the one-scan-per-library rule.
type Manager struct {
	scanner *Scanner
	opts    ManagerOptions

	mu      sync.Mutex
	active  map[uuid.UUID]*activeScan
	results map[uuid.UUID]*models.ScanResult
}

func NewManager(scanner *Scanner, opts ManagerOptions) *Manager {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.Retention <= 0 {
		opts.Retention = 24 * time.Hour
	}
	return &Manager{
		scanner: scanner,
		opts:    opts,
		active:  make(map[uuid.UUID]*activeScan),
		results: make(map[uuid.UUID]*models.ScanResult),
	}
}

// Run executes a scan under the manager's supervision. It blocks until
// the scan finishes and is intended to be called from a job handler.
// onProgress, when non-nil, receives the same throttled updates the
// registry records.
func (m *Manager) Run(ctx context.Context, opts Options, onProgress func(uuid.UUID, models.ScanProgress)) (*models.ScanResult, error) {
	if opts.ScanID == uuid.Nil {
		opts.ScanID = uuid.New()
	}
	scanID := opts.ScanID

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	if len(m.active) >= m.opts.MaxConcurrent {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w (limit %d)", ErrTooManyScans, m.opts.MaxConcurrent)
	}
	for _, a := range m.active {
		if a.libraryID == opts.Library.ID {
			m.mu.Unlock()
			return nil, ErrLibraryScanning
		}
	}
	now := time.Now().UTC()
	m.active[scanID] = &activeScan{
		libraryID:  opts.Library.ID,
		cancel:     cancel,
		status:     models.ScanStatusScanning,
		startedAt:  now,
		lastUpdate: now,
	}
	m.mu.Unlock()

	caller := opts.Progress
	opts.Progress = func(p models.ScanProgress) {
		m.mu.Lock()
		if a, ok := m.active[scanID]; ok {
			a.progress = p
			a.lastUpdate = time.Now().UTC()
		}
		m.mu.Unlock()
		if onProgress != nil {
			onProgress(scanID, p)
		}
		if caller != nil {
			caller(p)
		}
	}

	result, err := m.scanner.Scan(scanCtx, opts)

	m.mu.Lock()
	delete(m.active, scanID)
	if result != nil {
		m.results[scanID] = result
	}
	m.mu.Unlock()
	return result, err
}

// Cancel requests cancellation of an active scan. Cancelling a scan
// that already finished is not an error; the stored result is kept.
func (m *Manager) Cancel(scanID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.active[scanID]; ok {
		a.status = models.ScanStatusCancelled
		a.cancel()
		log.Printf("Scan: cancellation requested for %s", scanID)
		return nil
	}
	if _, ok := m.results[scanID]; ok {
		return nil
	}
	return ErrScanNotFound
}

// Status reports the current state of an active or finished scan.
func (m *Manager) Status(scanID uuid.UUID) (*ScanState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.active[scanID]; ok {
		return &ScanState{
			ScanID:    scanID,
			LibraryID: a.libraryID,
			Status:    a.status,
			Progress:  a.progress,
			StartedAt: a.startedAt,
		}, nil
	}
	if r, ok := m.results[scanID]; ok {
		return &ScanState{
			ScanID:    scanID,
			LibraryID: r.LibraryID,
			Status:    r.Status,
			Progress:  finishedProgress(r),
			Errors:    r.Errors,
			StartedAt: r.StartTime,
			EndedAt:   r.EndTime,
		}, nil
	}
	return nil, ErrScanNotFound
}

// Active lists all scans currently running.
func (m *Manager) Active() []ScanState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ScanState, 0, len(m.active))
	for id, a := range m.active {
		out = append(out, ScanState{
			ScanID:    id,
			LibraryID: a.libraryID,
			Status:    a.status,
			Progress:  a.progress,
			StartedAt: a.startedAt,
		})
	}
	return out
}

// Result returns the stored outcome of a finished scan.
func (m *Manager) Result(scanID uuid.UUID) (*models.ScanResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.results[scanID]; ok {
		return r, nil
	}
	if _, ok := m.active[scanID]; ok {
		return nil, fmt.Errorf("scan %s still running", scanID)
	}
	return nil, ErrScanNotFound
}

// ReapStale cancels active scans that have reported no progress within
// the timeout. Returns the number of scans reaped.
func (m *Manager) ReapStale() int {
	cutoff := time.Now().UTC().Add(-m.opts.Timeout)
	m.mu.Lock()
	var stale []uuid.UUID
	for id, a := range m.active {
		if a.lastUpdate.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		a := m.active[id]
		a.status = models.ScanStatusError
		a.cancel()
		log.Printf("Scan: reaping stale scan %s (no progress since %s)", id, a.lastUpdate.Format(time.RFC3339))
	}
	m.mu.Unlock()
	return len(stale)
}

// CleanupFinished drops finished scan state older than the retention
// window and returns how many entries were removed.
func (m *Manager) CleanupFinished() int {
	cutoff := time.Now().UTC().Add(-m.opts.Retention)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, r := range m.results {
		if r.EndTime != nil && r.EndTime.Before(cutoff) {
			delete(m.results, id)
			removed++
		}
	}
	return removed
}

func finishedProgress(r *models.ScanResult) models.ScanProgress {
	p := models.ScanProgress{
		FilesProcessed:   len(r.Files),
		FilesTotal:       r.TotalFiles,
		FoldersProcessed: len(r.Directories),
		FoldersTotal:     r.TotalDirs,
	}
	p.Percentage = percentage(p.FilesProcessed+p.FoldersProcessed, p.FilesTotal+p.FoldersTotal)
	return p
}
