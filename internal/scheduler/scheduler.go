package scheduler

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/mediashelf/mediashelf/internal/inventory"
	"github.com/mediashelf/mediashelf/internal/scanner"
)

// OnScanDue is called when a library is due for a scheduled scan.
type OnScanDue func(libraryID uuid.UUID)

// Scheduler runs two cron entries: a per-minute check for libraries due
// a scan, and a janitor that reaps stale scan state and prunes old scan
// records.
type Scheduler struct {
	libRepo   *inventory.LibraryRepository
	scanRepo  *inventory.ScanRepository
	manager   *scanner.Manager
	callback  OnScanDue
	retention time.Duration
	cron      *cron.Cron
}

// New creates the scheduler. Retention bounds how long finished scan
// records are kept.
func New(libRepo *inventory.LibraryRepository, scanRepo *inventory.ScanRepository,
	mgr *scanner.Manager, retention time.Duration, cb OnScanDue) *Scheduler {
	return &Scheduler{
		libRepo:   libRepo,
		scanRepo:  scanRepo,
		manager:   mgr,
		callback:  cb,
		retention: retention,
		cron:      cron.New(),
	}
}

func (s *Scheduler) Start() {
	s.cron.AddFunc("* * * * *", s.checkDue)
	s.cron.AddFunc("*/5 * * * *", s.janitor)
	s.cron.Start()
	log.Println("Scheduler: started (due check every 1m, janitor every 5m)")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler: stopped")
}

// checkDue triggers a scan for every active library whose interval has
// elapsed since its last scan. A library with interval 0 is never
// scheduled.
func (s *Scheduler) checkDue() {
	libs, err := s.libRepo.ListActive()
	if err != nil {
		log.Printf("Scheduler: error listing libraries: %v", err)
		return
	}

	now := time.Now()
	for _, lib := range libs {
		if lib.ScanInterval <= 0 {
			continue
		}
		interval := time.Duration(lib.ScanInterval) * time.Minute
		if lib.LastScanned != nil && now.Sub(*lib.LastScanned) < interval {
			continue
		}
		log.Printf("Scheduler: library %q is due for scan", lib.Name)
		s.callback(lib.ID)
	}
}

// janitor cancels scans that stopped reporting progress, drops finished
// in-memory scan state past its retention, and prunes old scan records.
func (s *Scheduler) janitor() {
	if reaped := s.manager.ReapStale(); reaped > 0 {
		log.Printf("Scheduler: reaped %d stale scans", reaped)
	}
	if cleaned := s.manager.CleanupFinished(); cleaned > 0 {
		log.Printf("Scheduler: dropped %d finished scan results", cleaned)
	}
	cutoff := time.Now().Add(-s.retention)
	if removed, err := s.scanRepo.DeleteOlderThan(cutoff); err != nil {
		log.Printf("Scheduler: error pruning scan records: %v", err)
	} else if removed > 0 {
		log.Printf("Scheduler: pruned %d scan records older than %s", removed, s.retention)
	}
}
