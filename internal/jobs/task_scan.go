package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/inventory"
	"github.com/mediashelf/mediashelf/internal/models"
	"github.com/mediashelf/mediashelf/internal/reconcile"
	"github.com/mediashelf/mediashelf/internal/scanner"
)

type ScanHandler struct {
	cfg          *config.Config
	manager      *scanner.Manager
	libRepo      *inventory.LibraryRepository
	fileRepo     *inventory.FileRepository
	dirRepo      *inventory.DirectoryRepository
	scanRepo     *inventory.ScanRepository
	settingsRepo *inventory.SettingsRepository
	queue        *Queue
	notifier     EventNotifier
}

func NewScanHandler(cfg *config.Config, mgr *scanner.Manager, libRepo *inventory.LibraryRepository,
	fileRepo *inventory.FileRepository, dirRepo *inventory.DirectoryRepository,
	scanRepo *inventory.ScanRepository, settingsRepo *inventory.SettingsRepository,
	queue *Queue, notifier EventNotifier) *ScanHandler {
	return &ScanHandler{
		cfg: cfg, manager: mgr, libRepo: libRepo, fileRepo: fileRepo, dirRepo: dirRepo,
		scanRepo: scanRepo, settingsRepo: settingsRepo, queue: queue, notifier: notifier,
	}
}

func (h *ScanHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ScanPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	libID, err := uuid.Parse(p.LibraryID)
	if err != nil {
		return fmt.Errorf("bad library id %q: %w", p.LibraryID, err)
	}
	library, err := h.libRepo.GetByID(libID)
	if err != nil {
		return fmt.Errorf("get library: %w", err)
	}

	scanID := uuid.New()
	if err := h.scanRepo.Create(scanID, libID); err != nil {
		return fmt.Errorf("record scan: %w", err)
	}

	log.Printf("Scan: library %q (%s)", library.Name, scanID)
	h.broadcast("scan:start", map[string]interface{}{
		"scan_id": scanID, "library_id": p.LibraryID, "name": library.Name,
	})

	if err := h.scanRepo.MarkScanning(scanID); err != nil {
		log.Printf("Scan: mark scanning: %v", err)
	}

	opts := scanner.Options{
		Library:    *library,
		ScanID:     scanID,
		MaxDepth:   h.cfg.MaxScanDepth,
		Extensions: h.cfg.VideoExtensions,
		Checksum:   h.cfg.ChecksumOnScan,
	}
	result, err := h.manager.Run(ctx, opts, func(id uuid.UUID, pr models.ScanProgress) {
		h.broadcast("scan:progress", map[string]interface{}{
			"scan_id":    id,
			"library_id": p.LibraryID,
			"progress":   pr,
		})
	})
	if err != nil {
		if result != nil {
			if ferr := h.scanRepo.Finish(result, 0); ferr != nil {
				log.Printf("Scan: record failure: %v", ferr)
			}
		}
		h.broadcast("scan:error", map[string]interface{}{
			"scan_id": scanID, "library_id": p.LibraryID, "error": err.Error(),
		})
		return fmt.Errorf("scan: %w", err)
	}

	report, err := h.reconcileAndStore(library, result)
	if err != nil {
		h.broadcast("scan:error", map[string]interface{}{
			"scan_id": scanID, "library_id": p.LibraryID, "error": err.Error(),
		})
		return err
	}

	if err := h.libRepo.TouchLastScanned(libID); err != nil {
		log.Printf("Scan: update last scanned: %v", err)
	}

	log.Printf("Scan: library %q done - %d files, %d new, %d duplicates, %d errors",
		library.Name, result.TotalFiles, result.NewFiles, len(report.Duplicates), len(result.Errors))
	h.broadcast("scan:complete", map[string]interface{}{
		"scan_id":    scanID,
		"library_id": p.LibraryID,
		"result":     result,
	})

	if result.Status == models.ScanStatusCompleted {
		h.enqueueMatch(p.LibraryID)
	}
	return nil
}

// reconcileAndStore diffs the scan against the stored inventory,
// persists what the walk found, and marks the scan finished.
func (h *ScanHandler) reconcileAndStore(library *models.LibraryPath, result *models.ScanResult) (*models.DuplicateReport, error) {
	existing, err := h.fileRepo.ListByLibrary(library.ID)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	for i := range existing {
		existing[i].LibraryPath = library.RootPath
	}
	existingDirs, err := h.dirRepo.ListByLibrary(library.ID)
	if err != nil {
		return nil, fmt.Errorf("load inventory dirs: %w", err)
	}
	for i := range existingDirs {
		existingDirs[i].LibraryPath = library.RootPath
	}

	fresh, dupes := reconcile.Files(result.Files, existing)
	_, dirDupes := reconcile.Directories(result.Directories, existingDirs)
	report := reconcile.Report(result.TotalFiles, len(fresh), append(dupes, dirDupes...))
	result.NewFiles = len(fresh)
	result.Duplicates = report

	// Every scanned row is upserted so its scan_id advances; the
	// duplicate report was built from the pre-upsert state above.
	if err := h.fileRepo.UpsertBatch(result.Files); err != nil {
		return nil, fmt.Errorf("store files: %w", err)
	}
	if err := h.dirRepo.UpsertBatch(result.Directories); err != nil {
		return nil, fmt.Errorf("store directories: %w", err)
	}

	// A cancelled walk saw only part of the tree, so absence proves nothing.
	if result.Status == models.ScanStatusCompleted {
		if removed, err := h.fileRepo.DeleteMissing(library.ID, result.ScanID); err != nil {
			log.Printf("Scan: prune missing files: %v", err)
		} else if removed > 0 {
			log.Printf("Scan: pruned %d files no longer on disk", removed)
		}
	}

	if err := h.scanRepo.Finish(result, len(report.Duplicates)); err != nil {
		return nil, fmt.Errorf("finish scan: %w", err)
	}
	return report, nil
}

func (h *ScanHandler) enqueueMatch(libraryID string) {
	if h.queue == nil {
		return
	}
	if val, ok, err := h.settingsRepo.Get("auto_match_enabled"); err == nil && ok && val == "false" {
		log.Printf("Scan: skipping auto-match for library %s (disabled)", libraryID)
		return
	}
	uniqueID := "match:" + libraryID
	if _, err := h.queue.EnqueueUnique(TaskMatchFiles, MatchPayload{LibraryID: libraryID}, uniqueID,
		asynq.Timeout(30*time.Minute), asynq.Retention(1*time.Hour)); err != nil {
		log.Printf("Scan: failed to enqueue match job for library %s: %v", libraryID, err)
	} else {
		log.Printf("Scan: enqueued auto-match for library %s", libraryID)
	}
}

func (h *ScanHandler) broadcast(event string, data interface{}) {
	if h.notifier != nil {
		h.notifier.Broadcast(event, data)
	}
}
