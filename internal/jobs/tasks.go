package jobs

import (
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/inventory"
	"github.com/mediashelf/mediashelf/internal/matcher"
	"github.com/mediashelf/mediashelf/internal/scanner"
)

// ──────── Payloads ────────

type ScanPayload struct {
	LibraryID string `json:"library_id"`
}

// MatchPayload without FileIDs matches every unmatched file in the
// library; with FileIDs it re-runs matching for just those files.
type MatchPayload struct {
	LibraryID string   `json:"library_id"`
	FileIDs   []string `json:"file_ids,omitempty"`
}

type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// ──────── Register all handlers ────────

func RegisterHandlers(q *Queue, cfg *config.Config, mgr *scanner.Manager, mt *matcher.Matcher,
	libRepo *inventory.LibraryRepository, fileRepo *inventory.FileRepository,
	dirRepo *inventory.DirectoryRepository, scanRepo *inventory.ScanRepository,
	mediaRepo *inventory.MediaRepository, settingsRepo *inventory.SettingsRepository,
	notifier EventNotifier) {

	q.RegisterHandler(TaskScanLibrary, NewScanHandler(cfg, mgr, libRepo, fileRepo, dirRepo, scanRepo, settingsRepo, q, notifier))
	q.RegisterHandler(TaskMatchFiles, NewMatchHandler(mt, libRepo, fileRepo, mediaRepo, notifier))
}
