package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/mediashelf/mediashelf/internal/inventory"
	"github.com/mediashelf/mediashelf/internal/matcher"
	"github.com/mediashelf/mediashelf/internal/models"
)

type MatchHandler struct {
	matcher   *matcher.Matcher
	libRepo   *inventory.LibraryRepository
	fileRepo  *inventory.FileRepository
	mediaRepo *inventory.MediaRepository
	notifier  EventNotifier
}

func NewMatchHandler(mt *matcher.Matcher, libRepo *inventory.LibraryRepository,
	fileRepo *inventory.FileRepository, mediaRepo *inventory.MediaRepository,
	notifier EventNotifier) *MatchHandler {
	return &MatchHandler{matcher: mt, libRepo: libRepo, fileRepo: fileRepo, mediaRepo: mediaRepo, notifier: notifier}
}

func (h *MatchHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p MatchPayload
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

	files, err := h.loadFiles(libID, p.FileIDs)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Printf("Auto-match: library %q has nothing to match", library.Name)
		return nil
	}
	for i := range files {
		files[i].LibraryPath = library.RootPath
	}

	local, err := h.mediaRepo.List()
	if err != nil {
		return fmt.Errorf("load media records: %w", err)
	}

	log.Printf("Auto-match: library %q - %d files against %d known records", library.Name, len(files), len(local))
	assignments := h.matcher.MatchBatch(ctx, files, local)

	var matched, review, missed int
	for i := range assignments {
		a := &assignments[i]
		switch a.MatchStatus {
		case models.MatchStatusMatched:
			matched++
		case models.MatchStatusManualReview:
			review++
		default:
			missed++
		}
		if err := h.persist(a); err != nil {
			log.Printf("Auto-match: persist %s: %v", a.File.Path, err)
		}
	}

	log.Printf("Auto-match: library %q done - %d matched, %d for review, %d unmatched",
		library.Name, matched, review, missed)
	if h.notifier != nil {
		h.notifier.Broadcast("match:complete", map[string]interface{}{
			"library_id": p.LibraryID,
			"matched":    matched,
			"review":     review,
			"unmatched":  missed,
		})
	}
	return nil
}

func (h *MatchHandler) loadFiles(libID uuid.UUID, fileIDs []string) ([]models.ScannedFile, error) {
	if len(fileIDs) == 0 {
		files, err := h.fileRepo.ListUnmatched(libID)
		if err != nil {
			return nil, fmt.Errorf("list unmatched: %w", err)
		}
		return files, nil
	}
	var files []models.ScannedFile
	for _, raw := range fileIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("bad file id %q: %w", raw, err)
		}
		f, err := h.fileRepo.GetByID(id)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, nil
}

// persist writes a single assignment back to the inventory, creating
// the media record first when the match came from the lookup service.
func (h *MatchHandler) persist(a *models.FileAssignment) error {
	var mediaID *uuid.UUID
	if a.MatchStatus == models.MatchStatusMatched && a.MediaData != nil {
		if a.MediaData.ID == "" {
			if err := h.mediaRepo.FindOrCreate(a.MediaData); err != nil {
				return fmt.Errorf("store media record: %w", err)
			}
		}
		id, err := uuid.Parse(a.MediaData.ID)
		if err != nil {
			return fmt.Errorf("bad media id %q: %w", a.MediaData.ID, err)
		}
		mediaID = &id
	}
	return h.fileRepo.UpdateMatch(a.File.ID, a.MatchStatus, a.Confidence, mediaID, a.SeasonNumber, a.EpisodeNumber)
}
