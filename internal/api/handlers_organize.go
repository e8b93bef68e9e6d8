package api

import (
	"log"
	"net/http"
	"path"

	"github.com/google/uuid"

	"github.com/mediashelf/mediashelf/internal/httputil"
	"github.com/mediashelf/mediashelf/internal/models"
	"github.com/mediashelf/mediashelf/internal/organizer"
)

type organizeRequest struct {
	FileIDs         []string            `json:"file_ids"`
	Operation       organizer.Operation `json:"operation"`
	ContinueOnError bool                `json:"continue_on_error"`
	CreateFolders   bool                `json:"create_folders"`
}

func (s *Server) handleOrganizePreview(w http.ResponseWriter, r *http.Request) {
	s.runOrganize(w, r, true)
}

func (s *Server) handleOrganizeExecute(w http.ResponseWriter, r *http.Request) {
	s.runOrganize(w, r, false)
}

// runOrganize builds a batch from stored assignments and executes it.
// All files in a batch must belong to the same library so they share a
// destination root.
func (s *Server) runOrganize(w http.ResponseWriter, r *http.Request, dryRun bool) {
	var req organizeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if len(req.FileIDs) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "file_ids is required")
		return
	}
	switch req.Operation {
	case organizer.OpRename, organizer.OpMove, organizer.OpAssign, organizer.OpComplete:
	case "":
		req.Operation = organizer.OpAssign
	default:
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "unknown operation")
		return
	}

	var libraryID uuid.UUID
	assignments := make([]models.FileAssignment, 0, len(req.FileIDs))
	for _, raw := range req.FileIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid file id "+raw)
			return
		}
		a, err := s.fileRepo.GetAssignment(id)
		if err != nil {
			httputil.WriteError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		if a.MatchStatus != models.MatchStatusMatched {
			httputil.WriteError(w, http.StatusConflict, "not_matched", "file "+raw+" has no confirmed match")
			return
		}
		if libraryID == uuid.Nil {
			libraryID = a.File.LibraryID
		} else if a.File.LibraryID != libraryID {
			httputil.WriteError(w, http.StatusBadRequest, "bad_request", "files span multiple libraries")
			return
		}
		assignments = append(assignments, *a)
	}

	library, err := s.libRepo.GetByID(libraryID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	for i := range assignments {
		assignments[i].File.LibraryPath = library.RootPath
	}

	batch := organizer.BatchOperation{
		Files:           assignments,
		Operation:       req.Operation,
		LibraryRoot:     library.RootPath,
		DryRun:          dryRun,
		ContinueOnError: req.ContinueOnError,
		CreateFolders:   req.CreateFolders,
	}
	batch = s.organizer.ExecuteBatch(r.Context(), batch)

	if !dryRun {
		s.recordBatchResults(batch)
	}
	httputil.WriteJSON(w, http.StatusOK, batch)
}

// recordBatchResults writes successful renames/moves back to the
// inventory so stored paths track the filesystem.
func (s *Server) recordBatchResults(batch organizer.BatchOperation) {
	status := models.AssignmentAssigned
	switch batch.Operation {
	case organizer.OpRename:
		status = models.AssignmentRenamed
	case organizer.OpMove:
		status = models.AssignmentMoved
	case organizer.OpComplete:
		status = models.AssignmentCompleted
	}
	for i, res := range batch.Results {
		if !res.Success || res.Skipped {
			continue
		}
		fileID := batch.Files[i].File.ID
		newPath := res.NewPath
		if newPath == "" {
			newPath = res.Path
		}
		if err := s.fileRepo.UpdateLocation(fileID, newPath, path.Base(newPath), status); err != nil {
			log.Printf("Organize: record new location for %s: %v", res.Path, err)
		}
	}
}
