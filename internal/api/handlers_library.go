package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/mediashelf/mediashelf/internal/httputil"
	"github.com/mediashelf/mediashelf/internal/jobs"
	"github.com/mediashelf/mediashelf/internal/models"
)

func (s *Server) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	libs, err := s.libRepo.List()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, libs)
}

func (s *Server) handleCreateLibrary(w http.ResponseWriter, r *http.Request) {
	var lib models.LibraryPath
	if err := httputil.ReadJSON(r, &lib); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if lib.Name == "" || lib.RootPath == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "name and root_path are required")
		return
	}
	switch lib.MediaType {
	case models.MediaTypeMovies, models.MediaTypeSeries, models.MediaTypeMixed:
	case "":
		lib.MediaType = models.MediaTypeMixed
	default:
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "media_type must be movies, series or mixed")
		return
	}

	exists, err := s.fs.PathExists(r.Context(), lib.RootPath)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "fs_error", err.Error())
		return
	}
	if !exists {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "root_path does not exist")
		return
	}

	lib.IsActive = true
	if err := s.libRepo.Create(&lib); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	log.Printf("Library: created %q at %s", lib.Name, lib.RootPath)
	httputil.WriteJSON(w, http.StatusCreated, lib)
}

func (s *Server) handleGetLibrary(w http.ResponseWriter, r *http.Request) {
	lib, ok := s.libraryFromURL(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lib)
}

func (s *Server) handleUpdateLibrary(w http.ResponseWriter, r *http.Request) {
	lib, ok := s.libraryFromURL(w, r)
	if !ok {
		return
	}
	updated := *lib
	if err := httputil.ReadJSON(r, &updated); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	updated.ID = lib.ID
	if err := s.libRepo.Update(&updated); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteLibrary(w http.ResponseWriter, r *http.Request) {
	lib, ok := s.libraryFromURL(w, r)
	if !ok {
		return
	}
	if err := s.libRepo.Delete(lib.ID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	log.Printf("Library: deleted %q", lib.Name)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"deleted": lib.ID.String()})
}

// handleStartScan queues a scan job for the library. The scan itself
// runs in the worker; progress streams over the websocket.
func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	lib, ok := s.libraryFromURL(w, r)
	if !ok {
		return
	}
	uniqueID := "scan:" + lib.ID.String()
	taskID, err := s.jobQueue.EnqueueUnique(jobs.TaskScanLibrary, jobs.ScanPayload{LibraryID: lib.ID.String()}, uniqueID,
		asynq.Timeout(2*time.Hour), asynq.Retention(1*time.Hour))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "queue_error", err.Error())
		return
	}
	log.Printf("Scan: queued for library %q", lib.Name)
	httputil.WriteAccepted(w, map[string]string{
		"task_id":    taskID,
		"library_id": lib.ID.String(),
	})
}

// handleStartMatch queues an auto-match pass over the library's
// unmatched files.
func (s *Server) handleStartMatch(w http.ResponseWriter, r *http.Request) {
	lib, ok := s.libraryFromURL(w, r)
	if !ok {
		return
	}
	var p jobs.MatchPayload
	if r.ContentLength > 0 {
		if err := httputil.ReadJSON(r, &p); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
	}
	p.LibraryID = lib.ID.String()
	uniqueID := "match:" + lib.ID.String()
	taskID, err := s.jobQueue.EnqueueUnique(jobs.TaskMatchFiles, p, uniqueID,
		asynq.Timeout(30*time.Minute), asynq.Retention(1*time.Hour))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "queue_error", err.Error())
		return
	}
	httputil.WriteAccepted(w, map[string]string{
		"task_id":    taskID,
		"library_id": lib.ID.String(),
	})
}

func (s *Server) handleListLibraryFiles(w http.ResponseWriter, r *http.Request) {
	lib, ok := s.libraryFromURL(w, r)
	if !ok {
		return
	}
	var files []models.ScannedFile
	var err error
	switch status := r.URL.Query().Get("match_status"); status {
	case "":
		files, err = s.fileRepo.ListByLibrary(lib.ID)
	case string(models.MatchStatusUnmatched):
		files, err = s.fileRepo.ListUnmatched(lib.ID)
	default:
		files, err = s.fileRepo.ListByMatchStatus(models.MatchStatus(status))
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, files)
}

func (s *Server) handleListLibraryScans(w http.ResponseWriter, r *http.Request) {
	lib, ok := s.libraryFromURL(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	scans, err := s.scanRepo.ListByLibrary(lib.ID, limit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, scans)
}

func (s *Server) libraryFromURL(w http.ResponseWriter, r *http.Request) (*models.LibraryPath, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid library id")
		return nil, false
	}
	lib, err := s.libRepo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", err.Error())
		return nil, false
	}
	return lib, true
}
