package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mediashelf/mediashelf/internal/httputil"
	"github.com/mediashelf/mediashelf/internal/metadata"
	"github.com/mediashelf/mediashelf/internal/models"
)

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	file, ok := s.fileFromURL(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, file)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	file, ok := s.fileFromURL(w, r)
	if !ok {
		return
	}
	if err := s.fileRepo.Delete(file.ID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"deleted": file.ID.String()})
}

func (s *Server) handleGetAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid file id")
		return
	}
	a, err := s.fileRepo.GetAssignment(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

type confirmRequest struct {
	MediaID string              `json:"media_id,omitempty"`
	Record  *models.MediaRecord `json:"record,omitempty"`
	Season  *int                `json:"season,omitempty"`
	Episode *int                `json:"episode,omitempty"`
}

// handleConfirmMatch applies a user-chosen record to a file. The record
// is either an existing catalogue entry (media_id) or an inline lookup
// result that gets stored first.
func (s *Server) handleConfirmMatch(w http.ResponseWriter, r *http.Request) {
	file, ok := s.fileFromURL(w, r)
	if !ok {
		return
	}
	var req confirmRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var record *models.MediaRecord
	switch {
	case req.MediaID != "":
		mediaID, err := uuid.Parse(req.MediaID)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid media id")
			return
		}
		record, err = s.mediaRepo.GetByID(mediaID)
		if err != nil {
			httputil.WriteError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
	case req.Record != nil:
		record = req.Record
		if err := s.mediaRepo.FindOrCreate(record); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
			return
		}
	default:
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "media_id or record is required")
		return
	}

	assignment := s.matcher.ConfirmManual(*file, *record)
	if req.Season != nil {
		assignment.SeasonNumber = req.Season
	}
	if req.Episode != nil {
		assignment.EpisodeNumber = req.Episode
	}

	mediaID, err := uuid.Parse(record.ID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", "bad stored media id")
		return
	}
	if err := s.fileRepo.UpdateMatch(file.ID, assignment.MatchStatus, assignment.Confidence,
		&mediaID, assignment.SeasonNumber, assignment.EpisodeNumber); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	log.Printf("Auto-match: manual confirm %q -> %q", file.Name, record.Title)
	httputil.WriteJSON(w, http.StatusOK, assignment)
}

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	var records []models.MediaRecord
	var err error
	if t := r.URL.Query().Get("type"); t != "" {
		records, err = s.mediaRepo.ListByType(models.MediaType(t))
	} else {
		records, err = s.mediaRepo.List()
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

// handleSearchLookup proxies a title search to the lookup service so a
// user can pick a record for manual confirmation.
func (s *Server) handleSearchLookup(w http.ResponseWriter, r *http.Request) {
	if s.lookup == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "lookup_disabled", "no lookup service configured")
		return
	}
	title := r.URL.Query().Get("title")
	if title == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "title is required")
		return
	}
	var year *int
	if y := r.URL.Query().Get("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid year")
			return
		}
		year = &n
	}
	mediaType := models.MediaTypeMovie
	if t := r.URL.Query().Get("type"); t != "" {
		mediaType = models.MediaType(t)
	}
	records, err := s.lookup.Search(r.Context(), title, year, mediaType)
	if errors.Is(err, metadata.ErrNoResults) {
		httputil.WriteJSON(w, http.StatusOK, []models.MediaRecord{})
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusBadGateway, "lookup_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

// handleBrowse lists a directory through the filesystem gateway, used
// by the library pickers.
func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("path")
	if dir == "" {
		dir = "/"
	}
	entries, err := s.fs.ListDirectory(r.Context(), dir)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "fs_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"path":    dir,
		"entries": entries,
	})
}

func (s *Server) fileFromURL(w http.ResponseWriter, r *http.Request) (*models.ScannedFile, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid file id")
		return nil, false
	}
	file, err := s.fileRepo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", err.Error())
		return nil, false
	}
	return file, true
}
