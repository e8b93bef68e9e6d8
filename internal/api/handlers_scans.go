package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mediashelf/mediashelf/internal/httputil"
	"github.com/mediashelf/mediashelf/internal/scanner"
)

func (s *Server) handleActiveScans(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.manager.Active())
}

// handleScanCleanup runs the janitor on demand: stale scans are
// cancelled and finished in-memory results past retention are dropped.
func (s *Server) handleScanCleanup(w http.ResponseWriter, r *http.Request) {
	reaped := s.manager.ReapStale()
	cleaned := s.manager.CleanupFinished()
	httputil.WriteJSON(w, http.StatusOK, map[string]int{
		"reaped":  reaped,
		"cleaned": cleaned,
	})
}

// handleScanStatus serves live state for a running scan and falls back
// to the stored record once the scan has been reaped from memory.
func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	scanID, ok := scanIDFromURL(w, r)
	if !ok {
		return
	}
	state, err := s.manager.Status(scanID)
	if err == nil {
		httputil.WriteJSON(w, http.StatusOK, state)
		return
	}
	if !errors.Is(err, scanner.ErrScanNotFound) {
		httputil.WriteError(w, http.StatusInternalServerError, "scan_error", err.Error())
		return
	}
	rec, err := s.scanRepo.GetByID(scanID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	scanID, ok := scanIDFromURL(w, r)
	if !ok {
		return
	}
	if err := s.manager.Cancel(scanID); err != nil {
		if errors.Is(err, scanner.ErrScanNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "not_found", err.Error())
		} else {
			httputil.WriteError(w, http.StatusInternalServerError, "scan_error", err.Error())
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"cancelled": scanID.String()})
}

func (s *Server) handleScanResult(w http.ResponseWriter, r *http.Request) {
	scanID, ok := scanIDFromURL(w, r)
	if !ok {
		return
	}
	result, err := s.manager.Result(scanID)
	if err == nil {
		httputil.WriteJSON(w, http.StatusOK, result)
		return
	}
	if !errors.Is(err, scanner.ErrScanNotFound) {
		httputil.WriteError(w, http.StatusConflict, "scan_running", err.Error())
		return
	}
	rec, err := s.scanRepo.GetByID(scanID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func scanIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid scan id")
		return uuid.Nil, false
	}
	return id, true
}
