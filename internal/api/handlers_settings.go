package api

import (
	"log"
	"net/http"

	"github.com/mediashelf/mediashelf/internal/httputil"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settingsRepo.All()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings stores key/value overrides. Config reads them on
// the next startup; a few (auto_match_enabled) are consulted live.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := httputil.ReadJSON(r, &updates); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	for key, value := range updates {
		if err := s.settingsRepo.Set(key, value); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
			return
		}
	}
	log.Printf("Settings: updated %d keys", len(updates))
	settings, err := s.settingsRepo.All()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}
