package api

import (
	"net/http"
	"strconv"

	"github.com/mediashelf/mediashelf/internal/httputil"
)

type renameRequest struct {
	Path    string `json:"path"`
	NewName string `json:"new_name"`
}

func (s *Server) handleFSRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Path == "" || req.NewName == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "path and new_name are required")
		return
	}
	newPath, err := s.fs.Rename(r.Context(), req.Path, req.NewName)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "fs_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"path": newPath})
}

type moveRequest struct {
	Source        string `json:"source"`
	Destination   string `json:"destination"`
	MergeContents bool   `json:"merge_contents"`
}

func (s *Server) handleFSMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Source == "" || req.Destination == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "source and destination are required")
		return
	}
	if err := s.fs.Move(r.Context(), req.Source, req.Destination, req.MergeContents); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "fs_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"path": req.Destination})
}

func (s *Server) handleFSMkdir(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Path == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "path is required")
		return
	}
	if err := s.fs.CreateFolder(r.Context(), req.Path); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "fs_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"path": req.Path})
}

func (s *Server) handleFSExists(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "path is required")
		return
	}
	exists, err := s.fs.PathExists(r.Context(), p)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "fs_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"path": p, "exists": exists})
}

func (s *Server) handleFSMetadata(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "path is required")
		return
	}
	checksum, _ := strconv.ParseBool(r.URL.Query().Get("checksum"))
	meta, err := s.fs.Stat(r.Context(), p, checksum)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "fs_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, meta)
}
