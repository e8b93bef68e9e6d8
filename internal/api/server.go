package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/db"
	"github.com/mediashelf/mediashelf/internal/fsops"
	"github.com/mediashelf/mediashelf/internal/httputil"
	"github.com/mediashelf/mediashelf/internal/inventory"
	"github.com/mediashelf/mediashelf/internal/jobs"
	"github.com/mediashelf/mediashelf/internal/matcher"
	"github.com/mediashelf/mediashelf/internal/metadata"
	"github.com/mediashelf/mediashelf/internal/organizer"
	"github.com/mediashelf/mediashelf/internal/scanner"
	"github.com/mediashelf/mediashelf/internal/version"
)

type Server struct {
	config       *config.Config
	db           *db.DB
	libRepo      *inventory.LibraryRepository
	fileRepo     *inventory.FileRepository
	dirRepo      *inventory.DirectoryRepository
	scanRepo     *inventory.ScanRepository
	mediaRepo    *inventory.MediaRepository
	settingsRepo *inventory.SettingsRepository
	fs           fsops.Gateway
	lookup       metadata.Lookup
	manager      *scanner.Manager
	matcher      *matcher.Matcher
	organizer    *organizer.Organizer
	jobQueue     *jobs.Queue
	wsHub        *WSHub
	router       chi.Router
}

func NewServer(cfg *config.Config, database *db.DB, jobQueue *jobs.Queue, mgr *scanner.Manager) *Server {
	fs := fsops.NewLocal()

	var lookup metadata.Lookup
	if cfg.LookupEnabled() {
		lookup = metadata.NewOMDbClient(cfg.LookupAPIURL, cfg.LookupAPIKey)
	}
	mt := matcher.New(lookup, matcher.Options{
		Threshold:   cfg.AutoMatchThreshold,
		ReviewFloor: cfg.ManualReviewFloor(),
		Concurrency: cfg.MatchConcurrency,
	})

	s := &Server{
		config:       cfg,
		db:           database,
		libRepo:      inventory.NewLibraryRepository(database.DB),
		fileRepo:     inventory.NewFileRepository(database.DB),
		dirRepo:      inventory.NewDirectoryRepository(database.DB),
		scanRepo:     inventory.NewScanRepository(database.DB),
		mediaRepo:    inventory.NewMediaRepository(database.DB),
		settingsRepo: inventory.NewSettingsRepository(database.DB),
		fs:           fs,
		lookup:       lookup,
		manager:      mgr,
		matcher:      mt,
		organizer:    organizer.New(fs, organizer.DefaultNamingFormat(), organizer.DefaultFolderTemplate()),
		jobQueue:     jobQueue,
		wsHub:        NewWSHub(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

func (s *Server) Matcher() *matcher.Matcher {
	return s.matcher
}

func (s *Server) LibRepo() *inventory.LibraryRepository {
	return s.libRepo
}

func (s *Server) FileRepo() *inventory.FileRepository {
	return s.fileRepo
}

func (s *Server) DirRepo() *inventory.DirectoryRepository {
	return s.dirRepo
}

func (s *Server) ScanRepo() *inventory.ScanRepository {
	return s.scanRepo
}

func (s *Server) MediaRepo() *inventory.MediaRepository {
	return s.mediaRepo
}

func (s *Server) SettingsRepo() *inventory.SettingsRepository {
	return s.settingsRepo
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/ws", s.handleWebSocket)
		r.Get("/browse", s.handleBrowse)

		r.Route("/libraries", func(r chi.Router) {
			r.Get("/", s.handleListLibraries)
			r.Post("/", s.handleCreateLibrary)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetLibrary)
				r.Put("/", s.handleUpdateLibrary)
				r.Delete("/", s.handleDeleteLibrary)
				r.Post("/scan", s.handleStartScan)
				r.Post("/match", s.handleStartMatch)
				r.Get("/files", s.handleListLibraryFiles)
				r.Get("/scans", s.handleListLibraryScans)
			})
		})

		r.Route("/fs", func(r chi.Router) {
			r.Post("/rename", s.handleFSRename)
			r.Post("/move", s.handleFSMove)
			r.Post("/mkdir", s.handleFSMkdir)
			r.Get("/exists", s.handleFSExists)
			r.Get("/metadata", s.handleFSMetadata)
		})

		r.Route("/scans", func(r chi.Router) {
			r.Get("/active", s.handleActiveScans)
			r.Post("/cleanup", s.handleScanCleanup)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleScanStatus)
				r.Post("/cancel", s.handleCancelScan)
				r.Get("/result", s.handleScanResult)
			})
		})

		r.Route("/files", func(r chi.Router) {
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetFile)
				r.Delete("/", s.handleDeleteFile)
				r.Get("/assignment", s.handleGetAssignment)
				r.Post("/confirm", s.handleConfirmMatch)
			})
		})

		r.Route("/media", func(r chi.Router) {
			r.Get("/", s.handleListMedia)
			r.Get("/search", s.handleSearchLookup)
		})

		r.Route("/organize", func(r chi.Router) {
			r.Post("/preview", s.handleOrganizePreview)
			r.Post("/", s.handleOrganizeExecute)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/", s.handleUpdateSettings)
		})
	})

	s.router = r
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	info := version.Load()
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":      info,
		"active_scans": len(s.manager.Active()),
		"ws_clients":   s.wsHub.ClientCount(),
	})
}
