package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/mediashelf/mediashelf/internal/api"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/db"
	"github.com/mediashelf/mediashelf/internal/fsops"
	"github.com/mediashelf/mediashelf/internal/jobs"
	"github.com/mediashelf/mediashelf/internal/scanner"
	"github.com/mediashelf/mediashelf/internal/scheduler"
	"github.com/mediashelf/mediashelf/internal/version"
	"github.com/mediashelf/mediashelf/internal/watcher"
)

func main() {
	ver := version.Load()
	log.Printf("MediaShelf %s starting...", ver.Version)

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	cfg.MergeFromDB(database.DB)
	log.Printf("lookup enabled=%v, scan concurrency=%d, match threshold=%.0f",
		cfg.LookupEnabled(), cfg.MaxConcurrentScans, cfg.AutoMatchThreshold)

	sc := scanner.New(fsops.NewLocal())
	mgr := scanner.NewManager(sc, scanner.ManagerOptions{
		MaxConcurrent: cfg.MaxConcurrentScans,
		Timeout:       time.Duration(cfg.ScanTimeout) * time.Minute,
		Retention:     time.Duration(cfg.ScanRetention) * time.Hour,
	})

	queue := jobs.NewQueue(cfg.RedisAddr, cfg.MaxConcurrentScans)
	srv := api.NewServer(cfg, database, queue, mgr)

	jobs.RegisterHandlers(queue, cfg, mgr, srv.Matcher(),
		srv.LibRepo(), srv.FileRepo(), srv.DirRepo(), srv.ScanRepo(),
		srv.MediaRepo(), srv.SettingsRepo(), srv.WSHub())

	ctx := context.Background()
	if err := queue.Start(ctx); err != nil {
		log.Fatalf("job queue failed: %v", err)
	}
	defer queue.Stop()

	enqueueScan := func(libraryID uuid.UUID) {
		uniqueID := "scan:" + libraryID.String()
		if _, err := queue.EnqueueUnique(jobs.TaskScanLibrary,
			jobs.ScanPayload{LibraryID: libraryID.String()}, uniqueID,
			asynq.Timeout(2*time.Hour), asynq.Retention(1*time.Hour)); err != nil {
			log.Printf("main: enqueue scan for %s: %v", libraryID, err)
		}
	}

	sched := scheduler.New(srv.LibRepo(), srv.ScanRepo(), mgr,
		time.Duration(cfg.ScanRetention)*time.Hour, enqueueScan)
	sched.Start()
	defer sched.Stop()

	fw, err := watcher.New(srv.LibRepo(), cfg.VideoExtensions, func(libraryID uuid.UUID, path string) {
		log.Printf("main: change in %s, rescanning library %s", path, libraryID)
		enqueueScan(libraryID)
	})
	if err != nil {
		log.Printf("main: filesystem watcher unavailable: %v", err)
	} else {
		fw.Start()
		defer fw.Stop()
	}

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
}
