package watcher

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/mediashelf/mediashelf/internal/inventory"
)

// OnLibraryChange is called, debounced, when a watched library's tree
// gains or loses a media file.
type OnLibraryChange func(libraryID uuid.UUID, path string)

// Watcher monitors watch-enabled library roots for filesystem changes
// and triggers rescans.
type Watcher struct {
	libRepo    *inventory.LibraryRepository
	callback   OnLibraryChange
	extensions map[string]bool
	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	watched    map[string]uuid.UUID // directory path → library ID
	debounce   map[uuid.UUID]*time.Timer
	stop       chan struct{}
}

// New creates a filesystem watcher. Extensions are the accepted media
// file extensions, lowercase with dot.
func New(libRepo *inventory.LibraryRepository, extensions []string, cb OnLibraryChange) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = true
	}
	return &Watcher{
		libRepo:    libRepo,
		callback:   cb,
		extensions: extSet,
		watcher:    fw,
		watched:    make(map[string]uuid.UUID),
		debounce:   make(map[uuid.UUID]*time.Timer),
		stop:       make(chan struct{}),
	}, nil
}

// Start begins watching all watch-enabled libraries and processes events.
func (w *Watcher) Start() {
	go w.eventLoop()
	w.Refresh()
	log.Println("Watcher: filesystem watcher started")
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
}

// Refresh reloads watched library roots after library changes.
func (w *Watcher) Refresh() {
	libs, err := w.libRepo.ListWatched()
	if err != nil {
		log.Printf("Watcher: error loading watch-enabled libraries: %v", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	desired := make(map[string]uuid.UUID)
	for _, lib := range libs {
		desired[lib.RootPath] = lib.ID
	}

	// Remove roots no longer desired (and their subdirectories)
	for p, libID := range w.watched {
		keep := false
		for root, id := range desired {
			if id == libID && strings.HasPrefix(p, root) {
				keep = true
				break
			}
		}
		if !keep {
			w.watcher.Remove(p)
			delete(w.watched, p)
		}
	}

	// Add new roots
	for p, libID := range desired {
		if _, ok := w.watched[p]; ok {
			continue
		}
		if err := w.addRecursive(p, libID); err != nil {
			log.Printf("Watcher: error adding %s: %v", p, err)
		}
	}

	log.Printf("Watcher: watching %d paths across %d libraries", len(w.watched), len(libs))
}

func (w *Watcher) addRecursive(root string, libID uuid.UUID) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible dirs
		}
		if info.IsDir() {
			if strings.HasPrefix(filepath.Base(path), ".") && path != root {
				return filepath.SkipDir
			}
			if err := w.watcher.Add(path); err != nil {
				return nil
			}
			w.watched[path] = libID
		}
		return nil
	})
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher: error: %v", err)
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Skip hidden files and temp files
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") ||
		strings.HasSuffix(base, ".part") {
		return
	}

	isCreate := event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
	isRemove := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	if !isCreate && !isRemove {
		return
	}

	// For created dirs, add them to the watch list
	if isCreate {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			libID := w.resolveLibrary(event.Name)
			if libID != uuid.Nil {
				w.mu.Lock()
				w.watcher.Add(event.Name)
				w.watched[event.Name] = libID
				w.mu.Unlock()
				w.scheduleRescan(libID, event.Name)
			}
			return
		}
	}

	if !w.extensions[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}

	libID := w.resolveLibrary(event.Name)
	if libID == uuid.Nil {
		return
	}
	w.scheduleRescan(libID, event.Name)
}

// scheduleRescan fires the callback once per library per quiet second,
// so a burst of copied files triggers a single rescan.
func (w *Watcher) scheduleRescan(libID uuid.UUID, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.debounce[libID]; ok {
		timer.Stop()
	}
	w.debounce[libID] = time.AfterFunc(1*time.Second, func() {
		w.mu.Lock()
		delete(w.debounce, libID)
		w.mu.Unlock()
		w.callback(libID, path)
	})
}

func (w *Watcher) resolveLibrary(path string) uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Walk up directory tree to find watched parent
	dir := filepath.Dir(path)
	for dir != "/" && dir != "." {
		if libID, ok := w.watched[dir]; ok {
			return libID
		}
		dir = filepath.Dir(dir)
	}
	return uuid.Nil
}
