package audit

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tokenlens/tokenlens/pkg/observability"
	"github.com/tokenlens/tokenlens/pkg/scene"
)

const defaultDebounce = 200 * time.Millisecond

// WatchConfig configures a Watcher.
type WatchConfig struct {
	// DocumentPath is the document file whose changes invalidate the
	// scan cache.
	DocumentPath string

	// TokenPaths are token source files watched alongside the document.
	TokenPaths []string

	// Debounce groups rapid events for the same path. Zero uses 200ms.
	Debounce time.Duration

	// OnTokensChanged is invoked, debounced, when a token file changes.
	// May be nil.
	OnTokensChanged func(path string)

	// OnDocumentChanged is invoked after a document change has been
	// applied to the cache, whether cleared or invalidated. May be nil.
	OnDocumentChanged func()

	// Logger for watch events. Nil uses the service logger.
	Logger *slog.Logger
}

// reloader is implemented by adapters that can re-read their backing
// file, such as docfile.File.
type reloader interface {
	Reload() error
}

// Watcher invalidates the scan cache when the document changes on disk
// and reports token file changes to the caller.
//
// Invalidation is fingerprint-aware: a page-set change (pages added,
// removed or renamed) invalidates only the affected pages, while a
// content-only change, which the structural fingerprint cannot
// localize, clears the whole cache.
type Watcher struct {
	service    *Service
	fs         *fsnotify.Watcher
	logger     *slog.Logger
	debounce   time.Duration
	onTokens   func(path string)
	onDocument func()

	docPath    string
	tokenPaths map[string]bool

	// Debouncing
	timersMu sync.Mutex
	timers   map[string]*time.Timer

	pagesMu   sync.Mutex
	lastPages []scene.PageInfo

	// Lifecycle
	mu       sync.Mutex
	stopped  bool
	stopChan chan struct{}
}

// NewWatcher builds a watcher over the service's document file.
func NewWatcher(service *Service, cfg WatchConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = service.logger
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	docPath, err := filepath.Abs(cfg.DocumentPath)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("resolve document path: %w", err)
	}
	tokenPaths := make(map[string]bool, len(cfg.TokenPaths))
	for _, p := range cfg.TokenPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolve token path %q: %w", p, err)
		}
		tokenPaths[abs] = true
	}

	return &Watcher{
		service:    service,
		fs:         fsw,
		logger:     logger,
		debounce:   debounce,
		onTokens:   cfg.OnTokensChanged,
		onDocument: cfg.OnDocumentChanged,
		docPath:    docPath,
		tokenPaths: tokenPaths,
		timers:     make(map[string]*time.Timer),
		stopChan:   make(chan struct{}),
	}, nil
}

// Start snapshots the page table and begins watching. The event loop
// runs in a background goroutine until Stop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return fmt.Errorf("watcher already stopped")
	}
	w.mu.Unlock()

	pages, err := w.service.adapter.Pages(ctx)
	if err != nil {
		return fmt.Errorf("snapshot pages: %w", err)
	}
	w.pagesMu.Lock()
	w.lastPages = pages
	w.pagesMu.Unlock()

	// Watch directories, not files: editors replace files on save, and
	// a watch on the file itself dies with the old inode.
	dirs := map[string]bool{filepath.Dir(w.docPath): true}
	for p := range w.tokenPaths {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	w.logger.Info("document watcher started",
		"document", w.docPath,
		"tokenFiles", len(w.tokenPaths),
		"debounce", w.debounce)

	go w.eventLoop()
	return nil
}

// Stop stops the watcher. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopChan)

	w.timersMu.Lock()
	for _, timer := range w.timers {
		timer.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.timersMu.Unlock()

	err := w.fs.Close()
	w.logger.Info("document watcher stopped")
	return err
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	observability.WatcherEventsTotal.Inc()

	path := filepath.Clean(event.Name)
	isDoc := path == w.docPath
	if !isDoc && !w.tokenPaths[path] {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	w.logger.Debug("file event", "op", event.Op.String(), "file", path)
	w.schedule(path, isDoc)
}

// schedule runs the change handler after the debounce delay. Rapid
// events for the same path collapse into the last one.
func (w *Watcher) schedule(path string, isDoc bool) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()

	if timer, exists := w.timers[path]; exists {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.timersMu.Lock()
		delete(w.timers, path)
		w.timersMu.Unlock()

		if isDoc {
			w.refreshDocument()
			if w.onDocument != nil {
				w.onDocument()
			}
			return
		}
		w.logger.Info("token file changed", "file", path)
		if w.onTokens != nil {
			w.onTokens(path)
		}
	})
}

// refreshDocument re-reads the document view, diffs the page table and
// invalidates what changed.
func (w *Watcher) refreshDocument() {
	ctx := context.Background()

	if r, ok := w.service.adapter.(reloader); ok {
		if err := r.Reload(); err != nil {
			w.logger.Warn("document reload failed, clearing cache", "error", err)
			w.service.ClearCache(ctx)
			return
		}
	}

	pages, err := w.service.adapter.Pages(ctx)
	if err != nil {
		w.logger.Warn("page listing failed after change, clearing cache", "error", err)
		w.service.ClearCache(ctx)
		return
	}

	w.pagesMu.Lock()
	previous := w.lastPages
	w.lastPages = pages
	w.pagesMu.Unlock()

	if scene.Fingerprint(pages) == scene.Fingerprint(previous) {
		// Same page set; the edit is somewhere inside page contents and
		// the structural fingerprint cannot localize it.
		removed := w.service.ClearCache(ctx)
		w.logger.Info("document changed, cache cleared", "entries", removed)
		return
	}

	affected := affectedPages(previous, pages)
	removed := w.service.Invalidate(ctx, affected)
	w.logger.Info("document pages changed, cache invalidated",
		"pages", affected,
		"entries", removed)
}

// affectedPages names the pages touched by a page-set change: added and
// removed pages, and both names of a renamed page.
func affectedPages(previous, current []scene.PageInfo) []string {
	prevByID := make(map[string]string, len(previous))
	for _, p := range previous {
		prevByID[p.ID] = p.Name
	}

	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, p := range current {
		old, ok := prevByID[p.ID]
		if !ok {
			add(p.Name)
			continue
		}
		if old != p.Name {
			add(old)
			add(p.Name)
		}
		delete(prevByID, p.ID)
	}
	for _, name := range prevByID {
		add(name)
	}
	return names
}

// WatcherStats reports watcher state.
type WatcherStats struct {
	PendingChanges int  `json:"pending_changes"`
	Running        bool `json:"running"`
}

// Stats returns watcher counters.
func (w *Watcher) Stats() WatcherStats {
	w.timersMu.Lock()
	pending := len(w.timers)
	w.timersMu.Unlock()

	w.mu.Lock()
	running := !w.stopped
	w.mu.Unlock()

	return WatcherStats{PendingChanges: pending, Running: running}
}
