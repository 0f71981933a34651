package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hughpyle/keep/internal/logging"
)

// Watcher watches a store's keep.toml for external edits and reloads it,
// notifying subscribers on each successful reload. Debounces rapid-fire
// writes from editors that save in multiple syscalls.
type Watcher struct {
	mu          sync.RWMutex
	fsw         *fsnotify.Watcher
	storeDir    string
	current     *Config
	onReload    func(*Config)
	debounceDur time.Duration
	lastEvent   time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a Watcher for storeDir's keep.toml. initial is the
// already-loaded config it starts from.
func NewWatcher(storeDir string, initial *Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:         fsw,
		storeDir:    storeDir,
		current:     initial,
		debounceDur: 300 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// OnReload registers a callback invoked after each successful reload. Only
// one callback is supported; a later call replaces the earlier one.
func (w *Watcher) OnReload(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = fn
}

// Current returns the most recently loaded Config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching in a background goroutine. Non-blocking.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.fsw.Add(w.storeDir); err != nil {
		logging.ConfigDebug("watcher: could not watch %s: %v", w.storeDir, err)
	}
	go w.run()
	return nil
}

// Stop halts the watcher and releases the underlying fsnotify handle.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.fsw.Close()
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	target := filepath.Join(w.storeDir, ConfigFileName)

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(target) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.mu.Lock()
			now := time.Now()
			if now.Sub(w.lastEvent) < w.debounceDur {
				w.mu.Unlock()
				continue
			}
			w.lastEvent = now
			w.mu.Unlock()

			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.ConfigDebug("watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.storeDir)
	if err != nil {
		logging.Config("reload of %s failed, keeping previous config: %v", w.storeDir, err)
		return
	}
	w.mu.Lock()
	w.current = cfg
	cb := w.onReload
	w.mu.Unlock()

	logging.Config("reloaded %s", filepath.Join(w.storeDir, ConfigFileName))
	if cb != nil {
		cb(cfg)
	}
}
