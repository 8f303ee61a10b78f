// Package watcher reloads the tour when its slot file is edited on disk.
package watcher

import (
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tour360/editor/internal/observer"
	"github.com/tour360/editor/internal/storage/memory"
	"github.com/tour360/editor/internal/tour"
	"github.com/tour360/editor/pkg/core"
)

const (
	defaultDebounce = 200 * time.Millisecond
	// recentVersions bounds how many published documents count as our own writes.
	recentVersions = 16
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the file must stay quiet before it is read.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// Watcher monitors one slot file.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	path      string
	store     *tour.Store
	log       *slog.Logger
	debounce  time.Duration

	// hashes of documents the store published recently
	mu     sync.Mutex
	recent [][32]byte
	sub    observer.Handle

	reloads chan core.Tour
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// New creates a watcher for path feeding store.
func New(path string, store *tour.Store, log *slog.Logger, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	w := &Watcher{
		fsWatcher: fsWatcher,
		path:      abs,
		store:     store,
		log:       log.With("component", "watcher", "path", abs),
		debounce:  defaultDebounce,
		reloads:   make(chan core.Tour, 8),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Reloads delivers every tour loaded from disk. Slow readers miss values.
func (w *Watcher) Reloads() <-chan core.Tour {
	return w.reloads
}

// Start watches the file's directory, so the file may be created or
// replaced by rename later.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		return err
	}

	w.remember(w.store.Snapshot())
	w.sub = w.store.Subscribe(func(c tour.Change) { w.remember(c.Tour) })

	w.wg.Add(1)
	go w.eventLoop()
	w.log.Info("Watching tour file")
	return nil
}

// Stop gracefully shuts down the watcher.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		w.sub.Remove()
		close(w.done)
		w.wg.Wait()
		err = w.fsWatcher.Close()
	})
	return err
}

func (w *Watcher) remember(t core.Tour) {
	data, err := tour.Marshal(t)
	if err != nil {
		return
	}
	sum := sha256.Sum256(data)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recent = append(w.recent, sum)
	if len(w.recent) > recentVersions {
		w.recent = w.recent[len(w.recent)-recentVersions:]
	}
}

func (w *Watcher) known(data []byte) bool {
	sum := sha256.Sum256(data)
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, h := range w.recent {
		if h == sum {
			return true
		}
	}
	return false
}

// eventLoop handles fsnotify events and debounces them per file.
func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.reload()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("Watcher error", "error", err)
		}
	}
}

// reload reads the file and replaces the tour unless the content is one the
// store itself produced.
func (w *Watcher) reload() {
	data, err := memory.ReadFile(w.path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.log.Warn("Failed to read tour file", "error", err)
		}
		return
	}
	if w.known(data) {
		return
	}

	t, err := w.store.Deserialize(string(data))
	if err != nil {
		w.log.Warn("Ignoring invalid tour file", "error", err)
		return
	}
	w.log.Info("Reloaded tour from disk", "tour", t.ID, "scenes", len(t.Scenes))
	select {
	case w.reloads <- t:
	default:
	}
}
