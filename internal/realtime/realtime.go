// Package realtime is the POSIX/cross-platform realtime watcher
// collaborator: it wraps fsnotify and forwards path events to the
// engine, registering watched directories on demand. Registered
// directories are never unregistered by this package.
// This mirrors the teacher's own fsnotify-driven Watcher, trading its
// snapshot/versioning and debounce-aggregation machinery for a direct
// forward of every observed path to a single callback — the engine,
// not this package, owns reconciliation and debouncing-by-checksum.
package realtime

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Logger is the narrow logging surface this package needs; it is
// satisfied by *fimlog.Logger without importing it, keeping this
// collaborator free of a dependency on the core or its logging choice.
type Logger interface {
	Warn(msg string, kv ...any)
	Debug2(msg string, kv ...any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any)   {}
func (nopLogger) Debug2(string, ...any) {}

// Callback is invoked once per observed path change, in whatever
// goroutine fsnotify delivered the underlying event on.
type Callback func(path string)

// Watcher implements the engine's RealtimeWatcher contract (AddDir,
// QueueOverflow, SanitizeWatchMap) over an *fsnotify.Watcher.
type Watcher struct {
	fsw *fsnotify.Watcher
	log Logger

	mu       sync.Mutex
	onEvent  Callback
	watched  map[string]bool // path -> follow symlinks
	overflow bool

	stopChan chan struct{}
}

// New creates a Watcher that calls onEvent for every create/write/
// rename/remove fsnotify reports. Call Start to begin delivering
// events; Stop to tear the underlying inotify/kqueue handle down.
func New(onEvent Callback, log Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("realtime: failed to create fsnotify watcher: %w", err)
	}
	if log == nil {
		log = nopLogger{}
	}

	return &Watcher{
		fsw:      fsw,
		log:      log,
		onEvent:  onEvent,
		watched:  make(map[string]bool),
		stopChan: make(chan struct{}),
	}, nil
}

// OnEvent installs (or replaces) the callback invoked per observed
// path change. Safe to call before or after Start.
func (w *Watcher) OnEvent(cb Callback) {
	w.mu.Lock()
	w.onEvent = cb
	w.mu.Unlock()
}

// Start launches the background goroutine draining fsnotify's event
// and error channels. Call once.
func (w *Watcher) Start() {
	go w.run()
}

// Stop closes the underlying watcher and halts the drain goroutine.
func (w *Watcher) Stop() error {
	close(w.stopChan)
	return w.fsw.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("fsnotify error", "error", err)
			w.mu.Lock()
			w.overflow = true
			w.mu.Unlock()
		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create == fsnotify.Create {
		// A newly created directory needs its own watch registered so
		// descendants raise events too — mirrors the teacher's own
		// runFsNotify special case.
		w.mu.Lock()
		follow := w.watched[parentOf(ev.Name)]
		w.mu.Unlock()
		w.AddDir(ev.Name, follow)
	}

	w.mu.Lock()
	cb := w.onEvent
	w.mu.Unlock()
	if cb != nil {
		cb(ev.Name)
	}
}

// AddDir registers path for watching. follow is recorded and inherited
// by directories later created directly beneath path; SanitizeWatchMap
// re-adds paths without consulting it. This package does not itself
// resolve symlinks (the engine's ConfigResolver already hands AddDir a
// resolved real path).
func (w *Watcher) AddDir(path string, follow bool) {
	w.mu.Lock()
	_, already := w.watched[path]
	w.watched[path] = follow
	w.mu.Unlock()

	if already {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.log.Warn("failed to watch directory", "path", path, "error", err)
	}
}

// QueueOverflow reports whether the watcher has observed an error
// since the last SanitizeWatchMap, signaling a possible lost-event
// condition (spec.md §4.6 step 8).
func (w *Watcher) QueueOverflow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.overflow
}

// SanitizeWatchMap re-adds every previously registered directory and
// clears the overflow latch, the engine's recovery action after a
// detected queue overflow.
func (w *Watcher) SanitizeWatchMap() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.watched))
	for p := range w.watched {
		paths = append(paths, p)
	}
	w.overflow = false
	w.mu.Unlock()

	for _, p := range paths {
		if err := w.fsw.Add(p); err != nil {
			w.log.Debug2("resubscribe failed during sanitize", "path", p, "error", err)
		}
	}
}

func parentOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return path
}
