// Package watcher watches a directory tree for created, modified, or renamed .jsonl
// transcript files and delivers debounced, deduplicated change events to the Indexer.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/logging"
)

// Event is a debounced notification that path's content should be (re-)indexed.
type Event struct {
	Path      string
	Timestamp time.Time
}

// DirectoryWatcher is the start/stop capability interface that the fsnotify-backed
// Watcher implements. The Indexer's Run consumes the event channel plus a MarkComplete
// callback rather than this interface.
type DirectoryWatcher interface {
	Start(ctx context.Context) (<-chan Event, error)
	Stop() error
}

// Options configures a Watcher.
type Options struct {
	DebounceWindow   time.Duration
	InitialScanRate  rate.Limit
	QueueSize        int
}

// DefaultOptions matches the 1s debounce window and a generous initial-scan rate.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  time.Second,
		InitialScanRate: rate.Limit(200),
		QueueSize:       256,
	}
}

// Watcher is the fsnotify-backed production DirectoryWatcher. It watches root's subtree
// for .jsonl files, retrying against root's parent if root does not exist yet.
type Watcher struct {
	root string
	opts Options
	log  *logging.Logger

	fsw    *fsnotify.Watcher
	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	mu        sync.Mutex
	timers    map[string]*time.Timer
	inFlight  map[string]bool
	watchedDirs map[string]bool
}

// New constructs a Watcher for root. It does not start watching until Start is called.
func New(root string, opts Options, log *logging.Logger) *Watcher {
	return &Watcher{
		root:        root,
		opts:        opts,
		log:         log,
		timers:      make(map[string]*time.Timer),
		inFlight:    make(map[string]bool),
		watchedDirs: make(map[string]bool),
	}
}

var _ DirectoryWatcher = (*Watcher)(nil)

// Start acquires an fsnotify subscription over root's subtree (or root's parent, if root
// does not exist yet) and performs an initial scan enqueueing every existing .jsonl file.
// The returned channel is closed when Stop completes or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperr.Wrap(apperr.Fatal, "watcher.Start", "create fsnotify watcher", err)
	}
	w.fsw = fsw
	w.events = make(chan Event, w.opts.QueueSize)
	w.done = make(chan struct{})

	if _, err := os.Stat(w.root); os.IsNotExist(err) {
		parent := filepath.Dir(w.root)
		if err := w.addDir(parent); err != nil {
			fsw.Close()
			return nil, apperr.Wrap(apperr.Transient, "watcher.Start", "watch parent of missing root", err)
		}
		w.wg.Add(1)
		go w.waitForRootThenWatch(ctx)
	} else {
		if err := w.watchTree(w.root); err != nil {
			fsw.Close()
			return nil, err
		}
		w.scanExisting(ctx)
	}

	w.wg.Add(1)
	go w.loop(ctx)

	return w.events, nil
}

// Stop closes the fsnotify subscription, cancels pending debounce timers, and waits for
// the event loop to drain.
func (w *Watcher) Stop() error {
	close(w.done)
	var err error
	if w.fsw != nil {
		err = w.fsw.Close()
	}
	w.wg.Wait()

	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()

	close(w.events)
	return err
}

func (w *Watcher) waitForRootThenWatch(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			if _, err := os.Stat(w.root); err == nil {
				if err := w.watchTree(w.root); err != nil {
					w.log.Error(ctx, "watcher: failed to watch root after creation", zap.Error(err))
					return
				}
				w.scanExisting(ctx)
				return
			}
		}
	}
}

// watchTree adds root and every existing subdirectory to the fsnotify subscription.
// fsnotify has no native recursive mode, so new subdirectories created later are picked
// up as Create events in loop and added on the fly.
func (w *Watcher) watchTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return w.addDir(path)
		}
		return nil
	})
}

func (w *Watcher) addDir(path string) error {
	w.mu.Lock()
	if w.watchedDirs[path] {
		w.mu.Unlock()
		return nil
	}
	w.watchedDirs[path] = true
	w.mu.Unlock()
	return w.fsw.Add(path)
}

// scanExisting walks root once at startup and enqueues every .jsonl file found, rate
// limited so a large pre-existing tree does not flood the Indexer's queue instantly.
func (w *Watcher) scanExisting(ctx context.Context) {
	limiter := rate.NewLimiter(w.opts.InitialScanRate, 1)
	_ = filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if !isJSONL(path) {
			return nil
		}
		_ = limiter.Wait(ctx)
		w.debounce(path)
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error(ctx, "watcher: fsnotify error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	info, err := os.Stat(ev.Name)
	if err == nil && info.IsDir() {
		if ev.Op&(fsnotify.Create) != 0 {
			_ = w.addDir(ev.Name)
		}
		return
	}
	if !isJSONL(ev.Name) {
		return
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	w.debounce(ev.Name)
}

// debounce coalesces repeated events for the same path within the configured window,
// resetting the timer on every new event and skipping paths currently being indexed.
func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.inFlight[path] {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.opts.DebounceWindow)
		return
	}
	w.timers[path] = time.AfterFunc(w.opts.DebounceWindow, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.inFlight[path] = true
		w.mu.Unlock()

		select {
		case w.events <- Event{Path: path, Timestamp: time.Now()}:
		case <-w.done:
		}
	})
}

// MarkComplete releases a path from the in-flight set once the Indexer finishes
// processing it, re-checking mtime so a change during processing is not lost.
func (w *Watcher) MarkComplete(path string, mtimeAtEnqueue time.Time) {
	w.mu.Lock()
	delete(w.inFlight, path)
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.ModTime().After(mtimeAtEnqueue) {
		w.debounce(path)
	}
}

func isJSONL(path string) bool {
	return strings.HasSuffix(path, ".jsonl")
}
