package aggregator

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/usage-sentinel/sentinel/internal/logger"
)

// Tracker watches the conversation log tree and remembers whether
// anything changed since the last aggregation pass. When the tree is
// clean a poll cycle can reuse the previous pass instead of re-reading
// every file.
type Tracker struct {
	mu            sync.Mutex
	dirty         bool
	closed        bool
	watcher       *fsnotify.Watcher
	stopChan      chan struct{}
	debounceTimer *time.Timer
}

// NewTracker starts watching the projects tree under root. The tracker
// starts dirty so the first pass always aggregates.
func NewTracker(root string) (*Tracker, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	t := &Tracker{
		dirty:    true,
		watcher:  watcher,
		stopChan: make(chan struct{}),
	}

	projectsDir := filepath.Join(root, "projects")
	if err := os.MkdirAll(projectsDir, 0o750); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	// Watch every directory in the tree; fsnotify is not recursive
	err = filepath.WalkDir(projectsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if addErr := t.watcher.Add(path); addErr != nil {
				logger.Warn("failed to watch directory", "path", path, "error", addErr)
			}
		}
		return nil
	})
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}

	go t.watchLoop()
	return t, nil
}

// watchLoop handles file system events with debouncing.
func (t *Tracker) watchLoop() {
	const debounceInterval = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}

			// New project directories must be watched too
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if addErr := t.watcher.Add(event.Name); addErr != nil {
						logger.Warn("failed to watch directory", "path", event.Name, "error", addErr)
					}
				}
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				t.mu.Lock()
				if t.debounceTimer != nil {
					t.debounceTimer.Stop()
				}
				t.debounceTimer = time.AfterFunc(debounceInterval, t.markDirty)
				t.mu.Unlock()
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("log tree watcher error", "error", err)

		case <-t.stopChan:
			return
		}
	}
}

func (t *Tracker) markDirty() {
	t.mu.Lock()
	t.dirty = true
	t.mu.Unlock()
}

// Consume reports whether the tree changed since the last call and
// resets the flag. The caller is expected to aggregate when it returns
// true.
func (t *Tracker) Consume() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.dirty
	t.dirty = false
	return was
}

// Close stops the watcher. Both the daemon loop and the tracker's
// owner may call it; later calls are no-ops.
func (t *Tracker) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.stopChan)
	if t.debounceTimer != nil {
		t.debounceTimer.Stop()
	}
	t.mu.Unlock()

	return t.watcher.Close()
}
