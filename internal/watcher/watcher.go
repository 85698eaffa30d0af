// Package watcher watches component directories for changes and delivers
// debounced batches of changed file paths.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aurelia/sfc-vite/internal/logging"
	"github.com/aurelia/sfc-vite/internal/types"
)

// DefaultDebounce groups rapid successive writes (editors typically emit
// several events per save) into one change batch.
const DefaultDebounce = 100 * time.Millisecond

// ChangeHandler receives a batch of changed component paths.
type ChangeHandler func(paths []string)

// FileWatcher watches directories recursively and reports changed
// component files.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	delay   time.Duration
	logger  logging.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	handler ChangeHandler
}

// New creates a file watcher. A non-positive delay selects DefaultDebounce.
func New(delay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher: w,
		delay:   delay,
		logger:  logger.WithComponent("watcher"),
		pending: make(map[string]struct{}),
	}, nil
}

// AddRecursive watches root and all its subdirectories.
func (fw *FileWatcher) AddRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if base := filepath.Base(path); strings.HasPrefix(base, ".") && path != root {
			return filepath.SkipDir
		}
		return fw.watcher.Add(path)
	})
}

// Start consumes filesystem events until ctx is done, invoking handler with
// debounced batches of changed component paths.
func (fw *FileWatcher) Start(ctx context.Context, handler ChangeHandler) {
	fw.mu.Lock()
	fw.handler = handler
	fw.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.watcher.Events:
				if !ok {
					return
				}
				fw.handleEvent(event)
			case err, ok := <-fw.watcher.Errors:
				if !ok {
					return
				}
				fw.logger.Warn(ctx, err, "watch error")
			}
		}
	}()
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	// Newly created directories join the watch set so components added
	// later are still seen.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = fw.watcher.Add(event.Name)
			return
		}
	}

	if !strings.HasSuffix(event.Name, types.ComponentExt) {
		return
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.pending[event.Name] = struct{}{}
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.delay, fw.flush)
}

func (fw *FileWatcher) flush() {
	fw.mu.Lock()
	paths := make([]string, 0, len(fw.pending))
	for path := range fw.pending {
		paths = append(paths, path)
	}
	fw.pending = make(map[string]struct{})
	handler := fw.handler
	fw.mu.Unlock()

	if handler != nil && len(paths) > 0 {
		handler(paths)
	}
}

// Close stops the watcher.
func (fw *FileWatcher) Close() error {
	fw.mu.Lock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.mu.Unlock()

	return fw.watcher.Close()
}
