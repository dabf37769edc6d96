// Package watcher dispatches file-system change events into the build
// pipeline.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// BuildRunner receives the trigger path of each qualifying change event.
type BuildRunner interface {
	Run(ctx context.Context, triggerPath string)
}

// Dispatcher watches the template and data roots recursively and invokes
// the build runner for every non-directory change event under either root.
// Create, write, remove and rename events are treated identically. Events
// are dispatched sequentially from one goroutine, so bursts queue in order;
// there is no debouncing, each qualifying event is one build.
type Dispatcher struct {
	roots    []string
	runner   BuildRunner
	watcher  *fsnotify.Watcher
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewDispatcher creates a Dispatcher over the given roots. Roots that do not
// exist are skipped with a warning at Start.
func NewDispatcher(runner BuildRunner, roots ...string) (*Dispatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Dispatcher{
		roots:    roots,
		runner:   runner,
		watcher:  w,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start registers the watched directories and launches the event loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	registered := 0
	for _, root := range d.roots {
		if _, err := os.Stat(root); err != nil {
			slog.Warn("Skipping missing watch root", logfields.Path(root), logfields.Error(err))
			continue
		}
		if err := d.addRecursive(root); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
		registered++
	}
	if registered == 0 {
		return fmt.Errorf("no watchable roots among %v", d.roots)
	}

	slog.Info("Watching for changes", logfields.Path(strings.Join(d.roots, string(os.PathListSeparator))))
	go d.eventLoop(ctx)
	return nil
}

// Stop shuts down the event loop and closes the underlying watcher. It
// blocks until the loop has exited, so no build is dispatched after Stop
// returns.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
		if err := d.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	})
	<-d.done
}

// addRecursive registers root and every directory below it. fsnotify
// watches are per-directory, not recursive.
func (d *Dispatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return d.watcher.Add(path)
		}
		return nil
	})
}

func (d *Dispatcher) eventLoop(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopChan:
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			d.handleEvent(ctx, event)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (d *Dispatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	slog.Debug("File system event", logfields.Path(event.Name), slog.String("op", event.Op.String()))

	if !d.underWatchedRoot(event.Name) {
		return
	}

	// Directories created after Start must be registered for their own
	// events; directory events never trigger builds.
	if st, err := os.Stat(event.Name); err == nil && st.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			if err := d.watcher.Add(event.Name); err != nil {
				slog.Warn("Cannot watch new directory", logfields.Path(event.Name), logfields.Error(err))
			}
		}
		return
	}

	d.runner.Run(ctx, event.Name)
}

func (d *Dispatcher) underWatchedRoot(path string) bool {
	for _, root := range d.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
