// ABOUTME: Watches the corpus directory and keeps the index in step with file changes
// ABOUTME: Events are debounced per path; the file's existence at fire time decides ingest or removal
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before a changed file is processed
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-ingests corpus files as they change
type Watcher struct {
	ingestor *Ingestor
	root     string
	debounce time.Duration
	logger   *zap.Logger

	// processed, when set, receives each path after it was handled
	processed chan<- string
}

// NewWatcher creates a watcher for root
func NewWatcher(in *Ingestor, root string, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{ingestor: in, root: root, debounce: debounce, logger: logger}
}

// Run blocks until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watching corpus", zap.String("path", w.root))

	timers := map[string]*time.Timer{}
	due := make(chan string, 64)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	schedule := func(path string) {
		if t, ok := timers[path]; ok {
			t.Stop()
		}
		timers[path] = time.AfterFunc(w.debounce, func() {
			select {
			case due <- path:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
					}
					continue
				}
			}
			if !Eligible(event.Name, w.ingestor.extensions) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				schedule(event.Name)
			}

		case path := <-due:
			delete(timers, path)
			w.handle(ctx, path)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if _, err := w.ingestor.IngestFile(ctx, w.root, path); err != nil {
			w.logger.Error("failed to ingest changed file", zap.String("path", path), zap.Error(err))
		}
	case errors.Is(statErr, fs.ErrNotExist):
		if err := w.ingestor.RemoveFile(ctx, w.root, path); err != nil {
			w.logger.Error("failed to remove deleted file", zap.String("path", path), zap.Error(err))
		}
	default:
		w.logger.Warn("cannot stat changed file", zap.String("path", path), zap.Error(statErr))
	}
	if w.processed != nil {
		select {
		case w.processed <- path:
		case <-ctx.Done():
		}
	}
}

// addTree watches dir and every directory below it
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
