package imagecache

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after the watcher invalidates an entry.
// kind is one of "updated", "deleted".
type EventCallback func(kind string, id string)

const pruneDelay = 200 * time.Millisecond

// Watch invalidates cache entries when the files under root change, until
// ctx is cancelled. Identifiers are paths relative to root with forward
// slashes, matching what StoreLoader receives.
//
// Rename events fire on the old path only, so they also schedule a
// debounced pass that drops entries whose files no longer exist.
func Watch(ctx context.Context, cache *Cache, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("image watcher: started", slog.String("root", root))

	var pruneTimer *time.Timer
	var pruneCh <-chan time.Time

	schedulePrune := func() {
		if pruneTimer == nil {
			pruneTimer = time.NewTimer(pruneDelay)
			pruneCh = pruneTimer.C
		} else {
			pruneTimer.Reset(pruneDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if pruneTimer != nil {
				pruneTimer.Stop()
			}
			logger.Info("image watcher: stopped")
			return nil

		case <-pruneCh:
			pruneMissing(cache, root, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("image watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			id := filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				cache.Invalidate(id)
				logger.Debug("image watcher: invalidated", slog.String("id", id))
				if cb != nil {
					cb("updated", id)
				}
			case ev.Op&fsnotify.Remove != 0:
				cache.Invalidate(id)
				logger.Debug("image watcher: removed", slog.String("id", id))
				if cb != nil {
					cb("deleted", id)
				}
			case ev.Op&fsnotify.Rename != 0:
				cache.Invalidate(id)
				if cb != nil {
					cb("deleted", id)
				}
				schedulePrune()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("image watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// pruneMissing drops cached entries whose backing file is gone.
func pruneMissing(cache *Cache, root string, logger *slog.Logger, cb EventCallback) {
	for _, id := range cache.Keys() {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(id))); os.IsNotExist(err) {
			cache.Invalidate(id)
			logger.Debug("image watcher: pruned", slog.String("id", id))
			if cb != nil {
				cb("deleted", id)
			}
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
