package catalog

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/starford/fsdriver/internal/models"
	"github.com/starford/fsdriver/internal/storage"
)

// EventCallback is called after a watcher-driven catalog change. Created
// and updated changes carry the recorded size and checksum.
type EventCallback func(models.ObjectChange)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on root and keeps the catalog in step
// with changes made outside the driver until ctx is cancelled.
//
// Directories created at runtime are added to the watch list. Rename
// events drop the old rows at once and schedule a debounced Sync so the
// new location gets recorded.
func Watch(ctx context.Context, db Index, driver storage.Driver, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	notify := func(c models.ObjectChange) {
		if cb != nil {
			c.Provider = driver.Provider()
			c.At = time.Now().UTC()
			cb(c)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, driver, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if storage.IsTemp(filepath.Base(ev.Name)) {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&fsnotify.Create != 0:
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					}
					recordDir(db, driver, root, ev.Name, logger, notify)
					continue
				}
				refresh(db, driver, rel, logger, notify)

			case ev.Op&fsnotify.Write != 0:
				refresh(db, driver, rel, logger, notify)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path only; the new one arrives as Create.
				if delErr := db.DeletePrefix(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				notify(models.ObjectChange{Kind: KindDeleted, Path: rel})
				if ev.Op&fsnotify.Rename != 0 {
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func refresh(db Index, driver storage.Driver, rel string, logger *slog.Logger, notify EventCallback) {
	kind, err := Refresh(db, driver, rel)
	if err != nil {
		logger.Warn("watcher: refresh failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if kind == "" {
		return
	}
	logger.Debug("watcher: recorded", slog.String("path", rel), slog.String("op", kind))
	c := models.ObjectChange{Kind: kind, Path: rel}
	if m, err := db.Get(rel); err == nil {
		c.Size = m.Size
		c.Checksum = m.Checksum
	}
	notify(c)
}

// reconcile is Sync with callbacks: rows without a file are removed and
// unrecorded or changed files are recorded.
func reconcile(db Index, driver storage.Driver, logger *slog.Logger, notify EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	root, err := driver.GetObject("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}
	var paths []string
	if root != nil && root.IsDir {
		paths = storage.FilePaths("", root.Listing)
	}

	disk := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		disk[p] = struct{}{}
		refresh(db, driver, p, logger, notify)
	}
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if delErr := db.DeletePrefix(p); delErr == nil {
			logger.Debug("reconcile: removed stale", slog.String("path", p))
			notify(models.ObjectChange{Kind: KindDeleted, Path: p})
		}
	}
}

// recordDir records files already present in a newly created directory.
func recordDir(db Index, driver storage.Driver, root, dirPath string, logger *slog.Logger, notify EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || storage.IsTemp(d.Name()) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		refresh(db, driver, filepath.ToSlash(rel), logger, notify)
		return nil
	})
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
