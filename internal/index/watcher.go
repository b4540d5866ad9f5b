package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/beatsheet/internal/checksum"
	"github.com/starford/beatsheet/internal/models"
	"github.com/starford/beatsheet/internal/storage"
)

const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven catalog change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, name string)

// Watch keeps the catalog in sync with the export directory until ctx is
// cancelled, calling cb (if non-nil) after each successful change.
// Rename events trigger a debounced reconciliation pass.
func Watch(ctx context.Context, db Catalog, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
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

	notify := func(kind, name string) {
		if cb != nil {
			cb(kind, name)
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
			reconcile(db, store, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !storage.IsExportFile(name) || strings.HasPrefix(name, ".") {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if err := recordOne(db, store, name); err != nil {
					logger.Warn("watcher: record failed", slog.String("name", name), slog.String("error", err.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: recorded", slog.String("name", name), slog.String("op", kind))
				notify(kind, name)

			case ev.Op&fsnotify.Remove != 0:
				if err := db.Delete(name); err != nil {
					logger.Warn("watcher: delete failed", slog.String("name", name), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("name", name))
				notify("deleted", name)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports the old name only; the new one arrives as Create.
				if err := db.Delete(name); err == nil {
					notify("deleted", name)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func recordOne(db Catalog, store storage.Provider, name string) error {
	data, err := store.Read(name)
	if err != nil {
		return err
	}
	if prev, _ := db.GetChecksum(name); checksum.Matches(data, prev) {
		return nil
	}
	return db.Upsert(recordFromFile(models.ExportFile{
		Name:      name,
		Checksum:  checksum.Sum(data),
		Size:      int64(len(data)),
		UpdatedAt: modTime(store, name),
	}))
}

func modTime(store storage.Provider, name string) time.Time {
	if fs, ok := store.(*storage.FS); ok {
		if info, err := os.Stat(filepath.Join(fs.Root(), name)); err == nil {
			return info.ModTime()
		}
	}
	return time.Now()
}

// reconcile removes records without files and records unknown files.
func reconcile(db Catalog, store storage.Provider, logger *slog.Logger, notify func(kind, name string)) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	files, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]models.ExportFile, len(files))
	for _, f := range files {
		disk[f.Name] = f
	}
	for name := range checksums {
		if _, ok := disk[name]; !ok {
			if err := db.Delete(name); err == nil {
				notify("deleted", name)
			}
		}
	}
	for name, f := range disk {
		if checksums[name] == f.Checksum {
			continue
		}
		if err := db.Upsert(recordFromFile(f)); err == nil {
			logger.Debug("reconcile: recorded", slog.String("name", name))
			notify("created", name)
		}
	}
}
