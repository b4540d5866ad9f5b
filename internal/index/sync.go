package index

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/beatsheet/internal/models"
	"github.com/starford/beatsheet/internal/storage"
)

// Sync brings the catalog in line with the export directory:
//   - new or changed files are recorded
//   - records whose file is gone are removed
func Sync(db Catalog, store storage.Provider, logger *slog.Logger) error {
	files, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		disk[f.Name] = struct{}{}
		if checksums[f.Name] == f.Checksum {
			continue
		}
		if err := db.Upsert(recordFromFile(f)); err != nil {
			logger.Warn("sync: record failed", slog.String("name", f.Name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: recorded", slog.String("name", f.Name))
		}
	}

	for name := range checksums {
		if _, ok := disk[name]; ok {
			continue
		}
		if err := db.Delete(name); err != nil {
			logger.Warn("sync: delete failed", slog.String("name", name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("name", name))
		}
	}
	return nil
}

func recordFromFile(f models.ExportFile) models.ExportRecord {
	return models.ExportRecord{
		Name:      f.Name,
		Format:    strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), "."),
		Checksum:  f.Checksum,
		Size:      f.Size,
		CreatedAt: f.UpdatedAt,
	}
}
