package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/beatsheet/internal/checksum"
	"github.com/starford/beatsheet/internal/index"
	"github.com/starford/beatsheet/internal/models"
	"github.com/starford/beatsheet/internal/storage"
)

// Archive keeps a copy of every export in a directory and records it in
// the catalog.
type Archive struct {
	store storage.Provider
	db    index.Catalog
	now   func() time.Time
	newID func() string
}

// NewArchive creates an archive over store and db.
func NewArchive(store storage.Provider, db index.Catalog) *Archive {
	return &Archive{store: store, db: db, now: time.Now, newID: shortID}
}

func shortID() string {
	return uuid.NewString()[:8]
}

// Save writes data under a timestamped, uniquely suffixed name and catalogues it.
func (a *Archive) Save(f Format, title string, data []byte) (models.ExportRecord, error) {
	created := a.now().UTC()
	rec := models.ExportRecord{
		Name:      created.Format("20060102-150405") + "-" + a.newID() + "-" + Filename(title, f),
		Format:    string(f),
		Title:     strings.TrimSpace(title),
		Checksum:  checksum.Sum(data),
		Size:      int64(len(data)),
		CreatedAt: created,
	}
	if err := a.store.Write(rec.Name, data); err != nil {
		return models.ExportRecord{}, fmt.Errorf("archive export: %w", err)
	}
	if err := a.db.Upsert(rec); err != nil {
		return models.ExportRecord{}, fmt.Errorf("catalog export: %w", err)
	}
	return rec, nil
}

// List returns catalogued exports newest first.
func (a *Archive) List(limit, offset int, format string) ([]models.ExportRecord, int, error) {
	return a.db.List(limit, offset, format)
}

// Open returns the record and bytes of an archived export.
func (a *Archive) Open(name string) (*models.ExportRecord, []byte, error) {
	rec, err := a.db.Get(name)
	if err != nil {
		return nil, nil, err
	}
	data, err := a.store.Read(name)
	if err != nil {
		return nil, nil, fmt.Errorf("read export: %w", err)
	}
	return rec, data, nil
}
