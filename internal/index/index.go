package index

import "github.com/starford/beatsheet/internal/models"

// Catalog defines the export catalog operations.
// Consumers depend on this interface rather than *DB.
type Catalog interface {
	Upsert(rec models.ExportRecord) error
	Delete(name string) error
	Get(name string) (*models.ExportRecord, error)
	GetChecksum(name string) (string, error)
	List(limit, offset int, format string) ([]models.ExportRecord, int, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ Catalog = (*DB)(nil)
