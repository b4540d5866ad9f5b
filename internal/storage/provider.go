// Package storage defines the export directory abstraction.
package storage

import "github.com/starford/beatsheet/internal/models"

// Provider is the interface for export directory operations.
type Provider interface {
	// List returns metadata for every export file directly under the root.
	List() ([]models.ExportFile, error)
	// Read returns the raw bytes of the named file.
	Read(name string) ([]byte, error)
	// Write atomically writes content to name.
	Write(name string, content []byte) error
	// Delete removes the named file.
	Delete(name string) error
}

// Exported file extensions recognised by List.
var exportExts = map[string]struct{}{
	".txt":  {},
	".pdf":  {},
	".docx": {},
}

// IsExportFile reports whether name carries an export extension.
func IsExportFile(name string) bool {
	_, ok := exportExts[extOf(name)]
	return ok
}
