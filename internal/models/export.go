// Package models defines the persisted record types for beatsheet.
package models

import "time"

// ExportFile describes one file found in the export directory.
type ExportFile struct {
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExportRecord is a catalogued export.
type ExportRecord struct {
	Name      string    `json:"name"`
	Format    string    `json:"format"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
