package index

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/beatsheet/internal/apperr"
	"github.com/starford/beatsheet/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Upsert inserts or updates an export record. An empty title keeps the
// stored one so directory scans never clobber titles set at archive time.
func (db *DB) Upsert(rec models.ExportRecord) error {
	_, err := db.conn.Exec(`
		INSERT INTO exports (name, format, title, checksum, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			format   = excluded.format,
			title    = CASE WHEN excluded.title = '' THEN exports.title ELSE excluded.title END,
			checksum = excluded.checksum,
			size     = excluded.size
	`, rec.Name, rec.Format, rec.Title, rec.Checksum, rec.Size, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert export: %w", err)
	}
	return nil
}

// Delete removes a record.
func (db *DB) Delete(name string) error {
	if _, err := db.conn.Exec(`DELETE FROM exports WHERE name = ?`, name); err != nil {
		return fmt.Errorf("index: delete export: %w", err)
	}
	return nil
}

// Get returns one record or apperr.ErrNotFound.
func (db *DB) Get(name string) (*models.ExportRecord, error) {
	row := db.conn.QueryRow(`
		SELECT name, format, title, checksum, size, created_at
		FROM exports WHERE name = ?`, name)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get export: %w", err)
	}
	return rec, nil
}

// GetChecksum returns the stored checksum, or empty string if not found.
func (db *DB) GetChecksum(name string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM exports WHERE name = ?`, name).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// List returns records newest first, optionally filtered by format, with the total count.
func (db *DB) List(limit, offset int, format string) ([]models.ExportRecord, int, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	var args []any
	if format != "" {
		where = "WHERE format = ?"
		args = append(args, format)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM exports `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count exports: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT name, format, title, checksum, size, created_at
		FROM exports `+where+`
		ORDER BY created_at DESC, name ASC
		LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list exports: %w", err)
	}
	defer rows.Close()

	out := []models.ExportRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("index: scan export: %w", err)
		}
		out = append(out, *rec)
	}
	return out, total, rows.Err()
}

// AllChecksums returns name → checksum for every record.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM exports`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.ExportRecord, error) {
	var rec models.ExportRecord
	if err := s.Scan(&rec.Name, &rec.Format, &rec.Title, &rec.Checksum, &rec.Size, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if rec.Title == "" {
		rec.Title = strings.TrimSuffix(rec.Name, filepath.Ext(rec.Name))
	}
	return &rec, nil
}
