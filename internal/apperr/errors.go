// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidState      = errors.New("invalid state")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrModelCall         = errors.New("generation failed")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrExtraction        = errors.New("extraction failed")
	ErrExport            = errors.New("export failed")
)
