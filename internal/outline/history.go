package outline

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/beatsheet/internal/apperr"
)

const snapshotLabelLayout = "2006-01-02 15:04:05"

// Snapshot is a saved copy of an outline. Only its label ever changes.
type Snapshot struct {
	Label     string
	CreatedAt time.Time
	Outline   Outline
}

// VersionInfo describes one snapshot in a listing. Index is 1-based.
type VersionInfo struct {
	Index     int       `json:"index"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// History is an append-only log of outline snapshots.
type History struct {
	snapshots []Snapshot
	limit     int
	now       func() time.Time
}

// NewHistory creates a history. A positive limit evicts the oldest
// snapshot once exceeded; zero keeps everything.
func NewHistory(limit int, now func() time.Time) *History {
	if now == nil {
		now = time.Now
	}
	return &History{limit: limit, now: now}
}

// Snapshot appends a copy of o unless its text is blank.
// It reports whether a snapshot was taken.
func (h *History) Snapshot(o Outline) bool {
	if o.Empty() {
		return false
	}
	ts := h.now()
	h.snapshots = append(h.snapshots, Snapshot{
		Label:     ts.Format(snapshotLabelLayout),
		CreatedAt: ts,
		Outline:   o.Clone(),
	})
	if h.limit > 0 && len(h.snapshots) > h.limit {
		h.snapshots = append(h.snapshots[:0:0], h.snapshots[len(h.snapshots)-h.limit:]...)
	}
	return true
}

// Len returns the number of snapshots.
func (h *History) Len() int {
	return len(h.snapshots)
}

// List returns the snapshots in chronological order.
func (h *History) List() []VersionInfo {
	out := make([]VersionInfo, len(h.snapshots))
	for i, s := range h.snapshots {
		out[i] = VersionInfo{Index: i + 1, Label: s.Label, CreatedAt: s.CreatedAt}
	}
	return out
}

// Rename replaces the label of the snapshot at index.
func (h *History) Rename(index int, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return fmt.Errorf("%w: label is required", apperr.ErrValidation)
	}
	i, err := h.position(index)
	if err != nil {
		return err
	}
	h.snapshots[i].Label = label
	return nil
}

// Get returns a copy of the snapshot at index.
func (h *History) Get(index int) (Snapshot, error) {
	i, err := h.position(index)
	if err != nil {
		return Snapshot{}, err
	}
	s := h.snapshots[i]
	s.Outline = s.Outline.Clone()
	return s, nil
}

// Restore returns a copy of the outline captured at index. History is not truncated.
func (h *History) Restore(index int) (Outline, error) {
	s, err := h.Get(index)
	if err != nil {
		return Outline{}, err
	}
	return s.Outline, nil
}

func (h *History) position(index int) (int, error) {
	if index < 1 || index > len(h.snapshots) {
		return 0, fmt.Errorf("%w: version %d (have %d)", apperr.ErrIndexOutOfRange, index, len(h.snapshots))
	}
	return index - 1, nil
}
