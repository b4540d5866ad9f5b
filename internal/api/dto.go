package api

import (
	"github.com/starford/beatsheet/internal/models"
	"github.com/starford/beatsheet/internal/outlineservice"
)

// BriefRequest is the request body for storing a brief or generating.
type BriefRequest struct {
	Premise     string `json:"premise" example:"A botanist discovers plants can talk"`
	BeatsPerAct int    `json:"beats_per_act" example:"3"`
	// Instructions are added to later act regenerations.
	Instructions string `json:"instructions,omitempty" example:"Keep it PG"`
}

// CreateSessionRequest optionally seeds a new session with a brief.
type CreateSessionRequest struct {
	Brief *BriefRequest `json:"brief,omitempty"`
}

// ReviseRequest carries free-text revision instructions.
type ReviseRequest struct {
	Instructions string `json:"instructions" example:"Add a betrayal in Act II" validate:"required"`
}

// BeatRequest carries beat text.
type BeatRequest struct {
	Text string `json:"text" example:"The greenhouse floods" validate:"required"`
}

// MoveBeatRequest names the destination position.
type MoveBeatRequest struct {
	To *int `json:"to" example:"0" validate:"required"`
}

// RenameVersionRequest carries a new snapshot label.
type RenameVersionRequest struct {
	Label string `json:"label" example:"Before the twist" validate:"required"`
}

// SessionResponse is the session state (aliased from the domain layer).
type SessionResponse = outlineservice.View

// VersionListResponse lists snapshots (aliased from the domain layer).
type VersionListResponse = outlineservice.VersionList

// ExportListResponse wraps archived exports.
type ExportListResponse struct {
	Enabled bool                  `json:"enabled"`
	Exports []models.ExportRecord `json:"exports" validate:"required"`
	Total   int                   `json:"total" example:"4"`
}
