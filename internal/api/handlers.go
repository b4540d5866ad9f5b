package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/beatsheet/internal/apperr"
	"github.com/starford/beatsheet/internal/outline"
	"github.com/starford/beatsheet/internal/outlineservice"
)

const maxJSONBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *outlineservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *outlineservice.Service) *Handler {
	return &Handler{svc: svc}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", apperr.ErrValidation)
	}
	return nil
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func actParam(r *http.Request) (outline.Act, error) {
	return outline.ParseAct(chi.URLParam(r, "act"))
}

func intParam(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", apperr.ErrValidation, name)
	}
	return n, nil
}

func (b *BriefRequest) brief(document string) outline.Brief {
	return outline.Brief{Premise: b.Premise, Document: document, BeatsPerAct: b.BeatsPerAct, Instructions: b.Instructions}
}

// CreateSession handles POST /api/sessions.
//
//	@Summary		Start a new outline session
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSessionRequest	false	"Optional brief"
//	@Success		201		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "create session", err)
			return
		}
	}
	var brief *outline.Brief
	if req.Brief != nil {
		b := req.Brief.brief("")
		brief = &b
	}
	view, err := h.svc.Create(r.Context(), brief)
	if err != nil {
		writeError(w, "create session", err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get session state
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	SessionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Get(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteSession handles DELETE /api/sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), sessionID(r)); err != nil {
		writeError(w, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetBrief handles PUT /api/sessions/{id}/brief.
func (h *Handler) SetBrief(w http.ResponseWriter, r *http.Request) {
	var req BriefRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "set brief", err)
		return
	}
	id := sessionID(r)
	current, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "set brief", err)
		return
	}
	view, err := h.svc.SetBrief(r.Context(), id, req.brief(current.Brief.Document))
	if err != nil {
		writeError(w, "set brief", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Generate handles POST /api/sessions/{id}/generate.
//
//	@Summary		Generate a full three-act outline
//	@Description	An optional body replaces the stored brief; the uploaded document is kept.
//	@Tags			outline
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		BriefRequest	false	"Brief"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/generate [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var brief *outline.Brief
	if r.ContentLength != 0 {
		var req BriefRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "generate", err)
			return
		}
		b := req.brief("")
		brief = &b
	}
	view, err := h.svc.Generate(r.Context(), sessionID(r), brief)
	if err != nil {
		writeError(w, "generate", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RegenerateAct handles POST /api/sessions/{id}/acts/{act}/regenerate.
//
//	@Summary		Regenerate one act, keeping the others
//	@Tags			outline
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Param			act	path		string	true	"Act (1-3 or I-III)"
//	@Success		200	{object}	SessionResponse
//	@Failure		409	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/acts/{act}/regenerate [post]
func (h *Handler) RegenerateAct(w http.ResponseWriter, r *http.Request) {
	act, err := actParam(r)
	if err != nil {
		writeError(w, "regenerate act", err)
		return
	}
	view, err := h.svc.RegenerateAct(r.Context(), sessionID(r), act)
	if err != nil {
		writeError(w, "regenerate act", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Revise handles POST /api/sessions/{id}/revise.
func (h *Handler) Revise(w http.ResponseWriter, r *http.Request) {
	var req ReviseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "revise", err)
		return
	}
	view, err := h.svc.Revise(r.Context(), sessionID(r), req.Instructions)
	if err != nil {
		writeError(w, "revise", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// EditBeat handles PUT /api/sessions/{id}/acts/{act}/beats/{pos}.
func (h *Handler) EditBeat(w http.ResponseWriter, r *http.Request) {
	act, err := actParam(r)
	if err != nil {
		writeError(w, "edit beat", err)
		return
	}
	pos, err := intParam(r, "pos")
	if err != nil {
		writeError(w, "edit beat", err)
		return
	}
	var req BeatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "edit beat", err)
		return
	}
	view, err := h.svc.EditBeat(r.Context(), sessionID(r), act, pos, req.Text)
	if err != nil {
		writeError(w, "edit beat", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// AppendBeat handles POST /api/sessions/{id}/acts/{act}/beats.
func (h *Handler) AppendBeat(w http.ResponseWriter, r *http.Request) {
	act, err := actParam(r)
	if err != nil {
		writeError(w, "append beat", err)
		return
	}
	var req BeatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "append beat", err)
		return
	}
	view, err := h.svc.AppendBeat(r.Context(), sessionID(r), act, req.Text)
	if err != nil {
		writeError(w, "append beat", err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// DeleteBeat handles DELETE /api/sessions/{id}/acts/{act}/beats/{pos}.
func (h *Handler) DeleteBeat(w http.ResponseWriter, r *http.Request) {
	act, err := actParam(r)
	if err != nil {
		writeError(w, "delete beat", err)
		return
	}
	pos, err := intParam(r, "pos")
	if err != nil {
		writeError(w, "delete beat", err)
		return
	}
	view, err := h.svc.DeleteBeat(r.Context(), sessionID(r), act, pos)
	if err != nil {
		writeError(w, "delete beat", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// MoveBeat handles POST /api/sessions/{id}/acts/{act}/beats/{pos}/move.
func (h *Handler) MoveBeat(w http.ResponseWriter, r *http.Request) {
	act, err := actParam(r)
	if err != nil {
		writeError(w, "move beat", err)
		return
	}
	from, err := intParam(r, "pos")
	if err != nil {
		writeError(w, "move beat", err)
		return
	}
	var req MoveBeatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "move beat", err)
		return
	}
	if req.To == nil {
		writeError(w, "move beat", fmt.Errorf("%w: to is required", apperr.ErrValidation))
		return
	}
	view, err := h.svc.MoveBeat(r.Context(), sessionID(r), act, from, *req.To)
	if err != nil {
		writeError(w, "move beat", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ClearOutline handles DELETE /api/sessions/{id}/outline.
func (h *Handler) ClearOutline(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Clear(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, "clear outline", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
