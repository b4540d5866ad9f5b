package api

import "net/http"

// ListVersions handles GET /api/sessions/{id}/versions.
//
//	@Summary		List outline snapshots, oldest first
//	@Tags			versions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	VersionListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/versions [get]
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Versions(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, "list versions", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// RenameVersion handles PUT /api/sessions/{id}/versions/{n}.
func (h *Handler) RenameVersion(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n")
	if err != nil {
		writeError(w, "rename version", err)
		return
	}
	var req RenameVersionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "rename version", err)
		return
	}
	view, err := h.svc.RenameVersion(r.Context(), sessionID(r), n, req.Label)
	if err != nil {
		writeError(w, "rename version", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SelectVersion handles POST /api/sessions/{id}/versions/{n}/select.
func (h *Handler) SelectVersion(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n")
	if err != nil {
		writeError(w, "select version", err)
		return
	}
	view, err := h.svc.SelectVersion(r.Context(), sessionID(r), n)
	if err != nil {
		writeError(w, "select version", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ExitVersionView handles POST /api/sessions/{id}/versions/exit.
func (h *Handler) ExitVersionView(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.ExitVersionView(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, "exit version view", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RestoreVersion handles POST /api/sessions/{id}/versions/{n}/restore.
func (h *Handler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n")
	if err != nil {
		writeError(w, "restore version", err)
		return
	}
	view, err := h.svc.RestoreVersion(r.Context(), sessionID(r), n)
	if err != nil {
		writeError(w, "restore version", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
