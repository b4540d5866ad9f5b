package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/beatsheet/internal/apperr"
	"github.com/starford/beatsheet/internal/export"
	"github.com/starford/beatsheet/internal/models"
)

const maxUploadBytes = 20 << 20 // 20 MB

// UploadDocument handles POST /api/sessions/{id}/document (multipart/form-data, field "file").
//
//	@Summary		Attach source material to the brief
//	@Description	Accepts .txt, .pdf and .docx; the extracted text replaces the brief's document.
//	@Tags			sessions
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			file	formData	file	true	"Document"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/document [post]
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	view, err := h.svc.AttachDocument(r.Context(), sessionID(r), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(w, "upload document", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Export handles GET /api/sessions/{id}/export.
//
//	@Summary		Download the displayed outline
//	@Tags			export
//	@Produce		octet-stream
//	@Param			id		path	string	true	"Session ID"
//	@Param			format	query	string	false	"Format"	Enums(txt, pdf, docx)
//	@Param			title	query	string	false	"Document title"
//	@Param			summary	query	string	false	"Summary paragraph"
//	@Success		200
//	@Failure		409	{object}	errResponse
//	@Failure		415	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, "export", err)
		return
	}
	res, err := h.svc.Export(r.Context(), sessionID(r), format, q.Get("title"), q.Get("summary"))
	if err != nil {
		writeError(w, "export", err)
		return
	}
	if res.Archived != nil {
		w.Header().Set("X-Export-Name", res.Archived.Name)
	}
	writeFile(w, res.Filename, res.ContentType, res.Data)
}

// ListExports handles GET /api/exports.
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	archive := h.svc.Archive()
	if archive == nil {
		writeJSON(w, http.StatusOK, ExportListResponse{Exports: []models.ExportRecord{}})
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := archive.List(limit, offset, q.Get("format"))
	if err != nil {
		writeError(w, "list exports", err)
		return
	}
	writeJSON(w, http.StatusOK, ExportListResponse{Enabled: true, Exports: items, Total: total})
}

// DownloadExport handles GET /api/exports/{name}.
func (h *Handler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	archive := h.svc.Archive()
	if archive == nil {
		writeError(w, "download export", fmt.Errorf("%w: export archive is disabled", apperr.ErrNotFound))
		return
	}
	rec, data, err := archive.Open(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "download export", err)
		return
	}
	writeFile(w, rec.Name, export.ContentType(export.Format(rec.Format)), data)
}

func writeFile(w http.ResponseWriter, name, contentType string, data []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
