package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/beatsheet/internal/outlineservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *outlineservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Put("/brief", h.SetBrief)
		r.Post("/document", h.UploadDocument)

		// Generation.
		r.Post("/generate", h.Generate)
		r.Post("/revise", h.Revise)
		r.Post("/acts/{act}/regenerate", h.RegenerateAct)

		// Beat editing.
		r.Post("/acts/{act}/beats", h.AppendBeat)
		r.Put("/acts/{act}/beats/{pos}", h.EditBeat)
		r.Delete("/acts/{act}/beats/{pos}", h.DeleteBeat)
		r.Post("/acts/{act}/beats/{pos}/move", h.MoveBeat)
		r.Delete("/outline", h.ClearOutline)

		// Version history.
		r.Get("/versions", h.ListVersions)
		r.Post("/versions/exit", h.ExitVersionView)
		r.Put("/versions/{n}", h.RenameVersion)
		r.Post("/versions/{n}/select", h.SelectVersion)
		r.Post("/versions/{n}/restore", h.RestoreVersion)

		r.Get("/export", h.Export)
	})

	r.Get("/exports", h.ListExports)
	r.Get("/exports/{name}", h.DownloadExport)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}
	return r
}
