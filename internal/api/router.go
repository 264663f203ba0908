package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/fsdriver/internal/objectservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *objectservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Driver operations.
	r.Get("/objects", h.GetObject)
	r.Head("/objects", h.HeadObject)
	r.Get("/objects/*", h.GetObject)
	r.Head("/objects/*", h.HeadObject)
	r.Put("/objects/*", h.PutObject)
	r.Delete("/objects/*", h.DeleteObject)

	// Catalog.
	r.Get("/catalog", h.ListCatalog)
	r.Get("/catalog/*", h.GetMetadata)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
