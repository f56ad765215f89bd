package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/blogservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *blogservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Listings.
	r.Get("/index", h.Index)
	r.Get("/search", h.Search)
	r.Get("/tags/*", h.Tag)
	r.Get("/categories/*", h.Category)
	r.Get("/archive", h.Archive)
	r.Get("/archive/*", h.Archive)

	// Documents.
	r.Get("/entries/*", h.Entry)
	r.Get("/pages/*", h.Page)
	r.Get("/raw/*", h.Raw)

	r.Get("/widgets", h.Widgets)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	r.NotFound(h.NotFound)
	return r
}
