package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/blogservice"
	"github.com/starford/folio/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *blogservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *blogservice.Service) *Handler {
	return &Handler{svc: svc}
}

// wildcardPath extracts everything matched by the trailing "*" of a route.
// Supports encoded slashes from clients (e.g. 2023%2F01).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// paging reads the page and size query parameters. Missing values are 1 and
// 0 (the service default); malformed values become -1 so the engine reports
// them as invalid.
func paging(r *http.Request) (page, size int) {
	q := r.URL.Query()
	page, size = 1, 0
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		} else {
			page = -1
		}
	}
	if v := q.Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			size = n
		} else {
			size = -1
		}
	}
	return page, size
}

// writeView writes v with a status chosen from err. Not-found and invalid
// requests still carry the view so clients can render widgets.
func writeView(w http.ResponseWriter, r *http.Request, v *models.View, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, v)
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, v)
	case errors.Is(err, apperr.ErrInvalidQuery):
		writeJSON(w, http.StatusBadRequest, v)
	default:
		slog.Error("api: request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Index handles GET /api/index.
//
//	@Summary		Page over every entry, newest first
//	@Tags			entries
//	@Produce		json
//	@Param			page	query		int	false	"1-based page"
//	@Param			size	query		int	false	"Page size"
//	@Success		200		{object}	ViewResponse
//	@Failure		400		{object}	ViewResponse
//	@Security		BearerAuth
//	@Router			/index [get]
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	page, size := paging(r)
	v, err := h.svc.Index(r.Context(), page, size)
	writeView(w, r, v, err)
}

// Entry handles GET /api/entries/*.
//
//	@Summary		Get one entry with navigation and related entries
//	@Tags			entries
//	@Produce		json
//	@Param			path	path		string	true	"YYYY/MM/DD/slug.html"
//	@Success		200		{object}	ViewResponse
//	@Failure		404		{object}	ViewResponse
//	@Security		BearerAuth
//	@Router			/entries/{path} [get]
func (h *Handler) Entry(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Entry(r.Context(), wildcardPath(r))
	writeView(w, r, v, err)
}

// Page handles GET /api/pages/*.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Page(r.Context(), wildcardPath(r))
	writeView(w, r, v, err)
}

// Raw handles GET /api/raw/*. A path ending in the raw suffix returns the
// Markdown source; any other path is a raw archive listing.
//
//	@Summary		Get Markdown source or a raw archive listing
//	@Tags			raw
//	@Produce		plain
//	@Produce		json
//	@Param			path	path		string	true	"YYYY/MM/DD/slug.md, page.md or a date path"
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/raw/{path} [get]
func (h *Handler) Raw(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if !h.svc.IsRawSource(path) {
		page, size := paging(r)
		v, err := h.svc.RawArchive(r.Context(), path, page, size)
		writeView(w, r, v, err)
		return
	}

	src, err := h.svc.Raw(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("api: raw failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, RawResponse{URL: r.URL.Path, Content: src})
		return
	}
	writeMarkdown(w, src)
}

// Search handles GET /api/search.
//
//	@Summary		Substring search over entry content
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Whitespace-separated words; any may match"
//	@Param			page	query		int		false	"1-based page"
//	@Param			size	query		int		false	"Page size"
//	@Success		200		{object}	ViewResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	page, size := paging(r)
	v, err := h.svc.Search(r.Context(), q, page, size)
	writeView(w, r, v, err)
}

// Tag handles GET /api/tags/*. Tags may contain slashes, either literal or
// escaped as %2F. An unknown tag is 404.
func (h *Handler) Tag(w http.ResponseWriter, r *http.Request) {
	page, size := paging(r)
	v, err := h.svc.Tag(r.Context(), wildcardPath(r), page, size)
	writeView(w, r, v, err)
}

// Category handles GET /api/categories/*. An unknown category is 404.
func (h *Handler) Category(w http.ResponseWriter, r *http.Request) {
	page, size := paging(r)
	v, err := h.svc.Category(r.Context(), wildcardPath(r), page, size)
	writeView(w, r, v, err)
}

// Archive handles GET /api/archive and /api/archive/*.
//
//	@Summary		List entries by year, month or day
//	@Tags			archive
//	@Produce		json
//	@Param			path	path		string	false	"YYYY, YYYY/MM or YYYY/MM/DD"
//	@Success		200		{object}	ViewResponse
//	@Failure		400		{object}	ViewResponse
//	@Security		BearerAuth
//	@Router			/archive/{path} [get]
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	page, size := paging(r)
	v, err := h.svc.Archive(r.Context(), wildcardPath(r), page, size)
	writeView(w, r, v, err)
}

// Widgets handles GET /api/widgets.
func (h *Handler) Widgets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Widgets(r.Context()))
}

// NotFound answers unknown API routes with the error view.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, h.svc.NotFound(r.Context(), r.URL.Path))
}
