// Package blogservice is the read layer shared by the HTTP API and the MCP
// server. It resolves request paths to index URLs, applies default page
// sizes and turns view-level signals into apperr errors.
package blogservice

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/models"
)

// Service answers read requests against an index.Engine.
type Service struct {
	engine *index.Engine
	cfg    index.Config
}

// NewService creates a new blog service.
func NewService(engine *index.Engine) *Service {
	return &Service{engine: engine, cfg: engine.Config()}
}

// Config returns the URL scheme of the underlying engine.
func (s *Service) Config() index.Config { return s.cfg }

// Index pages over every entry, newest first. A zero size uses the
// configured page size.
func (s *Service) Index(_ context.Context, page, size int) (*models.View, error) {
	v := s.engine.Search(models.SearchIndex, "/", "", page, s.size(size))
	return v, searchErr(v)
}

// Entry returns the view for an entry. path is the part of the entry URL
// after the entry prefix, e.g. "2023/01/05/hello.html".
func (s *Service) Entry(_ context.Context, path string) (*models.View, error) {
	u := s.cfg.EntryURL + "/" + strings.TrimPrefix(path, "/")
	v := s.engine.FindByURL(models.KindEntry, u)
	if v.Entry == nil {
		return v, fmt.Errorf("blogservice: entry %s: %w", u, apperr.ErrNotFound)
	}
	return v, nil
}

// Page returns the view for a static page. path is the page URL without its
// leading slash, e.g. "about.html".
func (s *Service) Page(_ context.Context, path string) (*models.View, error) {
	u := "/" + strings.TrimPrefix(path, "/")
	v := s.engine.FindByURL(models.KindPage, u)
	if v.Entry == nil {
		return v, fmt.Errorf("blogservice: page %s: %w", u, apperr.ErrNotFound)
	}
	return v, nil
}

// IsRawSource reports whether a raw path names a source file rather than a
// raw archive listing.
func (s *Service) IsRawSource(path string) bool {
	return strings.HasSuffix(path, s.cfg.RawSuffix)
}

// Raw returns the Markdown source behind a raw path, e.g.
// "2023/01/05/hello.md" or "about.md".
func (s *Service) Raw(_ context.Context, path string) (string, error) {
	src, err := s.engine.FindRaw(s.cfg.RawURL + "/" + strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("blogservice: raw: %w", err)
	}
	return src, nil
}

// RawArchive lists entries under a raw date path, e.g. "2023/01".
func (s *Service) RawArchive(_ context.Context, path string, page, size int) (*models.View, error) {
	v := s.engine.Archive(models.ArchiveRaw, joinURL(s.cfg.RawURL, path), page, s.archiveSize(size))
	return v, archiveErr(v)
}

// Search pages over entries whose content contains any word of q.
func (s *Service) Search(_ context.Context, q string, page, size int) (*models.View, error) {
	u := "/search?q=" + url.QueryEscape(q)
	v := s.engine.Search(models.SearchQuery, u, q, page, s.size(size))
	return v, searchErr(v)
}

// Tag pages over the entries filed under tag.
func (s *Service) Tag(_ context.Context, tag string, page, size int) (*models.View, error) {
	v := s.engine.Search(models.SearchTag, s.cfg.TagURL+"/"+tag, tag, page, s.size(size))
	return v, searchErr(v)
}

// Category pages over the entries filed under category.
func (s *Service) Category(_ context.Context, category string, page, size int) (*models.View, error) {
	v := s.engine.Search(models.SearchCategory, s.cfg.CategoryURL+"/"+category, category, page, s.size(size))
	return v, searchErr(v)
}

// Archive lists entries under a date path: "", "YYYY", "YYYY/MM" or
// "YYYY/MM/DD". A zero size uses the configured archive size.
func (s *Service) Archive(_ context.Context, path string, page, size int) (*models.View, error) {
	v := s.engine.Archive(models.ArchiveDate, joinURL(s.cfg.ArchiveURL, path), page, s.archiveSize(size))
	return v, archiveErr(v)
}

// Widgets returns the current widget set.
func (s *Service) Widgets(_ context.Context) *models.Widgets {
	return s.engine.Widgets()
}

// NotFound returns the view for a URL nothing answers to.
func (s *Service) NotFound(_ context.Context, u string) *models.View {
	return s.engine.Error(u)
}

func (s *Service) size(n int) int {
	if n == 0 {
		return s.cfg.PageSize
	}
	return n
}

func (s *Service) archiveSize(n int) int {
	if n == 0 {
		return s.cfg.ArchiveSize
	}
	return n
}

func joinURL(prefix, path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return prefix
	}
	return prefix + "/" + path
}

func searchErr(v *models.View) error {
	switch {
	case v.Search.Invalid:
		return fmt.Errorf("blogservice: search %s: %w", v.Search.Kind, apperr.ErrInvalidQuery)
	case v.Entries == nil:
		return fmt.Errorf("blogservice: search %s %q: %w", v.Search.Kind, v.Search.Value, apperr.ErrNotFound)
	}
	return nil
}

func archiveErr(v *models.View) error {
	if v.Archive.Invalid {
		return fmt.Errorf("blogservice: archive %s: %w", v.Archive.URL, apperr.ErrInvalidQuery)
	}
	return nil
}
