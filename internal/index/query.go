package index

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// FindByID looks id up in the kind's namespace.
func (e *Engine) FindByID(kind models.Kind, id string) (*models.Document, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.store(kind).Get(id)
}

// SearchPage runs a paged query.
//
//   - SearchQuery: ids whose content contains any whitespace-separated token
//     of value, lower-cased. Content itself is not lower-cased. An id matching
//     several tokens is listed once.
//   - SearchTag, SearchCategory: the bucket for value; apperr.ErrNotFound if
//     the key has never been filed.
//   - SearchIndex: every entry.
//
// Results are newest first. page < 1 or size <= 0 yields apperr.ErrInvalidQuery.
func (e *Engine) SearchPage(kind models.SearchKind, value string, page, size int) (*models.PageResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.searchPage(kind, value, page, size)
}

func (e *Engine) searchPage(kind models.SearchKind, value string, page, size int) (*models.PageResult, error) {
	if page < 1 || size <= 0 {
		return nil, fmt.Errorf("index: search: %w: page %d size %d", apperr.ErrInvalidQuery, page, size)
	}
	key := cacheKey{kind: kind, value: value, page: page, size: size}
	if res, ok := e.cache.get(key); ok {
		return res, nil
	}

	start := time.Now()
	defer func() {
		queriesTotal.WithLabelValues(string(kind)).Inc()
		queryDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	var ids []string
	switch kind {
	case models.SearchQuery:
		ids = e.st.matchContent(value)
	case models.SearchTag, models.SearchCategory:
		idx := e.st.tags
		if kind == models.SearchCategory {
			idx = e.st.categories
		}
		be, ok := idx.Get(value)
		if !ok {
			return nil, fmt.Errorf("index: search %s %q: %w", kind, value, apperr.ErrNotFound)
		}
		ids = descending(be.IDs)
	case models.SearchIndex:
		ids = e.st.recency.IDs()
	default:
		return nil, fmt.Errorf("index: search: %w: unknown kind %q", apperr.ErrInvalidQuery, kind)
	}

	res := e.st.page(ids, page, size)
	e.cache.put(key, res)
	return res, nil
}

// ArchivePage pages the entries under an archive path, which is the part of
// the URL after the archive prefix: "", YYYY, YYYY/MM or YYYY/MM/DD. It returns
// the path with surrounding slashes trimmed ("" for all), and
// apperr.ErrInvalidQuery for anything else.
func (e *Engine) ArchivePage(path string, page, size int) (*models.PageResult, string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.archivePage(path, page, size)
}

func (e *Engine) archivePage(path string, page, size int) (*models.PageResult, string, error) {
	value, err := parseArchivePath(path)
	if err != nil {
		return nil, value, fmt.Errorf("index: archive: %w", err)
	}
	if page < 1 || size <= 0 {
		return nil, value, fmt.Errorf("index: archive: %w: page %d size %d", apperr.ErrInvalidQuery, page, size)
	}

	start := time.Now()
	defer func() {
		queriesTotal.WithLabelValues("archive").Inc()
		queryDuration.WithLabelValues("archive").Observe(time.Since(start).Seconds())
	}()

	prefix := e.cfg.EntryURL + "/"
	if value != "" {
		prefix += value + "/"
	}
	var ids []string
	for _, id := range e.st.recency.IDs() {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	return e.st.page(ids, page, size), value, nil
}

// FindRaw returns the Markdown source behind a raw URL, trying pages first
// and then entries.
func (e *Engine) FindRaw(rawURL string) (string, error) {
	cfg := e.cfg
	rest, ok := strings.CutPrefix(rawURL, cfg.RawURL)
	if !ok || !strings.HasSuffix(rest, cfg.RawSuffix) {
		return "", fmt.Errorf("index: raw %s: %w", rawURL, apperr.ErrNotFound)
	}
	id := strings.TrimSuffix(rest, cfg.RawSuffix) + cfg.URLSuffix

	e.mu.RLock()
	defer e.mu.RUnlock()
	if page, err := e.st.pages.Get(id); err == nil && page.RawID == rawURL {
		return page.Content, nil
	}
	if entry, err := e.st.entries.Get(cfg.EntryURL + id); err == nil && entry.RawID == rawURL {
		return entry.Content, nil
	}
	return "", fmt.Errorf("index: raw %s: %w", rawURL, apperr.ErrNotFound)
}

// Neighbors returns the entries either side of id in the recency index:
// prev is older, next is newer. Either is nil at the ends or when id is not
// an indexed entry.
func (e *Engine) Neighbors(id string) (prev, next *models.Document) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.neighbors(id)
}

// Related samples entries at random; see state.related.
func (e *Engine) Related() []*models.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.related()
}

// Widgets returns the current widget set. The value is immutable.
func (e *Engine) Widgets() *models.Widgets {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.widgets
}

// RecencyIDs returns a copy of the recency index.
func (e *Engine) RecencyIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.st.recency.IDs())
}

// Bucket returns a copy of a tag, category or month bucket.
func (e *Engine) Bucket(kind models.SearchKind, key string) (models.BucketEntry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch kind {
	case models.SearchTag:
		return e.st.tags.Get(key)
	case models.SearchCategory:
		return e.st.categories.Get(key)
	}
	return e.st.months.Get(key)
}

// matchContent returns the ids of entries containing any token of text,
// newest first.
func (st *state) matchContent(text string) []string {
	tokens := strings.Fields(text)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	var ids []string
	for _, id := range st.recency.IDs() {
		doc, err := st.entries.Get(id)
		if err != nil {
			continue
		}
		for _, t := range tokens {
			if strings.Contains(doc.Content, t) {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids
}

// page resolves a window of ids to documents.
func (st *state) page(ids []string, page, size int) *models.PageResult {
	w := Paginate(ids, page, size)
	items := make([]*models.Document, 0, len(w.IDs))
	for _, id := range w.IDs {
		if doc, err := st.entries.Get(id); err == nil {
			items = append(items, doc)
		}
	}
	return &models.PageResult{
		Items:     items,
		Total:     w.Total,
		PageCount: w.PageCount,
		Page:      page,
		PageSize:  size,
	}
}

func descending(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	slices.Reverse(out)
	return out
}

// SourcePaths returns the source path of every document of kind that has
// one.
func (e *Engine) SourcePaths(kind models.Kind) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.st.store(kind)
	out := make([]string, 0, s.Len())
	for _, doc := range s.docs {
		if doc.SourcePath != "" {
			out = append(out, doc.SourcePath)
		}
	}
	return out
}
