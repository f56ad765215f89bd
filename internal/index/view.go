package index

import (
	"errors"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// FindByURL builds the view for a single entry or page. An entry view carries
// prev/next navigation; an unknown url yields a nil Entry.
func (e *Engine) FindByURL(kind models.Kind, url string) *models.View {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v := e.baseView(url)
	doc, err := e.st.store(kind).Get(url)
	switch {
	case err != nil:
		v.Abouts = []models.About{e.blogAbout()}
	case kind == models.KindEntry:
		v.Abouts = []models.About{e.entryAbout(url), e.blogAbout()}
	default:
		v.Abouts = []models.About{e.blogAbout()}
	}
	if err == nil {
		v.Entry = doc
	}
	v.Entries = e.related()
	return v
}

// Search builds the view for a paged search. Entries is nil when a tag or
// category does not exist. A bad page or size sets SearchInfo.Invalid and
// leaves Entries empty but non-nil.
func (e *Engine) Search(kind models.SearchKind, url, value string, page, size int) *models.View {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v := e.baseView(url)
	if kind == models.SearchIndex {
		v.Abouts = []models.About{}
	} else {
		v.Abouts = []models.About{e.blogAbout()}
	}

	info := &models.SearchInfo{Kind: kind, Value: value}
	res, err := e.searchPage(kind, value, page, size)
	switch {
	case err == nil:
		v.Entries = res.Items
		info.Total = res.Total
	case errors.Is(err, apperr.ErrInvalidQuery):
		v.Entries = []*models.Document{}
		info.Invalid = true
	}
	v.Search = info
	v.Pager = &models.Pager{
		Kind:  kind,
		Value: value,
		Total: info.Total,
		Pages: PageCount(info.Total, size),
		Page:  page,
		Size:  size,
	}
	return v
}

// Archive builds the view for an archive URL. For ArchiveRaw the raw prefix
// is read as the archive prefix. The prefix must end at a path segment
// boundary. A malformed date path yields nil Entries and ArchiveInfo.Invalid.
func (e *Engine) Archive(kind models.ArchiveKind, url string, page, size int) *models.View {
	prefix := e.cfg.ArchiveURL
	if kind == models.ArchiveRaw {
		prefix = e.cfg.RawURL
	}
	path, ok := strings.CutPrefix(url, prefix)
	if ok && path != "" && !strings.HasPrefix(path, "/") {
		ok = false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var (
		res   *models.PageResult
		value string
		err   error
	)
	if ok {
		res, value, err = e.archivePage(path, page, size)
	} else {
		value, err = url, apperr.ErrInvalidQuery
	}
	v := e.baseView(url)
	v.Abouts = []models.About{e.archiveAbout()}
	info := &models.ArchiveInfo{Kind: kind, URL: url, Value: value, Page: page}
	if err != nil {
		info.Invalid = true
	} else {
		v.Entries = res.Items
		info.Count = res.Total
		info.Pages = res.PageCount
	}
	if info.Value == "" {
		info.Value = models.ArchiveAll
	}
	v.Archive = info
	return v
}

// Error builds the view for a URL nothing answers to.
func (e *Engine) Error(url string) *models.View {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v := e.baseView(url)
	v.Abouts = []models.About{e.blogAbout()}
	return v
}

func (e *Engine) baseView(url string) *models.View {
	return &models.View{
		Subscribe: e.subscribe(),
		Widgets:   e.widgets,
		Error:     models.ErrorInfo{URL: url},
	}
}

// subscribe reports the time of the newest entry, or now.
func (e *Engine) subscribe() models.Subscribe {
	ids := e.st.recency.IDs()
	if len(ids) > 0 {
		if doc, err := e.st.entries.Get(ids[0]); err == nil {
			return models.Subscribe{Updated: doc.Time}
		}
	}
	return models.Subscribe{Updated: e.now().Format(e.cfg.TimeLayout)}
}

func (e *Engine) entryAbout(id string) models.About {
	about := models.About{Kind: models.AboutEntry}
	prev, next := e.st.neighbors(id)
	if prev != nil {
		about.PrevURL, about.PrevName = prev.ID, prev.Name
	}
	if next != nil {
		about.NextURL, about.NextName = next.ID, next.Name
	}
	return about
}

func (e *Engine) blogAbout() models.About {
	return models.About{
		Kind:     models.AboutBlog,
		PrevURL:  "/",
		PrevName: "main index",
		NextURL:  e.cfg.ArchiveURL,
		NextName: "archives",
	}
}

func (e *Engine) archiveAbout() models.About {
	return models.About{
		Kind:     models.AboutArchive,
		PrevURL:  "/",
		PrevName: "main index",
	}
}
