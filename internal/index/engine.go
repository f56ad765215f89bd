// Package index is Folio's in-memory document index: a document store per
// kind, bucket indices by tag, category and month, a recency index, and the
// queries and display widgets derived from them.
//
// An Engine has a single-writer, multi-reader model. Mutations hold the write
// lock across the whole store/bucket/recency/widget update; reads hold the read
// lock and never observe a half-applied mutation.
package index

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for mutation and invariant reports.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRand sets the source used for related-entry sampling.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock sets the clock used when the index is empty (calendar month,
// subscribe time).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCacheSize sets the result cache capacity. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(e *Engine) { e.cacheSize = n }
}

// Engine owns every index and the derived widgets.
type Engine struct {
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
	cacheSize int

	mu      sync.RWMutex
	st      *state
	widgets *models.Widgets
	cache   *resultCache

	rngMu sync.Mutex
	rng   *rand.Rand
}

// state is the mutable index set. All methods assume the caller holds the
// engine lock.
type state struct {
	cfg        Config
	entries    *Store
	pages      *Store
	tags       *BucketIndex
	categories *BucketIndex
	months     *BucketIndex
	recency    Recency
}

// New creates an empty engine.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		logger:    slog.Default(),
		now:       time.Now,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(uint64(e.now().UnixNano()), 0))
	}
	e.cache = newResultCache(e.cacheSize)
	e.st = newState(cfg)
	e.widgets = e.st.buildWidgets(e.now())
	return e
}

func newState(cfg Config) *state {
	return &state{
		cfg:     cfg,
		entries: NewStore(),
		pages:   NewStore(),
		tags: NewBucketIndex("tag",
			func(d *models.Document) []string { return d.Tags },
			func(k string) string { return cfg.TagURL + "/" + k }),
		categories: NewBucketIndex("category",
			func(d *models.Document) []string { return d.Categories },
			func(k string) string { return cfg.CategoryURL + "/" + k }),
		months: NewBucketIndex("month",
			func(d *models.Document) []string {
				eid, err := ParseEntryID(cfg.EntryURL, d.ID)
				if err != nil {
					return nil
				}
				return []string{eid.MonthKey()}
			},
			func(k string) string { return cfg.ArchiveURL + "/" + monthPath(k) }),
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Load adds docs as one batch and derives the recency index and widgets once
// at the end. Documents that fail to add are skipped; their errors are joined.
func (e *Engine) Load(docs []*models.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, doc := range docs {
		if err := e.st.add(doc); err != nil {
			errs = append(errs, err)
		}
	}
	e.derive()
	err := errors.Join(errs...)
	mutationsTotal.WithLabelValues("load", resultLabel(err)).Inc()
	e.logger.Info("index: loaded",
		slog.Int("documents", len(docs)),
		slog.Int("entries", e.st.entries.Len()),
		slog.Int("pages", e.st.pages.Len()),
		slog.Int("failed", len(errs)))
	return err
}

// AddDocument inserts doc, replacing any document with the same id and kind.
func (e *Engine) AddDocument(doc *models.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.st.add(doc)
	e.derive()
	e.report("add", err)
	return err
}

// RemoveDocument deletes the document id of kind and returns it.
func (e *Engine) RemoveDocument(kind models.Kind, id string) (*models.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, err := e.st.remove(kind, id)
	e.derive()
	e.report("remove", err)
	return doc, err
}

// RemoveBySourcePath deletes the document loaded from path.
func (e *Engine) RemoveBySourcePath(path string) (*models.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, err := e.st.findBySourcePath(path)
	if err == nil {
		doc, err = e.st.remove(doc.Kind, doc.ID)
	}
	e.derive()
	e.report("remove", err)
	return doc, err
}

// Upsert replaces whatever was loaded from doc.SourcePath, or stored under
// doc.ID, with doc. A file whose date changed gets a new id, so matching on
// the source path is what keeps the old version from lingering.
func (e *Engine) Upsert(doc *models.Document) (replaced bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	if doc == nil {
		return false, fmt.Errorf("index: upsert: %w: nil document", apperr.ErrInvalidID)
	}
	if doc.SourcePath != "" {
		if old, findErr := e.st.findBySourcePath(doc.SourcePath); findErr == nil {
			if _, rmErr := e.st.remove(old.Kind, old.ID); rmErr != nil {
				errs = append(errs, rmErr)
			}
			replaced = true
		}
	}
	if _, getErr := e.st.store(doc.Kind).Get(doc.ID); getErr == nil {
		replaced = true
	}
	if addErr := e.st.add(doc); addErr != nil {
		errs = append(errs, addErr)
	}
	e.derive()
	err = errors.Join(errs...)
	e.report("upsert", err)
	return replaced, err
}

// report logs and counts a finished mutation. Invariant violations are logged
// at error level: they mean the indices no longer agree with the store.
func (e *Engine) report(op string, err error) {
	mutationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	if errors.Is(err, apperr.ErrInvariantViolation) {
		invariantViolations.Inc()
		e.logger.Error("index: invariant violation", slog.String("op", op), slog.String("error", err.Error()))
	}
}

// derive recomputes the recency index and widgets, drops cached results and
// refreshes the document gauges.
func (e *Engine) derive() {
	e.st.recency.Rebuild(e.st.entries)
	e.widgets = e.st.buildWidgets(e.now())
	e.cache.purge()
	documentsGauge.WithLabelValues(string(models.KindEntry)).Set(float64(e.st.entries.Len()))
	documentsGauge.WithLabelValues(string(models.KindPage)).Set(float64(e.st.pages.Len()))
}

func (st *state) store(kind models.Kind) *Store {
	if kind == models.KindPage {
		return st.pages
	}
	return st.entries
}

// add stores a normalised copy of doc and files entries in the bucket indices.
func (st *state) add(doc *models.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("index: add: %w: empty id", apperr.ErrInvalidID)
	}
	switch doc.Kind {
	case models.KindEntry:
		if _, err := ParseEntryID(st.cfg.EntryURL, doc.ID); err != nil {
			return fmt.Errorf("index: add: %w", err)
		}
	case models.KindPage:
	default:
		return fmt.Errorf("index: add: %w: unknown kind %q for %s", apperr.ErrInvalidID, doc.Kind, doc.ID)
	}

	var errs []error
	if _, err := st.store(doc.Kind).Get(doc.ID); err == nil {
		if _, rmErr := st.remove(doc.Kind, doc.ID); rmErr != nil {
			errs = append(errs, rmErr)
		}
	}

	d := *doc
	d.Tags = dedupe(doc.Tags)
	d.Categories = dedupe(doc.Categories)
	st.store(d.Kind).Put(&d)
	if d.Kind == models.KindEntry {
		st.tags.Add(&d)
		st.categories.Add(&d)
		st.months.Add(&d)
	}
	return errors.Join(errs...)
}

// remove deletes id from the store, then unfiles it from every bucket index.
func (st *state) remove(kind models.Kind, id string) (*models.Document, error) {
	doc, err := st.store(kind).Remove(id)
	if err != nil {
		return nil, fmt.Errorf("index: remove: %w", err)
	}
	if kind != models.KindEntry {
		return doc, nil
	}
	err = errors.Join(
		st.tags.Remove(doc),
		st.categories.Remove(doc),
		st.months.Remove(doc),
	)
	if err != nil {
		return doc, fmt.Errorf("index: remove %s: %w", id, err)
	}
	return doc, nil
}

func (st *state) findBySourcePath(path string) (*models.Document, error) {
	if doc, err := st.entries.FindBySourcePath(path); err == nil {
		return doc, nil
	}
	doc, err := st.pages.FindBySourcePath(path)
	if err != nil {
		return nil, fmt.Errorf("index: find source: %w", err)
	}
	return doc, nil
}

// dedupe drops blanks and repeats, keeping first-seen order.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}
