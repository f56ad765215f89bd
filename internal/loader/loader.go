// Package loader turns content files into Documents and keeps the index in
// step with the content tree.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/storage"
)

// Source is one content tree and the kind of document it holds.
type Source struct {
	Kind     models.Kind
	Provider storage.Provider
}

// Cache stores parsed documents by source path and content checksum.
type Cache interface {
	Get(path, sum string) (*models.Document, error)
	Put(path, sum string, doc *models.Document) error
	Delete(path string) error
	Prune(keep []string) (int, error)
}

// Option configures a Loader.
type Option func(*Loader)

// WithCache enables the render cache.
func WithCache(c Cache) Option {
	return func(l *Loader) { l.cache = c }
}

// WithWorkers caps concurrent file parsing during a bulk load.
func WithWorkers(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithLogger sets the loader's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// Loader reads sources, builds Documents and hands them to the engine.
type Loader struct {
	engine  *index.Engine
	parser  *parser.Parser
	sources []Source
	cache   Cache
	workers int
	logger  *slog.Logger
	// salt ties cached documents to the URL scheme they were built with.
	salt string
}

// New creates a Loader feeding engine from sources.
func New(engine *index.Engine, p *parser.Parser, sources []Source, opts ...Option) *Loader {
	l := &Loader{
		engine:  engine,
		parser:  p,
		sources: sources,
		workers: runtime.NumCPU(),
		logger:  slog.Default(),
		salt:    checksum.Sum(fmt.Appendf(nil, "%+v", engine.Config()))[:16],
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Build reads and parses rel from src. It returns nil, nil for a blank file.
func (l *Loader) Build(src Source, rel string) (*models.Document, error) {
	data, err := src.Provider.Read(rel)
	if err != nil {
		return nil, fmt.Errorf("loader: build: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	abs := filepath.Join(src.Provider.Root(), filepath.FromSlash(rel))

	sum := checksum.Scoped(data, l.salt, string(src.Kind))
	if l.cache != nil {
		doc, err := l.cache.Get(abs, sum)
		switch {
		case err == nil:
			return doc, nil
		case !errors.Is(err, apperr.ErrNotFound):
			l.logger.Warn("loader: cache read failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
	}

	info, err := src.Provider.Stat(rel)
	if err != nil {
		return nil, fmt.Errorf("loader: build: %w", err)
	}
	res, err := l.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loader: build %s: %w", rel, err)
	}
	doc := buildDocument(l.engine.Config(), src.Kind, abs, rel, info.ModTime, string(data), res)

	if l.cache != nil {
		if err := l.cache.Put(abs, sum, doc); err != nil {
			l.logger.Warn("loader: cache write failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
	}
	return doc, nil
}

// Load parses every source file concurrently and adds the results to the
// engine as one batch. Files that fail to read or parse are logged and
// skipped.
func (l *Loader) Load(ctx context.Context) error {
	type job struct {
		src Source
		rel string
	}
	var jobs []job
	var paths []string
	for _, src := range l.sources {
		files, err := src.Provider.List()
		if err != nil {
			return fmt.Errorf("loader: load: %w", err)
		}
		for _, f := range files {
			jobs = append(jobs, job{src: src, rel: f.Path})
			paths = append(paths, filepath.Join(src.Provider.Root(), filepath.FromSlash(f.Path)))
		}
	}

	docs := make([]*models.Document, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := l.Build(j.src, j.rel)
			if err != nil {
				l.logger.Warn("loader: skipped", slog.String("path", j.rel), slog.String("error", err.Error()))
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("loader: load: %w", err)
	}

	batch := make([]*models.Document, 0, len(docs))
	for _, doc := range docs {
		if doc != nil {
			batch = append(batch, doc)
		}
	}
	if err := l.engine.Load(batch); err != nil {
		l.logger.Warn("loader: some documents rejected", slog.String("error", err.Error()))
	}

	if l.cache != nil {
		if n, err := l.cache.Prune(paths); err != nil {
			l.logger.Warn("loader: cache prune failed", slog.String("error", err.Error()))
		} else if n > 0 {
			l.logger.Debug("loader: cache pruned", slog.Int("rows", n))
		}
	}
	l.logger.Info("loader: loaded", slog.Int("files", len(jobs)), slog.Int("documents", len(batch)))
	return nil
}

// sourceFor finds the source whose root most closely contains abs and
// returns the path relative to it.
func (l *Loader) sourceFor(abs string) (Source, string, bool) {
	var best Source
	var bestRel string
	found := false
	for _, src := range l.sources {
		rel, err := src.Provider.Rel(abs)
		if err != nil || rel == "." {
			continue
		}
		if !found || len(src.Provider.Root()) > len(best.Provider.Root()) {
			best, bestRel, found = src, rel, true
		}
	}
	return best, bestRel, found
}
