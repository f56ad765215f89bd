// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/api"
	"github.com/starford/folio/internal/blogservice"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/loader"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/rendercache"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/storage"
)

// components is what every command shares: a loaded engine and the loader
// that keeps it current.
type components struct {
	logger *slog.Logger
	engine *index.Engine
	loader *loader.Loader
	cache  *rendercache.DB
}

func (rt *components) Close() {
	if rt.cache != nil {
		if err := rt.cache.Close(); err != nil {
			rt.logger.Warn("render cache close failed", slog.String("error", err.Error()))
		}
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOut: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// setup builds the engine, content sources and loader, then performs the
// initial load.
func (a *application) setup(ctx context.Context) (*components, error) {
	cfg := a.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(a.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("entries_dir", cfg.Content.EntriesDir),
		slog.String("pages_dir", cfg.Content.PagesDir),
		slog.String("cache_path", cfg.Cache.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt := &components{logger: logger}
	rt.engine = index.New(cfg.Blog,
		index.WithLogger(logger),
		index.WithCacheSize(cfg.Cache.ResultSize),
	)

	sources, err := a.sources()
	if err != nil {
		return nil, err
	}

	loaderOpts := []loader.Option{
		loader.WithLogger(logger),
		loader.WithWorkers(cfg.Content.ParseWorkers),
	}
	if cfg.Cache.Path != "" {
		db, err := rendercache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("init render cache: %w", err)
		}
		rt.cache = db
		loaderOpts = append(loaderOpts, loader.WithCache(db))
	}

	rt.loader = loader.New(rt.engine, parser.New(cfg.Content.ExcerptLength), sources, loaderOpts...)

	start := time.Now()
	if err := rt.loader.Load(ctx); err != nil {
		rt.Close()
		return nil, fmt.Errorf("initial load: %w", err)
	}
	logger.Info("Index ready",
		slog.Int("entries", len(rt.engine.RecencyIDs())),
		slog.Duration("took", time.Since(start)))
	return rt, nil
}

// sources opens the entry tree and, when it exists, the page tree.
func (a *application) sources() ([]loader.Source, error) {
	cfg := a.config.Content

	// Ensure the entries directory exists.
	if err := os.MkdirAll(cfg.EntriesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create entries dir: %w", err)
	}
	entries, err := storage.NewFS(cfg.EntriesDir, cfg.Includes, cfg.Excludes)
	if err != nil {
		return nil, fmt.Errorf("init entries storage: %w", err)
	}
	sources := []loader.Source{{Kind: models.KindEntry, Provider: entries}}

	if cfg.PagesDir == "" {
		return sources, nil
	}
	if _, err := os.Stat(cfg.PagesDir); errors.Is(err, os.ErrNotExist) {
		slog.Warn("pages dir not found, serving entries only", slog.String("path", cfg.PagesDir))
		return sources, nil
	}
	pages, err := storage.NewFS(cfg.PagesDir, cfg.Includes, cfg.Excludes)
	if err != nil {
		return nil, fmt.Errorf("init pages storage: %w", err)
	}
	return append(sources, loader.Source{Kind: models.KindPage, Provider: pages}), nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt, err := app.setup(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build API service and router.
	svc := blogservice.NewService(rt.engine)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		if err := rt.loader.Watch(gCtx, broker.PublishChange); err != nil {
			return fmt.Errorf("watcher error: %w", err)
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		// Stops the watcher.
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// ServeMCP loads the index and serves MCP tools over stdio until stdin
// closes. The watcher keeps the index current while the session runs.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt, err := app.setup(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rt.loader.Watch(gCtx, nil)
	})

	srv := mcpserver.New(blogservice.NewService(rt.engine), app.version)
	serveErr := srv.ServeStdio()
	cancel()
	if err := g.Wait(); err != nil {
		rt.logger.Error("watcher error", slog.String("error", err.Error()))
	}
	if serveErr != nil {
		return fmt.Errorf("mcp server error: %w", serveErr)
	}
	return nil
}

// Report summarises a loaded index.
type Report struct {
	Entries    int    `json:"entries"`
	Pages      int    `json:"pages"`
	Tags       int    `json:"tags"`
	Categories int    `json:"categories"`
	Months     int    `json:"months"`
	Newest     string `json:"newest,omitempty"`
}

// Check loads the content once and reports what was indexed.
func Check(ctx context.Context, opts ...Option) (*Report, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	rt, err := app.setup(ctx)
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	w := rt.engine.Widgets()
	ids := rt.engine.RecencyIDs()
	rep := &Report{
		Entries:    len(ids),
		Pages:      len(rt.engine.SourcePaths(models.KindPage)),
		Tags:       len(w.Tags),
		Categories: len(w.Categories),
		Months:     len(w.Archive),
	}
	if len(ids) > 0 {
		rep.Newest = ids[0]
	}
	return rep, nil
}
