package loader

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// Change kinds passed to an EventCallback.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// reconcileDelay debounces the reconcile pass that follows renames.
const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, doc *models.Document)

// Watch starts an fsnotify watcher on every source root and applies file
// changes to the engine until ctx is cancelled. It calls cb (if non-nil)
// after each successful index mutation.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a reconcile pass that drops documents whose files no longer
// exist and indexes files the engine has not seen.
func (l *Loader) Watch(ctx context.Context, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, src := range l.sources {
		if err := addDirsRecursive(w, src.Provider.Root()); err != nil {
			return err
		}
		l.logger.Info("watcher: started", slog.String("root", src.Provider.Root()), slog.String("kind", string(src.Kind)))
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			l.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			l.Reconcile(cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			l.handle(w, ev, cb, scheduleReconcile)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (l *Loader) handle(w *fsnotify.Watcher, ev fsnotify.Event, cb EventCallback, scheduleReconcile func()) {
	abs := ev.Name

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			if err := addDirsRecursive(w, abs); err != nil {
				l.logger.Warn("watcher: add new dir failed", slog.String("path", abs), slog.String("error", err.Error()))
			} else {
				l.logger.Debug("watcher: watching new dir", slog.String("path", abs))
			}
			l.indexDir(abs, cb)
			return
		}
	}

	src, rel, ok := l.sourceFor(abs)
	if !ok {
		return
	}
	if !src.Provider.Match(rel) {
		// A directory that was moved or deleted reports only its own path;
		// the files under it get no events.
		if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
			_ = w.Remove(abs)
			scheduleReconcile()
		}
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		l.upsert(src, rel, cb)

	case ev.Op&fsnotify.Remove != 0:
		l.remove(abs, cb)

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify reports the old path only; the new one arrives as a
		// Create if it stays under a watched directory.
		l.remove(abs, cb)
		scheduleReconcile()
	}
}

func (l *Loader) upsert(src Source, rel string, cb EventCallback) {
	doc, err := l.Build(src, rel)
	if err != nil {
		l.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if doc == nil {
		// Emptied file: drop whatever it used to be.
		l.remove(filepath.Join(src.Provider.Root(), filepath.FromSlash(rel)), cb)
		return
	}
	replaced, err := l.engine.Upsert(doc)
	if err != nil {
		l.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	kind := ChangeCreated
	if replaced {
		kind = ChangeUpdated
	}
	l.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind), slog.String("url", doc.ID))
	if cb != nil {
		cb(kind, doc)
	}
}

func (l *Loader) remove(abs string, cb EventCallback) {
	if l.cache != nil {
		if err := l.cache.Delete(abs); err != nil {
			l.logger.Warn("watcher: cache delete failed", slog.String("path", abs), slog.String("error", err.Error()))
		}
	}
	doc, err := l.engine.RemoveBySourcePath(abs)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			l.logger.Warn("watcher: delete failed", slog.String("path", abs), slog.String("error", err.Error()))
		}
		return
	}
	l.logger.Debug("watcher: deleted", slog.String("path", abs), slog.String("url", doc.ID))
	if cb != nil {
		cb(ChangeDeleted, doc)
	}
}

// Reconcile drops documents whose source file is gone and indexes files the
// engine does not know yet.
func (l *Loader) Reconcile(cb EventCallback) {
	indexed := make(map[string]struct{})
	for _, kind := range []models.Kind{models.KindEntry, models.KindPage} {
		for _, p := range l.engine.SourcePaths(kind) {
			indexed[p] = struct{}{}
		}
	}

	disk := make(map[string]struct{})
	for _, src := range l.sources {
		files, err := src.Provider.List()
		if err != nil {
			l.logger.Warn("reconcile: list failed", slog.String("root", src.Provider.Root()), slog.String("error", err.Error()))
			return
		}
		for _, f := range files {
			abs := filepath.Join(src.Provider.Root(), filepath.FromSlash(f.Path))
			disk[abs] = struct{}{}
			if _, ok := indexed[abs]; !ok {
				l.upsert(src, f.Path, cb)
			}
		}
	}

	for p := range indexed {
		if _, ok := disk[p]; !ok {
			l.remove(p, cb)
		}
	}
}

// indexDir indexes matching files found in a newly created directory.
func (l *Loader) indexDir(dir string, cb EventCallback) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		src, rel, ok := l.sourceFor(p)
		if !ok || !src.Provider.Match(rel) {
			return nil
		}
		l.upsert(src, rel, cb)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
