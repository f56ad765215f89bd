// Package testutil provides shared test helpers for content trees, engines
// and render caches.
package testutil

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/rendercache"
	"github.com/starford/folio/internal/storage"
)

// Clock is the fixed time test engines report when they hold no entries.
var Clock = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// TestCache creates a temporary render cache that is automatically cleaned up.
func TestCache(t *testing.T) *rendercache.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "folio-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := rendercache.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestTree writes files (slash-separated relative path to content) into a
// temporary directory and returns a storage.Provider over it.
func TestTree(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		WriteFile(t, dir, rel, content)
	}
	store, err := storage.NewFS(dir, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteFile writes content to rel under dir, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestEngine creates an engine with the default URL scheme, a seeded random
// source and a fixed clock.
func TestEngine(t *testing.T) *index.Engine {
	t.Helper()
	return index.New(index.DefaultConfig(),
		index.WithRand(rand.New(rand.NewPCG(1, 2))),
		index.WithClock(func() time.Time { return Clock }),
	)
}
