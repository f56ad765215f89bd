package index

import (
	"errors"
	"math/rand/v2"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.EntryURL = "/e"
	return cfg
}

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithClock(func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }),
	}, opts...)
	return New(testConfig(), opts...)
}

func entry(id string, tags, categories []string) *models.Document {
	return &models.Document{
		ID:         id,
		Kind:       models.KindEntry,
		SourcePath: id + ".md",
		Name:       id,
		Content:    "content of " + id,
		Tags:       tags,
		Categories: categories,
	}
}

// abcEngine loads three entries across two months.
func abcEngine(t *testing.T) *Engine {
	t.Helper()
	e := testEngine(t)
	err := e.Load([]*models.Document{
		entry("/e/2023/01/05/a", []string{"go", "web"}, []string{"dev"}),
		entry("/e/2023/01/10/b", []string{"go"}, []string{"dev", "life"}),
		entry("/e/2023/02/01/c", []string{"web"}, []string{"life"}),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e
}

func TestLoadBuildsRecency(t *testing.T) {
	e := abcEngine(t)
	want := []string{"/e/2023/02/01/c", "/e/2023/01/10/b", "/e/2023/01/05/a"}
	if diff := cmp.Diff(want, e.RecencyIDs()); diff != "" {
		t.Errorf("recency mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveEntryUpdatesBuckets(t *testing.T) {
	e := abcEngine(t)
	removed, err := e.RemoveDocument(models.KindEntry, "/e/2023/01/10/b")
	if err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}
	if removed.ID != "/e/2023/01/10/b" {
		t.Errorf("removed = %s", removed.ID)
	}

	if diff := cmp.Diff([]string{"/e/2023/02/01/c", "/e/2023/01/05/a"}, e.RecencyIDs()); diff != "" {
		t.Errorf("recency mismatch (-want +got):\n%s", diff)
	}

	goTag, ok := e.Bucket(models.SearchTag, "go")
	if !ok {
		t.Fatal("tag go missing")
	}
	if diff := cmp.Diff([]string{"/e/2023/01/05/a"}, goTag.IDs); diff != "" {
		t.Errorf("go ids mismatch (-want +got):\n%s", diff)
	}
	if goTag.Count != 1 {
		t.Errorf("go count = %d, want 1", goTag.Count)
	}
	for _, cat := range []string{"dev", "life"} {
		be, ok := e.Bucket(models.SearchCategory, cat)
		if !ok {
			t.Fatalf("category %s missing", cat)
		}
		if slices.Contains(be.IDs, "/e/2023/01/10/b") {
			t.Errorf("category %s still holds b", cat)
		}
		if be.Count != len(be.IDs) {
			t.Errorf("category %s count %d != len %d", cat, be.Count, len(be.IDs))
		}
	}
}

func TestBucketConsistency(t *testing.T) {
	e := abcEngine(t)
	for _, doc := range []string{"/e/2023/01/05/a", "/e/2023/01/10/b"} {
		d, err := e.FindByID(models.KindEntry, doc)
		if err != nil {
			t.Fatalf("FindByID(%s): %v", doc, err)
		}
		for _, tag := range d.Tags {
			be, _ := e.Bucket(models.SearchTag, tag)
			n := 0
			for _, id := range be.IDs {
				if id == doc {
					n++
				}
			}
			if n != 1 {
				t.Errorf("tag %s holds %s %d times, want 1", tag, doc, n)
			}
		}
	}

	if _, err := e.RemoveDocument(models.KindEntry, "/e/2023/01/05/a"); err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}
	for _, tag := range []string{"go", "web"} {
		be, ok := e.Bucket(models.SearchTag, tag)
		if ok && slices.Contains(be.IDs, "/e/2023/01/05/a") {
			t.Errorf("tag %s still holds a", tag)
		}
	}
}

func TestNoEmptyBuckets(t *testing.T) {
	e := abcEngine(t)
	for _, id := range []string{"/e/2023/01/05/a", "/e/2023/02/01/c"} {
		if _, err := e.RemoveDocument(models.KindEntry, id); err != nil {
			t.Fatalf("RemoveDocument(%s): %v", id, err)
		}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, idx := range []*BucketIndex{e.st.tags, e.st.categories, e.st.months} {
		for _, be := range idx.Entries() {
			if be.Count == 0 {
				t.Errorf("%s index has empty bucket %q", idx.name, be.Key)
			}
		}
	}
	if _, ok := e.st.tags.Get("web"); ok {
		t.Error("tag web should be gone")
	}
	if _, ok := e.st.months.Get("2023-02"); ok {
		t.Error("month 2023/02 should be gone")
	}
}

func TestRemoveMissing(t *testing.T) {
	e := abcEngine(t)
	_, err := e.RemoveDocument(models.KindEntry, "/e/2023/03/01/zzz")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(e.RecencyIDs()) != 3 {
		t.Errorf("recency changed after failed remove")
	}
}

func TestAddRejectsMalformedEntryID(t *testing.T) {
	e := testEngine(t)
	err := e.AddDocument(entry("/e/2023-01-05/bad", nil, nil))
	if !errors.Is(err, apperr.ErrInvalidID) {
		t.Fatalf("err = %v, want ErrInvalidID", err)
	}
}

func TestAddReplacesSameID(t *testing.T) {
	e := abcEngine(t)
	d := entry("/e/2023/01/05/a", []string{"rust"}, nil)
	if err := e.AddDocument(d); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if be, _ := e.Bucket(models.SearchTag, "go"); slices.Contains(be.IDs, "/e/2023/01/05/a") {
		t.Error("old tag go still references a")
	}
	if be, ok := e.Bucket(models.SearchTag, "rust"); !ok || be.Count != 1 {
		t.Errorf("rust bucket = %+v, %v", be, ok)
	}
}

func TestPagesStayOutOfBuckets(t *testing.T) {
	e := abcEngine(t)
	page := &models.Document{ID: "/about.html", Kind: models.KindPage, Tags: []string{"go"}}
	if err := e.AddDocument(page); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if _, err := e.FindByID(models.KindPage, "/about.html"); err != nil {
		t.Fatalf("FindByID page: %v", err)
	}
	if _, err := e.FindByID(models.KindEntry, "/about.html"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("page leaked into entry namespace: %v", err)
	}
	if be, _ := e.Bucket(models.SearchTag, "go"); be.Count != 2 {
		t.Errorf("go count = %d, want 2", be.Count)
	}
	if len(e.RecencyIDs()) != 3 {
		t.Errorf("page entered recency index")
	}
}

func TestUpsertBySourcePath(t *testing.T) {
	e := abcEngine(t)
	// The file a.md was re-dated: same source path, new id.
	moved := entry("/e/2023/03/01/a", []string{"go"}, nil)
	moved.SourcePath = "/e/2023/01/05/a.md"

	replaced, err := e.Upsert(moved)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !replaced {
		t.Error("replaced = false, want true")
	}
	if _, err := e.FindByID(models.KindEntry, "/e/2023/01/05/a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old id still present: %v", err)
	}
	if got := e.RecencyIDs()[0]; got != "/e/2023/03/01/a" {
		t.Errorf("newest = %s", got)
	}

	replaced, err = e.Upsert(entry("/e/2023/04/01/d", nil, nil))
	if err != nil || replaced {
		t.Errorf("Upsert new = %v, %v", replaced, err)
	}
}

func TestRemoveBySourcePath(t *testing.T) {
	e := abcEngine(t)
	doc, err := e.RemoveBySourcePath("/e/2023/02/01/c.md")
	if err != nil {
		t.Fatalf("RemoveBySourcePath: %v", err)
	}
	if doc.ID != "/e/2023/02/01/c" {
		t.Errorf("removed %s", doc.ID)
	}
	if _, err := e.RemoveBySourcePath("nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStoredTagsAreDeduped(t *testing.T) {
	e := testEngine(t)
	if err := e.AddDocument(entry("/e/2023/01/01/x", []string{"go", " go", "", "web"}, nil)); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	d, _ := e.FindByID(models.KindEntry, "/e/2023/01/01/x")
	if diff := cmp.Diff([]string{"go", "web"}, d.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if be, _ := e.Bucket(models.SearchTag, "go"); be.Count != 1 {
		t.Errorf("go count = %d, want 1", be.Count)
	}
}

func checkBuckets(t *testing.T, name string, buckets []models.BucketEntry) {
	t.Helper()
	for _, be := range buckets {
		if be.Count != len(be.IDs) {
			t.Errorf("%s bucket %q: count %d, %d ids", name, be.Key, be.Count, len(be.IDs))
		}
	}
}

// Run with -race: one writer mutates while readers go through every read path.
func TestConcurrentReadersSeeConsistentState(t *testing.T) {
	e := abcEngine(t)
	const iterations = 200

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := range iterations {
			id := fmt.Sprintf("/e/2023/%02d/%02d/w%d", i%12+1, i%28+1, i)
			tags := []string{"go", fmt.Sprintf("t%d", i%5)}
			if err := e.AddDocument(entry(id, tags, []string{"dev"})); err != nil {
				t.Errorf("add %s: %v", id, err)
				return
			}
			if i%3 == 0 {
				if _, err := e.RemoveDocument(models.KindEntry, id); err != nil {
					t.Errorf("remove %s: %v", id, err)
					return
				}
			}
		}
	}()

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if v := e.Search(models.SearchTag, "/tag/go", "go", 1, 10); v.Search.Total < 2 {
					t.Errorf("tag go total = %d", v.Search.Total)
				}
				if v := e.Archive(models.ArchiveDate, "/archive/2023", 1, 10); v.Archive.Invalid {
					t.Errorf("archive 2023 invalid: %+v", v.Archive)
				}
				if v := e.FindByURL(models.KindEntry, "/e/2023/01/05/a"); v.Entry == nil {
					t.Error("seed entry missing")
				}
				w := e.Widgets()
				checkBuckets(t, "tags", w.Tags)
				checkBuckets(t, "categories", w.Categories)
				checkBuckets(t, "archive", w.Archive)

				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}
	wg.Wait()

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, idx := range []*BucketIndex{e.st.tags, e.st.categories, e.st.months} {
		checkBuckets(t, idx.name, idx.Entries())
	}
	ids := e.st.recency.IDs()
	if want := 3 + iterations - (iterations+2)/3; len(ids) != want {
		t.Errorf("recency holds %d ids, want %d", len(ids), want)
	}
	if !slices.IsSortedFunc(ids, func(a, b string) int { return strings.Compare(b, a) }) {
		t.Error("recency not sorted descending")
	}
}
