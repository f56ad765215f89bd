package loader

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/parser"
)

func TestParseFileName(t *testing.T) {
	tests := []struct {
		rel   string
		slug  string
		dated bool
		date  string
	}{
		{"2023-1-5-hello_world.md", "hello_world", true, "2023-01-05"},
		{"dev/2023-12-31~year-end.md", "year-end", true, "2023-12-31"},
		{"2023-02-30-bad.md", "2023-02-30-bad", false, ""},
		{"about.md", "about", false, ""},
		{"2023-01-05.md", "2023-01-05", true, "2023-01-05"},
	}
	for _, tc := range tests {
		t.Run(tc.rel, func(t *testing.T) {
			fn := parseFileName(tc.rel)
			if fn.Slug != tc.slug || fn.Dated != tc.dated {
				t.Errorf("got slug=%q dated=%v, want %q %v", fn.Slug, fn.Dated, tc.slug, tc.dated)
			}
			if tc.dated && fn.Date.Format("2006-01-02") != tc.date {
				t.Errorf("date = %s, want %s", fn.Date.Format("2006-01-02"), tc.date)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	if got := displayName("hello_big-wide~world"); got != "hello big wide world" {
		t.Errorf("displayName = %q", got)
	}
}

func TestBuildEntryDocument(t *testing.T) {
	cfg := index.DefaultConfig()
	res, err := parser.New(0).Parse([]byte("First line #go\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	doc := buildDocument(cfg, models.KindEntry, "/content/dev/2023-1-5-hello_world.md",
		"dev/2023-1-5-hello_world.md", time.Time{}, "First line #go\n", res)

	want := &models.Document{
		ID:         "/blog/2023/01/05/hello_world.html",
		Kind:       models.KindEntry,
		RawID:      "/raw/2023/01/05/hello_world.md",
		SourcePath: "/content/dev/2023-1-5-hello_world.md",
		Name:       "hello world",
		Date:       "2023-01-05",
		Time:       "2023-01-05 00:00:00",
		Content:    "First line #go\n",
		HTML:       res.HTML,
		Excerpt:    "First line #go",
		Tags:       []string{"go"},
		Categories: []string{"dev"},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
	if _, err := index.ParseEntryID(cfg.EntryURL, doc.ID); err != nil {
		t.Errorf("built id does not parse: %v", err)
	}
}

func TestBuildUndatedUsesModTime(t *testing.T) {
	cfg := index.DefaultConfig()
	res, _ := parser.New(0).Parse([]byte("---\ntitle: Custom Title\ncategories: [life]\n---\nbody\n"))
	mod := time.Date(2022, 3, 4, 10, 11, 12, 0, time.Local)
	doc := buildDocument(cfg, models.KindEntry, "/c/dev/note.md", "dev/note.md", mod, "body", res)

	if doc.ID != "/blog/2022/03/04/note.html" {
		t.Errorf("id = %q", doc.ID)
	}
	if doc.Time != "2022-03-04 10:11:12" {
		t.Errorf("time = %q", doc.Time)
	}
	if doc.Name != "Custom Title" {
		t.Errorf("name = %q", doc.Name)
	}
	if diff := cmp.Diff([]string{"life"}, doc.Categories); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPageDocument(t *testing.T) {
	cfg := index.DefaultConfig()
	res, _ := parser.New(0).Parse([]byte("about me\n"))
	doc := buildDocument(cfg, models.KindPage, "/pages/about.md", "about.md", time.Now(), "about me\n", res)
	if doc.ID != "/about.html" || doc.RawID != "/raw/about.md" {
		t.Errorf("page ids = %q %q", doc.ID, doc.RawID)
	}
	if len(doc.Categories) != 0 {
		t.Errorf("page got categories %v", doc.Categories)
	}
}
