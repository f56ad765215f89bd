package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - folio\ncategories: dev, notes\n---\n# Hello\nBody text.\n")
	r, err := New(0).Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if diff := cmp.Diff([]string{"go", "folio"}, r.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"dev", "notes"}, r.Categories); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := New(0).Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
	if r.Categories != nil {
		t.Errorf("categories = %v, want nil", r.Categories)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := New(0).Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_HTML(t *testing.T) {
	r, err := New(0).Parse([]byte("Some *emphasis* here.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(r.HTML, "<em>emphasis</em>") {
		t.Errorf("html = %q", r.HTML)
	}
}

func TestParse_Excerpt(t *testing.T) {
	input := []byte("# Title\n\nFirst paragraph\nspans two lines.\n\nSecond paragraph.\n")
	r, err := New(0).Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Excerpt != "First paragraph spans two lines." {
		t.Errorf("excerpt = %q", r.Excerpt)
	}

	r, _ = New(5).Parse([]byte("héllo world\n"))
	if r.Excerpt != "héllo…" {
		t.Errorf("truncated excerpt = %q", r.Excerpt)
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := map[string]interface{}{"tags": []interface{}{"go", "web"}}
	body := "Writing #go and #rust code.\n#web is nice"
	got := extractTags(body, fm)
	if diff := cmp.Diff([]string{"go", "web", "rust"}, got); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTags_IgnoresHeadings(t *testing.T) {
	got := extractTags("# Heading\nno tags here", nil)
	if len(got) != 0 {
		t.Errorf("tags = %v, want none", got)
	}
}
