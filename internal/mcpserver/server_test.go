package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/folio/internal/blogservice"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	engine := testutil.TestEngine(t)
	err := engine.Load([]*models.Document{
		{ID: "/blog/2023/01/05/hello.html", Kind: models.KindEntry, RawID: "/raw/2023/01/05/hello.md", Name: "hello", Content: "# Hello\ngo is fun", Tags: []string{"go"}, Categories: []string{"dev"}},
		{ID: "/blog/2023/02/10/world.html", Kind: models.KindEntry, RawID: "/raw/2023/02/10/world.md", Name: "world", Content: "the world", Tags: []string{"go"}},
		{ID: "/about.html", Kind: models.KindPage, RawID: "/raw/about.md", Name: "about", Content: "about me"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return New(blogservice.NewService(engine), "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_entries":
		result, err = srv.searchEntries(ctx, req)
	case "read_entry":
		result, err = srv.readEntry(ctx, req)
	case "read_raw":
		result, err = srv.readRaw(ctx, req)
	case "list_by_tag":
		result, err = srv.listByTag(ctx, req)
	case "list_by_category":
		result, err = srv.listByCategory(ctx, req)
	case "archive":
		result, err = srv.archive(ctx, req)
	case "get_widgets":
		result, err = srv.getWidgets(ctx, req)
	case "get_content_contract":
		result, err = srv.getContentContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodeListing(t *testing.T, r *mcp.CallToolResult) listing {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	var l listing
	if err := json.Unmarshal([]byte(resultText(r)), &l); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return l
}

func listingURLs(l listing) []string {
	var out []string
	for _, e := range l.Entries {
		out = append(out, e.URL)
	}
	return out
}

func TestSearchEntries(t *testing.T) {
	srv := testServer(t)
	l := decodeListing(t, callTool(t, srv, "search_entries", map[string]interface{}{"query": "fun world"}))
	want := []string{"/blog/2023/02/10/world.html", "/blog/2023/01/05/hello.html"}
	if diff := cmp.Diff(want, listingURLs(l)); diff != "" {
		t.Errorf("urls mismatch (-want +got):\n%s", diff)
	}

	r := callTool(t, srv, "search_entries", map[string]interface{}{"query": "  "})
	if !r.IsError {
		t.Error("expected error for blank query")
	}
}

func TestReadEntryAndPage(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_entry", map[string]interface{}{"url": "/blog/2023/01/05/hello.html"})
	if r.IsError {
		t.Fatalf("read_entry: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"url": "/blog/2023/01/05/hello.html"`) {
		t.Errorf("entry result = %s", resultText(r))
	}

	r = callTool(t, srv, "read_entry", map[string]interface{}{"url": "/about.html"})
	if r.IsError {
		t.Errorf("read page: %s", resultText(r))
	}

	r = callTool(t, srv, "read_entry", map[string]interface{}{"url": "/blog/2023/01/05/nope.html"})
	if !r.IsError {
		t.Error("expected error for missing entry")
	}
}

func TestReadRaw(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_raw", map[string]interface{}{"url": "/raw/2023/01/05/hello.md"})
	if got := resultText(r); got != "# Hello\ngo is fun" {
		t.Errorf("raw = %q", got)
	}
	r = callTool(t, srv, "read_raw", map[string]interface{}{"url": "/raw/missing.md"})
	if !r.IsError {
		t.Error("expected error for missing raw source")
	}
}

func TestListByTagAndCategory(t *testing.T) {
	srv := testServer(t)
	l := decodeListing(t, callTool(t, srv, "list_by_tag", map[string]interface{}{"tag": "go"}))
	if l.Total != 2 {
		t.Errorf("tag total = %d, want 2", l.Total)
	}
	l = decodeListing(t, callTool(t, srv, "list_by_category", map[string]interface{}{"category": "dev"}))
	if diff := cmp.Diff([]string{"/blog/2023/01/05/hello.html"}, listingURLs(l)); diff != "" {
		t.Errorf("category mismatch (-want +got):\n%s", diff)
	}
	if r := callTool(t, srv, "list_by_tag", map[string]interface{}{"tag": "Go"}); !r.IsError {
		t.Error("expected error for unknown tag")
	}
}

func TestArchive(t *testing.T) {
	srv := testServer(t)
	l := decodeListing(t, callTool(t, srv, "archive", map[string]interface{}{"path": "2023/02"}))
	if diff := cmp.Diff([]string{"/blog/2023/02/10/world.html"}, listingURLs(l)); diff != "" {
		t.Errorf("archive mismatch (-want +got):\n%s", diff)
	}
	if r := callTool(t, srv, "archive", map[string]interface{}{"path": "2023/13"}); !r.IsError {
		t.Error("expected error for invalid month")
	}
}

func TestGetWidgets(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_widgets", nil)
	var w models.Widgets
	if err := json.Unmarshal([]byte(resultText(r)), &w); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(w.Recent) != 2 {
		t.Errorf("recent = %d, want 2", len(w.Recent))
	}
}

func TestContentContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_content_contract", nil)
	if !strings.Contains(resultText(r), "YYYY-MM-DD-slug.md") {
		t.Error("contract missing file name rules")
	}
}
