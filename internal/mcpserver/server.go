// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only Folio tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/blogservice"
	"github.com/starford/folio/internal/models"
)

const contractURI = "folio://content-format"

// Server wraps the MCP server with Folio tools.
type Server struct {
	mcp *server.MCPServer
	svc *blogservice.Service
}

// New creates a new MCP server with all Folio tools registered.
func New(svc *blogservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Folio",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_entries",
		mcp.WithDescription("Search entry sources for any of the whitespace-separated words. Newest first."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search words")),
		mcp.WithNumber("page", mcp.Description("1-based page (default 1)")),
	), s.searchEntries)

	s.mcp.AddTool(mcp.NewTool("read_entry",
		mcp.WithDescription("Read one entry or page by URL, including its rendered HTML, tags and neighbours."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Document URL (e.g. /blog/2023/01/05/hello.html or /about.html)")),
	), s.readEntry)

	s.mcp.AddTool(mcp.NewTool("read_raw",
		mcp.WithDescription("Read the Markdown source behind a raw URL."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Raw URL (e.g. /raw/2023/01/05/hello.md)")),
	), s.readRaw)

	s.mcp.AddTool(mcp.NewTool("list_by_tag",
		mcp.WithDescription("List entries carrying a tag, newest first."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name (case-sensitive)")),
		mcp.WithNumber("page", mcp.Description("1-based page (default 1)")),
	), s.listByTag)

	s.mcp.AddTool(mcp.NewTool("list_by_category",
		mcp.WithDescription("List entries filed under a category, newest first."),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category name (case-sensitive)")),
		mcp.WithNumber("page", mcp.Description("1-based page (default 1)")),
	), s.listByCategory)

	s.mcp.AddTool(mcp.NewTool("archive",
		mcp.WithDescription("List entries by date. An empty path lists every entry."),
		mcp.WithString("path", mcp.Description("YYYY, YYYY/MM or YYYY/MM/DD")),
		mcp.WithNumber("page", mcp.Description("1-based page (default 1)")),
	), s.archive)

	s.mcp.AddTool(mcp.NewTool("get_widgets",
		mcp.WithDescription("Return tag ranks, categories, recent entries, the calendar and the monthly archive."),
	), s.getWidgets)

	s.mcp.AddTool(mcp.NewTool("get_content_contract",
		mcp.WithDescription("Returns how Folio maps content files to URLs, tags and categories."),
	), s.getContentContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Content Format",
			mcp.WithResourceDescription("How content files map to documents and URLs."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// entrySummary is the compact listing form of a document.
type entrySummary struct {
	URL     string   `json:"url"`
	Name    string   `json:"name"`
	Date    string   `json:"date"`
	Excerpt string   `json:"excerpt,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

type listing struct {
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	Pages   int            `json:"pages"`
	Entries []entrySummary `json:"entries"`
}

func summarize(docs []*models.Document) []entrySummary {
	out := make([]entrySummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, entrySummary{URL: d.ID, Name: d.Name, Date: d.Date, Excerpt: d.Excerpt, Tags: d.Tags})
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func searchResult(v *models.View, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(listing{
		Total:   v.Pager.Total,
		Page:    v.Pager.Page,
		Pages:   v.Pager.Pages,
		Entries: summarize(v.Entries),
	})
}

func (s *Server) searchEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query must not be empty"), nil
	}
	return searchResult(s.svc.Search(ctx, query, req.GetInt("page", 1), 0))
}

func (s *Server) readEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg := s.svc.Config()
	var v *models.View
	if rest, ok := strings.CutPrefix(u, cfg.EntryURL+"/"); ok {
		v, err = s.svc.Entry(ctx, rest)
	} else {
		v, err = s.svc.Page(ctx, u)
	}
	if err != nil {
		return mcp.NewToolResultError("not found: " + u), nil
	}
	return jsonResult(struct {
		*models.Document
		Abouts  []models.About `json:"abouts"`
		Related []entrySummary `json:"related,omitempty"`
	}{v.Entry, v.Abouts, summarize(v.Entries)})
}

func (s *Server) readRaw(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rest := strings.TrimPrefix(u, s.svc.Config().RawURL+"/")
	src, err := s.svc.Raw(ctx, rest)
	if err != nil {
		return mcp.NewToolResultError("not found: " + u), nil
	}
	return mcp.NewToolResultText(src), nil
}

func (s *Server) listByTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return searchResult(s.svc.Tag(ctx, tag, req.GetInt("page", 1), 0))
}

func (s *Server) listByCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return searchResult(s.svc.Category(ctx, category, req.GetInt("page", 1), 0))
}

func (s *Server) archive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := s.svc.Archive(ctx, req.GetString("path", ""), req.GetInt("page", 1), 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(listing{
		Total:   v.Archive.Count,
		Page:    v.Archive.Page,
		Pages:   v.Archive.Pages,
		Entries: summarize(v.Entries),
	})
}

func (s *Server) getWidgets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Widgets(ctx))
}

func (s *Server) getContentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ContentFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     ContentFormatContract,
		},
	}, nil
}
