// Package parser extracts frontmatter, tags, categories, an excerpt and
// rendered HTML from Markdown content.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// DefaultExcerptLength is the excerpt limit in runes when none is set.
const DefaultExcerptLength = 200

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
	Tags        []string
	Categories  []string
	Excerpt     string
	HTML        string
}

// Parser renders Markdown with goldmark. It is safe for concurrent use.
type Parser struct {
	md         goldmark.Markdown
	excerptLen int
}

// New creates a Parser whose excerpts are cut at excerptLen runes. A
// non-positive excerptLen uses DefaultExcerptLength.
func New(excerptLen int) *Parser {
	if excerptLen <= 0 {
		excerptLen = DefaultExcerptLength
	}
	return &Parser{
		md:         goldmark.New(goldmark.WithExtensions(extension.GFM)),
		excerptLen: excerptLen,
	}
}

// Parse extracts frontmatter, body, tags, categories, title and excerpt from
// raw Markdown bytes and renders the body to HTML.
func (p *Parser) Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)

	src := []byte(body)
	doc := p.md.Parser().Parse(text.NewReader(src))

	var html bytes.Buffer
	if err := p.md.Renderer().Render(&html, src, doc); err != nil {
		return nil, fmt.Errorf("parser: render: %w", err)
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, doc, src),
		Tags:        extractTags(body, fm),
		Categories:  stringList(fm, "categories"),
		Excerpt:     truncate(firstParagraph(doc, src), p.excerptLen),
		HTML:        html.String(),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: the whole file is body.
		return nil, string(data)
	}
	return fm, body
}

// stringList reads a frontmatter field given either as a YAML list or as a
// comma-separated string.
func stringList(fm map[string]interface{}, key string) []string {
	raw, ok := fm[key]
	if !ok {
		return nil
	}
	var items []string
	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
	case string:
		items = strings.Split(v, ",")
	}

	var out []string
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s != "" && !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// extractTags collects tags from frontmatter "tags" first, then inline #tags
// from the body.
func extractTags(body string, fm map[string]interface{}) []string {
	out := stringList(fm, "tags")
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		if !contains(out, m[1]) {
			out = append(out, m[1])
		}
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, doc ast.Node, src []byte) string {
	if t, ok := fm["title"].(string); ok && t != "" {
		return t
	}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			return plainText(h, src)
		}
	}
	return ""
}

func firstParagraph(doc ast.Node, src []byte) string {
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if n.Kind() == ast.KindParagraph {
			return plainText(n, src)
		}
	}
	return ""
}

// plainText concatenates the text leaves under n.
func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "…"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
