package mcpserver

// ContentFormatContract describes how content files map to documents, so
// LLM consumers can tell which file sits behind a URL and vice versa.
const ContentFormatContract = `# Folio Content Format

Folio indexes two read-only trees of Markdown files: entries and pages.

## File names

- Entries are named ` + "`" + `YYYY-MM-DD-slug.md` + "`" + ` (any of ` + "`" + `_ - ~` + "`" + ` may follow
  the date). The date becomes the entry date; files without a date prefix
  use their modification time.
- Pages are named ` + "`" + `slug.md` + "`" + `.
- Separators in the slug are shown as spaces in the display name.

## URLs

- Entry:      ` + "`" + `/blog/YYYY/MM/DD/slug.html` + "`" + `
- Page:       ` + "`" + `/slug.html` + "`" + `
- Raw source: ` + "`" + `/raw/YYYY/MM/DD/slug.md` + "`" + ` and ` + "`" + `/raw/slug.md` + "`" + `
- Archive:    ` + "`" + `/archive` + "`" + `, ` + "`" + `/archive/YYYY` + "`" + `, ` + "`" + `/archive/YYYY/MM` + "`" + `, ` + "`" + `/archive/YYYY/MM/DD` + "`" + `
- Tag:        ` + "`" + `/tag/name` + "`" + `
- Category:   ` + "`" + `/category/name` + "`" + `

## Frontmatter

` + "```" + `markdown
---
title: Human-readable title   # OPTIONAL - overrides the file-name display name
tags: [go, notes]             # OPTIONAL - YAML list or comma-separated string
categories: dev               # OPTIONAL - defaults to the entry's top directory
---
` + "```" + `

Inline ` + "`" + `#tag` + "`" + ` words in the body are added to the tag list. Tags and
categories are matched case-sensitively.

## Search

` + "`" + `search_entries` + "`" + ` splits the query on whitespace and returns entries whose
Markdown source contains any of the words, newest first. Pages are never
returned by search, tag, category or archive listings.
`
