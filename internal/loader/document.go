package loader

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/parser"
)

// datePrefixRe matches a leading YYYY-M-D date in a file stem.
var datePrefixRe = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})`)

// nameSeparators are stripped once after a date prefix and replaced by spaces
// in display names.
const nameSeparators = "_-~"

// fileName is what a content file's path says about its document.
type fileName struct {
	Slug  string
	Date  time.Time
	Dated bool
}

// parseFileName splits a relative path's stem into an optional date prefix
// and a slug. Dates that do not exist on the calendar are not treated as
// dates.
func parseFileName(rel string) fileName {
	stem := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	m := datePrefixRe.FindStringSubmatch(stem)
	if m == nil {
		return fileName{Slug: stem}
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	date := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.Local)
	if date.Year() != y || int(date.Month()) != mo || date.Day() != d {
		return fileName{Slug: stem}
	}
	slug := stem[len(m[0]):]
	if slug != "" && strings.ContainsRune(nameSeparators, rune(slug[0])) {
		slug = slug[1:]
	}
	if slug == "" {
		slug = stem
	}
	return fileName{Slug: slug, Date: date, Dated: true}
}

// displayName replaces name separators with spaces.
func displayName(slug string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(nameSeparators, r) {
			return ' '
		}
		return r
	}, slug)
}

// defaultCategory is the first directory of rel, or "" at the top level.
func defaultCategory(rel string) string {
	dir := path.Dir(rel)
	if dir == "." || dir == "/" {
		return ""
	}
	first, _, _ := strings.Cut(dir, "/")
	return first
}

// buildDocument assembles a Document from a parsed file. sourcePath is the
// file's absolute path, rel its path within the content root and modTime the
// fallback date for files without a date prefix.
func buildDocument(cfg index.Config, kind models.Kind, sourcePath, rel string, modTime time.Time, content string, res *parser.Result) *models.Document {
	fn := parseFileName(rel)
	date := modTime
	if fn.Dated {
		date = fn.Date
	}

	doc := &models.Document{
		Kind:       kind,
		SourcePath: sourcePath,
		Name:       displayName(fn.Slug),
		Date:       date.Format(cfg.DateLayout),
		Time:       date.Format(cfg.TimeLayout),
		Content:    content,
		HTML:       res.HTML,
		Excerpt:    res.Excerpt,
		Tags:       res.Tags,
		Categories: res.Categories,
	}
	if t, ok := res.Frontmatter["title"].(string); ok && t != "" {
		doc.Name = res.Title
	}

	switch kind {
	case models.KindPage:
		doc.ID = "/" + fn.Slug + cfg.URLSuffix
		doc.RawID = cfg.RawURL + "/" + fn.Slug + cfg.RawSuffix
	default:
		day := date.Format("2006/01/02")
		doc.ID = cfg.EntryURL + "/" + day + "/" + fn.Slug + cfg.URLSuffix
		doc.RawID = cfg.RawURL + "/" + day + "/" + fn.Slug + cfg.RawSuffix
		if len(doc.Categories) == 0 {
			if c := defaultCategory(rel); c != "" {
				doc.Categories = []string{c}
			}
		}
	}
	return doc
}
