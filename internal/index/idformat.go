package index

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/folio/internal/apperr"
)

// EntryID is a parsed entry id of the form <prefix>/YYYY/MM/DD/<slug>.
type EntryID struct {
	Year  string
	Month string
	Day   string
	Slug  string
}

// MonthKey is the month bucket key, YYYY-MM.
func (e EntryID) MonthKey() string { return e.Year + "-" + e.Month }

// monthPath turns a month key into its archive path, YYYY/MM.
func monthPath(key string) string { return strings.Replace(key, "-", "/", 1) }

// DayPath is YYYY/MM/DD.
func (e EntryID) DayPath() string { return e.Year + "/" + e.Month + "/" + e.Day }

// dateSegment is the fixed-width "YYYY/MM/DD/" that follows the entry prefix.
const dateSegment = len("yyyy/mm/dd/")

// ParseEntryID parses id against the entry grammar. The date segment is read
// at fixed offsets after prefix; ids whose date fields are not all digits, or
// whose slug is empty, are rejected with apperr.ErrInvalidID.
func ParseEntryID(prefix, id string) (EntryID, error) {
	rest, ok := strings.CutPrefix(id, prefix+"/")
	if !ok {
		return EntryID{}, fmt.Errorf("%w: %q does not start with %q", apperr.ErrInvalidID, id, prefix+"/")
	}
	if len(rest) <= dateSegment ||
		rest[4] != '/' || rest[7] != '/' || rest[10] != '/' ||
		!isDigits(rest[0:4]) || !isDigits(rest[5:7]) || !isDigits(rest[8:10]) {
		return EntryID{}, fmt.Errorf("%w: %q does not match %s/YYYY/MM/DD/<slug>", apperr.ErrInvalidID, id, prefix)
	}
	return EntryID{
		Year:  rest[0:4],
		Month: rest[5:7],
		Day:   rest[8:10],
		Slug:  rest[dateSegment:],
	}, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

var archivePathRe = regexp.MustCompile(`^(\d{4})(?:/(\d{2})(?:/(\d{2}))?)?$`)

// parseArchivePath validates the part of an archive URL after the archive
// prefix. Accepted forms are "", YYYY, YYYY/MM and YYYY/MM/DD with a month in
// 01-12 and a day in 01-31. The trimmed path is returned even when invalid.
func parseArchivePath(p string) (string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "", nil
	}
	m := archivePathRe.FindStringSubmatch(p)
	if m == nil {
		return p, fmt.Errorf("%w: archive path %q", apperr.ErrInvalidQuery, p)
	}
	if m[2] != "" && !inRange(m[2], 1, 12) {
		return p, fmt.Errorf("%w: month out of range in %q", apperr.ErrInvalidQuery, p)
	}
	if m[3] != "" && !inRange(m[3], 1, 31) {
		return p, fmt.Errorf("%w: day out of range in %q", apperr.ErrInvalidQuery, p)
	}
	return p, nil
}

func inRange(s string, lo, hi int) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= lo && n <= hi
}
