package index

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/starford/folio/internal/models"
)

// buildWidgets derives a fresh widget set. now supplies the calendar month
// when there are no entries.
func (st *state) buildWidgets(now time.Time) *models.Widgets {
	return &models.Widgets{
		Tags:       RankTags(st.tags.Entries(), st.cfg.Ranks),
		Recent:     st.recent(st.cfg.Recently),
		Categories: st.categories.Entries(),
		Calendar:   st.calendar(now),
		Archive:    st.archiveList(),
	}
}

// RankTags sorts tags by count, highest first, and splits them by position
// into ranks equal bands; every tag in band i gets Rank i+1. The last band
// absorbs the remainder. With fewer tags than bands each tag is its own band.
func RankTags(tags []models.BucketEntry, ranks int) []models.BucketEntry {
	slices.SortStableFunc(tags, func(a, b models.BucketEntry) int {
		return cmp.Compare(b.Count, a.Count)
	})
	n := len(tags)
	if n == 0 || ranks <= 0 {
		return tags
	}
	size := n / ranks
	if size == 0 {
		ranks, size = n, 1
	}
	for i := range tags {
		tags[i].Rank = min(i/size, ranks-1) + 1
	}
	return tags
}

// recent returns the first n entries of the recency index.
func (st *state) recent(n int) []*models.Document {
	ids := st.recency.IDs()
	ids = ids[:min(n, len(ids))]
	out := make([]*models.Document, 0, len(ids))
	for _, id := range ids {
		if doc, err := st.entries.Get(id); err == nil {
			out = append(out, doc)
		}
	}
	return out
}

// calendar counts entries per day in the month of the newest entry, or in
// now's month when there are none. Scanning stops at the first id outside
// that month, which relies on the recency index being sorted descending.
func (st *state) calendar(now time.Time) models.Calendar {
	ids := st.recency.IDs()
	year, month := now.Format("2006"), now.Format("01")
	if len(ids) > 0 {
		if eid, err := ParseEntryID(st.cfg.EntryURL, ids[0]); err == nil {
			year, month = eid.Year, eid.Month
		}
	}
	cal := models.Calendar{Month: year + "-" + month}
	prefix := st.cfg.EntryURL + "/" + year + "/" + month + "/"
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			break
		}
		eid, err := ParseEntryID(st.cfg.EntryURL, id)
		if err != nil {
			break
		}
		d, _ := strconv.Atoi(eid.Day)
		if d < 1 || d >= len(cal.Counts) {
			continue
		}
		cal.Counts[d]++
		if cal.Counts[d] > 1 {
			cal.URLs[d] = st.cfg.ArchiveURL + "/" + eid.DayPath()
		} else {
			cal.URLs[d] = id
		}
	}
	return cal
}

// archiveList returns the month buckets, newest month first.
func (st *state) archiveList() []models.BucketEntry {
	months := st.months.Entries()
	slices.SortFunc(months, func(a, b models.BucketEntry) int {
		return strings.Compare(b.URL, a.URL)
	})
	return months
}

func (st *state) neighbors(id string) (prev, next *models.Document) {
	ids := st.recency.IDs()
	i := st.recency.Position(id)
	if i < 0 {
		return nil, nil
	}
	if i+1 < len(ids) {
		prev, _ = st.entries.Get(ids[i+1])
	}
	if i > 0 {
		next, _ = st.entries.Get(ids[i-1])
	}
	return prev, next
}

// related draws cfg.RelatedSamples positions uniformly with replacement from
// the recency index, de-duplicates them and, if at least two survive, returns
// those entries newest first. Otherwise it returns nil.
func (e *Engine) related() []*models.Document {
	ids := e.st.recency.IDs()
	if len(ids) == 0 {
		return nil
	}
	picked := make(map[int]struct{}, e.cfg.RelatedSamples)
	e.rngMu.Lock()
	for range e.cfg.RelatedSamples {
		picked[e.rng.IntN(len(ids))] = struct{}{}
	}
	e.rngMu.Unlock()
	if len(picked) < 2 {
		return nil
	}

	positions := make([]int, 0, len(picked))
	for p := range picked {
		positions = append(positions, p)
	}
	// Positions ascending is ids descending.
	slices.Sort(positions)
	out := make([]*models.Document, 0, len(positions))
	for _, p := range positions {
		if doc, err := e.st.entries.Get(ids[p]); err == nil {
			out = append(out, doc)
		}
	}
	return out
}
