package index

import "slices"

// Recency is every entry id sorted descending. Ids carry their date as a
// prefix, so this is newest first.
type Recency struct {
	ids []string
}

// Rebuild replaces the sequence with the store's ids, sorted descending.
func (r *Recency) Rebuild(s *Store) {
	ids := s.IDs()
	slices.Sort(ids)
	slices.Reverse(ids)
	r.ids = ids
}

// IDs returns the current sequence. Callers must not modify it.
func (r *Recency) IDs() []string { return r.ids }

// Position returns the index of id, or -1.
func (r *Recency) Position(id string) int { return slices.Index(r.ids, id) }

// Window is one page of an id sequence.
type Window struct {
	IDs       []string
	Total     int
	PageCount int
	Page      int
	Size      int
}

// Paginate slices page (1-based) of size out of ids. An empty ids, page < 1 or
// size <= 0 yields an empty window with total 0. A page past the end yields no
// ids but still reports the true total.
func Paginate(ids []string, page, size int) Window {
	w := Window{Page: page, Size: size}
	if len(ids) == 0 || page < 1 || size <= 0 {
		return w
	}
	w.Total = len(ids)
	w.PageCount = PageCount(w.Total, size)
	if page > w.PageCount {
		return w
	}
	start := (page - 1) * size
	end := min(start+size, w.Total)
	w.IDs = ids[start:end]
	return w
}

// PageCount is ceil(total / size), or 0 when size is not positive.
func PageCount(total, size int) int {
	if size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
