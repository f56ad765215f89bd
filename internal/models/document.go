// Package models defines the domain types for Folio.
package models

// Kind distinguishes the two document namespaces.
type Kind string

const (
	KindEntry Kind = "entry"
	KindPage  Kind = "page"
)

// Document is one parsed entry or page.
//
// ID is the URL path and is unique within its Kind. SourcePath is only used
// to match deletion notifications, which carry a file path rather than an ID.
type Document struct {
	ID         string   `json:"url"`
	Kind       Kind     `json:"kind"`
	RawID      string   `json:"raw_url"`
	SourcePath string   `json:"-"`
	Name       string   `json:"name"`
	Date       string   `json:"date"`
	Time       string   `json:"time"`
	Content    string   `json:"-"`
	HTML       string   `json:"html"`
	Excerpt    string   `json:"excerpt"`
	Tags       []string `json:"tags"`
	Categories []string `json:"categories"`
}

// BucketEntry is one key of a secondary index. Count always equals len(IDs).
type BucketEntry struct {
	Key   string   `json:"name"`
	IDs   []string `json:"urls"`
	Count int      `json:"count"`
	Rank  int      `json:"rank,omitempty"`
	URL   string   `json:"url"`
}

// PageResult is one page of a result set. Total counts the whole set, not Items.
type PageResult struct {
	Items     []*Document `json:"items"`
	Total     int         `json:"total"`
	PageCount int         `json:"page_count"`
	Page      int         `json:"page"`
	PageSize  int         `json:"page_size"`
}
