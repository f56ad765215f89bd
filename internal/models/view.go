package models

// SearchKind selects what Search filters on.
type SearchKind string

const (
	SearchQuery    SearchKind = "query"
	SearchTag      SearchKind = "tag"
	SearchCategory SearchKind = "category"
	SearchIndex    SearchKind = "index"
)

// ArchiveKind selects the URL namespace an archive request came from.
type ArchiveKind string

const (
	ArchiveDate ArchiveKind = "archive"
	ArchiveRaw  ArchiveKind = "raw"
)

// AboutKind labels a navigation block.
type AboutKind string

const (
	AboutEntry   AboutKind = "entry"
	AboutBlog    AboutKind = "blog"
	AboutArchive AboutKind = "archive"
)

// ArchiveAll is the archive value reported for the empty (unfiltered) archive path.
const ArchiveAll = "all"

// Calendar counts entries per day of one month. Counts and URLs are indexed by
// day of month; index 0 is unused.
type Calendar struct {
	Month  string     `json:"month"`
	Counts [32]int    `json:"counts"`
	URLs   [32]string `json:"urls"`
}

// Widgets is the derived display state. A Widgets value is never mutated after
// it is published by the engine.
type Widgets struct {
	Tags       []BucketEntry `json:"tags"`
	Recent     []*Document   `json:"recently_entries"`
	Categories []BucketEntry `json:"categories"`
	Calendar   Calendar      `json:"calendar"`
	Archive    []BucketEntry `json:"archive"`
}

// About is a navigation block. Empty URLs mean no link in that direction.
type About struct {
	Kind     AboutKind `json:"kind"`
	PrevURL  string    `json:"prev_url,omitempty"`
	PrevName string    `json:"prev_name,omitempty"`
	NextURL  string    `json:"next_url,omitempty"`
	NextName string    `json:"next_name,omitempty"`
}

// Subscribe carries feed metadata.
type Subscribe struct {
	Updated string `json:"updated"`
}

// SearchInfo describes the search that produced a view.
// Invalid is set when the page or page size was not positive.
type SearchInfo struct {
	Kind    SearchKind `json:"kind"`
	Value   string     `json:"value"`
	Total   int        `json:"total"`
	Invalid bool       `json:"invalid,omitempty"`
}

// Pager is pagination metadata for a view.
type Pager struct {
	Kind  SearchKind `json:"kind"`
	Value string     `json:"value"`
	Total int        `json:"total"`
	Pages int        `json:"pages"`
	Page  int        `json:"page"`
	Size  int        `json:"size"`
}

// ArchiveInfo describes an archive request. Invalid is set when the path did
// not match YYYY, YYYY/MM or YYYY/MM/DD, or the page was not positive.
type ArchiveInfo struct {
	Kind    ArchiveKind `json:"kind"`
	URL     string      `json:"url"`
	Value   string      `json:"value"`
	Count   int         `json:"count"`
	Page    int         `json:"page"`
	Pages   int         `json:"pages"`
	Invalid bool        `json:"invalid,omitempty"`
}

// ErrorInfo records the requested URL so the presentation layer can render a
// not-found page.
type ErrorInfo struct {
	URL string `json:"url"`
}

// View is the read-only view model returned by every outbound engine call.
//
// Entries == nil means the tag or category does not exist, or the archive
// request was rejected (ArchiveInfo.Invalid). A search with a bad page or size
// sets SearchInfo.Invalid and carries an empty non-nil slice, as does a valid
// request that matched nothing on this page.
type View struct {
	Subscribe Subscribe    `json:"subscribe"`
	Widgets   *Widgets     `json:"widgets"`
	Abouts    []About      `json:"abouts"`
	Entry     *Document    `json:"entry,omitempty"`
	Entries   []*Document  `json:"entries"`
	Search    *SearchInfo  `json:"search,omitempty"`
	Pager     *Pager       `json:"pager,omitempty"`
	Archive   *ArchiveInfo `json:"archive,omitempty"`
	Error     ErrorInfo    `json:"error"`
}
