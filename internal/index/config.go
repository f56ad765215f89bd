package index

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config is the URL scheme and widget sizing the engine works with.
type Config struct {
	EntryURL    string `yaml:"entry_url"`
	ArchiveURL  string `yaml:"archive_url"`
	RawURL      string `yaml:"raw_url"`
	TagURL      string `yaml:"tag_url"`
	CategoryURL string `yaml:"category_url"`
	URLSuffix   string `yaml:"url_suffix"`
	RawSuffix   string `yaml:"raw_suffix"`
	DateLayout  string `yaml:"date_layout"`
	TimeLayout  string `yaml:"time_layout"`

	// Ranks is the number of popularity bands in the tag cloud.
	Ranks int `yaml:"ranks"`
	// Recently is the length of the recent-entries widget.
	Recently int `yaml:"recently"`
	// PageSize and ArchiveSize are the defaults used by callers that do not
	// specify a page size.
	PageSize    int `yaml:"page_size"`
	ArchiveSize int `yaml:"archive_size"`
	// RelatedSamples is how many positions are drawn for related entries.
	RelatedSamples int `yaml:"related_samples"`
}

// DefaultConfig returns the URL scheme used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		EntryURL:       "/blog",
		ArchiveURL:     "/archive",
		RawURL:         "/raw",
		TagURL:         "/tag",
		CategoryURL:    "/category",
		URLSuffix:      ".html",
		RawSuffix:      ".md",
		DateLayout:     "2006-01-02",
		TimeLayout:     "2006-01-02 15:04:05",
		Ranks:          5,
		Recently:       10,
		PageSize:       10,
		ArchiveSize:    1000,
		RelatedSamples: 10,
	}
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.EntryURL, validation.Required, validation.By(urlPrefix)),
		validation.Field(&c.ArchiveURL, validation.Required, validation.By(urlPrefix)),
		validation.Field(&c.RawURL, validation.Required, validation.By(urlPrefix)),
		validation.Field(&c.TagURL, validation.Required, validation.By(urlPrefix)),
		validation.Field(&c.CategoryURL, validation.Required, validation.By(urlPrefix)),
		validation.Field(&c.DateLayout, validation.Required),
		validation.Field(&c.TimeLayout, validation.Required),
		validation.Field(&c.Ranks, validation.Required, validation.Min(1)),
		validation.Field(&c.Recently, validation.Required, validation.Min(1)),
		validation.Field(&c.PageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.ArchiveSize, validation.Required, validation.Min(1)),
		validation.Field(&c.RelatedSamples, validation.Required, validation.Min(2)),
	)
}

// urlPrefix requires a leading slash and no trailing slash.
func urlPrefix(v any) error {
	s, _ := v.(string)
	if !strings.HasPrefix(s, "/") || (len(s) > 1 && strings.HasSuffix(s, "/")) {
		return validation.NewError("validation_url_prefix", "must start with / and not end with /")
	}
	return nil
}
