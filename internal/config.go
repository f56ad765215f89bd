package internal

import (
	"fmt"
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/parser"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Content ContentConfig     `yaml:"content"`
	Blog    index.Config      `yaml:"blog"`
	Cache   CacheConfig       `yaml:"cache"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	if err := c.Blog.Validate(); err != nil {
		return fmt.Errorf("blog: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig says where entries and pages live and which files count.
// PagesDir is optional.
type ContentConfig struct {
	EntriesDir    string   `yaml:"entries_dir"`
	PagesDir      string   `yaml:"pages_dir"`
	Includes      []string `yaml:"includes"`
	Excludes      []string `yaml:"excludes"`
	ParseWorkers  int      `yaml:"parse_workers"`
	ExcerptLength int      `yaml:"excerpt_length"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.EntriesDir, validation.Required),
		validation.Field(&c.Includes, validation.Each(validation.By(glob))),
		validation.Field(&c.Excludes, validation.Each(validation.By(glob))),
		validation.Field(&c.ParseWorkers, validation.Min(0)),
		validation.Field(&c.ExcerptLength, validation.Min(0)),
	)
}

func glob(v any) error {
	s, _ := v.(string)
	if !doublestar.ValidatePattern(s) {
		return validation.NewError("validation_glob", "must be a valid glob pattern")
	}
	return nil
}

// CacheConfig configures the SQLite render cache and the in-memory result
// cache. An empty Path disables the render cache; a zero ResultSize disables
// the result cache.
type CacheConfig struct {
	Path       string `yaml:"path"`
	ResultSize int    `yaml:"result_size"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ResultSize, validation.Min(0)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			EntriesDir:    "./content/entries",
			PagesDir:      "./content/pages",
			ExcerptLength: parser.DefaultExcerptLength,
		},
		Blog: index.DefaultConfig(),
		Cache: CacheConfig{
			Path:       "./folio-cache.db",
			ResultSize: 256,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
