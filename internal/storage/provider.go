// Package storage defines the read-only content tree abstraction.
package storage

import "time"

// FileInfo describes one content file. Path is slash-separated and relative
// to the provider root.
type FileInfo struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Provider is the interface for content file access.
type Provider interface {
	// Root returns the absolute directory the provider serves.
	Root() string
	// List returns every file under the root that passes the include and
	// exclude globs.
	List() ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Stat returns metadata for the file at path (relative to root).
	Stat(path string) (FileInfo, error)
	// Match reports whether a relative path passes the include and exclude globs.
	Match(path string) bool
	// Rel converts an absolute path under the root to a relative one.
	Rel(abs string) (string, error)
}
