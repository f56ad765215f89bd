package index

import (
	"fmt"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// Store is the canonical id -> Document map for one kind.
type Store struct {
	docs map[string]*models.Document
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string]*models.Document)}
}

// Put inserts or overwrites doc by ID.
func (s *Store) Put(doc *models.Document) {
	s.docs[doc.ID] = doc
}

// Get returns the document stored under id.
func (s *Store) Get(id string) (*models.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, id)
	}
	return doc, nil
}

// Remove deletes id and returns the removed document.
func (s *Store) Remove(id string) (*models.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, id)
	}
	delete(s.docs, id)
	return doc, nil
}

// FindBySourcePath scans for the document loaded from path.
func (s *Store) FindBySourcePath(path string) (*models.Document, error) {
	for _, doc := range s.docs {
		if doc.SourcePath == path {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("%w: source %s", apperr.ErrNotFound, path)
}

// IDs returns every stored id in unspecified order.
func (s *Store) IDs() []string {
	out := make([]string, 0, len(s.docs))
	for id := range s.docs {
		out = append(out, id)
	}
	return out
}

// Len returns the number of stored documents.
func (s *Store) Len() int { return len(s.docs) }
