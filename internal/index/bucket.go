package index

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// KeyFunc extracts the secondary keys a document is filed under.
type KeyFunc func(doc *models.Document) []string

// BucketIndex maps a secondary key to the ids filed under it, most recently
// added first. A bucket exists only while its count is positive.
type BucketIndex struct {
	name    string
	keys    KeyFunc
	url     func(key string) string
	buckets map[string]*models.BucketEntry
}

// NewBucketIndex creates an index that files documents under keys(doc) and
// labels each bucket with url(key).
func NewBucketIndex(name string, keys KeyFunc, url func(key string) string) *BucketIndex {
	return &BucketIndex{
		name:    name,
		keys:    keys,
		url:     url,
		buckets: make(map[string]*models.BucketEntry),
	}
}

// OnAdd files id under key, creating the bucket on first reference.
func (b *BucketIndex) OnAdd(key, id string) {
	be, ok := b.buckets[key]
	if !ok {
		b.buckets[key] = &models.BucketEntry{
			Key:   key,
			IDs:   []string{id},
			Count: 1,
			URL:   b.url(key),
		}
		return
	}
	be.IDs = slices.Insert(be.IDs, 0, id)
	be.Count++
}

// OnRemove unfiles id from key and drops the bucket when it empties. A missing
// bucket or id means the index and the store have diverged.
func (b *BucketIndex) OnRemove(key, id string) error {
	be, ok := b.buckets[key]
	if !ok {
		return fmt.Errorf("%w: %s index has no bucket %q for %s", apperr.ErrInvariantViolation, b.name, key, id)
	}
	i := slices.Index(be.IDs, id)
	if i < 0 {
		return fmt.Errorf("%w: %s bucket %q does not hold %s", apperr.ErrInvariantViolation, b.name, key, id)
	}
	be.IDs = slices.Delete(be.IDs, i, i+1)
	be.Count--
	if be.Count == 0 {
		delete(b.buckets, key)
	}
	return nil
}

// Add files doc under each of its keys.
func (b *BucketIndex) Add(doc *models.Document) {
	for _, key := range b.keys(doc) {
		b.OnAdd(key, doc.ID)
	}
}

// Remove unfiles doc from each of its keys. Every key is attempted even if an
// earlier one fails.
func (b *BucketIndex) Remove(doc *models.Document) error {
	var errs []error
	for _, key := range b.keys(doc) {
		if err := b.OnRemove(key, doc.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns a copy of the bucket for key.
func (b *BucketIndex) Get(key string) (models.BucketEntry, bool) {
	be, ok := b.buckets[key]
	if !ok {
		return models.BucketEntry{}, false
	}
	return cloneBucket(be), true
}

// Entries returns copies of every bucket ordered by key.
func (b *BucketIndex) Entries() []models.BucketEntry {
	out := make([]models.BucketEntry, 0, len(b.buckets))
	for _, be := range b.buckets {
		out = append(out, cloneBucket(be))
	}
	slices.SortFunc(out, func(x, y models.BucketEntry) int {
		return strings.Compare(x.Key, y.Key)
	})
	return out
}

// Len returns the number of buckets.
func (b *BucketIndex) Len() int { return len(b.buckets) }

func cloneBucket(be *models.BucketEntry) models.BucketEntry {
	c := *be
	c.IDs = slices.Clone(be.IDs)
	return c
}
