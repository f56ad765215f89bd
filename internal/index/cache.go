package index

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/folio/internal/models"
)

// DefaultCacheSize is the number of paged results kept when no size is set.
const DefaultCacheSize = 256

type cacheKey struct {
	kind  models.SearchKind
	value string
	page  int
	size  int
}

// resultCache memoises paged query results between mutations. A nil
// *resultCache is a disabled cache.
type resultCache struct {
	lru *lru.Cache[cacheKey, *models.PageResult]
}

func newResultCache(size int) *resultCache {
	if size <= 0 {
		return nil
	}
	c, err := lru.New[cacheKey, *models.PageResult](size)
	if err != nil {
		return nil
	}
	return &resultCache{lru: c}
}

func (c *resultCache) get(k cacheKey) (*models.PageResult, bool) {
	if c == nil {
		return nil, false
	}
	res, ok := c.lru.Get(k)
	if ok {
		cacheLookups.WithLabelValues("hit").Inc()
	} else {
		cacheLookups.WithLabelValues("miss").Inc()
	}
	return res, ok
}

func (c *resultCache) put(k cacheKey, res *models.PageResult) {
	if c == nil {
		return
	}
	c.lru.Add(k, res)
}

// purge drops every cached result. Called on each mutation.
func (c *resultCache) purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}
