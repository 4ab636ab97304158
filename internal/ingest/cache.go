package ingest

import "github.com/Sumatoshi-tech/simlsh/pkg/alg/lru"

// ColumnCache holds the most recently materialized column sets per file
// path, so a repeated ingest of a file already in the cache skips
// re-parsing the CSV.
type ColumnCache struct {
	cache *lru.Cache[string, map[string]*ColumnSet]
}

// NewColumnCache creates a column cache holding up to size entries.
func NewColumnCache(size int) *ColumnCache {
	return &ColumnCache{
		cache: lru.New[string, map[string]*ColumnSet](lru.WithMaxEntries[string, map[string]*ColumnSet](size)),
	}
}

// Get returns the cached columns for path, if present.
func (c *ColumnCache) Get(path string) (map[string]*ColumnSet, bool) {
	return c.cache.Get(path)
}

// Put caches the columns materialized for path.
func (c *ColumnCache) Put(path string, columns map[string]*ColumnSet) {
	c.cache.Put(path, columns)
}
