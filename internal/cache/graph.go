package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/WeWriteApp/pagechain/internal/model"
	"github.com/sirupsen/logrus"
)

func graphKey(pageID string) string {
	return "graph:" + pageID
}

// GraphCache stores per-page multi-hop connection summaries on top of
// a generic Cache. A missing entry, an expired entry, or a schema
// version mismatch are all plain misses, never errors.
type GraphCache struct {
	cache Cache
	ttl   time.Duration
}

func NewGraphCache(cache Cache, ttl time.Duration) *GraphCache {
	return &GraphCache{cache: cache, ttl: ttl}
}

// Get returns the cached entry for pageID, or nil on any kind of miss.
func (g *GraphCache) Get(ctx context.Context, pageID string) *model.GraphEntry {
	data, err := g.cache.Get(ctx, graphKey(pageID))
	if err != nil {
		return nil
	}

	var entry model.GraphEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}
	if entry.SchemaVersion != model.GraphSchemaVersion {
		return nil
	}

	return &entry
}

// Set stores an entry, stamping the schema version and cache time.
func (g *GraphCache) Set(ctx context.Context, pageID string, entry *model.GraphEntry) error {
	entry.SchemaVersion = model.GraphSchemaVersion
	entry.CachedAt = time.Now()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return g.cache.Set(ctx, graphKey(pageID), data, g.ttl)
}

// IsValid reports whether a cached entry exists and is younger than
// maxAge.
func (g *GraphCache) IsValid(ctx context.Context, pageID string, maxAge time.Duration) bool {
	entry := g.Get(ctx, pageID)
	if entry == nil {
		return false
	}
	return time.Since(entry.CachedAt) <= maxAge
}

// Invalidate drops the entry for one page. Failures are swallowed.
func (g *GraphCache) Invalidate(ctx context.Context, pageID string) {
	if err := g.cache.Invalidate(ctx, graphKey(pageID)); err != nil {
		logrus.Warnf("graph cache invalidate failed for %s: %v", pageID, err)
	}
}

// InvalidateMany drops entries for a set of pages. Failures are
// swallowed.
func (g *GraphCache) InvalidateMany(ctx context.Context, pageIDs []string) {
	if len(pageIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(pageIDs))
	for _, id := range pageIDs {
		keys = append(keys, graphKey(id))
	}
	if err := g.cache.InvalidateMany(ctx, keys); err != nil {
		logrus.Warnf("graph cache invalidate failed for %d pages: %v", len(pageIDs), err)
	}
}
