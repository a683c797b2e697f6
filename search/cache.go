package search

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Cached is a read-through cache over another Searcher. The pipeline asks
// the same fixed query on every request, so hits are the common case and
// a short TTL keeps the answer current.
type Cached struct {
	inner Searcher
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCached wraps a Searcher with a ristretto cache.
func NewCached(inner Searcher, ttl time.Duration) (*Cached, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Cached{inner: inner, cache: cache, ttl: ttl}, nil
}

// Search returns the cached answer when present, otherwise delegates and
// stores the result.
func (c *Cached) Search(ctx context.Context, query string) (string, error) {
	if v, ok := c.cache.Get(query); ok {
		if text, ok := v.(string); ok {
			log.Printf("[SEARCH] Cache hit for %q", query)
			return text, nil
		}
	}

	text, err := c.inner.Search(ctx, query)
	if err != nil {
		return "", err
	}

	c.cache.SetWithTTL(query, text, int64(len(text)), c.ttl)
	// Ristretto admits writes asynchronously; wait so the next request
	// within the TTL sees the entry.
	c.cache.Wait()
	return text, nil
}
