// Package seasoncache holds the process-wide bangumi season-title cache
// (spec.md §4.9): a mutex-guarded map, lazily populated by a fetch on each
// miss; concurrent misses for one season may each fetch. Per spec.md §9, this is the only long-lived mutable
// shared state in the pipeline; no invalidation is implemented.
package seasoncache

import (
	"context"
	"fmt"
	"sync"

	"github.com/brackenfield/mediasync/internal/pathplan"
)

// Fetcher hits the site's unauthenticated season endpoint for a title.
// Implementations live alongside internal/source's Client collaborator.
type Fetcher interface {
	FetchSeasonTitle(ctx context.Context, seasonID string) (string, error)
}

type Cache struct {
	mu      sync.Mutex
	titles  map[string]string
	fetcher Fetcher
}

func New(fetcher Fetcher) *Cache {
	return &Cache{titles: make(map[string]string), fetcher: fetcher}
}

// Title returns the normalized cached title for seasonID, fetching once on
// a cache miss. On fetch error it returns ("", false) so the caller falls
// back to the title heuristics in internal/pathplan; it does not cache the
// miss, since concurrent misses duplicating the fetch is acceptable
// (spec.md §4.9) and a transient fetch failure shouldn't poison the cache
// for a later, successful attempt.
func (c *Cache) Title(ctx context.Context, seasonID string) (string, bool) {
	c.mu.Lock()
	if title, ok := c.titles[seasonID]; ok {
		c.mu.Unlock()
		return title, true
	}
	c.mu.Unlock()

	if c.fetcher == nil {
		return "", false
	}
	raw, err := c.fetcher.FetchSeasonTitle(ctx, seasonID)
	if err != nil || raw == "" {
		return "", false
	}
	title := pathplan.NormalizeSeasonTitle(raw)

	c.mu.Lock()
	c.titles[seasonID] = title
	c.mu.Unlock()
	return title, true
}

// Put seeds the cache directly, for callers (and tests) that already have
// a title in hand and want to skip the fetch.
func (c *Cache) Put(seasonID, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.titles[seasonID] = pathplan.NormalizeSeasonTitle(title)
}

func (c *Cache) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("seasoncache(%d entries)", len(c.titles))
}
