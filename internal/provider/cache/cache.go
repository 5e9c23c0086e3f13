package cache

import (
	"context"
	"sync"
	"time"

	"stockbars/internal/provider"
)

// entry stores cached rows for a single query with expiry.
type entry struct {
	expiresAt time.Time
	rows      []provider.Row
}

// Provider caches History results per query for a TTL. Errors and empty
// results are never cached.
type Provider struct {
	P        provider.Provider
	TTL      time.Duration
	MaxItems int

	mu    sync.RWMutex
	items map[provider.Query]entry
}

func (c *Provider) Name() string            { return c.P.Name() }
func (c *Provider) Schema() provider.Schema { return c.P.Schema() }

// History returns rows for q from cache when still valid.
func (c *Provider) History(ctx context.Context, q provider.Query) ([]provider.Row, error) {
	if c.TTL <= 0 {
		return c.P.History(ctx, q)
	}

	now := time.Now()
	c.mu.RLock()
	if e, ok := c.items[q]; ok && now.Before(e.expiresAt) {
		c.mu.RUnlock()
		return e.rows, nil
	}
	c.mu.RUnlock()

	rows, err := c.P.History(ctx, q)
	if err != nil || len(rows) == 0 {
		return rows, err
	}

	c.mu.Lock()
	if c.items == nil {
		c.items = make(map[provider.Query]entry)
	}
	c.items[q] = entry{expiresAt: now.Add(c.TTL), rows: rows}
	// best-effort cap cache size
	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		// remove expired first, then arbitrary
		for k, v := range c.items {
			if now.After(v.expiresAt) {
				delete(c.items, k)
			}
		}
		for k := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			if k != q {
				delete(c.items, k)
			}
		}
	}
	c.mu.Unlock()
	return rows, nil
}
