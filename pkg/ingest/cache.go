package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seenimoa/marketlens/pkg/models"
	"github.com/seenimoa/marketlens/pkg/utils"
)

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// CachedSource wraps a Source with a thread-safe in-memory TTL cache so
// repeated analysis runs do not refetch identical payloads. Only
// successful fetches are cached; errors always pass through.
type CachedSource struct {
	next Source
	ttl  time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCachedSource wraps next with a cache holding results for ttl.
func NewCachedSource(next Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		next:    next,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// History returns the cached series for the exact same request, fetching
// through on a miss.
func (c *CachedSource) History(ctx context.Context, ticker string, interval models.Interval, start, end time.Time) (*models.PriceSeries, error) {
	key := fmt.Sprintf("history|%s|%s|%d|%d", utils.NormalizeTicker(ticker), interval, start.Unix(), end.Unix())
	if v, ok := c.get(key); ok {
		return v.(*models.PriceSeries), nil
	}
	series, err := c.next.History(ctx, ticker, interval, start, end)
	if err != nil {
		return nil, err
	}
	c.set(key, series)
	return series, nil
}

// Statements returns the cached raw statements for the ticker, fetching
// through on a miss.
func (c *CachedSource) Statements(ctx context.Context, ticker string) (*models.RawStatementTable, error) {
	key := "statements|" + utils.NormalizeTicker(ticker)
	if v, ok := c.get(key); ok {
		return v.(*models.RawStatementTable), nil
	}
	table, err := c.next.Statements(ctx, ticker)
	if err != nil {
		return nil, err
	}
	c.set(key, table)
	return table, nil
}

// OptionChain returns the cached chain for the ticker, fetching through
// on a miss.
func (c *CachedSource) OptionChain(ctx context.Context, ticker string) (*models.OptionChain, error) {
	key := "chain|" + utils.NormalizeTicker(ticker)
	if v, ok := c.get(key); ok {
		return v.(*models.OptionChain), nil
	}
	chain, err := c.next.OptionChain(ctx, ticker)
	if err != nil {
		return nil, err
	}
	c.set(key, chain)
	return chain, nil
}

// Flush drops every cached payload.
func (c *CachedSource) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func (c *CachedSource) get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

func (c *CachedSource) set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
