package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/seenimoa/marketlens/pkg/models"
)

// ThrottledSource wraps a Source with token-bucket rate limiting so
// callers stay inside a provider's request budget. Each underlying fetch
// consumes a token; when the bucket is empty the call blocks until a
// refill or the context ends.
type ThrottledSource struct {
	next Source

	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

// NewThrottledSource allows maxCalls underlying fetches per interval.
func NewThrottledSource(next Source, maxCalls int, interval time.Duration) *ThrottledSource {
	return &ThrottledSource{
		next:       next,
		tokens:     maxCalls,
		maxTokens:  maxCalls,
		refillRate: interval,
		lastRefill: time.Now(),
	}
}

// History fetches price history once a token is available.
func (t *ThrottledSource) History(ctx context.Context, ticker string, interval models.Interval, start, end time.Time) (*models.PriceSeries, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.History(ctx, ticker, interval, start, end)
}

// Statements fetches raw statements once a token is available.
func (t *ThrottledSource) Statements(ctx context.Context, ticker string) (*models.RawStatementTable, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.Statements(ctx, ticker)
}

// OptionChain fetches the chain once a token is available.
func (t *ThrottledSource) OptionChain(ctx context.Context, ticker string) (*models.OptionChain, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.OptionChain(ctx, ticker)
}

// wait blocks until a token is available or the context is done.
func (t *ThrottledSource) wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		t.refill()
		if t.tokens > 0 {
			t.tokens--
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
			// Check again after a short sleep.
		}
	}
}

// refill adds tokens for elapsed whole periods. Must be called with mu
// held.
func (t *ThrottledSource) refill() {
	now := time.Now()
	elapsed := now.Sub(t.lastRefill)
	if elapsed >= t.refillRate {
		periods := int(elapsed / t.refillRate)
		t.tokens += periods
		if t.tokens > t.maxTokens {
			t.tokens = t.maxTokens
		}
		t.lastRefill = t.lastRefill.Add(time.Duration(periods) * t.refillRate)
	}
}
