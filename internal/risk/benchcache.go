package risk

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/quantforge/decider/internal/market"
	"github.com/quantforge/decider/internal/metrics"
)

// benchmarkEntry is one immutable snapshot of benchmark history. The
// cache swaps whole entries atomically, so readers never observe a
// partially written refresh.
type benchmarkEntry struct {
	bars      []market.Candle
	fetchedAt time.Time
}

// benchmarkCache is a single-entry, TTL-bounded cache for benchmark
// price history. Refresh is overwrite-safe: two concurrent refreshes
// both fetch and the later swap wins, which is harmless for identical
// data.
type benchmarkCache struct {
	ttl     time.Duration
	entry   atomic.Pointer[benchmarkEntry]
	fetches atomic.Int64
}

func newBenchmarkCache(ttl time.Duration) *benchmarkCache {
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	return &benchmarkCache{ttl: ttl}
}

// get returns cached benchmark bars, refreshing through fetch when the
// entry is missing or stale.
func (c *benchmarkCache) get(ctx context.Context, fetch func(context.Context) ([]market.Candle, error)) ([]market.Candle, error) {
	if entry := c.entry.Load(); entry != nil && time.Since(entry.fetchedAt) < c.ttl {
		return entry.bars, nil
	}

	c.fetches.Add(1)
	metrics.RecordBenchmarkFetch()
	bars, err := fetch(ctx)
	if err != nil {
		// Keep serving a stale entry over nothing.
		if entry := c.entry.Load(); entry != nil {
			return entry.bars, nil
		}
		return nil, err
	}

	c.entry.Store(&benchmarkEntry{bars: bars, fetchedAt: time.Now()})
	return bars, nil
}

// fetchCount reports how many provider fetches the cache has issued.
func (c *benchmarkCache) fetchCount() int64 {
	return c.fetches.Load()
}

// invalidate drops the cached entry.
func (c *benchmarkCache) invalidate() {
	c.entry.Store(nil)
}
