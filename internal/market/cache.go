package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantforge/decider/internal/config"
	"github.com/rs/zerolog"
)

// CachedProvider wraps a DataProvider with Redis caching. Quotes are
// cached briefly, historical bars and company info for longer. Cache
// failures are logged and fall through to the underlying provider, so
// an unavailable Redis never blocks a decision.
type CachedProvider struct {
	provider DataProvider
	redis    *redis.Client
	quoteTTL time.Duration
	logger   zerolog.Logger
}

// NewCachedProvider creates a caching layer over the given provider.
func NewCachedProvider(provider DataProvider, redisClient *redis.Client, quoteTTL time.Duration) *CachedProvider {
	if quoteTTL <= 0 {
		quoteTTL = 15 * time.Second
	}
	return &CachedProvider{
		provider: provider,
		redis:    redisClient,
		quoteTTL: quoteTTL,
		logger:   config.NewLogger("market_cache"),
	}
}

// GetQuote fetches a quote, cache-aside.
func (c *CachedProvider) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	key := fmt.Sprintf("market:quote:%s", symbol)

	var quote Quote
	if c.lookup(ctx, key, &quote) {
		return &quote, nil
	}

	fresh, err := c.provider.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	c.store(key, fresh, c.quoteTTL)
	return fresh, nil
}

// GetHistoricalData fetches bars, cache-aside. Daily history changes at
// most once per bar, so it is cached for five minutes.
func (c *CachedProvider) GetHistoricalData(ctx context.Context, symbol, period, interval string) ([]Candle, error) {
	key := fmt.Sprintf("market:history:%s:%s:%s", symbol, period, interval)

	var bars []Candle
	if c.lookup(ctx, key, &bars) {
		return bars, nil
	}

	fresh, err := c.provider.GetHistoricalData(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}
	c.store(key, fresh, 5*time.Minute)
	return fresh, nil
}

// GetCompanyInfo fetches company metadata, cache-aside with a long TTL
// since it changes rarely.
func (c *CachedProvider) GetCompanyInfo(ctx context.Context, symbol string) (*CompanyInfo, error) {
	key := fmt.Sprintf("market:info:%s", symbol)

	var info CompanyInfo
	if c.lookup(ctx, key, &info) {
		return &info, nil
	}

	fresh, err := c.provider.GetCompanyInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}
	c.store(key, fresh, 10*time.Minute)
	return fresh, nil
}

// lookup reads and unmarshals a cache entry. Returns false on miss,
// Redis error or a corrupt entry.
func (c *CachedProvider) lookup(ctx context.Context, key string, target interface{}) bool {
	cached, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Redis lookup failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(cached), target); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Corrupt cache entry, fetching fresh")
		return false
	}
	c.logger.Debug().Str("key", key).Msg("Cache hit")
	return true
}

// store writes a cache entry asynchronously so a slow Redis never
// delays the caller.
func (c *CachedProvider) store(key string, value interface{}, ttl time.Duration) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		data, err := json.Marshal(value)
		if err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Failed to marshal cache entry")
			return
		}
		if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Failed to write cache entry")
		}
	}()
}

// InvalidateSymbol drops every cached entry for a symbol.
func (c *CachedProvider) InvalidateSymbol(ctx context.Context, symbol string) error {
	patterns := []string{
		fmt.Sprintf("market:quote:%s", symbol),
		fmt.Sprintf("market:history:%s:*", symbol),
		fmt.Sprintf("market:info:%s", symbol),
	}
	for _, pattern := range patterns {
		iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
				c.logger.Warn().Err(err).Str("key", iter.Val()).Msg("Failed to delete cache key")
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("cache invalidation failed: %w", err)
		}
	}
	return nil
}
