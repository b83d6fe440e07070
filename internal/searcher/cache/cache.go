// Package cache provides a Redis-backed cache for search responses. Entries
// are keyed by normalised query, filters, and page; concurrent identical
// queries are collapsed with singleflight; Redis failures trip a circuit
// breaker so a down cache degrades to direct execution instead of adding
// latency to every search.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/aiteacher/chat-search-service/internal/searcher"
	"github.com/aiteacher/chat-search-service/pkg/config"
	pkgredis "github.com/aiteacher/chat-search-service/pkg/redis"
	"github.com/aiteacher/chat-search-service/pkg/resilience"
)

const keyPrefix = "chatsearch:"

// QueryCache caches search responses in Redis.
type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache over the given Redis client.
func New(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{}),
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached response for a request, if present.
func (c *QueryCache) Get(ctx context.Context, req searcher.Request) (*searcher.Response, bool) {
	key := c.buildKey(req)
	var data string
	err := c.breaker.Execute(func() error {
		var getErr error
		data, getErr = c.client.Get(ctx, key)
		if pkgredis.IsNilError(getErr) {
			data = ""
			return nil
		}
		return getErr
	})
	if err != nil {
		c.logger.Debug("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	if data == "" {
		c.misses.Add(1)
		return nil, false
	}

	var resp searcher.Response
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &resp, true
}

// Set stores a response under the request's key with the configured TTL.
func (c *QueryCache) Set(ctx context.Context, req searcher.Request, resp *searcher.Response) {
	key := c.buildKey(req)
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.breaker.Execute(func() error {
		return c.client.Set(ctx, key, data, c.cfg.CacheTTL)
	}); err != nil {
		c.logger.Debug("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns a cached response or computes and caches one,
// collapsing concurrent identical requests.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	req searcher.Request,
	computeFn func() (*searcher.Response, error),
) (*searcher.Response, bool, error) {
	if resp, ok := c.Get(ctx, req); ok {
		return resp, true, nil
	}
	key := c.buildKey(req)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if resp, ok := c.Get(ctx, req); ok {
			return resp, nil
		}
		resp, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, req, resp)
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*searcher.Response), false, nil
}

// Invalidate removes every cached search response. Called after each
// successful ingest so searches always see the new message.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var flushErr error
		deleted, flushErr = c.client.FlushByPattern(ctx, keyPrefix+"*")
		return flushErr
	})
	if err != nil {
		return fmt.Errorf("invalidating query cache: %w", err)
	}
	c.logger.Debug("query cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns cumulative hit and miss counts.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// buildKey hashes the normalised request into a fixed-length cache key.
// Word order is part of the key: phrase scoring, result ordering, and the
// echoed query all depend on it, so "alpha beta" and "beta alpha" must not
// share an entry. Only case and whitespace are normalised away.
func (c *QueryCache) buildKey(req searcher.Request) string {
	query := strings.Join(strings.Fields(strings.ToLower(req.Query)), " ")
	raw := fmt.Sprintf("%s|role=%s|type=%s|from=%s|to=%s|lang=%s|limit=%d|offset=%d",
		query,
		req.Filters.Role,
		req.Filters.Type,
		req.Filters.DateFrom,
		req.Filters.DateTo,
		req.Filters.Language,
		req.Limit,
		req.Offset,
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
