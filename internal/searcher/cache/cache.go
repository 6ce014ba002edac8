// Package cache memoises search results in Redis. Concurrent identical
// queries are collapsed with singleflight, and Redis calls go through a
// circuit breaker so an unavailable cache degrades to direct execution.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/newsrank/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/resilience"
)

const keyPrefix = "newsrank:search:"

// Store is the subset of pkg/redis.Client the cache uses. Get returns
// pkgredis.ErrMiss for absent keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, cfg config.RedisConfig) *QueryCache {
	c := &QueryCache{
		store:  store,
		ttl:    cfg.CacheTTL,
		logger: slog.Default().With("component", "query-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     15 * time.Second,
		OnStateChange: func(name string, _, to resilience.State) {
			if c.metrics != nil {
				c.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// WithMetrics records hits, misses and breaker state into m.
func (c *QueryCache) WithMetrics(m *metrics.Metrics) *QueryCache {
	c.metrics = m
	m.CircuitBreakerState.WithLabelValues(c.breaker.Name()).Set(float64(c.breaker.GetState()))
	return c
}

// Get returns a cached result for plan. Any store failure is reported as a
// miss.
func (c *QueryCache) Get(ctx context.Context, plan *parser.QueryPlan, limit int, champions bool) (*executor.SearchResult, bool) {
	key := Key(plan, limit, champions)
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		if errors.Is(err, pkgredis.ErrMiss) {
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	if data == nil {
		c.recordMiss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	c.logger.Debug("cache hit", "query", plan.RawQuery, "key", key)
	result.Query = plan.RawQuery
	result.Terms = plan.Terms
	return &result, true
}

// Set stores result for plan with the configured TTL.
func (c *QueryCache) Set(ctx context.Context, plan *parser.QueryPlan, limit int, champions bool, result *executor.SearchResult) {
	key := Key(plan, limit, champions)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or runs computeFn once for all
// concurrent callers with the same key. The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	plan *parser.QueryPlan,
	limit int,
	champions bool,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, plan, limit, champions); ok {
		return result, true, nil
	}
	key := Key(plan, limit, champions)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, plan, limit, champions, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached search result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.store.DeletePrefix(ctx, keyPrefix)
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns hit and miss counts since start.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState returns the state of the Redis circuit breaker.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Key derives the cache key from the query's terms, which makes it
// independent of term order, case and punctuation in the raw query.
// Duplicates are kept because they change term weights.
func Key(plan *parser.QueryPlan, limit int, champions bool) string {
	terms := make([]string, len(plan.Terms))
	copy(terms, plan.Terms)
	sort.Strings(terms)
	raw := fmt.Sprintf("%s|limit=%d|mode=%s", strings.Join(terms, "\x1f"), limit, metrics.Mode(champions))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
