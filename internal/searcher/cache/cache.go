package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix = "collegesearch:"
	// defaultComputeTimeout bounds a shared search once it no longer
	// follows the cancellation of the request that started it.
	defaultComputeTimeout = 10 * time.Second
)

// Backend is the slice of the Redis client the cache needs.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	client         Backend
	cfg            config.RedisConfig
	group          singleflight.Group
	computeTimeout time.Duration
	metrics        *metrics.Metrics
	logger         *slog.Logger
	hits           atomic.Int64
	misses         atomic.Int64
}

func New(client Backend, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:         client,
		cfg:            cfg,
		computeTimeout: defaultComputeTimeout,
		metrics:        m,
		logger:         slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, req service.Request) (*service.Response, bool) {
	key := BuildKey(req)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var resp service.Response
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "key", key)
	return &resp, true
}

func (c *QueryCache) Set(ctx context.Context, req service.Request, resp *service.Response) {
	if resp.Degraded {
		return
	}
	key := BuildKey(req)
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute serves req from the cache or computes it once for every
// concurrent caller with the same key. The shared computation is detached
// from the cancellation of whichever caller started it; each caller stops
// waiting when its own ctx is done.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	req service.Request,
	computeFn func(ctx context.Context) (*service.Response, error),
) (*service.Response, bool, error) {
	if resp, ok := c.Get(ctx, req); ok {
		return resp, true, nil
	}
	key := BuildKey(req)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()
		resp, err := computeFn(shared)
		if err != nil {
			return nil, err
		}
		c.Set(shared, req, resp)
		return resp, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*service.Response), false, nil
	case <-ctx.Done():
		return nil, false, fmt.Errorf("waiting for shared search: %w", ctx.Err())
	}
}

// Invalidate drops every cached search. It runs after each catalog write.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey hashes the trimmed request fields. Field values keep their case so
// a cached response always carries the exact partials it was built from.
func BuildKey(req service.Request) string {
	parts := []string{
		"course_level=" + strings.TrimSpace(req.CourseLevel),
		"state=" + strings.TrimSpace(req.State),
		"location=" + strings.TrimSpace(req.Location),
		"college_name=" + strings.TrimSpace(req.CollegeName),
		"branch=" + strings.TrimSpace(req.Branch),
		"max_fees=" + strings.TrimSpace(req.MaxFees),
		"target_score=" + strings.TrimSpace(req.TargetScore),
	}
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
