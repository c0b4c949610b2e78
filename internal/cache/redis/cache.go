// Package redis caches review listing pages in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/repository"
)

const keyPrefix = "vingo:reviews:"

var cacheRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vingo_review_cache_requests_total",
		Help: "Review listing cache lookups by result (hit, miss, error).",
	},
	[]string{"result"},
)

// PageCache implements repository.ReviewPageCache. Each item has a version
// counter; page keys embed it, so bumping the counter orphans every page,
// which then expires with the TTL.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ repository.ReviewPageCache = (*PageCache)(nil)

// NewPageCache creates a cache whose pages live for ttl.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	return &PageCache{client: client, ttl: ttl}
}

func versionKey(itemID string) string {
	return keyPrefix + "ver:" + itemID
}

func pageKey(f repository.ReviewFilter, version int64) string {
	return fmt.Sprintf("%spage:%s:v%d:%s:%d:%d", keyPrefix, f.ItemID, version, f.Sort, f.Page, f.PerPage)
}

func (c *PageCache) version(ctx context.Context, itemID string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(itemID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get cache version: %w", err)
	}
	return v, nil
}

func (c *PageCache) GetPage(ctx context.Context, filter repository.ReviewFilter) (*domain.ReviewPage, int64, error) {
	version, err := c.version(ctx, filter.ItemID)
	if err != nil {
		cacheRequests.WithLabelValues("error").Inc()
		return nil, 0, err
	}

	data, err := c.client.Get(ctx, pageKey(filter, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		cacheRequests.WithLabelValues("miss").Inc()
		return nil, version, nil
	}
	if err != nil {
		cacheRequests.WithLabelValues("error").Inc()
		return nil, version, fmt.Errorf("redis get review page: %w", err)
	}

	var page domain.ReviewPage
	if err := json.Unmarshal(data, &page); err != nil {
		cacheRequests.WithLabelValues("error").Inc()
		return nil, version, fmt.Errorf("unmarshal review page: %w", err)
	}
	cacheRequests.WithLabelValues("hit").Inc()
	return &page, version, nil
}

func (c *PageCache) SetPage(ctx context.Context, filter repository.ReviewFilter, version int64, page *domain.ReviewPage) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal review page: %w", err)
	}
	if err := c.client.Set(ctx, pageKey(filter, version), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set review page: %w", err)
	}
	return nil
}

func (c *PageCache) Invalidate(ctx context.Context, itemID string) error {
	if err := c.client.Incr(ctx, versionKey(itemID)).Err(); err != nil {
		return fmt.Errorf("redis bump cache version: %w", err)
	}
	return nil
}

// Noop is the cache used when Redis is not configured. Every read misses.
type Noop struct{}

var _ repository.ReviewPageCache = Noop{}

func (Noop) GetPage(context.Context, repository.ReviewFilter) (*domain.ReviewPage, int64, error) {
	return nil, 0, nil
}

func (Noop) SetPage(context.Context, repository.ReviewFilter, int64, *domain.ReviewPage) error {
	return nil
}

func (Noop) Invalidate(context.Context, string) error { return nil }
