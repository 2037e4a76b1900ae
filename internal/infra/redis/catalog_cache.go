// Package redis holds the Redis-backed infrastructure: a catalog cache in
// front of a slower source and the best-effort open-room index.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"dilemma-arena/internal/catalog"
	"dilemma-arena/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const catalogKey = "dilemmas:catalog"

// CatalogCache is a catalog.Source that caches the full dilemma set as one
// JSON blob and falls back to the wrapped source on a miss. Concurrent
// misses share a single fill via singleflight.
type CatalogCache struct {
	client *redis.Client
	source catalog.Source
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalogCache(client *redis.Client, source catalog.Source, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) LoadDilemmas(ctx context.Context) ([]domain.Dilemma, error) {
	if dilemmas, ok := c.cached(ctx); ok {
		return dilemmas, nil
	}

	result, err, _ := c.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if dilemmas, ok := c.cached(ctx); ok {
			return dilemmas, nil
		}

		dilemmas, err := c.source.LoadDilemmas(ctx)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(dilemmas)
		if err != nil {
			return nil, fmt.Errorf("marshal catalog: %w", err)
		}
		// Best-effort cache write; the loaded set is still returned.
		_ = c.client.Set(ctx, catalogKey, data, c.ttlWithJitter()).Err()
		return dilemmas, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Dilemma), nil
}

func (c *CatalogCache) cached(ctx context.Context) ([]domain.Dilemma, bool) {
	raw, err := c.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		return nil, false
	}
	var dilemmas []domain.Dilemma
	if err := json.Unmarshal(raw, &dilemmas); err != nil {
		return nil, false
	}
	return dilemmas, len(dilemmas) > 0
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
