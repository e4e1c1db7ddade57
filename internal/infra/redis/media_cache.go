package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/darkevich777/anime-quiz/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// PageLoader fetches one page of anime records from a backing source
// (the AniList API or a curated bank).
type PageLoader interface {
	LoadPage(ctx context.Context, page int) ([]domain.Media, error)
}

// MediaCache caches pages in Redis (JSON blob per page) and falls back to the
// loader on cache miss. Pages are stored as: SET anilist:page:{n} {json} EX ttl.
type MediaCache struct {
	client *redis.Client
	loader PageLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewMediaCache(client *redis.Client, loader PageLoader, ttl time.Duration) *MediaCache {
	return &MediaCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *MediaCache) LoadPage(ctx context.Context, page int) ([]domain.Media, error) {
	key := c.pageKey(page)

	if media, ok := c.cached(ctx, key); ok {
		return media, nil
	}

	result, err, _ := c.sf.Do(strconv.Itoa(page), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if media, ok := c.cached(ctx, key); ok {
			return media, nil
		}

		media, err := c.loader.LoadPage(ctx, page)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(media); err == nil {
			// best-effort cache fill
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return media, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Media), nil
}

func (c *MediaCache) cached(ctx context.Context, key string) ([]domain.Media, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var media []domain.Media
	if err := json.Unmarshal(data, &media); err != nil || len(media) == 0 {
		return nil, false
	}
	return media, true
}

func (c *MediaCache) pageKey(page int) string {
	return fmt.Sprintf("anilist:page:%d", page)
}

func (c *MediaCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
