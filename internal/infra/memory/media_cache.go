package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/darkevich777/anime-quiz/internal/domain"
	"golang.org/x/sync/singleflight"
)

// PageLoader fetches one page of anime records from a backing source
// (the AniList API or a curated bank).
type PageLoader interface {
	LoadPage(ctx context.Context, page int) ([]domain.Media, error)
}

// MediaCache caches pages with TTL to avoid hammering the question source:
// decoy resampling draws many pages per generated question.
type MediaCache struct {
	loader PageLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int]cachedPage
}

type cachedPage struct {
	media     []domain.Media
	expiresAt time.Time
}

func NewMediaCache(loader PageLoader, ttl time.Duration) *MediaCache {
	return &MediaCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int]cachedPage),
	}
}

func (c *MediaCache) LoadPage(ctx context.Context, page int) ([]domain.Media, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[page]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.media, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(strconv.Itoa(page), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[page]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.media, nil
		}
		c.mu.RUnlock()

		media, err := c.loader.LoadPage(ctx, page)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[page] = cachedPage{
			media:     media,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return media, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Media), nil
}

func (c *MediaCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
