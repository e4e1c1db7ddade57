package redis

import (
	"context"
	"testing"
	"time"

	"github.com/darkevich777/anime-quiz/internal/domain"
	"github.com/darkevich777/anime-quiz/internal/infra/anilist"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMediaCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		PageLoader: anilist.NewStaticMediaSource(anilist.SampleMedia()),
	}
	cache := NewMediaCache(client, loader, time.Minute)

	media, err := cache.LoadPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("load page: %v", err)
	}
	if len(media) == 0 {
		t.Fatalf("expected media, got none")
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit cache, loader not incremented.
	_, _ = cache.LoadPage(context.Background(), 1)
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}

	if !mr.Exists("anilist:page:1") {
		t.Fatalf("expected page cached in redis")
	}
}

func TestMediaCacheExpiresInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		PageLoader: anilist.NewStaticMediaSource(anilist.SampleMedia()),
	}
	cache := NewMediaCache(newClient(mr), loader, time.Minute)

	_, _ = cache.LoadPage(context.Background(), 1)
	mr.FastForward(2 * time.Minute)

	if _, err := cache.LoadPage(context.Background(), 1); err != nil {
		t.Fatalf("load page after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, got %d calls", loader.calls)
	}
}

type countingLoader struct {
	PageLoader
	calls int
}

func (l *countingLoader) LoadPage(ctx context.Context, page int) ([]domain.Media, error) {
	l.calls++
	return l.PageLoader.LoadPage(ctx, page)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
