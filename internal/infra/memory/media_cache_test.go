package memory

import (
	"context"
	"testing"
	"time"

	"github.com/darkevich777/anime-quiz/internal/domain"
	"github.com/darkevich777/anime-quiz/internal/infra/anilist"
)

func TestMediaCacheCaches(t *testing.T) {
	loader := &countingLoader{
		PageLoader: anilist.NewStaticMediaSource(anilist.SampleMedia()),
	}
	cache := NewMediaCache(loader, time.Minute)

	if _, err := cache.LoadPage(context.Background(), 1); err != nil {
		t.Fatalf("load page: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := cache.LoadPage(context.Background(), 1); err != nil {
		t.Fatalf("load page 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}

	// A different page misses.
	if _, err := cache.LoadPage(context.Background(), 2); err != nil {
		t.Fatalf("load page 3: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected loader again for new page, got %d", loader.calls)
	}
}

func TestMediaCacheExpires(t *testing.T) {
	loader := &countingLoader{
		PageLoader: anilist.NewStaticMediaSource(anilist.SampleMedia()),
	}
	cache := NewMediaCache(loader, time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	if _, err := cache.LoadPage(context.Background(), 1); err != nil {
		t.Fatalf("load page: %v", err)
	}

	// Jitter stretches the TTL by at most 10%, so 2 minutes is past expiry.
	now = now.Add(2 * time.Minute)
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
