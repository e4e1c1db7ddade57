package anilist_test

import (
	"context"
	"testing"

	"github.com/darkevich777/anime-quiz/internal/domain"
	"github.com/darkevich777/anime-quiz/internal/infra/anilist"
)

func TestGeneratorProducesValidQuestions(t *testing.T) {
	gen := anilist.NewGenerator(anilist.NewStaticMediaSource(anilist.SampleMedia()))

	for i := 0; i < 20; i++ {
		q, err := gen.FetchQuestion(context.Background())
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if len(q.Options) != 4 {
			t.Fatalf("expected 4 options, got %d: %v", len(q.Options), q.Options)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			t.Fatalf("correct index %d out of range", q.CorrectIndex)
		}
		seen := make(map[string]struct{}, len(q.Options))
		for _, opt := range q.Options {
			if opt == "" {
				t.Fatalf("empty option in %v", q.Options)
			}
			if _, dup := seen[opt]; dup {
				t.Fatalf("duplicate option in %v", q.Options)
			}
			seen[opt] = struct{}{}
		}
		if q.ID == "" || q.Prompt == "" || q.Explanation == "" {
			t.Fatalf("incomplete question: %+v", q)
		}
	}
}

func TestGeneratorFailsOnDegeneratePool(t *testing.T) {
	// One record with a single attribute per kind cannot yield three distinct decoys.
	pool := []domain.Media{
		{ID: 1, Title: "Solo", Genres: []string{"Action"}, Studio: "Only", Characters: []string{"Hero"}},
	}
	gen := anilist.NewGenerator(anilist.NewStaticMediaSource(pool))

	if _, err := gen.FetchQuestion(context.Background()); err == nil {
		t.Fatalf("expected failure on degenerate pool")
	}
}

func TestGeneratorSurfacesLoaderErrors(t *testing.T) {
	gen := anilist.NewGenerator(anilist.NewStaticMediaSource(nil))

	if _, err := gen.FetchQuestion(context.Background()); err == nil {
		t.Fatalf("expected loader error")
	}
}
