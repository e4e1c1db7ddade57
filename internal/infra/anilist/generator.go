package anilist

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/darkevich777/anime-quiz/internal/domain"
	"github.com/google/uuid"
)

// PageLoader loads one page of anime records from a backing source
// (the AniList API, a cache in front of it, or a curated bank).
type PageLoader interface {
	LoadPage(ctx context.Context, page int) ([]domain.Media, error)
}

const (
	maxPage      = 100
	maxResamples = 12
	decoyCount   = 3
)

type questionKind string

const (
	kindGenre     questionKind = "genre"
	kindYear      questionKind = "year"
	kindStudio    questionKind = "studio"
	kindCharacter questionKind = "character"
)

// Generator builds multiple-choice questions from drawn anime records.
// Decoys are resampled from fresh draws until three distinct wrong options
// exist, bounded by a retry ceiling so a degenerate source fails instead of looping.
type Generator struct {
	loader PageLoader

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(loader PageLoader) *Generator {
	return &Generator{
		loader: loader,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FetchQuestion draws a base anime and builds a question about it, trying the
// question kinds in random order until one is applicable.
func (g *Generator) FetchQuestion(ctx context.Context) (domain.Question, error) {
	base, err := g.draw(ctx)
	if err != nil {
		return domain.Question{}, err
	}

	var lastErr error
	for _, kind := range g.shuffledKinds() {
		q, err := g.build(ctx, kind, base)
		if err == nil {
			return q, nil
		}
		lastErr = err
	}
	return domain.Question{}, fmt.Errorf("no question for «%s»: %w", base.Title, lastErr)
}

func (g *Generator) build(ctx context.Context, kind questionKind, base domain.Media) (domain.Question, error) {
	switch kind {
	case kindGenre:
		if len(base.Genres) == 0 {
			return domain.Question{}, fmt.Errorf("no genres for «%s»", base.Title)
		}
		correct := base.Genres[g.intn(len(base.Genres))]
		decoys, err := g.collectDecoys(ctx, correct, func(m domain.Media) string {
			if len(m.Genres) == 0 {
				return ""
			}
			return m.Genres[g.intn(len(m.Genres))]
		})
		if err != nil {
			return domain.Question{}, err
		}
		prompt := fmt.Sprintf("К какому жанру относится аниме «%s»?", base.Title)
		return g.assemble(base, prompt, correct, decoys), nil

	case kindYear:
		if base.Year == 0 {
			return domain.Question{}, fmt.Errorf("no release year for «%s»", base.Title)
		}
		decoys, err := g.yearDecoys(base.Year)
		if err != nil {
			return domain.Question{}, err
		}
		prompt := fmt.Sprintf("В каком году вышло аниме «%s»?", base.Title)
		return g.assemble(base, prompt, strconv.Itoa(base.Year), decoys), nil

	case kindStudio:
		if base.Studio == "" {
			return domain.Question{}, fmt.Errorf("no studio for «%s»", base.Title)
		}
		decoys, err := g.collectDecoys(ctx, base.Studio, func(m domain.Media) string {
			return m.Studio
		})
		if err != nil {
			return domain.Question{}, err
		}
		prompt := fmt.Sprintf("Какая студия выпустила аниме «%s»?", base.Title)
		return g.assemble(base, prompt, base.Studio, decoys), nil

	default: // kindCharacter
		if len(base.Characters) == 0 {
			return domain.Question{}, fmt.Errorf("no characters for «%s»", base.Title)
		}
		correct := base.Characters[0]
		decoys, err := g.collectDecoys(ctx, correct, func(m domain.Media) string {
			if len(m.Characters) == 0 {
				return ""
			}
			return m.Characters[0]
		})
		if err != nil {
			return domain.Question{}, err
		}
		prompt := fmt.Sprintf("Кто главный герой в аниме «%s»?", base.Title)
		return g.assemble(base, prompt, correct, decoys), nil
	}
}

// collectDecoys resamples fresh draws for distinct wrong options.
func (g *Generator) collectDecoys(ctx context.Context, correct string, pick func(domain.Media) string) ([]string, error) {
	decoys := make([]string, 0, decoyCount)
	seen := map[string]struct{}{correct: {}}
	for attempt := 0; attempt < maxResamples && len(decoys) < decoyCount; attempt++ {
		m, err := g.draw(ctx)
		if err != nil {
			return nil, err
		}
		value := pick(m)
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		decoys = append(decoys, value)
	}
	if len(decoys) < decoyCount {
		return nil, fmt.Errorf("insufficient option diversity (%d of %d decoys)", len(decoys), decoyCount)
	}
	return decoys, nil
}

// yearDecoys picks plausible years within ±8 of the real one, never before 1951.
func (g *Generator) yearDecoys(correct int) ([]string, error) {
	seen := map[int]struct{}{correct: {}}
	decoys := make([]string, 0, decoyCount)
	for attempt := 0; attempt < 64 && len(decoys) < decoyCount; attempt++ {
		fake := correct + g.intn(17) - 8
		if fake <= 1950 {
			continue
		}
		if _, dup := seen[fake]; dup {
			continue
		}
		seen[fake] = struct{}{}
		decoys = append(decoys, strconv.Itoa(fake))
	}
	if len(decoys) < decoyCount {
		return nil, fmt.Errorf("insufficient year diversity around %d", correct)
	}
	return decoys, nil
}

func (g *Generator) assemble(base domain.Media, prompt, correct string, decoys []string) domain.Question {
	options := append(append([]string(nil), decoys...), correct)
	g.mu.Lock()
	g.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	g.mu.Unlock()

	correctIndex := 0
	for i, opt := range options {
		if opt == correct {
			correctIndex = i
			break
		}
	}
	return domain.Question{
		ID:           uuid.NewString(),
		Prompt:       prompt,
		Options:      options,
		CorrectIndex: correctIndex,
		Explanation:  fmt.Sprintf("«%s»: правильный ответ — %s", base.Title, correct),
		MediaURL:     base.CoverURL,
	}
}

func (g *Generator) draw(ctx context.Context) (domain.Media, error) {
	page := g.intn(maxPage) + 1
	media, err := g.loader.LoadPage(ctx, page)
	if err != nil {
		return domain.Media{}, fmt.Errorf("load page %d: %w", page, err)
	}
	if len(media) == 0 {
		return domain.Media{}, fmt.Errorf("page %d is empty", page)
	}
	return media[g.intn(len(media))], nil
}

func (g *Generator) shuffledKinds() []questionKind {
	kinds := []questionKind{kindGenre, kindYear, kindStudio, kindCharacter}
	g.mu.Lock()
	g.rnd.Shuffle(len(kinds), func(i, j int) {
		kinds[i], kinds[j] = kinds[j], kinds[i]
	})
	g.mu.Unlock()
	return kinds
}

func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Intn(n)
}
