package anilist

import (
	"context"
	"errors"

	"github.com/darkevich777/anime-quiz/internal/domain"
)

// StaticMediaSource serves a fixed pool regardless of the requested page.
// Useful for tests, demos and running without network access.
type StaticMediaSource struct {
	media []domain.Media
}

func NewStaticMediaSource(media []domain.Media) *StaticMediaSource {
	return &StaticMediaSource{media: media}
}

func (s *StaticMediaSource) LoadPage(_ context.Context, _ int) ([]domain.Media, error) {
	if len(s.media) == 0 {
		return nil, errors.New("static media pool is empty")
	}
	return s.media, nil
}

// SampleMedia provides a small built-in pool with enough diversity for every
// question kind; swap in the AniList client or a curated bank in production.
func SampleMedia() []domain.Media {
	return []domain.Media{
		{ID: 20, Title: "Naruto", Year: 2002, Genres: []string{"Action", "Adventure"}, Studio: "Studio Pierrot", Characters: []string{"Naruto Uzumaki", "Sasuke Uchiha"}},
		{ID: 21, Title: "One Piece", Year: 1999, Genres: []string{"Adventure", "Fantasy"}, Studio: "Toei Animation", Characters: []string{"Monkey D. Luffy"}},
		{ID: 5114, Title: "Fullmetal Alchemist: Brotherhood", Year: 2009, Genres: []string{"Action", "Drama"}, Studio: "Bones", Characters: []string{"Edward Elric"}},
		{ID: 1535, Title: "Death Note", Year: 2006, Genres: []string{"Mystery", "Thriller"}, Studio: "Madhouse", Characters: []string{"Light Yagami"}},
		{ID: 21827, Title: "Violet Evergarden", Year: 2018, Genres: []string{"Slice of Life", "Drama"}, Studio: "Kyoto Animation", Characters: []string{"Violet Evergarden"}},
		{ID: 101922, Title: "Kimetsu no Yaiba", Year: 2019, Genres: []string{"Action", "Supernatural"}, Studio: "ufotable", Characters: []string{"Tanjirou Kamado"}},
		{ID: 16498, Title: "Shingeki no Kyojin", Year: 2013, Genres: []string{"Action", "Horror"}, Studio: "Wit Studio", Characters: []string{"Eren Yeager"}},
		{ID: 11757, Title: "Sword Art Online", Year: 2012, Genres: []string{"Sci-Fi", "Romance"}, Studio: "A-1 Pictures", Characters: []string{"Kirito"}},
		{ID: 30, Title: "Neon Genesis Evangelion", Year: 1995, Genres: []string{"Mecha", "Psychological"}, Studio: "Gainax", Characters: []string{"Shinji Ikari"}},
		{ID: 1, Title: "Cowboy Bebop", Year: 1998, Genres: []string{"Sci-Fi", "Space"}, Studio: "Sunrise", Characters: []string{"Spike Spiegel"}},
	}
}
