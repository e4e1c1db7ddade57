package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/darkevich777/anime-quiz/internal/domain"
)

// DefaultURL is the public AniList GraphQL endpoint.
const DefaultURL = "https://graphql.anilist.co"

const perPage = 50

const pageQuery = `
query ($page: Int, $perPage: Int) {
  Page(page: $page, perPage: $perPage) {
    media(type: ANIME, sort: POPULARITY_DESC) {
      id
      title { romaji }
      startDate { year }
      genres
      coverImage { large }
      studios(isMain: true) { nodes { name } }
      characters(perPage: 5, sort: ROLE) {
        nodes { name { full } }
      }
    }
  }
}`

// Client loads pages of popular anime from the AniList GraphQL API.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]int `json:"variables"`
}

type gqlResponse struct {
	Data struct {
		Page struct {
			Media []struct {
				ID    int `json:"id"`
				Title struct {
					Romaji string `json:"romaji"`
				} `json:"title"`
				StartDate struct {
					Year int `json:"year"`
				} `json:"startDate"`
				Genres     []string `json:"genres"`
				CoverImage struct {
					Large string `json:"large"`
				} `json:"coverImage"`
				Studios struct {
					Nodes []struct {
						Name string `json:"name"`
					} `json:"nodes"`
				} `json:"studios"`
				Characters struct {
					Nodes []struct {
						Name struct {
							Full string `json:"full"`
						} `json:"name"`
					} `json:"nodes"`
				} `json:"characters"`
			} `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// LoadPage fetches one page of popular anime.
func (c *Client) LoadPage(ctx context.Context, page int) ([]domain.Media, error) {
	body, err := json.Marshal(gqlRequest{
		Query:     pageQuery,
		Variables: map[string]int{"page": page, "perPage": perPage},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anilist request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anilist status %d", resp.StatusCode)
	}

	var decoded gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode anilist response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("anilist: %s", decoded.Errors[0].Message)
	}

	media := make([]domain.Media, 0, len(decoded.Data.Page.Media))
	for _, m := range decoded.Data.Page.Media {
		record := domain.Media{
			ID:       m.ID,
			Title:    m.Title.Romaji,
			Year:     m.StartDate.Year,
			Genres:   m.Genres,
			CoverURL: m.CoverImage.Large,
		}
		if len(m.Studios.Nodes) > 0 {
			record.Studio = m.Studios.Nodes[0].Name
		}
		for _, ch := range m.Characters.Nodes {
			record.Characters = append(record.Characters, ch.Name.Full)
		}
		media = append(media, record)
	}
	return media, nil
}
