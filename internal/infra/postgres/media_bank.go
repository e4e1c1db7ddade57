package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/darkevich777/anime-quiz/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// MediaBank loads anime records from an operator-curated Postgres bank of
// JSONB rows. It satisfies the page-loader contract by returning a random
// sample per call; the page argument only matters to paged sources.
type MediaBank struct {
	pool *pgxpool.Pool
}

func NewMediaBank(pool *pgxpool.Pool) *MediaBank {
	return &MediaBank{pool: pool}
}

func (b *MediaBank) LoadPage(ctx context.Context, _ int) ([]domain.Media, error) {
	rows, err := b.pool.Query(ctx, `SELECT data FROM media ORDER BY random() LIMIT 50`)
	if err != nil {
		return nil, fmt.Errorf("load media bank: %w", err)
	}
	defer rows.Close()

	var media []domain.Media
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan media row: %w", err)
		}
		var m domain.Media
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal media row: %w", err)
		}
		media = append(media, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media rows: %w", err)
	}
	return media, nil
}
