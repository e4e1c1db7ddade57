package app

import (
	"sort"
	"strings"

	"github.com/darkevich777/anime-quiz/internal/domain"
)

var medals = []string{"🥇", "🥈", "🥉"}

const genericMedal = "🏅"

// computeStandings ranks players by score descending, then cumulative answer
// latency ascending, then lowercased name. The name tie-break keeps the order
// deterministic across runs.
func computeStandings(players map[int64]*domain.PlayerRecord, scores map[int64]int) []domain.Standing {
	standings := make([]domain.Standing, 0, len(players))
	for id, p := range players {
		standings = append(standings, domain.Standing{
			UserID:              id,
			Name:                p.Name,
			Score:               scores[id],
			TotalElapsedSeconds: p.TotalElapsedSeconds,
		})
	}

	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TotalElapsedSeconds != b.TotalElapsedSeconds {
			return a.TotalElapsedSeconds < b.TotalElapsedSeconds
		}
		na, nb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if na != nb {
			return na < nb
		}
		return a.UserID < b.UserID
	})

	for i := range standings {
		standings[i].Rank = i + 1
		standings[i].Medal = medalFor(i)
	}
	return standings
}

func medalFor(position int) string {
	if position < len(medals) {
		return medals[position]
	}
	return genericMedal
}
