package app

import (
	"testing"

	"github.com/darkevich777/anime-quiz/internal/domain"
)

func TestComputeStandingsTieBreaks(t *testing.T) {
	players := map[int64]*domain.PlayerRecord{
		1: {Name: "bob", TotalElapsedSeconds: 4},
		2: {Name: "Alice", TotalElapsedSeconds: 4},
		3: {Name: "carol", TotalElapsedSeconds: 2},
		4: {Name: "dave", TotalElapsedSeconds: 1},
	}
	scores := map[int64]int{1: 2, 2: 2, 3: 2, 4: 1}

	standings := computeStandings(players, scores)

	// carol is fastest among the leaders; the Alice/bob tie falls to the
	// case-insensitive name order.
	wantOrder := []int64{3, 2, 1, 4}
	for i, want := range wantOrder {
		if standings[i].UserID != want {
			t.Fatalf("position %d: expected user %d, got %d", i, want, standings[i].UserID)
		}
	}
	for i, s := range standings {
		if s.Rank != i+1 {
			t.Fatalf("expected rank %d, got %d", i+1, s.Rank)
		}
	}
	wantMedals := []string{"🥇", "🥈", "🥉", "🏅"}
	for i, want := range wantMedals {
		if standings[i].Medal != want {
			t.Fatalf("position %d: expected medal %q, got %q", i, want, standings[i].Medal)
		}
	}
}

func TestComputeStandingsEmpty(t *testing.T) {
	standings := computeStandings(map[int64]*domain.PlayerRecord{}, map[int64]int{})
	if len(standings) != 0 {
		t.Fatalf("expected empty standings, got %v", standings)
	}
}
