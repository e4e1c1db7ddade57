package app

import (
	"sync"
	"time"

	"github.com/darkevich777/anime-quiz/internal/domain"
)

// RematchRegistry keeps the opt-in state between a finished game and the next
// one. Records expire after the configured TTL; expiry is checked lazily on
// access, so a stale record for an abandoned chat costs nothing until touched.
type RematchRegistry struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	states map[int64]*domain.RematchState
}

func NewRematchRegistry(rules Rules) *RematchRegistry {
	return NewRematchRegistryWithClock(rules, time.Now)
}

// NewRematchRegistryWithClock allows deterministic timestamps in tests.
func NewRematchRegistryWithClock(rules Rules, now func() time.Time) *RematchRegistry {
	return &RematchRegistry{
		ttl:    rules.RematchTTL,
		now:    now,
		states: make(map[int64]*domain.RematchState),
	}
}

// Seed freezes the final standings of a finished game and opens the rematch window.
func (r *RematchRegistry) Seed(chatID, moderatorID int64, standings []domain.Standing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[chatID] = &domain.RematchState{
		ModeratorID:   moderatorID,
		Confirmations: make(map[int64]string),
		Standings:     standings,
		CreatedAt:     r.now(),
	}
}

// Join confirms a player for the rematch.
func (r *RematchRegistry) Join(chatID, userID int64, name string) (domain.RematchState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.liveLocked(chatID)
	if !ok {
		return domain.RematchState{}, domain.ErrNoRematch
	}
	st.Confirmations[userID] = name
	return copyState(st), nil
}

// Leave withdraws a player's confirmation.
func (r *RematchRegistry) Leave(chatID, userID int64) (domain.RematchState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.liveLocked(chatID)
	if !ok {
		return domain.RematchState{}, domain.ErrNoRematch
	}
	delete(st.Confirmations, userID)
	return copyState(st), nil
}

// Get returns the pending rematch state, if any.
func (r *RematchRegistry) Get(chatID int64) (domain.RematchState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.liveLocked(chatID)
	if !ok {
		return domain.RematchState{}, false
	}
	return copyState(st), true
}

// Take hands the rematch state to the moderator and discards it. The carried
// moderator identity is the only one allowed to start the new game.
func (r *RematchRegistry) Take(chatID, actorID int64) (domain.RematchState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.liveLocked(chatID)
	if !ok {
		return domain.RematchState{}, domain.ErrNoRematch
	}
	if actorID != st.ModeratorID {
		return domain.RematchState{}, domain.ErrNotModerator
	}
	delete(r.states, chatID)
	return copyState(st), nil
}

func (r *RematchRegistry) liveLocked(chatID int64) (*domain.RematchState, bool) {
	st, ok := r.states[chatID]
	if !ok {
		return nil, false
	}
	if r.ttl > 0 && r.now().After(st.CreatedAt.Add(r.ttl)) {
		delete(r.states, chatID)
		return nil, false
	}
	return st, true
}

func copyState(st *domain.RematchState) domain.RematchState {
	confirmations := make(map[int64]string, len(st.Confirmations))
	for id, name := range st.Confirmations {
		confirmations[id] = name
	}
	return domain.RematchState{
		ModeratorID:   st.ModeratorID,
		Confirmations: confirmations,
		Standings:     append([]domain.Standing(nil), st.Standings...),
		CreatedAt:     st.CreatedAt,
	}
}
