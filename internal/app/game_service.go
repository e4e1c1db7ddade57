package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/darkevich777/anime-quiz/internal/domain"
)

// QuestionProvider produces one multiple-choice question per call. It may fail
// transiently; the service reports that as UpstreamUnavailable and the caller retries.
type QuestionProvider interface {
	FetchQuestion(ctx context.Context) (domain.Question, error)
}

// GameService wires the session store, the rematch registry and the question
// source into the use cases the gateway exposes.
type GameService struct {
	sessions  *SessionStore
	rematches *RematchRegistry
	questions QuestionProvider
}

func NewGameService(sessions *SessionStore, rematches *RematchRegistry, questions QuestionProvider) *GameService {
	return &GameService{sessions: sessions, rematches: rematches, questions: questions}
}

// Register adds a player to the chat's game, creating the session on first use.
func (s *GameService) Register(chatID, userID int64, name string) (domain.Snapshot, error) {
	return s.sessions.GetOrCreate(chatID).Register(userID, name)
}

// ClaimModerator closes registration and starts the game, first caller wins.
func (s *GameService) ClaimModerator(chatID, actorID int64) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(chatID)
	if !ok {
		return domain.Snapshot{}, domain.ErrNoGame
	}
	return session.ClaimModerator(actorID)
}

// Configure sets the round timer and/or the round total.
func (s *GameService) Configure(chatID, actorID int64, timerSeconds, roundsTotal int) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(chatID)
	if !ok {
		return domain.Snapshot{}, domain.ErrNoGame
	}
	return session.Configure(actorID, timerSeconds, roundsTotal)
}

// StartRound creates the first round of a game. A timer override, when given,
// is clamped into range and adopted as the session default.
func (s *GameService) StartRound(ctx context.Context, chatID, actorID int64, timerOverride int) (domain.Snapshot, error) {
	return s.advanceRound(ctx, chatID, actorID, timerOverride)
}

// NextRound force-finalizes any open round and moves to the next question, or
// ends the game once the configured round total is exhausted.
func (s *GameService) NextRound(ctx context.Context, chatID, actorID int64) (domain.Snapshot, error) {
	return s.advanceRound(ctx, chatID, actorID, 0)
}

func (s *GameService) advanceRound(ctx context.Context, chatID, actorID int64, timerOverride int) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(chatID)
	if !ok {
		return domain.Snapshot{}, domain.ErrNoGame
	}
	gameOver, err := session.BeginRoundCheck(actorID, timerOverride)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if gameOver {
		return s.finishGame(chatID, session, actorID)
	}

	// The fetch runs outside the session lock; preconditions are re-checked on install.
	question, err := s.questions.FetchQuestion(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	snap, gameOver, err := session.InstallRound(actorID, timerOverride, question)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if gameOver {
		// A concurrent advance consumed the last round during the fetch.
		return s.finishGame(chatID, session, actorID)
	}
	return snap, nil
}

// MarkReady records that a player has seen the current question.
func (s *GameService) MarkReady(chatID, userID int64) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(chatID)
	if !ok {
		return domain.Snapshot{}, domain.ErrNoGame
	}
	return session.MarkReady(userID)
}

// ForceStart opens the round immediately, bypassing the readiness quorum.
func (s *GameService) ForceStart(chatID, actorID int64) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(chatID)
	if !ok {
		return domain.Snapshot{}, domain.ErrNoGame
	}
	return session.ForceStart(actorID)
}

// SubmitAnswer records a player's choice for the current round.
func (s *GameService) SubmitAnswer(chatID, userID int64, choiceIndex int) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(chatID)
	if !ok {
		return domain.Snapshot{}, domain.ErrNoGame
	}
	return session.SubmitAnswer(userID, choiceIndex)
}

// EndGame finalizes the session, freezes the standings into a rematch record
// and tears the session down.
func (s *GameService) EndGame(chatID, actorID int64) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(chatID)
	if !ok {
		return domain.Snapshot{}, domain.ErrNoGame
	}
	return s.finishGame(chatID, session, actorID)
}

func (s *GameService) finishGame(chatID int64, session *Session, actorID int64) (domain.Snapshot, error) {
	moderatorID, standings, err := session.Finish(actorID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	s.rematches.Seed(chatID, moderatorID, standings)
	s.sessions.Remove(chatID)
	state, _ := s.rematches.Get(chatID)
	return rematchSnapshot(state, actorID), nil
}

// JoinRematch confirms a player for the pending rematch.
func (s *GameService) JoinRematch(chatID, userID int64, name string) (domain.Snapshot, error) {
	state, err := s.rematches.Join(chatID, userID, name)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return rematchSnapshot(state, userID), nil
}

// LeaveRematch withdraws a player's confirmation.
func (s *GameService) LeaveRematch(chatID, userID int64) (domain.Snapshot, error) {
	state, err := s.rematches.Leave(chatID, userID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return rematchSnapshot(state, userID), nil
}

// StartRematch seeds a fresh session with exactly the confirmed roster and
// discards the rematch record. Only the carried-over moderator may trigger it.
func (s *GameService) StartRematch(chatID, actorID int64) (domain.Snapshot, error) {
	state, err := s.rematches.Take(chatID, actorID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	session := s.sessions.Reset(chatID)
	return session.SeedFromRematch(state.ModeratorID, state.Confirmations, actorID)
}

// Snapshot returns the state a polling client sees: the live session, the
// pending rematch after game end, or no game at all.
func (s *GameService) Snapshot(chatID, viewerID int64) (domain.Snapshot, error) {
	if session, ok := s.sessions.Get(chatID); ok {
		return session.Snapshot(viewerID), nil
	}
	if state, ok := s.rematches.Get(chatID); ok {
		return rematchSnapshot(state, viewerID), nil
	}
	return domain.Snapshot{}, domain.ErrNoGame
}

// Subscribe returns a channel receiving a snapshot for every revision change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(chatID, viewerID int64) (<-chan domain.Snapshot, func(), error) {
	session, ok := s.sessions.Get(chatID)
	if !ok {
		return nil, nil, domain.ErrNoGame
	}
	return session.subscribe(viewerID)
}

func rematchSnapshot(state domain.RematchState, viewerID int64) domain.Snapshot {
	role := domain.RolePlayer
	if viewerID == state.ModeratorID {
		role = domain.RoleModerator
	}
	confirmations := make(map[string]string, len(state.Confirmations))
	for id, name := range state.Confirmations {
		confirmations[strconv.FormatInt(id, 10)] = name
	}
	return domain.Snapshot{
		Phase:         domain.PhaseRematch,
		Role:          role,
		ModeratorID:   state.ModeratorID,
		Standings:     state.Standings,
		Confirmations: confirmations,
	}
}
