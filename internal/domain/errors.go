package domain

import "errors"

var (
	// ErrNoGame is returned when no session exists for a chat. Callers should
	// treat this as "no active game", not as an alarming failure.
	ErrNoGame = errors.New("no active game")
	// ErrLocked is returned when registration is attempted after the game started.
	ErrLocked = errors.New("registration is locked")
	// ErrAlreadyRegistered is returned on duplicate registration.
	ErrAlreadyRegistered = errors.New("player already registered")
	// ErrNotModerator is returned when a non-moderator drives a round transition.
	ErrNotModerator = errors.New("caller is not the moderator")
	// ErrModeratorTaken is returned when a second caller tries to claim the game.
	ErrModeratorTaken = errors.New("moderator already set")
	// ErrNotStarted is returned when a round is requested before the game started.
	ErrNotStarted = errors.New("game not started")
	// ErrTimerNotConfigured is returned when no round duration has been set.
	ErrTimerNotConfigured = errors.New("round timer not configured")
	// ErrNoActiveRound is returned when a round operation finds no current round.
	ErrNoActiveRound = errors.New("no active round")
	// ErrRoundFinished is returned when the current round is already finalized.
	ErrRoundFinished = errors.New("round already finished")
	// ErrNotAccepting is returned for answers before the synchronized start.
	ErrNotAccepting = errors.New("round not accepting answers yet")
	// ErrAlreadyAnswered is returned on a second answer within the same round.
	ErrAlreadyAnswered = errors.New("player already answered this round")
	// ErrUnknownPlayer is returned when an unregistered identity submits an answer.
	ErrUnknownPlayer = errors.New("player not registered")
	// ErrNotInRoster is returned when a readiness mark comes from outside the
	// roster frozen at round creation.
	ErrNotInRoster = errors.New("player not in round roster")
	// ErrNoRematch is returned when no rematch is pending for a chat.
	ErrNoRematch = errors.New("no rematch pending")
	// ErrUpstreamUnavailable indicates the question source failed; the caller may retry.
	ErrUpstreamUnavailable = errors.New("question source unavailable")
)
