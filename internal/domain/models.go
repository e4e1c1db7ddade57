package domain

import "time"

// Media is one anime record drawn from the question source.
// It carries everything the generator needs to build a question about it.
type Media struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	Year       int      `json:"year"`
	Genres     []string `json:"genres"`
	Studio     string   `json:"studio"`
	Characters []string `json:"characters"`
	CoverURL   string   `json:"coverUrl,omitempty"`
}

// Question is a generated multiple-choice question with exactly four options.
type Question struct {
	ID           string
	Prompt       string
	Options      []string
	CorrectIndex int
	Explanation  string
	MediaURL     string
}

// PlayerRecord tracks one registered player within a session.
type PlayerRecord struct {
	Name                string
	Answered            bool
	TotalElapsedSeconds float64
	LastAnswerElapsed   *float64
}

// Standing is one row of the final leaderboard.
type Standing struct {
	Rank                int     `json:"rank"`
	Medal               string  `json:"medal"`
	UserID              int64   `json:"userId"`
	Name                string  `json:"name"`
	Score               int     `json:"score"`
	TotalElapsedSeconds float64 `json:"totalElapsedSeconds"`
}

// RematchState survives between a finished game and the next one. Only players
// present in Confirmations make it into the rematch roster.
type RematchState struct {
	ModeratorID   int64
	Confirmations map[int64]string
	Standings     []Standing
	CreatedAt     time.Time
}

// PlayerView is the wire representation of a player inside a snapshot.
type PlayerView struct {
	Name              string   `json:"name"`
	Answered          bool     `json:"answered"`
	LastAnswerElapsed *float64 `json:"lastAnswerElapsed"`
}

// QuestionView exposes a question to clients. CorrectIndex and Explanation are
// populated only once the round is finished, or when the viewer is the moderator.
type QuestionView struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	MediaURL     string   `json:"mediaUrl,omitempty"`
	CorrectIndex *int     `json:"correctIndex,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

// RoundView exposes round timing and readiness progress to clients.
// Timestamps are unix milliseconds so the webapp can run countdowns locally.
type RoundView struct {
	EffectiveStartAt *int64 `json:"effectiveStartAt"`
	DeadlineAt       *int64 `json:"deadlineAt"`
	Finished         bool   `json:"finished"`
	CountdownSeconds int    `json:"countdownSeconds"`
	ReadyTotal       int    `json:"readyTotal"`
	ReadyDone        int    `json:"readyDone"`
	ReadyRequired    int    `json:"readyRequired"`
}

// Snapshot phases.
const (
	PhaseSession = "session"
	PhaseRematch = "rematch"
)

// Snapshot is the full per-session state a polling client receives. During the
// rematch window (after the session is torn down) only the rematch fields are
// populated.
type Snapshot struct {
	Phase        string                `json:"phase"`
	Role         string                `json:"role"`
	Players      map[string]PlayerView `json:"players,omitempty"`
	Scores       map[string]int        `json:"scores,omitempty"`
	Started      bool                  `json:"started"`
	Locked       bool                  `json:"locked"`
	TimerSeconds *int                  `json:"timerSeconds"`
	RoundsTotal  int                   `json:"roundsTotal"`
	RoundsPlayed int                   `json:"roundsPlayed"`
	ModeratorID  int64                 `json:"moderatorId"`
	Revision     int64                 `json:"revision"`
	Question     *QuestionView         `json:"question,omitempty"`
	Round        *RoundView            `json:"round,omitempty"`

	Standings     []Standing        `json:"standings,omitempty"`
	Confirmations map[string]string `json:"confirmations,omitempty"`
}

// Roles reported in snapshots.
const (
	RoleModerator = "moderator"
	RolePlayer    = "player"
)
