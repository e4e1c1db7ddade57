package app

import (
	"strconv"
	"sync"
	"time"

	"github.com/darkevich777/anime-quiz/internal/domain"
)

// round is the live question cycle inside a session. The ready map is seeded at
// creation for the roster registered at that moment and never grows.
type round struct {
	question         domain.Question
	createdAt        time.Time
	ready            map[int64]bool
	effectiveStartAt *time.Time
	deadlineAt       *time.Time
	finished         bool
}

// Session is one chat group's active game. All fields behind mu; every method
// takes the lock, runs the lazy deadline check, then applies its transition.
type Session struct {
	chatID int64
	rules  Rules
	now    func() time.Time

	mu           sync.Mutex
	players      map[int64]*domain.PlayerRecord
	scores       map[int64]int
	moderatorID  int64
	started      bool
	locked       bool
	timerSeconds *int
	roundsTotal  int
	roundsPlayed int
	round        *round
	revision     int64
	subscribers  map[chan domain.Snapshot]int64 // channel -> viewer identity
	closed       bool
}

func newSession(chatID int64, rules Rules) *Session {
	return newSessionWithClock(chatID, rules, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(chatID int64, rules Rules, now func() time.Time) *Session {
	return &Session{
		chatID:      chatID,
		rules:       rules,
		now:         now,
		players:     make(map[int64]*domain.PlayerRecord),
		scores:      make(map[int64]int),
		roundsTotal: rules.RoundsDefault,
		subscribers: make(map[chan domain.Snapshot]int64),
	}
}

// Register adds a player while the roster is open.
func (s *Session) Register(userID int64, name string) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeDueLocked()

	if s.locked {
		return domain.Snapshot{}, domain.ErrLocked
	}
	if _, ok := s.players[userID]; ok {
		return domain.Snapshot{}, domain.ErrAlreadyRegistered
	}
	s.players[userID] = &domain.PlayerRecord{Name: name}
	s.scores[userID] = 0
	s.bumpLocked()
	return s.snapshotLocked(userID), nil
}

// ClaimModerator is the one-shot transition that closes registration and makes
// the game playable. First caller wins; re-claiming by the same identity is a no-op.
func (s *Session) ClaimModerator(userID int64) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeDueLocked()

	if s.moderatorID == userID && userID != 0 {
		return s.snapshotLocked(userID), nil
	}
	if s.moderatorID != 0 {
		return domain.Snapshot{}, domain.ErrModeratorTaken
	}
	s.moderatorID = userID
	s.locked = true
	s.started = true
	s.bumpLocked()
	return s.snapshotLocked(userID), nil
}

// Configure sets the round timer and/or the total number of rounds. Zero
// arguments leave the corresponding setting untouched. The timer is clamped
// into range, the round total falls back to the default when not an allowed choice.
func (s *Session) Configure(actorID int64, timerSeconds, roundsTotal int) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeDueLocked()

	if s.moderatorID == 0 || actorID != s.moderatorID {
		return domain.Snapshot{}, domain.ErrNotModerator
	}
	changed := false
	if timerSeconds > 0 {
		t := s.rules.ClampTimer(timerSeconds)
		s.timerSeconds = &t
		changed = true
	}
	if roundsTotal > 0 {
		s.roundsTotal = s.rules.NormalizeRounds(roundsTotal)
		changed = true
	}
	if changed {
		s.bumpLocked()
	}
	return s.snapshotLocked(actorID), nil
}

// BeginRoundCheck validates round-creation preconditions without holding the
// lock across the question fetch. It reports gameOver when the configured round
// total is exhausted, in which case the caller ends the game instead.
func (s *Session) BeginRoundCheck(actorID int64, timerOverride int) (gameOver bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeDueLocked()

	if err := s.roundPreconditionsLocked(actorID, timerOverride); err != nil {
		return false, err
	}
	return s.roundsPlayed >= s.roundsTotal, nil
}

// InstallRound installs a freshly fetched question as the next round. Any still
// open round is force-finalized first, as if its deadline had passed, so no
// round is ever silently dropped. It reports gameOver instead of installing
// when a concurrent advance consumed the last round during the fetch.
func (s *Session) InstallRound(actorID int64, timerOverride int, q domain.Question) (domain.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeDueLocked()

	// Re-verify: the lock was released during the fetch.
	if err := s.roundPreconditionsLocked(actorID, timerOverride); err != nil {
		return domain.Snapshot{}, false, err
	}
	if s.roundsPlayed >= s.roundsTotal {
		return domain.Snapshot{}, true, nil
	}
	if timerOverride > 0 {
		t := s.rules.ClampTimer(timerOverride)
		s.timerSeconds = &t
	}
	s.finalizeRoundLocked()

	ready := make(map[int64]bool, len(s.players))
	for id := range s.players {
		ready[id] = false
	}
	for _, p := range s.players {
		p.Answered = false
		p.LastAnswerElapsed = nil
	}
	s.round = &round{question: q, createdAt: s.now(), ready: ready}
	s.roundsPlayed++
	s.bumpLocked()
	return s.snapshotLocked(actorID), false, nil
}

// MarkReady records that a player has seen the current question. Re-marking is
// a no-op. Reaching the quorum latches the synchronized start exactly once.
func (s *Session) MarkReady(userID int64) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeDueLocked()

	r := s.round
	if r == nil {
		return domain.Snapshot{}, domain.ErrNoActiveRound
	}
	if r.finished {
		return domain.Snapshot{}, domain.ErrRoundFinished
	}
	already, ok := r.ready[userID]
	if !ok {
		return domain.Snapshot{}, domain.ErrNotInRoster
	}
	if already {
		return s.snapshotLocked(userID), nil
	}
	r.ready[userID] = true
	if r.effectiveStartAt == nil && s.readyDoneLocked() >= s.rules.ReadyRequired(len(r.ready)) {
		s.openRoundLocked()
	}
	s.bumpLocked()
	return s.snapshotLocked(userID), nil
}

// ForceStart latches the synchronized start regardless of the readiness quorum.
func (s *Session) ForceStart(actorID int64) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeDueLocked()

	if s.moderatorID == 0 || actorID != s.moderatorID {
		return domain.Snapshot{}, domain.ErrNotModerator
	}
	r := s.round
	if r == nil {
		return domain.Snapshot{}, domain.ErrNoActiveRound
	}
	if r.finished {
		return domain.Snapshot{}, domain.ErrRoundFinished
	}
	if r.effectiveStartAt == nil {
		s.openRoundLocked()
		s.bumpLocked()
	}
	return s.snapshotLocked(actorID), nil
}

// SubmitAnswer records one answer per player per round. Latency is measured
// from the synchronized start, floored at zero and capped at the full timer.
func (s *Session) SubmitAnswer(userID int64, choiceIndex int) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeDueLocked()

	r := s.round
	if r == nil {
		return domain.Snapshot{}, domain.ErrNoActiveRound
	}
	if r.finished {
		return domain.Snapshot{}, domain.ErrRoundFinished
	}
	now := s.now()
	if r.effectiveStartAt == nil || now.Before(*r.effectiveStartAt) {
		return domain.Snapshot{}, domain.ErrNotAccepting
	}
	p, ok := s.players[userID]
	if !ok {
		return domain.Snapshot{}, domain.ErrUnknownPlayer
	}
	if p.Answered {
		return domain.Snapshot{}, domain.ErrAlreadyAnswered
	}

	at := now
	if at.After(*r.deadlineAt) {
		at = *r.deadlineAt
	}
	elapsed := at.Sub(*r.effectiveStartAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	p.Answered = true
	e := elapsed
	p.LastAnswerElapsed = &e
	p.TotalElapsedSeconds += elapsed
	if choiceIndex == r.question.CorrectIndex {
		s.scores[userID]++
	}
	if s.allAnsweredLocked() {
		s.finalizeRoundLocked()
	}
	s.bumpLocked()
	return s.snapshotLocked(userID), nil
}

// Finish settles the session for game end: the open round is finalized as if
// its deadline had passed and the final standings are computed. The caller
// removes the session from the store afterwards.
func (s *Session) Finish(actorID int64) (int64, []domain.Standing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.moderatorID == 0 || actorID != s.moderatorID {
		return 0, nil, domain.ErrNotModerator
	}
	s.finalizeRoundLocked()
	standings := computeStandings(s.players, s.scores)
	s.closeSubscribersLocked()
	return s.moderatorID, standings, nil
}

// SeedFromRematch reinitializes the session with the confirmed roster of a
// finished game: fresh scores, timers unset, registration closed, game started.
func (s *Session) SeedFromRematch(moderatorID int64, roster map[int64]string, viewerID int64) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.players = make(map[int64]*domain.PlayerRecord, len(roster))
	s.scores = make(map[int64]int, len(roster))
	for id, name := range roster {
		s.players[id] = &domain.PlayerRecord{Name: name}
		s.scores[id] = 0
	}
	s.moderatorID = moderatorID
	s.locked = true
	s.started = true
	s.timerSeconds = nil
	s.roundsTotal = s.rules.RoundsDefault
	s.roundsPlayed = 0
	s.round = nil
	s.bumpLocked()
	return s.snapshotLocked(viewerID), nil
}

// Snapshot returns the viewer-specific state. Reading runs the same lazy
// deadline check as writes, so an expired round finalizes on the next poll.
func (s *Session) Snapshot(viewerID int64) domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeDueLocked()
	return s.snapshotLocked(viewerID)
}

// Revision returns the current revision counter.
func (s *Session) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

func (s *Session) subscribe(viewerID int64) (<-chan domain.Snapshot, func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, nil, domain.ErrNoGame
	}
	ch := make(chan domain.Snapshot, 8)
	s.subscribers[ch] = viewerID
	s.finalizeDueLocked()
	initial := s.snapshotLocked(viewerID)
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// roundPreconditionsLocked gates round creation: moderator only, game started,
// a timer configured or an override supplied.
func (s *Session) roundPreconditionsLocked(actorID int64, timerOverride int) error {
	if s.moderatorID == 0 || actorID != s.moderatorID {
		return domain.ErrNotModerator
	}
	if !s.started {
		return domain.ErrNotStarted
	}
	if s.timerSeconds == nil && timerOverride <= 0 {
		return domain.ErrTimerNotConfigured
	}
	return nil
}

// openRoundLocked is the one-way start latch: the countdown lead time lets all
// polling clients preroll in sync before the timer runs.
func (s *Session) openRoundLocked() {
	start := s.now().Add(time.Duration(s.rules.CountdownSeconds) * time.Second)
	deadline := start.Add(time.Duration(*s.timerSeconds) * time.Second)
	s.round.effectiveStartAt = &start
	s.round.deadlineAt = &deadline
}

// finalizeDueLocked runs the lazy deadline check. Time-based transitions fire
// on the next request touching the session, not via a background timer.
func (s *Session) finalizeDueLocked() {
	r := s.round
	if r == nil || r.finished || r.deadlineAt == nil {
		return
	}
	if s.now().Before(r.deadlineAt.Add(-s.rules.FinalizeSlop)) {
		return
	}
	s.finalizeRoundLocked()
	s.revision++
	s.broadcastLocked()
}

// finalizeRoundLocked settles the current round: non-answerers take the full
// timer as their latency penalty so timing out never beats answering.
// Idempotent; callers bump the revision.
func (s *Session) finalizeRoundLocked() {
	r := s.round
	if r == nil || r.finished {
		return
	}
	if s.rules.NoAnswerPenalty {
		timer := 0
		if s.timerSeconds != nil {
			timer = *s.timerSeconds
		}
		for _, p := range s.players {
			if p.Answered {
				continue
			}
			p.LastAnswerElapsed = nil
			p.TotalElapsedSeconds += float64(timer)
		}
	} else {
		for _, p := range s.players {
			if !p.Answered {
				p.LastAnswerElapsed = nil
			}
		}
	}
	r.finished = true
}

func (s *Session) allAnsweredLocked() bool {
	for _, p := range s.players {
		if !p.Answered {
			return false
		}
	}
	return len(s.players) > 0
}

func (s *Session) readyDoneLocked() int {
	done := 0
	for _, ok := range s.round.ready {
		if ok {
			done++
		}
	}
	return done
}

func (s *Session) bumpLocked() {
	s.revision++
	s.broadcastLocked()
}

func (s *Session) broadcastLocked() {
	for ch, viewer := range s.subscribers {
		snap := s.snapshotLocked(viewer)
		select {
		case ch <- snap:
		default:
			// Drop the stale update so a slow client never blocks the session lock.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) closeSubscribersLocked() {
	for ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = make(map[chan domain.Snapshot]int64)
	s.closed = true
}

func (s *Session) snapshotLocked(viewerID int64) domain.Snapshot {
	players := make(map[string]domain.PlayerView, len(s.players))
	for id, p := range s.players {
		var last *float64
		if p.LastAnswerElapsed != nil {
			v := *p.LastAnswerElapsed
			last = &v
		}
		players[strconv.FormatInt(id, 10)] = domain.PlayerView{
			Name:              p.Name,
			Answered:          p.Answered,
			LastAnswerElapsed: last,
		}
	}
	scores := make(map[string]int, len(s.scores))
	for id, score := range s.scores {
		scores[strconv.FormatInt(id, 10)] = score
	}

	role := domain.RolePlayer
	if s.moderatorID != 0 && viewerID == s.moderatorID {
		role = domain.RoleModerator
	}
	var timer *int
	if s.timerSeconds != nil {
		t := *s.timerSeconds
		timer = &t
	}

	snap := domain.Snapshot{
		Phase:        domain.PhaseSession,
		Role:         role,
		Players:      players,
		Scores:       scores,
		Started:      s.started,
		Locked:       s.locked,
		TimerSeconds: timer,
		RoundsTotal:  s.roundsTotal,
		RoundsPlayed: s.roundsPlayed,
		ModeratorID:  s.moderatorID,
		Revision:     s.revision,
	}

	if r := s.round; r != nil {
		q := &domain.QuestionView{
			Prompt:   r.question.Prompt,
			Options:  append([]string(nil), r.question.Options...),
			MediaURL: r.question.MediaURL,
		}
		if r.finished || role == domain.RoleModerator {
			idx := r.question.CorrectIndex
			q.CorrectIndex = &idx
			q.Explanation = r.question.Explanation
		}
		rv := &domain.RoundView{
			Finished:         r.finished,
			CountdownSeconds: s.rules.CountdownSeconds,
			ReadyTotal:       len(r.ready),
			ReadyDone:        s.readyDoneLocked(),
			ReadyRequired:    s.rules.ReadyRequired(len(r.ready)),
		}
		if r.effectiveStartAt != nil {
			start := r.effectiveStartAt.UnixMilli()
			deadline := r.deadlineAt.UnixMilli()
			rv.EffectiveStartAt = &start
			rv.DeadlineAt = &deadline
		}
		snap.Question = q
		snap.Round = rv
	}
	return snap
}
