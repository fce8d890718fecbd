// Package game implements the per-room trivia session state machine.
//
// A Session is a single-writer unit: every mutation (join, quit, answer,
// timer expiry) serializes on the session mutex, because those arrive
// concurrently from independent sources. Timer expiry re-enters the session
// through an epoch-guarded callback, so a late fire for a question the
// session has already advanced past is a no-op.
package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"versequiz/internal/clock"
	"versequiz/internal/domain"
	"versequiz/internal/errors"
	"versequiz/internal/event"
	"versequiz/internal/score"
)

type Config struct {
	ID         string
	Name       string
	CreatorID  string
	Difficulty domain.Difficulty
	Questions  []domain.Question
	MaxPlayers int
	// MinPlayers is the roster size required to start. 1 for solo games.
	MinPlayers int
	Solo       bool

	Scheduler clock.Scheduler
	EventBus  *event.Bus
}

// Session owns one room's roster, question set, locked answers and scores.
type Session struct {
	id         string
	name       string
	creatorID  string
	difficulty domain.Difficulty
	questions  []domain.Question
	maxPlayers int
	minPlayers int
	solo       bool

	sched clock.Scheduler
	eb    *event.Bus

	mu            sync.Mutex
	state         domain.GameState
	players       []*domain.Player // join order retained for display
	departed      []*domain.Player // mid-game quitters, kept for the final ranking
	byID          map[string]*domain.Player
	current       int
	epoch         int
	timer         clock.Timer
	questionStart time.Time
	answers       map[int]map[string]domain.AnswerSubmission
	scores        map[string]int64
	elapsedMs     map[string]int64
	createdAt     time.Time
	lastActivity  time.Time
}

func NewSession(c Config) *Session {
	now := c.Scheduler.Now()
	return &Session{
		id:           c.ID,
		name:         c.Name,
		creatorID:    c.CreatorID,
		difficulty:   c.Difficulty,
		questions:    c.Questions,
		maxPlayers:   c.MaxPlayers,
		minPlayers:   c.MinPlayers,
		solo:         c.Solo,
		sched:        c.Scheduler,
		eb:           c.EventBus,
		state:        domain.GameWaiting,
		byID:         make(map[string]*domain.Player),
		answers:      make(map[int]map[string]domain.AnswerSubmission),
		scores:       make(map[string]int64),
		elapsedMs:    make(map[string]int64),
		createdAt:    now,
		lastActivity: now,
	}
}

func (s *Session) ID() string                    { return s.id }
func (s *Session) CreatorID() string             { return s.creatorID }
func (s *Session) Difficulty() domain.Difficulty { return s.difficulty }
func (s *Session) Solo() bool                    { return s.solo }

func (s *Session) State() domain.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// PlayerIDs returns the ids of all current players.
func (s *Session) PlayerIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.players))
	for _, p := range s.players {
		ids = append(ids, p.ID)
	}
	return ids
}

// AddPlayer adds a player to the roster. Only valid while WAITING and below
// capacity. The registry is responsible for the one-game-per-player check.
func (s *Session) AddPlayer(playerID, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.GameWaiting {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonGameAlreadyStarted),
			errors.WithMessagef("this game has already started"),
		)
	}
	if len(s.players) >= s.maxPlayers {
		return errors.New(errors.CodeResourceExhausted,
			errors.WithReason(errors.ReasonGameFull),
			errors.WithMessagef("this game is full (%d players)", s.maxPlayers),
		)
	}

	p := &domain.Player{ID: playerID, DisplayName: displayName, JoinedAt: s.sched.Now()}
	s.players = append(s.players, p)
	s.byID[playerID] = p
	s.scores[playerID] = 0
	s.touchLocked()
	return nil
}

// RemovePlayer drops a player from the roster and reports how many remain.
// Quitting an in-progress game freezes the player's score rows, and they still
// appear in the final standings. Quitting a waiting room erases them entirely.
// A session whose roster reaches zero before completion is cancelled.
func (s *Session) RemovePlayer(playerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[playerID]
	if !ok {
		return len(s.players)
	}

	delete(s.byID, playerID)
	for i, q := range s.players {
		if q.ID == playerID {
			s.players = append(s.players[:i], s.players[i+1:]...)
			break
		}
	}
	if s.state == domain.GameInProgress {
		s.departed = append(s.departed, p)
	} else {
		delete(s.scores, playerID)
		delete(s.elapsedMs, playerID)
	}
	s.touchLocked()

	switch {
	case len(s.players) == 0 && (s.state == domain.GameWaiting || s.state == domain.GameInProgress):
		s.cancelLocked("all players left")
	case s.state == domain.GameWaiting && playerID == s.creatorID:
		// Nobody else can start the game, so there is nothing to wait for.
		s.cancelLocked("creator left")
	}
	return len(s.players)
}

// Start moves the session from WAITING to IN_PROGRESS and presents the first
// question. Only the creator may start.
func (s *Session) Start(requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.GameWaiting {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonGameAlreadyStarted),
			errors.WithMessagef("this game has already started"),
		)
	}
	if requesterID != s.creatorID {
		return errors.New(errors.CodePermissionDenied,
			errors.WithReason(errors.ReasonNotCreator),
			errors.WithMessagef("only the game's creator can start it"),
		)
	}
	if len(s.players) < s.minPlayers {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonNotEnoughPlayers),
			errors.WithMessagef("need at least %d players to start", s.minPlayers),
		)
	}

	s.state = domain.GameInProgress
	s.current = 0
	s.touchLocked()
	s.presentLocked(nil, nil)
	return nil
}

// Submit locks in a player's answer for the current question and scores it
// immediately. The first submission per (player, question) wins; later ones
// are rejected, not merged.
func (s *Session) Submit(playerID string, option int) (domain.PlayerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.GameInProgress {
		return domain.PlayerResult{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonTimeExpired),
			errors.WithMessagef("no question is currently open"),
		)
	}

	p, ok := s.byID[playerID]
	if !ok {
		return domain.PlayerResult{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonNotAPlayer),
			errors.WithMessagef("you are not a player in this game"),
		)
	}

	if _, dup := s.answers[s.current][playerID]; dup {
		return domain.PlayerResult{}, errors.New(errors.CodeAlreadyExists,
			errors.WithReason(errors.ReasonAlreadyAnswered),
			errors.WithMessagef("you already answered this question"),
		)
	}

	elapsed := s.sched.Now().Sub(s.questionStart)
	if elapsed >= s.difficulty.TimeLimit() {
		// The timer has effectively fired even if its callback has not run yet.
		return domain.PlayerResult{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonTimeExpired),
			errors.WithMessagef("time is up for this question"),
		)
	}

	q := s.questions[s.current]
	correct := option == q.CorrectOption
	awarded := score.Award(s.difficulty, correct, elapsed)

	if s.answers[s.current] == nil {
		s.answers[s.current] = make(map[string]domain.AnswerSubmission)
	}
	s.answers[s.current][playerID] = domain.AnswerSubmission{
		PlayerID:      playerID,
		QuestionIndex: s.current,
		ChosenOption:  option,
		ElapsedMs:     elapsed.Milliseconds(),
		Awarded:       awarded,
	}
	s.scores[playerID] += awarded
	s.elapsedMs[playerID] += elapsed.Milliseconds()
	s.touchLocked()

	return domain.PlayerResult{
		PlayerID:    playerID,
		DisplayName: p.DisplayName,
		Answered:    true,
		Correct:     correct,
		Awarded:     awarded,
		TotalScore:  s.scores[playerID],
	}, nil
}

// Cancel aborts the session. No leaderboard write occurs for cancelled games.
func (s *Session) Cancel(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(reason)
}

// presentLocked opens the question at s.current: records the start time, arms
// the expiry timer and announces the change. reveal and prev describe the
// question that just closed, if any.
func (s *Session) presentLocked(reveal *domain.QuestionReveal, prev []domain.PlayerResult) {
	s.epoch++
	epoch := s.epoch
	s.questionStart = s.sched.Now()
	limit := s.difficulty.TimeLimit()
	s.timer = s.sched.AfterFunc(limit, func() {
		s.expire(epoch)
	})

	q := s.questions[s.current]
	s.eb.Publish(context.Background(), domain.EventQuestionChanged{
		GameID:         s.id,
		QuestionIndex:  s.current,
		TotalQuestions: len(s.questions),
		Question: domain.QuestionView{
			Index:   s.current,
			Text:    q.Text,
			Options: q.Options,
		},
		Deadline: s.questionStart.Add(limit),
		Reveal:   reveal,
		Results:  prev,
	})
}

// expire fires exactly once per question: a stale epoch or a finished session
// makes a late tick a no-op.
func (s *Session) expire(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.GameInProgress || epoch != s.epoch {
		return
	}

	reveal := s.revealLocked(s.current)
	results := s.resultsLocked(s.current)

	if s.current == len(s.questions)-1 {
		s.completeLocked(reveal, results)
		return
	}

	s.current++
	s.presentLocked(reveal, results)
}

// resultsLocked builds the per-player outcome of one question. Players who
// never answered earn zero; that is not a fault.
func (s *Session) resultsLocked(idx int) []domain.PlayerResult {
	results := make([]domain.PlayerResult, 0, len(s.players))
	for _, p := range s.players {
		sub, answered := s.answers[idx][p.ID]
		r := domain.PlayerResult{
			PlayerID:    p.ID,
			DisplayName: p.DisplayName,
			Answered:    answered,
			TotalScore:  s.scores[p.ID],
		}
		if answered {
			r.Correct = sub.ChosenOption == s.questions[idx].CorrectOption
			r.Awarded = sub.Awarded
		}
		results = append(results, r)
	}
	return results
}

func (s *Session) revealLocked(idx int) *domain.QuestionReveal {
	q := s.questions[idx]
	return &domain.QuestionReveal{
		Index:          idx,
		CorrectOption:  q.CorrectOption,
		VerseReference: q.VerseReference,
		VerseText:      q.VerseText,
	}
}

func (s *Session) completeLocked(reveal *domain.QuestionReveal, final []domain.PlayerResult) {
	s.state = domain.GameCompleted
	s.touchLocked()

	s.eb.Publish(context.Background(), domain.EventGameCompleted{
		GameID:       s.id,
		Difficulty:   s.difficulty,
		Solo:         s.solo,
		Standings:    s.standingsLocked(),
		Reveal:       reveal,
		FinalResults: final,
	})
}

func (s *Session) cancelLocked(reason string) {
	if s.state == domain.GameCompleted || s.state == domain.GameCancelled {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.state = domain.GameCancelled
	s.touchLocked()

	s.eb.Publish(context.Background(), domain.EventGameCancelled{
		GameID: s.id,
		Reason: reason,
	})
}

// Standings ranks players by score descending; ties go to the lower
// cumulative answer time, then to the earlier joiner. Mid-game quitters rank
// with their frozen scores.
func (s *Session) Standings() []domain.Standing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.standingsLocked()
}

func (s *Session) standingsLocked() []domain.Standing {
	ranked := make([]*domain.Player, 0, len(s.players)+len(s.departed))
	ranked = append(ranked, s.players...)
	ranked = append(ranked, s.departed...)

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := s.scores[ranked[i].ID], s.scores[ranked[j].ID]
		if si != sj {
			return si > sj
		}
		return s.elapsedMs[ranked[i].ID] < s.elapsedMs[ranked[j].ID]
	})

	standings := make([]domain.Standing, 0, len(ranked))
	for i, p := range ranked {
		standings = append(standings, domain.Standing{
			Rank:           i + 1,
			PlayerID:       p.ID,
			DisplayName:    p.DisplayName,
			Score:          s.scores[p.ID],
			TotalElapsedMs: s.elapsedMs[p.ID],
		})
	}
	return standings
}

// Summary is the listing view of the session.
func (s *Session) Summary() domain.GameSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.GameSummary{
		ID:               s.id,
		Name:             s.name,
		State:            s.state,
		Difficulty:       s.difficulty,
		CurrentPlayers:   len(s.players),
		MaxPlayers:       s.maxPlayers,
		CreatedByName:    s.creatorName(),
		QuestionsPerGame: len(s.questions),
	}
}

// creatorName requires s.mu held. Falls back to the creator id if the creator
// already left the roster.
func (s *Session) creatorName() string {
	if p, ok := s.byID[s.creatorID]; ok {
		return p.DisplayName
	}
	return s.creatorID
}

// StatusFor reports one player's view of the session, including the open
// question without its correct option.
func (s *Session) StatusFor(playerID string) domain.PlayerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.PlayerStatus{
		InGame:         true,
		GameID:         s.id,
		GameStatus:     s.state,
		Difficulty:     s.difficulty,
		PlayerScore:    s.scores[playerID],
		TotalQuestions: len(s.questions),
	}
	if s.state == domain.GameInProgress {
		st.CurrentQuestion = s.current + 1
	}
	return st
}

// CurrentQuestion returns the open question view while IN_PROGRESS.
func (s *Session) CurrentQuestion() (domain.QuestionView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.GameInProgress {
		return domain.QuestionView{}, false
	}
	q := s.questions[s.current]
	return domain.QuestionView{Index: s.current, Text: q.Text, Options: q.Options}, true
}

func (s *Session) touchLocked() {
	s.lastActivity = s.sched.Now()
}
