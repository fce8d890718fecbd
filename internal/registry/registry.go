// Package registry is the single source of truth for what games exist and who
// is playing in which game. Its two indices (by game id, by player id) are the
// only state shared across sessions; registry operations serialize on one
// lock, session-internal state stays behind each session's own mutex.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"versequiz/internal/clock"
	"versequiz/internal/domain"
	"versequiz/internal/errors"
	"versequiz/internal/event"
	"versequiz/internal/game"
	"versequiz/internal/question"
	"versequiz/internal/telemetry"
)

const (
	MinQuestions = 5
	MaxQuestions = 20
	MaxCapacity  = 10

	defaultMaxPlayers = 10
)

type Config struct {
	Questions question.Source
	Scheduler clock.Scheduler
	EventBus  *event.Bus

	// MinPlayersToStart is the multiplayer start policy. Defaults to 2.
	MinPlayersToStart int
}

type Registry struct {
	qs       question.Source
	sched    clock.Scheduler
	eb       *event.Bus
	minStart int

	mu       sync.RWMutex
	games    map[string]*game.Session
	byPlayer map[string]string
}

func New(c Config) *Registry {
	r := &Registry{
		qs:       c.Questions,
		sched:    c.Scheduler,
		eb:       c.EventBus,
		minStart: c.MinPlayersToStart,
		games:    make(map[string]*game.Session),
		byPlayer: make(map[string]string),
	}
	if r.minStart <= 0 {
		r.minStart = 2
	}

	// Sessions remove themselves from the index through the lifecycle events
	// they publish; the sweeper is only the backstop for sessions that never
	// reach either event.
	r.eb.Subscribe(domain.EventNameGameCompleted, func(ctx context.Context, e event.Event) error {
		r.remove(e.(domain.EventGameCompleted).GameID, "completed")
		return nil
	})
	r.eb.Subscribe(domain.EventNameGameCancelled, func(ctx context.Context, e event.Event) error {
		r.remove(e.(domain.EventGameCancelled).GameID, "cancelled")
		return nil
	})

	return r
}

// CreateGame allocates a multiplayer session with an eagerly generated
// question set and the creator as its first player. Generation failure aborts
// the whole creation; no partial session is ever registered.
func (r *Registry) CreateGame(ctx context.Context, creatorID, creatorName string, d domain.Difficulty, questionCount, maxPlayers int) (*game.Session, error) {
	if maxPlayers == 0 {
		maxPlayers = defaultMaxPlayers
	}
	if err := validateParams(d, questionCount, maxPlayers); err != nil {
		return nil, err
	}
	if maxPlayers < 2 {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithReason(errors.ReasonInvalidParameters),
			errors.WithMessagef("a multiplayer game needs room for at least 2 players"),
		)
	}

	return r.create(ctx, createRequest{
		creatorID:   creatorID,
		creatorName: creatorName,
		difficulty:  d,
		questions:   questionCount,
		maxPlayers:  maxPlayers,
		minPlayers:  r.minStart,
	})
}

// CreateSoloGame allocates a single-player session and starts it immediately.
// Solo games occupy the player index exactly like multiplayer ones.
func (r *Registry) CreateSoloGame(ctx context.Context, creatorID, creatorName string, d domain.Difficulty, questionCount int) (*game.Session, error) {
	if err := validateParams(d, questionCount, 1); err != nil {
		return nil, err
	}

	s, err := r.create(ctx, createRequest{
		creatorID:   creatorID,
		creatorName: creatorName,
		difficulty:  d,
		questions:   questionCount,
		maxPlayers:  1,
		minPlayers:  1,
		solo:        true,
	})
	if err != nil {
		return nil, err
	}

	if err := s.Start(creatorID); err != nil {
		return nil, err
	}
	return s, nil
}

type createRequest struct {
	creatorID   string
	creatorName string
	difficulty  domain.Difficulty
	questions   int
	maxPlayers  int
	minPlayers  int
	solo        bool
}

func (r *Registry) create(ctx context.Context, req createRequest) (*game.Session, error) {
	if err := r.checkNotInGame(req.creatorID); err != nil {
		return nil, err
	}

	// Question generation is slow; keep it outside the index lock and
	// re-check the player index afterwards.
	qs, err := r.qs.Generate(ctx, req.difficulty, req.questions)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("generate game id: %w", err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.byPlayer[req.creatorID]; busy {
		return nil, alreadyInGame()
	}

	s := game.NewSession(game.Config{
		ID:         id.String(),
		Name:       fmt.Sprintf("%s's game", req.creatorName),
		CreatorID:  req.creatorID,
		Difficulty: req.difficulty,
		Questions:  qs,
		MaxPlayers: req.maxPlayers,
		MinPlayers: req.minPlayers,
		Solo:       req.solo,
		Scheduler:  r.sched,
		EventBus:   r.eb,
	})
	if err := s.AddPlayer(req.creatorID, req.creatorName); err != nil {
		return nil, err
	}

	r.games[s.ID()] = s
	r.byPlayer[req.creatorID] = s.ID()

	mode := "multiplayer"
	if req.solo {
		mode = "solo"
	}
	telemetry.GamesCreated.WithLabelValues(mode).Inc()
	telemetry.ActiveGames.Set(float64(len(r.games)))

	return s, nil
}

// JoinGame adds a player to a waiting session and indexes them.
func (r *Registry) JoinGame(playerID, displayName, gameID string) (*game.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.byPlayer[playerID]; busy {
		return nil, alreadyInGame()
	}

	s, ok := r.games[gameID]
	if !ok {
		return nil, gameNotFound(gameID)
	}

	if err := s.AddPlayer(playerID, displayName); err != nil {
		return nil, err
	}
	r.byPlayer[playerID] = gameID
	return s, nil
}

// QuickJoin puts the player into the oldest waiting game with a free seat.
func (r *Registry) QuickJoin(playerID, displayName string) (*game.Session, error) {
	for _, summary := range r.ListWaitingGames() {
		s, err := r.JoinGame(playerID, displayName, summary.ID)
		if err == nil {
			return s, nil
		}
		if errors.HasReason(err, errors.ReasonAlreadyInGame) {
			return nil, err
		}
		// The seat may have been taken or the game started since listing;
		// try the next one.
	}

	return nil, errors.New(errors.CodeNotFound,
		errors.WithReason(errors.ReasonGameNotFound),
		errors.WithMessagef("no joinable games right now"),
	)
}

// QuitGame removes the player from their current game and releases the index
// entry. The departing player cancelling an otherwise empty game is handled
// by the session itself.
func (r *Registry) QuitGame(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	gameID, ok := r.byPlayer[playerID]
	if !ok {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonNotInGame),
			errors.WithMessagef("you are not in a game"),
		)
	}

	delete(r.byPlayer, playerID)
	if s, live := r.games[gameID]; live {
		s.RemovePlayer(playerID)
	}
	return nil
}

// StartGame begins a waiting game on behalf of its creator.
func (r *Registry) StartGame(requesterID, gameID string) error {
	s, ok := r.get(gameID)
	if !ok {
		return gameNotFound(gameID)
	}
	return s.Start(requesterID)
}

// SubmitAnswer routes a player's answer into the session for scoring.
func (r *Registry) SubmitAnswer(gameID, playerID string, option int) (domain.PlayerResult, error) {
	s, ok := r.get(gameID)
	if !ok {
		return domain.PlayerResult{}, gameNotFound(gameID)
	}

	res, err := s.Submit(playerID, option)
	if err != nil {
		telemetry.AnswersRejected.WithLabelValues(errors.Convert(err).Reason).Inc()
		return domain.PlayerResult{}, err
	}
	telemetry.AnswersAccepted.Inc()
	return res, nil
}

// ListWaitingGames returns joinable sessions, oldest first.
func (r *Registry) ListWaitingGames() []domain.GameSummary {
	r.mu.RLock()
	type candidate struct {
		summary   domain.GameSummary
		createdAt time.Time
	}
	candidates := make([]candidate, 0, len(r.games))
	for _, s := range r.games {
		summary := s.Summary()
		if summary.State == domain.GameWaiting && summary.CurrentPlayers < summary.MaxPlayers {
			candidates = append(candidates, candidate{summary, s.CreatedAt()})
		}
	}
	r.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].createdAt.Before(candidates[j].createdAt)
	})

	summaries := make([]domain.GameSummary, 0, len(candidates))
	for _, c := range candidates {
		summaries = append(summaries, c.summary)
	}
	return summaries
}

// GetByPlayer is the O(1) player-to-session lookup.
func (r *Registry) GetByPlayer(playerID string) (*game.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gameID, ok := r.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	s, ok := r.games[gameID]
	return s, ok
}

// StatusFor reports a player's current situation for the status query.
func (r *Registry) StatusFor(playerID string) domain.PlayerStatus {
	s, ok := r.GetByPlayer(playerID)
	if !ok {
		return domain.PlayerStatus{}
	}
	return s.StatusFor(playerID)
}

// Remove drops a session and releases all its players from the index.
func (r *Registry) Remove(gameID string) {
	r.remove(gameID, "removed")
}

func (r *Registry) remove(gameID, cause string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(gameID, cause)
}

func (r *Registry) removeLocked(gameID, cause string) {
	s, ok := r.games[gameID]
	if !ok {
		return
	}

	for _, playerID := range s.PlayerIDs() {
		if r.byPlayer[playerID] == gameID {
			delete(r.byPlayer, playerID)
		}
	}
	delete(r.games, gameID)

	telemetry.GamesRemoved.WithLabelValues(cause).Inc()
	telemetry.ActiveGames.Set(float64(len(r.games)))
}

// Sweep retires every session idle since before cutoff, regardless of state,
// and returns the removed game ids. No leaderboard writes happen for swept
// games.
func (r *Registry) Sweep(cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []string
	for id, s := range r.games {
		if s.LastActivity().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		r.removeLocked(id, "swept")
	}
	return stale
}

func (r *Registry) get(gameID string) (*game.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.games[gameID]
	return s, ok
}

func (r *Registry) checkNotInGame(playerID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, busy := r.byPlayer[playerID]; busy {
		return alreadyInGame()
	}
	return nil
}

func validateParams(d domain.Difficulty, questionCount, maxPlayers int) error {
	if !d.Valid() {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithReason(errors.ReasonInvalidParameters),
			errors.WithMessagef("unknown difficulty %q", d),
		)
	}
	if questionCount < MinQuestions || questionCount > MaxQuestions {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithReason(errors.ReasonInvalidParameters),
			errors.WithMessagef("question count must be between %d and %d", MinQuestions, MaxQuestions),
		)
	}
	if maxPlayers < 1 || maxPlayers > MaxCapacity {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithReason(errors.ReasonInvalidParameters),
			errors.WithMessagef("max players must be between 1 and %d", MaxCapacity),
		)
	}
	return nil
}

func alreadyInGame() error {
	return errors.New(errors.CodeFailedPrecondition,
		errors.WithReason(errors.ReasonAlreadyInGame),
		errors.WithMessagef("you are already in a game"),
	)
}

func gameNotFound(gameID string) error {
	return errors.New(errors.CodeNotFound,
		errors.WithReason(errors.ReasonGameNotFound),
		errors.WithMessagef("game %s not found", gameID),
	)
}
