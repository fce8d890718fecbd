// Package leaderboard merges completed-game results into the external
// persisted win store and serves ranked views per difficulty.
package leaderboard

import (
	"context"
	"log/slog"

	"versequiz/internal/domain"
	"versequiz/internal/errors"
	"versequiz/internal/event"
)

// Store is the external persistence contract: append a win, fetch everything
// ranked. The coordinator never updates or deletes entries.
type Store interface {
	AppendWin(ctx context.Context, playerID, displayName string, d domain.Difficulty) error
	Fetch(ctx context.Context) (domain.Leaderboard, error)
}

type Config struct {
	EventBus *event.Bus
	Store    Store
}

type Service struct {
	eb    *event.Bus
	store Store
}

func NewService(c Config) *Service {
	s := &Service{
		eb:    c.EventBus,
		store: c.Store,
	}

	// The win write rides the async bus dispatch: game completion never waits
	// on the store, and a failed write is logged, not rolled back.
	s.eb.Subscribe(domain.EventNameGameCompleted, func(ctx context.Context, e event.Event) error {
		return s.HandleGameCompleted(ctx, e.(domain.EventGameCompleted))
	})

	return s
}

// HandleGameCompleted records the winner of a completed multiplayer game.
// Solo games never contribute wins.
func (s *Service) HandleGameCompleted(ctx context.Context, e domain.EventGameCompleted) error {
	if e.Solo {
		return nil
	}

	winner, ok := e.Winner()
	if !ok {
		return nil
	}

	if err := s.store.AppendWin(ctx, winner.PlayerID, winner.DisplayName, e.Difficulty); err != nil {
		slog.ErrorContext(ctx, "leaderboard: record win failed",
			"game", e.GameID,
			"player", winner.PlayerID,
			"error", err,
		)
	}
	return nil
}

// GetLeaderboard returns every difficulty's entries ordered by wins
// descending, ties broken by earliest recorded win. A store failure surfaces
// as a typed LeaderboardUnavailable so callers can degrade gracefully.
func (s *Service) GetLeaderboard(ctx context.Context) (domain.Leaderboard, error) {
	lb, err := s.store.Fetch(ctx)
	if err != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithReason(errors.ReasonLeaderboardUnavailable),
			errors.WithMessagef("leaderboard unavailable"),
			errors.WithCause(err),
		)
	}
	return lb, nil
}
