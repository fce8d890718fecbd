package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"versequiz/internal/domain"
)

const maxConcurrent = 100

// Notification is the envelope pushed to the platform adapter over pubsub so
// it can render new prompts and results without polling.
type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	QuestionChanged struct {
		GameID         string                 `json:"game_id"`
		QuestionIndex  int                    `json:"question_index"`
		TotalQuestions int                    `json:"total_questions"`
		Question       domain.QuestionView    `json:"question"`
		Deadline       time.Time              `json:"deadline"`
		Reveal         *domain.QuestionReveal `json:"reveal,omitempty"`
		Results        []domain.PlayerResult  `json:"results,omitempty"`
	}

	GameCompleted struct {
		GameID       string                 `json:"game_id"`
		Difficulty   domain.Difficulty      `json:"difficulty"`
		Solo         bool                   `json:"solo"`
		Standings    []domain.Standing      `json:"standings"`
		Reveal       *domain.QuestionReveal `json:"reveal,omitempty"`
		FinalResults []domain.PlayerResult  `json:"final_results,omitempty"`
	}

	GameCancelled struct {
		GameID string `json:"game_id"`
		Reason string `json:"reason"`
	}
)

func (a *API) PublishQuestionChanged(ctx context.Context, e domain.EventQuestionChanged) error {
	return a.publishNotification(ctx, gameChannel(e.GameID), e.Name(), QuestionChanged{
		GameID:         e.GameID,
		QuestionIndex:  e.QuestionIndex,
		TotalQuestions: e.TotalQuestions,
		Question:       e.Question,
		Deadline:       e.Deadline,
		Reveal:         e.Reveal,
		Results:        e.Results,
	})
}

// PublishGameCompleted announces the final standings on the game channel and
// fans the same payload out to each ranked player's own channel.
func (a *API) PublishGameCompleted(ctx context.Context, e domain.EventGameCompleted) error {
	data := GameCompleted{
		GameID:       e.GameID,
		Difficulty:   e.Difficulty,
		Solo:         e.Solo,
		Standings:    e.Standings,
		Reveal:       e.Reveal,
		FinalResults: e.FinalResults,
	}

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	eg.Go(func() error {
		return a.publishNotification(ctx, gameChannel(e.GameID), e.Name(), data)
	})
	for _, st := range e.Standings {
		st := st
		eg.Go(func() error {
			return a.publishNotification(ctx, playerChannel(st.PlayerID), e.Name(), data)
		})
	}

	return eg.Wait()
}

func (a *API) PublishGameCancelled(ctx context.Context, e domain.EventGameCancelled) error {
	return a.publishNotification(ctx, gameChannel(e.GameID), e.Name(), GameCancelled{
		GameID: e.GameID,
		Reason: e.Reason,
	})
}

func (a *API) publishNotification(ctx context.Context, channel, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:%s", a.prefix, channel), b).Err()
}

func gameChannel(gameID string) string     { return "game:" + gameID }
func playerChannel(playerID string) string { return "player:" + playerID }
