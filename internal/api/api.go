// Package api is the interaction-adapter boundary: it translates platform
// requests into coordinator calls and pushes game events out over redis
// pubsub. Every rejection maps to a typed error with a stable reason, so the
// rendering side never guesses intent, and stale or duplicate requests get an
// idempotent rejection instead of a crash.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"versequiz/internal/domain"
	"versequiz/internal/errors"
	"versequiz/internal/event"
	"versequiz/internal/leaderboard"
	"versequiz/internal/registry"
)

// QuickJoinID is the game id that routes a join to the oldest waiting game.
const QuickJoinID = "quick"

type Config struct {
	Engine       *gin.Engine
	EventBus     *event.Bus
	Registry     *registry.Registry
	Leaderboard  *leaderboard.Service
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	registry    *registry.Registry
	leaderboard *leaderboard.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		registry:    c.Registry,
		leaderboard: c.Leaderboard,
		redis:       c.Redis,
		prefix:      c.PubsubPrefix,
	}

	v1 := c.Engine.Group("/v1")
	v1.POST("/games", a.createGame)
	v1.GET("/games", a.listGames)
	v1.POST("/games/:id/join", a.joinGame)
	v1.POST("/games/:id/start", a.startGame)
	v1.POST("/games/:id/answers", a.submitAnswer)
	v1.POST("/players/:id/quit", a.quitGame)
	v1.GET("/players/:id/status", a.playerStatus)
	v1.GET("/leaderboard", a.getLeaderboard)

	c.EventBus.Subscribe(domain.EventNameQuestionChanged, func(ctx context.Context, e event.Event) error {
		return a.PublishQuestionChanged(ctx, e.(domain.EventQuestionChanged))
	})
	c.EventBus.Subscribe(domain.EventNameGameCompleted, func(ctx context.Context, e event.Event) error {
		return a.PublishGameCompleted(ctx, e.(domain.EventGameCompleted))
	})
	c.EventBus.Subscribe(domain.EventNameGameCancelled, func(ctx context.Context, e event.Event) error {
		return a.PublishGameCancelled(ctx, e.(domain.EventGameCancelled))
	})

	return a
}

type createGameRequest struct {
	PlayerID      string            `json:"player_id" binding:"required"`
	DisplayName   string            `json:"display_name" binding:"required"`
	Difficulty    domain.Difficulty `json:"difficulty" binding:"required"`
	QuestionCount int               `json:"question_count" binding:"required"`
	MaxPlayers    int               `json:"max_players"`
	Solo          bool              `json:"solo"`
}

func (a *API) createGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest(err))
		return
	}

	var (
		s   summarizer
		err error
	)
	if req.Solo {
		s, err = a.registry.CreateSoloGame(c.Request.Context(), req.PlayerID, req.DisplayName, req.Difficulty, req.QuestionCount)
	} else {
		s, err = a.registry.CreateGame(c.Request.Context(), req.PlayerID, req.DisplayName, req.Difficulty, req.QuestionCount, req.MaxPlayers)
	}
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"game": s.Summary()})
}

func (a *API) listGames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"games": a.registry.ListWaitingGames()})
}

type joinGameRequest struct {
	PlayerID    string `json:"player_id" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
}

func (a *API) joinGame(c *gin.Context) {
	var req joinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest(err))
		return
	}

	var (
		s   summarizer
		err error
	)
	if gameID := c.Param("id"); gameID == QuickJoinID {
		s, err = a.registry.QuickJoin(req.PlayerID, req.DisplayName)
	} else {
		s, err = a.registry.JoinGame(req.PlayerID, req.DisplayName, gameID)
	}
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": s.Summary()})
}

type startGameRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

func (a *API) startGame(c *gin.Context) {
	var req startGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest(err))
		return
	}

	if err := a.registry.StartGame(req.PlayerID, c.Param("id")); err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"started": true})
}

type submitAnswerRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
	Option   *int   `json:"option" binding:"required"`
}

func (a *API) submitAnswer(c *gin.Context) {
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest(err))
		return
	}

	res, err := a.registry.SubmitAnswer(c.Param("id"), req.PlayerID, *req.Option)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": res})
}

func (a *API) quitGame(c *gin.Context) {
	if err := a.registry.QuitGame(c.Param("id")); err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quit": true})
}

func (a *API) playerStatus(c *gin.Context) {
	playerID := c.Param("id")
	status := a.registry.StatusFor(playerID)

	resp := gin.H{"status": status}
	if s, ok := a.registry.GetByPlayer(playerID); ok {
		if q, open := s.CurrentQuestion(); open {
			resp["question"] = q
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) getLeaderboard(c *gin.Context) {
	lb, err := a.leaderboard.GetLeaderboard(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": lb})
}

type summarizer interface {
	Summary() domain.GameSummary
}

func badRequest(err error) error {
	return errors.New(errors.CodeInvalidArgument,
		errors.WithReason(errors.ReasonInvalidParameters),
		errors.WithMessagef("invalid request payload"),
		errors.WithCause(err),
	)
}

func renderError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.JSON(e.HTTPStatusCode(), gin.H{"error": e})
}
