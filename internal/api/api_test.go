package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"versequiz/internal/api"
	"versequiz/internal/clock"
	"versequiz/internal/domain"
	"versequiz/internal/errors"
	"versequiz/internal/event"
	"versequiz/internal/leaderboard"
	"versequiz/internal/question"
	"versequiz/internal/registry"
)

func TestAPI_CreateAndJoinFlow(t *testing.T) {
	f := newFixture(t)

	resp := f.do(http.MethodPost, "/v1/games", gin.H{
		"player_id":      "p1",
		"display_name":   "One",
		"difficulty":     "medium",
		"question_count": 5,
		"max_players":    3,
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	var created struct {
		Game domain.GameSummary `json:"game"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "One's game", created.Game.Name)
	assert.Equal(t, 1, created.Game.CurrentPlayers)

	resp = f.do(http.MethodPost, "/v1/games/"+created.Game.ID+"/join", gin.H{
		"player_id":    "p2",
		"display_name": "Two",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(http.MethodGet, "/v1/games", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var listed struct {
		Games []domain.GameSummary `json:"games"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &listed))
	require.Len(t, listed.Games, 1)
	assert.Equal(t, 2, listed.Games[0].CurrentPlayers)
}

func TestAPI_QuickJoin(t *testing.T) {
	f := newFixture(t)

	resp := f.do(http.MethodPost, "/v1/games", gin.H{
		"player_id":      "p1",
		"display_name":   "One",
		"difficulty":     "easy",
		"question_count": 5,
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = f.do(http.MethodPost, "/v1/games/quick/join", gin.H{
		"player_id":    "p2",
		"display_name": "Two",
	})
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(http.MethodPost, "/v1/games/quick/join", gin.H{
		"player_id":    "p2",
		"display_name": "Two",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, errors.ReasonAlreadyInGame, reason(t, resp))
}

func TestAPI_ErrorMapping(t *testing.T) {
	tests := map[string]struct {
		act        func(f *fixture) *httptest.ResponseRecorder
		wantStatus int
		wantReason string
	}{
		"malformed payload": {
			act: func(f *fixture) *httptest.ResponseRecorder {
				return f.do(http.MethodPost, "/v1/games", gin.H{"player_id": "p1"})
			},
			wantStatus: http.StatusBadRequest,
			wantReason: errors.ReasonInvalidParameters,
		},
		"question count out of bounds": {
			act: func(f *fixture) *httptest.ResponseRecorder {
				return f.do(http.MethodPost, "/v1/games", gin.H{
					"player_id":      "p1",
					"display_name":   "One",
					"difficulty":     "easy",
					"question_count": 50,
				})
			},
			wantStatus: http.StatusBadRequest,
			wantReason: errors.ReasonInvalidParameters,
		},
		"duplicate create": {
			act: func(f *fixture) *httptest.ResponseRecorder {
				f.createGame(t, "p1", "One")
				return f.do(http.MethodPost, "/v1/games", gin.H{
					"player_id":      "p1",
					"display_name":   "One",
					"difficulty":     "easy",
					"question_count": 5,
				})
			},
			wantStatus: http.StatusConflict,
			wantReason: errors.ReasonAlreadyInGame,
		},
		"join unknown game": {
			act: func(f *fixture) *httptest.ResponseRecorder {
				return f.do(http.MethodPost, "/v1/games/nope/join", gin.H{
					"player_id":    "p1",
					"display_name": "One",
				})
			},
			wantStatus: http.StatusNotFound,
			wantReason: errors.ReasonGameNotFound,
		},
		"start by non-creator": {
			act: func(f *fixture) *httptest.ResponseRecorder {
				id := f.createGame(t, "p1", "One")
				f.do(http.MethodPost, "/v1/games/"+id+"/join", gin.H{
					"player_id":    "p2",
					"display_name": "Two",
				})
				return f.do(http.MethodPost, "/v1/games/"+id+"/start", gin.H{"player_id": "p2"})
			},
			wantStatus: http.StatusForbidden,
			wantReason: errors.ReasonNotCreator,
		},
		"quit when not playing": {
			act: func(f *fixture) *httptest.ResponseRecorder {
				return f.do(http.MethodPost, "/v1/players/ghost/quit", nil)
			},
			wantStatus: http.StatusConflict,
			wantReason: errors.ReasonNotInGame,
		},
		"answer for unknown game": {
			act: func(f *fixture) *httptest.ResponseRecorder {
				return f.do(http.MethodPost, "/v1/games/nope/answers", gin.H{
					"player_id": "p1",
					"option":    1,
				})
			},
			wantStatus: http.StatusNotFound,
			wantReason: errors.ReasonGameNotFound,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)

			resp := tt.act(f)
			assert.Equal(t, tt.wantStatus, resp.Code)
			assert.Equal(t, tt.wantReason, reason(t, resp))
		})
	}
}

func TestAPI_SoloStatusIncludesOpenQuestion(t *testing.T) {
	f := newFixture(t)

	resp := f.do(http.MethodPost, "/v1/games", gin.H{
		"player_id":      "p1",
		"display_name":   "One",
		"difficulty":     "easy",
		"question_count": 5,
		"solo":           true,
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = f.do(http.MethodGet, "/v1/players/p1/status", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var status struct {
		Status   domain.PlayerStatus  `json:"status"`
		Question *domain.QuestionView `json:"question"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
	assert.True(t, status.Status.InGame)
	assert.Equal(t, domain.GameInProgress, status.Status.GameStatus)
	assert.Equal(t, 1, status.Status.CurrentQuestion)
	require.NotNil(t, status.Question)
	assert.Len(t, status.Question.Options, 4)
	assert.NotContains(t, resp.Body.String(), "correct", "the open question must not leak the answer")
}

func TestAPI_LeaderboardDegradesGracefully(t *testing.T) {
	f := newFixture(t)

	resp := f.do(http.MethodGet, "/v1/leaderboard", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	// Losing redis must yield an explicit degraded response, not a crash.
	f.mr.Close()

	resp = f.do(http.MethodGet, "/v1/leaderboard", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, errors.ReasonLeaderboardUnavailable, reason(t, resp))
}

func TestAPI_PushesQuestionChangedNotifications(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := f.rc.PSubscribe(ctx, "test:pubsub:game:*")
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err, "subscription should be confirmed")

	resp := f.do(http.MethodPost, "/v1/games", gin.H{
		"player_id":      "p1",
		"display_name":   "One",
		"difficulty":     "easy",
		"question_count": 5,
		"solo":           true,
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var n struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))
	assert.Equal(t, domain.EventNameQuestionChanged, n.Event)

	var data api.QuestionChanged
	require.NoError(t, json.Unmarshal(n.Data, &data))
	assert.Equal(t, 0, data.QuestionIndex)
	assert.Equal(t, 5, data.TotalQuestions)
}

type fixture struct {
	engine *gin.Engine
	bus    *event.Bus
	sched  *clock.Manual
	mr     *miniredis.Miniredis
	rc     redis.UniversalClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		engine: gin.New(),
		bus:    event.NewBus(),
		sched:  clock.NewManual(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		mr:     miniredis.RunT(t),
	}
	t.Cleanup(f.bus.Stop)

	f.rc = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{f.mr.Addr()}})
	t.Cleanup(func() { f.rc.Close() })

	reg := registry.New(registry.Config{
		Questions: staticSource(),
		Scheduler: f.sched,
		EventBus:  f.bus,
	})
	lb := leaderboard.NewService(leaderboard.Config{
		EventBus: f.bus,
		Store:    leaderboard.NewRedisStore(f.rc, "test:leaderboard"),
	})

	api.New(api.Config{
		Engine:       f.engine,
		EventBus:     f.bus,
		Registry:     reg,
		Leaderboard:  lb,
		Redis:        f.rc,
		PubsubPrefix: "test:pubsub",
	})

	return f
}

func staticSource() *question.StaticSource {
	pools := make(map[domain.Difficulty][]domain.Question)
	for _, d := range domain.Difficulties() {
		pools[d] = question.Placeholder(d, 20)
	}
	return question.NewStaticSource(pools)
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *fixture) createGame(t *testing.T, playerID, name string) string {
	t.Helper()

	resp := f.do(http.MethodPost, "/v1/games", gin.H{
		"player_id":      playerID,
		"display_name":   name,
		"difficulty":     "easy",
		"question_count": 5,
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	var created struct {
		Game domain.GameSummary `json:"game"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	return created.Game.ID
}

func reason(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body), "body: %s", resp.Body.String())
	require.NotEmpty(t, body.Error.Message)
	return body.Error.Reason
}
