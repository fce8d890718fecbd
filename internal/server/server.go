package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"versequiz/internal/api"
	"versequiz/internal/clock"
	"versequiz/internal/domain"
	"versequiz/internal/event"
	"versequiz/internal/leaderboard"
	"versequiz/internal/question"
	"versequiz/internal/registry"
	"versequiz/internal/sweeper"
	"versequiz/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Leaderboard struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Leaderboard struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}

	Leaderboard struct {
		// Backend picks the win store: "redis" (default) or "postgres".
		Backend string
	}

	Questions struct {
		// Source picks where question batches come from: "http" (default)
		// pulls from the generator service, "static" serves built-in
		// placeholder pools for local development.
		Source string

		Generator struct {
			URL     string
			Timeout time.Duration
		}
	}

	Game struct {
		MinPlayersToStart int
	}

	Sweeper struct {
		Interval  time.Duration
		IdleAfter time.Duration
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
		}

		postgres struct {
			leaderboard *pgxpool.Pool
		}
	}

	service struct {
		registry    *registry.Registry
		leaderboard *leaderboard.Service
		sweeper     *sweeper.Sweeper
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	if s.c.Leaderboard.Backend == "postgres" {
		return nil
	}

	s.infra.redis.leaderboard, err = connect(s.c.Redis.Leaderboard.Addrs, s.c.Redis.Leaderboard.Pass)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() error {
	if s.c.Leaderboard.Backend != "postgres" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg := s.c.Postgres.Leaderboard
	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", pg.User, pg.Pass, pg.Addr, pg.Name))
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.postgres.leaderboard = db
	return nil
}

func (s *Server) initService() error {
	src, err := s.questionSource()
	if err != nil {
		return err
	}

	s.service.registry = registry.New(registry.Config{
		Questions:         src,
		Scheduler:         clock.System(),
		EventBus:          s.eb,
		MinPlayersToStart: s.c.Game.MinPlayersToStart,
	})

	store, err := s.winStore()
	if err != nil {
		return err
	}

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus: s.eb,
		Store:    store,
	})

	s.service.sweeper = sweeper.New(sweeper.Config{
		Registry:  s.service.registry,
		Scheduler: clock.System(),
		Interval:  s.c.Sweeper.Interval,
		IdleAfter: s.c.Sweeper.IdleAfter,
	})

	return nil
}

func (s *Server) questionSource() (question.Source, error) {
	switch s.c.Questions.Source {
	case "", "http":
		if s.c.Questions.Generator.URL == "" {
			return nil, fmt.Errorf("questions: generator URL not set")
		}
		return question.NewHTTPSource(question.HTTPConfig{
			URL:     s.c.Questions.Generator.URL,
			Timeout: s.c.Questions.Generator.Timeout,
		}), nil

	case "static":
		pools := make(map[domain.Difficulty][]domain.Question)
		for _, d := range domain.Difficulties() {
			pools[d] = question.Placeholder(d, 2*registry.MaxQuestions)
		}
		return question.NewStaticSource(pools), nil

	default:
		return nil, fmt.Errorf("questions: unknown source %q", s.c.Questions.Source)
	}
}

func (s *Server) winStore() (leaderboard.Store, error) {
	switch s.c.Leaderboard.Backend {
	case "", "redis":
		return leaderboard.NewRedisStore(s.infra.redis.leaderboard, s.c.Redis.Leaderboard.Prefix), nil

	case "postgres":
		return leaderboard.NewPostgresStore(s.infra.postgres.leaderboard), nil

	default:
		return nil, fmt.Errorf("leaderboard: unknown backend %q", s.c.Leaderboard.Backend)
	}
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	api.New(api.Config{
		Engine:       e,
		EventBus:     s.eb,
		Registry:     s.service.registry,
		Leaderboard:  s.service.leaderboard,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	s.service.sweeper.Start()

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.service.sweeper.Stop()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	if s.infra.postgres.leaderboard != nil {
		s.infra.postgres.leaderboard.Close()
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
