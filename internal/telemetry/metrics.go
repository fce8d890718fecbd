package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GamesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "versequiz",
		Name:      "games_created_total",
		Help:      "Games created, by mode.",
	}, []string{"mode"})

	GamesRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "versequiz",
		Name:      "games_removed_total",
		Help:      "Games removed from the registry, by cause.",
	}, []string{"cause"})

	ActiveGames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "versequiz",
		Name:      "active_games",
		Help:      "Sessions currently held by the registry.",
	})

	AnswersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "versequiz",
		Name:      "answers_accepted_total",
		Help:      "Answer submissions accepted and scored.",
	})

	AnswersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "versequiz",
		Name:      "answers_rejected_total",
		Help:      "Answer submissions rejected, by reason.",
	}, []string{"reason"})
)
