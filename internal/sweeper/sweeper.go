// Package sweeper retires sessions whose owning clients disappeared without
// quitting or cancelling. It is the backstop behind the normal lifecycle, not
// part of it.
package sweeper

import (
	"log/slog"
	"time"

	"versequiz/internal/clock"
)

const (
	defaultInterval  = 10 * time.Minute
	defaultIdleAfter = 2 * time.Hour
)

// Target is the registry surface the sweeper needs.
type Target interface {
	Sweep(cutoff time.Time) []string
}

type Config struct {
	Registry  Target
	Scheduler clock.Scheduler

	// Interval between sweeps. Defaults to 10 minutes.
	Interval time.Duration
	// IdleAfter is the staleness threshold. Defaults to 2 hours.
	IdleAfter time.Duration

	// NewTickerFunc overrides how the sweep ticker is built. Tests use it to
	// drive sweeps by hand.
	NewTickerFunc func(d time.Duration) clock.Ticker
}

type Sweeper struct {
	registry  Target
	sched     clock.Scheduler
	interval  time.Duration
	idleAfter time.Duration
	newTicker func(d time.Duration) clock.Ticker

	ticker clock.Ticker
	done   chan struct{}
}

func New(c Config) *Sweeper {
	s := &Sweeper{
		registry:  c.Registry,
		sched:     c.Scheduler,
		interval:  c.Interval,
		idleAfter: c.IdleAfter,
		newTicker: c.NewTickerFunc,
		done:      make(chan struct{}),
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.idleAfter <= 0 {
		s.idleAfter = defaultIdleAfter
	}
	if s.newTicker == nil {
		s.newTicker = s.sched.NewTicker
	}
	return s
}

// Start launches the sweep loop. Call Stop to end it.
func (s *Sweeper) Start() {
	s.ticker = s.newTicker(s.interval)

	go func() {
		for {
			select {
			case <-s.ticker.C():
				s.sweep()
			case <-s.done:
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.done)
}

// Sweep runs one reclamation pass immediately.
func (s *Sweeper) Sweep() {
	s.sweep()
}

func (s *Sweeper) sweep() {
	cutoff := s.sched.Now().Add(-s.idleAfter)
	removed := s.registry.Sweep(cutoff)
	if len(removed) > 0 {
		slog.Info("sweeper: retired idle sessions",
			"count", len(removed),
			"games", removed,
		)
	}
}
