package clock

import (
	"sync"
	"time"
)

// Manual is a Scheduler driven explicitly by tests. Advance moves the fake
// clock forward and fires any timers whose deadline has passed, in deadline
// order, on the calling goroutine.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTimer{m: m, at: m.now.Add(d), f: f}
	m.timers = append(m.timers, t)
	return t
}

func (m *Manual) NewTicker(d time.Duration) Ticker {
	return &manualTicker{c: make(chan time.Time, 1)}
}

// Set moves the clock to t without firing anything. Timers due by t fire on
// the next Advance.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock by d, firing due timers.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.nextDue()
		if t == nil {
			return
		}
		t.f()
	}
}

func (m *Manual) nextDue() *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due *manualTimer
	idx := -1
	for i, t := range m.timers {
		if t.stopped || t.fired || t.at.After(m.now) {
			continue
		}
		if due == nil || t.at.Before(due.at) {
			due, idx = t, i
		}
	}
	if due == nil {
		return nil
	}
	m.timers[idx].fired = true
	return due
}

type manualTimer struct {
	m       *Manual
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type manualTicker struct {
	c chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {}

// Tick delivers one tick to a ticker obtained from NewTicker.
func Tick(tk Ticker, at time.Time) {
	if mt, ok := tk.(*manualTicker); ok {
		mt.c <- at
	}
}
