package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_AdvanceFiresInDeadlineOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))

	var fired []string
	m.AfterFunc(2*time.Second, func() { fired = append(fired, "second") })
	m.AfterFunc(1*time.Second, func() { fired = append(fired, "first") })

	m.Advance(3 * time.Second)

	assert.Equal(t, []string{"first", "second"}, fired)
}

func TestManual_SetDoesNotFire(t *testing.T) {
	m := NewManual(time.Unix(0, 0))

	var fired bool
	m.AfterFunc(time.Second, func() { fired = true })

	m.Set(m.Now().Add(5 * time.Second))
	require.False(t, fired)
	assert.Equal(t, time.Unix(5, 0), m.Now())

	// The overdue timer fires once the clock is driven again.
	m.Advance(0)
	assert.True(t, fired)
}

func TestManual_StoppedTimerNeverFires(t *testing.T) {
	m := NewManual(time.Unix(0, 0))

	var fired bool
	timer := m.AfterFunc(time.Second, func() { fired = true })
	require.True(t, timer.Stop())

	m.Advance(2 * time.Second)
	assert.False(t, fired)
	assert.False(t, timer.Stop())
}
