// internal/realtime/state_test.go
package realtime

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay(t *testing.T) {
	b := DefaultBackoff()
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second}
	for n, d := range want {
		assert.Equal(t, d, b.Delay(n), "attempt %d", n)
	}
	assert.Equal(t, 30*time.Second, b.Delay(1000))
	assert.Equal(t, 30*time.Second, b.Delay(math.MaxInt32))

	uncapped := Backoff{Base: time.Second}
	assert.Equal(t, time.Duration(math.MaxInt64), uncapped.Delay(200))
	assert.Equal(t, time.Duration(0), Backoff{}.Delay(3))
}

func TestNextHappyPathAndRecovery(t *testing.T) {
	steps := []struct {
		event Event
		want  ConnectionState
	}{
		{EventStart, StateConnecting},
		{EventHandshakeFailed, StateError},
		{EventRetryScheduled, StateReconnecting},
		{EventRetryDue, StateConnecting},
		{EventHandshakeOK, StateConnected},
		{EventTransportError, StateError},
		{EventRetryScheduled, StateReconnecting},
		{EventTeardown, StateDisconnected},
	}
	s := StateIdle
	for _, step := range steps {
		next, ok := Next(s, step.event)
		assert.True(t, ok, "%s in %s", step.event, s)
		assert.Equal(t, step.want, next)
		s = next
	}
}

func TestNextRejectsOutOfOrderEvents(t *testing.T) {
	for _, tc := range []struct {
		state ConnectionState
		event Event
	}{
		{StateIdle, EventRetryDue},
		{StateConnected, EventHandshakeOK},
		{StateConnected, EventRetryDue},
		{StateReconnecting, EventHandshakeOK},
		{StateDisconnected, EventStart},
		{StateDisconnected, EventRetryDue},
	} {
		next, ok := Next(tc.state, tc.event)
		assert.False(t, ok, "%s in %s", tc.event, tc.state)
		assert.Equal(t, tc.state, next)
	}
}
