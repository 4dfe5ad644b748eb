// internal/realtime/state.go
package realtime

// ConnectionState is the lifecycle state of a match client.
type ConnectionState string

const (
	StateIdle         ConnectionState = "idle"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
	StateError        ConnectionState = "error"
	StateDisconnected ConnectionState = "disconnected"
)

// Event drives the connection state machine.
type Event string

const (
	EventStart           Event = "start"
	EventHandshakeOK     Event = "handshake-ok"
	EventHandshakeFailed Event = "handshake-failed"
	EventTransportError  Event = "transport-error"
	EventRetryScheduled  Event = "retry-scheduled"
	EventRetryDue        Event = "retry-due"
	EventTeardown        Event = "teardown"
)

// Next returns the state reached from s on e, and false when e does not
// apply in s (the state is then unchanged). Teardown applies everywhere.
func Next(s ConnectionState, e Event) (ConnectionState, bool) {
	if e == EventTeardown {
		return StateDisconnected, true
	}
	switch s {
	case StateIdle:
		if e == EventStart {
			return StateConnecting, true
		}
	case StateConnecting:
		switch e {
		case EventHandshakeOK:
			return StateConnected, true
		case EventHandshakeFailed:
			return StateError, true
		}
	case StateConnected:
		if e == EventTransportError {
			return StateError, true
		}
	case StateError:
		if e == EventRetryScheduled {
			return StateReconnecting, true
		}
	case StateReconnecting:
		if e == EventRetryDue {
			return StateConnecting, true
		}
	}
	return s, false
}
