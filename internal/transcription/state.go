// Package transcription maintains streaming speech-recognition sessions,
// one per (session, channel) pair, and converts provider messages into
// canonical transcript events.
package transcription

import (
	"errors"
	"fmt"
	"sync"
)

// ConnState represents the lifecycle state of one recognition connection.
type ConnState int

const (
	// StateDisconnected - No connection; initial and terminal state.
	StateDisconnected ConnState = iota
	// StateConnecting - Dial in progress.
	StateConnecting
	// StateConnected - Connection open, audio may flow.
	StateConnected
	// StateClosing - Graceful shutdown in progress.
	StateClosing
	// StateReconnecting - Waiting out backoff before the next dial.
	StateReconnecting
)

// String returns the string representation of the state.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosing:
		return "CLOSING"
	case StateReconnecting:
		return "RECONNECTING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Errors for invalid state transitions.
var (
	ErrAlreadyConnecting = errors.New("connection attempt already in progress")
	ErrNotConnected      = errors.New("connection is not in the connected state")
	ErrClosing           = errors.New("connection is closing")
)

// connLifecycle manages the state machine for a single recognition
// connection. Thread-safe for concurrent access.
//
// State transitions:
//
//	DISCONNECTED → CONNECTING → CONNECTED → (CLOSING | RECONNECTING)
//	                   │                          │
//	                   └── dial failure ──────────┤
//	                                              │
//	    RECONNECTING → CONNECTING  (next attempt) │
//	    CLOSING | RECONNECTING → DISCONNECTED ←───┘
type connLifecycle struct {
	mu    sync.RWMutex
	state ConnState
}

func newConnLifecycle() *connLifecycle {
	return &connLifecycle{state: StateDisconnected}
}

// State returns the current state.
func (l *connLifecycle) State() ConnState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsConnected reports whether audio may be sent.
func (l *connLifecycle) IsConnected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateConnected
}

// ToConnecting begins a dial. Allowed from DISCONNECTED and RECONNECTING.
func (l *connLifecycle) ToConnecting() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateDisconnected, StateReconnecting:
		l.state = StateConnecting
		return nil
	case StateConnecting, StateConnected:
		return ErrAlreadyConnecting
	case StateClosing:
		return ErrClosing
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// ToConnected records a successful dial. Allowed only from CONNECTING.
func (l *connLifecycle) ToConnected() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateConnecting {
		return fmt.Errorf("cannot connect from %v", l.state)
	}
	l.state = StateConnected
	return nil
}

// ToReconnecting enters the backoff wait after an unexpected close or dial
// failure. Not allowed once closing.
func (l *connLifecycle) ToReconnecting() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateConnecting, StateConnected:
		l.state = StateReconnecting
		return nil
	case StateClosing, StateDisconnected:
		return ErrClosing
	case StateReconnecting:
		return nil
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// ToClosing begins a graceful shutdown. Idempotent; allowed from any state.
func (l *connLifecycle) ToClosing() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateDisconnected {
		l.state = StateClosing
	}
}

// ToDisconnected records the connection fully torn down. Terminal until the
// next ToConnecting. Idempotent.
func (l *connLifecycle) ToDisconnected() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateDisconnected
}

// IsClosing reports whether a graceful shutdown was requested.
func (l *connLifecycle) IsClosing() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateClosing
}
