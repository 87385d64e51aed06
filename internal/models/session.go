// Package models defines the data structures shared across the copilot core.
package models

import "time"

// Channel identifies one of the two independent audio sources.
type Channel string

const (
	// ChannelMic carries the user's own microphone audio.
	ChannelMic Channel = "mic"
	// ChannelSystem carries the remote/meeting audio (everyone else).
	ChannelSystem Channel = "system"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c == ChannelMic || c == ChannelSystem
}

// SessionStatus is the lifecycle state of a meeting session.
type SessionStatus int

const (
	StatusIdle SessionStatus = iota
	StatusActive
	StatusStopping
)

// String returns the string representation of the status.
func (s SessionStatus) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusActive:
		return "ACTIVE"
	case StatusStopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

// Session is the identity and counters of one live meeting.
// At most one session is Active at any time.
type Session struct {
	ID             string        `json:"id"`
	Title          string        `json:"title,omitempty"`
	StartedAt      time.Time     `json:"startedAt"`
	ElapsedSeconds int64         `json:"elapsedSeconds"`
	Status         SessionStatus `json:"status"`
}
