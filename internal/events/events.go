// Package events provides the typed in-process event bus between the core
// components and the host UI, plus an optional Kafka mirror for the
// dashboard pipeline.
package events

import (
	"time"

	"ai-meeting-copilot/internal/models"
)

// Event is one host-visible notification. Delivery is fire-and-forget with
// at-most-once ordering per event type.
type Event interface {
	Type() string
}

// SessionStateChanged reports a session status transition.
type SessionStateChanged struct {
	SessionID string               `json:"sessionId"`
	Status    models.SessionStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
}

func (SessionStateChanged) Type() string { return "session.state_changed" }

// SessionStarted reports a new active session.
type SessionStarted struct {
	SessionID string    `json:"sessionId"`
	Title     string    `json:"title,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (SessionStarted) Type() string { return "session.started" }

// SessionStopped reports a completed session and its summary id.
type SessionStopped struct {
	SessionID string    `json:"sessionId"`
	SummaryID string    `json:"summaryId,omitempty"`
	Duration  int64     `json:"durationSeconds"`
	Timestamp time.Time `json:"timestamp"`
}

func (SessionStopped) Type() string { return "session.stopped" }

// TranscriptAppended reports a finalized transcript line.
type TranscriptAppended struct {
	SessionID string                `json:"sessionId"`
	Line      models.TranscriptLine `json:"line"`
}

func (TranscriptAppended) Type() string { return "transcript.appended" }

// TranscriptPartial reports the live preview text for one channel.
// Partials overwrite each other; they are never accumulated.
type TranscriptPartial struct {
	SessionID string         `json:"sessionId"`
	Channel   models.Channel `json:"channel"`
	Text      string         `json:"text"`
}

func (TranscriptPartial) Type() string { return "transcript.partial" }

// TipStarted reports a new coaching tip beginning to stream.
type TipStarted struct {
	SessionID string             `json:"sessionId"`
	Tip       models.CoachingTip `json:"tip"`
}

func (TipStarted) Type() string { return "tip.started" }

// TipChunk reports one streamed answer fragment.
type TipChunk struct {
	SessionID string `json:"sessionId"`
	TipID     string `json:"tipId"`
	Chunk     string `json:"chunk"`
}

func (TipChunk) Type() string { return "tip.chunk" }

// TipFinished reports a completed (or failed) coaching tip.
type TipFinished struct {
	SessionID string             `json:"sessionId"`
	Tip       models.CoachingTip `json:"tip"`
}

func (TipFinished) Type() string { return "tip.finished" }

// SpeakerIdentified reports a speaker tag resolving to a display name.
type SpeakerIdentified struct {
	SessionID string `json:"sessionId"`
	Tag       string `json:"tag"`
	Name      string `json:"name"`
	Manual    bool   `json:"manual"`
}

func (SpeakerIdentified) Type() string { return "speaker.identified" }

// ChannelError reports a terminal per-channel transport error.
type ChannelError struct {
	SessionID string         `json:"sessionId"`
	Channel   models.Channel `json:"channel"`
	Message   string         `json:"message"`
}

func (ChannelError) Type() string { return "channel.error" }
