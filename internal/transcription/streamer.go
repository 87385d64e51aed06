package transcription

import (
	"context"
	"errors"

	"ai-meeting-copilot/internal/models"
)

// Terminal stream errors surfaced through Callback.OnStreamError.
var (
	// ErrRejected - the provider closed the connection with an auth/policy
	// code. Never retried.
	ErrRejected = errors.New("recognition stream rejected by provider")
	// ErrDropped - the connection was lost and every reconnect attempt
	// failed.
	ErrDropped = errors.New("recognition stream dropped")
)

// Callback receives transcript events and terminal stream errors.
// Implementations must not block; they are invoked from stream goroutines.
type Callback interface {
	// OnTranscript delivers a partial or final transcript event for the
	// stream identified by id.
	OnTranscript(id string, ev models.TranscriptEvent)

	// OnStreamError reports a terminal error for the stream. The stream is
	// already removed from the live set when this fires.
	OnStreamError(id string, channel models.Channel, err error)
}

// Streamer is the recognition backend contract. The websocket Client is the
// primary implementation; the google adapter is the alternate backend.
type Streamer interface {
	// StartSession opens a streaming connection for id. An existing session
	// with the same id is stopped first.
	StartSession(ctx context.Context, id string, channel models.Channel, language string) error

	// SendAudioChunk forwards raw PCM to the provider. Fire-and-forget: the
	// chunk is silently dropped when the connection is not Connected.
	SendAudioChunk(id string, data []byte)

	// StopSession gracefully ends the session, waiting briefly for trailing
	// final results. The session always leaves the live set.
	StopSession(ctx context.Context, id string) error

	// StopAll stops every live session.
	StopAll(ctx context.Context)
}
