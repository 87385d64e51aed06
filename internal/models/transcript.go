package models

import "time"

// TranscriptLine is one finalized utterance in the session transcript.
// Lines are immutable once appended, except Speaker, which may be rewritten
// when a later identification resolves the true name for a placeholder.
type TranscriptLine struct {
	Timestamp time.Time `json:"timestamp"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Channel   Channel   `json:"channel"`
}

// Word is a single recognized word, optionally tagged with a diarization
// speaker id assigned by the recognition provider.
type Word struct {
	Word    string `json:"word"`
	Speaker *int   `json:"speaker,omitempty"`
}

// TranscriptEvent is the canonical result emitted by a recognition stream.
type TranscriptEvent struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"isFinal"`
	SpeakerTag *int    `json:"speakerTag,omitempty"`
	Words      []Word  `json:"words,omitempty"`
	Channel    Channel `json:"channel"`
}

// Speaker tracks one diarized participant for the duration of a session.
type Speaker struct {
	Tag          string    `json:"tag"`
	Name         string    `json:"name"`
	Utterances   int       `json:"utterances"`
	LastSeen     time.Time `json:"lastSeen"`
	AutoDetected bool      `json:"autoDetected"`
}
