package models

import "time"

// MeetingSummary is produced exactly once at session end from a snapshot of
// the accumulated session state.
type MeetingSummary struct {
	ID           string           `json:"id"`
	SessionID    string           `json:"sessionId"`
	Title        string           `json:"title,omitempty"`
	StartedAt    time.Time        `json:"startedAt"`
	Duration     int64            `json:"durationSeconds"`
	Summary      string           `json:"summary"`
	KeyPoints    []string         `json:"keyPoints,omitempty"`
	ActionItems  []string         `json:"actionItems,omitempty"`
	Participants []string         `json:"participants,omitempty"`
	Speakers     []Speaker        `json:"speakers,omitempty"`
	AppLabel     string           `json:"appLabel,omitempty"`
	Transcript   []TranscriptLine `json:"transcript,omitempty"`
	Tips         []CoachingTip    `json:"tips,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// SummaryMeta is the listing view of a stored summary.
type SummaryMeta struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Title     string    `json:"title,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	Duration  int64     `json:"durationSeconds"`
	CreatedAt time.Time `json:"createdAt"`
}
