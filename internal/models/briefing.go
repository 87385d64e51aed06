package models

import "time"

// Participant is one entry in the briefing roster.
type Participant struct {
	Name    string `json:"name"`
	Role    string `json:"role,omitempty"`
	Company string `json:"company,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// SourceDoc is one reference URL plus its fetched, markup-stripped text.
type SourceDoc struct {
	URL       string    `json:"url"`
	Text      string    `json:"text,omitempty"`
	FetchedAt time.Time `json:"fetchedAt,omitempty"`
	Err       string    `json:"err,omitempty"`
}

// Briefing is read-mostly pre-session context injected into every coaching
// and summary prompt.
type Briefing struct {
	Topic        string        `json:"topic,omitempty"`
	Agenda       string        `json:"agenda,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
	Notes        string        `json:"notes,omitempty"`
	Sources      []SourceDoc   `json:"sources,omitempty"`
	ContentPaths []string      `json:"contentPaths,omitempty"`
}
