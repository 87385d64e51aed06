package models

import "time"

// TipCategory is the closed set of coaching tip categories.
type TipCategory string

const (
	CategoryAnswer        TipCategory = "answer"
	CategoryCommunication TipCategory = "communication"
	CategoryTechnical     TipCategory = "technical"
	CategoryStrategy      TipCategory = "strategy"
	CategoryGeneral       TipCategory = "general"
)

// CoachingTip is one AI-generated, spoken-ready answer to a detected
// question. Answer grows while Streaming is true and is final once the
// generation call completes or errors.
type CoachingTip struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Question  string      `json:"question"`
	Answer    string      `json:"answer"`
	Category  TipCategory `json:"category"`
	Streaming bool        `json:"streaming"`
	Failed    bool        `json:"failed"`
}
