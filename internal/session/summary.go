package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ai-meeting-copilot/internal/models"
)

const (
	// minSummaryLines is the floor below which no LLM call is made.
	minSummaryLines = 5
	// maxSummaryTranscriptChars bounds the transcript tail sent to the
	// model.
	maxSummaryTranscriptChars = 24000
	summaryTimeout            = 30 * time.Second
)

const shortSessionSummary = "The meeting was too short to produce a meaningful summary."

const summarySystemPrompt = `You summarize meeting transcripts. Reply with a single JSON object and nothing else, using exactly these keys:
{"summary": "<3-6 sentence prose summary>", "keyPoints": ["..."], "actionItems": ["..."]}
Write in the language the meeting was held in. Leave keyPoints or actionItems empty when the transcript has none.`

type summaryPayload struct {
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"keyPoints"`
	ActionItems []string `json:"actionItems"`
}

// buildSummary produces the end-of-session summary from an immutable
// snapshot. Sessions below the line floor get a fixed placeholder and never
// reach the model.
func (m *Manager) buildSummary(ctx context.Context, sess models.Session, duration int64, transcript []models.TranscriptLine, tips []models.CoachingTip) models.MeetingSummary {
	now := m.now()
	summary := models.MeetingSummary{
		ID:         uuid.NewString(),
		SessionID:  sess.ID,
		Title:      sess.Title,
		StartedAt:  sess.StartedAt,
		Duration:   duration,
		Transcript: transcript,
		Tips:       tips,
		CreatedAt:  now,
	}
	if m.resolver != nil {
		summary.Speakers = m.resolver.Speakers()
	}
	if m.briefing != nil {
		if b := m.briefing.Get(); b != nil {
			for _, p := range b.Participants {
				summary.Participants = append(summary.Participants, p.Name)
			}
		}
	}

	if len(transcript) < minSummaryLines {
		summary.Summary = shortSessionSummary
		m.metrics.SummariesTotal.WithLabelValues("placeholder").Inc()
		return summary
	}

	if m.llm == nil {
		summary.Summary = shortSessionSummary
		m.metrics.SummariesTotal.WithLabelValues("placeholder").Inc()
		return summary
	}

	start := m.now()
	genCtx, cancel := context.WithTimeout(ctx, summaryTimeout)
	defer cancel()

	answer, err := m.llm.Generate(genCtx, m.summaryPrompt(sess, transcript), summarySystemPrompt)
	m.metrics.SummaryLatency.Observe(m.now().Sub(start).Seconds())
	if err != nil {
		m.log.Warn().Err(err).Str("session_id", sess.ID).Msg("Summary generation failed")
		summary.Summary = fmt.Sprintf("Summary generation failed: %v", err)
		m.metrics.SummariesTotal.WithLabelValues("failed").Inc()
		return summary
	}

	var payload summaryPayload
	if jsonErr := json.Unmarshal([]byte(stripCodeFence(answer)), &payload); jsonErr != nil || payload.Summary == "" {
		// The model ignored the format; keep its prose as-is.
		summary.Summary = strings.TrimSpace(answer)
		m.metrics.SummariesTotal.WithLabelValues("fallback").Inc()
		return summary
	}

	summary.Summary = payload.Summary
	summary.KeyPoints = payload.KeyPoints
	summary.ActionItems = payload.ActionItems
	m.metrics.SummariesTotal.WithLabelValues("generated").Inc()
	return summary
}

// summaryPrompt assembles the briefing context and the transcript tail.
func (m *Manager) summaryPrompt(sess models.Session, transcript []models.TranscriptLine) string {
	var sb strings.Builder
	if sess.Title != "" {
		fmt.Fprintf(&sb, "Meeting title: %s\n", sess.Title)
	}
	if m.briefing != nil {
		if b := m.briefing.Get(); b != nil {
			if b.Topic != "" {
				fmt.Fprintf(&sb, "Topic: %s\n", b.Topic)
			}
			if b.Agenda != "" {
				fmt.Fprintf(&sb, "Agenda: %s\n", b.Agenda)
			}
		}
	}
	sb.WriteString("\nTranscript:\n")
	sb.WriteString(renderTranscriptTail(transcript, maxSummaryTranscriptChars))
	return sb.String()
}

// renderTranscriptTail renders lines newest-last, dropping the oldest lines
// first when the budget is exceeded.
func renderTranscriptTail(lines []models.TranscriptLine, budget int) string {
	rendered := make([]string, len(lines))
	total := 0
	for i, l := range lines {
		rendered[i] = fmt.Sprintf("[%s] %s: %s", l.Timestamp.Format("15:04:05"), l.Speaker, l.Text)
		total += len(rendered[i]) + 1
	}
	start := 0
	for start < len(rendered) && total > budget {
		total -= len(rendered[start]) + 1
		start++
	}
	return strings.Join(rendered[start:], "\n")
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
