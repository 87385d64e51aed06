package session

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"ai-meeting-copilot/internal/models"
)

func feedLines(m *Manager, sessionID string, n int) {
	for i := 0; i < n; i++ {
		m.OnTranscript(sessionID+"-system", finalEvent(models.ChannelSystem, fmt.Sprintf("Line number %d of the meeting.", i), intp(1)))
	}
}

func TestSummary_ShortSessionSkipsModel(t *testing.T) {
	llm := &llmStub{response: `{"summary":"should not be called"}`}
	store := &memStore{}
	m := newTestManager(newFakeStreamer(), func(c *Config) {
		c.LLM = llm
		c.Store = store
	})

	sess, _ := m.Start(context.Background(), "")
	feedLines(m, sess.ID, 4)

	summary, err := m.Stop(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Summary != shortSessionSummary {
		t.Errorf("expected placeholder summary, got %q", summary.Summary)
	}
	if llm.generateCalls() != 0 {
		t.Errorf("expected no model calls, got %d", llm.generateCalls())
	}
	// The placeholder summary is still persisted with its transcript.
	store.mu.Lock()
	saved := len(store.saved)
	store.mu.Unlock()
	if saved != 1 {
		t.Errorf("expected 1 saved summary, got %d", saved)
	}
	if len(summary.Transcript) != 4 {
		t.Errorf("expected transcript in summary, got %d lines", len(summary.Transcript))
	}
}

func TestSummary_GeneratedFromModel(t *testing.T) {
	llm := &llmStub{response: "```json\n{\"summary\":\"We agreed on the rollout.\",\"keyPoints\":[\"rollout next week\"],\"actionItems\":[\"send the plan\"]}\n```"}
	store := &memStore{}
	m := newTestManager(newFakeStreamer(), func(c *Config) {
		c.LLM = llm
		c.Store = store
	})

	sess, _ := m.Start(context.Background(), "Rollout review")
	feedLines(m, sess.ID, 6)

	summary, err := m.Stop(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Summary != "We agreed on the rollout." {
		t.Errorf("unexpected summary: %q", summary.Summary)
	}
	if len(summary.KeyPoints) != 1 || summary.KeyPoints[0] != "rollout next week" {
		t.Errorf("unexpected key points: %v", summary.KeyPoints)
	}
	if len(summary.ActionItems) != 1 {
		t.Errorf("unexpected action items: %v", summary.ActionItems)
	}
	if summary.Title != "Rollout review" {
		t.Errorf("unexpected title: %s", summary.Title)
	}

	// The prompt carried the transcript.
	llm.mu.Lock()
	prompt := llm.prompts[0]
	llm.mu.Unlock()
	if !strings.Contains(prompt, "Line number 0 of the meeting.") {
		t.Error("expected transcript in summary prompt")
	}
}

func TestSummary_NonJSONResponseKeptAsProse(t *testing.T) {
	llm := &llmStub{response: "The team discussed the rollout and agreed to proceed."}
	m := newTestManager(newFakeStreamer(), func(c *Config) { c.LLM = llm })

	sess, _ := m.Start(context.Background(), "")
	feedLines(m, sess.ID, 5)

	summary, err := m.Stop(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Summary != "The team discussed the rollout and agreed to proceed." {
		t.Errorf("expected raw prose kept, got %q", summary.Summary)
	}
}

func TestSummary_ModelFailureStillProducesSummary(t *testing.T) {
	llm := &llmStub{err: fmt.Errorf("deadline exceeded")}
	store := &memStore{}
	m := newTestManager(newFakeStreamer(), func(c *Config) {
		c.LLM = llm
		c.Store = store
	})

	sess, _ := m.Start(context.Background(), "")
	feedLines(m, sess.ID, 5)

	summary, err := m.Stop(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary == nil || summary.Summary == "" {
		t.Fatal("expected a summary despite model failure")
	}
	if len(summary.Transcript) != 5 {
		t.Errorf("expected transcript preserved, got %d lines", len(summary.Transcript))
	}
}

func TestRenderTranscriptTail_DropsOldestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var lines []models.TranscriptLine
	for i := 0; i < 10; i++ {
		lines = append(lines, models.TranscriptLine{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Speaker:   "You",
			Text:      fmt.Sprintf("utterance %d with some padding text", i),
		})
	}

	full := renderTranscriptTail(lines, 1<<20)
	if !strings.Contains(full, "utterance 0") || !strings.Contains(full, "utterance 9") {
		t.Fatal("expected all lines under a large budget")
	}

	tail := renderTranscriptTail(lines, 200)
	if strings.Contains(tail, "utterance 0") {
		t.Error("expected oldest line dropped under a tight budget")
	}
	if !strings.Contains(tail, "utterance 9") {
		t.Error("expected newest line kept under a tight budget")
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripCodeFence(tt.in); got != tt.want {
			t.Errorf("stripCodeFence(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
