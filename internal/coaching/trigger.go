// Package coaching decides which remote utterances deserve an AI-generated
// spoken-ready answer and produces those answers without overlapping
// generations.
package coaching

import (
	"context"
	"strings"
	"time"

	"ai-meeting-copilot/internal/llm"
	"ai-meeting-copilot/internal/observability/logging"
	"ai-meeting-copilot/internal/observability/metrics"
)

// Sensitivity controls how eagerly the engine triggers.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// ParseSensitivity maps a config string onto a Sensitivity, defaulting to
// medium.
func ParseSensitivity(s string) Sensitivity {
	switch strings.ToLower(s) {
	case "low":
		return SensitivityLow
	case "high":
		return SensitivityHigh
	default:
		return SensitivityMedium
	}
}

// Classification is the AI micro-classification label for an utterance.
type Classification string

const (
	ClassDirectQuestion   Classification = "direct_question"
	ClassIndirectQuestion Classification = "indirect_question"
	ClassRequest          Classification = "request"
	ClassStatement        Classification = "statement"
)

// minUtteranceLength rejects fragments before any further work.
const minUtteranceLength = 10

// classifyTimeout bounds the micro-classification call; trigger evaluation
// runs on every utterance and must stay sub-second.
const classifyTimeout = 700 * time.Millisecond

// Interrogative markers, English and Polish. Checked against the lowercased
// utterance.
var questionPrefixes = []string{
	"who", "what", "when", "where", "why", "how", "which",
	"can", "could", "would", "should", "do ", "does", "did",
	"is ", "are ", "will ",
	"co ", "jak ", "kiedy ", "gdzie ", "dlaczego", "czemu", "czy ",
	"kto ", "ile ", "który", "ktora", "która",
}

// Direct-address markers separating "aimed at me" questions from questions
// into the room.
var addressMarkers = []string{
	"you ", "your ", " you?", "can you", "could you", "do you",
	"what do you think", "your thoughts", "your opinion",
	"jak myślisz", "jak myslisz", "co sądzisz", "co sadzisz",
	"co o tym myślisz", "twoim zdaniem", "uważasz", "uwazasz",
	"myślisz", "myslisz",
}

const classifySystemPrompt = `You classify a single meeting utterance. Reply with exactly one of: direct_question, indirect_question, request, statement. No other text.`

// Decision is the outcome of trigger evaluation for one utterance.
type Decision struct {
	Trigger        bool
	Classification Classification
	Addressed      bool
	PatternOnly    bool
}

// Evaluator combines the cheap pattern pre-filter with the AI
// micro-classification.
type Evaluator struct {
	llm         llm.Client
	sensitivity Sensitivity
	metrics     *metrics.Metrics
}

// NewEvaluator creates a trigger evaluator.
func NewEvaluator(client llm.Client, sensitivity Sensitivity) *Evaluator {
	return &Evaluator{
		llm:         client,
		sensitivity: sensitivity,
		metrics:     metrics.DefaultMetrics,
	}
}

// hasQuestionPattern reports interrogative markers in the utterance.
func hasQuestionPattern(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if strings.Contains(lower, "?") {
		return true
	}
	for _, p := range questionPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// hasAddressPattern reports direct-address markers in the utterance.
func hasAddressPattern(text string) bool {
	lower := " " + strings.ToLower(strings.TrimSpace(text)) + " "
	for _, m := range addressMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Evaluate decides whether an utterance should trigger coaching.
// recentSelfTalk reports that the user spoke within the recency window,
// which raises the odds the remote party is addressing them.
//
// The sensitivity mapping below preserves the historically observed
// behavior; the thresholds are under product review, not to be tuned here.
func (e *Evaluator) Evaluate(ctx context.Context, text string, recentSelfTalk bool) Decision {
	e.metrics.TriggersEvaluated.Inc()

	if len(strings.TrimSpace(text)) < minUtteranceLength {
		return Decision{}
	}

	question := hasQuestionPattern(text)
	addressed := hasAddressPattern(text) || recentSelfTalk

	class, err := e.classify(ctx, text)
	if err != nil {
		e.metrics.ClassificationFails.Inc()
		log := logging.WithComponent("coaching")
		log.Debug().Err(err).Msg("Classification failed, using pattern fallback")
		return Decision{
			Trigger:        question && (e.sensitivity == SensitivityHigh || addressed),
			Classification: ClassStatement,
			Addressed:      addressed,
			PatternOnly:    true,
		}
	}

	d := Decision{Classification: class, Addressed: addressed}
	switch e.sensitivity {
	case SensitivityHigh:
		d.Trigger = class == ClassDirectQuestion ||
			class == ClassIndirectQuestion ||
			class == ClassRequest ||
			question
	case SensitivityLow:
		d.Trigger = class == ClassDirectQuestion && addressed
	default: // medium
		d.Trigger = class == ClassDirectQuestion ||
			((class == ClassIndirectQuestion || class == ClassRequest) && addressed)
	}
	return d
}

// classify runs the AI micro-classification with a hard deadline.
func (e *Evaluator) classify(ctx context.Context, text string) (Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	out, err := e.llm.Generate(ctx, text, classifySystemPrompt)
	if err != nil {
		return "", err
	}

	switch Classification(strings.ToLower(strings.TrimSpace(out))) {
	case ClassDirectQuestion:
		return ClassDirectQuestion, nil
	case ClassIndirectQuestion:
		return ClassIndirectQuestion, nil
	case ClassRequest:
		return ClassRequest, nil
	default:
		return ClassStatement, nil
	}
}
