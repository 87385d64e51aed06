package coaching

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-meeting-copilot/internal/events"
	"ai-meeting-copilot/internal/llm"
	"ai-meeting-copilot/internal/models"
	"ai-meeting-copilot/internal/observability/logging"
	"ai-meeting-copilot/internal/observability/metrics"
	"ai-meeting-copilot/internal/rag"
)

const (
	defaultCooldown    = 5 * time.Second
	defaultSettleDelay = 1 * time.Second
	contextLineCount   = 30
	ragMaxChars        = 2000
)

// apologyAnswer is the terminal tip text when a generation fails.
const apologyAnswer = "Sorry, I could not put together an answer for that question. Please handle this one yourself."

// TranscriptSource returns the most recent n transcript lines.
type TranscriptSource func(n int) []models.TranscriptLine

// BriefingSource returns the current briefing, or nil.
type BriefingSource func() *models.Briefing

// TipSink receives each finished tip.
type TipSink func(tip models.CoachingTip)

// Config holds engine dependencies and settings. Zero durations take the
// defaults.
type Config struct {
	LLM        llm.Client
	RAG        rag.Provider
	Bus        *events.Bus
	Transcript TranscriptSource
	Briefing   BriefingSource
	Sink       TipSink

	Sensitivity Sensitivity
	Cooldown    time.Duration
	SettleDelay time.Duration
	Now         func() time.Time
}

// Engine is the event-driven coaching core. Generations are explicitly
// serialized: at most one in flight, at most one queued behind it.
type Engine struct {
	evaluator *Evaluator
	llm       llm.Client
	rag       rag.Provider
	bus       *events.Bus
	source    TranscriptSource
	briefing  BriefingSource
	sink      TipSink
	metrics   *metrics.Metrics
	log       zerolog.Logger

	cooldown    time.Duration
	settleDelay time.Duration
	now         func() time.Time

	mu          sync.Mutex
	sessionID   string
	lastTrigger time.Time
	inFlight    bool
	queued      string
	hasQueued   bool
}

// NewEngine creates a coaching engine.
func NewEngine(cfg Config) *Engine {
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		evaluator:   NewEvaluator(cfg.LLM, cfg.Sensitivity),
		llm:         cfg.LLM,
		rag:         cfg.RAG,
		bus:         cfg.Bus,
		source:      cfg.Transcript,
		briefing:    cfg.Briefing,
		sink:        cfg.Sink,
		metrics:     metrics.DefaultMetrics,
		log:         logging.WithComponent("coaching-engine"),
		cooldown:    cfg.Cooldown,
		settleDelay: cfg.SettleDelay,
		now:         cfg.Now,
	}
}

// Reset binds the engine to a new session and clears trigger state.
func (e *Engine) Reset(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessionID = sessionID
	e.lastTrigger = time.Time{}
	e.inFlight = false
	e.queued = ""
	e.hasQueued = false
}

// HandleUtterance evaluates one finalized system-channel utterance and, if
// it qualifies, starts or queues a generation. Evaluation is fast; the
// generation itself runs asynchronously.
func (e *Engine) HandleUtterance(ctx context.Context, text string, recentSelfTalk bool) {
	decision := e.evaluator.Evaluate(ctx, text, recentSelfTalk)
	if !decision.Trigger {
		return
	}

	e.mu.Lock()
	now := e.now()

	// The cooldown window is measured from the previous trigger's start.
	if !e.lastTrigger.IsZero() && now.Sub(e.lastTrigger) < e.cooldown {
		e.mu.Unlock()
		e.metrics.TriggersCooldown.Inc()
		e.log.Debug().Str("question", text).Msg("Trigger suppressed by cooldown")
		return
	}

	if e.inFlight {
		// Queued, never dropped and never run concurrently.
		e.queued = text
		e.hasQueued = true
		e.mu.Unlock()
		e.metrics.TriggersQueued.Inc()
		e.log.Debug().Str("question", text).Msg("Trigger queued behind in-flight generation")
		return
	}

	e.lastTrigger = now
	e.inFlight = true
	sessionID := e.sessionID
	e.mu.Unlock()

	e.metrics.TriggersFired.Inc()
	go e.generate(sessionID, text)
}

// generate produces one streamed tip, then drains at most one queued
// question after a short settle delay.
func (e *Engine) generate(sessionID, question string) {
	start := e.now()
	tip := models.CoachingTip{
		ID:        uuid.NewString(),
		Timestamp: start,
		Question:  question,
		Streaming: true,
	}

	e.metrics.GenerationsTotal.Inc()
	if e.bus != nil {
		e.bus.Publish(events.TipStarted{SessionID: sessionID, Tip: tip})
	}

	prompt := e.buildPrompt(question)
	answer, err := e.llm.GenerateStreaming(context.Background(), prompt, func(chunk string) {
		tip.Answer += chunk
		if e.bus != nil {
			e.bus.Publish(events.TipChunk{SessionID: sessionID, TipID: tip.ID, Chunk: chunk})
		}
	})

	tip.Streaming = false
	if err != nil {
		e.metrics.GenerationsFailed.Inc()
		e.log.Warn().Err(err).Str("question", question).Msg("Generation failed")
		tip.Answer = apologyAnswer
		tip.Failed = true
		tip.Category = models.CategoryGeneral
	} else {
		tip.Answer = answer
		tip.Category = categorize(question, answer)
	}
	e.metrics.GenerationLatency.Observe(e.now().Sub(start).Seconds())

	if e.bus != nil {
		e.bus.Publish(events.TipFinished{SessionID: sessionID, Tip: tip})
	}
	if e.sink != nil {
		e.sink(tip)
	}

	e.drainQueue(sessionID)
}

// drainQueue starts the queued question, if any, after the settle delay.
func (e *Engine) drainQueue(sessionID string) {
	e.mu.Lock()
	if !e.hasQueued {
		e.inFlight = false
		e.mu.Unlock()
		return
	}
	next := e.queued
	e.queued = ""
	e.hasQueued = false
	e.mu.Unlock()

	time.Sleep(e.settleDelay)

	e.mu.Lock()
	e.lastTrigger = e.now()
	e.mu.Unlock()

	e.metrics.TriggersFired.Inc()
	e.generate(sessionID, next)
}
