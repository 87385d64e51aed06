// Package session owns the meeting lifecycle: the single-active-session
// state machine, transcript accumulation, audio routing, and the end-of-
// session summary.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-meeting-copilot/internal/briefing"
	"ai-meeting-copilot/internal/coaching"
	"ai-meeting-copilot/internal/events"
	"ai-meeting-copilot/internal/llm"
	"ai-meeting-copilot/internal/models"
	"ai-meeting-copilot/internal/observability/logging"
	"ai-meeting-copilot/internal/observability/metrics"
	"ai-meeting-copilot/internal/speaker"
	"ai-meeting-copilot/internal/storage"
	"ai-meeting-copilot/internal/transcription"
)

var (
	// ErrSessionActive - Start was called while a session is already
	// running.
	ErrSessionActive = errors.New("a session is already active")
	// ErrSessionStopping - the session is mid-teardown; retry after it
	// reaches idle.
	ErrSessionStopping = errors.New("session is stopping")
)

// selfTalkWindow bounds how recently the user must have spoken for a
// system-channel question to count as addressed follow-up.
const selfTalkWindow = 10 * time.Second

// SummaryStore persists finished summaries.
type SummaryStore interface {
	Save(summary models.MeetingSummary) error
}

var _ SummaryStore = (*storage.Store)(nil)

// Config holds manager dependencies and settings.
type Config struct {
	Streamer transcription.Streamer
	Engine   *coaching.Engine
	Resolver *speaker.Resolver
	Briefing *briefing.Manager
	Store    SummaryStore
	LLM      llm.Client
	Bus      *events.Bus

	MicEnabled      bool
	SystemEnabled   bool
	CoachingEnabled bool
	Language        string
	Now             func() time.Time
}

// Manager runs at most one meeting session at a time. It implements
// transcription.Callback to receive stream events.
type Manager struct {
	streamer transcription.Streamer
	engine   *coaching.Engine
	resolver *speaker.Resolver
	briefing *briefing.Manager
	store    SummaryStore
	llm      llm.Client
	bus      *events.Bus
	metrics  *metrics.Metrics
	log      zerolog.Logger

	micEnabled      bool
	systemEnabled   bool
	coachingEnabled bool
	language        string
	now             func() time.Time

	mu         sync.Mutex
	starting   bool
	session    models.Session
	transcript []models.TranscriptLine
	tips       []models.CoachingTip
	partials   map[models.Channel]string
	lastMic    time.Time
	tickStop   chan struct{}
}

// NewManager creates a session manager and wires the speaker rewriter.
func NewManager(cfg Config) *Manager {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	m := &Manager{
		streamer:        cfg.Streamer,
		engine:          cfg.Engine,
		resolver:        cfg.Resolver,
		briefing:        cfg.Briefing,
		store:           cfg.Store,
		llm:             cfg.LLM,
		bus:             cfg.Bus,
		metrics:         metrics.DefaultMetrics,
		log:             logging.WithComponent("session"),
		micEnabled:      cfg.MicEnabled,
		systemEnabled:   cfg.SystemEnabled,
		coachingEnabled: cfg.CoachingEnabled,
		language:        cfg.Language,
		now:             cfg.Now,
		partials:        make(map[models.Channel]string),
	}
	if m.resolver != nil {
		m.resolver.SetRewriter(m.rewriteSpeaker)
	}
	return m
}

// Start opens the enabled recognition streams and moves the session to
// active. A partially opened session is rolled back in full.
func (m *Manager) Start(ctx context.Context, title string) (*models.Session, error) {
	m.mu.Lock()
	if m.starting {
		m.mu.Unlock()
		return nil, ErrSessionActive
	}
	switch m.session.Status {
	case models.StatusActive:
		m.mu.Unlock()
		return nil, ErrSessionActive
	case models.StatusStopping:
		m.mu.Unlock()
		return nil, ErrSessionStopping
	}

	// Reserve the slot before releasing the lock for the open phase, so a
	// concurrent Start fails instead of opening a second set of streams.
	m.starting = true
	id := uuid.NewString()
	m.session = models.Session{
		ID:        id,
		Title:     title,
		StartedAt: m.now(),
		Status:    models.StatusIdle,
	}
	m.transcript = nil
	m.tips = nil
	m.partials = make(map[models.Channel]string)
	m.lastMic = time.Time{}
	m.mu.Unlock()

	if m.resolver != nil {
		m.resolver.Reset(id)
	}
	if m.engine != nil {
		m.engine.Reset(id)
	}

	channels := m.enabledChannels()
	var opened []models.Channel
	for _, ch := range channels {
		if err := m.streamer.StartSession(ctx, streamID(id, ch), ch, m.language); err != nil {
			for _, prev := range opened {
				m.streamer.StopSession(ctx, streamID(id, prev))
			}
			m.mu.Lock()
			m.session = models.Session{}
			m.starting = false
			m.mu.Unlock()
			m.log.Error().Err(err).Str("channel", string(ch)).Msg("Failed to open channel, session rolled back")
			return nil, err
		}
		opened = append(opened, ch)
	}

	m.mu.Lock()
	m.session.Status = models.StatusActive
	m.starting = false
	m.tickStop = make(chan struct{})
	sess := m.session
	stop := m.tickStop
	m.mu.Unlock()

	m.metrics.SessionsTotal.Inc()
	m.metrics.SessionsActive.Inc()
	m.publish(events.SessionStarted{SessionID: id, Title: title, Timestamp: sess.StartedAt})
	m.publishState(id, models.StatusActive)
	m.log.Info().Str("session_id", id).Str("title", title).Msg("Session started")

	go m.tickLoop(id, stop)

	return &sess, nil
}

// Stop tears the session down, produces the summary, and returns to idle.
// Stopping an idle session is a no-op.
func (m *Manager) Stop(ctx context.Context) (*models.MeetingSummary, error) {
	m.mu.Lock()
	switch m.session.Status {
	case models.StatusIdle:
		m.mu.Unlock()
		return nil, nil
	case models.StatusStopping:
		m.mu.Unlock()
		return nil, ErrSessionStopping
	}
	m.session.Status = models.StatusStopping
	id := m.session.ID
	if m.tickStop != nil {
		close(m.tickStop)
		m.tickStop = nil
	}
	m.mu.Unlock()

	m.publishState(id, models.StatusStopping)
	m.log.Info().Str("session_id", id).Msg("Session stopping")

	// Streams flush trailing finals before closing; the transcript keeps
	// accepting events until here.
	m.streamer.StopAll(ctx)

	m.mu.Lock()
	sess := m.session
	transcript := make([]models.TranscriptLine, len(m.transcript))
	copy(transcript, m.transcript)
	tips := make([]models.CoachingTip, len(m.tips))
	copy(tips, m.tips)
	m.mu.Unlock()

	duration := int64(m.now().Sub(sess.StartedAt).Seconds())
	summary := m.buildSummary(ctx, sess, duration, transcript, tips)

	if m.store != nil {
		if err := m.store.Save(summary); err != nil {
			m.log.Error().Err(err).Str("summary_id", summary.ID).Msg("Failed to persist summary")
		}
	}

	m.mu.Lock()
	m.session = models.Session{}
	m.partials = make(map[models.Channel]string)
	m.mu.Unlock()

	m.metrics.SessionsActive.Dec()
	m.metrics.SessionDuration.Observe(float64(duration))
	m.publish(events.SessionStopped{
		SessionID: id,
		SummaryID: summary.ID,
		Duration:  duration,
		Timestamp: m.now(),
	})
	m.publishState(id, models.StatusIdle)
	m.log.Info().Str("session_id", id).Int64("duration_s", duration).Msg("Session stopped")

	return &summary, nil
}

// SendAudioChunk forwards raw PCM for one channel. Chunks arriving outside
// an active session are dropped.
func (m *Manager) SendAudioChunk(channel models.Channel, data []byte) {
	m.mu.Lock()
	if m.session.Status != models.StatusActive {
		m.mu.Unlock()
		return
	}
	id := m.session.ID
	m.mu.Unlock()
	m.streamer.SendAudioChunk(streamID(id, channel), data)
}

// Current returns a snapshot of the session state.
func (m *Manager) Current() models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Transcript returns a copy of the accumulated transcript.
func (m *Manager) Transcript() []models.TranscriptLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.TranscriptLine, len(m.transcript))
	copy(out, m.transcript)
	return out
}

// RecentLines returns up to n trailing transcript lines. It serves as the
// coaching engine's transcript source.
func (m *Manager) RecentLines(n int) []models.TranscriptLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || len(m.transcript) == 0 {
		return nil
	}
	start := len(m.transcript) - n
	if start < 0 {
		start = 0
	}
	out := make([]models.TranscriptLine, len(m.transcript)-start)
	copy(out, m.transcript[start:])
	return out
}

// AddTip records a finished coaching tip. It serves as the engine's tip
// sink.
func (m *Manager) AddTip(tip models.CoachingTip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tips = append(m.tips, tip)
}

// OnTranscript implements transcription.Callback. Partials overwrite the
// per-channel live preview; finals become transcript lines and may feed the
// coaching engine.
func (m *Manager) OnTranscript(id string, ev models.TranscriptEvent) {
	m.mu.Lock()
	sess := m.session
	if sess.Status == models.StatusIdle || !strings.HasPrefix(id, sess.ID) {
		// Stale stream from a previous session.
		m.mu.Unlock()
		return
	}

	if !ev.IsFinal {
		m.partials[ev.Channel] = ev.Text
		m.mu.Unlock()
		m.publish(events.TranscriptPartial{SessionID: sess.ID, Channel: ev.Channel, Text: ev.Text})
		return
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" {
		delete(m.partials, ev.Channel)
		m.mu.Unlock()
		return
	}

	now := m.now()
	if ev.Channel == models.ChannelMic {
		m.lastMic = now
	}
	recentSelf := !m.lastMic.IsZero() && now.Sub(m.lastMic) <= selfTalkWindow
	delete(m.partials, ev.Channel)
	m.mu.Unlock()

	name := "Participant"
	if m.resolver != nil {
		name = m.resolver.Resolve(ev.Channel, ev.SpeakerTag)
	}

	line := models.TranscriptLine{
		Timestamp: now,
		Speaker:   name,
		Text:      text,
		Channel:   ev.Channel,
	}
	m.mu.Lock()
	m.transcript = append(m.transcript, line)
	m.mu.Unlock()

	m.publish(events.TranscriptAppended{SessionID: sess.ID, Line: line})

	if ev.Channel == models.ChannelSystem {
		if m.coachingEnabled && m.engine != nil && sess.Status == models.StatusActive {
			// Classification may call the LLM; keep it off the stream
			// goroutine.
			go m.engine.HandleUtterance(context.Background(), text, recentSelf)
		}
		if m.resolver != nil && ev.SpeakerTag != nil {
			go m.resolver.IdentifyActive(context.Background())
		}
	}
}

// OnStreamError implements transcription.Callback. The channel is already
// dead; the session keeps running on whatever channels remain.
func (m *Manager) OnStreamError(id string, channel models.Channel, err error) {
	m.mu.Lock()
	sess := m.session
	m.mu.Unlock()
	if sess.Status == models.StatusIdle || !strings.HasPrefix(id, sess.ID) {
		return
	}
	m.log.Error().Err(err).Str("session_id", sess.ID).Str("channel", string(channel)).Msg("Channel terminated")
	m.publish(events.ChannelError{SessionID: sess.ID, Channel: channel, Message: err.Error()})
}

// rewriteSpeaker replaces a renamed speaker's display name across the
// accumulated transcript.
func (m *Manager) rewriteSpeaker(oldName, newName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.transcript {
		if m.transcript[i].Speaker == oldName {
			m.transcript[i].Speaker = newName
			n++
		}
	}
	return n
}

// tickLoop advances the elapsed counter once per second until the session
// stops. The stop channel is per-session, so a stale loop can never touch a
// newer session.
func (m *Manager) tickLoop(id string, stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			if m.session.ID == id && m.session.Status == models.StatusActive {
				m.session.ElapsedSeconds = int64(m.now().Sub(m.session.StartedAt).Seconds())
			}
			m.mu.Unlock()
		}
	}
}

func (m *Manager) enabledChannels() []models.Channel {
	var out []models.Channel
	if m.micEnabled {
		out = append(out, models.ChannelMic)
	}
	if m.systemEnabled {
		out = append(out, models.ChannelSystem)
	}
	return out
}

func (m *Manager) publish(ev events.Event) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}

func (m *Manager) publishState(id string, status models.SessionStatus) {
	m.publish(events.SessionStateChanged{SessionID: id, Status: status, Timestamp: m.now()})
}

func streamID(sessionID string, channel models.Channel) string {
	return sessionID + "-" + string(channel)
}
