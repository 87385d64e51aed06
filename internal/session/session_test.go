package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-meeting-copilot/internal/coaching"
	"ai-meeting-copilot/internal/events"
	"ai-meeting-copilot/internal/models"
	"ai-meeting-copilot/internal/speaker"
)

// fakeStreamer records stream lifecycle calls.
type fakeStreamer struct {
	mu         sync.Mutex
	started    []string
	stopped    []string
	chunks     map[string]int
	failOn     models.Channel
	startErr   error
	startDelay time.Duration
}

func newFakeStreamer() *fakeStreamer {
	return &fakeStreamer{chunks: make(map[string]int)}
}

func (f *fakeStreamer) StartSession(_ context.Context, id string, channel models.Channel, _ string) error {
	if f.startDelay > 0 {
		time.Sleep(f.startDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && channel == f.failOn {
		return f.startErr
	}
	f.started = append(f.started, id)
	return nil
}

func (f *fakeStreamer) SendAudioChunk(id string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[id]++
}

func (f *fakeStreamer) StopSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeStreamer) StopAll(_ context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, "all")
}

func (f *fakeStreamer) startedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

func (f *fakeStreamer) stoppedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.stopped...)
}

// llmStub serves the summary and coaching calls.
type llmStub struct {
	mu        sync.Mutex
	response  string
	err       error
	prompts   []string
	genCalls  int
	streamOut string
}

func (l *llmStub) Generate(_ context.Context, prompt, _ string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.genCalls++
	l.prompts = append(l.prompts, prompt)
	return l.response, l.err
}

func (l *llmStub) GenerateStreaming(_ context.Context, _ string, onChunk func(string)) (string, error) {
	l.mu.Lock()
	out := l.streamOut
	l.mu.Unlock()
	onChunk(out)
	return out, nil
}

func (l *llmStub) DescribeImage(_ context.Context, _ string, _ []byte) (string, error) {
	return "", errors.New("not implemented")
}

func (l *llmStub) generateCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.genCalls
}

type memStore struct {
	mu    sync.Mutex
	saved []models.MeetingSummary
}

func (s *memStore) Save(summary models.MeetingSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, summary)
	return nil
}

func newTestManager(streamer *fakeStreamer, opts ...func(*Config)) *Manager {
	cfg := Config{
		Streamer:      streamer,
		Resolver:      speaker.New(speaker.Config{SelfLabel: "You"}),
		MicEnabled:    true,
		SystemEnabled: true,
		Language:      "en-US",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewManager(cfg)
}

func finalEvent(channel models.Channel, text string, tag *int) models.TranscriptEvent {
	return models.TranscriptEvent{Text: text, IsFinal: true, SpeakerTag: tag, Channel: channel}
}

func TestManager_StartStop(t *testing.T) {
	streamer := newFakeStreamer()
	m := newTestManager(streamer)

	sess, err := m.Start(context.Background(), "Weekly sync")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Status != models.StatusActive {
		t.Errorf("expected active status, got %v", sess.Status)
	}
	if sess.Title != "Weekly sync" {
		t.Errorf("unexpected title: %s", sess.Title)
	}
	if len(streamer.startedIDs()) != 2 {
		t.Errorf("expected 2 streams, got %v", streamer.startedIDs())
	}

	summary, err := m.Stop(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary == nil {
		t.Fatal("expected summary")
	}
	if summary.SessionID != sess.ID {
		t.Errorf("summary bound to wrong session: %s", summary.SessionID)
	}
	if m.Current().Status != models.StatusIdle {
		t.Errorf("expected idle after stop, got %v", m.Current().Status)
	}
}

func TestManager_Stop_WhenIdleIsNoop(t *testing.T) {
	m := newTestManager(newFakeStreamer())

	summary, err := m.Stop(context.Background())
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if summary != nil {
		t.Error("expected nil summary for idle stop")
	}
}

func TestManager_Start_WhileActive(t *testing.T) {
	m := newTestManager(newFakeStreamer())

	if _, err := m.Start(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Start(context.Background(), ""); !errors.Is(err, ErrSessionActive) {
		t.Errorf("expected ErrSessionActive, got %v", err)
	}
}

func TestManager_Start_ConcurrentCallsOpenOneSession(t *testing.T) {
	streamer := newFakeStreamer()
	streamer.startDelay = 100 * time.Millisecond
	m := newTestManager(streamer)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Start(context.Background(), "")
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSessionActive):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || rejected != 1 {
		t.Fatalf("expected one winner and one ErrSessionActive, got %d/%d", ok, rejected)
	}
	if got := len(streamer.startedIDs()); got != 2 {
		t.Errorf("expected 2 streams for the single session, got %d", got)
	}
}

func TestManager_Start_RollbackOnChannelFailure(t *testing.T) {
	streamer := newFakeStreamer()
	streamer.failOn = models.ChannelSystem
	streamer.startErr = errors.New("provider down")
	m := newTestManager(streamer)

	if _, err := m.Start(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
	if m.Current().Status != models.StatusIdle {
		t.Errorf("expected idle after rollback, got %v", m.Current().Status)
	}
	// The mic stream that did open was torn down again.
	if len(streamer.stoppedIDs()) != 1 {
		t.Errorf("expected 1 stop call, got %v", streamer.stoppedIDs())
	}

	// The manager is reusable after a failed start.
	streamer.failOn = ""
	if _, err := m.Start(context.Background(), ""); err != nil {
		t.Errorf("expected restart to succeed: %v", err)
	}
}

func TestManager_TranscriptAccumulation(t *testing.T) {
	streamer := newFakeStreamer()
	bus := events.NewBus()
	defer bus.Close()
	sub := bus.Subscribe()
	m := newTestManager(streamer, func(c *Config) { c.Bus = bus })

	sess, err := m.Start(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	micID := sess.ID + "-mic"
	systemID := sess.ID + "-system"

	m.OnTranscript(systemID, models.TranscriptEvent{Text: "so what", Channel: models.ChannelSystem})
	m.OnTranscript(systemID, finalEvent(models.ChannelSystem, "So what is the status?", intp(2)))
	m.OnTranscript(micID, finalEvent(models.ChannelMic, "All green so far.", nil))

	lines := m.Transcript()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Speaker != "Participant 1" {
		t.Errorf("expected Participant 1, got %s", lines[0].Speaker)
	}
	if lines[1].Speaker != "You" {
		t.Errorf("expected You, got %s", lines[1].Speaker)
	}

	var sawPartial, sawAppended bool
	deadline := time.After(2 * time.Second)
	for !(sawPartial && sawAppended) {
		select {
		case ev := <-sub:
			switch ev.Type() {
			case "transcript.partial":
				sawPartial = true
			case "transcript.appended":
				sawAppended = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for transcript events")
		}
	}
}

func TestManager_StaleStreamEventsIgnored(t *testing.T) {
	m := newTestManager(newFakeStreamer())

	if _, err := m.Start(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.OnTranscript("other-session-mic", finalEvent(models.ChannelMic, "ghost line", nil))

	if len(m.Transcript()) != 0 {
		t.Error("expected stale event to be dropped")
	}
}

func TestManager_SendAudioChunk_OnlyWhenActive(t *testing.T) {
	streamer := newFakeStreamer()
	m := newTestManager(streamer)

	m.SendAudioChunk(models.ChannelMic, []byte{1, 2})
	streamer.mu.Lock()
	total := len(streamer.chunks)
	streamer.mu.Unlock()
	if total != 0 {
		t.Error("expected no chunks forwarded while idle")
	}

	sess, _ := m.Start(context.Background(), "")
	m.SendAudioChunk(models.ChannelMic, []byte{1, 2})
	streamer.mu.Lock()
	n := streamer.chunks[sess.ID+"-mic"]
	streamer.mu.Unlock()
	if n != 1 {
		t.Errorf("expected 1 forwarded chunk, got %d", n)
	}
}

func TestManager_SpeakerRenameRewritesTranscript(t *testing.T) {
	resolver := speaker.New(speaker.Config{SelfLabel: "You"})
	m := newTestManager(newFakeStreamer(), func(c *Config) { c.Resolver = resolver })

	sess, _ := m.Start(context.Background(), "")
	systemID := sess.ID + "-system"
	m.OnTranscript(systemID, finalEvent(models.ChannelSystem, "First line.", intp(1)))
	m.OnTranscript(systemID, finalEvent(models.ChannelSystem, "Second line.", intp(1)))

	if !resolver.Rename(1, "Ola Nowak") {
		t.Fatal("expected rename to succeed")
	}

	for i, line := range m.Transcript() {
		if line.Speaker != "Ola Nowak" {
			t.Errorf("line %d: expected rewritten speaker, got %s", i, line.Speaker)
		}
	}
}

func TestManager_CoachingRoutedFromSystemChannel(t *testing.T) {
	llm := &llmStub{response: "direct_question", streamOut: "Say this."}
	tips := make(chan models.CoachingTip, 1)

	var m *Manager
	engine := coaching.NewEngine(coaching.Config{
		LLM:         llm,
		Sensitivity: coaching.SensitivityMedium,
		Cooldown:    time.Nanosecond,
		Transcript: func(n int) []models.TranscriptLine {
			return m.RecentLines(n)
		},
		Sink: func(tip models.CoachingTip) {
			m.AddTip(tip)
			tips <- tip
		},
	})
	m = newTestManager(newFakeStreamer(), func(c *Config) {
		c.Engine = engine
		c.CoachingEnabled = true
		c.LLM = llm
	})

	sess, err := m.Start(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.OnTranscript(sess.ID+"-system", finalEvent(models.ChannelSystem, "What do you think about the plan?", intp(1)))

	select {
	case tip := <-tips:
		if tip.Answer != "Say this." {
			t.Errorf("unexpected answer: %s", tip.Answer)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for coaching tip")
	}

	// Mic finals never reach the engine.
	before := llm.generateCalls()
	m.OnTranscript(sess.ID+"-mic", finalEvent(models.ChannelMic, "What should we do about it?", nil))
	time.Sleep(50 * time.Millisecond)
	if llm.generateCalls() != before {
		t.Error("expected mic utterance to bypass coaching")
	}
}

func intp(n int) *int { return &n }
