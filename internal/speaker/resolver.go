// Package speaker maps diarization speaker tags to stable display names,
// combining manual labels, sequential placeholders, and a vision-assisted
// identification pass against a screen capture.
package speaker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-meeting-copilot/internal/events"
	"ai-meeting-copilot/internal/llm"
	"ai-meeting-copilot/internal/models"
	"ai-meeting-copilot/internal/observability/logging"
	"ai-meeting-copilot/internal/observability/metrics"
	"ai-meeting-copilot/internal/screen"
)

// defaultVisionCooldown is the minimum gap between vision passes.
const defaultVisionCooldown = 8 * time.Second

// identifyPrompt asks the vision model to read the name label on the
// highlighted speaker tile of a conferencing app.
const identifyPrompt = `This is a screenshot of a video call. One participant tile is highlighted as the active speaker. Read the name label shown on that tile and reply with the name only. If you cannot read a name, reply with exactly UNKNOWN.`

// RewriteFunc rewrites prior transcript lines from oldName to newName and
// returns how many lines changed.
type RewriteFunc func(oldName, newName string) int

// Config holds resolver dependencies and settings.
type Config struct {
	SelfLabel      string
	VisionCooldown time.Duration
	LLM            llm.Client
	Screen         screen.Capturer
	Bus            *events.Bus
	Now            func() time.Time
}

// Resolver resolves speaker tags for one session at a time. Speakers live
// only for the duration of a session; Reset clears the map.
type Resolver struct {
	selfLabel string
	cooldown  time.Duration
	llm       llm.Client
	screen    screen.Capturer
	bus       *events.Bus
	now       func() time.Time
	log       zerolog.Logger
	metrics   *metrics.Metrics

	mu        sync.Mutex
	sessionID string
	speakers  map[int]*models.Speaker
	nextIndex int
	lastTag   *int // most recently heard system speaker
	rewrite   RewriteFunc

	visionMu      sync.Mutex
	visionPending bool
	lastVision    time.Time
}

// New creates a resolver.
func New(cfg Config) *Resolver {
	if cfg.SelfLabel == "" {
		cfg.SelfLabel = "You"
	}
	if cfg.VisionCooldown == 0 {
		cfg.VisionCooldown = defaultVisionCooldown
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Resolver{
		selfLabel: cfg.SelfLabel,
		cooldown:  cfg.VisionCooldown,
		llm:       cfg.LLM,
		screen:    cfg.Screen,
		bus:       cfg.Bus,
		now:       cfg.Now,
		log:       logging.WithComponent("speaker-resolver"),
		metrics:   metrics.DefaultMetrics,
		speakers:  make(map[int]*models.Speaker),
		nextIndex: 1,
	}
}

// Reset clears all session-scoped state and binds the resolver to a new
// session id.
func (r *Resolver) Reset(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionID = sessionID
	r.speakers = make(map[int]*models.Speaker)
	r.nextIndex = 1
	r.lastTag = nil
}

// SetRewriter installs the callback that rewrites prior transcript lines
// when a speaker is renamed.
func (r *Resolver) SetRewriter(fn RewriteFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rewrite = fn
}

// Resolve returns the display name for an utterance on the given channel.
// The mic channel always resolves to the self label. The first reference to
// a new system tag auto-assigns a sequential placeholder.
func (r *Resolver) Resolve(channel models.Channel, tag *int) string {
	if channel == models.ChannelMic {
		return r.selfLabel
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if tag == nil {
		return "Participant"
	}

	sp, ok := r.speakers[*tag]
	if !ok {
		sp = &models.Speaker{
			Tag:          strconv.Itoa(*tag),
			Name:         fmt.Sprintf("Participant %d", r.nextIndex),
			AutoDetected: true,
		}
		r.nextIndex++
		r.speakers[*tag] = sp
		r.log.Debug().Int("tag", *tag).Str("name", sp.Name).Msg("New speaker tag")
	}
	sp.Utterances++
	sp.LastSeen = r.now()
	t := *tag
	r.lastTag = &t
	return sp.Name
}

// Rename permanently maps a tag to a human-provided name and rewrites all
// prior transcript lines carrying the old placeholder.
func (r *Resolver) Rename(tag int, name string) bool {
	return r.rename(tag, name, true)
}

func (r *Resolver) rename(tag int, name string, manual bool) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	r.mu.Lock()
	sp, ok := r.speakers[tag]
	if !ok {
		r.mu.Unlock()
		return false
	}
	// A prior manual or vision rename wins and blocks further auto-rewrites.
	if !manual && !sp.AutoDetected {
		r.mu.Unlock()
		return false
	}
	oldName := sp.Name
	sp.Name = name
	sp.AutoDetected = false
	sessionID := r.sessionID
	rewrite := r.rewrite
	r.mu.Unlock()

	if oldName != name && rewrite != nil {
		n := rewrite(oldName, name)
		r.log.Info().Str("old", oldName).Str("new", name).Int("lines", n).Msg("Speaker renamed")
	}
	r.metrics.SpeakersResolved.Inc()
	if r.bus != nil {
		r.bus.Publish(events.SpeakerIdentified{
			SessionID: sessionID,
			Tag:       strconv.Itoa(tag),
			Name:      name,
			Manual:    manual,
		})
	}
	return true
}

// Speakers returns a snapshot of the current speaker map.
func (r *Resolver) Speakers() []models.Speaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Speaker, 0, len(r.speakers))
	for _, sp := range r.speakers {
		out = append(out, *sp)
	}
	return out
}

// IdentifyActive runs the vision-assisted identification pass against a
// screen capture. At most one pass is in flight and at most one per
// cooldown window; excess requests are dropped, not queued.
func (r *Resolver) IdentifyActive(ctx context.Context) {
	if r.llm == nil || r.screen == nil {
		return
	}

	r.visionMu.Lock()
	if r.visionPending {
		r.visionMu.Unlock()
		r.metrics.VisionIdentifySkipped.WithLabelValues("pending").Inc()
		return
	}
	if r.now().Sub(r.lastVision) < r.cooldown {
		r.visionMu.Unlock()
		r.metrics.VisionIdentifySkipped.WithLabelValues("cooldown").Inc()
		return
	}
	r.visionPending = true
	r.lastVision = r.now()
	r.visionMu.Unlock()

	defer func() {
		r.visionMu.Lock()
		r.visionPending = false
		r.visionMu.Unlock()
	}()

	r.mu.Lock()
	tag := r.lastTag
	stillAuto := false
	if tag != nil {
		if sp, ok := r.speakers[*tag]; ok {
			stillAuto = sp.AutoDetected
		}
	}
	r.mu.Unlock()

	// Only a speaker still carrying a placeholder is worth a vision call.
	if tag == nil || !stillAuto {
		r.metrics.VisionIdentifySkipped.WithLabelValues("resolved").Inc()
		return
	}

	img, err := r.screen.CaptureFast()
	if err != nil || len(img) == 0 {
		r.log.Debug().Err(err).Msg("Screen capture unavailable for identification")
		return
	}

	r.metrics.VisionIdentifyTotal.Inc()
	answer, err := r.llm.DescribeImage(ctx, identifyPrompt, img)
	if err != nil {
		r.log.Warn().Err(err).Msg("Vision identification failed")
		return
	}

	name := strings.TrimSpace(answer)
	if name == "" || strings.EqualFold(name, "UNKNOWN") || len(name) > 64 {
		r.log.Debug().Str("answer", name).Msg("Vision identification inconclusive")
		return
	}

	r.rename(*tag, name, false)
}
