// Package briefing holds the pre-session context injected into coaching
// and summary prompts, and fetches its reference URLs safely.
package briefing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-meeting-copilot/internal/models"
	"ai-meeting-copilot/internal/observability/logging"
)

// textFetcher retrieves the text of one source URL.
type textFetcher interface {
	FetchText(ctx context.Context, rawURL string) (string, error)
}

// Manager owns the current briefing. Read-mostly: set once before or
// during a session, read on every prompt build.
type Manager struct {
	fetcher textFetcher
	log     zerolog.Logger

	mu       sync.RWMutex
	briefing *models.Briefing
}

// NewManager creates a briefing manager.
func NewManager(fetcher *Fetcher) *Manager {
	return &Manager{
		fetcher: fetcher,
		log:     logging.WithComponent("briefing"),
	}
}

// Set stores a briefing and fetches each source URL. A source that fails
// to fetch keeps its error; briefing processing continues with the rest.
func (m *Manager) Set(ctx context.Context, b models.Briefing) {
	for i := range b.Sources {
		src := &b.Sources[i]
		text, err := m.fetcher.FetchText(ctx, src.URL)
		if err != nil {
			m.log.Warn().Err(err).Str("url", src.URL).Msg("Briefing source fetch failed")
			src.Err = err.Error()
			continue
		}
		src.Text = text
		src.FetchedAt = time.Now()
	}

	m.mu.Lock()
	m.briefing = &b
	m.mu.Unlock()
	m.log.Info().Str("topic", b.Topic).Int("sources", len(b.Sources)).Msg("Briefing set")
}

// Get returns a copy of the current briefing, or nil if none is set.
func (m *Manager) Get() *models.Briefing {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.briefing == nil {
		return nil
	}
	copied := *m.briefing
	return &copied
}

// Clear drops the current briefing.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.briefing = nil
	m.mu.Unlock()
}
