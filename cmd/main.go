package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-meeting-copilot/internal/briefing"
	"ai-meeting-copilot/internal/coaching"
	"ai-meeting-copilot/internal/config"
	"ai-meeting-copilot/internal/credentials"
	"ai-meeting-copilot/internal/events"
	"ai-meeting-copilot/internal/llm"
	"ai-meeting-copilot/internal/models"
	"ai-meeting-copilot/internal/observability"
	"ai-meeting-copilot/internal/observability/logging"
	"ai-meeting-copilot/internal/rag"
	"ai-meeting-copilot/internal/screen"
	"ai-meeting-copilot/internal/session"
	"ai-meeting-copilot/internal/speaker"
	"ai-meeting-copilot/internal/storage"
	"ai-meeting-copilot/internal/transcription"
	googlestt "ai-meeting-copilot/internal/transcription/google"
)

// callbackRelay defers the callback target so the recognition backend can be
// built before the session manager that consumes its events.
type callbackRelay struct {
	target transcription.Callback
}

func (r *callbackRelay) OnTranscript(id string, ev models.TranscriptEvent) {
	if r.target != nil {
		r.target.OnTranscript(id, ev)
	}
}

func (r *callbackRelay) OnStreamError(id string, channel models.Channel, err error) {
	if r.target != nil {
		r.target.OnStreamError(id, channel, err)
	}
}

func main() {
	cfg := config.Load()

	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})
	log := logging.Logger()

	obs := observability.NewServer(cfg.Service.ObservabilityAddr)
	obs.Start()

	creds := credentials.NewKeyringResolver()

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("Failed to open summary store")
	}
	defer store.Close()

	bus := events.NewBus()
	publisher := events.New(&events.Config{
		Enabled:          cfg.Kafka.Enabled,
		Brokers:          cfg.Kafka.Brokers,
		TopicTranscripts: cfg.Kafka.TopicTranscripts,
		TopicTips:        cfg.Kafka.TopicTips,
		Principal:        cfg.Kafka.Principal,
	})
	bridge := events.NewBridge(bus, publisher)

	ctx := context.Background()

	var llmClient llm.Client
	if gem, gemErr := llm.NewGemini(ctx, creds, cfg.LLM.Model, cfg.LLM.VisionModel); gemErr == nil {
		llmClient = gem
	} else if cfg.Coaching.Enabled {
		log.Fatal().Err(gemErr).Msg("Coaching is enabled but the LLM backend is unavailable")
	} else {
		log.Warn().Err(gemErr).Msg("LLM backend unavailable, running transcription-only")
	}

	resolver := speaker.New(speaker.Config{
		SelfLabel: cfg.Coaching.SelfLabel,
		LLM:       llmClient,
		Screen:    screen.Noop{},
		Bus:       bus,
	})
	briefingMgr := briefing.NewManager(briefing.NewFetcher())

	relay := &callbackRelay{}
	var streamer transcription.Streamer
	switch cfg.Recognition.Provider {
	case "google":
		adapter, aErr := googlestt.New(ctx, cfg.Recognition.SampleRateHz, relay)
		if aErr != nil {
			log.Fatal().Err(aErr).Msg("Failed to create Google recognition backend")
		}
		defer adapter.Close()
		streamer = adapter
	default:
		streamer = transcription.NewClient(transcription.Config{
			URL:          cfg.Recognition.URL,
			Model:        cfg.Recognition.Model,
			Language:     cfg.Recognition.LanguageCode,
			SampleRateHz: cfg.Recognition.SampleRateHz,
			Provider:     cfg.Recognition.Provider,
		}, creds, transcription.WebSocketTransport{}, relay)
	}

	var mgr *session.Manager
	var engine *coaching.Engine
	if cfg.Coaching.Enabled {
		var retriever rag.Provider
		if cfg.Coaching.ContextFile != "" {
			data, readErr := os.ReadFile(cfg.Coaching.ContextFile)
			if readErr != nil {
				log.Warn().Err(readErr).Str("path", cfg.Coaching.ContextFile).Msg("Background context file unreadable, coaching runs without it")
			} else {
				retriever = rag.Static(data)
			}
		}
		engine = coaching.NewEngine(coaching.Config{
			LLM:         llmClient,
			Bus:         bus,
			Sensitivity: coaching.ParseSensitivity(cfg.Coaching.Sensitivity),
			Cooldown:    cfg.Coaching.Cooldown,
			RAG:         retriever,
			Transcript: func(n int) []models.TranscriptLine {
				return mgr.RecentLines(n)
			},
			Briefing: briefingMgr.Get,
			Sink: func(tip models.CoachingTip) {
				mgr.AddTip(tip)
			},
		})
	}

	mgr = session.NewManager(session.Config{
		Streamer:        streamer,
		Engine:          engine,
		Resolver:        resolver,
		Briefing:        briefingMgr,
		Store:           store,
		LLM:             llmClient,
		Bus:             bus,
		MicEnabled:      cfg.Channels.Mic,
		SystemEnabled:   cfg.Channels.System,
		CoachingEnabled: cfg.Coaching.Enabled,
		Language:        cfg.Recognition.LanguageCode,
	})
	relay.target = mgr

	log.Info().
		Str("provider", cfg.Recognition.Provider).
		Str("language", cfg.Recognition.LanguageCode).
		Bool("coaching", cfg.Coaching.Enabled).
		Bool("kafka", cfg.Kafka.Enabled).
		Msg("Meeting copilot core started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := mgr.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Session stop failed during shutdown")
	}

	bus.Close()
	bridge.Wait()
	if err := publisher.Close(); err != nil {
		log.Warn().Err(err).Msg("Kafka publisher close failed")
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Observability server shutdown failed")
	}
}
