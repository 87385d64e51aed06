// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Principal         string
	ObservabilityAddr string
}

// RecognitionConfig holds speech-recognition provider settings.
type RecognitionConfig struct {
	Provider     string // deepgram or google
	URL          string
	LanguageCode string
	SampleRateHz int
	Model        string
}

// ChannelsConfig selects which audio channels a session opens.
type ChannelsConfig struct {
	Mic    bool
	System bool
}

// CoachingConfig holds trigger and generation settings.
type CoachingConfig struct {
	Enabled     bool
	Sensitivity string // low, medium, high
	SelfLabel   string
	Cooldown    time.Duration
	ContextFile string // optional background material served to prompts
}

// LLMConfig holds settings for the text/vision generation backend.
type LLMConfig struct {
	Model       string
	VisionModel string
}

// KafkaConfig holds the dashboard event mirror settings.
type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	TopicTranscripts string
	TopicTips        string
	Principal        string
}

// StorageConfig holds the summary store settings.
type StorageConfig struct {
	Path string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Configuration is the full service configuration.
type Configuration struct {
	Service       ServiceConfig
	Recognition   RecognitionConfig
	Channels      ChannelsConfig
	Coaching      CoachingConfig
	LLM           LLMConfig
	Kafka         KafkaConfig
	Storage       StorageConfig
	Observability ObservabilityConfig
}

// Load reads configuration from the environment, applying defaults.
func Load() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Principal:         envOrDefault("SERVICE_PRINCIPAL", "svc-meeting-copilot"),
			ObservabilityAddr: envOrDefault("OBSERVABILITY_ADDR", ":9090"),
		},
		Recognition: RecognitionConfig{
			Provider:     envOrDefault("RECOGNITION_PROVIDER", "deepgram"),
			URL:          envOrDefault("RECOGNITION_URL", "wss://api.deepgram.com/v1/listen"),
			LanguageCode: envOrDefault("RECOGNITION_LANGUAGE", "en-US"),
			SampleRateHz: envOrDefaultInt("RECOGNITION_SAMPLE_RATE_HZ", 16000),
			Model:        envOrDefault("RECOGNITION_MODEL", "nova-2"),
		},
		Channels: ChannelsConfig{
			Mic:    envOrDefaultBool("CHANNEL_MIC_ENABLED", true),
			System: envOrDefaultBool("CHANNEL_SYSTEM_ENABLED", true),
		},
		Coaching: CoachingConfig{
			Enabled:     envOrDefaultBool("COACHING_ENABLED", true),
			Sensitivity: envOrDefault("COACHING_SENSITIVITY", "medium"),
			SelfLabel:   envOrDefault("SELF_LABEL", "You"),
			Cooldown:    envOrDefaultDuration("COACHING_COOLDOWN", 5*time.Second),
			ContextFile: envOrDefault("COACHING_CONTEXT_FILE", ""),
		},
		LLM: LLMConfig{
			Model:       envOrDefault("LLM_MODEL", "gemini-2.0-flash"),
			VisionModel: envOrDefault("LLM_VISION_MODEL", "gemini-2.0-flash"),
		},
		Kafka: KafkaConfig{
			Enabled:          envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:          envOrDefaultSlice("KAFKA_BROKERS", nil),
			TopicTranscripts: envOrDefault("KAFKA_TOPIC_TRANSCRIPTS", "copilot.transcripts"),
			TopicTips:        envOrDefault("KAFKA_TOPIC_TIPS", "copilot.tips"),
			Principal:        envOrDefault("KAFKA_PRINCIPAL", "svc-meeting-copilot"),
		},
		Storage: StorageConfig{
			Path: envOrDefault("STORAGE_PATH", "copilot.sqlite"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultSlice(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
