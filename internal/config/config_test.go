package config

import (
	"os"
	"testing"
	"time"
)

var configEnvVars = []string{
	"SERVICE_PRINCIPAL", "OBSERVABILITY_ADDR",
	"RECOGNITION_PROVIDER", "RECOGNITION_URL", "RECOGNITION_LANGUAGE",
	"RECOGNITION_SAMPLE_RATE_HZ", "RECOGNITION_MODEL",
	"CHANNEL_MIC_ENABLED", "CHANNEL_SYSTEM_ENABLED",
	"COACHING_ENABLED", "COACHING_SENSITIVITY", "SELF_LABEL",
	"COACHING_COOLDOWN", "COACHING_CONTEXT_FILE",
	"LLM_MODEL", "LLM_VISION_MODEL",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_TRANSCRIPTS",
	"KAFKA_TOPIC_TIPS", "KAFKA_PRINCIPAL",
	"STORAGE_PATH", "LOG_LEVEL", "LOG_FORMAT",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, v := range configEnvVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "svc-meeting-copilot" {
		t.Errorf("expected default principal 'svc-meeting-copilot', got %s", cfg.Service.Principal)
	}
	if cfg.Service.ObservabilityAddr != ":9090" {
		t.Errorf("expected default observability addr ':9090', got %s", cfg.Service.ObservabilityAddr)
	}

	if cfg.Recognition.Provider != "deepgram" {
		t.Errorf("expected default provider 'deepgram', got %s", cfg.Recognition.Provider)
	}
	if cfg.Recognition.URL != "wss://api.deepgram.com/v1/listen" {
		t.Errorf("unexpected default recognition url: %s", cfg.Recognition.URL)
	}
	if cfg.Recognition.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.Recognition.LanguageCode)
	}
	if cfg.Recognition.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.Recognition.SampleRateHz)
	}
	if cfg.Recognition.Model != "nova-2" {
		t.Errorf("expected default model 'nova-2', got %s", cfg.Recognition.Model)
	}

	if !cfg.Channels.Mic || !cfg.Channels.System {
		t.Error("expected both channels enabled by default")
	}

	if !cfg.Coaching.Enabled {
		t.Error("expected coaching enabled by default")
	}
	if cfg.Coaching.Sensitivity != "medium" {
		t.Errorf("expected default sensitivity 'medium', got %s", cfg.Coaching.Sensitivity)
	}
	if cfg.Coaching.SelfLabel != "You" {
		t.Errorf("expected default self label 'You', got %s", cfg.Coaching.SelfLabel)
	}
	if cfg.Coaching.Cooldown != 5*time.Second {
		t.Errorf("expected default cooldown 5s, got %v", cfg.Coaching.Cooldown)
	}
	if cfg.Coaching.ContextFile != "" {
		t.Errorf("expected no default context file, got %s", cfg.Coaching.ContextFile)
	}

	if cfg.Kafka.Enabled {
		t.Error("expected kafka disabled by default")
	}
	if cfg.Kafka.TopicTranscripts != "copilot.transcripts" {
		t.Errorf("unexpected default transcripts topic: %s", cfg.Kafka.TopicTranscripts)
	}
	if cfg.Kafka.TopicTips != "copilot.tips" {
		t.Errorf("unexpected default tips topic: %s", cfg.Kafka.TopicTips)
	}

	if cfg.Storage.Path != "copilot.sqlite" {
		t.Errorf("unexpected default storage path: %s", cfg.Storage.Path)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearConfigEnv(t)
	os.Setenv("RECOGNITION_PROVIDER", "google")
	os.Setenv("RECOGNITION_LANGUAGE", "pl-PL")
	os.Setenv("RECOGNITION_SAMPLE_RATE_HZ", "48000")
	os.Setenv("COACHING_ENABLED", "false")
	os.Setenv("COACHING_SENSITIVITY", "high")
	os.Setenv("COACHING_COOLDOWN", "8s")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	os.Setenv("CHANNEL_MIC_ENABLED", "false")
	defer clearConfigEnv(t)

	cfg := Load()

	if cfg.Recognition.Provider != "google" {
		t.Errorf("expected provider 'google', got %s", cfg.Recognition.Provider)
	}
	if cfg.Recognition.LanguageCode != "pl-PL" {
		t.Errorf("expected language 'pl-PL', got %s", cfg.Recognition.LanguageCode)
	}
	if cfg.Recognition.SampleRateHz != 48000 {
		t.Errorf("expected sample rate 48000, got %d", cfg.Recognition.SampleRateHz)
	}
	if cfg.Coaching.Enabled {
		t.Error("expected coaching disabled")
	}
	if cfg.Coaching.Sensitivity != "high" {
		t.Errorf("expected sensitivity 'high', got %s", cfg.Coaching.Sensitivity)
	}
	if cfg.Coaching.Cooldown != 8*time.Second {
		t.Errorf("expected cooldown 8s, got %v", cfg.Coaching.Cooldown)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "k1:9092" || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Channels.Mic {
		t.Error("expected mic channel disabled")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearConfigEnv(t)
	os.Setenv("RECOGNITION_SAMPLE_RATE_HZ", "not-a-number")
	os.Setenv("COACHING_ENABLED", "maybe")
	os.Setenv("COACHING_COOLDOWN", "soon")
	defer clearConfigEnv(t)

	cfg := Load()

	if cfg.Recognition.SampleRateHz != 16000 {
		t.Errorf("expected fallback sample rate 16000, got %d", cfg.Recognition.SampleRateHz)
	}
	if !cfg.Coaching.Enabled {
		t.Error("expected fallback coaching enabled")
	}
	if cfg.Coaching.Cooldown != 5*time.Second {
		t.Errorf("expected fallback cooldown 5s, got %v", cfg.Coaching.Cooldown)
	}
}
