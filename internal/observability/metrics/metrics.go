// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_meeting_copilot"

// Metrics holds all Prometheus metrics for the copilot core.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionDuration prometheus.Histogram

	// Recognition stream metrics
	StreamsActive      *prometheus.GaugeVec
	StreamReconnects   *prometheus.CounterVec
	StreamRejections   *prometheus.CounterVec
	StreamKeepalives   *prometheus.CounterVec
	EmptyResults       *prometheus.CounterVec
	TranscriptsPartial *prometheus.CounterVec
	TranscriptsFinal   *prometheus.CounterVec

	// Audio metrics
	AudioBytesSent     *prometheus.CounterVec
	AudioFramesSent    *prometheus.CounterVec
	AudioChunksDropped *prometheus.CounterVec

	// Coaching metrics
	TriggersEvaluated   prometheus.Counter
	TriggersFired       prometheus.Counter
	TriggersCooldown    prometheus.Counter
	TriggersQueued      prometheus.Counter
	GenerationsTotal    prometheus.Counter
	GenerationsFailed   prometheus.Counter
	GenerationLatency   prometheus.Histogram
	ClassificationFails prometheus.Counter

	// Speaker identification metrics
	VisionIdentifyTotal   prometheus.Counter
	VisionIdentifySkipped *prometheus.CounterVec
	SpeakersResolved      prometheus.Counter

	// Briefing fetch metrics
	FetchTotal   *prometheus.CounterVec
	FetchBlocked *prometheus.CounterVec

	// Summary metrics
	SummariesTotal *prometheus.CounterVec
	SummaryLatency prometheus.Histogram

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of meeting sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active meeting sessions",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of meeting sessions in seconds",
			Buckets:   []float64{30, 60, 300, 600, 1200, 1800, 3600, 7200},
		}),

		StreamsActive: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_active",
			Help:      "Number of currently open recognition streams",
		}, []string{"channel"}),
		StreamReconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_reconnects_total",
			Help:      "Total number of recognition stream reconnect attempts",
		}, []string{"channel"}),
		StreamRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_rejections_total",
			Help:      "Total number of auth/policy rejections from the recognition provider",
		}, []string{"channel"}),
		StreamKeepalives: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_keepalives_total",
			Help:      "Total number of keepalive messages sent",
		}, []string{"channel"}),
		EmptyResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_results_total",
			Help:      "Total number of provider results with voice activity but no usable text",
		}, []string{"channel"}),
		TranscriptsPartial: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_partial_total",
			Help:      "Total number of partial transcript events",
		}, []string{"channel"}),
		TranscriptsFinal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total number of final transcript events",
		}, []string{"channel"}),

		AudioBytesSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_sent_total",
			Help:      "Total audio bytes forwarded to the recognition provider",
		}, []string{"channel"}),
		AudioFramesSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_sent_total",
			Help:      "Total audio frames forwarded to the recognition provider",
		}, []string{"channel"}),
		AudioChunksDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_dropped_total",
			Help:      "Total audio chunks dropped because the stream was not connected",
		}, []string{"channel"}),

		TriggersEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coaching_triggers_evaluated_total",
			Help:      "Total number of utterances evaluated for coaching triggers",
		}),
		TriggersFired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coaching_triggers_fired_total",
			Help:      "Total number of coaching triggers fired",
		}),
		TriggersCooldown: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coaching_triggers_cooldown_total",
			Help:      "Total number of triggers suppressed by the cooldown window",
		}),
		TriggersQueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coaching_triggers_queued_total",
			Help:      "Total number of triggers queued behind an in-flight generation",
		}),
		GenerationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coaching_generations_total",
			Help:      "Total number of coaching generations started",
		}),
		GenerationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coaching_generations_failed_total",
			Help:      "Total number of coaching generations that ended in error",
		}),
		GenerationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "coaching_generation_seconds",
			Help:      "Latency of coaching generations in seconds",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 13, 21},
		}),
		ClassificationFails: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coaching_classification_failures_total",
			Help:      "Total number of AI micro-classification failures (pattern fallback used)",
		}),

		VisionIdentifyTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vision_identify_total",
			Help:      "Total number of vision-assisted speaker identification passes",
		}),
		VisionIdentifySkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vision_identify_skipped_total",
			Help:      "Total number of vision passes skipped",
		}, []string{"reason"}),
		SpeakersResolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speakers_resolved_total",
			Help:      "Total number of speaker tags resolved to a display name",
		}),

		FetchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "briefing_fetch_total",
			Help:      "Total number of briefing source fetches",
		}, []string{"outcome"}),
		FetchBlocked: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "briefing_fetch_blocked_total",
			Help:      "Total number of briefing source fetches blocked before dialing",
		}, []string{"reason"}),

		SummariesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Total number of meeting summaries produced",
		}, []string{"kind"}),
		SummaryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summary_generation_seconds",
			Help:      "Latency of summary generation in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30},
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of events published to Kafka",
		}, []string{"topic", "eventType"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "eventType"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_seconds",
			Help:      "Latency of Kafka publishes in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"topic", "eventType"}),
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, seconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic, eventType).Observe(seconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
