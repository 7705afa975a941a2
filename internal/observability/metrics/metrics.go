// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "speech_session"

// Final reasons used as label values.
const (
	FinalEngine = "engine"
	FinalForced = "forced"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsEnded   *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// Audio metrics
	AudioBytesReceived prometheus.Counter
	MessagesDropped    *prometheus.CounterVec
	FramesProcessed    prometheus.Counter
	FramesVoiced       prometheus.Counter

	// Transcript metrics
	TranscriptsPartial prometheus.Counter
	TranscriptsFinal   *prometheus.CounterVec
	EmptyFinals        *prometheus.CounterVec
	Utterances         prometheus.Counter

	// Latency metrics
	FirstPartialLatency prometheus.Histogram
	TimeToFinal         prometheus.Histogram

	// Engine metrics
	EngineErrors *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance registered with the
// default Prometheus registry.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of streaming sessions started",
		}),
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently open streaming sessions",
		}),
		SessionsEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Total number of sessions ended, by reason",
		}, []string{"reason"}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of streaming sessions in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),

		AudioBytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total PCM bytes received from clients",
		}),
		MessagesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Client messages discarded without processing",
		}, []string{"reason"}),
		FramesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Total fixed-size audio frames fed to the engine",
		}),
		FramesVoiced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_voiced_total",
			Help:      "Total frames classified as speech",
		}),

		TranscriptsPartial: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_partial_total",
			Help:      "Total number of partial transcripts emitted",
		}),
		TranscriptsFinal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total number of final transcripts emitted",
		}, []string{"reason"}),
		EmptyFinals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_empty_total",
			Help:      "Finals suppressed because the engine returned no text",
		}, []string{"reason"}),
		Utterances: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Total number of utterances opened",
		}),

		FirstPartialLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_partial_latency_seconds",
			Help:      "Time from first audio to first partial transcript",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.5, 1, 2, 5},
		}),
		TimeToFinal: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "time_to_final_seconds",
			Help:      "Time from utterance start to final transcript",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 10, 30},
		}),

		EngineErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_errors_total",
			Help:      "Total number of fatal transcription engine errors",
		}, []string{"provider"}),

		KafkaPublishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a new session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd(reason string, durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
	m.SessionsEnded.WithLabelValues(reason).Inc()
}

// RecordAudioReceived records PCM bytes accepted from a client message.
func (m *Metrics) RecordAudioReceived(bytes int) {
	m.AudioBytesReceived.Add(float64(bytes))
}

// RecordMessageDropped records a client message that was skipped.
func (m *Metrics) RecordMessageDropped(reason string) {
	m.MessagesDropped.WithLabelValues(reason).Inc()
}

// RecordFrame records one processed frame.
func (m *Metrics) RecordFrame(voiced bool) {
	m.FramesProcessed.Inc()
	if voiced {
		m.FramesVoiced.Inc()
	}
}

// RecordPartialTranscript records a partial transcript emitted.
func (m *Metrics) RecordPartialTranscript() {
	m.TranscriptsPartial.Inc()
}

// RecordFinalTranscript records a final transcript emitted.
func (m *Metrics) RecordFinalTranscript(reason string) {
	m.TranscriptsFinal.WithLabelValues(reason).Inc()
}

// RecordEmptyFinal records a final that carried no text.
func (m *Metrics) RecordEmptyFinal(reason string) {
	m.EmptyFinals.WithLabelValues(reason).Inc()
}

// RecordUtterance records an utterance being opened.
func (m *Metrics) RecordUtterance() {
	m.Utterances.Inc()
}

// RecordFirstPartialLatency records the first-audio to first-partial latency.
func (m *Metrics) RecordFirstPartialLatency(seconds float64) {
	m.FirstPartialLatency.Observe(seconds)
}

// RecordTimeToFinal records the utterance-start to final latency.
func (m *Metrics) RecordTimeToFinal(seconds float64) {
	m.TimeToFinal.Observe(seconds)
}

// RecordEngineError records a fatal engine error.
func (m *Metrics) RecordEngineError(provider string) {
	m.EngineErrors.WithLabelValues(provider).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
