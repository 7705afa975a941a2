// Package config loads service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration is the complete process configuration.
// It is read once at startup and never mutated afterwards.
type Configuration struct {
	Service       ServiceConfig
	Session       SessionConfig
	STT           STTConfig
	Kafka         KafkaConfig
	Telemetry     TelemetryConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds listener and identity settings.
type ServiceConfig struct {
	Principal   string
	HTTPPort    string
	GRPCPort    string
	MetricsPort string
}

// SessionConfig holds the per-session streaming parameters.
type SessionConfig struct {
	SampleRateHz       int
	FrameDuration      time.Duration
	EndSilence         time.Duration
	PartialHistory     int
	CarryPartialFrames bool
	VADAggressiveness  int
}

// STTConfig selects and configures the transcription engine.
type STTConfig struct {
	Provider       string // mock, google
	LanguageCode   string
	Model          string
	InterimResults bool
}

// KafkaConfig holds transcript publisher settings.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicPartial string
	TopicFinal   string
	Principal    string
}

// TelemetryConfig controls the append-only telemetry log.
type TelemetryConfig struct {
	Enabled bool
	Dir     string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment, falling back to
// defaults for missing or unparsable values.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-speech-session")

	return &Configuration{
		Service: ServiceConfig{
			Principal:   principal,
			HTTPPort:    envOrDefault("HTTP_PORT", "8000"),
			GRPCPort:    envOrDefault("GRPC_PORT", "50051"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
		Session: SessionConfig{
			SampleRateHz:       envOrDefaultInt("SESSION_SAMPLE_RATE_HZ", 16000),
			FrameDuration:      envOrDefaultDuration("SESSION_FRAME_DURATION", 20*time.Millisecond),
			EndSilence:         envOrDefaultDuration("SESSION_END_SILENCE", 1200*time.Millisecond),
			PartialHistory:     envOrDefaultInt("SESSION_PARTIAL_HISTORY", 3),
			CarryPartialFrames: envOrDefaultBool("SESSION_CARRY_PARTIAL_FRAMES", false),
			VADAggressiveness:  envOrDefaultInt("VAD_AGGRESSIVENESS", 2),
		},
		STT: STTConfig{
			Provider:       envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode:   envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			Model:          envOrDefault("STT_MODEL", ""),
			InterimResults: envOrDefaultBool("STT_INTERIM_RESULTS", true),
		},
		Kafka: KafkaConfig{
			Enabled:      envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:      envOrDefaultList("KAFKA_BROKERS", nil),
			TopicPartial: envOrDefault("KAFKA_TOPIC_PARTIAL", "session.transcript.partial"),
			TopicFinal:   envOrDefault("KAFKA_TOPIC_FINAL", "session.transcript.final"),
			Principal:    envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Telemetry: TelemetryConfig{
			Enabled: envOrDefaultBool("TELEMETRY_ENABLED", true),
			Dir:     envOrDefault("TELEMETRY_DIR", "logs"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

// Validate rejects settings the session core cannot run with.
func (c *Configuration) Validate() error {
	var errs []error

	switch c.Session.SampleRateHz {
	case 8000, 16000, 32000, 48000:
	default:
		errs = append(errs, fmt.Errorf("unsupported sample rate %d Hz", c.Session.SampleRateHz))
	}
	switch c.Session.FrameDuration {
	case 10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond:
	default:
		errs = append(errs, fmt.Errorf("frame duration must be 10ms, 20ms or 30ms, got %v", c.Session.FrameDuration))
	}
	if c.Session.EndSilence <= 0 {
		errs = append(errs, fmt.Errorf("end silence must be positive, got %v", c.Session.EndSilence))
	}
	if c.Session.PartialHistory < 1 {
		errs = append(errs, fmt.Errorf("partial history must be at least 1, got %d", c.Session.PartialHistory))
	}
	if c.Session.VADAggressiveness < 0 || c.Session.VADAggressiveness > 3 {
		errs = append(errs, fmt.Errorf("VAD aggressiveness must be 0..3, got %d", c.Session.VADAggressiveness))
	}
	switch c.STT.Provider {
	case "mock", "google":
	default:
		errs = append(errs, fmt.Errorf("unknown STT provider %q", c.STT.Provider))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka enabled without brokers"))
	}

	return errors.Join(errs...)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
