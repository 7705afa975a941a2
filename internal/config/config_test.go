package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"SERVICE_PRINCIPAL", "HTTP_PORT", "GRPC_PORT", "METRICS_PORT",
	"SESSION_SAMPLE_RATE_HZ", "SESSION_FRAME_DURATION", "SESSION_END_SILENCE",
	"SESSION_PARTIAL_HISTORY", "SESSION_CARRY_PARTIAL_FRAMES", "VAD_AGGRESSIVENESS",
	"STT_PROVIDER", "STT_LANGUAGE_CODE", "STT_MODEL", "STT_INTERIM_RESULTS",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_PARTIAL", "KAFKA_TOPIC_FINAL", "KAFKA_PRINCIPAL",
	"TELEMETRY_ENABLED", "TELEMETRY_DIR", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "svc-speech-session" {
		t.Errorf("expected default principal 'svc-speech-session', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8000" {
		t.Errorf("expected default HTTP port '8000', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Service.GRPCPort != "50051" {
		t.Errorf("expected default gRPC port '50051', got %s", cfg.Service.GRPCPort)
	}
	if cfg.Session.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.Session.SampleRateHz)
	}
	if cfg.Session.FrameDuration != 20*time.Millisecond {
		t.Errorf("expected default frame duration 20ms, got %v", cfg.Session.FrameDuration)
	}
	if cfg.Session.EndSilence != 1200*time.Millisecond {
		t.Errorf("expected default end silence 1200ms, got %v", cfg.Session.EndSilence)
	}
	if cfg.Session.PartialHistory != 3 {
		t.Errorf("expected default partial history 3, got %d", cfg.Session.PartialHistory)
	}
	if cfg.Session.CarryPartialFrames {
		t.Error("expected residual carry to be off by default")
	}
	if cfg.Session.VADAggressiveness != 2 {
		t.Errorf("expected default VAD aggressiveness 2, got %d", cfg.Session.VADAggressiveness)
	}
	if cfg.STT.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Telemetry.Dir != "logs" {
		t.Errorf("expected default telemetry dir 'logs', got %s", cfg.Telemetry.Dir)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("SESSION_SAMPLE_RATE_HZ", "8000")
	t.Setenv("SESSION_FRAME_DURATION", "30ms")
	t.Setenv("SESSION_END_SILENCE", "800ms")
	t.Setenv("SESSION_PARTIAL_HISTORY", "5")
	t.Setenv("SESSION_CARRY_PARTIAL_FRAMES", "true")
	t.Setenv("VAD_AGGRESSIVENESS", "3")
	t.Setenv("STT_PROVIDER", "google")
	t.Setenv("STT_LANGUAGE_CODE", "es-ES")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Session.SampleRateHz != 8000 {
		t.Errorf("expected sample rate 8000, got %d", cfg.Session.SampleRateHz)
	}
	if cfg.Session.FrameDuration != 30*time.Millisecond {
		t.Errorf("expected frame duration 30ms, got %v", cfg.Session.FrameDuration)
	}
	if cfg.Session.EndSilence != 800*time.Millisecond {
		t.Errorf("expected end silence 800ms, got %v", cfg.Session.EndSilence)
	}
	if cfg.Session.PartialHistory != 5 {
		t.Errorf("expected partial history 5, got %d", cfg.Session.PartialHistory)
	}
	if !cfg.Session.CarryPartialFrames {
		t.Error("expected residual carry enabled")
	}
	if cfg.Session.VADAggressiveness != 3 {
		t.Errorf("expected VAD aggressiveness 3, got %d", cfg.Session.VADAggressiveness)
	}
	if cfg.STT.Provider != "google" || cfg.STT.LanguageCode != "es-ES" {
		t.Errorf("unexpected STT config: %+v", cfg.STT)
	}
	if got := strings.Join(cfg.Kafka.Brokers, ","); got != "k1:9092,k2:9092" {
		t.Errorf("expected brokers 'k1:9092,k2:9092', got %s", got)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("custom config should validate, got %v", err)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SAMPLE_RATE_HZ", "not-a-number")
	t.Setenv("SESSION_FRAME_DURATION", "invalid")
	t.Setenv("SESSION_PARTIAL_HISTORY", "invalid")
	t.Setenv("STT_INTERIM_RESULTS", "invalid")

	cfg := Load()

	if cfg.Session.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate on invalid input, got %d", cfg.Session.SampleRateHz)
	}
	if cfg.Session.FrameDuration != 20*time.Millisecond {
		t.Errorf("expected default frame duration on invalid input, got %v", cfg.Session.FrameDuration)
	}
	if cfg.Session.PartialHistory != 3 {
		t.Errorf("expected default partial history on invalid input, got %d", cfg.Session.PartialHistory)
	}
	if !cfg.STT.InterimResults {
		t.Error("expected default interim results on invalid input")
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVICE_PRINCIPAL", "my-service")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Configuration)
		want   string
	}{
		{"sample rate", func(c *Configuration) { c.Session.SampleRateHz = 22050 }, "sample rate"},
		{"frame duration", func(c *Configuration) { c.Session.FrameDuration = 25 * time.Millisecond }, "frame duration"},
		{"end silence", func(c *Configuration) { c.Session.EndSilence = 0 }, "end silence"},
		{"history", func(c *Configuration) { c.Session.PartialHistory = 0 }, "partial history"},
		{"aggressiveness", func(c *Configuration) { c.Session.VADAggressiveness = 4 }, "aggressiveness"},
		{"provider", func(c *Configuration) { c.STT.Provider = "vosk" }, "STT provider"},
		{"kafka brokers", func(c *Configuration) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, "brokers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg := Load()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}
