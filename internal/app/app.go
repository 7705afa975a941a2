package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"speech-session-service/internal/api/ws"
	"speech-session-service/internal/config"
	"speech-session-service/internal/events"
	"speech-session-service/internal/observability/logging"
	"speech-session-service/internal/observability/metrics"
	"speech-session-service/internal/service/session"
	"speech-session-service/internal/service/stt"
	"speech-session-service/internal/service/stt/google"
	"speech-session-service/internal/service/stt/mock"
	"speech-session-service/internal/telemetry"
)

// Application holds process-wide state for the service: the shared engine
// model and the sinks every session writes to.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration
	Metrics     *metrics.Metrics

	Model     stt.Model
	Publisher *events.Publisher
	Telemetry telemetry.Recorder

	telemetryFile *telemetry.FileRecorder
	ready         atomic.Bool
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Configuration) *Application {
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})

	a := &Application{
		Cfg:       cfg,
		Metrics:   metrics.DefaultMetrics,
		Telemetry: telemetry.Nop{},
		Logger: logging.WithComponent("application").With().
			Str("service", "speech-session-service").
			Logger(),
	}

	a.Logger.Info().
		Str("logLevel", cfg.Observability.LogLevel).
		Str("sttProvider", cfg.STT.Provider).
		Msg("Speech session service application created")
	return a
}

// Start loads the engine model and opens the telemetry log and the Kafka
// publisher. The application is ready once Start returns nil.
func (a *Application) Start(ctx context.Context) error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()

	model, err := newModel(ctx, a.Cfg.STT)
	if err != nil {
		return fmt.Errorf("load %s model: %w", a.Cfg.STT.Provider, err)
	}
	a.Model = model

	if a.Cfg.Telemetry.Enabled {
		rec, err := telemetry.Open(a.Cfg.Telemetry.Dir, a.StartupTime)
		if err != nil {
			// Telemetry is best-effort.
			startLogger.Warn().Err(err).Str("dir", a.Cfg.Telemetry.Dir).Msg("Telemetry disabled")
		} else {
			a.telemetryFile = rec
			a.Telemetry = rec
			startLogger.Info().Str("path", rec.Path()).Msg("Telemetry log opened")
		}
	}

	a.Publisher = events.New(&events.Config{
		Enabled:      a.Cfg.Kafka.Enabled,
		Brokers:      a.Cfg.Kafka.Brokers,
		TopicPartial: a.Cfg.Kafka.TopicPartial,
		TopicFinal:   a.Cfg.Kafka.TopicFinal,
		Principal:    a.Cfg.Kafka.Principal,
		Metrics:      a.Metrics,
	})

	a.ready.Store(true)
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Str("sttProvider", model.Provider()).
		Msg("Speech session service ready")
	return nil
}

// Ready reports whether Start completed and Shutdown has not begun.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// SessionConfig returns the per-session streaming parameters.
func (a *Application) SessionConfig() session.Config {
	s := a.Cfg.Session
	return session.Config{
		SampleRate:         s.SampleRateHz,
		FrameDuration:      s.FrameDuration,
		EndSilence:         s.EndSilence,
		HistorySize:        s.PartialHistory,
		CarryPartialFrames: s.CarryPartialFrames,
	}
}

// WSConfig returns the WebSocket endpoint configuration. Kafka fan-out is
// only attached when the publisher writes to brokers.
func (a *Application) WSConfig() ws.Config {
	cfg := ws.Config{
		Session:           a.SessionConfig(),
		VADAggressiveness: a.Cfg.Session.VADAggressiveness,
		Telemetry:         a.Telemetry,
		Metrics:           a.Metrics,
	}
	if a.Publisher != nil && a.Publisher.Enabled() {
		cfg.Publisher = a.Publisher
	}
	return cfg
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	a.ready.Store(false)
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Failed to close publisher")
		}
	}
	if a.Model != nil {
		if err := a.Model.Close(); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Failed to close model")
		}
	}
	if a.telemetryFile != nil {
		if err := a.telemetryFile.Close(); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Failed to close telemetry log")
		}
	}
	shutdownLogger.Info().Msg("Speech session service shut down")
}

func newModel(ctx context.Context, cfg config.STTConfig) (stt.Model, error) {
	switch cfg.Provider {
	case "google":
		m, err := google.New(ctx, google.Config{
			LanguageCode:   cfg.LanguageCode,
			Model:          cfg.Model,
			InterimResults: cfg.InterimResults,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case "mock", "":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.Provider)
	}
}
