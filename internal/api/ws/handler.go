package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"speech-session-service/internal/observability/logging"
	"speech-session-service/internal/observability/metrics"
	"speech-session-service/internal/service/session"
	"speech-session-service/internal/service/stt"
	"speech-session-service/internal/service/vad"
	"speech-session-service/internal/telemetry"
)

// Config configures the WebSocket endpoint.
type Config struct {
	Session           session.Config
	VADAggressiveness int
	WriteTimeout      time.Duration
	Telemetry         telemetry.Recorder // nil disables telemetry
	Publisher         session.Publisher  // nil disables fan-out
	Metrics           *metrics.Metrics   // defaults to metrics.DefaultMetrics
}

// Handler upgrades requests and runs one session per connection. Sessions
// share only the engine model.
type Handler struct {
	model    stt.Model
	cfg      Config
	upgrader websocket.Upgrader
	logger   zerolog.Logger
	live     sync.WaitGroup
}

// NewHandler creates a WebSocket session endpoint backed by model.
func NewHandler(model stt.Model, cfg Config) *Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.DefaultMetrics
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = telemetry.Nop{}
	}
	return &Handler{
		model: model,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logging.WithComponent("ws"),
	}
}

// Wait blocks until every upgraded session has returned or ctx is done.
// http.Server.Shutdown does not track hijacked connections.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.live.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP runs the session until the client disconnects, the request
// context is canceled, or the session fails.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	h.live.Add(1)
	defer h.live.Done()
	defer conn.Close()

	sessionID := uuid.NewString()
	logger := logging.WithSession(sessionID, r.RemoteAddr)
	ctx := r.Context()

	sink := NewSink(conn, h.cfg.WriteTimeout)

	classifier, err := vad.NewEnergy(h.cfg.VADAggressiveness, h.cfg.Session.SampleRate, h.cfg.Session.FrameDuration)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create voice activity classifier")
		_ = sink.Close(websocket.CloseInternalServerErr, "vad unavailable")
		return
	}
	engine, err := h.model.NewEngine(ctx, h.cfg.Session.SampleRate)
	if err != nil {
		logger.Error().Err(err).Str("sttProvider", h.model.Provider()).Msg("Failed to create engine")
		_ = sink.Close(websocket.CloseInternalServerErr, "engine unavailable")
		return
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithMetrics(h.cfg.Metrics),
		session.WithTelemetry(h.cfg.Telemetry),
		session.WithProvider(h.model.Provider()),
	}
	if h.cfg.Publisher != nil {
		opts = append(opts, session.WithPublisher(h.cfg.Publisher))
	}
	sess := session.NewHandler(sessionID, h.cfg.Session, engine, classifier, sink, opts...)

	// Unblock the pending read when the server shuts down.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	err = sess.Run(ctx, NewSource(conn, h.cfg.Metrics, logger))
	switch {
	case err == nil:
		logger.Info().Msg("Client disconnected")
	case errors.Is(err, session.ErrEngineRejected):
		_ = sink.Close(websocket.CloseInternalServerErr, "engine error")
	case errors.Is(err, context.Canceled):
		_ = sink.Close(websocket.CloseGoingAway, "server shutting down")
	case errors.Is(err, session.ErrSinkFailed):
		logger.Warn().Err(err).Msg("Client unreachable")
	default:
		logger.Warn().Err(err).Msg("Session ended")
	}
}
