// Package session implements one streaming transcription session: it frames
// incoming PCM, classifies speech, drives the engine, emits deduplicated
// partials and finals, and forces a final when the speaker goes quiet.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"speech-session-service/internal/models"
	"speech-session-service/internal/observability/logging"
	"speech-session-service/internal/observability/metrics"
	"speech-session-service/internal/service/audio"
	"speech-session-service/internal/service/segment"
	"speech-session-service/internal/service/stt"
	"speech-session-service/internal/service/vad"
	"speech-session-service/internal/telemetry"
)

// Errors that end a session.
var (
	ErrEngineRejected = errors.New("engine rejected frame")
	ErrSinkFailed     = errors.New("client send failed")
	ErrSessionClosed  = errors.New("session closed")
)

// End reasons recorded when a session finishes.
const (
	EndDisconnect = "disconnect"
	EndCanceled   = "canceled"
	EndEngine     = "engine_error"
	EndSink       = "sink_error"
	EndTransport  = "transport_error"
)

// Config holds the per-session streaming parameters.
type Config struct {
	SampleRate         int
	FrameDuration      time.Duration
	EndSilence         time.Duration
	HistorySize        int
	CarryPartialFrames bool
}

// DefaultConfig returns 16 kHz audio in 20 ms frames, ending utterances
// after 1.2 s of stable silence.
func DefaultConfig() Config {
	return Config{
		SampleRate:    16000,
		FrameDuration: 20 * time.Millisecond,
		EndSilence:    1200 * time.Millisecond,
		HistorySize:   3,
	}
}

// Option configures a Handler.
type Option func(*Handler)

// WithTelemetry records latency and transcript events to r.
func WithTelemetry(r telemetry.Recorder) Option {
	return func(h *Handler) { h.telemetry = r }
}

// WithPublisher fans transcripts out to p.
func WithPublisher(p Publisher) Option {
	return func(h *Handler) { h.publisher = p }
}

// WithMetrics overrides metrics.DefaultMetrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger overrides the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithProvider names the engine provider in metrics and logs.
func WithProvider(name string) Option {
	return func(h *Handler) { h.provider = name }
}

// Handler owns the state of one client session. It is driven by a single
// goroutine and is not safe for concurrent use; separate sessions share
// nothing but the engine model they were created from.
type Handler struct {
	id        string
	cfg       Config
	engine    stt.Engine
	vad       vad.Classifier
	sink      Sink
	publisher Publisher
	telemetry telemetry.Recorder
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
	provider  string

	segmenter   *audio.Segmenter
	endpoint    *EndpointTracker
	history     *History
	utterance   *segment.Lifecycle
	utterances  *segment.UtteranceIDs
	lastPartial string

	startedAt    time.Time
	firstAudio   time.Time
	firstPartial time.Time
	started      bool
	closed       bool
	released     bool
}

// NewHandler creates a session. The engine is owned by the session and is
// closed when the session ends.
func NewHandler(id string, cfg Config, engine stt.Engine, classifier vad.Classifier, sink Sink, opts ...Option) *Handler {
	h := &Handler{
		id:         id,
		cfg:        cfg,
		engine:     engine,
		vad:        classifier,
		sink:       sink,
		telemetry:  telemetry.Nop{},
		metrics:    metrics.DefaultMetrics,
		logger:     zerolog.Nop(),
		now:        time.Now,
		provider:   "unknown",
		segmenter:  audio.NewSegmenter(audio.FrameSize(cfg.SampleRate, cfg.FrameDuration), cfg.CarryPartialFrames),
		endpoint:   NewEndpointTracker(cfg.FrameDuration, cfg.EndSilence),
		history:    NewHistory(cfg.HistorySize),
		utterance:  segment.NewLifecycle(),
		utterances: segment.NewUtteranceIDs(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ID returns the session ID.
func (h *Handler) ID() string {
	return h.id
}

// Start marks the session open. Idempotent.
func (h *Handler) Start() {
	if h.started || h.closed {
		return
	}
	h.started = true
	h.startedAt = h.now()
	h.metrics.RecordSessionStart()
	h.telemetry.Record(telemetry.Event{Kind: telemetry.SessionStart, SessionID: h.id, At: h.startedAt})
	h.logger.Info().Int("sampleRate", h.cfg.SampleRate).Dur("frame", h.cfg.FrameDuration).Msg("Session started")
}

// Run consumes chunks from src until the client disconnects, ctx is
// canceled, or a fatal error occurs. A clean disconnect returns nil.
func (h *Handler) Run(ctx context.Context, src Source) (err error) {
	h.Start()
	defer func() { h.Close(endReason(err)) }()

	for {
		chunk, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := h.HandleAudio(ctx, chunk); err != nil {
			return err
		}
	}
}

// HandleAudio processes one PCM16LE chunk frame by frame. Frames are
// processed in arrival order and each frame's effects complete before the
// next frame starts. A partial trailing frame is dropped unless residual
// carry is configured.
func (h *Handler) HandleAudio(ctx context.Context, pcm []byte) error {
	if h.closed {
		return ErrSessionClosed
	}
	h.Start()

	if h.firstAudio.IsZero() {
		h.firstAudio = h.now()
		h.telemetry.Record(telemetry.Event{Kind: telemetry.FirstAudio, SessionID: h.id, At: h.firstAudio})
	}
	h.metrics.RecordAudioReceived(len(pcm))

	for frame := range h.segmenter.Frames(pcm) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.processFrame(ctx, frame); err != nil {
			h.closed = true
			return err
		}
	}
	return nil
}

func (h *Handler) processFrame(ctx context.Context, frame audio.Frame) error {
	voiced := h.vad.IsSpeech(frame, h.cfg.SampleRate)
	h.endpoint.Observe(voiced)
	h.metrics.RecordFrame(voiced)

	finalReady, err := h.engine.AcceptFrame(frame)
	if err != nil {
		h.metrics.RecordEngineError(h.provider)
		h.logger.Error().Err(err).Str("sttProvider", h.provider).Msg("Engine rejected frame")
		return fmt.Errorf("%w: %w", ErrEngineRejected, err)
	}

	if finalReady {
		if err := h.finalize(ctx, h.engine.FinalText(), false); err != nil {
			return err
		}
	} else if err := h.emitPartial(ctx, h.engine.PartialText()); err != nil {
		return err
	}

	if h.endpoint.ShouldEndpoint(h.utterance.IsOpen(), h.history) {
		h.logger.Debug().Dur("silence", h.endpoint.Silence()).Msg("Endpoint detected, forcing final")
		return h.finalize(ctx, h.engine.ForceFinal(), true)
	}
	return nil
}

func (h *Handler) emitPartial(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" || text == h.lastPartial {
		return nil
	}

	at := h.now()
	if h.firstPartial.IsZero() {
		h.firstPartial = at
		latency := at.Sub(h.firstAudio)
		h.telemetry.Record(telemetry.Event{Kind: telemetry.FirstPartial, SessionID: h.id, Latency: latency, At: at})
		h.metrics.RecordFirstPartialLatency(latency.Seconds())
	}
	if !h.utterance.IsOpen() {
		// Cannot fail: the lifecycle is idle.
		_ = h.utterance.Open(h.utterances.Next(h.id), at)
		h.metrics.RecordUtterance()
	}
	h.lastPartial = text
	h.history.Push(text)

	ev := Event{Kind: KindPartial, Text: text, Timestamp: at, UtteranceID: h.utterance.ID()}
	if err := h.send(ctx, ev); err != nil {
		return err
	}
	h.telemetry.Record(telemetry.Event{Kind: telemetry.Partial, SessionID: h.id, Text: text, At: at})
	h.metrics.RecordPartialTranscript()

	if h.publisher != nil {
		if err := h.publisher.PublishPartial(ctx, h.id, models.TranscriptPartial{
			EventType:   models.EventTypePartial,
			SessionID:   h.id,
			UtteranceID: ev.UtteranceID,
			Timestamp:   at.UnixMilli(),
			Text:        text,
		}); err != nil {
			h.logger.Warn().Err(err).Str("utteranceId", ev.UtteranceID).Msg("Failed to publish partial")
		}
	}
	return nil
}

// finalize ends the current utterance. Utterance state is reset even when
// the engine produced no text; an empty final is not emitted.
func (h *Handler) finalize(ctx context.Context, text string, forced bool) error {
	text = strings.TrimSpace(text)
	reason := metrics.FinalEngine
	if forced {
		reason = metrics.FinalForced
	}

	at := h.now()
	utteranceID := h.utterance.ID()
	ttf, closeErr := h.utterance.Close(at)
	hadUtterance := closeErr == nil
	h.resetUtterance()

	if text == "" {
		h.metrics.RecordEmptyFinal(reason)
		return nil
	}

	ev := Event{Kind: KindFinal, Text: text, Timestamp: at, UtteranceID: utteranceID, Forced: forced}
	if hadUtterance {
		ev.TimeToFinal = ttf
	}
	if err := h.send(ctx, ev); err != nil {
		return err
	}
	h.telemetry.Record(telemetry.Event{Kind: telemetry.Final, SessionID: h.id, Text: text, At: at})
	if hadUtterance {
		h.telemetry.Record(telemetry.Event{Kind: telemetry.TimeToFinal, SessionID: h.id, TimeToFinal: ttf, At: at})
		h.metrics.RecordTimeToFinal(ttf.Seconds())
	}
	h.metrics.RecordFinalTranscript(reason)

	logger := logging.WithUtterance(h.logger, utteranceID)
	logger.Info().
		Bool("forced", forced).
		Dur("timeToFinal", ev.TimeToFinal).
		Msg("Final transcript")

	if h.publisher != nil {
		if err := h.publisher.PublishFinal(ctx, h.id, models.TranscriptFinal{
			EventType:     models.EventTypeFinal,
			SessionID:     h.id,
			UtteranceID:   utteranceID,
			Timestamp:     at.UnixMilli(),
			Text:          text,
			Forced:        forced,
			TimeToFinalMs: ev.TimeToFinal.Milliseconds(),
		}); err != nil {
			h.logger.Warn().Err(err).Str("utteranceId", utteranceID).Msg("Failed to publish final")
		}
	}
	return nil
}

func (h *Handler) resetUtterance() {
	h.utterance.Reset()
	h.history.Clear()
	h.lastPartial = ""
	h.endpoint.Reset()
}

func (h *Handler) send(ctx context.Context, ev Event) error {
	if err := h.sink.Send(ctx, ev); err != nil {
		return fmt.Errorf("%w: %w", ErrSinkFailed, err)
	}
	return nil
}

// Close releases the engine and records the session end. Idempotent.
func (h *Handler) Close(reason string) {
	if h.released {
		return
	}
	h.released = true
	h.closed = true

	if err := h.engine.Close(); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to close engine")
	}
	if !h.started {
		return
	}
	elapsed := h.now().Sub(h.startedAt)
	h.metrics.RecordSessionEnd(reason, elapsed.Seconds())
	h.logger.Info().Str("reason", reason).Dur("duration", elapsed).Msg("Session ended")
}

// Snapshot is a read-only view of session state.
type Snapshot struct {
	Utterance   segment.State
	UtteranceID string
	Silence     time.Duration
	LastPartial string
	History     []string
	Closed      bool
}

// Snapshot returns the current session state.
func (h *Handler) Snapshot() Snapshot {
	return Snapshot{
		Utterance:   h.utterance.State(),
		UtteranceID: h.utterance.ID(),
		Silence:     h.endpoint.Silence(),
		LastPartial: h.lastPartial,
		History:     h.history.Values(),
		Closed:      h.closed,
	}
}

func endReason(err error) string {
	switch {
	case err == nil:
		return EndDisconnect
	case errors.Is(err, ErrEngineRejected):
		return EndEngine
	case errors.Is(err, ErrSinkFailed):
		return EndSink
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return EndCanceled
	default:
		return EndTransport
	}
}
