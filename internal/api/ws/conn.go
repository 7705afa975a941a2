package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"speech-session-service/internal/models"
	"speech-session-service/internal/observability/metrics"
	"speech-session-service/internal/schema"
	"speech-session-service/internal/service/session"
)

// DefaultWriteTimeout bounds a single transcript write to the client.
const DefaultWriteTimeout = 10 * time.Second

// Source reads audio chunks from a client connection. Malformed and
// unsupported messages are logged and skipped.
type Source struct {
	conn    *websocket.Conn
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewSource wraps conn. Only one goroutine may call Next.
func NewSource(conn *websocket.Conn, m *metrics.Metrics, logger zerolog.Logger) *Source {
	return &Source{conn: conn, metrics: m, logger: logger}
}

// Next blocks for the next audio chunk. It returns io.EOF when the client
// closes the connection normally and ctx.Err() once ctx is done.
func (s *Source) Next(ctx context.Context) ([]byte, error) {
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read client message: %w", err)
		}

		pcm, err := DecodeAudio(messageType, data)
		if err != nil {
			s.metrics.RecordMessageDropped(dropReason(err))
			s.logger.Warn().Err(err).Int("bytes", len(data)).Msg("Skipping client message")
			continue
		}
		return pcm, nil
	}
}

// Sink writes transcript events to a client connection as JSON text
// messages. It is safe for concurrent use with Close.
type Sink struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	validator    *schema.Validator
	writeTimeout time.Duration
}

// NewSink wraps conn.
func NewSink(conn *websocket.Conn, writeTimeout time.Duration) *Sink {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Sink{conn: conn, validator: schema.New(), writeTimeout: writeTimeout}
}

// Send writes one event.
func (s *Sink) Send(ctx context.Context, ev session.Event) error {
	msg := models.TranscriptMessage{
		Type: ev.Kind.String(),
		Text: ev.Text,
		TS:   float64(ev.Timestamp.UnixNano()) / 1e9,
	}
	if err := s.validator.Validate(msg); err != nil {
		return fmt.Errorf("invalid transcript message: %w", err)
	}

	deadline := time.Now().Add(s.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteJSON(msg)
}

// Close sends a close frame with the given code and reason.
func (s *Sink) Close(code int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second))
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}
