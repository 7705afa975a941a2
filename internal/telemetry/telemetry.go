// Package telemetry records per-session latency and transcript events to an
// append-only JSON lines file.
package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Kind names a telemetry event.
type Kind string

const (
	SessionStart Kind = "session_start"
	FirstAudio   Kind = "first_audio"
	FirstPartial Kind = "first_partial"
	Partial      Kind = "partial"
	Final        Kind = "final"
	TimeToFinal  Kind = "time_to_final"
)

// Event is one telemetry record. Only the fields relevant to Kind are written.
type Event struct {
	Kind        Kind
	SessionID   string
	Text        string
	Latency     time.Duration // first_partial
	TimeToFinal time.Duration // time_to_final
	At          time.Time
}

// Recorder appends telemetry events. Recording is best-effort: failures are
// reported out of band and never returned to the caller.
type Recorder interface {
	Record(ev Event)
}

// Nop discards every event.
type Nop struct{}

// Record does nothing.
func (Nop) Record(Event) {}

// FileRecorder writes events as JSON lines. It is safe for concurrent use by
// many sessions.
type FileRecorder struct {
	logger zerolog.Logger
	closer io.Closer
	path   string
}

// Open creates dir if needed and opens session_<unix-ms>.jsonl for appending.
func Open(dir string, now time.Time) (*FileRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create telemetry dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("session_%d.jsonl", now.UnixMilli()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open telemetry file: %w", err)
	}
	r := NewWriterRecorder(f)
	r.closer = f
	r.path = path
	return r, nil
}

// NewWriterRecorder writes events to w.
func NewWriterRecorder(w io.Writer) *FileRecorder {
	return &FileRecorder{logger: zerolog.New(zerolog.SyncWriter(w))}
}

// Path returns the file being written, if any.
func (r *FileRecorder) Path() string {
	return r.path
}

// Record appends one event line.
func (r *FileRecorder) Record(ev Event) {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	line := r.logger.Log().
		Str("event", string(ev.Kind)).
		Float64("t", float64(at.UnixNano())/1e9)
	if ev.SessionID != "" {
		line = line.Str("sessionId", ev.SessionID)
	}

	switch ev.Kind {
	case Partial, Final:
		line = line.Str("text", ev.Text)
	case FirstPartial:
		line = line.Int64("latency_ms", ev.Latency.Milliseconds())
	case TimeToFinal:
		line = line.Int64("time_to_final_ms", ev.TimeToFinal.Milliseconds())
	}
	line.Send()
}

// Close closes the underlying file.
func (r *FileRecorder) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
