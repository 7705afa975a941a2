// Package stt defines the transcription engine contract consumed by a
// streaming session.
package stt

import (
	"context"
	"errors"

	"speech-session-service/internal/service/audio"
)

// ErrFrameRejected is wrapped by engines when a frame cannot be accepted.
// After it is returned the engine's internal state is undefined and the
// instance must not be used again.
var ErrFrameRejected = errors.New("engine rejected frame")

// Engine is a stateful, single-session recognizer. It is not safe for
// concurrent use.
type Engine interface {
	// AcceptFrame feeds one frame and reports whether a final hypothesis is
	// ready. A non-nil error is fatal for the session.
	AcceptFrame(frame audio.Frame) (finalReady bool, err error)

	// PartialText returns the current in-progress hypothesis.
	PartialText() string

	// FinalText returns the final hypothesis. Only valid right after
	// AcceptFrame reported finalReady.
	FinalText() string

	// ForceFinal flushes the engine and returns its best hypothesis,
	// resetting its utterance state.
	ForceFinal() string

	// Close releases the instance.
	Close() error
}

// Model is the large shared resource engines are created from. It must be
// safe for concurrent NewEngine calls from many sessions.
type Model interface {
	// NewEngine creates an engine instance owned by one session.
	NewEngine(ctx context.Context, sampleRate int) (Engine, error)

	// Provider names the backing implementation (mock, google).
	Provider() string

	// Close releases the model.
	Close() error
}
