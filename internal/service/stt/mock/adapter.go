// Package mock provides transcription engines that need no model files or
// cloud credentials: a scripted engine for tests and a simulated engine that
// reveals canned utterances word by word while audio is loud enough.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"speech-session-service/internal/service/audio"
	"speech-session-service/internal/service/stt"
)

// SimulatedUtterance is a canned utterance revealed progressively.
type SimulatedUtterance struct {
	Final string
}

// DefaultUtterances provides sample utterances for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{Final: "i want to cancel my subscription"},
	{Final: "yes please go ahead"},
	{Final: "can you help me with my account"},
	{Final: "i have been waiting for over an hour"},
	{Final: "thank you very much"},
}

// Model creates simulated engines. It is read-only after construction and
// safe for concurrent use.
type Model struct {
	utterances    []SimulatedUtterance
	framesPerWord int
	minLevel      float64
	next          atomic.Uint64
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithUtterances replaces the canned utterances.
func WithUtterances(u []SimulatedUtterance) ModelOption {
	return func(m *Model) { m.utterances = u }
}

// WithFramesPerWord sets how many loud frames reveal one more word. Values
// below one are treated as one.
func WithFramesPerWord(n int) ModelOption {
	return func(m *Model) { m.framesPerWord = n }
}

// WithMinLevel sets the normalized RMS level a frame needs to count.
func WithMinLevel(level float64) ModelOption {
	return func(m *Model) { m.minLevel = level }
}

// New creates a simulated model.
func New(opts ...ModelOption) *Model {
	m := &Model{
		utterances:    DefaultUtterances,
		framesPerWord: 10,
		minLevel:      0.01,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.framesPerWord = max(m.framesPerWord, 1)
	return m
}

// NewEngine creates a simulated engine starting at the next canned utterance.
func (m *Model) NewEngine(_ context.Context, sampleRate int) (stt.Engine, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if len(m.utterances) == 0 {
		return nil, fmt.Errorf("mock model has no utterances")
	}
	start := int(m.next.Add(1)-1) % len(m.utterances)
	return &Engine{model: m, index: start}, nil
}

// Provider returns "mock".
func (m *Model) Provider() string { return "mock" }

// Close is a no-op.
func (m *Model) Close() error { return nil }

// Engine reveals one more word of the current utterance every framesPerWord
// loud frames. It never finalizes by itself, so finals come from ForceFinal.
type Engine struct {
	model      *Model
	index      int
	loudFrames int
	closed     bool
}

// AcceptFrame counts loud frames. It never reports a final.
func (e *Engine) AcceptFrame(frame audio.Frame) (bool, error) {
	if e.closed {
		return false, fmt.Errorf("%w: engine closed", stt.ErrFrameRejected)
	}
	if len(frame) == 0 {
		return false, fmt.Errorf("%w: empty frame", stt.ErrFrameRejected)
	}
	if frame.RMS() >= e.model.minLevel {
		e.loudFrames++
	}
	return false, nil
}

// PartialText returns the words revealed so far.
func (e *Engine) PartialText() string {
	words := strings.Fields(e.model.utterances[e.index].Final)
	n := e.loudFrames / e.model.framesPerWord
	if n > len(words) {
		n = len(words)
	}
	return strings.Join(words[:n], " ")
}

// FinalText is never valid for the simulated engine.
func (e *Engine) FinalText() string { return "" }

// ForceFinal returns the full utterance if any word was revealed and moves to
// the next utterance.
func (e *Engine) ForceFinal() string {
	text := ""
	if e.PartialText() != "" {
		text = e.model.utterances[e.index].Final
		e.index = (e.index + 1) % len(e.model.utterances)
	}
	e.loudFrames = 0
	return text
}

// Close marks the engine unusable.
func (e *Engine) Close() error {
	e.closed = true
	return nil
}
