package mock

import (
	"context"
	"fmt"
	"sync"

	"speech-session-service/internal/service/audio"
	"speech-session-service/internal/service/stt"
)

// Step is the scripted engine output for one frame.
type Step struct {
	Partial string
	Final   string
	IsFinal bool
	Err     error
}

// Partial returns a step that exposes text as the partial hypothesis.
func Partial(text string) Step { return Step{Partial: text} }

// Final returns a step that reports a ready final with text.
func Final(text string) Step { return Step{Final: text, IsFinal: true} }

// Fail returns a step that rejects the frame.
func Fail(err error) Step { return Step{Err: err} }

// Scripted replays a fixed sequence of steps, one per accepted frame. After
// the script is exhausted the last partial is repeated.
type Scripted struct {
	steps    []Step
	pos      int
	partial  string
	final    string
	forced   *string
	Accepted int
	Forced   int
	Closed   bool
}

// NewScripted creates a scripted engine.
func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

// SetForced sets the text returned by the next ForceFinal, replacing the
// current partial. An empty text scripts an empty forced final.
func (s *Scripted) SetForced(text string) {
	s.forced = &text
}

// AcceptFrame applies the next step.
func (s *Scripted) AcceptFrame(frame audio.Frame) (bool, error) {
	s.Accepted++
	if s.pos >= len(s.steps) {
		return false, nil
	}
	step := s.steps[s.pos]
	s.pos++

	if step.Err != nil {
		return false, fmt.Errorf("%w: %w", stt.ErrFrameRejected, step.Err)
	}
	if step.IsFinal {
		s.final = step.Final
		s.partial = ""
		return true, nil
	}
	s.partial = step.Partial
	return false, nil
}

// PartialText returns the current scripted partial.
func (s *Scripted) PartialText() string { return s.partial }

// FinalText returns the last scripted final.
func (s *Scripted) FinalText() string { return s.final }

// ForceFinal returns the text from SetForced, or else the current partial,
// and clears both.
func (s *Scripted) ForceFinal() string {
	s.Forced++
	text := s.partial
	if s.forced != nil {
		text = *s.forced
	}
	s.forced = nil
	s.partial = ""
	return text
}

// Close records that the engine was closed.
func (s *Scripted) Close() error {
	s.Closed = true
	return nil
}

// ScriptedModel hands out one pre-built scripted engine per NewEngine call.
type ScriptedModel struct {
	mu      sync.Mutex
	engines []*Scripted
	next    int
}

// NewScriptedModel creates a model that returns the given engines in order.
func NewScriptedModel(engines ...*Scripted) *ScriptedModel {
	return &ScriptedModel{engines: engines}
}

// NewEngine returns the next scripted engine.
func (m *ScriptedModel) NewEngine(_ context.Context, _ int) (stt.Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next >= len(m.engines) {
		return nil, fmt.Errorf("scripted model exhausted after %d engines", len(m.engines))
	}
	e := m.engines[m.next]
	m.next++
	return e, nil
}

// Provider returns "scripted".
func (m *ScriptedModel) Provider() string { return "scripted" }

// Close is a no-op.
func (m *ScriptedModel) Close() error { return nil }
