package mock

import (
	"context"
	"errors"
	"sync"
	"testing"

	"speech-session-service/internal/service/audio"
	"speech-session-service/internal/service/stt"
)

func loud(n int) audio.Frame {
	f := make(audio.Frame, n)
	for i := range f {
		f[i] = 8000
	}
	return f
}

func TestModel_NewEngine(t *testing.T) {
	m := New()
	e, err := m.NewEngine(context.Background(), 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e == nil {
		t.Fatal("expected non-nil engine")
	}
	if m.Provider() != "mock" {
		t.Errorf("expected provider 'mock', got %s", m.Provider())
	}
}

func TestModel_NewEngine_InvalidSampleRate(t *testing.T) {
	if _, err := New().NewEngine(context.Background(), 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestModel_CyclesUtterances(t *testing.T) {
	m := New(WithUtterances([]SimulatedUtterance{{Final: "a"}, {Final: "b"}}))

	var got []int
	for i := 0; i < 3; i++ {
		e, _ := m.NewEngine(context.Background(), 16000)
		got = append(got, e.(*Engine).index)
	}
	if got[0] != 0 || got[1] != 1 || got[2] != 0 {
		t.Errorf("expected utterance indices [0 1 0], got %v", got)
	}
}

func TestModel_ConcurrentNewEngine(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.NewEngine(context.Background(), 16000); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if m.next.Load() != 50 {
		t.Errorf("expected 50 engines handed out, got %d", m.next.Load())
	}
}

func TestEngine_RevealsWordsOnLoudFrames(t *testing.T) {
	m := New(WithUtterances([]SimulatedUtterance{{Final: "hello big world"}}), WithFramesPerWord(2))
	e, _ := m.NewEngine(context.Background(), 16000)

	if e.PartialText() != "" {
		t.Errorf("expected empty partial before audio, got %q", e.PartialText())
	}

	for i := 0; i < 2; i++ {
		if final, err := e.AcceptFrame(loud(320)); err != nil || final {
			t.Fatalf("frame %d: final=%v err=%v", i, final, err)
		}
	}
	if e.PartialText() != "hello" {
		t.Errorf("expected 'hello', got %q", e.PartialText())
	}

	// Quiet frames do not advance.
	for i := 0; i < 4; i++ {
		e.AcceptFrame(make(audio.Frame, 320))
	}
	if e.PartialText() != "hello" {
		t.Errorf("expected 'hello' after silence, got %q", e.PartialText())
	}

	for i := 0; i < 10; i++ {
		e.AcceptFrame(loud(320))
	}
	if e.PartialText() != "hello big world" {
		t.Errorf("expected full utterance, got %q", e.PartialText())
	}
}

func TestEngine_ForceFinal(t *testing.T) {
	m := New(WithUtterances([]SimulatedUtterance{{Final: "one two"}, {Final: "three"}}), WithFramesPerWord(1))
	e, _ := m.NewEngine(context.Background(), 16000)

	if got := e.ForceFinal(); got != "" {
		t.Errorf("expected empty final with no speech, got %q", got)
	}

	e.AcceptFrame(loud(320))
	if got := e.ForceFinal(); got != "one two" {
		t.Errorf("expected 'one two', got %q", got)
	}
	if e.PartialText() != "" {
		t.Errorf("expected partial reset after force, got %q", e.PartialText())
	}

	e.AcceptFrame(loud(320))
	if got := e.ForceFinal(); got != "three" {
		t.Errorf("expected next utterance 'three', got %q", got)
	}
}

func TestModel_FramesPerWordClamped(t *testing.T) {
	for _, n := range []int{0, -3} {
		m := New(WithUtterances([]SimulatedUtterance{{Final: "one two"}}), WithFramesPerWord(n))
		e, _ := m.NewEngine(context.Background(), 16000)

		e.AcceptFrame(loud(320))
		if got := e.PartialText(); got != "one" {
			t.Errorf("framesPerWord=%d: expected one word per loud frame, got %q", n, got)
		}
	}
}

func TestEngine_RejectsAfterClose(t *testing.T) {
	e, _ := New().NewEngine(context.Background(), 16000)
	e.Close()

	_, err := e.AcceptFrame(loud(320))
	if !errors.Is(err, stt.ErrFrameRejected) {
		t.Errorf("expected ErrFrameRejected, got %v", err)
	}
}

func TestEngine_RejectsEmptyFrame(t *testing.T) {
	e, _ := New().NewEngine(context.Background(), 16000)

	_, err := e.AcceptFrame(nil)
	if !errors.Is(err, stt.ErrFrameRejected) {
		t.Errorf("expected ErrFrameRejected, got %v", err)
	}
}

func TestScripted_Steps(t *testing.T) {
	boom := errors.New("boom")
	s := NewScripted(Partial("he"), Final("hello"), Fail(boom))

	if final, _ := s.AcceptFrame(nil); final || s.PartialText() != "he" {
		t.Errorf("step 1: final=%v partial=%q", final, s.PartialText())
	}
	if final, _ := s.AcceptFrame(nil); !final || s.FinalText() != "hello" {
		t.Errorf("step 2: final=%v text=%q", final, s.FinalText())
	}
	_, err := s.AcceptFrame(nil)
	if !errors.Is(err, stt.ErrFrameRejected) || !errors.Is(err, boom) {
		t.Errorf("step 3: expected wrapped rejection, got %v", err)
	}
	if final, err := s.AcceptFrame(nil); final || err != nil {
		t.Errorf("exhausted script: final=%v err=%v", final, err)
	}
	if s.Accepted != 4 {
		t.Errorf("expected 4 accepted frames, got %d", s.Accepted)
	}
}

func TestScripted_ForceFinal(t *testing.T) {
	tests := []struct {
		name   string
		forced *string
		want   string
	}{
		{"falls back to partial", nil, "he"},
		{"scripted text", ptr("hello"), "hello"},
		{"scripted empty", ptr(""), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScripted(Partial("he"))
			s.AcceptFrame(nil)
			if tt.forced != nil {
				s.SetForced(*tt.forced)
			}

			if got := s.ForceFinal(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if s.PartialText() != "" {
				t.Errorf("expected partial cleared, got %q", s.PartialText())
			}
			// One-shot: the next force sees the cleared partial.
			if got := s.ForceFinal(); got != "" {
				t.Errorf("expected empty second force, got %q", got)
			}
		})
	}
}

func ptr(s string) *string { return &s }

func TestScriptedModel_Exhausted(t *testing.T) {
	m := NewScriptedModel(NewScripted())
	if _, err := m.NewEngine(context.Background(), 16000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.NewEngine(context.Background(), 16000); err == nil {
		t.Error("expected error once engines are exhausted")
	}
}
