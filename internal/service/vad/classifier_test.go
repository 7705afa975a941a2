package vad

import (
	"testing"
	"time"

	"speech-session-service/internal/service/audio"
)

func tone(n int, amplitude int16) audio.Frame {
	f := make(audio.Frame, n)
	for i := range f {
		if i%2 == 0 {
			f[i] = amplitude
		} else {
			f[i] = -amplitude
		}
	}
	return f
}

func TestNewEnergy_Validation(t *testing.T) {
	tests := []struct {
		name           string
		aggressiveness int
		rate           int
		duration       time.Duration
		wantErr        bool
	}{
		{"valid", 2, 16000, 20 * time.Millisecond, false},
		{"aggressiveness low", -1, 16000, 20 * time.Millisecond, true},
		{"aggressiveness high", 4, 16000, 20 * time.Millisecond, true},
		{"bad duration", 2, 16000, 25 * time.Millisecond, true},
		{"bad rate", 2, 0, 20 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEnergy(tt.aggressiveness, tt.rate, tt.duration)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEnergy() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnergy_IsSpeech(t *testing.T) {
	e, err := NewEnergy(2, 16000, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.IsSpeech(tone(320, 0), 16000) {
		t.Error("silence classified as speech")
	}
	if e.IsSpeech(tone(320, 100), 16000) {
		t.Error("low noise classified as speech")
	}
	if !e.IsSpeech(tone(320, 8000), 16000) {
		t.Error("loud frame not classified as speech")
	}
	if e.IsSpeech(tone(319, 8000), 16000) {
		t.Error("wrong-size frame classified as speech")
	}
}

func TestEnergy_AggressivenessOrdering(t *testing.T) {
	// Amplitude ~0.01 normalized: speech at level 1, not at level 3.
	frame := tone(160, 330)

	lenient, _ := NewEnergy(1, 16000, 10*time.Millisecond)
	strict, _ := NewEnergy(3, 16000, 10*time.Millisecond)

	if !lenient.IsSpeech(frame, 16000) {
		t.Error("expected lenient classifier to accept frame")
	}
	if strict.IsSpeech(frame, 16000) {
		t.Error("expected strict classifier to reject frame")
	}
}

func TestClassifierFunc(t *testing.T) {
	var c Classifier = ClassifierFunc(func(f audio.Frame, _ int) bool { return len(f) > 0 })
	if !c.IsSpeech(audio.Frame{1}, 16000) {
		t.Error("expected func classifier to be called")
	}
}
