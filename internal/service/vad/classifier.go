// Package vad classifies fixed-size audio frames as speech or non-speech.
package vad

import (
	"fmt"
	"time"

	"speech-session-service/internal/service/audio"
)

// Classifier reports whether a single fixed-size frame contains speech.
// Implementations must only be called with frames of the size implied by
// the sample rate and frame duration they were created for.
type Classifier interface {
	IsSpeech(frame audio.Frame, sampleRate int) bool
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(frame audio.Frame, sampleRate int) bool

// IsSpeech calls f.
func (f ClassifierFunc) IsSpeech(frame audio.Frame, sampleRate int) bool {
	return f(frame, sampleRate)
}

// Normalized RMS thresholds per aggressiveness level. Higher levels need
// louder frames before calling them speech.
var thresholds = [4]float64{0.004, 0.008, 0.015, 0.025}

// Energy is a stateless RMS energy classifier.
type Energy struct {
	threshold float64
	frameSize int
}

// NewEnergy creates an energy classifier. Aggressiveness ranges 0..3 and
// frame duration must be 10, 20 or 30 ms.
func NewEnergy(aggressiveness, sampleRate int, frameDuration time.Duration) (*Energy, error) {
	if aggressiveness < 0 || aggressiveness >= len(thresholds) {
		return nil, fmt.Errorf("aggressiveness must be 0..3, got %d", aggressiveness)
	}
	switch frameDuration {
	case 10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond:
	default:
		return nil, fmt.Errorf("frame duration must be 10, 20 or 30 ms, got %v", frameDuration)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	return &Energy{
		threshold: thresholds[aggressiveness],
		frameSize: audio.FrameSize(sampleRate, frameDuration),
	}, nil
}

// IsSpeech reports whether the frame's RMS level reaches the threshold.
// Frames of the wrong size are never speech.
func (e *Energy) IsSpeech(frame audio.Frame, sampleRate int) bool {
	if len(frame) != e.frameSize {
		return false
	}
	return frame.RMS() >= e.threshold
}

// Threshold returns the normalized RMS threshold in use.
func (e *Energy) Threshold() float64 {
	return e.threshold
}
