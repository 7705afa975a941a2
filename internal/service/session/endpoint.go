package session

import "time"

// EndpointTracker accumulates trailing silence and decides when the open
// utterance has ended.
type EndpointTracker struct {
	frame     time.Duration
	threshold time.Duration
	silence   time.Duration
}

// NewEndpointTracker creates a tracker for frames of the given duration that
// fires once silence reaches threshold.
func NewEndpointTracker(frame, threshold time.Duration) *EndpointTracker {
	return &EndpointTracker{frame: frame, threshold: threshold}
}

// Observe accounts one classified frame.
func (t *EndpointTracker) Observe(voiced bool) {
	if voiced {
		t.silence = 0
		return
	}
	t.silence += t.frame
}

// Silence returns the accumulated trailing silence.
func (t *EndpointTracker) Silence() time.Duration {
	return t.silence
}

// ShouldEndpoint reports whether an open utterance has been silent long
// enough and its partial text has stopped changing.
func (t *EndpointTracker) ShouldEndpoint(utteranceOpen bool, recent *History) bool {
	return utteranceOpen && t.silence >= t.threshold && recent.Stable()
}

// Reset clears the silence accumulator.
func (t *EndpointTracker) Reset() {
	t.silence = 0
}
