// Package segment provides utterance ID generation and the utterance
// lifecycle state machine.
package segment

import (
	"errors"
	"fmt"
	"time"
)

// State represents whether an utterance is in flight.
type State int

const (
	// StateIdle - no unconfirmed speech since the last final.
	StateIdle State = iota
	// StateUtteranceOpen - at least one partial emitted since the last final.
	StateUtteranceOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateUtteranceOpen:
		return "UTTERANCE_OPEN"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Errors for invalid state transitions.
var (
	ErrUtteranceOpen = errors.New("utterance already open")
	ErrNoUtterance   = errors.New("no utterance open")
)

// Lifecycle tracks the utterance state of one session.
// It is owned by a single session goroutine and is not safe for concurrent use.
//
// State transitions:
//
//	IDLE ──Open()──→ UTTERANCE_OPEN ──Close()──→ IDLE
//
// Rules:
//   - The start time and ID exist exactly while UTTERANCE_OPEN.
//   - Open in UTTERANCE_OPEN and Close in IDLE are rejected.
type Lifecycle struct {
	state     State
	id        string
	startedAt time.Time
}

// NewLifecycle creates a lifecycle in IDLE state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateIdle}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return l.state
}

// IsOpen reports whether an utterance is in flight.
func (l *Lifecycle) IsOpen() bool {
	return l.state == StateUtteranceOpen
}

// ID returns the open utterance ID, or "" when idle.
func (l *Lifecycle) ID() string {
	return l.id
}

// StartedAt returns the open utterance's start time.
func (l *Lifecycle) StartedAt() (time.Time, bool) {
	if l.state != StateUtteranceOpen {
		return time.Time{}, false
	}
	return l.startedAt, true
}

// Open starts an utterance.
func (l *Lifecycle) Open(id string, at time.Time) error {
	if l.state == StateUtteranceOpen {
		return ErrUtteranceOpen
	}
	l.state = StateUtteranceOpen
	l.id = id
	l.startedAt = at
	return nil
}

// Close ends the open utterance and returns how long it was open at the
// given time.
func (l *Lifecycle) Close(at time.Time) (time.Duration, error) {
	if l.state != StateUtteranceOpen {
		return 0, ErrNoUtterance
	}
	elapsed := at.Sub(l.startedAt)
	l.Reset()
	return elapsed, nil
}

// Reset returns to IDLE from any state. Idempotent.
func (l *Lifecycle) Reset() {
	l.state = StateIdle
	l.id = ""
	l.startedAt = time.Time{}
}
