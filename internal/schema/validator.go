// Package schema validates outbound messages before they leave the process.
package schema

import (
	"errors"
	"fmt"

	"speech-session-service/internal/models"
)

var (
	ErrEmptyText   = errors.New("text is empty")
	ErrUnknownType = errors.New("unknown message type")
	ErrMissingID   = errors.New("session id is missing")
	ErrNoTimestamp = errors.New("timestamp is missing")
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks the required fields of known message types. Unknown
// values are rejected.
func (v *Validator) Validate(event any) error {
	switch ev := event.(type) {
	case models.TranscriptMessage:
		if ev.Type != models.TypePartial && ev.Type != models.TypeFinal {
			return fmt.Errorf("%w: %q", ErrUnknownType, ev.Type)
		}
		if ev.Text == "" {
			return ErrEmptyText
		}
		if ev.TS <= 0 {
			return ErrNoTimestamp
		}
	case models.TranscriptPartial:
		return checkTranscript(ev.SessionID, ev.Text, ev.Timestamp)
	case models.TranscriptFinal:
		return checkTranscript(ev.SessionID, ev.Text, ev.Timestamp)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownType, event)
	}
	return nil
}

func checkTranscript(sessionID, text string, ts int64) error {
	if sessionID == "" {
		return ErrMissingID
	}
	if text == "" {
		return ErrEmptyText
	}
	if ts <= 0 {
		return ErrNoTimestamp
	}
	return nil
}
