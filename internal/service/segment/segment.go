package segment

import (
	"strconv"
	"sync/atomic"
)

// UtteranceIDs numbers the utterances of one session. IDs take the form
// "<sessionID>-utt-<n>" with n starting at 1. Safe for concurrent use.
type UtteranceIDs struct {
	issued atomic.Uint64
}

// NewUtteranceIDs returns a counter that has issued no IDs.
func NewUtteranceIDs() *UtteranceIDs {
	return &UtteranceIDs{}
}

// Next issues the next utterance ID for sessionID.
func (u *UtteranceIDs) Next(sessionID string) string {
	return sessionID + "-utt-" + strconv.FormatUint(u.issued.Add(1), 10)
}

// Issued reports how many IDs have been handed out.
func (u *UtteranceIDs) Issued() uint64 {
	return u.issued.Load()
}
