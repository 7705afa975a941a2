package session

import (
	"context"
	"time"
)

// Kind tags an outward event.
type Kind int

const (
	KindPartial Kind = iota
	KindFinal
)

func (k Kind) String() string {
	if k == KindFinal {
		return "final"
	}
	return "partial"
}

// Event is a transcript decision sent to the client.
type Event struct {
	Kind        Kind
	Text        string
	Timestamp   time.Time
	UtteranceID string
	Forced      bool          // final produced by endpointing rather than the engine
	TimeToFinal time.Duration // finals closing an open utterance only
}

// Sink delivers outward events to the client in emission order. An error
// means the client is unreachable.
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

// Send calls f.
func (f SinkFunc) Send(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Source yields raw PCM16LE chunks from the client. It returns io.EOF when
// the client disconnects cleanly. Malformed messages are skipped by the
// source, not reported.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
}

// Publisher fans transcripts out to downstream consumers. Failures are
// logged and never end the session.
type Publisher interface {
	PublishPartial(ctx context.Context, key string, event any) error
	PublishFinal(ctx context.Context, key string, event any) error
}
