package viewer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"speech-session-service/internal/models"
)

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Broadcaster receives decoded transcripts.
type Broadcaster interface {
	Broadcast(ev models.TranscriptFinal)
}

// NewReader reads topic partition 0 without a consumer group, starting at
// messages published within the last lookback.
func NewReader(ctx context.Context, brokers []string, topic string, lookback time.Duration) (*kafka.Reader, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	if err := r.SetOffsetAt(ctx, time.Now().Add(-lookback)); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// Consume relays messages from r to b until ctx is done. Partial and final
// payloads both decode into models.TranscriptFinal; EventType tells them
// apart. Undecodable messages are skipped.
func Consume(ctx context.Context, r Reader, b Broadcaster, logger zerolog.Logger) {
	defer r.Close()

	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Err(err).Msg("Kafka read error")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		var ev models.TranscriptFinal
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			logger.Warn().Err(err).Str("topic", msg.Topic).Msg("Skipping undecodable transcript")
			continue
		}

		logger.Debug().
			Str("eventType", ev.EventType).
			Str("sessionId", ev.SessionID).
			Str("utteranceId", ev.UtteranceID).
			Msg("Received transcript")
		b.Broadcast(ev)
	}
}
