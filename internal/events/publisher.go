// Package events publishes session transcripts to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"speech-session-service/internal/observability/logging"
	"speech-session-service/internal/observability/metrics"
	"speech-session-service/internal/schema"
)

// ErrInvalidEvent wraps schema violations; such events are never written.
var ErrInvalidEvent = errors.New("invalid transcript event")

// Publisher writes partial and final transcripts to their own topics. When
// disabled it still validates and logs each payload.
type Publisher struct {
	partial   topicWriter
	final     topicWriter
	principal string
	enabled   bool
	validator *schema.Validator
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

type topicWriter struct {
	topic     string
	eventType string
	writer    *kafka.Writer // nil in log-only mode
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers      []string
	TopicPartial string
	TopicFinal   string
	Principal    string
	Enabled      bool
	Metrics      *metrics.Metrics // defaults to metrics.DefaultMetrics
}

// New creates a publisher. Without Enabled and at least one broker it runs
// in log-only mode.
func New(cfg *Config) *Publisher {
	if cfg == nil {
		cfg = &Config{}
	}
	p := &Publisher{
		partial:   topicWriter{topic: cfg.TopicPartial, eventType: "partial"},
		final:     topicWriter{topic: cfg.TopicFinal, eventType: "final"},
		principal: cfg.Principal,
		validator: schema.New(),
		metrics:   cfg.Metrics,
		logger:    logging.WithComponent("kafka-publisher"),
	}
	if p.metrics == nil {
		p.metrics = metrics.DefaultMetrics
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		p.logger.Info().Msg("Kafka disabled, using log-only mode")
		return p
	}

	// Longer dial timeout for DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}
	transport := &kafka.Transport{Dial: dialer.DialFunc}

	p.partial.writer = newWriter(cfg.Brokers, cfg.TopicPartial, transport)
	p.final.writer = newWriter(cfg.Brokers, cfg.TopicFinal, transport)
	p.enabled = true

	p.logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicPartial", cfg.TopicPartial).
		Str("topicFinal", cfg.TopicFinal).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")
	return p
}

func newWriter(brokers []string, topic string, transport kafka.RoundTripper) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // keep a session's events on one partition
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// Enabled reports whether messages are written to Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishPartial publishes a models.TranscriptPartial keyed by session.
func (p *Publisher) PublishPartial(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.partial, key, event)
}

// PublishFinal publishes a models.TranscriptFinal keyed by session.
func (p *Publisher) PublishFinal(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.final, key, event)
}

func (p *Publisher) publish(ctx context.Context, tw topicWriter, key string, event any) error {
	start := time.Now()

	if err := p.validator.Validate(event); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", tw.eventType, err)
	}

	logger := p.logger.With().Str("topic", tw.topic).Str("key", key).Logger()
	logger.Debug().RawJSON("payload", payload).Msg("Publishing transcript")

	if !p.enabled || tw.writer == nil {
		p.metrics.RecordKafkaPublish(tw.topic, tw.eventType, nil, time.Since(start).Seconds())
		return nil
	}

	err = tw.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(tw.eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	})
	p.metrics.RecordKafkaPublish(tw.topic, tw.eventType, err, time.Since(start).Seconds())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to write to Kafka")
		return err
	}
	return nil
}

// Close flushes and closes both writers.
func (p *Publisher) Close() error {
	var errs []error
	for _, tw := range []topicWriter{p.partial, p.final} {
		if tw.writer == nil {
			continue
		}
		if err := tw.writer.Close(); err != nil {
			p.logger.Error().Err(err).Str("topic", tw.topic).Msg("Error closing writer")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
