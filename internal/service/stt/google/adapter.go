// Package google provides a transcription engine backed by Google Cloud
// Speech-to-Text streaming recognition.
package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/encoding/protojson"

	"speech-session-service/internal/service/audio"
	"speech-session-service/internal/service/stt"
)

// Config holds Google STT configuration.
type Config struct {
	LanguageCode   string
	Model          string
	InterimResults bool
}

// DefaultConfig returns the default streaming configuration.
func DefaultConfig() Config {
	return Config{
		LanguageCode:   "en-US",
		InterimResults: true,
	}
}

// Model owns the shared Speech client. The client is safe for concurrent
// use, so each session opens its own stream from it.
type Model struct {
	client *speech.Client
	cfg    Config
}

// New creates a Google STT model.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Model, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &Model{client: c, cfg: cfg}, nil
}

// Provider returns "google".
func (m *Model) Provider() string { return "google" }

// Close closes the shared client.
func (m *Model) Close() error {
	return m.client.Close()
}

// NewEngine opens a streaming recognition session and sends the initial config.
func (m *Model) NewEngine(ctx context.Context, sampleRate int) (stt.Engine, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := m.client.StreamingRecognize(streamCtx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open recognize stream: %w", err)
	}

	cfg := streamingConfig(m.cfg, sampleRate)
	logger := log.With().Str("component", "google-stt").Logger()
	logger.Debug().Str("config", protojson.Format(cfg)).Msg("Opening streaming recognition")

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{StreamingConfig: cfg},
	}); err != nil {
		cancel()
		return nil, fmt.Errorf("send streaming config: %w", err)
	}

	e := newEngine(logger)
	e.stream = stream
	e.cancel = cancel
	go e.listen()
	return e, nil
}

func streamingConfig(cfg Config, sampleRate int) *speechpb.StreamingRecognitionConfig {
	return &speechpb.StreamingRecognitionConfig{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(sampleRate),
			LanguageCode:    cfg.LanguageCode,
			Model:           cfg.Model,
		},
		InterimResults: cfg.InterimResults,
	}
}

// Engine adapts the asynchronous recognize stream to the frame-synchronous
// stt.Engine contract. Responses are buffered by a listener goroutine and
// surfaced on the next AcceptFrame.
type Engine struct {
	stream speechpb.Speech_StreamingRecognizeClient
	cancel context.CancelFunc
	logger zerolog.Logger
	done   chan struct{}

	mu      sync.Mutex
	partial string
	finals  []string
	final   string
	// The stream finalizes a forced hypothesis on its own later; that
	// duplicate must not surface as a second final.
	dropNextFinal bool
	err           error
}

func newEngine(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger, done: make(chan struct{})}
}

// AcceptFrame sends the frame and reports whether a final arrived.
func (e *Engine) AcceptFrame(frame audio.Frame) (bool, error) {
	e.mu.Lock()
	err := e.err
	e.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("%w: %w", stt.ErrFrameRejected, err)
	}

	if err := e.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: frame.Bytes(),
		},
	}); err != nil {
		return false, fmt.Errorf("%w: %w", stt.ErrFrameRejected, err)
	}

	return e.popFinal(), nil
}

func (e *Engine) popFinal() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.finals) == 0 {
		return false
	}
	e.final = e.finals[0]
	e.finals = e.finals[1:]
	return true
}

// PartialText returns the latest interim hypothesis.
func (e *Engine) PartialText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.partial
}

// FinalText returns the final popped by the last AcceptFrame.
func (e *Engine) FinalText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.final
}

// ForceFinal returns any buffered finals followed by the current partial and
// clears them.
func (e *Engine) ForceFinal() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	parts := append([]string(nil), e.finals...)
	if e.partial != "" {
		parts = append(parts, e.partial)
		e.dropNextFinal = true
	}
	e.finals = nil
	e.partial = ""
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Close ends the stream and waits for the listener to exit.
func (e *Engine) Close() error {
	err := e.stream.CloseSend()
	e.cancel()
	<-e.done
	return err
}

func (e *Engine) listen() {
	defer close(e.done)
	for {
		resp, err := e.stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				e.logger.Error().Err(err).Msg("Streaming recognition failed")
			}
			e.mu.Lock()
			if e.err == nil {
				e.err = err
			}
			e.mu.Unlock()
			return
		}
		e.apply(resp)
	}
}

func (e *Engine) apply(resp *speechpb.StreamingRecognizeResponse) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var interim []string
	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		text := strings.TrimSpace(r.GetAlternatives()[0].GetTranscript())
		if r.GetIsFinal() {
			if e.dropNextFinal {
				e.dropNextFinal = false
				continue
			}
			if text != "" {
				e.finals = append(e.finals, text)
			}
			e.partial = ""
			continue
		}
		if text != "" {
			interim = append(interim, text)
		}
	}
	if len(interim) > 0 {
		e.partial = strings.Join(interim, " ")
	}
}
