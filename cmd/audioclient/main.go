// Command audioclient streams a WAV file to the session service over
// WebSocket in real time and prints the transcripts it receives.
package main

import (
	"errors"
	"flag"
	"io"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"speech-session-service/internal/api/ws"
	"speech-session-service/internal/models"
	"speech-session-service/internal/observability/logging"
	"speech-session-service/internal/service/audio"
)

func main() {
	audioFile := flag.String("audio", "testdata/sample-16khz.wav", "Path to WAV file (16-bit mono PCM)")
	serverURL := flag.String("server", "ws://localhost:8000/ws", "Session service WebSocket URL")
	sampleRate := flag.Int("rate", 16000, "Expected sample rate in Hz")
	chunk := flag.Duration("chunk", 100*time.Millisecond, "Audio per message")
	tail := flag.Duration("tail", 1500*time.Millisecond, "Silence appended so the last utterance is finalized")
	binary := flag.Bool("binary", false, "Send raw PCM binary frames instead of JSON")
	verbose := flag.String("log-level", "info", "Log level (debug shows partials)")
	flag.Parse()

	logging.Init(logging.Config{Level: *verbose, Format: "console", Output: os.Stderr})

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audio file")
	}
	defer f.Close()

	format, err := audio.ReadWAVHeader(f)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read WAV header")
	}
	log.Info().
		Uint16("format", format.AudioFormat).
		Uint16("channels", format.Channels).
		Uint32("sampleRate", format.SampleRate).
		Uint16("bitsPerSample", format.BitsPerSample).
		Msg("WAV file")
	if err := format.Validate(*sampleRate); err != nil {
		log.Fatal().Err(err).Msg("Unsupported WAV file")
	}

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatal().Err(err).Str("server", *serverURL).Msg("Failed to connect")
	}
	defer conn.Close()
	log.Info().Str("server", *serverURL).Msg("Connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg models.TranscriptMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Info().Err(err).Msg("Connection closed")
				}
				return
			}
			switch msg.Type {
			case models.TypeFinal:
				log.Info().Str("text", msg.Text).Msg("FINAL")
			default:
				log.Debug().Str("text", msg.Text).Msg("partial")
			}
		}
	}()

	chunkBytes := audio.FrameSize(*sampleRate, *chunk) * 2
	buf := make([]byte, chunkBytes)
	var sent int64
	start := time.Now()

	send := func(pcm []byte) error {
		if *binary {
			return conn.WriteMessage(websocket.BinaryMessage, pcm)
		}
		msg, err := ws.EncodeAudio(pcm)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, msg)
	}

	for {
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			if err := send(buf[:n]); err != nil {
				log.Fatal().Err(err).Msg("Failed to send audio")
			}
			sent += int64(n)
			time.Sleep(*chunk)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read audio")
		}
	}

	silence := make([]byte, chunkBytes)
	for d := time.Duration(0); d < *tail; d += *chunk {
		if err := send(silence); err != nil {
			log.Fatal().Err(err).Msg("Failed to send silence")
		}
		time.Sleep(*chunk)
	}

	log.Info().Int64("bytes", sent).Dur("elapsed", time.Since(start)).Msg("Finished streaming, closing")
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
