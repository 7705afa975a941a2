// Package ws serves streaming transcription sessions over WebSocket.
package ws

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"speech-session-service/internal/models"
)

var (
	ErrMalformedMessage   = errors.New("malformed client message")
	ErrUnsupportedMessage = errors.New("unsupported client message")
)

// DecodeAudio extracts PCM16LE bytes from a client message. Text messages
// carry JSON {"type":"audio","pcm16le":"<base64>"}; binary messages are raw
// PCM.
func DecodeAudio(messageType int, data []byte) ([]byte, error) {
	switch messageType {
	case websocket.BinaryMessage:
		return data, nil
	case websocket.TextMessage:
	default:
		return nil, fmt.Errorf("%w: frame type %d", ErrUnsupportedMessage, messageType)
	}

	var msg models.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if msg.Type != models.TypeAudio {
		return nil, fmt.Errorf("%w: type %q", ErrUnsupportedMessage, msg.Type)
	}
	pcm, err := base64.StdEncoding.DecodeString(msg.PCM16LE)
	if err != nil {
		return nil, fmt.Errorf("%w: pcm16le: %w", ErrMalformedMessage, err)
	}
	return pcm, nil
}

// EncodeAudio builds the JSON text message for a PCM16LE chunk.
func EncodeAudio(pcm []byte) ([]byte, error) {
	return json.Marshal(models.ClientMessage{
		Type:    models.TypeAudio,
		PCM16LE: base64.StdEncoding.EncodeToString(pcm),
	})
}

func dropReason(err error) string {
	if errors.Is(err, ErrUnsupportedMessage) {
		return "unsupported"
	}
	return "malformed"
}
