// Package models defines the messages exchanged with clients and the
// transcript events published downstream.
package models

// Message types on the client connection.
const (
	TypeAudio   = "audio"
	TypePartial = "partial"
	TypeFinal   = "final"
)

// Event types on the Kafka topics.
const (
	EventTypePartial = "session.transcript.partial"
	EventTypeFinal   = "session.transcript.final"
)

// ClientMessage is a JSON text message sent by the client.
type ClientMessage struct {
	Type    string `json:"type"`
	PCM16LE string `json:"pcm16le,omitempty"` // base64 little-endian PCM16
}

// TranscriptMessage is sent to the client for every partial and final.
type TranscriptMessage struct {
	Type string  `json:"type"`
	Text string  `json:"text"`
	TS   float64 `json:"ts"` // unix seconds
}

// TranscriptPartial represents an interim/partial transcript result.
type TranscriptPartial struct {
	EventType   string `json:"eventType"`
	SessionID   string `json:"sessionId"`
	UtteranceID string `json:"utteranceId"`
	Timestamp   int64  `json:"timestamp"`
	Text        string `json:"text"`
}

// TranscriptFinal represents a confirmed transcript for one utterance.
type TranscriptFinal struct {
	EventType     string `json:"eventType"`
	SessionID     string `json:"sessionId"`
	UtteranceID   string `json:"utteranceId,omitempty"`
	Timestamp     int64  `json:"timestamp"`
	Text          string `json:"text"`
	Forced        bool   `json:"forced"`
	TimeToFinalMs int64  `json:"timeToFinalMs,omitempty"`
}
