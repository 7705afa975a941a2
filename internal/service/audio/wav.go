package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// WAVHeaderSize is the length of a canonical PCM WAV header.
const WAVHeaderSize = 44

// ErrNotWAV is returned for input that does not start with a RIFF/WAVE header.
var ErrNotWAV = errors.New("not a valid WAV file")

// WAVFormat describes the audio stored in a WAV file.
type WAVFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// ReadWAVHeader consumes and parses a canonical 44-byte PCM WAV header.
func ReadWAVHeader(r io.Reader) (WAVFormat, error) {
	header := make([]byte, WAVHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return WAVFormat{}, fmt.Errorf("read WAV header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return WAVFormat{}, ErrNotWAV
	}
	return WAVFormat{
		AudioFormat:   binary.LittleEndian.Uint16(header[20:22]),
		Channels:      binary.LittleEndian.Uint16(header[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(header[24:28]),
		BitsPerSample: binary.LittleEndian.Uint16(header[34:36]),
	}, nil
}

// Validate checks the format is mono 16-bit PCM at the expected rate.
func (f WAVFormat) Validate(sampleRate int) error {
	if f.AudioFormat != 1 {
		return fmt.Errorf("only PCM supported, got format %d", f.AudioFormat)
	}
	if f.Channels != 1 {
		return fmt.Errorf("only mono supported, got %d channels", f.Channels)
	}
	if f.BitsPerSample != 16 {
		return fmt.Errorf("only 16-bit samples supported, got %d", f.BitsPerSample)
	}
	if int(f.SampleRate) != sampleRate {
		return fmt.Errorf("sample rate is %d Hz, expected %d Hz", f.SampleRate, sampleRate)
	}
	return nil
}
