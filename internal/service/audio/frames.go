// Package audio splits raw PCM16LE audio into the fixed-size frames that the
// voice-activity classifier and the transcription engine consume.
package audio

import (
	"encoding/binary"
	"iter"
	"math"
	"time"
)

// Frame is one fixed-duration block of signed 16-bit mono samples.
// Frames handed out by Split share memory with the source buffer and must be
// treated as read-only.
type Frame []int16

// Bytes encodes the frame as little-endian PCM16.
func (f Frame) Bytes() []byte {
	out := make([]byte, 2*len(f))
	for i, s := range f {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// RMS returns the root-mean-square level of the frame normalized to [0, 1].
func (f Frame) RMS() float64 {
	if len(f) == 0 {
		return 0
	}
	var sum float64
	for _, s := range f {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(f)))
}

// FrameSize returns the number of samples in one frame.
func FrameSize(sampleRate int, frameDuration time.Duration) int {
	return int(int64(sampleRate) * int64(frameDuration) / int64(time.Second))
}

// DecodePCM16LE converts little-endian PCM16 bytes to samples. A trailing odd
// byte is ignored.
func DecodePCM16LE(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

// Split yields consecutive frames of exactly size samples. A trailing
// remainder shorter than one frame is dropped. The sequence can be ranged
// over any number of times.
func Split(samples []int16, size int) iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		if size <= 0 {
			return
		}
		for i := 0; i+size <= len(samples); i += size {
			if !yield(Frame(samples[i : i+size : i+size])) {
				return
			}
		}
	}
}

// Remainder returns the samples Split would drop.
func Remainder(samples []int16, size int) []int16 {
	if size <= 0 {
		return nil
	}
	return samples[len(samples)-len(samples)%size:]
}

// Segmenter splits successive chunks into frames. With carry enabled the
// trailing partial frame of one chunk is prepended to the next chunk instead
// of being discarded.
type Segmenter struct {
	size    int
	carry   bool
	pending []int16
}

// NewSegmenter creates a Segmenter for the given frame size in samples.
func NewSegmenter(size int, carry bool) *Segmenter {
	return &Segmenter{size: size, carry: carry}
}

// Size returns the frame size in samples.
func (s *Segmenter) Size() int {
	return s.size
}

// Frames returns the frames contained in pcm, a PCM16LE chunk.
func (s *Segmenter) Frames(pcm []byte) iter.Seq[Frame] {
	samples := DecodePCM16LE(pcm)
	if s.carry {
		if len(s.pending) > 0 {
			samples = append(s.pending, samples...)
		}
		s.pending = append([]int16(nil), Remainder(samples, s.size)...)
	}
	return Split(samples, s.size)
}

// Pending returns the number of carried samples waiting for the next chunk.
func (s *Segmenter) Pending() int {
	return len(s.pending)
}
