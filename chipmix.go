// Package chipmix drives a tracker player and a sound chip emulation
// to produce 16-bit little endian stereo PCM.
//
// A Clock owns a Hardware backend (see the amiga and soundblaster packages)
// and calls the Player once per tick. Stream wraps a Clock into an io.Reader
// that can be passed to audio libraries like ebiten/audio or oto.
package chipmix

import (
	"errors"

	"github.com/quasilyte/chipmix/pcm"
)

const (
	// SampleRate is the only supported output rate.
	SampleRate = 44100

	// BitDepth of the produced PCM samples.
	BitDepth = 16

	// Channels is the number of interleaved output channels.
	Channels = 2

	// TempoBase is the tempo to samples-per-tick conversion constant:
	// a tempo of T beats per minute gives TempoBase/T samples per tick.
	TempoBase = SampleRate * 5 / 2
)

var (
	// ErrChunkSize is returned when a render is asked for more than pcm.ChunkSize frames.
	ErrChunkSize = errors.New("chipmix: render size exceeds the chunk size")

	// ErrNotInitialized is returned when rendering with a clock that was never initialized.
	ErrNotInitialized = errors.New("chipmix: clock is not initialized")
)

// Hardware is a mixing backend.
//
// All the methods are called from the clock's goroutine.
type Hardware interface {
	// Reset restores the power-on state: voices, filter and counters.
	// The sample memory is kept.
	Reset()

	// Freeze forbids further sample stores.
	// It's called once before the first render.
	Freeze()

	// TickLength returns the default number of samples per tick.
	TickLength() int

	// SetTickLength informs the backend about the current tick length.
	// Backends use it as a slew length for register changes.
	SetTickLength(samples int)

	// Mix adds one tick segment worth of voices output into frames.
	// The voice registers stay unchanged during a single call.
	Mix(frames []pcm.Frame) error

	// Flush post-processes a complete mixing pass, after all of its segments were mixed.
	Flush(frames []pcm.Frame)

	// Clip selects the negative overflow handling used to drain this backend.
	Clip() pcm.Clip
}

// Player is a tracker replay routine that updates voice registers.
type Player interface {
	// Initialize is called once per playback start after the hardware reset.
	// This is the right place to set the initial speed and tempo.
	Initialize(c *Clock)

	// Tick is called exactly once per tick boundary, before the tick is mixed.
	// A player reports the song end via Clock.Complete.
	Tick(c *Clock)
}
