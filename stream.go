package chipmix

import (
	"errors"
	"io"
	"math"
	"sync"

	"github.com/quasilyte/chipmix/pcm"
)

// Stream wraps a playback clock, making it possible to Read() its PCM bytes.
//
// The Read() method produces 16-bit little endian stereo PCM bytes at 44100 Hz;
// this is what ebiten/audio and oto players expect.
// Use Stream as an io.Reader argument for audio.NewPlayer().
//
// The control methods (SetLooping, Rewind, GetInfo) can be called
// while another goroutine is inside Read.
type Stream struct {
	mu sync.Mutex

	clock *Clock
	sink  pcm.Sink

	settings streamSettings

	bytePos int // Used to report the current pos via Seek()
}

type streamSettings struct {
	loop        bool
	chunkFrames int
}

// StreamInfo contains the stream information like bytes per tick, etc.
type StreamInfo struct {
	// BytesPerTick tells how much bytes the current tick length takes.
	// Unlike with tick-aligned renderers, any Read() slice size works,
	// but passing at least this much avoids extra render passes.
	BytesPerTick uint

	// MemoryUsage approximates the loaded sample memory size in bytes.
	// It's 0 if the hardware backend can't report it.
	MemoryUsage uint
}

// StreamConfig configures the stream creation.
type StreamConfig struct {
	// Loop makes the player continue from its restart position
	// instead of ending the stream.
	// It can be changed later via Stream.SetLooping().
	//
	// A zero value means "no looping".
	Loop bool

	// ChunkFrames limits the number of frames mixed per render pass.
	// Smaller values make the events more precise at the cost of
	// some rendering overhead.
	//
	// A zero value means pcm.ChunkSize, which is also the maximum value.
	ChunkFrames int
}

type memoryReporter interface {
	MemoryUsage() uint
}

// NewStream creates a stream that plays p on hw from the start.
func NewStream(hw Hardware, p Player, config StreamConfig) (*Stream, error) {
	if config.ChunkFrames < 0 || config.ChunkFrames > pcm.ChunkSize {
		return nil, ErrChunkSize
	}
	if config.ChunkFrames == 0 {
		config.ChunkFrames = pcm.ChunkSize
	}
	s := &Stream{
		clock: NewClock(hw, p),
		settings: streamSettings{
			loop:        config.Loop,
			chunkFrames: config.ChunkFrames,
		},
	}
	s.clock.SetLoopSong(s.settings.loop)
	s.clock.Initialize()
	return s, nil
}

// Clock returns the underlying playback clock.
// It must not be used concurrently with Read.
func (s *Stream) Clock() *Clock { return s.clock }

// SetEventHandler installs an event listener to the stream.
//
// f is called on every stream event.
//
// Events are produced when the track is being mixed.
// Therefore, calling Read() may produce multiple events.
func (s *Stream) SetEventHandler(f func(e StreamEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.SetEventHandler(f)
}

// SetLooping enables the song looping.
// When looping is enabled, Read will never return EOF and the
// player continues from its own restart position.
func (s *Stream) SetLooping(loop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.loop = loop
	s.clock.SetLoopSong(loop)
}

// Looping reports the SetLooping value.
func (s *Stream) Looping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.loop
}

// Seek partially implements io.Seeker.
//
// You can use it for two things:
//  1. (0, SeekStart) for rewind
//  2. (0, SeekCurrent) to get the byte pos inside the stream
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		if offset == 0 {
			s.Rewind()
			return 0, nil
		}

	case io.SeekCurrent:
		if offset == 0 {
			s.mu.Lock()
			defer s.mu.Unlock()
			return int64(s.bytePos), nil
		}
	}

	return 0, errors.New("unsupported Seek call")
}

// Read puts next PCM bytes into provided slice.
//
// Only whole frames (4 bytes) are written; a slice shorter than
// that gives n=0.
//
// When stream has no bytes to produce, io.EOF error is returned.
func (s *Stream) Read(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	eof := false
	for len(b)-written >= pcm.BytesPerFrame {
		s.sink.Reset(b[written:])
		frames := min(s.settings.chunkFrames, s.sink.Available()/pcm.BytesPerFrame)
		n, err := s.clock.Render(&s.sink, frames)
		if err != nil {
			s.bytePos += written
			return written, err
		}
		written += n * pcm.BytesPerFrame
		if s.clock.Completed() {
			eof = true
			break
		}
	}

	s.bytePos += written

	if eof && written == 0 {
		return 0, io.EOF
	}
	return written, nil
}

// Rewind prepares the stream to play the song right from the start.
func (s *Stream) Rewind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytePos = 0
	s.clock.Initialize()
	s.clock.Emit(StreamEvent{
		Kind:  EventSync,
		value: math.Float64bits(0),
	})
}

// GetInfo returns stream-related info.
// See StreamInfo for more details.
func (s *Stream) GetInfo() StreamInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := StreamInfo{
		BytesPerTick: uint(s.clock.SamplesPerTick() * pcm.BytesPerFrame),
	}
	if r, ok := s.clock.Hardware().(memoryReporter); ok {
		info.MemoryUsage = r.MemoryUsage()
	}
	return info
}
