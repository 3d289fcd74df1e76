package pcm

import (
	"encoding/binary"
	"math"
)

// Clip selects how negative overflow is converted to int16.
type Clip uint8

const (
	// ClipFull maps values below -1 to -32768.
	ClipFull Clip = iota

	// ClipSymmetric maps values below -1 to -32767,
	// so the output range is symmetric around zero.
	ClipSymmetric
)

// Convert turns a float sample into a signed 16-bit value.
//
// Values above 1 become 32767, values below -1 become -32768 or -32767
// depending on the clip mode, everything else is round(x*32767).
func (c Clip) Convert(x float64) int16 {
	switch {
	case x > 1:
		return math.MaxInt16
	case x < -1:
		if c == ClipSymmetric {
			return -math.MaxInt16
		}
		return math.MinInt16
	default:
		return int16(math.Round(x * math.MaxInt16))
	}
}

func (c Clip) String() string {
	switch c {
	case ClipFull:
		return "full"
	case ClipSymmetric:
		return "symmetric"
	default:
		return "unknown"
	}
}

// Sink is a bounded destination for interleaved little-endian PCM frames.
type Sink struct {
	buf []byte
	n   int
}

// NewSink wraps b as a sink.
// Only whole frames are written, so the trailing len(b)%4 bytes are never used.
func NewSink(b []byte) *Sink {
	return &Sink{buf: b}
}

// Reset re-targets the sink to b and drops the written counter.
func (s *Sink) Reset(b []byte) {
	s.buf = b
	s.n = 0
}

// Available reports the remaining capacity in bytes.
func (s *Sink) Available() int { return len(s.buf) - s.n }

// Len reports how many bytes were written so far.
func (s *Sink) Len() int { return s.n }

// Bytes returns the written part of the sink.
func (s *Sink) Bytes() []byte { return s.buf[:s.n] }

// Drain converts frames into the sink until either runs out.
//
// Every consumed frame is zeroed, so a partially drained buffer keeps
// only its unconsumed tail. The returned value is the number of frames
// written; the caller resumes from frames[n:] once the sink has room again.
func Drain(frames []Frame, sink *Sink, clip Clip) int {
	n := min(len(frames), sink.Available()/BytesPerFrame)
	dst := sink.buf[sink.n:]
	for i := range frames[:n] {
		f := &frames[i]
		binary.LittleEndian.PutUint16(dst[i*BytesPerFrame:], uint16(clip.Convert(f.L)))
		binary.LittleEndian.PutUint16(dst[i*BytesPerFrame+2:], uint16(clip.Convert(f.R)))
		*f = Frame{}
	}
	sink.n += n * BytesPerFrame
	return n
}
