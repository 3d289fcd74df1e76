// Package pcm holds the stereo accumulation buffer shared by the mixing
// backends and the code that drains it into 16-bit PCM bytes.
package pcm

// ChunkSize is the maximum number of frames a single mixing pass can produce.
const ChunkSize = 8192

// BytesPerFrame is the size of one interleaved 16-bit stereo frame.
const BytesPerFrame = 4

// Frame is a single stereo sample pair in the [-1, 1] nominal range.
// Mixers add into it, so intermediate values may go outside that range.
type Frame struct {
	L float64
	R float64
}

// Buffer is a fixed-size stereo accumulator.
//
// A buffer is written by exactly one mixing backend and is cleared
// once at the start of every mixing pass.
type Buffer struct {
	frames [ChunkSize]Frame
}

// Clear zeroes every frame of the buffer.
func (b *Buffer) Clear() {
	clear(b.frames[:])
}

// Frames returns the first n frames of the buffer.
// n is clamped to [0, ChunkSize].
func (b *Buffer) Frames(n int) []Frame {
	n = max(0, min(n, ChunkSize))
	return b.frames[:n]
}
