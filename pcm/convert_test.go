package pcm

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipConvert(t *testing.T) {
	tests := []struct {
		x    float64
		clip Clip
		want int16
	}{
		{0, ClipFull, 0},
		{1, ClipFull, 32767},
		{-1, ClipFull, -32767},
		{1.5, ClipFull, 32767},
		{-1.5, ClipFull, -32768},
		{-1.5, ClipSymmetric, -32767},
		{1.5, ClipSymmetric, 32767},
		{0.5, ClipSymmetric, 16384},
		{-0.5, ClipFull, -16384},
		{math.Inf(-1), ClipFull, -32768},
	}

	for _, test := range tests {
		have := test.clip.Convert(test.x)
		assert.Equal(t, test.want, have, "%s.Convert(%v)", test.clip, test.x)
	}
}

func TestClipMonotonic(t *testing.T) {
	for _, clip := range []Clip{ClipFull, ClipSymmetric} {
		prev := clip.Convert(-4)
		for x := -4.0; x <= 4.0; x += 1.0 / 1024 {
			v := clip.Convert(x)
			require.GreaterOrEqual(t, v, prev, "%s at x=%v", clip, x)
			prev = v
		}
	}
}

func TestDrain(t *testing.T) {
	var b Buffer
	frames := b.Frames(4)
	for i := range frames {
		frames[i] = Frame{L: 0.5, R: -0.5}
	}

	// Room for 2 frames and a half.
	sink := NewSink(make([]byte, 10))
	n := Drain(frames, sink, ClipFull)
	require.Equal(t, 2, n)
	assert.Equal(t, 8, sink.Len())
	assert.Equal(t, 2, sink.Available())

	assert.Equal(t, int16(16384), int16(binary.LittleEndian.Uint16(sink.Bytes()[0:])))
	assert.Equal(t, int16(-16384), int16(binary.LittleEndian.Uint16(sink.Bytes()[2:])))

	// Consumed frames are zeroed, the tail is untouched.
	assert.Equal(t, Frame{}, frames[0])
	assert.Equal(t, Frame{}, frames[1])
	assert.Equal(t, Frame{L: 0.5, R: -0.5}, frames[2])

	sink.Reset(make([]byte, 64))
	n = Drain(frames[2:], sink, ClipFull)
	assert.Equal(t, 2, n)
	assert.Equal(t, 8, sink.Len())
}

func TestBufferClear(t *testing.T) {
	var b Buffer
	frames := b.Frames(ChunkSize + 10)
	require.Len(t, frames, ChunkSize)
	frames[ChunkSize-1] = Frame{L: 1, R: 1}
	b.Clear()
	assert.Equal(t, Frame{}, b.Frames(ChunkSize)[ChunkSize-1])
}
