package soundblaster

import (
	"errors"
	"math"
	"testing"

	"github.com/quasilyte/chipmix/arena"
	"github.com/quasilyte/chipmix/pcm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var center = math.Sqrt(0.5)

func newTestChip(t *testing.T, q Quality) *Chip {
	t.Helper()
	chip, err := NewChip(Config{Voices: 4, Quality: q, MemorySize: 1 << 12})
	require.NoError(t, err)
	return chip
}

func mixFrames(t *testing.T, chip *Chip, n int) []pcm.Frame {
	t.Helper()
	frames := make([]pcm.Frame, n)
	require.NoError(t, chip.Mix(frames))
	return frames
}

func leftValues(frames []pcm.Frame) []float64 {
	values := make([]float64, len(frames))
	for i, f := range frames {
		values[i] = f.L / center
	}
	return values
}

func TestNewChip(t *testing.T) {
	_, err := NewChip(Config{Voices: MaxVoices + 1})
	assert.ErrorIs(t, err, ErrTooManyVoices)

	chip, err := NewChip(Config{})
	require.NoError(t, err)
	assert.Equal(t, MaxVoices, chip.NumVoices())
	assert.Equal(t, Accurate, chip.Quality())
	assert.Equal(t, pcm.ClipFull, chip.Clip())

	_, err = chip.Voice(MaxVoices)
	assert.ErrorIs(t, err, ErrVoiceIndex)
}

func TestStoreSample(t *testing.T) {
	chip := newTestChip(t, Accurate)
	data := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}

	tests := []struct {
		loop       LoopMode
		loopStart  int
		loopLength int
		want       Sample
		guard      float32
	}{
		{LoopNone, 2, 2, Sample{Length: 6}, 0.6},
		{LoopForward, 1, 2, Sample{Length: 3, LoopStart: 1, LoopLength: 2, Loop: LoopForward}, 0.2},
		{LoopPingPong, 2, 10, Sample{Length: 6, LoopStart: 2, LoopLength: 4, Loop: LoopPingPong}, 0.6},
		{LoopForward, 3, 0, Sample{Length: 6}, 0.6},
	}

	for _, test := range tests {
		s, err := chip.StoreSample(data, test.loop, test.loopStart, test.loopLength)
		require.NoError(t, err)
		test.want.Offset = s.Offset
		assert.Equal(t, test.want, s)
		stored, err := chip.Memory().Slice(s.Offset, s.Length+1)
		require.NoError(t, err)
		assert.Equal(t, data[:s.Length], stored[:s.Length])
		assert.Equal(t, test.guard, stored[s.Length])
	}

	_, err := chip.StoreSample(data, LoopMode(10), 0, 0)
	assert.Error(t, err)
}

func TestFastLoopModes(t *testing.T) {
	data := []float32{0.1, 0.2, 0.3, 0.4}
	tests := []struct {
		loop      LoopMode
		loopStart int
		want      []float64
	}{
		{LoopNone, 0, []float64{0.1, 0.2, 0.3, 0.4, 0, 0}},
		{LoopForward, 2, []float64{0.1, 0.2, 0.3, 0.4, 0.3, 0.4, 0.3, 0.4}},
		{LoopPingPong, 0, []float64{0.1, 0.2, 0.3, 0.4, 0.4, 0.3, 0.2, 0.1, 0.1, 0.2}},
	}

	for _, test := range tests {
		chip := newTestChip(t, Fast)
		s, err := chip.StoreSample(data, test.loop, test.loopStart, len(data)-test.loopStart)
		require.NoError(t, err)
		v, _ := chip.Voice(0)
		v.SetVolume(1)
		v.Trigger(s, 0)
		v.SetSpeed(1)

		have := leftValues(mixFrames(t, chip, len(test.want)))
		assert.InDeltaSlice(t, test.want, have, 1e-6, "loop=%s", test.loop)
		assert.Equal(t, test.loop != LoopNone, v.Enabled())
	}
}

func TestFastLoopLongSteps(t *testing.T) {
	data := []float32{0.1, 0.2, 0.3, 0.4}
	tests := []struct {
		loop LoopMode
		want []float64
	}{
		// 5 steps over a 4-value loop move the cursor by one.
		{LoopForward, []float64{0.1, 0.2, 0.3, 0.4, 0.1, 0.2, 0.3, 0.4, 0.1, 0.2, 0.3, 0.4}},
		// Positions 5*t on the 0,1,2,3,3,2,1,0 ping-pong path.
		{LoopPingPong, []float64{0.1, 0.3, 0.3, 0.1, 0.4, 0.2, 0.2, 0.4, 0.1, 0.3, 0.3, 0.1}},
	}

	for _, test := range tests {
		chip := newTestChip(t, Fast)
		s, err := chip.StoreSample(data, test.loop, 0, len(data))
		require.NoError(t, err)
		v, _ := chip.Voice(0)
		v.SetVolume(1)
		v.Trigger(s, 0)
		v.SetSpeed(5)

		for i, want := range test.want {
			have := leftValues(mixFrames(t, chip, 1))
			assert.InDelta(t, want, have[0], 1e-6, "loop=%s frame=%d", test.loop, i)
			assert.GreaterOrEqual(t, v.pointer, s.LoopStart)
			assert.Less(t, v.pointer, s.Length)
		}
		assert.True(t, v.Enabled())
	}
}

func TestAccurateInterpolation(t *testing.T) {
	chip := newTestChip(t, Accurate)
	s, err := chip.StoreSample([]float32{0, 0.4, 0.8, 0.8}, LoopNone, 0, 0)
	require.NoError(t, err)
	v, _ := chip.Voice(1)
	v.SetVolume(1)
	v.Trigger(s, 0)
	v.SetSpeed(0.5)

	have := leftValues(mixFrames(t, chip, 5))
	assert.InDeltaSlice(t, []float64{0, 0.2, 0.4, 0.6, 0.8}, have, 1e-6)
}

func TestAccurateEndOfSample(t *testing.T) {
	chip := newTestChip(t, Accurate)
	s, err := chip.StoreSample([]float32{0.5, 0.5, 0.5}, LoopNone, 0, 0)
	require.NoError(t, err)
	v, _ := chip.Voice(0)
	v.SetVolume(1)
	v.Trigger(s, 0)
	v.SetSpeed(1)

	have := leftValues(mixFrames(t, chip, 5))
	assert.InDeltaSlice(t, []float64{0.5, 0.5, 0.5, 0, 0}, have, 1e-6)
	assert.False(t, v.Enabled())
}

func TestAccuratePingPongStaysInRange(t *testing.T) {
	chip := newTestChip(t, Accurate)
	data := []float32{-0.5, -0.25, 0, 0.25, 0.5, 0.25, 0, -0.25}
	s, err := chip.StoreSample(data, LoopPingPong, 2, 6)
	require.NoError(t, err)
	v, _ := chip.Voice(0)
	v.SetVolume(1)
	v.Trigger(s, 0)
	v.SetSpeed(0.7)

	for i, value := range leftValues(mixFrames(t, chip, 2000)) {
		require.GreaterOrEqual(t, value, -0.75, "frame %d", i)
		require.LessOrEqual(t, value, 0.75, "frame %d", i)
	}
	assert.True(t, v.Enabled())
}

func TestCrossfade(t *testing.T) {
	chip := newTestChip(t, Accurate)
	up, err := chip.StoreSample([]float32{0.5, 0.5, 0.5, 0.5}, LoopForward, 0, 4)
	require.NoError(t, err)
	down, err := chip.StoreSample([]float32{-0.5, -0.5, -0.5, -0.5}, LoopForward, 0, 4)
	require.NoError(t, err)

	v, _ := chip.Voice(0)
	v.SetVolume(1)
	v.Trigger(up, 0)
	v.SetSpeed(1)
	mixFrames(t, chip, 100)
	require.False(t, v.Crossfading())

	lvol, rvol := v.Gain()
	v.Trigger(down, 0)
	require.True(t, v.Crossfading())

	values := leftValues(mixFrames(t, chip, CrossfadeLength+10))

	// Starts with the old sample at the old volume.
	assert.InDelta(t, 0.5, values[0], 1e-9)
	// Both ramps are linear and complement each other.
	assert.InDelta(t, 0, values[CrossfadeLength/2], 1e-9)
	for i := 1; i < CrossfadeLength; i++ {
		assert.Less(t, values[i], values[i-1], "frame %d", i)
	}
	// The ramps are complete after the crossfade.
	assert.False(t, v.Crossfading())
	assert.InDelta(t, lvol, v.lmixRampU, 1e-9)
	assert.InDelta(t, rvol, v.rmixRampU, 1e-9)
	assert.InDelta(t, 0, v.lmixRampD, 1e-9)
	assert.InDelta(t, 0, v.rmixRampD, 1e-9)
	for _, value := range values[CrossfadeLength:] {
		assert.InDelta(t, -0.5, value, 1e-9)
	}
}

func TestCrossfadeFromSilence(t *testing.T) {
	chip := newTestChip(t, Accurate)
	s, err := chip.StoreSample([]float32{0.5, 0.5}, LoopForward, 0, 2)
	require.NoError(t, err)

	v, _ := chip.Voice(0)
	v.SetVolume(1)
	v.Trigger(s, 0)
	v.Disable()

	// The voice had a sample, so the next trigger fades in.
	v.Trigger(s, 0)
	values := leftValues(mixFrames(t, chip, CrossfadeLength))
	assert.Zero(t, values[0])
	assert.InDelta(t, 0.25, values[CrossfadeLength/2], 1e-9)
}

func TestVolumeSlew(t *testing.T) {
	for _, q := range []Quality{Accurate, Fast} {
		chip := newTestChip(t, q)
		chip.SetTickLength(100)
		s, err := chip.StoreSample([]float32{0.5, 0.5}, LoopForward, 0, 2)
		require.NoError(t, err)
		v, _ := chip.Voice(0)
		v.SetVolume(1)
		v.Trigger(s, 0)
		v.SetSpeed(1)
		mixFrames(t, chip, 10)

		v.SetVolume(0)
		values := leftValues(mixFrames(t, chip, 120))
		if q == Fast {
			assert.Zero(t, values[0])
			continue
		}
		assert.InDelta(t, 0.5, values[0], 1e-9)
		assert.InDelta(t, 0.25, values[50], 1e-9)
		assert.InDelta(t, 0, values[100], 1e-9)
		assert.InDelta(t, 0, values[119], 1e-9)
	}
}

func TestPanningSlew(t *testing.T) {
	chip := newTestChip(t, Accurate)
	chip.SetTickLength(64)
	s, err := chip.StoreSample([]float32{0.5, 0.5}, LoopForward, 0, 2)
	require.NoError(t, err)
	v, _ := chip.Voice(0)
	v.SetVolume(1)
	v.Trigger(s, 0)
	v.SetSpeed(1)
	mixFrames(t, chip, 10)

	v.SetPanning(0)
	frames := mixFrames(t, chip, 80)
	assert.InDelta(t, 0.5*center, frames[0].R, 1e-9)
	assert.InDelta(t, 0, frames[79].R, 1e-9)
	assert.InDelta(t, 0.5, frames[79].L, 1e-9)
	assert.Equal(t, 0, v.Panning())
}

func TestMuteHoldsLastValue(t *testing.T) {
	for _, q := range []Quality{Accurate, Fast} {
		chip := newTestChip(t, q)
		s, err := chip.StoreSample([]float32{0.5, 0.5, 0.5, 0.5}, LoopForward, 0, 4)
		require.NoError(t, err)
		v, _ := chip.Voice(0)
		v.SetVolume(1)
		v.Trigger(s, 0)
		v.SetSpeed(0.1)
		mixFrames(t, chip, 1)

		v.Mute = true
		values := leftValues(mixFrames(t, chip, 30))
		assert.InDelta(t, 0.5, values[0], 1e-9, "quality=%s", q)
		assert.Zero(t, values[29], "quality=%s", q)
		assert.True(t, v.Enabled())
	}
}

func TestTriggerOutsideOfSample(t *testing.T) {
	chip := newTestChip(t, Fast)
	s, err := chip.StoreSample([]float32{0.5, 0.5}, LoopNone, 0, 0)
	require.NoError(t, err)
	v, _ := chip.Voice(0)
	v.Trigger(s, 2)
	assert.False(t, v.Enabled())
}

func TestMixBoundsCheck(t *testing.T) {
	chip := newTestChip(t, Accurate)
	v, _ := chip.Voice(2)
	v.Trigger(Sample{Offset: 100, Length: 10}, 0)

	err := chip.Mix(make([]pcm.Frame, 8))
	var rangeErr *arena.RangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, 100, rangeErr.Offset)
}
