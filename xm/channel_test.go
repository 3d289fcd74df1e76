package xm

import (
	"testing"

	"github.com/quasilyte/chipmix/xmfile"
	"github.com/stretchr/testify/assert"
)

func testEnvelope(flags int, points ...envelopePoint) *envelope {
	return &envelope{
		flags:  xmfile.EnvelopeFlags(flags),
		points: points,
	}
}

func stepEnvelope(r *envelopeRunner, env *envelope, released bool, n int) []int {
	values := make([]int, 0, n)
	for i := 0; i < n; i++ {
		r.step(env, released)
		values = append(values, r.value)
	}
	return values
}

func TestEnvelopeStep(t *testing.T) {
	env := testEnvelope(1, envelopePoint{0, 64}, envelopePoint{4, 0})
	var r envelopeRunner
	assert.Equal(t, []int{64, 48, 32, 16}, stepEnvelope(&r, env, false, 4))
	assert.False(t, r.stopped)
	r.step(env, false)
	assert.Equal(t, 0, r.value)
	assert.True(t, r.stopped)
}

func TestEnvelopeSustain(t *testing.T) {
	env := testEnvelope(0b011, envelopePoint{0, 64}, envelopePoint{2, 32}, envelopePoint{4, 0})
	env.sustain = 1
	var r envelopeRunner
	assert.Equal(t, []int{64, 48, 32, 32, 32}, stepEnvelope(&r, env, false, 5))
	assert.Equal(t, []int{32, 16, 0}, stepEnvelope(&r, env, true, 3))
	assert.True(t, r.stopped)
}

func TestEnvelopeLoop(t *testing.T) {
	env := testEnvelope(0b101, envelopePoint{0, 0}, envelopePoint{2, 64}, envelopePoint{4, 32})
	env.loopStart = 0
	env.loopEnd = 1
	var r envelopeRunner
	assert.Equal(t, []int{0, 32, 0, 32, 0, 32}, stepEnvelope(&r, env, false, 6))
	assert.False(t, r.stopped)
}

func TestEnvelopeSeek(t *testing.T) {
	env := testEnvelope(1, envelopePoint{0, 64}, envelopePoint{4, 0})

	var r envelopeRunner
	r.seek(env, 2)
	assert.Equal(t, 32, r.value)
	assert.False(t, r.stopped)
	assert.Equal(t, []int{16, 0}, stepEnvelope(&r, env, false, 2))

	r.Reset()
	r.seek(env, 10)
	assert.Equal(t, 0, r.value)
	assert.True(t, r.stopped)
}

func TestChannelRetrig(t *testing.T) {
	tests := []struct {
		x      int
		volume int
		want   int
	}{
		{x: 1, volume: 32, want: 31},
		{x: 2, volume: 32, want: 30},
		{x: 5, volume: 8, want: 0},
		{x: 6, volume: 30, want: 20},
		{x: 7, volume: 30, want: 15},
		{x: 8, volume: 30, want: 40},
		{x: 9, volume: 64, want: 64},
		{x: 14, volume: 20, want: 30},
		{x: 15, volume: 40, want: 64},
	}
	for _, test := range tests {
		ch := channel{
			volume:  test.volume,
			retrigX: test.x,
			sample:  &sample{volume: 40},
		}
		ch.retrig()
		assert.Equal(t, test.want, ch.volume, "x=%d", test.x)
		assert.NotZero(t, ch.flags&updateVolume)
	}
}

func TestChannelTremor(t *testing.T) {
	// Two ticks on, one tick off.
	ch := channel{volume: 40, tremorOn: 2, tremorOff: 3}
	var volumes []int
	for i := 0; i < 6; i++ {
		ch.tremor()
		volumes = append(volumes, ch.volume)
	}
	assert.Equal(t, []int{40, 40, 0, 40, 40, 0}, volumes)
}

func TestChannelGlissando(t *testing.T) {
	ch := channel{
		period:      4608,
		portaPeriod: 4608 - 256,
		portaSpeed:  8,
		glissando:   true,
	}
	ch.tonePortamento()
	assert.Equal(t, 4608, ch.period)
	ch.tonePortamento()
	assert.Equal(t, 4608-64, ch.period)
	for i := 0; i < 16 && ch.portaPeriod != 0; i++ {
		ch.tonePortamento()
	}
	assert.Equal(t, 4608-256, ch.period)
	assert.Zero(t, ch.portaPeriod)
}

func TestChannelAutoVibrato(t *testing.T) {
	inst := &instrument{vibratoRate: 64, vibratoDepth: 16}
	ch := channel{}
	ch.resetNote()

	var deltas []int
	for i := 0; i < 4; i++ {
		deltas = append(deltas, ch.autoVibrato(inst))
	}
	assert.Equal(t, []int{-16, 0, 16, 0}, deltas)
	assert.False(t, ch.autoSweep)

	t.Run("sweep", func(t *testing.T) {
		inst := &instrument{vibratoRate: 64, vibratoDepth: 16, vibratoSweep: 4}
		ch := channel{}
		ch.resetNote()
		assert.Equal(t, -4, ch.autoVibrato(inst))
		assert.True(t, ch.autoSweep)
	})
}
