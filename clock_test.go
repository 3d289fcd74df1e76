package chipmix

import (
	"errors"
	"testing"

	"github.com/quasilyte/chipmix/pcm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHardware struct {
	value      float64
	tickLength int
	err        error

	resets   int
	freezes  int
	flushes  int
	segments []int
}

func (hw *fakeHardware) Reset()                   { hw.resets++ }
func (hw *fakeHardware) Freeze()                  { hw.freezes++ }
func (hw *fakeHardware) TickLength() int          { return 100 }
func (hw *fakeHardware) SetTickLength(n int)      { hw.tickLength = n }
func (hw *fakeHardware) Flush(frames []pcm.Frame) { hw.flushes++ }
func (hw *fakeHardware) Clip() pcm.Clip           { return pcm.ClipFull }

func (hw *fakeHardware) Mix(frames []pcm.Frame) error {
	if hw.err != nil {
		return hw.err
	}
	hw.segments = append(hw.segments, len(frames))
	for i := range frames {
		frames[i].L += hw.value
		frames[i].R -= hw.value
	}
	return nil
}

type fakePlayer struct {
	tickLength int
	endTick    int
	onTick     func(c *Clock, tick int)

	ticks    int
	restarts int
}

func (p *fakePlayer) Initialize(c *Clock) {
	p.ticks = 0
	c.SetSpeed(6)
	if p.tickLength != 0 {
		c.SetSamplesPerTick(p.tickLength)
	}
}

func (p *fakePlayer) Tick(c *Clock) {
	p.ticks++
	if p.onTick != nil {
		p.onTick(c, p.ticks)
	}
	if p.ticks == p.endTick {
		c.Complete()
		if c.LoopSong() {
			p.ticks = 0
			p.restarts++
		}
	}
}

func renderAll(t *testing.T, c *Clock, frames int) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, frames*pcm.BytesPerFrame)
	sink := pcm.NewSink(buf)
	for i := 0; !c.Completed(); i++ {
		require.Less(t, i, 10000, "the clock never completes")
		sink.Reset(buf)
		_, err := c.Render(sink, frames)
		require.NoError(t, err)
		out = append(out, sink.Bytes()...)
	}
	return out
}

func TestClockNotInitialized(t *testing.T) {
	c := NewClock(&fakeHardware{}, &fakePlayer{})
	sink := pcm.NewSink(make([]byte, 64))

	_, err := c.Render(sink, 16)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, StateIdle, c.State())

	c.Initialize()
	_, err = c.Render(sink, pcm.ChunkSize+1)
	assert.ErrorIs(t, err, ErrChunkSize)
	_, err = c.Render(sink, -1)
	assert.ErrorIs(t, err, ErrChunkSize)
}

func TestClockInitialize(t *testing.T) {
	hw := &fakeHardware{}
	c := NewClock(hw, &fakePlayer{})
	c.Initialize()

	assert.Equal(t, StatePlaying, c.State())
	assert.Equal(t, 1, hw.resets)
	assert.Equal(t, 1, hw.freezes)
	assert.Equal(t, 100, c.SamplesPerTick())
	assert.Equal(t, 100, hw.tickLength)
	assert.Equal(t, 6, c.Speed())
	assert.Same(t, hw, c.Hardware())
}

func TestClockTickSegments(t *testing.T) {
	hw := &fakeHardware{}
	p := &fakePlayer{tickLength: 100}
	c := NewClock(hw, p)
	c.Initialize()
	sink := pcm.NewSink(make([]byte, pcm.ChunkSize*pcm.BytesPerFrame))

	n, err := c.Render(sink, 250)
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	assert.Equal(t, []int{100, 100, 50}, hw.segments)
	assert.Equal(t, uint64(3), c.Ticks())
	assert.Equal(t, 3, p.ticks)

	sink.Reset(make([]byte, pcm.ChunkSize*pcm.BytesPerFrame))
	_, err = c.Render(sink, 250)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 100, 50, 50, 100, 100}, hw.segments)
	assert.Equal(t, uint64(5), c.Ticks())
	assert.Equal(t, 2, hw.flushes)
	assert.InDelta(t, 500.0/SampleRate, c.Time(), 1e-12)
}

func TestClockTempo(t *testing.T) {
	hw := &fakeHardware{}
	c := NewClock(hw, &fakePlayer{})
	c.Initialize()

	c.SetTempo(125)
	assert.Equal(t, 882, c.SamplesPerTick())
	assert.Equal(t, 882, hw.tickLength)
	assert.Equal(t, 125, c.Tempo())

	c.SetTempo(32)
	assert.Equal(t, 3445, c.SamplesPerTick())

	c.SetTempo(0)
	c.SetSamplesPerTick(-5)
	assert.Equal(t, 3445, c.SamplesPerTick())
	assert.Equal(t, 32, c.Tempo())
}

func TestClockTempoChangeInsideTick(t *testing.T) {
	hw := &fakeHardware{}
	p := &fakePlayer{
		tickLength: 100,
		onTick: func(c *Clock, tick int) {
			if tick == 2 {
				c.SetSamplesPerTick(30)
			}
		},
	}
	c := NewClock(hw, p)
	c.Initialize()

	_, err := c.Render(pcm.NewSink(make([]byte, 4096)), 200)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 30, 30, 30, 10}, hw.segments)
}

func TestClockCompletion(t *testing.T) {
	hw := &fakeHardware{value: 0.5}
	p := &fakePlayer{tickLength: 100, endTick: 3}
	c := NewClock(hw, p)

	var completions int
	c.SetEventHandler(func(e StreamEvent) {
		if e.Kind == EventComplete {
			completions++
			assert.InDelta(t, 200.0/SampleRate, e.Time, 1e-12)
		}
	})
	c.Initialize()

	buf := make([]byte, pcm.ChunkSize*pcm.BytesPerFrame)
	sink := pcm.NewSink(buf)

	// The completing tick doesn't fit into the first pass.
	n, err := c.Render(sink, 250)
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	assert.Equal(t, StatePlaying, c.State())

	sink.Reset(buf)
	n, err = c.Render(sink, 250)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	assert.True(t, c.Completed())

	sink.Reset(buf)
	n, err = c.Render(sink, 250)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 3, p.ticks)
	assert.Equal(t, 1, completions)
	assert.Equal(t, []int{100, 100, 50, 50}, hw.segments)
}

func TestClockCompletionWithinPass(t *testing.T) {
	hw := &fakeHardware{}
	p := &fakePlayer{tickLength: 100, endTick: 2}
	c := NewClock(hw, p)
	c.Initialize()

	n, err := c.Render(pcm.NewSink(make([]byte, pcm.ChunkSize*pcm.BytesPerFrame)), 1000)
	require.NoError(t, err)
	assert.Equal(t, 200, n)
	assert.True(t, c.Completed())
}

func TestClockLoopSong(t *testing.T) {
	p := &fakePlayer{tickLength: 100, endTick: 4}
	c := NewClock(&fakeHardware{}, p)
	c.SetLoopSong(true)
	c.Initialize()

	buf := make([]byte, 1000*pcm.BytesPerFrame)
	sink := pcm.NewSink(buf)
	for i := 0; i < 100; i++ {
		sink.Reset(buf)
		n, err := c.Render(sink, 1000)
		require.NoError(t, err)
		require.Equal(t, 1000, n)
	}
	assert.False(t, c.Completed())
	assert.Equal(t, 250, p.restarts)
}

func TestClockBackpressure(t *testing.T) {
	hw := &fakeHardware{value: 0.25}
	c := NewClock(hw, &fakePlayer{tickLength: 1000})
	c.Initialize()

	// Room for 10 frames only.
	buf := make([]byte, 10*pcm.BytesPerFrame)
	sink := pcm.NewSink(buf)

	for i := 0; i < 10; i++ {
		sink.Reset(buf)
		n, err := c.Render(sink, 100)
		require.NoError(t, err)
		require.Equal(t, 10, n)
		require.Equal(t, []int{100}, hw.segments, "no mixing while frames are pending")
	}

	sink.Reset(buf)
	_, err := c.Render(sink, 100)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 100}, hw.segments)

	l := int16(uint16(buf[0]) | uint16(buf[1])<<8)
	r := int16(uint16(buf[2]) | uint16(buf[3])<<8)
	assert.Equal(t, pcm.ClipFull.Convert(0.25), l)
	assert.Equal(t, pcm.ClipFull.Convert(-0.25), r)
}

func TestClockResumeHonorsFrames(t *testing.T) {
	hw := &fakeHardware{value: 0.25}
	c := NewClock(hw, &fakePlayer{tickLength: 1000})
	c.Initialize()

	n, err := c.Render(pcm.NewSink(make([]byte, pcm.BytesPerFrame)), 1000)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	big := pcm.NewSink(make([]byte, 16<<10))
	n, err = c.Render(big, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, 10*pcm.BytesPerFrame, big.Len())

	big.Reset(make([]byte, 16<<10))
	n, err = c.Render(big, 1000)
	require.NoError(t, err)
	assert.Equal(t, 989, n, "the rest of the pending pass")
	assert.Equal(t, []int{1000}, hw.segments)
}

func TestClockMixError(t *testing.T) {
	errBroken := errors.New("broken")
	hw := &fakeHardware{err: errBroken}
	c := NewClock(hw, &fakePlayer{})
	c.Initialize()

	_, err := c.Render(pcm.NewSink(make([]byte, 64)), 16)
	assert.ErrorIs(t, err, errBroken)
}

func TestClockEvents(t *testing.T) {
	c := NewClock(&fakeHardware{}, &fakePlayer{
		tickLength: 10,
		onTick: func(c *Clock, tick int) {
			c.Emit(NewNoteEvent(tick%4, 48+tick, tick, 0.5))
		},
	})

	var ticks []uint64
	var notes []int
	c.SetEventHandler(func(e StreamEvent) {
		switch e.Kind {
		case EventTick:
			ticks = append(ticks, e.TickEventData())
		case EventNote:
			note, inst, vol := e.NoteEventData()
			assert.Equal(t, note-48, inst)
			assert.Equal(t, float32(0.5), vol)
			assert.Equal(t, inst%4, e.Channel)
			notes = append(notes, note)
		}
	})
	c.Initialize()

	_, err := c.Render(pcm.NewSink(make([]byte, 4096)), 30)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 2}, ticks)
	assert.Equal(t, []int{49, 50, 51}, notes)
}

func TestClockRestart(t *testing.T) {
	hw := &fakeHardware{value: 0.1}
	c := NewClock(hw, &fakePlayer{tickLength: 70, endTick: 5})
	c.Initialize()
	first := renderAll(t, c, 128)

	c.Initialize()
	second := renderAll(t, c, 128)

	assert.Len(t, first, 5*70*pcm.BytesPerFrame)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, hw.resets)
}
