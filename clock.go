package chipmix

import (
	"fmt"

	"github.com/quasilyte/chipmix/pcm"
)

// ClockState is a playback clock lifecycle state.
type ClockState uint8

const (
	StateIdle ClockState = iota
	StatePlaying
	StateCompleted
)

func (s ClockState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Clock schedules player ticks against the output sample stream.
//
// The player is invoked exactly once per tick boundary, the voices are
// mixed between the boundaries. When the player reports the song end,
// the clock finishes the current tick (possibly over several passes)
// and then stops producing frames, unless the song is set to loop.
type Clock struct {
	hw     Hardware
	player Player

	buf pcm.Buffer

	// Undrained [head, tail) window of buf.
	head int
	tail int

	samplesTick int
	samplesLeft int
	remains     int
	completed   bool
	loopSong    bool

	speed int
	tempo int

	state ClockState

	// Mixed frames counter since the last Initialize.
	position uint64
	ticks    uint64

	eventHandler func(e StreamEvent)
}

// NewClock binds a player to a hardware backend.
// Call Initialize before rendering.
func NewClock(hw Hardware, p Player) *Clock {
	return &Clock{
		hw:     hw,
		player: p,
	}
}

// Hardware returns the backend this clock drives.
func (c *Clock) Hardware() Hardware { return c.hw }

// Initialize resets the clock and the hardware and lets the player
// set up its initial state.
//
// It can be called again to restart the playback from the beginning.
func (c *Clock) Initialize() {
	c.buf.Clear()
	c.head = 0
	c.tail = 0
	c.samplesLeft = 0
	c.remains = 0
	c.completed = false
	c.speed = 0
	c.tempo = 0
	c.position = 0
	c.ticks = 0

	c.hw.Freeze()
	c.hw.Reset()
	c.setSamplesPerTick(c.hw.TickLength())
	c.state = StatePlaying
	c.player.Initialize(c)
}

// State reports the clock lifecycle state.
func (c *Clock) State() ClockState { return c.state }

// SetEventHandler installs a stream event listener.
// Players emit their events through the clock.
func (c *Clock) SetEventHandler(f func(e StreamEvent)) {
	c.eventHandler = f
}

// Emit forwards e to the installed event handler, if any.
// Time is filled in by the clock.
func (c *Clock) Emit(e StreamEvent) {
	if c.eventHandler == nil {
		return
	}
	e.Time = c.Time()
	c.eventHandler(e)
}

// Time returns the playback position in seconds.
func (c *Clock) Time() float64 {
	return float64(c.position) / SampleRate
}

// Ticks returns the number of processed ticks since Initialize.
func (c *Clock) Ticks() uint64 { return c.ticks }

// SetTempo sets the tick length from a tempo value (BPM in tracker terms).
// Non-positive values are ignored.
func (c *Clock) SetTempo(tempo int) {
	if tempo <= 0 {
		return
	}
	c.tempo = tempo
	c.setSamplesPerTick(TempoBase / tempo)
}

// Tempo returns the last tempo set with SetTempo.
func (c *Clock) Tempo() int { return c.tempo }

// SetSamplesPerTick overrides the tick length directly.
// When called from Player.Tick, it affects the tick being started.
func (c *Clock) SetSamplesPerTick(n int) {
	if n <= 0 {
		return
	}
	c.setSamplesPerTick(n)
}

func (c *Clock) setSamplesPerTick(n int) {
	c.samplesTick = max(n, 1)
	c.hw.SetTickLength(n)
}

// SamplesPerTick returns the current tick length.
func (c *Clock) SamplesPerTick() int { return c.samplesTick }

// SetSpeed stores the number of ticks per row.
// The clock itself does not interpret this value.
func (c *Clock) SetSpeed(speed int) { c.speed = speed }

// Speed returns the number of ticks per row.
func (c *Clock) Speed() int { return c.speed }

// SetLoopSong controls whether Complete stops the playback.
func (c *Clock) SetLoopSong(loop bool) { c.loopSong = loop }

// LoopSong reports the SetLoopSong value.
func (c *Clock) LoopSong() bool { return c.loopSong }

// Complete is called by a player when it reaches the song end.
// With song looping enabled it has no effect.
func (c *Clock) Complete() {
	c.completed = !c.loopSong
	if c.completed {
		c.Emit(StreamEvent{Kind: EventComplete})
	}
}

// Completed reports whether the song end was reached and every frame was delivered.
func (c *Clock) Completed() bool {
	return c.state == StateCompleted
}

// Render produces up to frames frames into the sink and reports how many were written.
//
// When the sink can't take the whole pass, the rest of it is kept and
// delivered by the following Render calls before anything new is mixed.
// A completed clock returns 0 without an error.
func (c *Clock) Render(sink *pcm.Sink, frames int) (int, error) {
	if frames < 0 || frames > pcm.ChunkSize {
		return 0, ErrChunkSize
	}
	if c.state == StateIdle {
		return 0, ErrNotInitialized
	}

	if c.head == c.tail {
		n, err := c.mix(frames)
		if err != nil {
			return 0, err
		}
		c.head = 0
		c.tail = n
	}

	end := min(c.tail, c.head+frames)
	n := pcm.Drain(c.buf.Frames(end)[c.head:], sink, c.hw.Clip())
	c.head += n
	if c.head == c.tail && c.completed && c.remains == 0 {
		c.state = StateCompleted
	}
	return n, nil
}

func (c *Clock) mix(size int) (int, error) {
	if c.completed {
		if c.remains == 0 {
			return 0, nil
		}
		size = min(size, c.remains)
		c.remains -= size
	}

	c.buf.Clear()
	limit := size
	mixed := 0
	for mixed < size {
		if c.samplesLeft == 0 {
			c.tick()
			if c.completed {
				// Finish the tick that raised the completion, the part
				// that does not fit into this pass is rendered by the next ones.
				size = mixed + c.samplesTick
				if size > limit {
					c.remains = size - limit
					size = limit
				}
			}
		}

		toMix := min(c.samplesLeft, size-mixed)
		if err := c.hw.Mix(c.buf.Frames(mixed + toMix)[mixed:]); err != nil {
			return 0, fmt.Errorf("mix tick %d: %w", c.ticks, err)
		}
		mixed += toMix
		c.samplesLeft -= toMix
		c.position += uint64(toMix)
	}

	c.hw.Flush(c.buf.Frames(mixed))
	return mixed, nil
}

func (c *Clock) tick() {
	if c.eventHandler != nil {
		c.Emit(StreamEvent{Kind: EventTick, value: c.ticks})
	}
	c.player.Tick(c)
	c.ticks++
	c.samplesLeft = c.samplesTick
}
