// Package amiga emulates a 4-voice fixed-period PCM sound chip.
//
// Voices fetch signed 8-bit samples from the chip memory at a rate defined
// by their period: a period of P makes a voice fetch Clock/P bytes per
// output sample. The mixed output goes through an analog filter model.
package amiga

import (
	"errors"

	"github.com/quasilyte/chipmix/arena"
	"github.com/quasilyte/chipmix/pcm"
)

const (
	// ClockPAL is the PAL chip clock expressed in output samples (at 44100 Hz) per period unit.
	ClockPAL = 80.4284580

	// ClockNTSC is the NTSC counterpart of ClockPAL.
	ClockNTSC = 81.1688208

	// TickPAL is the 50 Hz vertical blank tick length in samples.
	TickPAL = 882

	// TickNTSC is the 60 Hz vertical blank tick length in samples.
	TickNTSC = 735

	// NumVoices is the number of chip voices.
	NumVoices = 4

	// MinPeriod is the largest period that produces no output.
	MinPeriod = 60

	defaultMemorySize = 4 << 20
	triggerDelay      = 2
	silentLoopSize    = 4
)

// ErrVoiceIndex is returned for voice indexes outside of [0, NumVoices).
var ErrVoiceIndex = errors.New("amiga: voice index out of range")

// Config configures the chip creation.
type Config struct {
	// Model selects the output filter network.
	// A zero value means ModelA500.
	Model Model

	// Filter overrides the LED filter switch.
	// A zero value means FilterAuto.
	Filter FilterMode

	// NTSC selects the NTSC clock and vertical blank rate.
	// A zero value means PAL.
	NTSC bool

	// Mono disables the stereo panning of the voices.
	Mono bool

	// Separation scales the default LRRL panning of the voices.
	// A zero value means full separation.
	// The value is clamped in [0, 1].
	Separation float64

	// MemorySize is the chip memory capacity in bytes.
	// A zero value means 4 MiB.
	MemorySize int
}

// Chip is a 4-voice fixed-period mixing backend.
type Chip struct {
	voices [NumVoices]Voice

	mem    *arena.Arena[byte]
	filter Filter

	clock      float64
	tickLength int
	ntsc       bool
	master     float64
	separation float64

	// Offset of a short zero region that voices without a loop wrap to.
	silent int
}

// NewChip allocates a chip with its memory.
// The memory starts with a silent loop region; see SilentLoop.
func NewChip(config Config) *Chip {
	if config.MemorySize <= 0 {
		config.MemorySize = defaultMemorySize
	}
	separation := 1.0
	if config.Separation != 0 {
		separation = clamp(config.Separation, 0, 1)
	}
	if config.Mono {
		separation = 0
	}

	c := &Chip{
		mem:        arena.New[byte](config.MemorySize + silentLoopSize),
		clock:      ClockPAL,
		tickLength: TickPAL,
		ntsc:       config.NTSC,
		separation: separation,
	}
	if config.NTSC {
		c.clock = ClockNTSC
		c.tickLength = TickNTSC
	}
	c.filter.model = config.Model
	c.filter.Mode = config.Filter

	// The extra capacity was reserved for it above.
	c.silent, _ = c.mem.Store(nil, silentLoopSize, 0)

	for i := range c.voices {
		c.voices[i].index = i
	}
	c.SetMasterVolume(64)
	c.Reset()
	return c
}

// Memory returns the chip sample memory.
func (c *Chip) Memory() *arena.Arena[byte] { return c.mem }

// Store appends n bytes of src starting at pos to the chip memory.
// See arena.Arena.Store for the truncation rules.
func (c *Chip) Store(src []byte, n, pos int) (int, error) {
	return c.mem.Store(src, n, pos)
}

// SilentLoop returns the silent region that can be used as a loop of one-shot samples.
func (c *Chip) SilentLoop() (pointer, length int) {
	return c.silent, silentLoopSize
}

// Voice returns the i-th voice registers.
func (c *Chip) Voice(i int) (*Voice, error) {
	if i < 0 || i >= NumVoices {
		return nil, ErrVoiceIndex
	}
	return &c.voices[i], nil
}

// Filter returns the output filter state.
func (c *Chip) Filter() *Filter { return &c.filter }

// Clock returns the chip clock constant in use.
func (c *Chip) Clock() float64 { return c.clock }

// NTSC reports whether the NTSC timing is used.
func (c *Chip) NTSC() bool { return c.ntsc }

// SetMasterVolume sets the chip output level, clamped to [0, 64].
func (c *Chip) SetMasterVolume(v int) {
	// Four voices at full volume fit into [-1, 1] when panned
	// two to each side.
	c.master = float64(clamp(v, 0, 64)) / 64 * 0.25
}

// Reset restores voices and the filter to the power-on state.
func (c *Chip) Reset() {
	for i := range c.voices {
		v := &c.voices[i]
		panning := c.separation
		if i == 0 || i == 3 {
			panning = -panning
		}
		v.Reset(panning)
	}
	c.filter.Reset()
}

// Freeze forbids further memory stores.
func (c *Chip) Freeze() { c.mem.Freeze() }

// TickLength returns the vertical blank tick length.
func (c *Chip) TickLength() int { return c.tickLength }

// SetTickLength is a no-op: the voice registers are never slewed.
func (c *Chip) SetTickLength(int) {}

// Clip returns the symmetric clipping mode.
func (c *Chip) Clip() pcm.Clip { return pcm.ClipSymmetric }

// Flush applies the output filter.
func (c *Chip) Flush(frames []pcm.Frame) {
	c.filter.Process(frames)
}

// Mix adds the output of every enabled voice into frames.
//
// Before mixing, the live and loop regions of every enabled voice are
// validated against the chip memory; an invalid region gives an
// *arena.RangeError and nothing is mixed.
func (c *Chip) Mix(frames []pcm.Frame) error {
	for i := range c.voices {
		if err := c.checkVoice(&c.voices[i]); err != nil {
			return err
		}
	}

	mem := c.mem.Data()
	for i := range c.voices {
		v := &c.voices[i]
		if !v.enabled || v.period <= MinPeriod {
			continue
		}

		step := float64(v.period) / c.clock
		gain := float64(v.volume) / 64 * c.master
		lvol := gain * (1 - v.Panning)
		rvol := gain * (1 + v.Panning)

		for j := range frames {
			if v.delay > 0 {
				v.delay--
			} else if v.timer--; v.timer < 1.0 {
				if v.loc >= v.end {
					v.wrap(c.silent)
				}
				if v.Mute {
					v.ldata = 0
					v.rdata = 0
				} else {
					value := float64(int8(mem[v.loc])) / 128
					v.ldata = value * lvol
					v.rdata = value * rvol
				}
				v.loc++
				v.timer += step
				if v.loc >= v.end {
					v.wrap(c.silent)
				}
			}
			frames[j].L += v.ldata
			frames[j].R += v.rdata
		}
	}

	return nil
}

func (c *Chip) checkVoice(v *Voice) error {
	if !v.enabled || v.period <= MinPeriod {
		return nil
	}
	if v.loc < v.end {
		if err := c.mem.Check(v.loc, v.end-v.loc); err != nil {
			return err
		}
	}
	if v.LoopLength != 0 {
		if v.LoopLength < 0 {
			return &arena.RangeError{Offset: v.LoopPointer, Length: v.LoopLength, Len: c.mem.Len()}
		}
		if err := c.mem.Check(v.LoopPointer, v.LoopLength); err != nil {
			return err
		}
	}
	return nil
}
