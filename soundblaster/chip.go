// Package soundblaster implements an N-voice variable-rate software mixer.
//
// Samples are stored as normalized floats and played back at an arbitrary
// speed. Two quality modes are available: Fast picks the nearest sample
// value, Accurate interpolates between values and crossfades retriggered
// voices to avoid clicks.
package soundblaster

import (
	"errors"

	"github.com/quasilyte/chipmix/arena"
	"github.com/quasilyte/chipmix/pcm"
)

// MaxVoices is the maximum number of voices a chip can have.
const MaxVoices = 32

const (
	defaultMemorySize = 4 << 20
	defaultTickLength = 882
)

var (
	// ErrTooManyVoices is returned when a chip is configured with more than MaxVoices voices.
	ErrTooManyVoices = errors.New("soundblaster: too many voices")

	// ErrVoiceIndex is returned for voice indexes outside of the chip voice range.
	ErrVoiceIndex = errors.New("soundblaster: voice index out of range")
)

// Quality is the mixing mode.
type Quality uint8

const (
	// Accurate uses linear interpolation, crossfades on retrigger
	// and slews volume and panning changes.
	Accurate Quality = iota

	// Fast uses the nearest sample value and applies
	// register changes instantly.
	Fast
)

func (q Quality) String() string {
	switch q {
	case Accurate:
		return "accurate"
	case Fast:
		return "fast"
	default:
		return "unknown"
	}
}

// Config configures the chip creation.
type Config struct {
	// Voices is the number of mixer voices.
	// A zero value means MaxVoices.
	Voices int

	// Quality selects the mixing mode.
	// A zero value means Accurate.
	Quality Quality

	// MemorySize is the sample memory capacity in values.
	// A zero value means 4M values.
	MemorySize int
}

// Chip is a variable-rate mixing backend.
type Chip struct {
	voices  [MaxVoices]Voice
	active  []Voice
	quality Quality

	mem *arena.Arena[float32]

	tickLength int
}

// NewChip allocates a chip with its sample memory.
func NewChip(config Config) (*Chip, error) {
	if config.Voices < 0 || config.Voices > MaxVoices {
		return nil, ErrTooManyVoices
	}
	if config.Voices == 0 {
		config.Voices = MaxVoices
	}
	if config.MemorySize <= 0 {
		config.MemorySize = defaultMemorySize
	}

	c := &Chip{
		quality:    config.Quality,
		mem:        arena.New[float32](config.MemorySize),
		tickLength: defaultTickLength,
	}
	c.active = c.voices[:config.Voices]
	for i := range c.active {
		v := &c.active[i]
		v.index = i
		v.quality = c.quality
	}
	c.Reset()
	return c, nil
}

// NumVoices returns the number of voices.
func (c *Chip) NumVoices() int { return len(c.active) }

// Voice returns the i-th voice.
func (c *Chip) Voice(i int) (*Voice, error) {
	if i < 0 || i >= len(c.active) {
		return nil, ErrVoiceIndex
	}
	return &c.active[i], nil
}

// Quality returns the mixing mode.
func (c *Chip) Quality() Quality { return c.quality }

// Memory returns the chip sample memory.
func (c *Chip) Memory() *arena.Arena[float32] { return c.mem }

// Reset silences every voice.
func (c *Chip) Reset() {
	for i := range c.active {
		v := &c.active[i]
		v.tickLength = c.tickLength
		v.Reset()
	}
}

// Freeze forbids further sample stores.
func (c *Chip) Freeze() { c.mem.Freeze() }

// TickLength returns the default tick length: 125 BPM.
func (c *Chip) TickLength() int { return defaultTickLength }

// SetTickLength sets the volume and panning slew length.
func (c *Chip) SetTickLength(samples int) {
	c.tickLength = samples
	for i := range c.active {
		c.active[i].tickLength = samples
	}
}

// Clip returns the full range clipping mode.
func (c *Chip) Clip() pcm.Clip { return pcm.ClipFull }

// Flush is a no-op: there is no output filter.
func (c *Chip) Flush([]pcm.Frame) {}

// Mix adds the output of every enabled voice into frames.
//
// Before mixing, the sample regions of every enabled voice are validated
// against the chip memory; an invalid region gives an *arena.RangeError.
func (c *Chip) Mix(frames []pcm.Frame) error {
	for i := range c.active {
		v := &c.active[i]
		if !v.enabled {
			continue
		}
		if err := c.mem.Check(v.sample.Offset, v.sample.Length+1); err != nil {
			return err
		}
		if v.hasOld && v.mixCounter != 0 {
			if err := c.mem.Check(v.oldSample.Offset, v.oldSample.Length+1); err != nil {
				return err
			}
		}
	}

	mem := c.mem.Data()
	for i := range c.active {
		v := &c.active[i]
		if !v.enabled {
			continue
		}
		data := sampleData(mem, v.sample)
		if c.quality == Fast {
			v.mixFast(frames, data)
		} else {
			v.mixAccurate(frames, data, sampleData(mem, v.oldSample))
		}
	}
	return nil
}

func sampleData(mem []float32, s Sample) []float32 {
	end := s.Offset + s.Length + 1
	if s.Offset < 0 || end > len(mem) {
		return nil
	}
	return mem[s.Offset:end]
}
