// Package xm implements a FastTracker II module player.
//
// The player compiles an xmfile.Module: it decodes the samples into the
// soundblaster chip memory and prepares the patterns. Then it drives the chip
// voices through a chipmix.Clock, one call per tick:
//
//	chip, _ := soundblaster.NewChip(soundblaster.Config{})
//	player, err := xm.NewPlayer(chip, m, xm.Config{})
//	stream, err := chipmix.NewStream(chip, player, chipmix.StreamConfig{})
package xm

import (
	"errors"
	"fmt"

	"github.com/quasilyte/chipmix"
	"github.com/quasilyte/chipmix/soundblaster"
	"github.com/quasilyte/chipmix/xmfile"
)

// Config configures the module loading.
//
// These settings can't be changed after a module is loaded.
type Config struct {
	// BPM sets the playback speed.
	// Higher BPM will make the music play faster.
	//
	// A zero value will use the XM module default BPM value.
	// If that value is zero as well, a value of 120 will be used.
	BPM uint

	// Tempo (called "Spd" in MilkyTracker) specifies the number of ticks per pattern row.
	// Perhaps a bit counter-intuitively, higher values make
	// the song play slower as there are more resolution steps inside a
	// single pattern row.
	//
	// A zero value will use the XM module default Tempo value.
	// If that value is zero as well, a value of 6 will be used.
	// (6 is a default value in MilkyTracker.)
	Tempo uint
}

// Player replays a compiled XM module on a soundblaster chip.
// It implements chipmix.Player.
type Player struct {
	module module

	channels []channel

	order        int
	position     int
	nextOrder    int
	nextPosition int

	tick          int
	ticksPerRow   int
	patternDelay  int
	patternOffset int
	songEnd       bool

	// Global volume in [0, 64].
	master        int
	masterChanged bool

	volumeScaling float64
}

// NewPlayer compiles m and stores its samples in the chip memory.
//
// The chip must have at least m.NumChannels voices and its memory
// must not be frozen yet: load all the modules for a chip before
// the playback starts.
func NewPlayer(chip *soundblaster.Chip, m *xmfile.Module, config Config) (*Player, error) {
	applyConfigDefaults(m, &config)

	compiled, err := compileModule(chip, m, moduleConfig{
		bpm:   config.BPM,
		tempo: config.Tempo,
	})
	if err != nil {
		return nil, err
	}
	if len(compiled.patternOrder) == 0 {
		return nil, errors.New("empty pattern order")
	}

	return newPlayer(chip, compiled)
}

func newPlayer(chip *soundblaster.Chip, compiled module) (*Player, error) {
	p := &Player{
		module:        compiled,
		channels:      make([]channel, compiled.numChannels),
		volumeScaling: 0.8,
	}
	for i := range p.channels {
		v, err := chip.Voice(i)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}
		p.channels[i].id = i
		p.channels[i].voice = v
	}
	return p, nil
}

func applyConfigDefaults(m *xmfile.Module, config *Config) {
	if config.BPM == 0 {
		config.BPM = uint(m.DefaultBPM)
		if config.BPM == 0 {
			config.BPM = 120
		}
	}
	if config.Tempo == 0 {
		config.Tempo = uint(m.DefaultTempo)
		if config.Tempo == 0 {
			config.Tempo = 6
		}
	}
}

// SetVolume adjusts the global volume scaling for the player.
// The default value is 0.8; a value of 0 disables the sound.
// The value is clamped in [0, 1].
func (p *Player) SetVolume(v float64) {
	p.volumeScaling = clamp(v, 0, 1)
	p.masterChanged = true
}

// NumChannels returns the number of pattern channels.
func (p *Player) NumChannels() int { return len(p.channels) }

// SongLength returns the pattern order length.
func (p *Player) SongLength() int { return len(p.module.patternOrder) }

// Position returns the current order index and the pattern row.
func (p *Player) Position() (order, row int) { return p.order, p.position }

// Initialize implements chipmix.Player.
func (p *Player) Initialize(c *chipmix.Clock) {
	for i := range p.channels {
		p.channels[i].Reset()
	}

	p.order = 0
	p.position = 0
	p.nextOrder = -1
	p.nextPosition = -1
	p.tick = 0
	p.patternDelay = 0
	p.patternOffset = 0
	p.songEnd = false
	p.master = 64
	p.masterChanged = false

	p.setTicksPerRow(c, p.module.ticksPerRow)
	c.SetTempo(p.module.bpm)
}

func (p *Player) setTicksPerRow(c *chipmix.Clock, n int) {
	p.ticksPerRow = n
	c.SetSpeed(n)
}

// Tick implements chipmix.Player.
func (p *Player) Tick(c *chipmix.Clock) {
	if p.tick == 0 {
		p.processRow(c)
	} else {
		p.processTick()
	}
	p.advance(c)
	p.updateVoices()
}

func (p *Player) currentRow() []uint16 {
	pat := p.module.patternOrder[p.order]
	return pat.row(p.position, p.module.numChannels)
}

func (p *Player) advance(c *chipmix.Clock) {
	p.tick++
	if p.tick < p.ticksPerRow+p.patternDelay {
		return
	}
	p.tick = 0
	p.patternDelay = 0

	if p.nextPosition < 0 {
		p.nextPosition = p.position + 1
		if p.nextPosition >= p.module.patternOrder[p.order].numRows {
			p.nextOrder = p.order + 1
			p.nextPosition = p.patternOffset
			if p.nextOrder >= len(p.module.patternOrder) {
				p.songEnd = true
			}
		}
	}

	if p.songEnd {
		p.songEnd = false
		p.nextOrder = p.module.restart
		p.nextPosition = 0
		p.patternOffset = 0
		c.Complete()
	}
}

func (p *Player) selectRow() {
	if p.nextOrder >= 0 {
		p.order = p.nextOrder
	}
	if p.nextPosition >= 0 {
		p.position = p.nextPosition
	}
	p.nextOrder = -1
	p.nextPosition = -1

	if p.position >= p.module.patternOrder[p.order].numRows {
		p.position = 0
	}
}

// updateVoices writes the channel state into the chip voice registers.
func (p *Player) updateVoices() {
	for i := range p.channels {
		ch := &p.channels[i]
		flags := ch.flags
		ch.flags = 0
		if p.masterChanged {
			flags |= updateVolume
		}

		if flags&updateTrigger != 0 && ch.sample != nil {
			ch.voice.Trigger(ch.sample.data, ch.sampleOffset)
			ch.playing = ch.inst
			ch.sampleOffset = 0
		}

		inst := ch.playing
		autoVibrato := 0
		if inst != nil && inst.vibratoRate != 0 {
			autoVibrato = ch.autoVibrato(inst)
			flags |= updatePeriod
		}

		volume := ch.volume + ch.volDelta
		if inst != nil && inst.volumeEnvelope.enabled() {
			if ch.volumeEnabled && !ch.volumeEnvelope.stopped {
				ch.volumeEnvelope.step(&inst.volumeEnvelope, ch.fadeEnabled)
			}
			volume = (volume * ch.volumeEnvelope.value) >> 6
			flags |= updateVolume

			if ch.fadeEnabled {
				ch.fadeVolume -= ch.fadeDelta
				if ch.fadeVolume < 0 {
					volume = 0
					ch.fadeVolume = 0
					ch.fadeEnabled = false
					ch.volumeEnvelope.value = 0
					ch.volumeEnvelope.stopped = true
					ch.panningEnvelope.stopped = true
				} else {
					volume = (volume * ch.fadeVolume) >> 16
				}
			}
		} else if ch.keyoff {
			volume = 0
			flags |= updateVolume
		}

		panning := ch.panning
		if inst != nil && inst.panningEnvelope.enabled() {
			if ch.panningEnabled && !ch.panningEnvelope.stopped {
				ch.panningEnvelope.step(&inst.panningEnvelope, ch.fadeEnabled)
			}
			// The envelope moves the panning within the space left
			// around the channel panning.
			env := ch.panningEnvelope.value - 32
			panning += env * (128 - abs(panning-128)) / 32
			panning = clamp(panning, 0, 255)
			flags |= updatePanning
		}

		if flags&updateVolume != 0 {
			volume = (clamp(volume, 0, 64) * p.master) >> 6
			gain := float64(volume) / 64 * p.volumeScaling
			if flags&updatePanning != 0 {
				ch.voice.SetVolumePanning(gain, panning)
			} else {
				ch.voice.SetVolume(gain)
			}
		} else if flags&updatePanning != 0 {
			ch.voice.SetPanning(panning)
		}

		if flags&updatePeriod != 0 {
			period := ch.period + ch.arpDelta + ch.vibDelta + autoVibrato
			ch.voice.SetSpeed(periodSpeed(p.module.linear, period))
		}
	}
	p.masterChanged = false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
