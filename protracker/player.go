// Package protracker implements a ProTracker module player.
//
// The player stores the module samples in the amiga chip memory and
// drives the chip voices through a chipmix.Clock:
//
//	chip := amiga.NewChip(amiga.Config{})
//	player, err := protracker.NewPlayer(chip, m, protracker.Config{})
//	stream, err := chipmix.NewStream(chip, player, chipmix.StreamConfig{})
//
// Karplus-strong (E8) and invert loop (EF) effects modify the sample
// memory during the playback; they are ignored.
package protracker

import (
	"errors"

	"github.com/quasilyte/chipmix"
	"github.com/quasilyte/chipmix/amiga"
	"github.com/quasilyte/chipmix/modfile"
)

// Version selects the replay routine quirks.
type Version uint8

const (
	// VersionAuto picks the version from the effects the module uses.
	VersionAuto Version = iota

	Version10
	Version11
	Version12
)

func (v Version) String() string {
	switch v {
	case VersionAuto:
		return "auto"
	case Version10:
		return "1.0"
	case Version11:
		return "1.1"
	case Version12:
		return "1.2"
	default:
		return "unknown"
	}
}

// Config configures the module loading.
type Config struct {
	// Version forces the replay routine version.
	// Version 1.0 has a twice as deep vibrato.
	//
	// A zero value means VersionAuto.
	Version Version
}

const (
	defaultSpeed = 6
	defaultTempo = 125
)

// Player replays a ProTracker module on an amiga chip.
// It implements chipmix.Player.
type Player struct {
	module module
	filter *amiga.Filter

	channels [modfile.NumChannels]channel

	orderPos int
	row      int
	tick     int
	speed    int

	breakRow     int
	patternBreak bool
	jump         bool
	jumpOrder    int
	patternDelay int

	vibratoShift uint
}

// NewPlayer stores the m samples in the chip memory.
//
// The chip memory must not be frozen yet: load all the modules for a chip
// before the playback starts.
func NewPlayer(chip *amiga.Chip, m *modfile.Module, config Config) (*Player, error) {
	compiled, err := compileModule(chip, m, config.Version)
	if err != nil {
		return nil, err
	}
	if len(compiled.order) == 0 {
		return nil, errors.New("empty pattern order")
	}

	p := &Player{
		module: compiled,
		filter: chip.Filter(),
	}
	for i := range p.channels {
		v, err := chip.Voice(i)
		if err != nil {
			return nil, err
		}
		p.channels[i].id = i
		p.channels[i].voice = v
	}
	return p, nil
}

// Version returns the replay routine version in use.
func (p *Player) Version() Version { return p.module.version }

// NumChannels returns the number of pattern channels.
func (p *Player) NumChannels() int { return len(p.channels) }

// SongLength returns the pattern order length.
func (p *Player) SongLength() int { return len(p.module.order) }

// Position returns the current order index and the pattern row.
func (p *Player) Position() (order, row int) { return p.orderPos, p.row }

// Initialize implements chipmix.Player.
func (p *Player) Initialize(c *chipmix.Clock) {
	silent := &p.module.samples[0]
	for i := range p.channels {
		p.channels[i].Reset(silent)
	}

	p.orderPos = 0
	p.row = 0
	p.tick = 0
	p.breakRow = 0
	p.patternBreak = false
	p.jump = false
	p.jumpOrder = -1
	p.patternDelay = 0

	p.vibratoShift = 7
	if p.module.version == Version10 {
		p.vibratoShift = 6
	}

	p.filter.Active = false
	p.setSpeed(c, defaultSpeed)
	c.SetTempo(defaultTempo)
}

func (p *Player) setSpeed(c *chipmix.Clock, speed int) {
	p.speed = speed
	c.SetSpeed(speed)
}

// Tick implements chipmix.Player.
func (p *Player) Tick(c *chipmix.Clock) {
	switch {
	case p.tick != 0:
		p.processTick(c)
	case p.patternDelay != 0:
		// The delayed row only repeats its tick effects.
		p.processTick(c)
	default:
		p.processRow(c)
	}
	p.advance(c)
}

func (p *Player) advance(c *chipmix.Clock) {
	p.tick++
	if p.tick < p.speed {
		return
	}
	p.tick = 0
	p.row++

	if p.patternDelay != 0 {
		p.patternDelay--
		if p.patternDelay != 0 {
			p.row--
		}
	}

	if p.patternBreak {
		p.patternBreak = false
		p.row = p.breakRow
		p.breakRow = 0
	}

	if p.row < modfile.NumRows && !p.jump {
		return
	}

	p.row = p.breakRow
	p.breakRow = 0
	if p.jump && p.jumpOrder >= 0 {
		p.orderPos = p.jumpOrder
	} else {
		p.orderPos++
	}
	p.jump = false
	p.jumpOrder = -1

	if p.orderPos >= len(p.module.order) {
		p.orderPos = 0
		c.Complete()
	}
}

func (p *Player) currentRow() *[modfile.NumChannels]modfile.Note {
	pat := &p.module.patterns[p.module.order[p.orderPos]]
	return &pat.Rows[p.row]
}
