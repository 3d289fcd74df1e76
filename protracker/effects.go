package protracker

import (
	"github.com/quasilyte/chipmix"
	"github.com/quasilyte/chipmix/modfile"
)

func (p *Player) processRow(c *chipmix.Clock) {
	row := p.currentRow()

	for i := range p.channels {
		ch := &p.channels[i]
		ch.trigger = false

		// A vibrato or an arpeggio of the previous row could leave
		// the voice with a modified period.
		if ch.cell.IsEmpty() {
			ch.voice.SetPeriod(ch.period)
		}

		n := row[i]
		ch.cell = n
		ch.effect = n.Effect
		ch.param = n.Param

		if n.Sample != 0 {
			ch.setSample(n.Sample, &p.module.samples[n.Sample])
			ch.setVolume(ch.sample.volume)
		}

		if n.Period == 0 {
			p.moreEffects(c, ch)
			continue
		}

		switch {
		case ch.effect == 0xE && ch.param>>4 == 0x5:
			ch.finetune = int(ch.param&0x0f) * periodRowSize
		case ch.effect == 0x3 || ch.effect == 0x5:
			// The note is a portamento target, the playing note continues.
			ch.setPortaTarget(n.Period)
			p.moreEffects(c, ch)
			continue
		case ch.effect == 0x9:
			p.moreEffects(c, ch)
		}

		ch.period = ch.notePeriod(periodIndex(n.Period, 0))

		if ch.effect == 0xE && ch.param>>4 == 0xD {
			p.extended(c, ch)
			continue
		}

		if ch.vibratoWave < 4 {
			ch.vibratoPos = 0
		}
		if ch.tremoloWave < 4 {
			ch.tremoloPos = 0
		}

		v := ch.voice
		v.SetEnabled(false)
		v.Pointer = ch.pointer
		v.Length = ch.length
		v.SetPeriod(ch.period)
		ch.trigger = true

		c.Emit(chipmix.NewNoteEvent(ch.id, ch.noteIndex(ch.period)+1, ch.sampleID-1, float32(ch.volume)/64))

		p.moreEffects(c, ch)
	}

	for i := range p.channels {
		ch := &p.channels[i]
		if ch.trigger {
			ch.voice.SetEnabled(true)
		}
		ch.voice.LoopPointer = ch.loopPointer
		ch.voice.LoopLength = ch.loopLength
	}
}

func (ch *channel) setPortaTarget(period int) {
	if period == ch.period {
		ch.portaPeriod = 0
		return
	}
	i := ch.noteIndex(period)
	if i > 0 && ch.finetune/periodRowSize >= 8 {
		i--
	}
	ch.portaPeriod = ch.notePeriod(i)
	ch.portaUp = ch.portaPeriod < ch.period
	if ch.portaPeriod == ch.period {
		ch.portaPeriod = 0
	}
}

// moreEffects runs the effects that are applied at the row start.
func (p *Player) moreEffects(c *chipmix.Clock, ch *channel) {
	switch ch.effect {
	case 0x9: // Sample offset
		if ch.param != 0 {
			ch.offset = int(ch.param)
		}
		offset := ch.offset << 8
		if offset >= ch.length {
			ch.length = 2
		} else {
			ch.pointer += offset
			ch.length -= offset
		}

	case 0xB: // Position jump
		p.jumpOrder = int(ch.param)
		p.breakRow = 0
		p.jump = true

	case 0xC: // Set volume
		ch.setVolume(int(ch.param))

	case 0xD: // Pattern break
		row := int(ch.param>>4)*10 + int(ch.param&0x0f)
		if row >= modfile.NumRows {
			row = 0
		}
		p.breakRow = row
		p.jump = true

	case 0xE:
		p.extended(c, ch)

	case 0xF: // Set speed or tempo
		switch {
		case ch.param == 0:
			// Ignored.
		case ch.param < 32:
			p.setSpeed(c, int(ch.param))
		default:
			c.SetTempo(int(ch.param))
		}
	}
}

// processTick runs the effects for every tick except the row start.
func (p *Player) processTick(c *chipmix.Clock) {
	for i := range p.channels {
		ch := &p.channels[i]

		if ch.effect == 0 && ch.param == 0 {
			ch.voice.SetPeriod(ch.period)
			continue
		}

		switch ch.effect {
		case 0x0: // Arpeggio
			step := p.tick % 3
			if step == 0 {
				ch.voice.SetPeriod(ch.period)
				continue
			}
			x := int(ch.param >> 4)
			if step == 2 {
				x = int(ch.param & 0x0f)
			}
			ch.voice.SetPeriod(ch.notePeriod(ch.noteIndex(ch.period) + x))

		case 0x1: // Portamento up
			ch.slidePeriod(-int(ch.param))

		case 0x2: // Portamento down
			ch.slidePeriod(int(ch.param))

		case 0x3: // Tone portamento
			if ch.param != 0 {
				ch.portaSpeed = int(ch.param)
				ch.param = 0
			}
			ch.tonePortamento()

		case 0x5: // Tone portamento + volume slide
			ch.tonePortamento()
			ch.volumeSlide()

		case 0x4: // Vibrato
			ch.vibrato(p.vibratoShift)

		case 0x6: // Vibrato + volume slide
			ch.vibrato(p.vibratoShift)
			ch.volumeSlide()

		case 0x7: // Tremolo
			ch.tremolo()

		case 0xA: // Volume slide
			ch.volumeSlide()

		case 0xE:
			p.extended(c, ch)
		}
	}
}

func (p *Player) extended(c *chipmix.Clock, ch *channel) {
	x := int(ch.param & 0x0f)

	switch ch.param >> 4 {
	case 0x0: // Set filter
		// E00 turns the LED (and its filter) on.
		p.filter.Active = x&1 == 0

	case 0x1: // Fine portamento up
		if p.tick == 0 {
			ch.slidePeriod(-x)
		}

	case 0x2: // Fine portamento down
		if p.tick == 0 {
			ch.slidePeriod(x)
		}

	case 0x3: // Glissando control
		ch.glissando = x != 0

	case 0x4: // Vibrato control
		ch.vibratoWave = x

	case 0x5: // Set finetune
		ch.finetune = x * periodRowSize

	case 0x6: // Pattern loop
		if p.tick != 0 {
			return
		}
		if x == 0 {
			ch.loopRow = p.row
			return
		}
		if ch.loopCounter != 0 {
			ch.loopCounter--
		} else {
			ch.loopCounter = x
		}
		if ch.loopCounter != 0 {
			p.breakRow = ch.loopRow
			p.patternBreak = true
		}

	case 0x7: // Tremolo control
		ch.tremoloWave = x

	case 0x9: // Retrigger note
		if x == 0 || ch.period == 0 || p.tick%x != 0 {
			return
		}
		if p.tick == 0 && ch.cell.Period != 0 {
			// The row start has already triggered it.
			return
		}
		ch.restart()

	case 0xA: // Fine volume slide up
		if p.tick == 0 {
			ch.setVolume(ch.volume + x)
		}

	case 0xB: // Fine volume slide down
		if p.tick == 0 {
			ch.setVolume(ch.volume - x)
		}

	case 0xC: // Note cut
		if p.tick == x {
			ch.setVolume(0)
		}

	case 0xD: // Note delay
		if p.tick != x || ch.period == 0 {
			return
		}
		ch.restart()
		c.Emit(chipmix.NewNoteEvent(ch.id, ch.noteIndex(ch.period)+1, ch.sampleID-1, float32(ch.volume)/64))

	case 0xE: // Pattern delay
		if p.tick != 0 || p.patternDelay != 0 {
			return
		}
		p.patternDelay = x + 1
	}
}
