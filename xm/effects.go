package xm

import (
	"github.com/quasilyte/chipmix"
	"github.com/quasilyte/chipmix/internal/xmdb"
	"github.com/quasilyte/chipmix/xmfile"
)

// processRow handles the first tick of a row: new notes, instruments
// and the row effects.
func (p *Player) processRow(c *chipmix.Clock) {
	p.selectRow()

	jumped := false
	for i, id := range p.currentRow() {
		ch := &p.channels[i]
		n := &p.module.noteTab[id]

		ch.keyoff = false
		ch.delay = 0
		if ch.arpDelta != 0 {
			ch.arpDelta = 0
			ch.flags |= updatePeriod
		}
		if ch.volDelta != 0 && n.effect.Op != xmdb.EffectTremolo {
			ch.volDelta = 0
			ch.flags |= updateVolume
		}

		if n.instrument != 0 {
			ch.inst = nil
			if int(n.instrument) <= len(p.module.instruments) {
				ch.inst = &p.module.instruments[n.instrument-1]
			}
			ch.volumeEnvelope.Reset()
			ch.panningEnvelope.Reset()
			ch.flags |= updateVolume | updatePanning
		} else if n.note == xmfile.KeyOffNote || (n.effect.Op == xmdb.EffectKeyOff && n.effect.Arg == 0) {
			ch.keyOff()
		}

		if n.hasNote() {
			p.noteOn(c, ch, n)
		} else if ch.vibratoReset {
			if n.effect.Op != xmdb.EffectVibrato && n.effect.Op != xmdb.EffectVibratoWithVolumeSlide {
				ch.vibDelta = 0
				ch.vibratoReset = false
				ch.flags |= updatePeriod
			}
		}

		p.applyVolumeColumn(ch, n.volEffect)
		if p.applyRowEffect(c, ch, n, jumped) {
			jumped = true
		}
	}
}

func (p *Player) noteOn(c *chipmix.Clock, ch *channel, n *patternNote) {
	inst := ch.inst
	if inst == nil {
		ch.volume = 0
		ch.flags = updateVolume
		return
	}

	note := int(n.note) - 1
	s := inst.sampleForNote(note)
	if s == nil {
		ch.volume = 0
		ch.flags = updateVolume
		return
	}
	note += s.relativeNote
	if note < lowestNote || note > highestNote {
		return
	}

	porta := n.usesTonePortamento()
	if !porta {
		ch.note = note
		ch.sample = s
		if n.instrument != 0 {
			ch.volumeEnabled = inst.volumeEnvelope.enabled()
			ch.panningEnabled = inst.panningEnvelope.enabled()
			ch.flags |= updateAll
		} else {
			ch.flags |= updatePeriod | updateTrigger
		}
	}

	if n.instrument != 0 {
		ch.resetNote()
		ch.fadeDelta = inst.fadeout
	} else {
		ch.finetune = (s.finetune >> 3) << 2
	}

	if n.effect.Op == xmdb.EffectSetFinetune {
		ch.finetune = (int(n.effect.Arg) - 8) << 3
	}

	period := notePeriod(p.module.linear, note, ch.finetune)
	if porta {
		ch.portaPeriod = period
	} else {
		ch.period = period
		ch.glissPeriod = 0
	}

	if !porta {
		c.Emit(chipmix.NewNoteEvent(ch.id, int(n.note), inst.id, float32(ch.volume)/64))
	}
}

func (p *Player) applyVolumeColumn(ch *channel, e xmdb.Effect) {
	switch e.Op {
	case xmdb.EffectSetVolume:
		ch.setVolume(int(e.Arg))
	case xmdb.EffectFineVolumeSlideDown:
		ch.setVolume(ch.volume - int(e.Arg))
	case xmdb.EffectFineVolumeSlideUp:
		ch.setVolume(ch.volume + int(e.Arg))
	case xmdb.EffectSetVibratoSpeed:
		if e.Arg != 0 {
			ch.vibratoSpeed = int(e.Arg)
		}
	case xmdb.EffectVibrato:
		if e.Arg != 0 {
			ch.vibratoDepth = int(e.Arg) << 2
		}
	case xmdb.EffectSetPanning:
		ch.setPanning(int(e.Arg))
	case xmdb.EffectNotePortamento:
		if e.Arg != 0 {
			ch.portaSpeed = int(e.Arg)
		}
	}
}

// applyRowEffect runs the first tick part of the row effect.
// It reports whether a position jump was performed.
func (p *Player) applyRowEffect(c *chipmix.Clock, ch *channel, n *patternNote, jumped bool) bool {
	e := n.effect
	arg := int(e.Arg)
	x, y := int(e.X()), int(e.Y())

	switch e.Op {
	case xmdb.EffectPortamentoUp:
		if arg != 0 {
			ch.portaUp = arg << 2
		}

	case xmdb.EffectPortamentoDown:
		if arg != 0 {
			ch.portaDown = arg << 2
		}

	case xmdb.EffectNotePortamento:
		if arg != 0 && n.volEffect.Op != xmdb.EffectNotePortamento {
			ch.portaSpeed = arg
		}

	case xmdb.EffectVibrato:
		ch.vibratoReset = true

	case xmdb.EffectNotePortamentoWithVolumeSlide:
		if arg != 0 {
			ch.volSlide = e.Arg
		}

	case xmdb.EffectVibratoWithVolumeSlide:
		if arg != 0 {
			ch.volSlide = e.Arg
		}
		ch.vibratoReset = true

	case xmdb.EffectTremolo:
		if x != 0 {
			ch.tremoloSpeed = x
		}
		if y != 0 {
			ch.tremoloDepth = y
		}

	case xmdb.EffectSetPanning:
		ch.setPanning(arg)

	case xmdb.EffectSampleOffset:
		if arg != 0 {
			ch.sampleOffset = arg << 8
		}
		if ch.sample == nil || ch.sampleOffset >= ch.sample.data.Length {
			ch.volume = 0
			ch.sampleOffset = 0
			ch.flags &^= updatePeriod | updateTrigger
			ch.flags |= updateVolume
		}

	case xmdb.EffectVolumeSlide:
		if arg != 0 {
			ch.volSlide = e.Arg
		}

	case xmdb.EffectPositionJump:
		p.nextOrder = arg
		p.nextPosition = 0
		if p.nextOrder >= len(p.module.patternOrder) {
			p.songEnd = true
		}
		p.patternOffset = 0
		return true

	case xmdb.EffectSetVolume:
		ch.setVolume(arg)

	case xmdb.EffectPatternBreak:
		p.nextPosition = x*10 + y
		p.patternOffset = 0
		if !jumped {
			p.nextOrder = p.order + 1
			if p.nextOrder >= len(p.module.patternOrder) {
				p.songEnd = true
			}
		}

	case xmdb.EffectFinePortamentoUp:
		if arg != 0 {
			ch.finePortaUp = arg << 2
		}
		ch.setPeriod(ch.period - ch.finePortaUp)

	case xmdb.EffectFinePortamentoDown:
		if arg != 0 {
			ch.finePortaDown = arg << 2
		}
		ch.setPeriod(ch.period + ch.finePortaDown)

	case xmdb.EffectGlissandoControl:
		ch.glissando = arg != 0

	case xmdb.EffectVibratoControl:
		ch.waveControl = (ch.waveControl & 0xf0) | arg

	case xmdb.EffectPatternLoop:
		if arg == 0 {
			ch.patternLoopRow = p.position
			p.patternOffset = p.position
			break
		}
		if ch.patternLoop == 0 {
			ch.patternLoop = arg
		} else {
			ch.patternLoop--
		}
		if ch.patternLoop != 0 {
			p.nextPosition = ch.patternLoopRow
		}

	case xmdb.EffectTremoloControl:
		ch.waveControl = (ch.waveControl & 0x0f) | (arg << 4)

	case xmdb.EffectFineVolumeSlideUp:
		if arg != 0 {
			ch.fineSlideUp = arg
		}
		ch.setVolume(ch.volume + ch.fineSlideUp)

	case xmdb.EffectFineVolumeSlideDown:
		if arg != 0 {
			ch.fineSlideDown = arg
		}
		ch.setVolume(ch.volume - ch.fineSlideDown)

	case xmdb.EffectNoteDelay:
		ch.delay = ch.flags
		ch.flags = 0

	case xmdb.EffectPatternDelay:
		p.patternDelay = arg * p.ticksPerRow

	case xmdb.EffectSetSpeed:
		if arg < 32 {
			p.setTicksPerRow(c, arg)
		} else {
			c.SetTempo(arg)
		}

	case xmdb.EffectSetGlobalVolume:
		p.master = min(arg, 64)
		p.masterChanged = true

	case xmdb.EffectGlobalVolumeSlide:
		if arg != 0 {
			ch.globalVolSlide = e.Arg
		}

	case xmdb.EffectSetEnvelopePos:
		if ch.inst == nil || !ch.inst.volumeEnvelope.enabled() {
			break
		}
		ch.volumeEnvelope.seek(&ch.inst.volumeEnvelope, arg)

	case xmdb.EffectPanningSlide:
		if arg != 0 {
			ch.panSlide = e.Arg
		}

	case xmdb.EffectMultiRetrig:
		if x != 0 {
			ch.retrigX = x
		}
		if y != 0 {
			ch.retrigY = y
		}

	case xmdb.EffectTremor:
		if arg != 0 {
			ch.tremorOn = x + 1
			ch.tremorOff = y + 1 + ch.tremorOn
		}

	case xmdb.EffectExtraFinePortamentoUp:
		if arg != 0 {
			ch.xtraPortaUp = arg
		}
		ch.setPeriod(ch.period - ch.xtraPortaUp)

	case xmdb.EffectExtraFinePortamentoDown:
		if arg != 0 {
			ch.xtraPortaDown = arg
		}
		ch.setPeriod(ch.period + ch.xtraPortaDown)
	}

	return false
}

// processTick handles the row effects on the non-first ticks.
func (p *Player) processTick() {
	for i, id := range p.currentRow() {
		ch := &p.channels[i]
		n := &p.module.noteTab[id]

		if ch.delay != 0 {
			if n.effect.Op != xmdb.EffectNoteDelay || int(n.effect.Arg) != p.tick {
				continue
			}
			ch.flags = ch.delay
			ch.delay = 0
		}

		p.applyVolumeColumnTick(ch, n.volEffect)
		p.applyTickEffect(ch, n)
	}
}

func (p *Player) applyVolumeColumnTick(ch *channel, e xmdb.Effect) {
	switch e.Op {
	case xmdb.EffectVolumeSlideDown:
		ch.setVolume(ch.volume - int(e.Arg))
	case xmdb.EffectVolumeSlideUp:
		ch.setVolume(ch.volume + int(e.Arg))
	case xmdb.EffectVibrato:
		ch.vibrato()
	case xmdb.EffectPanningSlideLeft:
		ch.setPanning(ch.panning - int(e.Arg))
	case xmdb.EffectPanningSlideRight:
		ch.setPanning(ch.panning + int(e.Arg))
	case xmdb.EffectNotePortamento:
		if ch.portaPeriod != 0 {
			ch.tonePortamento()
		}
	}
}

func (p *Player) applyTickEffect(ch *channel, n *patternNote) {
	e := n.effect
	x, y := int(e.X()), int(e.Y())
	slide := false

	switch e.Op {
	case xmdb.EffectArpeggio:
		step := (p.tick - p.ticksPerRow) % 3
		if step < 0 {
			step += 3
		}
		// A FastTracker II quirk.
		if p.tick == 2 && p.ticksPerRow == 18 {
			step = 0
		}
		semitones := 0
		switch step {
		case 1:
			semitones = y
		case 2:
			semitones = x
		}
		if p.module.linear {
			ch.arpDelta = -(semitones << 6)
		} else {
			ch.arpDelta = amigaPeriod(ch.note+semitones, ch.finetune) - ch.period
		}
		if semitones == 0 {
			ch.arpDelta = 0
		}
		ch.flags |= updatePeriod

	case xmdb.EffectPortamentoUp:
		ch.setPeriod(ch.period - ch.portaUp)

	case xmdb.EffectPortamentoDown:
		ch.setPeriod(ch.period + ch.portaDown)

	case xmdb.EffectNotePortamento:
		if ch.portaPeriod != 0 {
			ch.tonePortamento()
		}

	case xmdb.EffectVibrato:
		if x != 0 {
			ch.vibratoSpeed = x
		}
		if y != 0 {
			ch.vibratoDepth = y << 2
		}
		ch.vibrato()

	case xmdb.EffectNotePortamentoWithVolumeSlide:
		slide = true
		if ch.portaPeriod != 0 {
			ch.tonePortamento()
		}

	case xmdb.EffectVibratoWithVolumeSlide:
		slide = true
		ch.vibrato()

	case xmdb.EffectTremolo:
		ch.tremolo()

	case xmdb.EffectVolumeSlide:
		slide = true

	case xmdb.EffectRetrigNote:
		if p.tick%int(e.Arg) == 0 {
			ch.volumeEnvelope.Reset()
			ch.panningEnvelope.Reset()
			ch.flags |= updateVolume | updatePanning | updateTrigger
		}

	case xmdb.EffectNoteCut:
		if p.tick == int(e.Arg) {
			ch.setVolume(0)
		}

	case xmdb.EffectGlobalVolumeSlide:
		up, down := int(ch.globalVolSlide>>4), int(ch.globalVolSlide&0xf)
		if up != 0 {
			p.master = min(p.master+up, 64)
			p.masterChanged = true
		} else if down != 0 {
			p.master = max(p.master-down, 0)
			p.masterChanged = true
		}

	case xmdb.EffectKeyOff:
		if p.tick == int(e.Arg) {
			ch.keyOff()
		}

	case xmdb.EffectPanningSlide:
		right, left := int(ch.panSlide>>4), int(ch.panSlide&0xf)
		if right != 0 {
			ch.setPanning(ch.panning + right)
		} else if left != 0 {
			ch.setPanning(ch.panning - left)
		}

	case xmdb.EffectMultiRetrig:
		if ch.retrigY == 0 {
			break
		}
		t := p.tick
		if n.volume == 0 {
			t++
		}
		if t%ch.retrigY != 0 {
			break
		}
		if (n.volume == 0 || n.volume > 0x50) && ch.retrigX != 0 {
			ch.retrig()
		}
		ch.flags |= updateTrigger

	case xmdb.EffectTremor:
		ch.tremor()
	}

	if slide {
		up, down := int(ch.volSlide>>4), int(ch.volSlide&0xf)
		if up != 0 {
			ch.setVolume(ch.volume + up)
		} else if down != 0 {
			ch.setVolume(ch.volume - down)
		}
	}
}
