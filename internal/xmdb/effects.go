package xmdb

import (
	"github.com/quasilyte/chipmix/xmfile"
)

type Effect struct {
	Op  EffectOp
	Arg uint8
}

// X returns the high nibble of the argument.
func (e Effect) X() uint8 { return e.Arg >> 4 }

// Y returns the low nibble of the argument.
func (e Effect) Y() uint8 { return e.Arg & 0xf }

type EffectOp int

const (
	EffectNone EffectOp = iota

	// Encoding: effect=0x00
	// Arg: semitone offsets
	EffectArpeggio

	// Encoding: effect=0x01
	// Arg: slide speed (0 reuses the last one)
	EffectPortamentoUp

	// Encoding: effect=0x02
	// Arg: slide speed (0 reuses the last one)
	EffectPortamentoDown

	// Encoding: effect=0x03 [or] volume byte 0xF0-0xFF
	// Arg: slide speed
	EffectNotePortamento

	// Encoding: effect=0x04 [or] volume byte 0xB0-0xBF
	// Arg: speed (x) and depth (y)
	EffectVibrato

	// Encoding: effect=0x05
	// Arg: volume slide up/down speed
	EffectNotePortamentoWithVolumeSlide

	// Encoding: effect=0x06
	// Arg: volume slide up/down speed
	EffectVibratoWithVolumeSlide

	// Encoding: effect=0x07
	// Arg: speed (x) and depth (y)
	EffectTremolo

	// Encoding: effect=0x08 [or] volume byte 0xC0-0xCF
	// Arg: panning position
	EffectSetPanning

	// Encoding: effect=0x09
	// Arg: offset in 256-value units
	EffectSampleOffset

	// Encoding: effect=0x0A
	// Arg: slide up/down speed
	EffectVolumeSlide

	// Encoding: effect=0x0B
	// Arg: song position
	EffectPositionJump

	// Encoding: effect=0x0C [or] volume byte 0x10-0x50
	// Arg: volume level
	EffectSetVolume

	// Encoding: effect=0x0D
	// Arg: row number (decimal digits)
	EffectPatternBreak

	// Encoding: effect=0x0F
	// Arg: ticks per row (<32) or BPM (>=32)
	EffectSetSpeed

	// Encoding: effect=0x10 (G)
	// Arg: global volume level
	EffectSetGlobalVolume

	// Encoding: effect=0x11 (H)
	// Arg: slide up/down speed
	EffectGlobalVolumeSlide

	// Encoding: effect=0x14 (K) [or] key-off note
	// Arg: tick number (always a first tick for key-off note)
	EffectKeyOff

	// Encoding: effect=0x15 (L)
	// Arg: envelope frame
	EffectSetEnvelopePos

	// Encoding: effect=0x19 (P)
	// Arg: slide right/left speed
	EffectPanningSlide

	// Encoding: effect=0x1B (R)
	// Arg: volume change (x) and interval (y)
	EffectMultiRetrig

	// Encoding: effect=0x1D (T)
	// Arg: on time (x) and off time (y)
	EffectTremor

	// Encoding: effect=0x21 (X1)
	// Arg: slide speed
	EffectExtraFinePortamentoUp

	// Encoding: effect=0x21 (X2)
	// Arg: slide speed
	EffectExtraFinePortamentoDown

	// Encoding: effect=0x0E (E1)
	// Arg: slide speed
	EffectFinePortamentoUp

	// Encoding: effect=0x0E (E2)
	// Arg: slide speed
	EffectFinePortamentoDown

	// Encoding: effect=0x0E (E3)
	// Arg: 0 or 1
	EffectGlissandoControl

	// Encoding: effect=0x0E (E4)
	// Arg: waveform
	EffectVibratoControl

	// Encoding: effect=0x0E (E5)
	// Arg: finetune
	EffectSetFinetune

	// Encoding: effect=0x0E (E6)
	// Arg: loop count (0 sets the loop start)
	EffectPatternLoop

	// Encoding: effect=0x0E (E7)
	// Arg: waveform
	EffectTremoloControl

	// Encoding: effect=0x0E (E9)
	// Arg: interval in ticks
	EffectRetrigNote

	// Encoding: effect=0x0E (EA) [or] volume byte 0x90-0x9F
	// Arg: volume change
	EffectFineVolumeSlideUp

	// Encoding: effect=0x0E (EB) [or] volume byte 0x80-0x8F
	// Arg: volume change
	EffectFineVolumeSlideDown

	// Encoding: effect=0x0E (EC)
	// Arg: tick number
	EffectNoteCut

	// Encoding: effect=0x0E (ED)
	// Arg: tick number
	EffectNoteDelay

	// Encoding: effect=0x0E (EE)
	// Arg: number of rows
	EffectPatternDelay

	// Encoding: volume byte 0x60-0x6F
	// Arg: volume change per tick
	EffectVolumeSlideDown

	// Encoding: volume byte 0x70-0x7F
	// Arg: volume change per tick
	EffectVolumeSlideUp

	// Encoding: volume byte 0xA0-0xAF
	// Arg: vibrato speed
	EffectSetVibratoSpeed

	// Encoding: volume byte 0xD0-0xDF
	// Arg: panning change per tick
	EffectPanningSlideLeft

	// Encoding: volume byte 0xE0-0xEF
	// Arg: panning change per tick
	EffectPanningSlideRight
)

func ConvertEffect(n xmfile.PatternNote) Effect {
	e := Effect{Arg: n.EffectParameter}

	switch n.EffectType {
	case 0x00:
		if n.EffectParameter != 0 {
			e.Op = EffectArpeggio
		}

	case 0x01:
		e.Op = EffectPortamentoUp
	case 0x02:
		e.Op = EffectPortamentoDown
	case 0x03:
		e.Op = EffectNotePortamento
	case 0x04:
		e.Op = EffectVibrato
	case 0x05:
		e.Op = EffectNotePortamentoWithVolumeSlide
	case 0x06:
		e.Op = EffectVibratoWithVolumeSlide
	case 0x07:
		e.Op = EffectTremolo
	case 0x08:
		e.Op = EffectSetPanning
	case 0x09:
		e.Op = EffectSampleOffset
	case 0x0A:
		e.Op = EffectVolumeSlide
	case 0x0B:
		e.Op = EffectPositionJump
	case 0x0C:
		e.Op = EffectSetVolume
		e.Arg = min(e.Arg, 0x40)
	case 0x0D:
		e.Op = EffectPatternBreak
	case 0x0E:
		e = convertExtendedEffect(e.Arg)
	case 0x0F:
		if n.EffectParameter != 0 {
			e.Op = EffectSetSpeed
		}
	case 0x10:
		e.Op = EffectSetGlobalVolume
		e.Arg = min(e.Arg, 0x40)
	case 0x11:
		e.Op = EffectGlobalVolumeSlide
	case 0x14:
		e.Op = EffectKeyOff
	case 0x15:
		e.Op = EffectSetEnvelopePos
	case 0x19:
		e.Op = EffectPanningSlide
	case 0x1B:
		e.Op = EffectMultiRetrig
	case 0x1D:
		e.Op = EffectTremor
	case 0x21:
		switch e.X() {
		case 1:
			e.Op = EffectExtraFinePortamentoUp
		case 2:
			e.Op = EffectExtraFinePortamentoDown
		}
		e.Arg = e.Y()
	}

	if n.Note == xmfile.KeyOffNote && e.Op == EffectNone {
		e = Effect{Op: EffectKeyOff}
	}

	return e
}

func convertExtendedEffect(arg uint8) Effect {
	e := Effect{Arg: arg & 0xf}
	switch arg >> 4 {
	case 0x1:
		e.Op = EffectFinePortamentoUp
	case 0x2:
		e.Op = EffectFinePortamentoDown
	case 0x3:
		e.Op = EffectGlissandoControl
	case 0x4:
		e.Op = EffectVibratoControl
	case 0x5:
		e.Op = EffectSetFinetune
	case 0x6:
		e.Op = EffectPatternLoop
	case 0x7:
		e.Op = EffectTremoloControl
	case 0x9:
		if e.Arg != 0 {
			e.Op = EffectRetrigNote
		}
	case 0xA:
		e.Op = EffectFineVolumeSlideUp
	case 0xB:
		e.Op = EffectFineVolumeSlideDown
	case 0xC:
		e.Op = EffectNoteCut
	case 0xD:
		e.Op = EffectNoteDelay
	case 0xE:
		e.Op = EffectPatternDelay
	}
	return e
}

func EffectFromVolumeByte(v uint8) Effect {
	var e Effect

	switch {
	case v <= 0x0F:
		// Do nothing.

	case v <= 0x50:
		// Set volume effect.
		e.Op = EffectSetVolume
		e.Arg = v - 0x10

	default:
		e.Arg = v & 0xf
		switch v >> 4 {
		case 0x6:
			e.Op = EffectVolumeSlideDown
		case 0x7:
			e.Op = EffectVolumeSlideUp
		case 0x8:
			e.Op = EffectFineVolumeSlideDown
		case 0x9:
			e.Op = EffectFineVolumeSlideUp
		case 0xA:
			e.Op = EffectSetVibratoSpeed
		case 0xB:
			e.Op = EffectVibrato
		case 0xC:
			e.Op = EffectSetPanning
			e.Arg <<= 4
		case 0xD:
			e.Op = EffectPanningSlideLeft
		case 0xE:
			e.Op = EffectPanningSlideRight
		case 0xF:
			e.Op = EffectNotePortamento
			e.Arg <<= 4
		}
	}

	return e
}

func (e Effect) AsUint16() uint16 {
	return (uint16(e.Op) << 8) | uint16(e.Arg)
}
