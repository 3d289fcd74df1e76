package protracker

import (
	"github.com/quasilyte/chipmix/amiga"
	"github.com/quasilyte/chipmix/modfile"
)

const (
	minPeriod = 113
	maxPeriod = 856

	// Every finetune row has 36 periods followed by a zero.
	periodRowSize = 37
	numNotes      = 36
)

// channel is a pattern column state; it drives one chip voice.
type channel struct {
	id    int
	voice *amiga.Voice

	cell    modfile.Note
	effect  uint8
	param   uint8
	trigger bool

	sampleID int
	sample   *sample

	// The next trigger region. Sample offset modifies it.
	pointer     int
	length      int
	loopPointer int
	loopLength  int

	period   int
	finetune int
	volume   int
	offset   int

	portaUp     bool
	portaPeriod int
	portaSpeed  int
	glissando   bool

	vibratoParam uint8
	vibratoPos   int
	vibratoWave  int

	tremoloParam uint8
	tremoloPos   int
	tremoloWave  int

	loopCounter int
	loopRow     int
}

func (ch *channel) Reset(silent *sample) {
	*ch = channel{
		id:    ch.id,
		voice: ch.voice,
	}
	ch.setSample(0, silent)
}

func (ch *channel) setSample(id int, s *sample) {
	ch.sampleID = id
	ch.sample = s
	ch.pointer = s.pointer
	ch.length = s.length
	ch.loopPointer = s.loopPointer
	ch.loopLength = s.loopLength
	ch.finetune = s.finetune
}

func (ch *channel) setVolume(v int) {
	ch.volume = clamp(v, 0, 64)
	ch.voice.SetVolume(ch.volume)
}

func (ch *channel) setPeriod(v int) {
	ch.period = v
	ch.voice.SetPeriod(v)
}

func (ch *channel) slidePeriod(delta int) {
	if delta < 0 {
		ch.setPeriod(max(ch.period+delta, minPeriod))
	} else {
		ch.setPeriod(min(ch.period+delta, maxPeriod))
	}
}

// restart makes the voice play the current region from the start.
func (ch *channel) restart() {
	v := ch.voice
	v.SetEnabled(false)
	v.Pointer = ch.pointer
	v.Length = ch.length
	v.SetEnabled(true)
	v.LoopPointer = ch.loopPointer
	v.LoopLength = ch.loopLength
	v.SetPeriod(ch.period)
}

// noteIndex returns the index of the first period in the channel
// finetune row that is not higher than the specified one.
func (ch *channel) noteIndex(period int) int {
	return periodIndex(period, ch.finetune)
}

// periodIndex searches the period table row that starts at the row offset.
// The result is in [0, numNotes).
func periodIndex(period, row int) int {
	for i, p := range periodTable[row : row+numNotes] {
		if period >= p {
			return i
		}
	}
	return numNotes - 1
}

func (ch *channel) notePeriod(i int) int {
	return periodTable[ch.finetune+min(i, numNotes-1)]
}

func waveValue(pos, wave int) int {
	switch wave & 3 {
	case 0:
		return int(sineTable[(pos>>2)&31])
	case 1:
		v := ((pos >> 2) & 31) << 3
		if pos > 127 {
			return 255 - v
		}
		return v
	default:
		return 255
	}
}

func (ch *channel) vibrato(depthShift uint) {
	if ch.param != 0 && ch.effect == 0x4 {
		if y := ch.param & 0x0f; y != 0 {
			ch.vibratoParam = (ch.vibratoParam & 0xf0) | y
		}
		if x := ch.param & 0xf0; x != 0 {
			ch.vibratoParam = (ch.vibratoParam & 0x0f) | x
		}
	}

	delta := (int(ch.vibratoParam&0x0f) * waveValue(ch.vibratoPos, ch.vibratoWave)) >> depthShift
	if ch.vibratoPos > 127 {
		delta = -delta
	}
	ch.voice.SetPeriod(ch.period + delta)
	ch.vibratoPos = (ch.vibratoPos + int(ch.vibratoParam>>2)&60) & 255
}

func (ch *channel) tremolo() {
	ch.voice.SetPeriod(ch.period)

	if ch.param != 0 {
		if y := ch.param & 0x0f; y != 0 {
			ch.tremoloParam = (ch.tremoloParam & 0xf0) | y
		}
		if x := ch.param & 0xf0; x != 0 {
			ch.tremoloParam = (ch.tremoloParam & 0x0f) | x
		}
	}

	delta := (int(ch.tremoloParam&0x0f) * waveValue(ch.tremoloPos, ch.tremoloWave)) >> 6
	if ch.tremoloPos > 127 {
		delta = -delta
	}
	ch.voice.SetVolume(ch.volume + delta)
	ch.tremoloPos = (ch.tremoloPos + int(ch.tremoloParam>>2)&60) & 255
}

func (ch *channel) tonePortamento() {
	if ch.portaPeriod == 0 {
		return
	}

	if ch.portaUp {
		ch.period -= ch.portaSpeed
		if ch.period <= ch.portaPeriod {
			ch.period = ch.portaPeriod
			ch.portaPeriod = 0
		}
	} else {
		ch.period += ch.portaSpeed
		if ch.period >= ch.portaPeriod {
			ch.period = ch.portaPeriod
			ch.portaPeriod = 0
		}
	}

	if ch.glissando {
		ch.voice.SetPeriod(ch.notePeriod(ch.noteIndex(ch.period)))
	} else {
		ch.voice.SetPeriod(ch.period)
	}
}

func (ch *channel) volumeSlide() {
	if up := int(ch.param >> 4); up != 0 {
		ch.setVolume(ch.volume + up)
	} else {
		ch.setVolume(ch.volume - int(ch.param&0x0f))
	}
}

// sineTable is a half period of the vibrato and tremolo sine.
var sineTable = [32]uint8{
	0, 24, 49, 74, 97, 120, 141, 161, 180, 197, 212, 224,
	235, 244, 250, 253, 255, 253, 250, 244, 235, 224, 212, 197,
	180, 161, 141, 120, 97, 74, 49, 24,
}

// periodTable has a row for every finetune value: 0..7, then -8..-1.
var periodTable = [16 * periodRowSize]int{
	856, 808, 762, 720, 678, 640, 604, 570, 538, 508, 480, 453,
	428, 404, 381, 360, 339, 320, 302, 285, 269, 254, 240, 226,
	214, 202, 190, 180, 170, 160, 151, 143, 135, 127, 120, 113, 0,
	850, 802, 757, 715, 674, 637, 601, 567, 535, 505, 477, 450,
	425, 401, 379, 357, 337, 318, 300, 284, 268, 253, 239, 225,
	213, 201, 189, 179, 169, 159, 150, 142, 134, 126, 119, 113, 0,
	844, 796, 752, 709, 670, 632, 597, 563, 532, 502, 474, 447,
	422, 398, 376, 355, 335, 316, 298, 282, 266, 251, 237, 224,
	211, 199, 188, 177, 167, 158, 149, 141, 133, 125, 118, 112, 0,
	838, 791, 746, 704, 665, 628, 592, 559, 528, 498, 470, 444,
	419, 395, 373, 352, 332, 314, 296, 280, 264, 249, 235, 222,
	209, 198, 187, 176, 166, 157, 148, 140, 132, 125, 118, 111, 0,
	832, 785, 741, 699, 660, 623, 588, 555, 524, 495, 467, 441,
	416, 392, 370, 350, 330, 312, 294, 278, 262, 247, 233, 220,
	208, 196, 185, 175, 165, 156, 147, 139, 131, 124, 117, 110, 0,
	826, 779, 736, 694, 655, 619, 584, 551, 520, 491, 463, 437,
	413, 390, 368, 347, 328, 309, 292, 276, 260, 245, 232, 219,
	206, 195, 184, 174, 164, 155, 146, 138, 130, 123, 116, 109, 0,
	820, 774, 730, 689, 651, 614, 580, 547, 516, 487, 460, 434,
	410, 387, 365, 345, 325, 307, 290, 274, 258, 244, 230, 217,
	205, 193, 183, 172, 163, 154, 145, 137, 129, 122, 115, 109, 0,
	814, 768, 725, 684, 646, 610, 575, 543, 513, 484, 457, 431,
	407, 384, 363, 342, 323, 305, 288, 272, 256, 242, 228, 216,
	204, 192, 181, 171, 161, 152, 144, 136, 128, 121, 114, 108, 0,
	907, 856, 808, 762, 720, 678, 640, 604, 570, 538, 508, 480,
	453, 428, 404, 381, 360, 339, 320, 302, 285, 269, 254, 240,
	226, 214, 202, 190, 180, 170, 160, 151, 143, 135, 127, 120, 0,
	900, 850, 802, 757, 715, 675, 636, 601, 567, 535, 505, 477,
	450, 425, 401, 379, 357, 337, 318, 300, 284, 268, 253, 238,
	225, 212, 200, 189, 179, 169, 159, 150, 142, 134, 126, 119, 0,
	894, 844, 796, 752, 709, 670, 632, 597, 563, 532, 502, 474,
	447, 422, 398, 376, 355, 335, 316, 298, 282, 266, 251, 237,
	223, 211, 199, 188, 177, 167, 158, 149, 141, 133, 125, 118, 0,
	887, 838, 791, 746, 704, 665, 628, 592, 559, 528, 498, 470,
	444, 419, 395, 373, 352, 332, 314, 296, 280, 264, 249, 235,
	222, 209, 198, 187, 176, 166, 157, 148, 140, 132, 125, 118, 0,
	881, 832, 785, 741, 699, 660, 623, 588, 555, 524, 494, 467,
	441, 416, 392, 370, 350, 330, 312, 294, 278, 262, 247, 233,
	220, 208, 196, 185, 175, 165, 156, 147, 139, 131, 123, 117, 0,
	875, 826, 779, 736, 694, 655, 619, 584, 551, 520, 491, 463,
	437, 413, 390, 368, 347, 328, 309, 292, 276, 260, 245, 232,
	219, 206, 195, 184, 174, 164, 155, 146, 138, 130, 123, 116, 0,
	868, 820, 774, 730, 689, 651, 614, 580, 547, 516, 487, 460,
	434, 410, 387, 365, 345, 325, 307, 290, 274, 258, 244, 230,
	217, 205, 193, 183, 172, 163, 154, 145, 137, 129, 122, 115, 0,
	862, 814, 768, 725, 684, 646, 610, 575, 543, 513, 484, 457,
	431, 407, 384, 363, 342, 323, 305, 288, 272, 256, 242, 228,
	216, 203, 192, 181, 171, 161, 152, 144, 136, 128, 121, 114, 0,
}
