package xm

import (
	"math"

	"github.com/quasilyte/chipmix/soundblaster"
)

type updateFlags uint8

const (
	updateVolume updateFlags = 1 << iota
	updatePanning
	updateTrigger
	updatePeriod

	updateAll = updateVolume | updatePanning | updateTrigger | updatePeriod
)

// channel is a pattern column state; it drives one chip voice.
type channel struct {
	id    int
	voice *soundblaster.Voice

	// Register updates requested for the current tick.
	flags updateFlags
	// Updates postponed by a note delay.
	delay updateFlags

	inst    *instrument // Selected by the last instrument column
	playing *instrument // The one that was triggered
	sample  *sample

	note         int
	period       int
	finetune     int
	volume       int
	panning      int
	sampleOffset int
	keyoff       bool

	volumeEnvelope  envelopeRunner
	panningEnvelope envelopeRunner
	volumeEnabled   bool
	panningEnabled  bool

	fadeEnabled bool
	fadeDelta   int
	fadeVolume  int

	// Effect memory.
	portaUp        int
	portaDown      int
	finePortaUp    int
	finePortaDown  int
	xtraPortaUp    int
	xtraPortaDown  int
	volSlide       uint8
	globalVolSlide uint8
	panSlide       uint8
	fineSlideUp    int
	fineSlideDown  int

	// Arpeggio and vibrato period offsets.
	arpDelta int
	vibDelta int

	// Tone portamento state.
	portaSpeed  int
	portaPeriod int
	glissPeriod int
	glissando   bool

	vibratoReset bool
	vibratoPos   int
	vibratoSpeed int
	vibratoDepth int

	// Tremolo volume offset.
	volDelta     int
	tremoloPos   int
	tremoloSpeed int
	tremoloDepth int

	// Low nibble: vibrato waveform, high nibble: tremolo waveform.
	waveControl int

	retrigX int
	retrigY int

	tremorOn     int
	tremorOff    int
	tremorPos    int
	tremorVolume int

	patternLoop    int
	patternLoopRow int

	autoVibratoPos int
	autoSweep      bool
	autoSweepPos   int
}

type envelopeRunner struct {
	position int
	frame    int
	delta    int
	fraction int
	value    int
	stopped  bool
}

func (e *envelopeRunner) Reset() {
	*e = envelopeRunner{}
}

// step advances the envelope by one tick.
// A released note passes the sustain point.
func (e *envelopeRunner) step(env *envelope, released bool) {
	pos := e.position
	curr := env.points[pos]

	if e.frame != curr.frame {
		e.fraction += e.delta
		e.value = e.fraction >> 8
		e.frame++
		return
	}

	if env.flags.LoopEnabled() && pos == env.loopEnd {
		pos = env.loopStart
		e.position = pos
		curr = env.points[pos]
		e.frame = curr.frame
	}

	if pos == len(env.points)-1 {
		e.value = curr.value
		e.stopped = true
		return
	}

	if env.flags.SustainEnabled() && pos == env.sustain && !released {
		e.value = curr.value
		return
	}

	e.position++
	next := env.points[e.position]
	e.delta = ((next.value - curr.value) << 8) / (next.frame - curr.frame)
	e.fraction = curr.value << 8
	e.value = e.fraction >> 8
	e.frame++
}

// seek moves the envelope to the frame.
func (e *envelopeRunner) seek(env *envelope, frame int) {
	last := len(env.points) - 1

	i := 0
	for i <= last && frame >= env.points[i].frame {
		i++
	}
	i = max(i-1, 0)
	e.position = i

	if env.flags.LoopEnabled() && i == env.loopEnd {
		i = env.loopStart
		e.position = i
		frame = env.points[i].frame
	}

	if i >= last {
		e.value = env.points[last].value
		e.frame = frame
		e.stopped = true
		return
	}

	e.stopped = false
	e.frame = frame
	curr := env.points[i]
	next := env.points[i+1]
	e.delta = ((next.value - curr.value) << 8) / (next.frame - curr.frame)
	e.fraction = (curr.value << 8) + e.delta*(frame-curr.frame)
	e.value = e.fraction >> 8
	if frame > curr.frame {
		e.position++
	}
}

func (ch *channel) Reset() {
	*ch = channel{
		id:    ch.id,
		voice: ch.voice,
	}
	ch.panning = 128
	ch.fadeVolume = 65536
}

// resetNote restores the sample defaults for a new instrument note.
func (ch *channel) resetNote() {
	if ch.sample != nil {
		ch.volume = ch.sample.volume
		ch.panning = ch.sample.panning
		ch.finetune = (ch.sample.finetune >> 3) << 2
	}
	ch.keyoff = false
	ch.volDelta = 0

	ch.fadeEnabled = false
	ch.fadeDelta = 0
	ch.fadeVolume = 65536

	ch.autoVibratoPos = 0
	ch.autoSweep = true
	ch.autoSweepPos = 0
	ch.vibDelta = 0
	ch.vibratoReset = false

	if ch.waveControl&0xf < 4 {
		ch.vibratoPos = 0
	}
	if ch.waveControl>>4 < 4 {
		ch.tremoloPos = 0
	}
}

func (ch *channel) keyOff() {
	ch.fadeEnabled = true
	ch.keyoff = true
	if ch.inst == nil || !ch.inst.volumeEnvelope.enabled() {
		ch.volume = 0
		ch.flags |= updateVolume
	}
}

func (ch *channel) setVolume(v int) {
	ch.volume = clamp(v, 0, 64)
	ch.flags |= updateVolume
}

func (ch *channel) setPanning(v int) {
	ch.panning = clamp(v, 0, 255)
	ch.flags |= updatePanning
}

func (ch *channel) setPeriod(v int) {
	ch.period = clamp(v, 0, maxPeriod)
	ch.flags |= updatePeriod
}

func (ch *channel) vibrato() {
	delta := 255
	pos := ch.vibratoPos & 31
	switch ch.waveControl & 3 {
	case 0:
		delta = sineTable[pos]
	case 1:
		delta = pos << 3
		if ch.vibratoPos > 31 {
			delta = 255 - delta
		}
	}

	ch.vibDelta = (delta * ch.vibratoDepth) >> 7
	if ch.vibratoPos > 31 {
		ch.vibDelta = -ch.vibDelta
	}
	ch.vibratoPos = (ch.vibratoPos + ch.vibratoSpeed) & 63
	ch.flags |= updatePeriod
}

func (ch *channel) tremolo() {
	delta := 255
	pos := ch.tremoloPos & 31
	switch (ch.waveControl >> 4) & 3 {
	case 0:
		delta = sineTable[pos]
	case 1:
		delta = pos << 3
	}

	ch.volDelta = (delta * ch.tremoloDepth) >> 6
	if ch.tremoloPos > 31 {
		ch.volDelta = -ch.volDelta
	}
	ch.tremoloPos = (ch.tremoloPos + ch.tremoloSpeed) & 63
	ch.flags |= updateVolume
}

func (ch *channel) tonePortamento() {
	if ch.glissPeriod == 0 {
		ch.glissPeriod = ch.period
	}

	switch {
	case ch.period < ch.portaPeriod:
		ch.glissPeriod += ch.portaSpeed << 2
		ch.period = ch.glissandoPeriod()
		if ch.period >= ch.portaPeriod {
			ch.period = ch.portaPeriod
			ch.glissPeriod = 0
			ch.portaPeriod = 0
		}
	case ch.period > ch.portaPeriod:
		ch.glissPeriod -= ch.portaSpeed << 2
		ch.period = ch.glissandoPeriod()
		if ch.period <= ch.portaPeriod {
			ch.period = ch.portaPeriod
			ch.glissPeriod = 0
			ch.portaPeriod = 0
		}
	}

	ch.flags |= updatePeriod
}

func (ch *channel) glissandoPeriod() int {
	if !ch.glissando {
		return ch.glissPeriod
	}
	// Snap to semitones.
	return int(math.Round(float64(ch.glissPeriod)/64)) << 6
}

func (ch *channel) tremor() {
	switch ch.tremorPos {
	case ch.tremorOn:
		ch.tremorVolume = ch.volume
		ch.volume = 0
		ch.flags |= updateVolume
	case ch.tremorOff:
		ch.tremorPos = 0
		ch.volume = ch.tremorVolume
		ch.flags |= updateVolume
	}
	ch.tremorPos++
}

// retrig applies a multi-retrig volume change.
func (ch *channel) retrig() {
	v := ch.volume
	switch ch.retrigX {
	case 1:
		v--
	case 2:
		v -= 2
	case 3:
		v -= 4
	case 4:
		v -= 8
	case 5:
		v -= 16
	case 6:
		v = (v << 1) / 3
	case 7:
		v >>= 1
	case 8:
		if ch.sample != nil {
			v = ch.sample.volume
		}
	case 9:
		v++
	case 10:
		v += 2
	case 11:
		v += 4
	case 12:
		v += 8
	case 13:
		v += 16
	case 14:
		v = (v * 3) >> 1
	case 15:
		v <<= 1
	}
	ch.setVolume(v)
}

// autoVibrato returns the instrument vibrato period offset for this tick.
func (ch *channel) autoVibrato(inst *instrument) int {
	ch.autoVibratoPos = (ch.autoVibratoPos + inst.vibratoRate) & 255

	delta := 0
	switch inst.vibratoType {
	case 0:
		delta = autoVibratoTable[ch.autoVibratoPos]
	case 1:
		delta = 64
		if ch.autoVibratoPos < 128 {
			delta = -64
		}
	case 2:
		delta = ((64 + (ch.autoVibratoPos >> 1)) & 127) - 64
	case 3:
		delta = ((64 - (ch.autoVibratoPos >> 1)) & 127) - 64
	}
	delta *= inst.vibratoDepth

	if ch.autoSweep {
		switch {
		case inst.vibratoSweep == 0:
			ch.autoSweep = false
		case ch.autoSweepPos > inst.vibratoSweep:
			if ch.autoSweepPos&2 != 0 {
				delta = delta * ch.autoSweepPos / inst.vibratoSweep
			}
			ch.autoSweep = false
		default:
			ch.autoSweepPos++
			delta = delta * ch.autoSweepPos / inst.vibratoSweep
		}
	}

	return delta >> 6
}

// sineTable is a half period of the ProTracker vibrato sine.
var sineTable = [32]int{
	0, 24, 49, 74, 97, 120, 141, 161, 180, 197, 212, 224, 235, 244, 250, 253,
	255, 253, 250, 244, 235, 224, 212, 197, 180, 161, 141, 120, 97, 74, 49, 24,
}

// autoVibratoTable is a full negated sine period in [-64, 64].
var autoVibratoTable = func() [256]int {
	var table [256]int
	for i := range table {
		table[i] = -int(math.Round(64 * math.Sin(2*math.Pi*float64(i)/256)))
	}
	return table
}()
