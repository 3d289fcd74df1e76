package soundblaster

import (
	"math"
)

// CrossfadeLength is the retrigger crossfade duration in samples.
const CrossfadeLength = 220

// Voice is a single software mixer channel.
//
// The player writes it between ticks through the methods below,
// the chip reads it while mixing.
type Voice struct {
	// Mute replaces the voice data with zeroes.
	// The last produced value is held until the playback cursor moves
	// to the next sample value.
	Mute bool

	index   int
	quality Quality
	enabled bool

	sample    Sample
	hasSample bool

	pointer  int
	length   int
	next     int // Fast mode: next playback position.
	delta    int // Fast mode: integer part of the speed.
	dir      int
	fraction float64
	speed    float64

	volume  float64
	panning int
	lvol    float64
	rvol    float64
	lpan    float64
	rpan    float64

	ldata float64
	rdata float64
	held  float64

	// Slewing state.
	tickLength int
	volCounter int
	lvolDelta  float64
	rvolDelta  float64
	panCounter int
	lpanDelta  float64
	rpanDelta  float64

	// Retrigger crossfade state.
	mixCounter  int
	rampArmed   bool
	lmixRampU   float64
	rmixRampU   float64
	lmixDeltaU  float64
	rmixDeltaU  float64
	lmixRampD   float64
	rmixRampD   float64
	lmixDeltaD  float64
	rmixDeltaD  float64
	hasOld      bool
	oldSample   Sample
	oldPointer  int
	oldLength   int
	oldDir      int
	oldFraction float64
	oldSpeed    float64
	oldHeld     float64
}

// Index returns the voice number.
func (v *Voice) Index() int { return v.index }

// Enabled reports whether the voice is playing.
func (v *Voice) Enabled() bool { return v.enabled }

// Sample returns the currently playing sample.
func (v *Voice) Sample() Sample { return v.sample }

// Volume returns the target volume.
func (v *Voice) Volume() float64 { return v.volume }

// Panning returns the target panning.
func (v *Voice) Panning() int { return v.panning }

// Gain returns the current left and right gains.
func (v *Voice) Gain() (l, r float64) { return v.lvol, v.rvol }

// Crossfading reports whether a retrigger crossfade is in progress.
func (v *Voice) Crossfading() bool { return v.mixCounter != 0 }

// Reset restores the power-on state: silent, centered, no sample.
func (v *Voice) Reset() {
	*v = Voice{
		index:      v.index,
		quality:    v.quality,
		tickLength: v.tickLength,
	}
	v.panning = 128
	v.lpan, v.rpan = panLaw(v.panning)
}

// Disable stops the voice.
func (v *Voice) Disable() {
	v.enabled = false
	v.volCounter = 0
	v.panCounter = 0
}

// Trigger starts playing s from the offset.
//
// In the accurate mode, a voice that already had a sample assigned
// does a crossfade: the old sample keeps playing while it fades out
// and the new one fades in over CrossfadeLength samples.
//
// An offset outside of the sample stops the voice.
func (v *Voice) Trigger(s Sample, offset int) {
	if v.quality == Fast {
		v.next = offset
		v.pointer = -1
		v.dir = 0
	} else {
		if v.hasSample {
			v.mixCounter = CrossfadeLength
			v.rampArmed = true
			v.hasOld = false
			if v.enabled {
				v.hasOld = true
				v.oldSample = v.sample
				v.oldPointer = v.pointer
				v.oldLength = v.length
				v.oldDir = v.dir
				v.oldFraction = v.fraction
				v.oldSpeed = v.speed
				v.oldHeld = v.held

				v.lmixRampD = v.lvol
				v.lmixDeltaD = v.lvol / CrossfadeLength
				v.rmixRampD = v.rvol
				v.rmixDeltaD = v.rvol / CrossfadeLength
			}
		}
		v.pointer = offset
		v.dir = 1
	}

	v.fraction = 0
	v.sample = s
	v.hasSample = true
	v.length = s.Length
	v.enabled = offset >= 0 && offset < s.Length
}

// SetSpeed sets the playback rate in sample values per output sample.
// Negative values are treated as 0.
func (v *Voice) SetSpeed(speed float64) {
	speed = max(speed, 0)
	if v.quality == Fast {
		v.delta = int(speed)
		v.speed = speed - float64(v.delta)
		return
	}
	v.speed = speed
}

// SetVolume sets the target volume, clamped to [0, 1].
func (v *Voice) SetVolume(volume float64) {
	v.update(volume, v.panning, true, false)
}

// SetPanning sets the target panning, clamped to [0, 255].
// 0 is full left, 128 is center.
func (v *Voice) SetPanning(panning int) {
	v.update(v.volume, panning, false, true)
}

// SetVolumePanning is SetVolume and SetPanning combined.
// The new volume is applied with the new panning right away.
func (v *Voice) SetVolumePanning(volume float64, panning int) {
	v.update(volume, panning, true, true)
}

func (v *Voice) update(volume float64, panning int, updateVolume, updatePanning bool) {
	volume = clamp(volume, 0, 1)
	panning = clamp(panning, 0, 255)
	lpan, rpan := panLaw(panning)

	// Fast mode and stopped voices don't slew.
	direct := v.quality == Fast || !v.enabled
	if !v.enabled {
		v.volCounter = 0
		v.panCounter = 0
	}

	if updateVolume {
		lvol := volume * lpan
		rvol := volume * rpan
		if !direct && volume != v.volume && v.mixCounter == 0 {
			v.volCounter = max(v.tickLength, 1)
			v.lvolDelta = (lvol - v.lvol) / float64(v.volCounter)
			v.rvolDelta = (rvol - v.rvol) / float64(v.volCounter)
		} else {
			v.lvol = lvol
			v.rvol = rvol
		}
		v.volume = volume
	}

	if updatePanning {
		if !direct && panning != v.panning && v.mixCounter == 0 && v.volCounter == 0 {
			v.panCounter = max(v.tickLength, 1)
			v.lpanDelta = (lpan - v.lpan) / float64(v.panCounter)
			v.rpanDelta = (rpan - v.rpan) / float64(v.panCounter)
		} else {
			v.lpan = lpan
			v.rpan = rpan
			if !updateVolume && v.volCounter == 0 {
				v.lvol = v.volume * lpan
				v.rvol = v.volume * rpan
			}
		}
		v.panning = panning
	}
}

func panLaw(panning int) (l, r float64) {
	return math.Sqrt(float64(256-panning) / 256), math.Sqrt(float64(panning) / 256)
}
