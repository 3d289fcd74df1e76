package amiga

// Voice is a single DMA channel register set.
//
// The exported fields are plain registers written by the player between ticks.
// Pointer and Length are latched when the DMA gets enabled;
// every time the playback cursor reaches the region end, it continues
// from LoopPointer with LoopLength bytes. A zero LoopLength makes the
// voice continue with the chip silent loop.
type Voice struct {
	Pointer     int
	Length      int
	LoopPointer int
	LoopLength  int

	// Mute replaces the fetched data with zeroes.
	// The voice keeps running, so unmuting doesn't change its timing.
	Mute bool

	// Panning is a stereo level in [-1, 1]: -1 is full left, 1 is full right.
	Panning float64

	index   int
	enabled bool
	period  int
	volume  int

	delay int
	timer float64
	loc   int
	end   int

	ldata float64
	rdata float64
}

// Index returns the voice number.
func (v *Voice) Index() int { return v.index }

// SetEnabled starts or stops the DMA.
//
// Enabling a stopped voice latches the Pointer/Length region and
// schedules the first fetch with the hardware trigger delay.
func (v *Voice) SetEnabled(enabled bool) {
	if enabled == v.enabled {
		return
	}
	v.enabled = enabled
	v.loc = v.Pointer
	v.end = v.Pointer + v.Length
	v.timer = 1.0
	if enabled {
		v.delay += triggerDelay
	}
}

// Enabled reports the DMA state.
func (v *Voice) Enabled() bool { return v.enabled }

// SetPeriod sets the playback period, clamped to [0, 65535].
// Periods of 60 and less don't produce any output.
func (v *Voice) SetPeriod(period int) { v.period = clamp(period, 0, 65535) }

// Period returns the playback period.
func (v *Voice) Period() int { return v.period }

// SetVolume sets the voice volume, clamped to [0, 64].
func (v *Voice) SetVolume(volume int) { v.volume = clamp(volume, 0, 64) }

// Volume returns the voice volume.
func (v *Voice) Volume() int { return v.volume }

// Output returns the last value the voice put on its DAC.
func (v *Voice) Output() (l, r float64) { return v.ldata, v.rdata }

// Reset restores the power-on register state with the specified panning.
func (v *Voice) Reset(panning float64) {
	*v = Voice{
		index:   v.index,
		Panning: panning,
	}
}

func (v *Voice) wrap(silent int) {
	if v.LoopLength == 0 {
		v.loc = silent
		v.end = silent + silentLoopSize
		return
	}
	v.loc = v.LoopPointer
	v.end = v.LoopPointer + v.LoopLength
}
