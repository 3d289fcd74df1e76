package xm

import (
	"math"

	"github.com/quasilyte/chipmix"
)

type numeric interface {
	uint8 | int | float64
}

func clamp[T numeric](v, min, max T) T {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

const (
	// The lowest and the highest playable notes (0-based, after the relative note).
	lowestNote  = 0
	highestNote = 118

	maxPeriod = 9212

	// C-4 plays at the sample rate of 8363 Hz; it has a period of
	// 4608 in linear mode and 1712 in Amiga mode.
	middlePeriod      = 4608
	middleAmigaPeriod = 1712
	middleFrequency   = 8363

	amigaClock = 14317456
)

// linearPeriod returns the period for a 0-based note.
// The finetune is in 1/64 semitone units.
func linearPeriod(note, finetune int) int {
	return ((120 - note) << 6) - finetune
}

// amigaPeriod is linearPeriod for the Amiga frequency table.
// It maps the linear scale onto the log scale, so both tables
// have the same pitch for the same note.
func amigaPeriod(note, finetune int) int {
	exp := float64(linearPeriod(note, finetune)-middlePeriod) / 768
	return int(math.Round(middleAmigaPeriod * math.Pow(2, exp)))
}

func notePeriod(linear bool, note, finetune int) int {
	if linear {
		return linearPeriod(note, finetune)
	}
	return amigaPeriod(note, finetune)
}

// periodSpeed converts a period into a playback speed in sample
// values per output sample. The speed is quantized to 16.16 fixed point.
func periodSpeed(linear bool, period int) float64 {
	const fixed = 65536
	var freq float64
	if linear {
		freq = middleFrequency * math.Pow(2, float64(middlePeriod-period)/768)
	} else {
		if period <= 0 {
			return 0
		}
		freq = amigaClock / float64(period)
	}
	return math.Floor(freq*fixed/chipmix.SampleRate) / fixed
}

func ticksPerSecond(bpm int) float64 {
	return float64(bpm) * 0.4
}
