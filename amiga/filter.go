package amiga

import (
	"github.com/quasilyte/chipmix/pcm"
)

// Model selects the output filter network.
type Model uint8

const (
	// ModelA500 has a fixed low-pass stage in front of the LED filter.
	ModelA500 Model = iota

	// ModelA1200 only has the switchable LED filter.
	ModelA1200
)

func (m Model) String() string {
	switch m {
	case ModelA500:
		return "A500"
	case ModelA1200:
		return "A1200"
	default:
		return "unknown"
	}
}

// FilterMode overrides the LED filter switch.
type FilterMode int8

const (
	// FilterAuto lets the player control the LED filter via Filter.Active.
	FilterAuto FilterMode = iota

	// FilterOn forces the LED filter on.
	FilterOn

	// FilterOff forces the LED filter off.
	FilterOff
)

func (m FilterMode) String() string {
	switch m {
	case FilterAuto:
		return "auto"
	case FilterOn:
		return "on"
	case FilterOff:
		return "off"
	default:
		return "unknown"
	}
}

const (
	filterP0 = 0.4860348337215757
	filterP1 = 0.9314955486749749
	filterFL = 0.5213345843532200
)

// Filter is the analog output stage model.
type Filter struct {
	// Active is the LED filter state as set by the player.
	Active bool

	// Mode is the LED filter override.
	Mode FilterMode

	model Model

	l0, l1, l2, l3, l4 float64
	r0, r1, r2, r3, r4 float64
}

// Reset clears the filter history.
func (f *Filter) Reset() {
	*f = Filter{
		Mode:  f.Mode,
		model: f.model,
	}
}

// LED reports whether the LED stage is applied.
func (f *Filter) LED() bool {
	switch f.Mode {
	case FilterOn:
		return true
	case FilterOff:
		return false
	default:
		return f.Active
	}
}

// Process filters frames in place and clamps them to [-1, 1].
func (f *Filter) Process(frames []pcm.Frame) {
	led := f.LED()
	for i := range frames {
		s := &frames[i]
		if f.model == ModelA500 {
			f.l0 = filterP0*s.L + (1-filterP0)*f.l0
			f.r0 = filterP0*s.R + (1-filterP0)*f.r0
			f.l1 = filterP1*f.l0 + (1-filterP1)*f.l1
			f.r1 = filterP1*f.r0 + (1-filterP1)*f.r1
			s.L = f.l1
			s.R = f.r1
		}
		if led {
			f.l2 = filterFL*s.L + (1-filterFL)*f.l2
			f.r2 = filterFL*s.R + (1-filterFL)*f.r2
			f.l3 = filterFL*f.l2 + (1-filterFL)*f.l3
			f.r3 = filterFL*f.r2 + (1-filterFL)*f.r3
			f.l4 = filterFL*f.l3 + (1-filterFL)*f.l4
			f.r4 = filterFL*f.r3 + (1-filterFL)*f.r4
			s.L = f.l4
			s.R = f.r4
		}
		s.L = clamp(s.L, -1, 1)
		s.R = clamp(s.R, -1, 1)
	}
}
