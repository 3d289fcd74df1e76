package soundblaster

import (
	"github.com/quasilyte/chipmix/pcm"
)

// at is a bounds-clamped sample data read.
func at(d []float32, i int) float64 {
	if len(d) == 0 {
		return 0
	}
	return float64(d[clamp(i, 0, len(d)-1)])
}

func (v *Voice) mixFast(frames []pcm.Frame, d []float32) {
	s := &v.sample
	for i := range frames {
		if v.next != v.pointer {
			if v.next >= v.length {
				if s.Loop == LoopNone {
					v.enabled = false
					break
				}
				// A step can be longer than the loop itself,
				// every crossed loop end counts as a wrap.
				over := v.next - v.length
				v.pointer = s.LoopStart + over%s.LoopLength
				v.length = s.Length
				if s.Loop == LoopPingPong && (over/s.LoopLength)%2 == 0 {
					// A non-zero dir is the mirror pivot.
					if v.dir == 0 {
						v.dir = s.Length + s.LoopStart - 1
					} else {
						v.dir = 0
					}
				}
			} else {
				v.pointer = v.next
			}

			if v.Mute {
				v.ldata = 0
				v.rdata = 0
			} else {
				pos := v.pointer
				if v.dir != 0 {
					pos = v.dir - v.pointer
				}
				value := at(d, pos)
				v.ldata = value * v.lvol
				v.rdata = value * v.rvol
			}
		}

		v.next = v.pointer + v.delta
		if v.fraction += v.speed; v.fraction >= 1.0 {
			v.next++
			v.fraction--
		}

		frames[i].L += v.ldata
		frames[i].R += v.rdata
	}
}

func (v *Voice) mixAccurate(frames []pcm.Frame, d, old []float32) {
	if v.rampArmed {
		v.rampArmed = false
		v.lmixRampU = 0
		v.lmixDeltaU = v.lvol / CrossfadeLength
		v.rmixRampU = 0
		v.rmixDeltaU = v.rvol / CrossfadeLength
	}

	s := &v.sample
	for i := range frames {
		var value float64
		advanced := false
		if v.Mute {
			value = v.held
		} else {
			value = at(d, v.pointer)
			value += (at(d, v.pointer+v.dir) - value) * v.fraction
			v.held = value
		}

		if v.fraction += v.speed; v.fraction >= 1.0 {
			delta := int(v.fraction)
			v.fraction -= float64(delta)
			advanced = true
			if v.dir > 0 {
				v.pointer += delta
				if v.pointer > v.length {
					v.fraction += float64(v.pointer - v.length)
					v.pointer = v.length
				}
			} else {
				v.pointer -= delta
				if v.pointer < v.length {
					v.fraction += float64(v.length - v.pointer)
					v.pointer = v.length
				}
			}
		}
		if advanced && v.Mute {
			v.held = 0
		}

		f := &frames[i]
		if v.mixCounter == 0 {
			f.L += value * v.lvol
			f.R += value * v.rvol

			if v.volCounter != 0 {
				v.lvol += v.lvolDelta
				v.rvol += v.rvolDelta
				v.volCounter--
			} else if v.panCounter != 0 {
				v.lpan += v.lpanDelta
				v.rpan += v.rpanDelta
				v.panCounter--
				v.lvol = v.volume * v.lpan
				v.rvol = v.volume * v.rpan
			}
		} else {
			if v.hasOld {
				mixValue := v.mixOld(old)
				f.L += value*v.lmixRampU + mixValue*v.lmixRampD
				f.R += value*v.rmixRampU + mixValue*v.rmixRampD
				v.lmixRampD -= v.lmixDeltaD
				v.rmixRampD -= v.rmixDeltaD
			} else {
				f.L += value * v.lmixRampU
				f.R += value * v.rmixRampU
			}
			v.lmixRampU += v.lmixDeltaU
			v.rmixRampU += v.rmixDeltaU
			v.mixCounter--
			if v.mixCounter == 0 {
				v.hasOld = false
			}
		}

		if v.pointer == v.length {
			switch s.Loop {
			case LoopNone:
				v.enabled = false
			case LoopForward:
				v.pointer = s.LoopStart
				v.length = s.Length
			case LoopPingPong:
				if v.dir > 0 {
					v.pointer = s.Length - 1
					v.length = s.LoopStart
					v.dir = -1
				} else {
					v.fraction--
					v.pointer = s.LoopStart
					v.length = s.Length
					v.dir = 1
				}
			}
			if !v.enabled {
				break
			}
		}
	}
}

// mixOld produces the next value of the crossfaded-out sample.
func (v *Voice) mixOld(d []float32) float64 {
	var value float64
	if v.Mute {
		value = v.oldHeld
	} else {
		value = at(d, v.oldPointer)
		value += (at(d, v.oldPointer+v.oldDir) - value) * v.oldFraction
		v.oldHeld = value
	}

	if v.oldFraction += v.oldSpeed; v.oldFraction >= 1.0 {
		delta := int(v.oldFraction)
		v.oldFraction -= float64(delta)
		if v.Mute {
			v.oldHeld = 0
		}
		if v.oldDir > 0 {
			v.oldPointer += delta
			if v.oldPointer > v.oldLength {
				v.oldFraction += float64(v.oldPointer - v.oldLength)
				v.oldPointer = v.oldLength
			}
		} else {
			v.oldPointer -= delta
			if v.oldPointer < v.oldLength {
				v.oldFraction += float64(v.oldLength - v.oldPointer)
				v.oldPointer = v.oldLength
			}
		}
	}

	if v.oldPointer == v.oldLength {
		s := &v.oldSample
		switch s.Loop {
		case LoopNone:
			v.hasOld = false
		case LoopForward:
			v.oldPointer = s.LoopStart
			v.oldLength = s.Length
		case LoopPingPong:
			if v.oldDir > 0 {
				v.oldPointer = s.Length - 1
				v.oldLength = s.LoopStart
				v.oldDir = -1
			} else {
				v.oldFraction--
				v.oldPointer = s.LoopStart
				v.oldLength = s.Length
				v.oldDir = 1
			}
		}
	}
	return value
}
