package soundblaster

import (
	"fmt"
)

// LoopMode is a sample loop kind.
type LoopMode uint8

const (
	LoopNone LoopMode = iota
	LoopForward
	LoopPingPong
)

func (m LoopMode) String() string {
	switch m {
	case LoopNone:
		return "none"
	case LoopForward:
		return "forward"
	case LoopPingPong:
		return "ping-pong"
	default:
		return "unknown"
	}
}

// Sample is a reference to a sample stored in the chip memory.
//
// The stored region is Length+1 values long: a guard value follows
// the sample data, so interpolation can always read one value ahead.
type Sample struct {
	Offset int

	// Length is the number of playable values.
	// For looped samples it's LoopStart+LoopLength.
	Length int

	LoopStart  int
	LoopLength int
	Loop       LoopMode
}

// IsEmpty reports whether the sample has nothing to play.
func (s Sample) IsEmpty() bool { return s.Length == 0 }

func (s Sample) String() string {
	return fmt.Sprintf("sample[%d+%d loop=%s %d+%d]", s.Offset, s.Length, s.Loop, s.LoopStart, s.LoopLength)
}

// StoreSample8 normalizes and stores signed 8-bit sample data.
func (c *Chip) StoreSample8(data []int8, loop LoopMode, loopStart, loopLength int) (Sample, error) {
	values := make([]float32, len(data))
	for i, v := range data {
		values[i] = float32(v) / 128
	}
	return c.StoreSample(values, loop, loopStart, loopLength)
}

// StoreSample16 normalizes and stores signed 16-bit sample data.
func (c *Chip) StoreSample16(data []int16, loop LoopMode, loopStart, loopLength int) (Sample, error) {
	values := make([]float32, len(data))
	for i, v := range data {
		values[i] = float32(v) / 32768
	}
	return c.StoreSample(values, loop, loopStart, loopLength)
}

// StoreSample stores normalized sample data in [-1, 1].
//
// The loop points are clamped to the data; a loop of zero length
// is turned into LoopNone. Data after the loop end is never played,
// so it's not stored.
func (c *Chip) StoreSample(data []float32, loop LoopMode, loopStart, loopLength int) (Sample, error) {
	if loop > LoopPingPong {
		return Sample{}, fmt.Errorf("soundblaster: unknown loop mode %d", loop)
	}
	s := Sample{
		Length: len(data),
		Loop:   loop,
	}
	if loop != LoopNone {
		s.LoopStart = clamp(loopStart, 0, len(data))
		s.LoopLength = clamp(loopLength, 0, len(data)-s.LoopStart)
		if s.LoopLength == 0 {
			s.Loop = LoopNone
			s.LoopStart = 0
		} else {
			s.Length = s.LoopStart + s.LoopLength
		}
	}

	stored := make([]float32, s.Length+1)
	copy(stored, data[:s.Length])
	switch {
	case s.Length == 0:
		// An empty sample still gets its guard value.
	case s.Loop == LoopForward:
		stored[s.Length] = data[s.LoopStart]
	default:
		stored[s.Length] = data[s.Length-1]
	}

	offset, err := c.mem.Append(stored...)
	if err != nil {
		return Sample{}, err
	}
	s.Offset = offset
	return s, nil
}
