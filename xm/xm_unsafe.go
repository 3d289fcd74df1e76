package xm

import (
	"unsafe"
)

// MemoryUsage approximates the compiled module size in bytes.
// The sample data lives in the chip memory and is not included.
func (p *Player) MemoryUsage() uint {
	return moduleSize(&p.module) + uint(len(p.channels))*uint(unsafe.Sizeof(channel{}))
}

func moduleSize(m *module) uint {
	memoryUsage := 0
	for _, inst := range m.instruments {
		memoryUsage += int(unsafe.Sizeof(instrument{}))
		memoryUsage += len(inst.samples) * int(unsafe.Sizeof(sample{}))
		memoryUsage += len(inst.volumeEnvelope.points) * int(unsafe.Sizeof(envelopePoint{}))
		memoryUsage += len(inst.panningEnvelope.points) * int(unsafe.Sizeof(envelopePoint{}))
	}
	for _, p := range m.patterns {
		memoryUsage += int(unsafe.Sizeof(pattern{}))
		memoryUsage += len(p.notes) * 2
	}
	memoryUsage += len(m.noteTab) * int(unsafe.Sizeof(patternNote{}))

	return uint(memoryUsage)
}
