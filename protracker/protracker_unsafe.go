package protracker

import (
	"unsafe"

	"github.com/quasilyte/chipmix/modfile"
)

// MemoryUsage approximates the player size in bytes.
// The sample data lives in the chip memory and is not included.
func (p *Player) MemoryUsage() uint {
	size := unsafe.Sizeof(*p)
	size += uintptr(len(p.module.patterns)) * unsafe.Sizeof(modfile.Pattern{})
	size += uintptr(len(p.module.order)) * unsafe.Sizeof(int(0))
	return uint(size)
}
