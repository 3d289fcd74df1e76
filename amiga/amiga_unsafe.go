package amiga

import (
	"unsafe"
)

// MemoryUsage approximates the chip size in bytes, including its sample memory.
func (c *Chip) MemoryUsage() uint {
	return uint(unsafe.Sizeof(*c)) + uint(c.mem.Cap())
}
