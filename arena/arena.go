// Package arena implements the append-only sample memory used by the
// mixing backends.
//
// Regions are addressed by offsets, never by pointers. Every accessor
// is bounds-checked and reports a *RangeError instead of panicking.
package arena

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrFull is returned when a store does not fit into the remaining capacity.
	ErrFull = errors.New("arena: capacity exceeded")

	// ErrFrozen is returned when a store is attempted after Freeze.
	ErrFrozen = errors.New("arena: store after freeze")
)

// RangeError describes an out-of-bounds region access.
type RangeError struct {
	Offset int
	Length int

	// Len is the arena length at the moment of the access.
	Len int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("arena: region [%d, %d) is out of bounds (len=%d)", e.Offset, e.Offset+e.Length, e.Len)
}

// Arena is a bump allocator over a contiguous slice of T.
//
// Stores never overlap and never move already stored data,
// so offsets stay valid for the arena lifetime.
type Arena[T any] struct {
	data     []T
	capacity int
	frozen   bool
}

// New allocates an empty arena that can hold up to capacity values.
func New[T any](capacity int) *Arena[T] {
	return &Arena[T]{
		data:     make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Len reports the number of stored values.
func (a *Arena[T]) Len() int { return len(a.data) }

// Cap reports the arena capacity.
func (a *Arena[T]) Cap() int { return a.capacity }

// Data returns the stored values.
// The result is a read-only view: it must not be modified or appended to.
func (a *Arena[T]) Data() []T { return a.data[:len(a.data):len(a.data)] }

// Frozen reports whether the arena accepts stores.
func (a *Arena[T]) Frozen() bool { return a.frozen }

// Freeze forbids any further stores.
// Loading is expected to finish before the playback starts.
func (a *Arena[T]) Freeze() { a.frozen = true }

// Store appends n values taken from src starting at pos and returns
// the offset of the new region.
//
// A negative pos means "from the beginning".
// When src holds less than n values after pos, the copy is truncated
// and the rest of the region is zero-filled, so [offset, offset+n) is
// always a valid region after a successful store.
func (a *Arena[T]) Store(src []T, n, pos int) (int, error) {
	if n < 0 {
		return 0, &RangeError{Offset: pos, Length: n, Len: len(src)}
	}
	if err := a.grow(n); err != nil {
		return 0, err
	}
	pos = max(pos, 0)
	offset := len(a.data)
	a.data = a.data[:offset+n]
	region := a.data[offset:]
	copied := 0
	if pos < len(src) {
		copied = copy(region, src[pos:])
	}
	clear(region[copied:])
	return offset, nil
}

// Append stores values as a new region.
func (a *Arena[T]) Append(values ...T) (int, error) {
	return a.Store(values, len(values), 0)
}

// Slice returns the [off, off+n) region.
func (a *Arena[T]) Slice(off, n int) ([]T, error) {
	if err := a.Check(off, n); err != nil {
		return nil, err
	}
	return a.data[off : off+n : off+n], nil
}

// At returns a single stored value.
func (a *Arena[T]) At(i int) (T, error) {
	if err := a.Check(i, 1); err != nil {
		var zero T
		return zero, err
	}
	return a.data[i], nil
}

// Check validates the [off, off+n) region without touching it.
func (a *Arena[T]) Check(off, n int) error {
	if off < 0 || n < 0 || off+n > len(a.data) {
		return &RangeError{Offset: off, Length: n, Len: len(a.data)}
	}
	return nil
}

func (a *Arena[T]) grow(n int) error {
	if a.frozen {
		return ErrFrozen
	}
	if n > a.capacity-len(a.data) {
		return ErrFull
	}
	if cap(a.data) < a.capacity {
		// Arenas are allocated with their full capacity up front,
		// this only happens for a zero-value Arena.
		a.data = append(make([]T, 0, a.capacity), a.data...)
	}
	return nil
}

// StoreFrom reads up to n bytes from r into a new region of a.
//
// This is a stream-relative store: a short read is a truncation and the
// region is zero-padded to n bytes, any other read error is returned
// and nothing is stored.
func StoreFrom(a *Arena[byte], r io.Reader, n int) (int, error) {
	if n < 0 {
		return 0, &RangeError{Offset: 0, Length: n, Len: a.Len()}
	}
	if err := a.grow(n); err != nil {
		return 0, err
	}
	buf := make([]byte, n)
	got, err := io.ReadFull(r, buf)
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
	default:
		return 0, fmt.Errorf("arena: read sample data: %w", err)
	}
	return a.Store(buf[:got], n, 0)
}
