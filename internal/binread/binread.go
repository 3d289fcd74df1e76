// Package binread implements a bounds-checked cursor over module file bytes.
//
// The read methods panic with *Error when the data ends too early,
// Reader.Run converts such a panic back into a returned value.
// This keeps the format decoders free from per-field error checks.
package binread

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Error describes a decoding failure at the given data offset.
type Error struct {
	Message string
	Offset  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (offset=%d)", e.Message, e.Offset)
}

// Reader reads fixed-size values in the configured byte order.
//
// A reader tracks a two-level position label (like "instrument[2].sample[0]")
// that prefixes every error message.
type Reader struct {
	data   []byte
	offset int
	order  binary.ByteOrder

	stage    string
	index    int
	subStage string
	subIndex int
}

// NewReader returns a reader without data, use Reset to attach it.
func NewReader(order binary.ByteOrder) *Reader {
	return &Reader{order: order, index: -1, subIndex: -1}
}

// Reset rewinds the reader to the beginning of data and clears the labels.
func (r *Reader) Reset(data []byte) {
	r.data = data
	r.offset = 0
	r.Stage("")
}

// Run calls fn and returns the *Error it panicked with, if any.
// Other panics are propagated.
func (r *Reader) Run(fn func()) (err *Error) {
	defer func() {
		rv := recover()
		if rv == nil {
			return
		}
		e, ok := rv.(*Error)
		if !ok {
			panic(rv)
		}
		err = e
	}()
	fn()
	return nil
}

// Stage starts a new top-level label and resets the sub-label.
func (r *Reader) Stage(name string) {
	r.stage = name
	r.index = -1
	r.SubStage("")
}

// SetIndex attaches an element index to the current stage label.
func (r *Reader) SetIndex(i int) { r.index = i }

// SubStage starts a nested label inside the current stage.
func (r *Reader) SubStage(name string) {
	r.subStage = name
	r.subIndex = -1
}

// SetSubIndex attaches an element index to the current sub-stage label.
func (r *Reader) SetSubIndex(i int) { r.subIndex = i }

func (r *Reader) label() string {
	if r.stage == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(r.stage)
	if r.index >= 0 {
		fmt.Fprintf(&b, "[%d]", r.index)
	}
	if r.subStage != "" {
		b.WriteByte('.')
		b.WriteString(r.subStage)
		if r.subIndex >= 0 {
			fmt.Fprintf(&b, "[%d]", r.subIndex)
		}
	}
	return b.String()
}

// Failf aborts the decoding with a labeled error at the current offset.
func (r *Reader) Failf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if l := r.label(); l != "" {
		msg = l + ": " + msg
	}
	panic(&Error{Message: msg, Offset: r.offset})
}

// Len returns the total data size.
func (r *Reader) Len() int { return len(r.data) }

// Offset returns the current position.
func (r *Reader) Offset() int { return r.offset }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.offset }

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(offset int) {
	if offset < 0 || offset > len(r.data) {
		r.Failf("seek to %d is out of bounds", offset)
	}
	r.offset = offset
}

func (r *Reader) need(n int, what string) {
	if n < 0 || r.Remaining() < n {
		r.Failf("unexpected EOF while reading %s", what)
	}
}

// Bytes returns the next n bytes. The result aliases the reader data.
func (r *Reader) Bytes(n int, what string) []byte {
	r.need(n, what)
	b := r.data[r.offset : r.offset+n : r.offset+n]
	r.offset += n
	return b
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int, what string) {
	r.need(n, what)
	r.offset += n
}

// CString reads an n-byte field that may be zero terminated.
func (r *Reader) CString(n int, what string) string {
	b := r.Bytes(n, what)
	if i := bytes.IndexByte(b, 0); i != -1 {
		b = b[:i]
	}
	return string(b)
}

func (r *Reader) U8(what string) uint8 {
	return r.Bytes(1, what)[0]
}

func (r *Reader) I8(what string) int8 {
	return int8(r.U8(what))
}

func (r *Reader) U16(what string) uint16 {
	return r.order.Uint16(r.Bytes(2, what))
}

func (r *Reader) U32(what string) uint32 {
	return r.order.Uint32(r.Bytes(4, what))
}
