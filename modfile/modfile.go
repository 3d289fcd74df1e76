// Package modfile decodes 31-sample ProTracker modules.
//
// Only the 4-channel "M.K." and "M!K!" variants are recognized.
package modfile

import (
	"fmt"
	"io"
)

const (
	// NumSamples is the number of sample slots in a module.
	NumSamples = 31

	// NumChannels is the number of pattern channels.
	NumChannels = 4

	// NumRows is the number of rows in every pattern.
	NumRows = 64

	// HeaderSize is the offset of the first pattern.
	HeaderSize = 1084
)

// Module is a parsed MOD file contents.
type Module struct {
	Title string

	// Tag is the format signature, either "M.K." or "M!K!".
	Tag string

	Samples [NumSamples]Sample

	// SongLength is the number of used PatternOrder entries.
	SongLength int

	// RestartPosition is the historical "restart" byte.
	// Most trackers write 127 there, players ignore it.
	RestartPosition int

	// PatternOrder holds all 128 order entries.
	// Only the first SongLength entries are played.
	PatternOrder []uint8

	Patterns []Pattern
}

// Sample is a sample header with its data.
// All lengths and offsets are in bytes.
type Sample struct {
	Name string

	// Length is the declared sample length.
	// Data may be shorter if the file was truncated.
	Length int

	// Finetune is in [-8, 7], in 1/8 semitone units.
	Finetune int

	// Volume is in [0, 64].
	Volume int

	LoopStart  int
	LoopLength int

	// Data holds signed 8-bit PCM values.
	Data []byte
}

// HasLoop reports whether the sample should be repeated.
func (s *Sample) HasLoop() bool {
	return s.LoopLength > 2 || (s.LoopStart != 0 && s.LoopLength != 0)
}

type Pattern struct {
	Rows [NumRows][NumChannels]Note
}

// Note is a single pattern cell.
type Note struct {
	// Period is the raw Amiga period; 0 means no note.
	Period int

	// Sample is a 1-based sample number; 0 means no sample.
	Sample int

	Effect uint8
	Param  uint8
}

// IsEmpty reports whether the cell has no data at all.
func (n Note) IsEmpty() bool {
	return n == Note{}
}

// NumPatterns returns the number of patterns stored in the file.
func (m *Module) NumPatterns() int {
	return len(m.Patterns)
}

// ParseError is a decoding failure.
type ParseError struct {
	Message string
	Offset  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (offset=%d)", e.Message, e.Offset)
}

// Parse reads MOD file data and decodes it into a module.
//
// A non-nil error is usually a *ParseError object.
func Parse(r io.Reader) (*Module, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes is like Parse, but takes the file contents directly.
// The returned module doesn't reference data.
func ParseBytes(data []byte) (*Module, error) {
	var p parser
	if err := p.parse(data); err != nil {
		return nil, err
	}
	return &p.module, nil
}

// Probe reports whether data looks like a supported MOD file.
// It only checks the format tag.
func Probe(data []byte) bool {
	if len(data) < HeaderSize {
		return false
	}
	return isKnownTag(string(data[1080:1084]))
}

func isKnownTag(tag string) bool {
	return tag == "M.K." || tag == "M!K!"
}
