package xmfile

import (
	"fmt"
	"io"
)

// Module is a parsed XM file contents.
// This is a raw module format that is not optimized for anything.
//
// Pattern rows refer to the notes by their IDs: every distinct note
// is stored exactly once inside the Notes slice.
type Module struct {
	Name string

	TrackerName string

	// Major and minor version numbers.
	// Version[0] is a major version.
	// Version[1] is a minor version.
	Version [2]byte

	SongLength      int
	RestartPosition int

	NumChannels    int
	NumPatterns    int
	NumInstruments int

	// 0 - Amiga
	// 1 - Linear
	Flags uint16

	DefaultTempo int
	DefaultBPM   int

	PatternOrder []uint8

	Patterns []Pattern

	Instruments []Instrument

	// Notes is a table of all unique pattern notes.
	// The note with ID=0 is always an empty note.
	Notes []PatternNote

	// EmptyPattern is shared by all patterns that have no packed data.
	EmptyPattern Pattern
}

// LinearFrequencies reports whether the module uses the linear frequency table.
func (m *Module) LinearFrequencies() bool {
	return m.Flags&0b1 != 0
}

type Pattern struct {
	Rows []PatternRow

	// IsEmpty is set for the patterns without packed data.
	IsEmpty bool
}

type PatternRow struct {
	// Notes contains one note ID per channel.
	// Use Module.Notes to get the note data.
	Notes []uint16
}

type PatternNote struct {
	ID uint16

	Note            uint8
	Instrument      uint8
	Volume          uint8
	EffectType      uint8
	EffectParameter uint8
}

// KeyOffNote is a special note value that releases the instrument.
const KeyOffNote = 97

// IsEmpty reports whether the note has no data at all.
func (n PatternNote) IsEmpty() bool {
	return n.Note == 0 && n.Instrument == 0 && n.Volume == 0 && n.EffectType == 0 && n.EffectParameter == 0
}

type Instrument struct {
	Name string

	KeymapAssignments []byte
	EnvelopeVolume    []EnvelopePoint
	EnvelopePanning   []EnvelopePoint

	VolumeSustainPoint    uint8
	VolumeLoopStartPoint  uint8
	VolumeLoopEndPoint    uint8
	PanningSustainPoint   uint8
	PanningLoopStartPoint uint8
	PanningLoopEndPoint   uint8

	VolumeFlags  EnvelopeFlags
	PanningFlags EnvelopeFlags

	VibratoType  uint8
	VibratoSweep uint8
	VibratoDepth uint8
	VibratoRate  uint8

	VolumeFadeout int

	Samples []InstrumentSample
}

// EnvelopePoint is a (frame, value) envelope node.
type EnvelopePoint struct {
	X uint16
	Y uint16
}

type InstrumentSample struct {
	Name         string
	Length       int
	LoopStart    int
	LoopLength   int
	Volume       int
	Finetune     int
	TypeFlags    uint8
	Panning      uint8
	RelativeNote int
	Format       SampleFormat

	// Data holds the encoded sample bytes.
	// For SampleFormatDeltaPacked it's a delta-encoded stream of
	// 8-bit or 16-bit little endian values (see Is16bits).
	// For SampleFormatADPCM it's a 16-byte delta table followed by the 4-bit codes.
	Data []uint8
}

type SampleLoopType int

const (
	SampleLoopNone SampleLoopType = iota
	SampleLoopForward
	SampleLoopPingPong
	SampleLoopUnknown
)

func (s *InstrumentSample) LoopType() SampleLoopType {
	bits := s.TypeFlags & 0b11
	return SampleLoopType(bits)
}

func (s *InstrumentSample) Is16bits() bool {
	return (s.TypeFlags & (1 << 4)) != 0
}

type EnvelopeFlags int

func (f EnvelopeFlags) IsOn() bool {
	return f&(1<<0) != 0
}

func (f EnvelopeFlags) SustainEnabled() bool {
	return f&(1<<1) != 0
}

func (f EnvelopeFlags) LoopEnabled() bool {
	return f&(1<<2) != 0
}

type SampleFormat int

const (
	SampleFormatDeltaPacked SampleFormat = iota
	SampleFormatADPCM
)

// ParseError is a decoding failure.
// The message is prefixed with the file section it was found in,
// like "instrument[1].sample[0]".
type ParseError struct {
	Message string

	// Offset is the data position at which the error was detected.
	Offset int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (offset=%d)", e.Message, e.Offset)
}

// ParserConfig configures the parser.
type ParserConfig struct {
	// NeedStrings makes the parser decode instrument and sample names.
	// The module and tracker names are always decoded.
	NeedStrings bool
}

// Parser decodes XM files.
//
// A parser can be reused to decode several files. Note that the
// module returned by the parser shares its memory with the parser:
// it's valid only until the next Parse call.
type Parser struct {
	impl *parser
}

// NewParser creates a reusable parser.
func NewParser(config ParserConfig) *Parser {
	return &Parser{impl: newParser(config)}
}

// ParseFromBytes decodes data into a module.
//
// A non-nil error is usually a *ParseError object.
func (p *Parser) ParseFromBytes(data []byte) (*Module, error) {
	if err := p.impl.Parse(data); err != nil {
		return nil, err
	}
	return &p.impl.module, nil
}

// Parse reads XM file data and decodes it into a module.
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
func ParseBytes(data []byte) (*Module, error) {
	p := newParser(ParserConfig{NeedStrings: true})
	if err := p.Parse(data); err != nil {
		return nil, err
	}
	return &p.module, nil
}
