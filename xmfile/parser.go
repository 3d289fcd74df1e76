package xmfile

import (
	"encoding/binary"
	"strings"

	"github.com/quasilyte/chipmix/internal/binread"
)

// MaxChannels is the maximum number of channels a module can have.
const MaxChannels = 32

const (
	headerIDText = "extended module: "

	// Some trackers write smaller values, but every sample header
	// occupies at least this many bytes.
	sampleHeaderMinSize = 40

	patternHeaderMinSize = 9

	maxEnvelopePoints = 12
	maxSamples        = 16
	defaultNumRows    = 64
)

// Every packed cell field has its own presence bit.
const (
	cellPacked     = 0x80
	cellHasNote    = 0x01
	cellHasInst    = 0x02
	cellHasVolume  = 0x04
	cellHasEffect  = 0x08
	cellHasParam   = 0x10
	cellAllPresent = cellHasNote | cellHasInst | cellHasVolume | cellHasEffect | cellHasParam
)

type parser struct {
	r      *binread.Reader
	config ParserConfig
	module Module

	rows  slab[PatternRow]
	cells slab[uint16]

	// notes maps the cell contents (with zero ID) to the interned note ID.
	notes map[PatternNote]uint16
}

func newParser(config ParserConfig) *parser {
	p := &parser{
		r:      binread.NewReader(binary.LittleEndian),
		config: config,
		rows:   newSlab[PatternRow](64*20, 6),
		cells:  newSlab[uint16](2048*8, 6),
		notes:  make(map[PatternNote]uint16, 512),
	}
	p.module.Notes = make([]PatternNote, 0, 512)
	return p
}

func (p *parser) Parse(data []byte) error {
	p.reset(data)
	if err := p.r.Run(p.parseModule); err != nil {
		return &ParseError{Message: err.Message, Offset: err.Offset}
	}
	return nil
}

// reset prepares the parser for the next module while keeping
// the allocated memory around.
func (p *parser) reset(data []byte) {
	p.r.Reset(data)
	clear(p.notes)
	p.rows.reset()
	p.cells.reset()
	p.module = Module{
		Notes:        p.module.Notes[:0],
		Patterns:     p.module.Patterns[:0],
		Instruments:  p.module.Instruments[:0],
		PatternOrder: p.module.PatternOrder[:0],
	}
}

func (p *parser) optionalString(n int, what string) string {
	if !p.config.NeedStrings {
		p.r.Skip(n, what)
		return ""
	}
	return p.r.CString(n, what)
}

// count reads a 16-bit element counter and checks it against [lo, hi].
func (p *parser) count(what string, lo, hi int) int {
	v := int(p.r.U16(what))
	if v < lo || v > hi {
		p.r.Failf("invalid %s: %d", what, v)
	}
	return v
}

// block reads a 32-bit size prefix and returns the end offset of the block.
// The prefix may count itself, that's what includeSelf is for.
func (p *parser) block(what string, includeSelf bool) int {
	start := p.r.Offset()
	size := int(int32(p.r.U32(what)))
	end := p.r.Offset() + size
	if includeSelf {
		end = start + size
	}
	if size < 0 || end > p.r.Len() {
		p.r.Failf("invalid %s: %d", what, size)
	}
	return end
}

// leave moves to the block end, reporting an overrun.
func (p *parser) leave(end int) {
	if extra := p.r.Offset() - end; extra > 0 {
		p.r.Failf("consumed %d extra bytes", extra)
	}
	p.r.Seek(end)
}

func (p *parser) parseModule() {
	p.internNote(PatternNote{})

	p.r.Stage("header")
	p.parseHeader()

	p.r.Stage("pattern")
	for i := 0; i < p.module.NumPatterns; i++ {
		p.r.SetIndex(i)
		p.module.Patterns = append(p.module.Patterns, p.parsePattern())
	}

	p.r.Stage("instrument")
	for i := 0; i < p.module.NumInstruments; i++ {
		p.r.SetIndex(i)
		p.module.Instruments = append(p.module.Instruments, p.parseInstrument())
	}
}

func (p *parser) parseHeader() {
	m := &p.module

	if id := p.r.CString(len(headerIDText), "id text"); !strings.EqualFold(id, headerIDText) {
		p.r.Failf("unexpected ID text: %q", id)
	}
	m.Name = strings.TrimSpace(p.r.CString(20, "module name"))
	if b := p.r.U8("magic byte"); b != 0x1a {
		p.r.Failf("expected 0x1a, found %#02x", b)
	}
	m.TrackerName = strings.TrimSpace(p.r.CString(20, "tracker name"))

	version := p.r.U16("version")
	m.Version = [2]byte{uint8(version >> 8), uint8(version)}

	end := p.block("header size", true)

	m.SongLength = p.count("song length", 1, 256)
	m.RestartPosition = int(p.r.U16("restart position"))
	if m.RestartPosition > m.SongLength {
		m.RestartPosition = 0
	}
	m.NumChannels = p.count("number of channels", 1, MaxChannels)
	m.NumPatterns = p.count("number of patterns", 0, 256)
	m.NumInstruments = p.count("number of instruments", 0, 128)
	m.Flags = p.r.U16("flags")
	m.DefaultTempo = int(p.r.U16("default tempo"))
	m.DefaultBPM = int(p.r.U16("default bpm"))
	m.PatternOrder = append(m.PatternOrder, p.r.Bytes(m.SongLength, "pattern order table")...)

	// The order table field is 256 bytes long, the header size covers it.
	p.r.Seek(end)
}

func (p *parser) parsePattern() Pattern {
	headerLength := int(p.r.U32("pattern header length"))
	if headerLength < patternHeaderMinSize {
		p.r.Failf("invalid pattern header length: %d", headerLength)
	}
	p.r.Skip(1, "packing type")
	numRows := p.count("number of rows", 1, 256)
	packedSize := int(p.r.U16("packed pattern data size"))
	p.r.Skip(headerLength-patternHeaderMinSize, "pattern header padding")

	if p.r.Remaining() < packedSize {
		p.r.Failf("incomplete packed pattern data")
	}
	end := p.r.Offset() + packedSize

	if packedSize == 0 {
		return p.emptyPattern()
	}

	pat := Pattern{Rows: p.rows.alloc(numRows)}
	for i := range pat.Rows {
		row := p.cells.alloc(p.module.NumChannels)
		for ch := range row {
			row[ch] = p.internNote(p.parseCell())
		}
		pat.Rows[i].Notes = row
	}

	switch pos := p.r.Offset(); {
	case pos < end:
		p.r.Failf("found %d redundant bytes in the pattern data", end-pos)
	case pos > end:
		p.r.Failf("consumed %d extra bytes of the pattern data", pos-end)
	}
	return pat
}

// emptyPattern returns the shared 64-row pattern of empty notes.
// The zero-size pattern data is treated as 64 rows of 0x80 bytes.
func (p *parser) emptyPattern() Pattern {
	if p.module.EmptyPattern.Rows == nil {
		rows := p.rows.alloc(defaultNumRows)
		for i := range rows {
			rows[i].Notes = p.cells.alloc(p.module.NumChannels)
		}
		p.module.EmptyPattern = Pattern{Rows: rows, IsEmpty: true}
	}
	return p.module.EmptyPattern
}

// parseCell decodes one packed pattern cell.
//
// A cell either has all five bytes, or starts with a flags byte
// that lists which of the fields follow.
func (p *parser) parseCell() PatternNote {
	var n PatternNote
	flags := p.r.U8("first note byte")
	if flags&cellPacked == 0 {
		n.Note = flags
		flags = cellAllPresent &^ cellHasNote
	}
	if flags&cellHasNote != 0 {
		n.Note = p.r.U8("pattern note")
	}
	if flags&cellHasInst != 0 {
		n.Instrument = p.r.U8("pattern instrument")
	}
	if flags&cellHasVolume != 0 {
		n.Volume = p.r.U8("pattern volume")
	}
	if flags&cellHasEffect != 0 {
		n.EffectType = p.r.U8("effect type")
	}
	if flags&cellHasParam != 0 {
		n.EffectParameter = p.r.U8("effect type parameter")
	}
	return n
}

func (p *parser) parseInstrument() Instrument {
	var inst Instrument
	end := p.block("instrument header size", true)

	inst.Name = p.optionalString(22, "instrument name")
	p.r.Skip(1, "instrument type")
	numSamples := int(p.r.U16("number of samples"))
	if numSamples == 0 {
		p.leave(end)
		return inst
	}
	if numSamples > maxSamples {
		p.r.Failf("invalid number of samples: %d", numSamples)
	}

	sampleHeaderSize := max(int(p.r.U32("instrument sample header size")), sampleHeaderMinSize)
	inst.KeymapAssignments = p.r.Bytes(96, "instrument samples keymap assignments")

	// Both envelopes are stored as 12 points, only the leading
	// ones are used. The counters follow the point arrays.
	var volume, panning [maxEnvelopePoints]EnvelopePoint
	p.readEnvelope(volume[:], "envelope volume")
	p.readEnvelope(panning[:], "envelope panning")
	inst.EnvelopeVolume = usedPoints(volume[:], p.r.U8("number of volume points"))
	inst.EnvelopePanning = usedPoints(panning[:], p.r.U8("number of panning points"))

	inst.VolumeSustainPoint = p.r.U8("volume sustain point")
	inst.VolumeLoopStartPoint = p.r.U8("volume loop start point")
	inst.VolumeLoopEndPoint = p.r.U8("volume loop end point")
	inst.PanningSustainPoint = p.r.U8("panning sustain point")
	inst.PanningLoopStartPoint = p.r.U8("panning loop start point")
	inst.PanningLoopEndPoint = p.r.U8("panning loop end point")
	inst.VolumeFlags = EnvelopeFlags(p.r.U8("volume type"))
	inst.PanningFlags = EnvelopeFlags(p.r.U8("panning type"))

	inst.VibratoType = p.r.U8("vibrato type")
	inst.VibratoSweep = p.r.U8("vibrato sweep")
	inst.VibratoDepth = p.r.U8("vibrato depth")
	inst.VibratoRate = p.r.U8("vibrato rate")

	inst.VolumeFadeout = int(p.r.U16("volume fadeout"))
	p.leave(end)

	// All sample headers go first, then all sample data blocks.
	inst.Samples = make([]InstrumentSample, numSamples)
	p.r.SubStage("sample")
	for i := range inst.Samples {
		p.r.SetSubIndex(i)
		next := p.r.Offset() + sampleHeaderSize
		p.parseSampleHeader(&inst.Samples[i])
		if next > p.r.Len() {
			p.r.Failf("unexpected EOF while reading sample header")
		}
		p.r.Seek(next)
	}
	p.r.SubStage("sampledata")
	for i := range inst.Samples {
		p.r.SetSubIndex(i)
		s := &inst.Samples[i]
		if s.Length != 0 {
			s.Data = p.r.Bytes(s.encodedSize(), "sample data")
		}
	}

	return inst
}

func (p *parser) readEnvelope(dst []EnvelopePoint, what string) {
	for i := range dst {
		dst[i].X = p.r.U16(what + " point x")
		dst[i].Y = p.r.U16(what + " point y")
	}
}

func usedPoints(points []EnvelopePoint, n uint8) []EnvelopePoint {
	if n == 0 {
		return nil
	}
	return append([]EnvelopePoint(nil), points[:min(int(n), len(points))]...)
}

func (p *parser) parseSampleHeader(s *InstrumentSample) {
	length := int32(p.r.U32("sample length"))
	if length < 0 {
		p.r.Failf("invalid sample length: %d", length)
	}
	s.Length = int(length)
	s.LoopStart = int(p.r.U32("sample loop start"))
	s.LoopLength = int(p.r.U32("sample loop length"))
	s.Volume = int(p.r.U8("sample volume"))
	s.Finetune = int(p.r.I8("sample finetune"))
	s.TypeFlags = p.r.U8("sample type")
	s.Panning = p.r.U8("sample panning")
	s.RelativeNote = int(p.r.I8("sample relative note number"))

	switch encoding := p.r.U8("sample encoding"); encoding {
	case 0:
		s.Format = SampleFormatDeltaPacked
	case 0xAD:
		s.Format = SampleFormatADPCM
	default:
		p.r.Failf("unknown sample encoding scheme (%#02x)", encoding)
	}

	s.Name = p.optionalString(22, "sample name")
}

// encodedSize returns the number of data bytes the sample occupies in the file.
func (s *InstrumentSample) encodedSize() int {
	if s.Format == SampleFormatADPCM {
		// A 16-byte delta table followed by the 4-bit codes.
		return 16 + (s.Length+1)/2
	}
	return s.Length
}

// internNote returns the ID of n, adding it to the module notes
// table if it wasn't seen before.
func (p *parser) internNote(n PatternNote) uint16 {
	n.ID = 0
	if id, ok := p.notes[n]; ok {
		return id
	}
	id := uint16(len(p.module.Notes))
	p.notes[n] = id
	n.ID = id
	p.module.Notes = append(p.module.Notes, n)
	return id
}
