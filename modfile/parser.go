package modfile

import (
	"encoding/binary"
	"strings"

	"github.com/quasilyte/chipmix/internal/binread"
)

const tagOffset = 1080

type parser struct {
	r      *binread.Reader
	module Module
}

func (p *parser) parse(data []byte) error {
	p.r = binread.NewReader(binary.BigEndian)
	p.r.Reset(data)
	if err := p.r.Run(p.parseModule); err != nil {
		return &ParseError{Message: err.Message, Offset: err.Offset}
	}
	return nil
}

// text reads a space or zero padded string field.
func (p *parser) text(n int, what string) string {
	return strings.TrimRight(p.r.CString(n, what), " ")
}

// words reads a 16-bit length field that is stored in words.
func (p *parser) words(what string) int {
	return int(p.r.U16(what)) * 2
}

func (p *parser) parseModule() {
	m := &p.module

	p.r.Stage("header")
	if p.r.Len() < HeaderSize {
		p.r.Failf("file is too small: %d bytes", p.r.Len())
	}
	p.r.Seek(tagOffset)
	tag := string(p.r.Bytes(4, "format tag"))
	if !isKnownTag(tag) {
		p.r.Seek(tagOffset)
		p.r.Failf("unsupported format tag %q", tag)
	}
	m.Tag = tag
	p.r.Seek(0)
	m.Title = p.text(20, "title")

	p.r.Stage("sample")
	for i := range m.Samples {
		p.r.SetIndex(i)
		p.parseSampleHeader(&m.Samples[i])
	}

	p.r.Stage("header")
	m.SongLength = int(p.r.U8("song length"))
	if m.SongLength == 0 || m.SongLength > 128 {
		p.r.Failf("invalid song length: %d", m.SongLength)
	}
	m.RestartPosition = int(p.r.U8("restart position"))
	m.PatternOrder = append([]uint8(nil), p.r.Bytes(128, "pattern order table")...)
	p.r.Skip(4, "format tag")

	// Every order entry counts, even the ones after the song end.
	numPatterns := 0
	for _, id := range m.PatternOrder {
		numPatterns = max(numPatterns, int(id)+1)
	}

	p.r.Stage("pattern")
	m.Patterns = make([]Pattern, numPatterns)
	for i := range m.Patterns {
		p.r.SetIndex(i)
		p.parsePattern(&m.Patterns[i])
	}

	p.r.Stage("sample data")
	for i := range m.Samples {
		p.r.SetIndex(i)
		s := &m.Samples[i]
		// A truncated sample keeps whatever data is left.
		n := min(s.Length, p.r.Remaining())
		s.Data = append([]byte(nil), p.r.Bytes(n, "sample data")...)
	}
}

func (p *parser) parseSampleHeader(s *Sample) {
	s.Name = p.text(22, "name")
	s.Length = p.words("length")

	// A signed nibble.
	finetune := int(p.r.U8("finetune") & 0x0f)
	if finetune > 7 {
		finetune -= 16
	}
	s.Finetune = finetune

	s.Volume = min(int(p.r.U8("volume")), 64)
	s.LoopStart = p.words("loop start")
	s.LoopLength = p.words("loop length")

	if s.Length == 0 {
		s.LoopStart = 0
		s.LoopLength = 0
		return
	}
	// Some trackers store the loop start in words, some in bytes.
	if s.LoopStart+s.LoopLength > s.Length && s.LoopStart/2+s.LoopLength <= s.Length {
		s.LoopStart /= 2
	}
	s.LoopStart = min(s.LoopStart, s.Length)
	s.LoopLength = min(s.LoopLength, s.Length-s.LoopStart)
}

// parsePattern decodes 64 rows of 4-byte cells:
//
//	ssss pppp pppp pppp | ssss eeee xxxx xxxx
//
// where s is a sample number split into two nibbles, p is a period,
// e is an effect and x is its parameter.
func (p *parser) parsePattern(pat *Pattern) {
	for row := range pat.Rows {
		for ch := range pat.Rows[row] {
			v := p.r.U32("note")
			pat.Rows[row][ch] = Note{
				Period: int(v>>16) & 0x0fff,
				Sample: int(v>>24)&0xf0 | int(v>>12)&0x0f,
				Effect: uint8(v>>8) & 0x0f,
				Param:  uint8(v),
			}
		}
	}
}
