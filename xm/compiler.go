package xm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/quasilyte/chipmix/internal/xmdb"
	"github.com/quasilyte/chipmix/soundblaster"
	"github.com/quasilyte/chipmix/xmfile"
)

type moduleCompiler struct {
	chip   *soundblaster.Chip
	result module

	// A row-less pattern that is used for order entries that
	// point to non-existing patterns.
	emptyPattern *pattern
}

type moduleConfig struct {
	bpm   uint
	tempo uint
}

func compileModule(chip *soundblaster.Chip, m *xmfile.Module, config moduleConfig) (module, error) {
	c := &moduleCompiler{chip: chip}
	c.result = module{
		numChannels: m.NumChannels,
		restart:     m.RestartPosition,
		linear:      m.LinearFrequencies(),
		bpm:         int(config.bpm),
		ticksPerRow: int(config.tempo),
	}
	err := c.compile(m)
	return c.result, err
}

func (c *moduleCompiler) compile(m *xmfile.Module) error {
	if m.NumChannels <= 0 || m.NumChannels > c.chip.NumVoices() {
		return fmt.Errorf("module needs %d channels, the chip has %d voices", m.NumChannels, c.chip.NumVoices())
	}

	if err := c.compileInstruments(m); err != nil {
		return err
	}

	c.compilePatterns(m)

	return nil
}

func (c *moduleCompiler) compileInstruments(m *xmfile.Module) error {
	c.result.instruments = make([]instrument, len(m.Instruments))
	for i := range m.Instruments {
		rawInst := &m.Instruments[i]
		inst := &c.result.instruments[i]
		inst.id = i
		copy(inst.keymap[:], rawInst.KeymapAssignments)
		inst.fadeout = rawInst.VolumeFadeout << 1
		inst.vibratoType = rawInst.VibratoType & 0b11
		inst.vibratoSweep = int(rawInst.VibratoSweep)
		inst.vibratoDepth = int(rawInst.VibratoDepth)
		inst.vibratoRate = int(rawInst.VibratoRate)

		inst.volumeEnvelope = compileEnvelope(rawInst.EnvelopeVolume, rawInst.VolumeFlags,
			rawInst.VolumeSustainPoint, rawInst.VolumeLoopStartPoint, rawInst.VolumeLoopEndPoint)
		inst.panningEnvelope = compileEnvelope(rawInst.EnvelopePanning, rawInst.PanningFlags,
			rawInst.PanningSustainPoint, rawInst.PanningLoopStartPoint, rawInst.PanningLoopEndPoint)

		inst.samples = make([]sample, len(rawInst.Samples))
		for j := range rawInst.Samples {
			s, err := c.compileSample(&rawInst.Samples[j])
			if err != nil {
				return fmt.Errorf("instrument[%d].sample[%d]: %w", i, j, err)
			}
			inst.samples[j] = s
		}
	}

	return nil
}

func compileEnvelope(points []xmfile.EnvelopePoint, flags xmfile.EnvelopeFlags, sustain, loopStart, loopEnd uint8) envelope {
	e := envelope{
		flags:  flags,
		points: make([]envelopePoint, len(points)),
	}
	if len(points) == 0 {
		return e
	}
	last := len(points) - 1
	e.sustain = min(int(sustain), last)
	e.loopStart = min(int(loopStart), last)
	e.loopEnd = min(int(loopEnd), last)
	if e.loopStart > e.loopEnd {
		e.loopStart = e.loopEnd
	}

	// The envelope runner needs strictly increasing frames.
	prevFrame := -1
	for i, p := range points {
		frame := max(int(p.X), prevFrame+1)
		e.points[i] = envelopePoint{
			frame: frame,
			value: clamp(int(p.Y), 0, 64),
		}
		prevFrame = frame
	}
	return e
}

func (c *moduleCompiler) compileSample(raw *xmfile.InstrumentSample) (sample, error) {
	s := sample{
		volume:       clamp(raw.Volume, 0, 64),
		panning:      int(raw.Panning),
		finetune:     raw.Finetune,
		relativeNote: raw.RelativeNote,
	}

	loop := soundblaster.LoopNone
	switch raw.LoopType() {
	case xmfile.SampleLoopForward:
		loop = soundblaster.LoopForward
	case xmfile.SampleLoopPingPong:
		loop = soundblaster.LoopPingPong
	case xmfile.SampleLoopNone:
		// OK
	default:
		return s, errors.New("unknown sample loop type")
	}

	var err error
	switch {
	case raw.Format == xmfile.SampleFormatADPCM:
		s.data, err = c.chip.StoreSample8(decodeADPCM(raw.Data, raw.Length), loop, raw.LoopStart, raw.LoopLength)
	case raw.Is16bits():
		s.data, err = c.chip.StoreSample16(decodeDelta16(raw.Data), loop, raw.LoopStart/2, raw.LoopLength/2)
	default:
		s.data, err = c.chip.StoreSample8(decodeDelta8(raw.Data), loop, raw.LoopStart, raw.LoopLength)
	}
	return s, err
}

// decodeDelta8 converts delta-encoded bytes into absolute sample values.
func decodeDelta8(data []byte) []int8 {
	dst := make([]int8, len(data))
	v := int8(0)
	for i, delta := range data {
		v += int8(delta)
		dst[i] = v
	}
	return dst
}

// decodeDelta16 is decodeDelta8 for 16-bit little endian values.
func decodeDelta16(data []byte) []int16 {
	dst := make([]int16, len(data)/2)
	v := int16(0)
	for i := range dst {
		v += int16(binary.LittleEndian.Uint16(data[i*2:]))
		dst[i] = v
	}
	return dst
}

// decodeADPCM unpacks 4-bit codes through the 16-entry delta table
// that precedes them. The low nibble comes first.
func decodeADPCM(data []byte, length int) []int8 {
	if len(data) < 16 {
		return nil
	}
	var table [16]int8
	for i := range table {
		table[i] = int8(data[i])
	}
	codes := data[16:]
	length = min(length, len(codes)*2)

	dst := make([]int8, length)
	v := int8(0)
	for i := range dst {
		code := codes[i/2]
		if i%2 == 1 {
			code >>= 4
		}
		v += table[code&0xf]
		dst[i] = v
	}
	return dst
}

func (c *moduleCompiler) compilePatterns(m *xmfile.Module) {
	numChannels := m.NumChannels

	c.result.noteTab = make([]patternNote, len(m.Notes))
	for i, n := range m.Notes {
		c.result.noteTab[i] = compileNote(n)
	}
	if len(c.result.noteTab) == 0 {
		c.result.noteTab = append(c.result.noteTab, patternNote{})
	}

	c.result.patterns = make([]pattern, len(m.Patterns))
	for i := range m.Patterns {
		rawPat := &m.Patterns[i]
		pat := &c.result.patterns[i]
		pat.numRows = len(rawPat.Rows)
		pat.notes = make([]uint16, 0, len(rawPat.Rows)*numChannels)
		for _, row := range rawPat.Rows {
			for ch := 0; ch < numChannels; ch++ {
				id := uint16(0)
				if ch < len(row.Notes) && int(row.Notes[ch]) < len(c.result.noteTab) {
					id = row.Notes[ch]
				}
				pat.notes = append(pat.notes, id)
			}
		}
		if pat.numRows == 0 {
			*pat = *c.getEmptyPattern()
		}
	}

	// Bind pattern order to the actual patterns.
	c.result.patternOrder = make([]*pattern, len(m.PatternOrder))
	for i, patternIndex := range m.PatternOrder {
		if int(patternIndex) < len(c.result.patterns) {
			c.result.patternOrder[i] = &c.result.patterns[patternIndex]
		} else {
			c.result.patternOrder[i] = c.getEmptyPattern()
		}
	}

	if c.result.restart < 0 || c.result.restart >= len(c.result.patternOrder) {
		c.result.restart = 0
	}
}

func (c *moduleCompiler) getEmptyPattern() *pattern {
	if c.emptyPattern == nil {
		const numRows = 64
		c.emptyPattern = &pattern{
			numRows: numRows,
			notes:   make([]uint16, numRows*c.result.numChannels),
		}
	}
	return c.emptyPattern
}

func compileNote(n xmfile.PatternNote) patternNote {
	return patternNote{
		note:       n.Note,
		instrument: n.Instrument,
		volume:     n.Volume,
		effect:     xmdb.ConvertEffect(n),
		volEffect:  xmdb.EffectFromVolumeByte(n.Volume),
	}
}
