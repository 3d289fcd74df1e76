// Package testmod builds small XM and MOD files for tests.
package testmod

import (
	"bytes"
	"encoding/binary"
)

// XMNote is a single pattern cell.
type XMNote struct {
	Note       uint8
	Instrument uint8
	Volume     uint8
	Effect     uint8
	Param      uint8
}

func (n XMNote) isEmpty() bool { return n == XMNote{} }

// XMSample is an instrument sample.
// Either Data or Data16 is used.
type XMSample struct {
	Data   []int8
	Data16 []int16

	// Loop is 0 (none), 1 (forward) or 2 (ping-pong).
	// LoopStart and LoopLength are in sample values.
	Loop       uint8
	LoopStart  int
	LoopLength int

	Volume       uint8
	Finetune     int8
	Panning      uint8
	RelativeNote int8

	ADPCM bool
}

// XMInstrument is an instrument with its samples.
type XMInstrument struct {
	Name    string
	Samples []XMSample

	// Keymap maps notes to samples. A nil keymap uses the first sample.
	Keymap []uint8

	VolumeEnvelope [][2]uint16
	VolumeFlags    uint8
	VolumeSustain  uint8
	VolumeLoop     [2]uint8

	PanningEnvelope [][2]uint16
	PanningFlags    uint8

	VibratoType  uint8
	VibratoSweep uint8
	VibratoDepth uint8
	VibratoRate  uint8

	Fadeout uint16
}

// XM describes a module to encode.
type XM struct {
	Name     string
	Channels int
	Tempo    int
	BPM      int
	Restart  int
	Amiga    bool
	Order    []uint8

	// Patterns are indexed as [pattern][row][channel].
	// A pattern without rows is encoded as a standard empty pattern.
	Patterns [][][]XMNote

	Instruments []XMInstrument
}

// Bytes encodes the module in the XM format.
func (x *XM) Bytes() []byte {
	var b bytes.Buffer
	le := func(v any) { binary.Write(&b, binary.LittleEndian, v) }
	str := func(s string, n int) {
		buf := make([]byte, n)
		copy(buf, s)
		b.Write(buf)
	}

	str("Extended Module: ", 17)
	str(x.Name, 20)
	b.WriteByte(0x1a)
	str("chipmix test", 20)
	le(uint16(0x0104))
	le(uint32(276))
	le(uint16(len(x.Order)))
	le(uint16(x.Restart))
	le(uint16(x.Channels))
	le(uint16(len(x.Patterns)))
	le(uint16(len(x.Instruments)))
	flags := uint16(1)
	if x.Amiga {
		flags = 0
	}
	le(flags)
	le(uint16(x.Tempo))
	le(uint16(x.BPM))
	order := make([]byte, 256)
	copy(order, x.Order)
	b.Write(order)

	for _, pat := range x.Patterns {
		if len(pat) == 0 {
			// An empty 64-row pattern without packed data.
			le(uint32(9))
			b.WriteByte(0)
			le(uint16(64))
			le(uint16(0))
			continue
		}
		var data bytes.Buffer
		for _, row := range pat {
			for ch := 0; ch < x.Channels; ch++ {
				var n XMNote
				if ch < len(row) {
					n = row[ch]
				}
				writeXMNote(&data, n)
			}
		}
		le(uint32(9))
		b.WriteByte(0)
		le(uint16(len(pat)))
		le(uint16(data.Len()))
		b.Write(data.Bytes())
	}

	for _, inst := range x.Instruments {
		if len(inst.Samples) == 0 {
			le(uint32(29))
			str(inst.Name, 22)
			b.WriteByte(0)
			le(uint16(0))
			continue
		}
		le(uint32(263))
		str(inst.Name, 22)
		b.WriteByte(0)
		le(uint16(len(inst.Samples)))
		le(uint32(40))
		keymap := make([]byte, 96)
		copy(keymap, inst.Keymap)
		b.Write(keymap)
		writeEnvelope(&b, inst.VolumeEnvelope)
		writeEnvelope(&b, inst.PanningEnvelope)
		b.WriteByte(uint8(len(inst.VolumeEnvelope)))
		b.WriteByte(uint8(len(inst.PanningEnvelope)))
		b.WriteByte(inst.VolumeSustain)
		b.WriteByte(inst.VolumeLoop[0])
		b.WriteByte(inst.VolumeLoop[1])
		b.Write([]byte{0, 0, 0})
		b.WriteByte(inst.VolumeFlags)
		b.WriteByte(inst.PanningFlags)
		b.Write([]byte{inst.VibratoType, inst.VibratoSweep, inst.VibratoDepth, inst.VibratoRate})
		le(inst.Fadeout)
		b.Write(make([]byte, 22))

		encoded := make([][]byte, len(inst.Samples))
		for i, s := range inst.Samples {
			encoded[i] = encodeSample(s)
			length := len(s.Data)
			scale := 1
			typeFlags := s.Loop
			if s.Data16 != nil {
				length = len(s.Data16)
				scale = 2
				typeFlags |= 1 << 4
			}
			le(uint32(length * scale))
			le(uint32(s.LoopStart * scale))
			le(uint32(s.LoopLength * scale))
			b.WriteByte(s.Volume)
			b.WriteByte(uint8(s.Finetune))
			b.WriteByte(typeFlags)
			b.WriteByte(s.Panning)
			b.WriteByte(uint8(s.RelativeNote))
			if s.ADPCM {
				b.WriteByte(0xAD)
			} else {
				b.WriteByte(0)
			}
			str("", 22)
		}
		for _, data := range encoded {
			b.Write(data)
		}
	}

	return b.Bytes()
}

func writeXMNote(w *bytes.Buffer, n XMNote) {
	switch {
	case n.isEmpty():
		w.WriteByte(0x80)
	case n.Note != 0 && n.Instrument != 0 && n.Volume != 0 && n.Effect != 0 && n.Param != 0:
		w.Write([]byte{n.Note, n.Instrument, n.Volume, n.Effect, n.Param})
	default:
		flags := byte(0x80)
		fields := []byte{n.Note, n.Instrument, n.Volume, n.Effect, n.Param}
		for i, v := range fields {
			if v != 0 {
				flags |= 1 << i
			}
		}
		w.WriteByte(flags)
		for _, v := range fields {
			if v != 0 {
				w.WriteByte(v)
			}
		}
	}
}

func writeEnvelope(w *bytes.Buffer, points [][2]uint16) {
	var buf [12][2]uint16
	copy(buf[:], points)
	binary.Write(w, binary.LittleEndian, buf)
}

func encodeSample(s XMSample) []byte {
	if s.Data16 != nil {
		out := make([]byte, 0, len(s.Data16)*2)
		prev := int16(0)
		for _, v := range s.Data16 {
			out = binary.LittleEndian.AppendUint16(out, uint16(v-prev))
			prev = v
		}
		return out
	}

	if s.ADPCM {
		// A table of +/- powers of two is enough for tests.
		table := [16]int8{0, 1, 2, 4, 8, 16, 32, 64, -1, -2, -4, -8, -16, -32, -64, -128}
		out := make([]byte, 16, 16+(len(s.Data)+1)/2)
		for i, v := range table {
			out[i] = uint8(v)
		}
		prev := int8(0)
		var codes []byte
		for _, v := range s.Data {
			code := nearestCode(table, v-prev)
			prev += table[code]
			codes = append(codes, code)
		}
		for i := 0; i < len(codes); i += 2 {
			lo := codes[i]
			hi := byte(0)
			if i+1 < len(codes) {
				hi = codes[i+1]
			}
			out = append(out, lo|hi<<4)
		}
		return out
	}

	out := make([]byte, len(s.Data))
	prev := int8(0)
	for i, v := range s.Data {
		out[i] = uint8(v - prev)
		prev = v
	}
	return out
}

func nearestCode(table [16]int8, delta int8) byte {
	best := 0
	for i, v := range table {
		if abs(int(v)-int(delta)) < abs(int(table[best])-int(delta)) {
			best = i
		}
	}
	return byte(best)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ModNote is a ProTracker pattern cell.
type ModNote struct {
	Period int
	Sample int
	Effect uint8
	Param  uint8
}

// ModSample is a ProTracker sample; lengths are in bytes and must be even.
type ModSample struct {
	Data       []int8
	Finetune   int8
	Volume     uint8
	LoopStart  int
	LoopLength int
}

// Mod describes a 4-channel ProTracker module.
type Mod struct {
	Title   string
	Samples []ModSample
	Order   []uint8

	// Patterns are indexed as [pattern][row][channel], 64 rows each.
	Patterns [][64][4]ModNote

	// Tag is the format tag. An empty tag means "M.K.".
	Tag string
}

// Bytes encodes the module in the 31-sample MOD format.
func (m *Mod) Bytes() []byte {
	var b bytes.Buffer
	be := func(v any) { binary.Write(&b, binary.BigEndian, v) }

	title := make([]byte, 20)
	copy(title, m.Title)
	b.Write(title)

	for i := 0; i < 31; i++ {
		var s ModSample
		if i < len(m.Samples) {
			s = m.Samples[i]
		}
		b.Write(make([]byte, 22))
		be(uint16(len(s.Data) / 2))
		b.WriteByte(uint8(s.Finetune) & 0x0f)
		b.WriteByte(s.Volume)
		be(uint16(s.LoopStart / 2))
		loopLength := s.LoopLength / 2
		if loopLength == 0 {
			loopLength = 1
		}
		be(uint16(loopLength))
	}

	b.WriteByte(uint8(len(m.Order)))
	b.WriteByte(127)
	order := make([]byte, 128)
	copy(order, m.Order)
	b.Write(order)
	tag := m.Tag
	if tag == "" {
		tag = "M.K."
	}
	b.WriteString(tag)

	numPatterns := 0
	for _, p := range m.Order {
		numPatterns = max(numPatterns, int(p)+1)
	}
	for i := 0; i < numPatterns; i++ {
		var pat [64][4]ModNote
		if i < len(m.Patterns) {
			pat = m.Patterns[i]
		}
		for _, row := range pat {
			for _, n := range row {
				b.WriteByte(uint8(n.Sample&0xf0) | uint8(n.Period>>8)&0x0f)
				b.WriteByte(uint8(n.Period))
				b.WriteByte(uint8(n.Sample&0x0f)<<4 | n.Effect&0x0f)
				b.WriteByte(n.Param)
			}
		}
	}

	for _, s := range m.Samples {
		for _, v := range s.Data {
			b.WriteByte(uint8(v))
		}
	}
	return b.Bytes()
}
