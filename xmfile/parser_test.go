package xmfile_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/quasilyte/chipmix/internal/testmod"
	"github.com/quasilyte/chipmix/xmfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModule() *testmod.XM {
	return &testmod.XM{
		Name:     "parser test",
		Channels: 2,
		Tempo:    6,
		BPM:      125,
		Restart:  1,
		Order:    []uint8{0, 1, 0},
		Patterns: [][][]testmod.XMNote{
			{
				{{Note: 49, Instrument: 1, Volume: 0x40}, {}},
				{{}, {Note: 61, Instrument: 2, Volume: 0x30, Effect: 0x0C, Param: 0x20}},
				{{Note: 49, Instrument: 1, Volume: 0x40}, {Note: xmfile.KeyOffNote}},
			},
			{},
		},
		Instruments: []testmod.XMInstrument{
			{
				Name: "lead",
				Samples: []testmod.XMSample{
					{Data: []int8{0, 64, 127, 64, 0, -64, -128, -64}, Loop: 1, LoopStart: 2, LoopLength: 4, Volume: 48, Finetune: -16, RelativeNote: -12, Panning: 100},
				},
				VolumeEnvelope: [][2]uint16{{0, 64}, {10, 32}, {20, 0}},
				VolumeFlags:    0b011,
				VolumeSustain:  1,
				Fadeout:        256,
			},
			{
				Name: "bass",
				Samples: []testmod.XMSample{
					{Data16: []int16{0, 1000, -1000, 32767, -32768}, Volume: 64},
				},
			},
			{Name: "empty"},
		},
	}
}

func TestParse(t *testing.T) {
	m, err := xmfile.Parse(bytes.NewReader(testModule().Bytes()))
	require.NoError(t, err)

	assert.Equal(t, "parser test", m.Name)
	assert.Equal(t, "chipmix test", m.TrackerName)
	assert.Equal(t, [2]byte{1, 4}, m.Version)
	assert.Equal(t, 3, m.SongLength)
	assert.Equal(t, 1, m.RestartPosition)
	assert.Equal(t, 2, m.NumChannels)
	assert.Equal(t, 6, m.DefaultTempo)
	assert.Equal(t, 125, m.DefaultBPM)
	assert.True(t, m.LinearFrequencies())
	assert.Equal(t, []uint8{0, 1, 0}, m.PatternOrder)

	require.Len(t, m.Patterns, 2)
	pat := m.Patterns[0]
	require.Len(t, pat.Rows, 3)
	assert.False(t, pat.IsEmpty)

	n := m.Notes[pat.Rows[1].Notes[1]]
	assert.Equal(t, uint8(61), n.Note)
	assert.Equal(t, uint8(2), n.Instrument)
	assert.Equal(t, uint8(0x30), n.Volume)
	assert.Equal(t, uint8(0x0C), n.EffectType)
	assert.Equal(t, uint8(0x20), n.EffectParameter)

	// Identical notes are interned.
	assert.Equal(t, pat.Rows[0].Notes[0], pat.Rows[2].Notes[0])
	assert.Equal(t, uint16(0), pat.Rows[0].Notes[1])
	assert.True(t, m.Notes[0].IsEmpty())
	assert.Equal(t, uint8(xmfile.KeyOffNote), m.Notes[pat.Rows[2].Notes[1]].Note)

	// A pattern without data is the standard empty pattern.
	assert.True(t, m.Patterns[1].IsEmpty)
	assert.Len(t, m.Patterns[1].Rows, 64)

	require.Len(t, m.Instruments, 3)
	lead := m.Instruments[0]
	assert.Equal(t, "lead", lead.Name)
	assert.Equal(t, []xmfile.EnvelopePoint{{0, 64}, {10, 32}, {20, 0}}, lead.EnvelopeVolume)
	assert.Nil(t, lead.EnvelopePanning)
	assert.True(t, lead.VolumeFlags.IsOn())
	assert.True(t, lead.VolumeFlags.SustainEnabled())
	assert.False(t, lead.VolumeFlags.LoopEnabled())
	assert.Equal(t, uint8(1), lead.VolumeSustainPoint)
	assert.Equal(t, 256, lead.VolumeFadeout)

	require.Len(t, lead.Samples, 1)
	s := lead.Samples[0]
	assert.Equal(t, 8, s.Length)
	assert.Equal(t, 2, s.LoopStart)
	assert.Equal(t, 4, s.LoopLength)
	assert.Equal(t, 48, s.Volume)
	assert.Equal(t, -16, s.Finetune)
	assert.Equal(t, -12, s.RelativeNote)
	assert.Equal(t, uint8(100), s.Panning)
	assert.Equal(t, xmfile.SampleLoopForward, s.LoopType())
	assert.False(t, s.Is16bits())
	assert.Len(t, s.Data, 8)

	bass := m.Instruments[1].Samples[0]
	assert.True(t, bass.Is16bits())
	assert.Equal(t, 10, bass.Length)
	assert.Equal(t, xmfile.SampleLoopNone, bass.LoopType())

	assert.Empty(t, m.Instruments[2].Samples)
	assert.Equal(t, "empty", m.Instruments[2].Name)
}

func TestParserReuse(t *testing.T) {
	p := xmfile.NewParser(xmfile.ParserConfig{})
	data := testModule().Bytes()

	for i := 0; i < 3; i++ {
		m, err := p.ParseFromBytes(data)
		require.NoError(t, err)
		assert.Len(t, m.Notes, 4)
		assert.Len(t, m.Patterns, 2)
		// Names are skipped without NeedStrings.
		assert.Empty(t, m.Instruments[0].Name)
		assert.Equal(t, "parser test", m.Name)
	}
}

func TestParseADPCM(t *testing.T) {
	x := testModule()
	x.Instruments[0].Samples[0].ADPCM = true
	m, err := xmfile.ParseBytes(x.Bytes())
	require.NoError(t, err)
	s := m.Instruments[0].Samples[0]
	assert.Equal(t, xmfile.SampleFormatADPCM, s.Format)
	assert.Len(t, s.Data, 16+4)
}

func TestParseErrors(t *testing.T) {
	valid := testModule().Bytes()

	tests := []struct {
		name   string
		data   []byte
		errMsg string
	}{
		{"empty", nil, "header: unexpected EOF while reading id text"},
		{"bad id", append([]byte("Extended Mojule: "), valid[17:]...), `header: unexpected ID text: "Extended Mojule: "`},
		{"truncated pattern", valid[:60+276+20], "pattern[0]: incomplete packed pattern data"},
		{"truncated sample", valid[:len(valid)-29-3], "instrument[1].sampledata[0]: unexpected EOF while reading sample data"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := xmfile.ParseBytes(test.data)
			var parseErr *xmfile.ParseError
			require.True(t, errors.As(err, &parseErr), "error: %v", err)
			assert.Equal(t, test.errMsg, parseErr.Message)
		})
	}
}

func TestParseChannelsLimit(t *testing.T) {
	x := testModule()
	x.Channels = xmfile.MaxChannels + 1
	_, err := xmfile.ParseBytes(x.Bytes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid number of channels: 33")
}
