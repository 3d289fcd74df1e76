package songload

import (
	"errors"
	"flag"
	"io"
	"testing"

	"github.com/quasilyte/chipmix/amiga"
	"github.com/quasilyte/chipmix/internal/testmod"
	"github.com/quasilyte/chipmix/modfile"
	"github.com/quasilyte/chipmix/pcm"
	"github.com/quasilyte/chipmix/protracker"
	"github.com/quasilyte/chipmix/soundblaster"
	"github.com/quasilyte/chipmix/xmfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testXM() []byte {
	x := &testmod.XM{
		Name:     "xm song",
		Channels: 3,
		Tempo:    2,
		BPM:      125,
		Order:    []uint8{0},
		Patterns: [][][]testmod.XMNote{
			{
				{{Note: 49, Instrument: 1}},
				{{Effect: 0x0D}},
			},
		},
		Instruments: []testmod.XMInstrument{
			{Name: "saw", Samples: []testmod.XMSample{
				{Data: []int8{-64, -32, 0, 32, 64}, Loop: 1, LoopLength: 5, Volume: 64, Panning: 128},
			}},
		},
	}
	return x.Bytes()
}

func testMOD() []byte {
	m := &testmod.Mod{
		Title:    "mod song",
		Samples:  []testmod.ModSample{{Data: []int8{0, 0, 100, -100}, Volume: 64, LoopLength: 4}},
		Order:    []uint8{0},
		Patterns: make([][64][4]testmod.ModNote, 1),
	}
	m.Patterns[0][0][0] = testmod.ModNote{Period: 428, Sample: 1}
	m.Patterns[0][1][0] = testmod.ModNote{Effect: 0xD}
	return m.Bytes()
}

func TestProbe(t *testing.T) {
	format, ok := Probe(testXM())
	assert.True(t, ok)
	assert.Equal(t, FormatXM, format)

	format, ok = Probe(testMOD())
	assert.True(t, ok)
	assert.Equal(t, FormatMOD, format)

	_, ok = Probe([]byte("not a module"))
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		data     []byte
		format   Format
		title    string
		channels int
		frames   int
	}{
		{testXM(), FormatXM, "xm song", 3, 2 * 2 * 882},
		{testMOD(), FormatMOD, "mod song", 4, 2 * 6 * 882},
	}

	for _, test := range tests {
		t.Run(string(test.format), func(t *testing.T) {
			song, err := Load(test.data, Config{})
			require.NoError(t, err)
			assert.Equal(t, test.format, song.Format)
			assert.Equal(t, test.title, song.Title)
			assert.Equal(t, test.channels, song.NumChannels)

			data, err := io.ReadAll(song.Stream)
			require.NoError(t, err)
			assert.Equal(t, test.frames, len(data)/pcm.BytesPerFrame)
			assert.NotZero(t, song.Stream.GetInfo().MemoryUsage)
		})
	}
}

func TestLoadLooping(t *testing.T) {
	song, err := Load(testMOD(), Config{Loop: true})
	require.NoError(t, err)
	assert.True(t, song.Stream.Looping())

	buf := make([]byte, 4*6*882*pcm.BytesPerFrame)
	n, err := io.ReadFull(song.Stream, buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load([]byte("not a module"), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported module format")
	assert.Contains(t, err.Error(), "xm: ")
	assert.Contains(t, err.Error(), "mod: ")

	var xmErr *xmfile.ParseError
	assert.True(t, errors.As(err, &xmErr))
	var modErr *modfile.ParseError
	assert.True(t, errors.As(err, &modErr))
}

func TestBindFlags(t *testing.T) {
	var config Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	config.BindFlags(fs)

	err := fs.Parse([]string{"-loop", "-quality", "fast", "-model", "a1200", "-filter", "off", "-version", "1.1", "-ntsc"})
	require.NoError(t, err)
	assert.True(t, config.Loop)
	assert.True(t, config.NTSC)
	assert.Equal(t, soundblaster.Fast, config.Quality)
	assert.Equal(t, amiga.ModelA1200, config.Model)
	assert.Equal(t, amiga.FilterOff, config.Filter)
	assert.Equal(t, protracker.Version11, config.Version)

	err = fs.Parse([]string{"-quality", "best"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unexpected value "best", expected one of: accurate, fast`)
}
