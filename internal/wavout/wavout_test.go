package wavout

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	w, err := Create(path)
	require.NoError(t, err)

	frames := []byte{
		0x01, 0x00, 0xff, 0xff, // 1, -1
		0x00, 0x80, 0xff, 0x7f, // -32768, 32767
		0x10, 0x00, 0x20, 0x00, // 16, 32
	}
	// Split in the middle of a frame.
	n, err := w.Write(frames[:6])
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, 1, w.Frames())
	n, err = w.Write(frames[6:])
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, 3, w.Frames())

	// The incomplete frame is dropped.
	_, err = w.Write([]byte{1, 2})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	d := wav.NewDecoder(f)
	require.True(t, d.IsValidFile())
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 44100, int(d.SampleRate))
	assert.Equal(t, 2, int(d.NumChans))
	assert.Equal(t, 16, int(d.BitDepth))
	assert.Equal(t, []int{1, -1, -32768, 32767, 16, 32}, buf.Data)
}

func TestCreateError(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "missing", "out.wav"))
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	pcmData := make([]byte, 10*4)
	for i := range pcmData {
		pcmData[i] = byte(i)
	}
	dir := t.TempDir()

	frames, err := Render(filepath.Join(dir, "limited.wav"), bytes.NewReader(pcmData), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, frames)

	frames, err = Render(filepath.Join(dir, "full.wav"), bytes.NewReader(pcmData), 100)
	require.NoError(t, err)
	assert.Equal(t, 10, frames)

	info, err := os.Stat(filepath.Join(dir, "full.wav"))
	require.NoError(t, err)
	assert.Equal(t, int64(44+len(pcmData)), info.Size())
}
