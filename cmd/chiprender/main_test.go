package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quasilyte/chipmix/internal/testmod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestMod(t *testing.T, path string) {
	t.Helper()
	m := &testmod.Mod{
		Samples:  []testmod.ModSample{{Data: []int8{0, 0, 100, -100}, Volume: 64, LoopLength: 4}},
		Order:    []uint8{0},
		Patterns: make([][64][4]testmod.ModNote, 1),
	}
	m.Patterns[0][0][0] = testmod.ModNote{Period: 428, Sample: 1}
	m.Patterns[0][0][1] = testmod.ModNote{Effect: 0xD}
	require.NoError(t, os.WriteFile(path, m.Bytes(), 0o644))
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "song.wav"), outputPath("out", filepath.Join("music", "song.mod")))
	assert.Equal(t, filepath.Join("out", "a.b.wav"), outputPath("out", "a.b.xm"))
}

func TestRun(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "rendered")

	var files []string
	for _, name := range []string{"a.mod", "b.mod", "c.mod"} {
		path := filepath.Join(in, name)
		writeTestMod(t, path)
		files = append(files, path)
	}

	err := run(context.Background(), files, options{dir: out, jobs: 2, timeout: time.Minute})
	require.NoError(t, err)

	for _, name := range []string{"a.wav", "b.wav", "c.wav"} {
		info, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err)
		// One row at speed 6.
		assert.Equal(t, int64(44+6*882*4), info.Size())
	}
}

func TestRunErrors(t *testing.T) {
	in := t.TempDir()
	bad := filepath.Join(in, "bad.xm")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))

	err := run(context.Background(), []string{bad}, options{dir: t.TempDir(), jobs: 1, timeout: time.Minute})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.xm: unsupported module format")

	err = run(context.Background(), []string{bad}, options{dir: t.TempDir(), jobs: 0, timeout: time.Minute})
	assert.EqualError(t, err, "-j must be positive")
}
