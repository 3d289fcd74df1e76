// Package wavout writes the chipmix PCM output into WAV files.
package wavout

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/quasilyte/chipmix"
	"github.com/quasilyte/chipmix/pcm"
)

const wavFormatPCM = 1

// Writer is an io.Writer that accepts 16-bit little endian stereo PCM
// bytes, as produced by chipmix.Stream, and encodes them as a WAV file.
//
// Close must be called to finalize the file header.
type Writer struct {
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer

	// A trailing part of a frame from the previous Write call.
	pending    [pcm.BytesPerFrame]byte
	numPending int

	frames int
}

// Create creates or truncates the named file.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &Writer{
		file:    f,
		encoder: wav.NewEncoder(f, chipmix.SampleRate, chipmix.BitDepth, chipmix.Channels, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: chipmix.Channels,
				SampleRate:  chipmix.SampleRate,
			},
			SourceBitDepth: chipmix.BitDepth,
		},
	}, nil
}

// Frames returns the number of the frames written so far.
func (w *Writer) Frames() int { return w.frames }

// Write implements io.Writer.
func (w *Writer) Write(b []byte) (int, error) {
	total := len(b)
	data := w.buf.Data[:0]

	if w.numPending != 0 {
		n := copy(w.pending[w.numPending:], b)
		w.numPending += n
		b = b[n:]
		if w.numPending < pcm.BytesPerFrame {
			return total, nil
		}
		data = appendFrame(data, w.pending[:])
		w.numPending = 0
	}

	for len(b) >= pcm.BytesPerFrame {
		data = appendFrame(data, b)
		b = b[pcm.BytesPerFrame:]
	}
	w.numPending = copy(w.pending[:], b)

	w.buf.Data = data
	if len(data) == 0 {
		return total, nil
	}
	if err := w.encoder.Write(w.buf); err != nil {
		return 0, fmt.Errorf("encode WAV data: %w", err)
	}
	w.frames += len(data) / chipmix.Channels
	return total, nil
}

func appendFrame(dst []int, b []byte) []int {
	l := int16(binary.LittleEndian.Uint16(b[0:]))
	r := int16(binary.LittleEndian.Uint16(b[2:]))
	return append(dst, int(l), int(r))
}

// Close finalizes the WAV header and closes the file.
// An incomplete trailing frame is dropped.
func (w *Writer) Close() error {
	if err := w.encoder.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("finalize WAV file: %w", err)
	}
	return w.file.Close()
}

// Render copies at most maxFrames frames of src PCM into a new WAV file
// and returns the number of frames written.
// The copy stops earlier if src reports io.EOF.
func Render(path string, src io.Reader, maxFrames int) (int, error) {
	w, err := Create(path)
	if err != nil {
		return 0, err
	}
	limit := int64(maxFrames) * pcm.BytesPerFrame
	if _, err := io.Copy(w, io.LimitReader(src, limit)); err != nil {
		w.Close()
		return 0, fmt.Errorf("render: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return w.Frames(), nil
}
