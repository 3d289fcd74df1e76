// Package songload picks a player for the module file contents
// and wires it to the matching sound chip.
package songload

import (
	"errors"
	"fmt"

	"github.com/quasilyte/chipmix"
	"github.com/quasilyte/chipmix/amiga"
	"github.com/quasilyte/chipmix/modfile"
	"github.com/quasilyte/chipmix/protracker"
	"github.com/quasilyte/chipmix/soundblaster"
	"github.com/quasilyte/chipmix/xm"
	"github.com/quasilyte/chipmix/xmfile"
)

// Format is a module file format name.
type Format string

const (
	FormatXM  Format = "xm"
	FormatMOD Format = "mod"
)

// Config configures both the chip and the player.
//
// The chip settings that don't apply to the detected format are ignored.
type Config struct {
	// Loop makes the song restart instead of ending the stream.
	Loop bool

	// Quality selects the soundblaster mixing mode.
	Quality soundblaster.Quality

	// Model selects the amiga output filter network.
	Model amiga.Model

	// Filter overrides the amiga LED filter switch.
	Filter amiga.FilterMode

	// NTSC selects the amiga NTSC timing.
	NTSC bool

	// Version forces the ProTracker replay routine version.
	Version protracker.Version
}

// Song is a loaded module ready for the playback.
type Song struct {
	Format Format

	Title string

	NumChannels int

	Stream *chipmix.Stream

	// XM is the parsed module for FormatXM songs, nil otherwise.
	// It can be used to load the instruments into an xm.Synthesizer.
	XM *xmfile.Module
}

type loader struct {
	format Format
	load   func(data []byte, config Config) (*Song, error)
}

var loaders = []loader{
	{format: FormatXM, load: loadXM},
	{format: FormatMOD, load: loadMOD},
}

// errFormat wraps the parse errors: the next loader gets a chance.
type errFormat struct {
	err error
}

func (e *errFormat) Error() string { return e.err.Error() }

func (e *errFormat) Unwrap() error { return e.err }

// Probe reports the format of the data.
// It parses the data with every known format parser in order.
func Probe(data []byte) (Format, bool) {
	if _, err := xmfile.ParseBytes(data); err == nil {
		return FormatXM, true
	}
	if _, err := modfile.ParseBytes(data); err == nil {
		return FormatMOD, true
	}
	return "", false
}

// Load creates a song from the module file contents.
//
// The formats are tried in order, the first one that parses the data is used.
// If none of them does, the returned error lists all the parse errors.
func Load(data []byte, config Config) (*Song, error) {
	var errs []error
	for _, l := range loaders {
		song, err := l.load(data, config)
		if err == nil {
			return song, nil
		}
		var formatErr *errFormat
		if !errors.As(err, &formatErr) {
			return nil, fmt.Errorf("%s: %w", l.format, err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", l.format, formatErr.err))
	}
	return nil, fmt.Errorf("unsupported module format: %w", errors.Join(errs...))
}

func loadXM(data []byte, config Config) (*Song, error) {
	m, err := xmfile.ParseBytes(data)
	if err != nil {
		return nil, &errFormat{err: err}
	}

	chip, err := soundblaster.NewChip(soundblaster.Config{
		Voices:  max(m.NumChannels, 1),
		Quality: config.Quality,
	})
	if err != nil {
		return nil, err
	}
	p, err := xm.NewPlayer(chip, m, xm.Config{})
	if err != nil {
		return nil, err
	}
	stream, err := chipmix.NewStream(chip, p, chipmix.StreamConfig{Loop: config.Loop})
	if err != nil {
		return nil, err
	}

	return &Song{
		Format:      FormatXM,
		Title:       m.Name,
		NumChannels: p.NumChannels(),
		Stream:      stream,
		XM:          m,
	}, nil
}

func loadMOD(data []byte, config Config) (*Song, error) {
	m, err := modfile.ParseBytes(data)
	if err != nil {
		return nil, &errFormat{err: err}
	}

	chip := amiga.NewChip(amiga.Config{
		Model:  config.Model,
		Filter: config.Filter,
		NTSC:   config.NTSC,
	})
	p, err := protracker.NewPlayer(chip, m, protracker.Config{Version: config.Version})
	if err != nil {
		return nil, err
	}
	stream, err := chipmix.NewStream(chip, p, chipmix.StreamConfig{Loop: config.Loop})
	if err != nil {
		return nil, err
	}

	return &Song{
		Format:      FormatMOD,
		Title:       m.Title,
		NumChannels: p.NumChannels(),
		Stream:      stream,
	}, nil
}
