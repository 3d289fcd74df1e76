package xm

import (
	"errors"

	"github.com/quasilyte/chipmix"
	"github.com/quasilyte/chipmix/soundblaster"
	"github.com/quasilyte/chipmix/xmfile"
)

var errNoInstruments = errors.New("xm: synthesizer has no instruments loaded")

// Synthesizer can be used to play individual XM notes.
//
// It is more efficient and convenient to use for this
// use case than a stream with a constant module re-loading.
//
// Experimental: synthesizer API may change in the near future.
type Synthesizer struct {
	config SynthesizerConfig

	player *Player
	stream *chipmix.Stream
	volume float64
}

type SynthesizerConfig struct {
	// NumChannels is the max number of notes played at once.
	// A zero value means 1; values above soundblaster.MaxVoices are clamped.
	NumChannels int

	// Quality selects the chip mixing mode.
	Quality soundblaster.Quality

	// MemorySize is the chip sample memory capacity, see soundblaster.Config.
	MemorySize int
}

func NewSynthesizer(config SynthesizerConfig) *Synthesizer {
	config.NumChannels = clamp(config.NumChannels, 1, soundblaster.MaxVoices)
	return &Synthesizer{
		config: config,
		volume: 0.8,
	}
}

// SetVolume adjusts the global volume scaling for the underlying player.
func (s *Synthesizer) SetVolume(v float64) {
	s.volume = clamp(v, 0, 1)
	if s.player != nil {
		s.player.SetVolume(s.volume)
	}
}

// LoadInstruments prepares the instruments from the module
// for further use.
//
// Loading instruments involves module compilation,
// so it should not be called on a hot path repeatedly.
// Every call allocates a new sample memory.
//
// The patterns don't really matter as this method
// is only interested in instruments (and samples).
func (s *Synthesizer) LoadInstruments(m *xmfile.Module, config Config) error {
	applyConfigDefaults(m, &config)

	chip, err := soundblaster.NewChip(soundblaster.Config{
		Voices:     s.config.NumChannels,
		Quality:    s.config.Quality,
		MemorySize: s.config.MemorySize,
	})
	if err != nil {
		return err
	}

	instOnly := xmfile.Module{
		Name:           m.Name,
		Version:        m.Version,
		NumChannels:    s.config.NumChannels,
		NumInstruments: m.NumInstruments,
		Flags:          m.Flags,
		Instruments:    m.Instruments,
	}
	compiled, err := compileModule(chip, &instOnly, moduleConfig{
		bpm:   config.BPM,
		tempo: config.Tempo,
	})
	if err != nil {
		return err
	}

	compiled.patterns = []pattern{
		{
			numRows: 1,
			notes:   make([]uint16, s.config.NumChannels),
		},
	}
	compiled.patternOrder = []*pattern{
		&compiled.patterns[0],
	}
	pat := &compiled.patterns[0]
	for i := range pat.notes {
		pat.notes[i] = uint16(i + 1)
	}
	compiled.noteTab = make([]patternNote, s.config.NumChannels+1)

	player, err := newPlayer(chip, compiled)
	if err != nil {
		return err
	}
	player.SetVolume(s.volume)
	stream, err := chipmix.NewStream(chip, player, chipmix.StreamConfig{})
	if err != nil {
		return err
	}

	s.player = player
	s.stream = stream
	return nil
}

// PlayNote plays one or more notes up to the specified duration (in seconds).
// Using 0 for the duration will play it for several seconds.
//
// The stream is rewound, so the notes start playing right away.
func (s *Synthesizer) PlayNote(duration float64, notes ...xmfile.PatternNote) error {
	if s.player == nil {
		return errNoInstruments
	}

	m := &s.player.module
	if duration == 0 {
		m.ticksPerRow = 240
	} else {
		m.ticksPerRow = 1 + int(ticksPerSecond(m.bpm)*duration)
	}

	for i := 1; i < len(m.noteTab); i++ {
		m.noteTab[i] = patternNote{}
		if i-1 < len(notes) {
			m.noteTab[i] = compileNote(notes[i-1])
		}
	}

	s.stream.Rewind()
	return nil
}

func (s *Synthesizer) Read(b []byte) (int, error) {
	if s.stream == nil {
		return 0, errNoInstruments
	}
	return s.stream.Read(b)
}

func (s *Synthesizer) Rewind() {
	if s.stream != nil {
		s.stream.Rewind()
	}
}

func (s *Synthesizer) Seek(offset int64, whence int) (int64, error) {
	if s.stream == nil {
		return 0, errNoInstruments
	}
	return s.stream.Seek(offset, whence)
}
