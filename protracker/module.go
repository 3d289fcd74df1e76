package protracker

import (
	"fmt"

	"github.com/quasilyte/chipmix/amiga"
	"github.com/quasilyte/chipmix/modfile"
)

type module struct {
	// samples[0] is a silent sample for the cells
	// that refer to empty sample slots.
	samples [modfile.NumSamples + 1]sample

	patterns []modfile.Pattern
	order    []int

	version Version
}

// sample is a chip memory region description.
type sample struct {
	pointer     int
	length      int
	loopPointer int
	loopLength  int

	// finetune is an offset of the period table row.
	finetune int
	volume   int
}

func compileModule(chip *amiga.Chip, m *modfile.Module, version Version) (module, error) {
	var result module

	silentPointer, silentLength := chip.SilentLoop()
	result.samples[0] = sample{
		pointer:     silentPointer,
		length:      silentLength,
		loopPointer: silentPointer,
		loopLength:  silentLength,
	}

	used := [modfile.NumSamples + 1]bool{0: true}
	for i := range m.Samples {
		raw := &m.Samples[i]
		if raw.Length == 0 {
			continue
		}
		s, err := storeSample(chip, raw)
		if err != nil {
			return result, fmt.Errorf("sample[%d]: %w", i, err)
		}
		result.samples[i+1] = s
		used[i+1] = true
	}

	detected := Version10
	result.patterns = make([]modfile.Pattern, len(m.Patterns), len(m.Patterns)+1)
	for i := range m.Patterns {
		pat := m.Patterns[i]
		for row := range pat.Rows {
			for ch := range pat.Rows[row] {
				n := &pat.Rows[row][ch]
				if n.Sample > modfile.NumSamples || !used[n.Sample] {
					n.Sample = 0
				}
				switch {
				case n.Effect == 0x8:
					detected = Version12
				case n.Effect == 0xF && n.Param > 31:
					detected = max(detected, Version11)
				}
			}
		}
		result.patterns[i] = pat
	}

	songLength := min(m.SongLength, len(m.PatternOrder))
	result.order = make([]int, songLength)
	emptyPattern := -1
	for i, id := range m.PatternOrder[:songLength] {
		if int(id) < len(result.patterns) {
			result.order[i] = int(id)
			continue
		}
		if emptyPattern == -1 {
			emptyPattern = len(result.patterns)
			result.patterns = append(result.patterns, modfile.Pattern{})
		}
		result.order[i] = emptyPattern
	}

	result.version = version
	if version == VersionAuto {
		result.version = detected
	}

	return result, nil
}

func storeSample(chip *amiga.Chip, raw *modfile.Sample) (sample, error) {
	// Amiga trackers use the first word as a one-shot silence,
	// so it's always zeroed.
	data := make([]byte, raw.Length)
	copy(data, raw.Data)
	clear(data[:min(2, len(data))])

	pointer, err := chip.Store(data, raw.Length, 0)
	if err != nil {
		return sample{}, err
	}

	s := sample{
		pointer:  pointer,
		length:   raw.Length,
		finetune: (raw.Finetune & 0x0f) * periodRowSize,
		volume:   raw.Volume,
	}
	if raw.HasLoop() {
		s.loopPointer = pointer + raw.LoopStart
		s.loopLength = raw.LoopLength
		// The data past the loop end is never played.
		s.length = raw.LoopStart + raw.LoopLength
	} else {
		s.loopPointer, s.loopLength = chip.SilentLoop()
	}
	return s, nil
}
