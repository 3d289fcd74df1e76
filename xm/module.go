package xm

import (
	"github.com/quasilyte/chipmix/internal/xmdb"
	"github.com/quasilyte/chipmix/soundblaster"
	"github.com/quasilyte/chipmix/xmfile"
)

type module struct {
	instruments []instrument

	patterns     []pattern
	patternOrder []*pattern

	// noteTab holds every unique pattern note, pattern cells refer to it by index.
	// The note with index 0 is always empty.
	noteTab []patternNote

	numChannels int
	restart     int
	linear      bool

	bpm         int
	ticksPerRow int
}

type pattern struct {
	numRows int
	notes   []uint16
}

func (p *pattern) row(i, numChannels int) []uint16 {
	offset := i * numChannels
	return p.notes[offset : offset+numChannels]
}

type patternNote struct {
	note       uint8
	instrument uint8
	volume     uint8

	effect    xmdb.Effect
	volEffect xmdb.Effect
}

func (n *patternNote) hasNote() bool {
	return n.note != 0 && n.note != xmfile.KeyOffNote
}

// usesTonePortamento reports whether a note on this row
// slides to the new pitch instead of being triggered.
func (n *patternNote) usesTonePortamento() bool {
	switch n.effect.Op {
	case xmdb.EffectNotePortamento, xmdb.EffectNotePortamentoWithVolumeSlide:
		return true
	}
	return n.volEffect.Op == xmdb.EffectNotePortamento
}

type instrument struct {
	id int

	samples []sample
	keymap  [96]uint8

	volumeEnvelope  envelope
	panningEnvelope envelope

	// Fadeout step applied to a 65536-based fade volume.
	fadeout int

	vibratoType  uint8
	vibratoSweep int
	vibratoDepth int
	vibratoRate  int
}

// sampleForNote returns the keymap sample for a 0-based note.
func (inst *instrument) sampleForNote(note int) *sample {
	if note < 0 || note >= len(inst.keymap) {
		return nil
	}
	i := int(inst.keymap[note])
	if i >= len(inst.samples) {
		return nil
	}
	return &inst.samples[i]
}

type sample struct {
	data soundblaster.Sample

	volume       int
	panning      int
	finetune     int
	relativeNote int
}

type envelope struct {
	flags     xmfile.EnvelopeFlags
	sustain   int
	loopStart int
	loopEnd   int

	points []envelopePoint
}

func (e *envelope) enabled() bool {
	return e.flags.IsOn() && len(e.points) != 0
}

type envelopePoint struct {
	frame int
	value int
}
