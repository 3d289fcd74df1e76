package chipmix

import (
	"math"
)

// StreamEventKind is an event tag that should be used to differentiate between different event types.
// See StreamEvent docs for more info.
type StreamEventKind int

const (
	// EventUnknown is a sentinel value.
	// You should never receive an event of this kind.
	EventUnknown StreamEventKind = iota

	// EventNote is emitted every time a player triggers a note on some voice.
	//
	// Use StreamEvent.NoteEventData to get the event data.
	EventNote

	// EventSync tells the application to update their time counter to the specified value.
	// It's emitted on stream rewinds.
	//
	// Use StreamEvent.SyncEventData to get the event data.
	EventSync

	// EventTick is emitted right before every player tick.
	//
	// Use StreamEvent.TickEventData to get the tick index.
	EventTick

	// EventComplete is emitted when the player reaches the song end
	// and the song is not set to loop.
	EventComplete
)

func (k StreamEventKind) String() string {
	switch k {
	case EventNote:
		return "note"
	case EventSync:
		return "sync"
	case EventTick:
		return "tick"
	case EventComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// StreamEvent holds a single stream event data.
// This object is an argument to the Stream.SetEventHandler function.
//
// To handle the event correctly, you must first check its kind.
//
// Every event has a Time value. This is a moment when this event happened in
// relation to the song start (in seconds). The events are produced while mixing,
// so they run ahead of the audible playback by the output buffer latency.
type StreamEvent struct {
	Kind StreamEventKind

	// Channel is an event voice index.
	// Some events are channel-independent, they have a Channel of 0.
	Channel int

	// Time represents the playback offset in seconds.
	Time float64

	value uint64
}

// NewNoteEvent creates an EventNote for the specified voice.
// A negative instrument means "no instrument".
func NewNoteEvent(channel, note, instrument int, vol float32) StreamEvent {
	instID := uint64(instrument) & 0xff
	if instrument < 0 {
		instID = 255
	}
	return StreamEvent{
		Kind:    EventNote,
		Channel: channel,
		value:   uint64(note&0xff) | instID<<8 | uint64(math.Float32bits(vol))<<16,
	}
}

// NoteEventData returns the event data if e.Kind=EventNote.
// The return values are: note, instrument (id), volume.
// If there is no instrument, -1 is returned.
func (e StreamEvent) NoteEventData() (note, instrument int, vol float32) {
	noteBits := e.value & 0xff
	instrumentBits := (e.value >> 8) & 0xff
	volBits := e.value >> 16
	instrumentID := int(instrumentBits)
	if instrumentID == 255 {
		instrumentID = -1
	}
	return int(noteBits), instrumentID, math.Float32frombits(uint32(volBits))
}

// SyncEventData returns the event data if e.Kind=EventSync.
// The return value is a time to synchronize to.
func (e StreamEvent) SyncEventData() (t float64) {
	return math.Float64frombits(e.value)
}

// TickEventData returns the tick index if e.Kind=EventTick.
func (e StreamEvent) TickEventData() uint64 {
	return e.value
}
