package beatmap

import (
	"fmt"
	"sort"
)

// Version written into the meta block of saved beatmaps.
const Version = "1.1"

// Meta holds beatmap metadata.
type Meta struct {
	Version       string
	Filename      string
	Title         string
	Category      string
	Priority      int
	BPM           float64
	TotalDuration float64
}

// NewMeta returns metadata with the current version and default BPM.
func NewMeta() Meta {
	return Meta{Version: Version, BPM: 120.0}
}

// Beatmap owns an ordered, time-sorted collection of notes plus metadata.
//
// The note list is sorted ascending by time after every mutation; sorting is
// stable, so notes sharing a timestamp keep their insertion order. All edits
// in the editor go through the history package so they stay undoable.
type Beatmap struct {
	Meta  Meta
	notes []*Note
	dirty bool
}

// New returns an empty beatmap.
func New() *Beatmap {
	return &Beatmap{Meta: NewMeta()}
}

// Notes returns the time-sorted note list. Callers must not reorder it.
func (b *Beatmap) Notes() []*Note {
	return b.notes
}

// Len returns the number of notes.
func (b *Beatmap) Len() int {
	return len(b.notes)
}

// Dirty reports whether there are unsaved changes.
func (b *Beatmap) Dirty() bool {
	return b.dirty
}

// MarkDirty flags the beatmap as having unsaved changes.
func (b *Beatmap) MarkDirty() {
	b.dirty = true
}

// MarkClean flags the beatmap as saved.
func (b *Beatmap) MarkClean() {
	b.dirty = false
}

// Sort re-establishes the time ordering. Mutators that change note times must
// call this before returning.
func (b *Beatmap) Sort() {
	sort.SliceStable(b.notes, func(i, j int) bool {
		return b.notes[i].Time < b.notes[j].Time
	})
}

// AddNote inserts a note, keeping the list sorted.
func (b *Beatmap) AddNote(n *Note) {
	b.notes = append(b.notes, n)
	b.Sort()
	b.dirty = true
}

// RemoveNote removes a note. The note is matched by pointer identity first,
// then by (time, level, lane) equivalence; removing an absent note is a no-op.
func (b *Beatmap) RemoveNote(n *Note) {
	if i := b.indexOf(n); i >= 0 {
		b.notes = append(b.notes[:i], b.notes[i+1:]...)
		b.dirty = true
	}
}

// RemoveNotes removes multiple notes; absent notes are skipped.
func (b *Beatmap) RemoveNotes(notes []*Note) {
	for _, n := range notes {
		if i := b.indexOf(n); i >= 0 {
			b.notes = append(b.notes[:i], b.notes[i+1:]...)
		}
	}
	b.dirty = true
}

func (b *Beatmap) indexOf(n *Note) int {
	for i, existing := range b.notes {
		if existing == n {
			return i
		}
	}
	for i, existing := range b.notes {
		if existing.Equivalent(n) {
			return i
		}
	}
	return -1
}

// NoteAt finds a note within tolerance seconds of the given time.
func (b *Beatmap) NoteAt(time, tolerance float64) *Note {
	for _, n := range b.notes {
		d := n.Time - time
		if d < 0 {
			d = -d
		}
		if d <= tolerance {
			return n
		}
	}
	return nil
}

// NotesInRange returns all notes with start <= time <= end.
func (b *Beatmap) NotesInRange(start, end float64) []*Note {
	var out []*Note
	for _, n := range b.notes {
		if n.Time >= start && n.Time <= end {
			out = append(out, n)
		}
	}
	return out
}

// NotesByLane returns all notes in the given lane.
func (b *Beatmap) NotesByLane(lane Lane) []*Note {
	var out []*Note
	for _, n := range b.notes {
		if n.Lane == lane {
			out = append(out, n)
		}
	}
	return out
}

// NotesByLevel returns all notes at the given difficulty level.
func (b *Beatmap) NotesByLevel(level int) []*Note {
	var out []*Note
	for _, n := range b.notes {
		if n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

// SelectedNotes returns all currently selected notes.
func (b *Beatmap) SelectedNotes() []*Note {
	var out []*Note
	for _, n := range b.notes {
		if n.Selected {
			out = append(out, n)
		}
	}
	return out
}

// ClearSelection deselects all notes.
func (b *Beatmap) ClearSelection() {
	for _, n := range b.notes {
		n.Selected = false
	}
}

// SelectRange selects notes in [start, end], optionally restricted to one
// lane (empty lane selects across all lanes).
func (b *Beatmap) SelectRange(start, end float64, lane Lane) {
	for _, n := range b.notes {
		if n.Time >= start && n.Time <= end && (lane == "" || n.Lane == lane) {
			n.Selected = true
		}
	}
}

// SetNotes replaces all notes with the given list, re-sorted.
func (b *Beatmap) SetNotes(notes []*Note) {
	b.notes = append([]*Note(nil), notes...)
	b.Sort()
	b.dirty = true
}

// Clear removes all notes.
func (b *Beatmap) Clear() {
	b.notes = nil
	b.dirty = true
}

func (b *Beatmap) String() string {
	return fmt.Sprintf("Beatmap(%s, %d notes, %.1f BPM)", b.Meta.Filename, len(b.notes), b.Meta.BPM)
}
