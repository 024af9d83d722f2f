// Package pattern detects and replicates rhythmic on/off marker patterns.
//
// A pattern is built from a single-lane selection occupying contiguous grid
// slots; toggling slots produces an edited pattern whose diff can be replayed
// at every other occurrence of the original pattern in the lane.
package pattern

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/soundfold/beatsmith/pkg/beatmap"
)

var (
	// ErrEmptySelection is returned when a pattern is built from no notes.
	ErrEmptySelection = errors.New("pattern requires a selection")
	// ErrMixedLanes is returned when the selection spans more than one lane.
	ErrMixedLanes = errors.New("pattern selection must be a single lane")
	// ErrNoSlots is returned when no grid slots cover the selection.
	ErrNoSlots = errors.New("no grid slots in selection range")
)

// Slot is one grid-aligned position in the pattern.
type Slot struct {
	Time      float64
	HasMarker bool
	original  bool
}

// Pattern is an editable boolean marker pattern over contiguous grid slots.
type Pattern struct {
	slots     []Slot
	lane      beatmap.Lane
	level     int
	step      float64
	originals []*beatmap.Note
}

// Build constructs a pattern from a same-lane selection and the grid times
// covering its range. The level of the first selected note is used for any
// markers the edit adds.
func Build(selected []*beatmap.Note, gridTimes []float64) (*Pattern, error) {
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}
	lane := selected[0].Lane
	for _, n := range selected[1:] {
		if n.Lane != lane {
			return nil, ErrMixedLanes
		}
	}
	if len(gridTimes) == 0 {
		return nil, ErrNoSlots
	}

	sorted := append([]float64(nil), gridTimes...)
	sort.Float64s(sorted)

	p := &Pattern{lane: lane, level: selected[0].Level}
	if len(sorted) >= 2 {
		p.step = math.Round((sorted[1]-sorted[0])*1e6) / 1e6
	}

	noteTimes := make(map[float64]bool, len(selected))
	for _, n := range selected {
		noteTimes[beatmap.RoundTime(n.Time)] = true
		p.originals = append(p.originals, n.Copy())
	}
	for _, t := range sorted {
		rt := beatmap.RoundTime(t)
		has := noteTimes[rt]
		p.slots = append(p.slots, Slot{Time: rt, HasMarker: has, original: has})
	}
	return p, nil
}

// Lane returns the lane this pattern is scoped to.
func (p *Pattern) Lane() beatmap.Lane { return p.lane }

// Step returns the grid step between slots.
func (p *Pattern) Step() float64 { return p.step }

// Slots returns the pattern slots.
func (p *Pattern) Slots() []Slot { return p.slots }

// Len returns the number of slots.
func (p *Pattern) Len() int { return len(p.slots) }

// Toggle flips one slot; out-of-range indices are ignored.
func (p *Pattern) Toggle(i int) {
	if i >= 0 && i < len(p.slots) {
		p.slots[i].HasMarker = !p.slots[i].HasMarker
	}
}

// AllOn marks every slot.
func (p *Pattern) AllOn() {
	for i := range p.slots {
		p.slots[i].HasMarker = true
	}
}

// AllOff clears every slot.
func (p *Pattern) AllOff() {
	for i := range p.slots {
		p.slots[i].HasMarker = false
	}
}

// Invert toggles every slot.
func (p *Pattern) Invert() {
	for i := range p.slots {
		p.slots[i].HasMarker = !p.slots[i].HasMarker
	}
}

// Reset restores every slot to its original state.
func (p *Pattern) Reset() {
	for i := range p.slots {
		p.slots[i].HasMarker = p.slots[i].original
	}
}

// String renders the edited pattern, "o" for marker and "x" for empty.
func (p *Pattern) String() string {
	var sb strings.Builder
	for _, s := range p.slots {
		if s.HasMarker {
			sb.WriteByte('o')
		} else {
			sb.WriteByte('x')
		}
	}
	return sb.String()
}

// OriginalString renders the pattern as it was before editing.
func (p *Pattern) OriginalString() string {
	var sb strings.Builder
	for _, s := range p.slots {
		if s.original {
			sb.WriteByte('o')
		} else {
			sb.WriteByte('x')
		}
	}
	return sb.String()
}

// Diff returns the selection's own changes: notes to add at slots that went
// off→on, and copies of the original notes at slots that went on→off.
func (p *Pattern) Diff() (add, remove []*beatmap.Note) {
	for _, s := range p.slots {
		switch {
		case s.HasMarker && !s.original:
			add = append(add, &beatmap.Note{Time: s.Time, Level: p.level, Lane: p.lane})
		case !s.HasMarker && s.original:
			for _, orig := range p.originals {
				if beatmap.RoundTime(orig.Time) == s.Time {
					remove = append(remove, orig.Copy())
					break
				}
			}
		}
	}
	return add, remove
}

// Result is the accumulated outcome of replicating a pattern edit.
type Result struct {
	Add     []*beatmap.Note
	Remove  []*beatmap.Note
	Matches int
}

// ApplyToAll computes the full replication of the pattern edit across the
// beatmap: the selection's own diff plus the same diff at every grid-aligned
// occurrence of the ORIGINAL pattern elsewhere in the lane.
//
// Windows overlapping the selection's time range are excluded. Matching is
// lane-scoped and performed against the evolving state, so a window that an
// earlier replacement already rewrote is seen post-edit. With fewer than two
// slots (no usable step) the result falls back to the selection's own diff.
func (p *Pattern) ApplyToAll(b *beatmap.Beatmap, duration float64) Result {
	add, remove := p.Diff()
	res := Result{Add: add, Remove: remove}
	if len(p.slots) <= 1 || p.step <= 0 {
		return res
	}

	// Existing notes in the lane, keyed by rounded time.
	laneNotes := make(map[float64]*beatmap.Note)
	for _, n := range b.NotesByLane(p.lane) {
		laneNotes[beatmap.RoundTime(n.Time)] = n
	}

	selMin := p.slots[0].Time - 0.001
	selMax := p.slots[len(p.slots)-1].Time + 0.001
	patternDuration := float64(len(p.slots)-1) * p.step

	for start := 0.0; start+patternDuration <= duration; start += p.step {
		end := start + patternDuration
		if !(end < selMin || start > selMax) {
			continue
		}

		matched := true
		for i, s := range p.slots {
			t := beatmap.RoundTime(start + float64(i)*p.step)
			if _, has := laneNotes[t]; has != s.original {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}

		res.Matches++
		for i, s := range p.slots {
			t := beatmap.RoundTime(start + float64(i)*p.step)
			switch {
			case s.HasMarker && !s.original:
				if _, has := laneNotes[t]; !has {
					n := &beatmap.Note{Time: t, Level: p.level, Lane: p.lane}
					res.Add = append(res.Add, n)
					laneNotes[t] = n
				}
			case !s.HasMarker && s.original:
				if existing, has := laneNotes[t]; has {
					res.Remove = append(res.Remove, existing.Copy())
					delete(laneNotes, t)
				}
			}
		}
	}
	return res
}
