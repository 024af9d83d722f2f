// Package history provides reversible editing commands over a beatmap and a
// bounded undo/redo history. Every mutation the editor performs is expressed
// as a Command whose Undo is the exact inverse of its Execute.
package history

import (
	"fmt"

	"github.com/soundfold/beatsmith/pkg/beatmap"
)

// Command is one reversible edit. The set of commands is closed: apply and
// revert are unexported, so new kinds can only be added inside this package.
//
// Undo assumes no out-of-band mutation happened since Execute; that
// precondition is unchecked. Commands tolerate missing notes on removal (a
// silent per-note no-op) rather than failing.
type Command interface {
	apply(b *beatmap.Beatmap)
	revert(b *beatmap.Beatmap)

	// Description is a human-readable summary for status display.
	Description() string
}

// addNotes inserts one or more notes.
type addNotes struct {
	notes []*beatmap.Note
}

// AddNote returns a command that adds a single note.
func AddNote(n *beatmap.Note) Command {
	return &addNotes{notes: []*beatmap.Note{n}}
}

// AddNotes returns a command that adds multiple notes.
func AddNotes(notes []*beatmap.Note) Command {
	return &addNotes{notes: append([]*beatmap.Note(nil), notes...)}
}

func (c *addNotes) apply(b *beatmap.Beatmap) {
	for _, n := range c.notes {
		b.AddNote(n)
	}
}

func (c *addNotes) revert(b *beatmap.Beatmap) {
	b.RemoveNotes(c.notes)
}

func (c *addNotes) Description() string {
	if len(c.notes) == 1 {
		n := c.notes[0]
		return fmt.Sprintf("Add %s note at %.3fs", n.Lane, n.Time)
	}
	return fmt.Sprintf("Add %d notes", len(c.notes))
}

// removeNotes removes notes, keeping copies so undo can re-insert equivalent
// data even if the originals are gone.
type removeNotes struct {
	notes []*beatmap.Note
}

// RemoveNote returns a command that removes a single note.
func RemoveNote(n *beatmap.Note) Command {
	return &removeNotes{notes: []*beatmap.Note{n.Copy()}}
}

// RemoveNotes returns a command that removes multiple notes.
func RemoveNotes(notes []*beatmap.Note) Command {
	copies := make([]*beatmap.Note, len(notes))
	for i, n := range notes {
		copies[i] = n.Copy()
	}
	return &removeNotes{notes: copies}
}

func (c *removeNotes) apply(b *beatmap.Beatmap) {
	b.RemoveNotes(c.notes)
}

func (c *removeNotes) revert(b *beatmap.Beatmap) {
	for _, n := range c.notes {
		b.AddNote(n)
	}
}

func (c *removeNotes) Description() string {
	if len(c.notes) == 1 {
		n := c.notes[0]
		return fmt.Sprintf("Remove %s note at %.3fs", n.Lane, n.Time)
	}
	return fmt.Sprintf("Remove %d notes", len(c.notes))
}

// moveNotes changes times and/or lanes of existing notes in place.
type moveNotes struct {
	notes    []*beatmap.Note
	oldTimes []float64
	newTimes []float64
	oldLanes []beatmap.Lane
	newLanes []beatmap.Lane
	desc     string
}

// MoveNote returns a command that moves one note to a new time and lane.
// Passing an empty lane keeps the current one.
func MoveNote(n *beatmap.Note, newTime float64, newLane beatmap.Lane) Command {
	if newLane == "" {
		newLane = n.Lane
	}
	desc := fmt.Sprintf("Move note from %.3fs to %.3fs", n.Time, newTime)
	if newLane != n.Lane {
		desc += fmt.Sprintf(" and change to %s", newLane)
	}
	return &moveNotes{
		notes:    []*beatmap.Note{n},
		oldTimes: []float64{n.Time},
		newTimes: []float64{newTime},
		oldLanes: []beatmap.Lane{n.Lane},
		newLanes: []beatmap.Lane{newLane},
		desc:     desc,
	}
}

// MoveNotes returns a command that moves multiple notes. newTimes or newLanes
// may be nil to leave that attribute unchanged.
func MoveNotes(notes []*beatmap.Note, newTimes []float64, newLanes []beatmap.Lane, desc string) Command {
	// Copy the slice header: callers often pass the beatmap's own note list,
	// and a later re-sort must not disturb the index mapping to old values.
	c := &moveNotes{
		notes:    append([]*beatmap.Note(nil), notes...),
		oldTimes: make([]float64, len(notes)),
		oldLanes: make([]beatmap.Lane, len(notes)),
		newTimes: newTimes,
		newLanes: newLanes,
		desc:     desc,
	}
	for i, n := range notes {
		c.oldTimes[i] = n.Time
		c.oldLanes[i] = n.Lane
	}
	if c.newTimes == nil {
		c.newTimes = c.oldTimes
	}
	if c.newLanes == nil {
		c.newLanes = c.oldLanes
	}
	if c.desc == "" {
		c.desc = fmt.Sprintf("Move %d notes", len(notes))
	}
	return c
}

func (c *moveNotes) apply(b *beatmap.Beatmap) {
	for i, n := range c.notes {
		n.Time = c.newTimes[i]
		n.Lane = c.newLanes[i]
	}
	b.Sort()
	b.MarkDirty()
}

func (c *moveNotes) revert(b *beatmap.Beatmap) {
	for i, n := range c.notes {
		n.Time = c.oldTimes[i]
		n.Lane = c.oldLanes[i]
	}
	b.Sort()
	b.MarkDirty()
}

func (c *moveNotes) Description() string { return c.desc }

// changeLevels updates difficulty levels; time is untouched, so no re-sort.
type changeLevels struct {
	notes     []*beatmap.Note
	oldLevels []int
	newLevel  int
}

// ChangeLevel returns a command that sets one note's level.
func ChangeLevel(n *beatmap.Note, newLevel int) (Command, error) {
	return ChangeLevels([]*beatmap.Note{n}, newLevel)
}

// ChangeLevels returns a command that sets the level of multiple notes.
func ChangeLevels(notes []*beatmap.Note, newLevel int) (Command, error) {
	if !beatmap.ValidLevel(newLevel) {
		return nil, fmt.Errorf("%w: got %d", beatmap.ErrInvalidLevel, newLevel)
	}
	c := &changeLevels{
		notes:     append([]*beatmap.Note(nil), notes...),
		newLevel:  newLevel,
		oldLevels: make([]int, len(notes)),
	}
	for i, n := range notes {
		c.oldLevels[i] = n.Level
	}
	return c, nil
}

func (c *changeLevels) apply(b *beatmap.Beatmap) {
	for _, n := range c.notes {
		n.Level = c.newLevel
	}
	b.MarkDirty()
}

func (c *changeLevels) revert(b *beatmap.Beatmap) {
	for i, n := range c.notes {
		n.Level = c.oldLevels[i]
	}
	b.MarkDirty()
}

func (c *changeLevels) Description() string {
	if len(c.notes) == 1 {
		return fmt.Sprintf("Change level from %d to %d", c.oldLevels[0], c.newLevel)
	}
	return fmt.Sprintf("Change %d notes to level %d", len(c.notes), c.newLevel)
}

// snapNotes batch-moves notes to precomputed snapped times.
type snapNotes struct {
	notes    []*beatmap.Note
	oldTimes []float64
	newTimes []float64
}

// SnapNotes returns a command that assigns each note its precomputed snapped
// time. The caller computes the times against a grid.
func SnapNotes(notes []*beatmap.Note, newTimes []float64) Command {
	c := &snapNotes{
		notes:    append([]*beatmap.Note(nil), notes...),
		newTimes: append([]float64(nil), newTimes...),
		oldTimes: make([]float64, len(notes)),
	}
	for i, n := range notes {
		c.oldTimes[i] = n.Time
	}
	return c
}

func (c *snapNotes) apply(b *beatmap.Beatmap) {
	for i, n := range c.notes {
		n.Time = c.newTimes[i]
	}
	b.Sort()
	b.MarkDirty()
}

func (c *snapNotes) revert(b *beatmap.Beatmap) {
	for i, n := range c.notes {
		n.Time = c.oldTimes[i]
	}
	b.Sort()
	b.MarkDirty()
}

func (c *snapNotes) Description() string {
	return fmt.Sprintf("Snap %d notes to grid", len(c.notes))
}

// cleanupDuplicates removes a precomputed duplicate set. Duplicate detection
// itself lives with the caller; the command only executes the removal.
type cleanupDuplicates struct {
	notes []*beatmap.Note
}

// CleanupDuplicates returns a command removing the given duplicate notes.
func CleanupDuplicates(toRemove []*beatmap.Note) Command {
	copies := make([]*beatmap.Note, len(toRemove))
	for i, n := range toRemove {
		copies[i] = n.Copy()
	}
	return &cleanupDuplicates{notes: copies}
}

func (c *cleanupDuplicates) apply(b *beatmap.Beatmap) {
	b.RemoveNotes(c.notes)
}

func (c *cleanupDuplicates) revert(b *beatmap.Beatmap) {
	for _, n := range c.notes {
		b.AddNote(n)
	}
}

func (c *cleanupDuplicates) Description() string {
	return fmt.Sprintf("Clean up %d duplicate notes", len(c.notes))
}

// patternEdit applies a precomputed add-set and remove-set as one atomic,
// undoable unit. Removals match by rounded time and lane; adds are inserted
// as selected copies.
type patternEdit struct {
	add    []*beatmap.Note
	remove []*beatmap.Note
	lane   beatmap.Lane
}

// PatternEdit returns a command for a batch pattern edit in one lane.
func PatternEdit(add, remove []*beatmap.Note, lane beatmap.Lane) Command {
	c := &patternEdit{lane: lane}
	for _, n := range add {
		c.add = append(c.add, n.Copy())
	}
	for _, n := range remove {
		c.remove = append(c.remove, n.Copy())
	}
	return c
}

func removeByTimeAndLane(b *beatmap.Beatmap, notes []*beatmap.Note) {
	for _, n := range notes {
		want := beatmap.RoundTime(n.Time)
		for _, existing := range b.Notes() {
			if beatmap.RoundTime(existing.Time) == want && existing.Lane == n.Lane {
				b.RemoveNote(existing)
				break
			}
		}
	}
}

func addSelectedCopies(b *beatmap.Beatmap, notes []*beatmap.Note) {
	for _, n := range notes {
		c := n.Copy()
		c.Selected = true
		b.AddNote(c)
	}
}

func (c *patternEdit) apply(b *beatmap.Beatmap) {
	removeByTimeAndLane(b, c.remove)
	addSelectedCopies(b, c.add)
	b.Sort()
	b.MarkDirty()
}

func (c *patternEdit) revert(b *beatmap.Beatmap) {
	removeByTimeAndLane(b, c.add)
	addSelectedCopies(b, c.remove)
	b.Sort()
	b.MarkDirty()
}

func (c *patternEdit) Description() string {
	return fmt.Sprintf("Edit %s pattern (+%d, -%d)", c.lane, len(c.add), len(c.remove))
}

// composite groups commands; undo runs them in reverse order.
type composite struct {
	commands []Command
	desc     string
}

// Composite returns a command grouping several commands into one undo step.
func Composite(commands []Command, desc string) Command {
	if desc == "" {
		desc = fmt.Sprintf("Composite (%d actions)", len(commands))
	}
	return &composite{commands: commands, desc: desc}
}

func (c *composite) apply(b *beatmap.Beatmap) {
	for _, cmd := range c.commands {
		cmd.apply(b)
	}
}

func (c *composite) revert(b *beatmap.Beatmap) {
	for i := len(c.commands) - 1; i >= 0; i-- {
		c.commands[i].revert(b)
	}
}

func (c *composite) Description() string { return c.desc }
