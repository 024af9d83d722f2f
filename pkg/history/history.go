package history

import "github.com/soundfold/beatsmith/pkg/beatmap"

// DefaultMaxSize bounds the undo stack; once exceeded, the oldest entries are
// silently discarded and become permanently non-undoable.
const DefaultMaxSize = 100

// History owns the undo and redo stacks for one beatmap.
type History struct {
	target  *beatmap.Beatmap
	undo    []Command
	redo    []Command
	maxSize int
}

// New returns a history bound to the given beatmap with the default size.
func New(target *beatmap.Beatmap) *History {
	return NewWithSize(target, DefaultMaxSize)
}

// NewWithSize returns a history with an explicit undo-stack bound.
func NewWithSize(target *beatmap.Beatmap, maxSize int) *History {
	if maxSize < 1 {
		maxSize = 1
	}
	return &History{target: target, maxSize: maxSize}
}

// Target returns the beatmap this history mutates.
func (h *History) Target() *beatmap.Beatmap {
	return h.target
}

// Execute runs the command against the beatmap and tracks it. Any new
// forward mutation invalidates the redo stack.
func (h *History) Execute(cmd Command) {
	cmd.apply(h.target)
	h.push(cmd)
}

// Record tracks a command without executing it, for mutations the caller
// already performed directly (live preview edits). The caller must ensure the
// command's undo matches what was actually done.
func (h *History) Record(cmd Command) {
	h.push(cmd)
}

func (h *History) push(cmd Command) {
	h.undo = append(h.undo, cmd)
	h.redo = h.redo[:0]
	if excess := len(h.undo) - h.maxSize; excess > 0 {
		h.undo = append(h.undo[:0:0], h.undo[excess:]...)
	}
}

// Undo reverses the most recent command and returns its description, or
// ok=false when there is nothing to undo.
func (h *History) Undo() (string, bool) {
	if len(h.undo) == 0 {
		return "", false
	}
	cmd := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	cmd.revert(h.target)
	h.redo = append(h.redo, cmd)
	return cmd.Description(), true
}

// Redo re-applies the most recently undone command and returns its
// description, or ok=false when there is nothing to redo.
func (h *History) Redo() (string, bool) {
	if len(h.redo) == 0 {
		return "", false
	}
	cmd := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	cmd.apply(h.target)
	h.undo = append(h.undo, cmd)
	return cmd.Description(), true
}

// CanUndo reports whether an undo is available.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether a redo is available.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// UndoDescription returns the description of the next command to undo.
func (h *History) UndoDescription() (string, bool) {
	if len(h.undo) == 0 {
		return "", false
	}
	return h.undo[len(h.undo)-1].Description(), true
}

// RedoDescription returns the description of the next command to redo.
func (h *History) RedoDescription() (string, bool) {
	if len(h.redo) == 0 {
		return "", false
	}
	return h.redo[len(h.redo)-1].Description(), true
}

// Clear drops both stacks; used when a beatmap is loaded or replaced.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}
