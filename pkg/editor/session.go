// Package editor ties the core together into one editing session: a beatmap,
// its undo history, the playhead, the clipboard, and peak-detection state.
// Every mutation runs through the history so it stays undoable, and every
// operation returns a status description for display.
package editor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/soundfold/beatsmith/pkg/audio"
	"github.com/soundfold/beatsmith/pkg/beatmap"
	"github.com/soundfold/beatsmith/pkg/grid"
	"github.com/soundfold/beatsmith/pkg/history"
	"github.com/soundfold/beatsmith/pkg/pattern"
	"github.com/soundfold/beatsmith/pkg/peaks"
)

// ErrNoSavePath is returned by Save when no beatmap path is known.
var ErrNoSavePath = errors.New("no save path specified")

// Session is the central editing state for one beatmap.
type Session struct {
	Beatmap  *beatmap.Beatmap
	History  *history.History
	Playhead float64
	Path     string

	// Analysis is optional precomputed envelope data; Peaks caches detection
	// settings and results per track. Neither is persisted.
	Analysis *audio.Analysis
	Peaks    *peaks.State

	// clipboard holds copies with times relative to the earliest copied note.
	clipboard []*beatmap.Note
}

// NewSession returns a session with an empty beatmap.
func NewSession() *Session {
	bm := beatmap.New()
	return &Session{
		Beatmap: bm,
		History: history.New(bm),
		Peaks:   peaks.NewState(audio.Tracks),
	}
}

// Duration returns the beatmap's total duration in seconds.
func (s *Session) Duration() float64 { return s.Beatmap.Meta.TotalDuration }

// BPM returns the beatmap's tempo.
func (s *Session) BPM() float64 { return s.Beatmap.Meta.BPM }

// Load replaces the session's beatmap with one read from path and clears the
// history and playhead.
func (s *Session) Load(path string) error {
	bm, err := beatmap.Load(path)
	if err != nil {
		return err
	}
	s.Beatmap = bm
	s.History = history.NewWithSize(bm, history.DefaultMaxSize)
	s.Path = path
	s.Playhead = 0
	return nil
}

// Save writes the beatmap to its known path.
func (s *Session) Save() error {
	if s.Path == "" {
		return ErrNoSavePath
	}
	return s.Beatmap.Save(s.Path)
}

// SaveAs writes the beatmap to path and remembers it.
func (s *Session) SaveAs(path string) error {
	if err := s.Beatmap.Save(path); err != nil {
		return err
	}
	s.Path = path
	return nil
}

// SetPlayhead clamps and sets the playhead.
func (s *Session) SetPlayhead(t float64) {
	if t < 0 {
		t = 0
	}
	if d := s.Duration(); d > 0 && t > d {
		t = d
	}
	s.Playhead = t
}

// AddNoteAt adds a note through the history and selects it.
func (s *Session) AddNoteAt(time float64, level int, lane beatmap.Lane) (string, error) {
	n, err := beatmap.NewNote(time, level, lane)
	if err != nil {
		return "", err
	}
	cmd := history.AddNote(n)
	s.History.Execute(cmd)
	s.Beatmap.ClearSelection()
	n.Selected = true
	return cmd.Description(), nil
}

// DeleteSelection removes all selected notes as one undo step.
func (s *Session) DeleteSelection() string {
	selected := s.Beatmap.SelectedNotes()
	if len(selected) == 0 {
		return "No markers selected to delete"
	}
	s.History.Execute(history.RemoveNotes(selected))
	return fmt.Sprintf("Deleted %d marker(s)", len(selected))
}

// ChangeSelectionLevel sets the level of every selected note.
func (s *Session) ChangeSelectionLevel(level int) (string, error) {
	selected := s.Beatmap.SelectedNotes()
	if len(selected) == 0 {
		return "No markers selected", nil
	}
	cmd, err := history.ChangeLevels(selected, level)
	if err != nil {
		return "", err
	}
	s.History.Execute(cmd)
	return cmd.Description(), nil
}

// SnapSelection snaps selected notes to the beat grid at the given
// subdivision. Notes already on the grid do not count as moved.
func (s *Session) SnapSelection(subdivision int) string {
	selected := s.Beatmap.SelectedNotes()
	if len(selected) == 0 {
		return "No markers selected to snap"
	}
	if s.BPM() <= 0 {
		return "No BPM set - cannot snap to beat"
	}
	g := grid.Generate(s.BPM(), s.Duration(), subdivision)
	if len(g) == 0 {
		return "No grid positions available"
	}

	newTimes := make([]float64, len(selected))
	moved := 0
	for i, n := range selected {
		newTimes[i] = grid.Snap(n.Time, g)
		if diff := newTimes[i] - n.Time; diff > 0.001 || diff < -0.001 {
			moved++
		}
	}
	if moved == 0 {
		return "All selected markers already on grid"
	}

	s.History.Execute(history.SnapNotes(selected, newTimes))

	var label string
	switch subdivision {
	case 1:
		label = "whole beat"
	case 2:
		label = "1/2 beat"
	default:
		label = fmt.Sprintf("1/%d beat", subdivision)
	}
	return fmt.Sprintf("Snapped %d marker(s) to %s", moved, label)
}

// FindDuplicates groups notes by millisecond-rounded time across all lanes
// and returns everything except the keeper of each group: the lowest-level
// note, or the first of the group when levels tie.
func (s *Session) FindDuplicates() []*beatmap.Note {
	groups := make(map[float64][]*beatmap.Note)
	var order []float64
	for _, n := range s.Beatmap.Notes() {
		t := beatmap.RoundTime(n.Time)
		if _, seen := groups[t]; !seen {
			order = append(order, t)
		}
		groups[t] = append(groups[t], n)
	}

	var toRemove []*beatmap.Note
	for _, t := range order {
		group := groups[t]
		if len(group) < 2 {
			continue
		}
		sorted := append([]*beatmap.Note(nil), group...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Level < sorted[j].Level
		})
		toRemove = append(toRemove, sorted[1:]...)
	}
	return toRemove
}

// CleanupDuplicates removes duplicate markers as one undo step.
func (s *Session) CleanupDuplicates() string {
	if s.Beatmap.Len() == 0 {
		return "No markers to clean up"
	}
	toRemove := s.FindDuplicates()
	if len(toRemove) == 0 {
		return "No duplicate markers found"
	}
	s.History.Execute(history.CleanupDuplicates(toRemove))
	return fmt.Sprintf("Cleaned up %d duplicate marker(s)", len(toRemove))
}

// SelectAll selects every marker.
func (s *Session) SelectAll() string {
	for _, n := range s.Beatmap.Notes() {
		n.Selected = true
	}
	return fmt.Sprintf("Selected %d marker(s)", s.Beatmap.Len())
}

// DeselectAll clears the selection.
func (s *Session) DeselectAll() string {
	s.Beatmap.ClearSelection()
	return "Deselected all markers"
}

// SelectRange selects markers in [start, end], optionally in one lane.
func (s *Session) SelectRange(start, end float64, lane beatmap.Lane) string {
	s.Beatmap.SelectRange(start, end, lane)
	return fmt.Sprintf("Selected %d marker(s)", len(s.Beatmap.SelectedNotes()))
}

// SelectLane selects every marker in one lane.
func (s *Session) SelectLane(lane beatmap.Lane) string {
	count := 0
	for _, n := range s.Beatmap.Notes() {
		if n.Lane == lane {
			n.Selected = true
			count++
		}
	}
	return fmt.Sprintf("Selected %d marker(s) in %s track", count, lane)
}

// Copy stores copies of the selection with times relative to its first note.
func (s *Session) Copy() string {
	selected := s.Beatmap.SelectedNotes()
	if len(selected) == 0 {
		return "No markers selected to copy"
	}
	sorted := append([]*beatmap.Note(nil), selected...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	base := sorted[0].Time
	s.clipboard = s.clipboard[:0]
	for _, n := range sorted {
		c := n.Copy()
		c.Time -= base
		s.clipboard = append(s.clipboard, c)
	}
	return fmt.Sprintf("Copied %d marker(s)", len(s.clipboard))
}

// Paste inserts clipboard contents at the playhead as one undo step and
// selects the pasted notes. With movePlayhead, the playhead advances past the
// pasted span so repeated pastes chain.
func (s *Session) Paste(movePlayhead bool) string {
	if len(s.clipboard) == 0 {
		return "Clipboard is empty"
	}
	playhead := s.Playhead
	toAdd := make([]*beatmap.Note, 0, len(s.clipboard))
	for _, c := range s.clipboard {
		n := c.Copy()
		n.Time = beatmap.RoundTime(playhead + c.Time)
		toAdd = append(toAdd, n)
	}
	s.History.Execute(history.AddNotes(toAdd))
	s.Beatmap.ClearSelection()
	for _, n := range toAdd {
		n.Selected = true
	}
	if movePlayhead {
		s.SetPlayhead(playhead + s.clipboard[len(s.clipboard)-1].Time)
	}
	return fmt.Sprintf("Pasted %d marker(s) at playhead", len(toAdd))
}

// Duplicate copies the selection and pastes it at the playhead, then moves
// the playhead to keep the same offset from the new last note.
func (s *Session) Duplicate() string {
	selected := s.Beatmap.SelectedNotes()
	if len(selected) == 0 {
		return "No markers selected to duplicate"
	}
	sorted := append([]*beatmap.Note(nil), selected...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	first, last := sorted[0].Time, sorted[len(sorted)-1].Time
	playheadBefore := s.Playhead
	offsetFromLast := playheadBefore - last

	s.Copy()
	msg := s.Paste(false)

	newLast := playheadBefore + (last - first)
	s.SetPlayhead(newLast + offsetFromLast)
	return msg
}

// MoveToPlayhead moves a single selected marker to the playhead.
func (s *Session) MoveToPlayhead() string {
	selected := s.Beatmap.SelectedNotes()
	switch {
	case len(selected) == 0:
		return "No marker selected"
	case len(selected) > 1:
		return "Can only move one marker at a time"
	}
	n := selected[0]
	newTime := beatmap.RoundTime(s.Playhead)
	if diff := n.Time - newTime; diff < 0.001 && diff > -0.001 {
		return "Marker already at playhead position"
	}
	s.History.Execute(history.MoveNote(n, newTime, n.Lane))
	return fmt.Sprintf("Moved marker to %.3fs", newTime)
}

// InsertBeatMarkers adds markers at a regular beat interval across the song
// (or from the playhead onward), skipping slots the lane already occupies.
func (s *Session) InsertBeatMarkers(lane beatmap.Lane, beatsInterval float64, level int, fromPlayhead bool) (string, error) {
	if !beatmap.ValidLevel(level) {
		return "", fmt.Errorf("%w: got %d", beatmap.ErrInvalidLevel, level)
	}
	if !beatmap.ValidLane(lane) {
		return "", fmt.Errorf("%w: %q", beatmap.ErrUnknownLane, lane)
	}
	if s.BPM() <= 0 || s.Duration() <= 0 {
		return "No audio loaded - cannot insert beat markers", nil
	}

	interval := 60.0 / s.BPM() * beatsInterval
	start := 0.0
	if fromPlayhead {
		idx := int(s.Playhead / interval)
		start = float64(idx) * interval
		if start < s.Playhead {
			start += interval
		}
	}

	existing := make(map[float64]bool)
	for _, n := range s.Beatmap.NotesByLane(lane) {
		existing[beatmap.RoundTime(n.Time)] = true
	}

	s.Beatmap.ClearSelection()
	var toAdd []*beatmap.Note
	for t := start; t < s.Duration(); t += interval {
		rt := beatmap.RoundTime(t)
		if existing[rt] {
			continue
		}
		toAdd = append(toAdd, &beatmap.Note{Time: rt, Level: level, Lane: lane})
		existing[rt] = true
	}
	if len(toAdd) > 0 {
		s.History.Execute(history.AddNotes(toAdd))
		for _, n := range toAdd {
			n.Selected = true
		}
	}
	return fmt.Sprintf("Added %d markers at %s beat intervals in %s (level %d, selected)",
		len(toAdd), intervalName(beatsInterval), lane, level), nil
}

func intervalName(beats float64) string {
	if beats >= 1 {
		if beats == float64(int(beats)) {
			return fmt.Sprintf("%d/1", int(beats))
		}
		return fmt.Sprintf("%g/1", beats)
	}
	return fmt.Sprintf("1/%d", int(1/beats))
}

// DetectPeaks runs peak detection for one track using the session's analysis
// data and the track's settings, caching the result.
func (s *Session) DetectPeaks(track string) ([]float64, error) {
	if s.Analysis == nil {
		return nil, errors.New("no envelope analysis loaded")
	}
	env := s.Analysis.RMSFor(track)
	if env == nil {
		return nil, fmt.Errorf("no envelope for track %q", track)
	}
	settings, ok := s.Peaks.Settings[track]
	if !ok {
		ns := peaks.NewSettings()
		settings = &ns
		s.Peaks.Settings[track] = settings
	}
	result := peaks.DetectWithSettings(env, s.Analysis.Duration, *settings)
	s.Peaks.Peaks[track] = result
	return result, nil
}

// AddMarkersFromPeaks inserts level-1 markers at detected peak times, snapped
// to the sixteenth grid, skipping slots already occupied in the peak track's
// lane. All additions form one undo step and end up selected.
func (s *Session) AddMarkersFromPeaks(track string, peakTimes []float64, afterPlayheadOnly bool) string {
	if len(peakTimes) == 0 {
		return "No peaks to add"
	}
	lane := audio.LaneForTrack(track)

	if afterPlayheadOnly {
		var filtered []float64
		for _, t := range peakTimes {
			if t > s.Playhead {
				filtered = append(filtered, t)
			}
		}
		peakTimes = filtered
		if len(peakTimes) == 0 {
			return "No peaks after playhead"
		}
	}

	g := grid.Generate(s.BPM(), s.Duration(), grid.SubdivisionSixteenth)
	s.Beatmap.ClearSelection()

	existing := make(map[float64]bool)
	for _, n := range s.Beatmap.NotesByLane(lane) {
		existing[beatmap.RoundTime(n.Time)] = true
	}

	var toAdd []*beatmap.Note
	for _, peakTime := range peakTimes {
		t := beatmap.RoundTime(grid.Snap(peakTime, g))
		if existing[t] {
			continue
		}
		toAdd = append(toAdd, &beatmap.Note{Time: t, Level: beatmap.LevelEasy, Lane: lane})
		existing[t] = true
	}
	if len(toAdd) > 0 {
		s.History.Execute(history.AddNotes(toAdd))
		for _, n := range toAdd {
			n.Selected = true
		}
	}

	mode := ""
	if afterPlayheadOnly {
		mode = " after playhead"
	}
	return fmt.Sprintf("Added %d markers from %d peaks in %s%s (selected)",
		len(toAdd), len(peakTimes), lane, mode)
}

// BuildPattern constructs an editable pattern from the current selection,
// using the grid at the given subdivision restricted to the selection range.
func (s *Session) BuildPattern(subdivision int) (*pattern.Pattern, error) {
	selected := s.Beatmap.SelectedNotes()
	if len(selected) == 0 {
		return nil, pattern.ErrEmptySelection
	}
	minT, maxT := selected[0].Time, selected[0].Time
	for _, n := range selected[1:] {
		if n.Time < minT {
			minT = n.Time
		}
		if n.Time > maxT {
			maxT = n.Time
		}
	}
	var window []float64
	for _, t := range grid.Generate(s.BPM(), s.Duration(), subdivision) {
		if t >= minT-0.001 && t <= maxT+0.001 {
			window = append(window, t)
		}
	}
	return pattern.Build(selected, window)
}

// ApplyPattern applies the edited pattern to the selection only.
func (s *Session) ApplyPattern(p *pattern.Pattern) string {
	add, remove := p.Diff()
	if len(add) == 0 && len(remove) == 0 {
		return "Pattern unchanged"
	}
	cmd := history.PatternEdit(add, remove, p.Lane())
	s.History.Execute(cmd)
	return cmd.Description()
}

// ApplyPatternToAll replicates the pattern edit at every other occurrence of
// the original pattern in the lane, as one undo step, and reports the match
// count.
func (s *Session) ApplyPatternToAll(p *pattern.Pattern) string {
	res := p.ApplyToAll(s.Beatmap, s.Duration())
	if len(res.Add) == 0 && len(res.Remove) == 0 {
		return "Pattern unchanged"
	}
	cmd := history.PatternEdit(res.Add, res.Remove, p.Lane())
	s.History.Execute(cmd)
	return fmt.Sprintf("%s, %d other occurrence(s)", cmd.Description(), res.Matches)
}

// Undo reverses the last action and returns its description.
func (s *Session) Undo() string {
	if desc, ok := s.History.Undo(); ok {
		return "Undo: " + desc
	}
	return "Nothing to undo"
}

// Redo re-applies the last undone action and returns its description.
func (s *Session) Redo() string {
	if desc, ok := s.History.Redo(); ok {
		return "Redo: " + desc
	}
	return "Nothing to redo"
}
