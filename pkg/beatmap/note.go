// Package beatmap provides the beatmap data model: notes distributed across
// five lanes, difficulty levels, metadata, and JSON persistence.
package beatmap

import (
	"errors"
	"fmt"
	"math"
)

// Lane identifies which of the five fixed lanes a note belongs to.
type Lane string

// The five lanes in display order.
const (
	LaneBase  Lane = "base"
	LaneDrum  Lane = "drum"
	LaneBass  Lane = "bass"
	LaneVocal Lane = "vocal"
	LaneLead  Lane = "lead"
)

// Lanes lists all lanes in display order.
var Lanes = []Lane{LaneBase, LaneDrum, LaneBass, LaneVocal, LaneLead}

// Difficulty levels.
const (
	LevelEasy   = 1
	LevelMedium = 2
	LevelHard   = 3
)

// LevelNames maps levels to display names.
var LevelNames = map[int]string{
	LevelEasy:   "Easy",
	LevelMedium: "Medium",
	LevelHard:   "Hard",
}

var (
	// ErrInvalidLevel is returned when a level outside 1..3 is used.
	ErrInvalidLevel = errors.New("level must be 1, 2, or 3")
	// ErrUnknownLane is returned when a lane name is not one of the five lanes.
	ErrUnknownLane = errors.New("unknown lane")
)

// ValidLane reports whether l is one of the five lanes.
func ValidLane(l Lane) bool {
	for _, lane := range Lanes {
		if l == lane {
			return true
		}
	}
	return false
}

// ValidLevel reports whether level is in 1..3.
func ValidLevel(level int) bool {
	return level >= LevelEasy && level <= LevelHard
}

// Note is a single timestamped marker in the beatmap.
//
// Selected is editor-only state and is never persisted. Notes are referenced
// by pointer inside a Beatmap, so a note stays identifiable across re-sorts.
type Note struct {
	Time     float64
	Level    int
	Lane     Lane
	Selected bool
}

// NewNote validates level and lane and returns a new note.
func NewNote(time float64, level int, lane Lane) (*Note, error) {
	if !ValidLevel(level) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLevel, level)
	}
	if !ValidLane(lane) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLane, lane)
	}
	return &Note{Time: time, Level: level, Lane: lane}, nil
}

// Copy returns an independent copy of the note with Selected cleared.
func (n *Note) Copy() *Note {
	return &Note{Time: n.Time, Level: n.Level, Lane: n.Lane}
}

// Equivalent reports value equality on (time, level, lane), ignoring Selected.
func (n *Note) Equivalent(o *Note) bool {
	return n.Time == o.Time && n.Level == o.Level && n.Lane == o.Lane
}

// RoundTime rounds a timestamp to millisecond precision, the resolution used
// for persistence and duplicate matching.
func RoundTime(t float64) float64 {
	return math.Round(t*1000) / 1000
}
