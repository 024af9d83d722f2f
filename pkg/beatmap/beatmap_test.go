package beatmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

func mustNote(t *testing.T, time float64, level int, lane Lane) *Note {
	t.Helper()
	n, err := NewNote(time, level, lane)
	if err != nil {
		t.Fatalf("NewNote(%v, %d, %s): %v", time, level, lane, err)
	}
	return n
}

func TestNewNoteValidation(t *testing.T) {
	tests := []struct {
		name    string
		level   int
		lane    Lane
		wantErr error
	}{
		{"valid", LevelEasy, LaneDrum, nil},
		{"level too low", 0, LaneDrum, ErrInvalidLevel},
		{"level too high", 4, LaneDrum, ErrInvalidLevel},
		{"unknown lane", LevelEasy, "guitar", ErrUnknownLane},
		{"empty lane", LevelEasy, "", ErrUnknownLane},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNote(1.0, tt.level, tt.lane)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNoteCopyClearsSelection(t *testing.T) {
	n := mustNote(t, 1.5, LevelHard, LaneVocal)
	n.Selected = true
	c := n.Copy()
	if c == n {
		t.Fatal("Copy() returned the same pointer")
	}
	if c.Selected {
		t.Error("Copy() kept Selected")
	}
	if !c.Equivalent(n) {
		t.Error("Copy() not equivalent to original")
	}
}

func TestRoundTime(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.23456, 1.235},
		{1.2344, 1.234},
		{0, 0},
		{2.0005, 2.001},
	}
	for _, tt := range tests {
		if got := RoundTime(tt.in); got != tt.want {
			t.Errorf("RoundTime(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAddNoteKeepsOrder(t *testing.T) {
	b := New()
	b.AddNote(mustNote(t, 3.0, LevelEasy, LaneDrum))
	b.AddNote(mustNote(t, 1.0, LevelEasy, LaneDrum))
	b.AddNote(mustNote(t, 2.0, LevelEasy, LaneDrum))

	times := []float64{1.0, 2.0, 3.0}
	for i, n := range b.Notes() {
		if n.Time != times[i] {
			t.Errorf("note %d time = %v, want %v", i, n.Time, times[i])
		}
	}
	if !b.Dirty() {
		t.Error("beatmap not dirty after AddNote")
	}
}

func TestSortStableForEqualTimes(t *testing.T) {
	b := New()
	first := mustNote(t, 1.0, LevelEasy, LaneDrum)
	second := mustNote(t, 1.0, LevelHard, LaneBass)
	b.AddNote(first)
	b.AddNote(second)
	b.Sort()
	b.Sort()

	if b.Notes()[0] != first || b.Notes()[1] != second {
		t.Error("equal-time notes lost insertion order after re-sort")
	}
}

func TestRemoveNote(t *testing.T) {
	b := New()
	n := mustNote(t, 1.0, LevelEasy, LaneDrum)
	b.AddNote(n)

	// Pointer identity.
	b.RemoveNote(n)
	if b.Len() != 0 {
		t.Fatal("note not removed by pointer")
	}

	// Equivalence fallback.
	b.AddNote(mustNote(t, 2.0, LevelMedium, LaneBass))
	b.RemoveNote(mustNote(t, 2.0, LevelMedium, LaneBass))
	if b.Len() != 0 {
		t.Fatal("note not removed by equivalence")
	}

	// Absent note is a no-op.
	b.RemoveNote(mustNote(t, 9.0, LevelEasy, LaneDrum))
	if b.Len() != 0 {
		t.Fatal("removing absent note changed the beatmap")
	}
}

func TestQueries(t *testing.T) {
	b := New()
	b.AddNote(mustNote(t, 1.0, LevelEasy, LaneDrum))
	b.AddNote(mustNote(t, 2.0, LevelMedium, LaneDrum))
	b.AddNote(mustNote(t, 3.0, LevelMedium, LaneBass))

	if got := len(b.NotesInRange(1.0, 2.0)); got != 2 {
		t.Errorf("NotesInRange = %d, want 2 (inclusive bounds)", got)
	}
	if got := len(b.NotesByLane(LaneDrum)); got != 2 {
		t.Errorf("NotesByLane = %d, want 2", got)
	}
	if got := len(b.NotesByLevel(LevelMedium)); got != 2 {
		t.Errorf("NotesByLevel = %d, want 2", got)
	}
	if n := b.NoteAt(2.0004, 0.001); n == nil || n.Time != 2.0 {
		t.Error("NoteAt missed note within tolerance")
	}
	if n := b.NoteAt(5.0, 0.001); n != nil {
		t.Error("NoteAt found a note where none exists")
	}
}

func TestSelection(t *testing.T) {
	b := New()
	b.AddNote(mustNote(t, 1.0, LevelEasy, LaneDrum))
	b.AddNote(mustNote(t, 2.0, LevelEasy, LaneBass))
	b.AddNote(mustNote(t, 3.0, LevelEasy, LaneDrum))

	b.SelectRange(0, 10, LaneDrum)
	if got := len(b.SelectedNotes()); got != 2 {
		t.Fatalf("lane-scoped SelectRange selected %d, want 2", got)
	}

	b.ClearSelection()
	b.SelectRange(1.5, 2.5, "")
	if got := len(b.SelectedNotes()); got != 1 {
		t.Fatalf("SelectRange selected %d, want 1", got)
	}

	b.ClearSelection()
	if len(b.SelectedNotes()) != 0 {
		t.Error("ClearSelection left notes selected")
	}
}

func TestMarshalShape(t *testing.T) {
	b := New()
	b.Meta.Filename = "song"
	b.Meta.BPM = 128.04
	b.Meta.TotalDuration = 180.06
	b.AddNote(mustNote(t, 1.23456, LevelMedium, LaneDrum))

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}

	var meta map[string]any
	if err := json.Unmarshal(doc["meta"], &meta); err != nil {
		t.Fatal(err)
	}
	if meta["version"] != Version {
		t.Errorf("version = %v, want %q", meta["version"], Version)
	}
	if meta["bpm"] != 128.0 {
		t.Errorf("bpm = %v, want 128.0 (one decimal)", meta["bpm"])
	}
	if meta["total_duration"] != 180.1 {
		t.Errorf("total_duration = %v, want 180.1", meta["total_duration"])
	}
	if _, present := meta["title"]; present {
		t.Error("empty title written to meta")
	}
	if _, present := meta["category"]; present {
		t.Error("empty category written to meta")
	}

	var notes []map[string]any
	if err := json.Unmarshal(doc["notes"], &notes); err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 {
		t.Fatalf("notes = %d, want 1", len(notes))
	}
	if notes[0]["time"] != 1.235 {
		t.Errorf("note time = %v, want 1.235 (three decimals)", notes[0]["time"])
	}
	if notes[0]["type"] != "drum" {
		t.Errorf("lane written as %v, want under \"type\" key", notes[0]["type"])
	}
	if _, present := notes[0]["selected"]; present {
		t.Error("Selected leaked into persistence")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")

	b := New()
	b.Meta.Filename = "song"
	b.Meta.Title = "Test Song"
	b.Meta.BPM = 140
	b.Meta.TotalDuration = 60
	b.AddNote(mustNote(t, 0.5, LevelEasy, LaneBase))
	b.AddNote(mustNote(t, 1.0, LevelMedium, LaneDrum))
	// Exact duplicate: must survive the round trip untouched.
	b.AddNote(mustNote(t, 1.0, LevelMedium, LaneDrum))
	b.Notes()[0].Selected = true

	if err := b.Save(path); err != nil {
		t.Fatal(err)
	}
	if b.Dirty() {
		t.Error("beatmap still dirty after Save")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Dirty() {
		t.Error("loaded beatmap is dirty")
	}
	if loaded.Len() != 3 {
		t.Fatalf("loaded %d notes, want 3", loaded.Len())
	}
	if loaded.Meta.Title != "Test Song" {
		t.Errorf("title = %q", loaded.Meta.Title)
	}
	for _, n := range loaded.Notes() {
		if n.Selected {
			t.Error("Selected persisted across save/load")
		}
	}

	// Serialized forms must be byte-identical.
	first, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(loaded)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("round-tripped beatmap serializes differently")
	}
}

func TestUnmarshalRejectsInvalidNotes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad level", `{"meta":{"version":"1.1","bpm":120,"total_duration":10},"notes":[{"time":1,"level":5,"type":"drum"}]}`},
		{"bad lane", `{"meta":{"version":"1.1","bpm":120,"total_duration":10},"notes":[{"time":1,"level":1,"type":"piano"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New()
			if err := json.Unmarshal([]byte(tt.doc), b); err == nil {
				t.Fatal("invalid note accepted")
			}
		})
	}
}

func TestUnmarshalSortsNotes(t *testing.T) {
	doc := `{"meta":{"version":"1.1","bpm":120,"total_duration":10},"notes":[{"time":2,"level":1,"type":"drum"},{"time":1,"level":1,"type":"bass"}]}`
	b := New()
	if err := json.Unmarshal([]byte(doc), b); err != nil {
		t.Fatal(err)
	}
	if b.Notes()[0].Time != 1 {
		t.Error("notes not re-sorted on load")
	}
}
