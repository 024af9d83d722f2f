package pattern

import (
	"testing"

	"github.com/soundfold/beatsmith/pkg/beatmap"
)

func mustNote(t *testing.T, time float64, level int, lane beatmap.Lane) *beatmap.Note {
	t.Helper()
	n, err := beatmap.NewNote(time, level, lane)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestBuildErrors(t *testing.T) {
	drum := mustNote(t, 0, beatmap.LevelEasy, beatmap.LaneDrum)
	bass := mustNote(t, 1, beatmap.LevelEasy, beatmap.LaneBass)

	tests := []struct {
		name     string
		selected []*beatmap.Note
		grid     []float64
		wantErr  error
	}{
		{"empty selection", nil, []float64{0, 1}, ErrEmptySelection},
		{"mixed lanes", []*beatmap.Note{drum, bass}, []float64{0, 1}, ErrMixedLanes},
		{"no slots", []*beatmap.Note{drum}, nil, ErrNoSlots},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.selected, tt.grid); err != tt.wantErr {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildSlots(t *testing.T) {
	selected := []*beatmap.Note{
		mustNote(t, 0, beatmap.LevelMedium, beatmap.LaneDrum),
		mustNote(t, 2, beatmap.LevelMedium, beatmap.LaneDrum),
	}
	p, err := Build(selected, []float64{0, 1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}

	if p.Lane() != beatmap.LaneDrum {
		t.Errorf("lane = %s", p.Lane())
	}
	if p.Step() != 1 {
		t.Errorf("step = %v, want 1", p.Step())
	}
	if got := p.String(); got != "oxox" {
		t.Errorf("pattern = %q, want \"oxox\"", got)
	}
	if got := p.OriginalString(); got != "oxox" {
		t.Errorf("original = %q, want \"oxox\"", got)
	}
}

func TestEditOperations(t *testing.T) {
	selected := []*beatmap.Note{mustNote(t, 0, beatmap.LevelEasy, beatmap.LaneDrum)}
	p, err := Build(selected, []float64{0, 1, 2})
	if err != nil {
		t.Fatal(err)
	}

	p.Toggle(1)
	if p.String() != "oox" {
		t.Errorf("after toggle: %q", p.String())
	}
	p.Toggle(-1)
	p.Toggle(99)
	if p.String() != "oox" {
		t.Error("out-of-range Toggle changed the pattern")
	}

	p.AllOn()
	if p.String() != "ooo" {
		t.Errorf("after AllOn: %q", p.String())
	}
	p.AllOff()
	if p.String() != "xxx" {
		t.Errorf("after AllOff: %q", p.String())
	}
	p.Invert()
	if p.String() != "ooo" {
		t.Errorf("after Invert: %q", p.String())
	}
	p.Reset()
	if p.String() != "oxx" {
		t.Errorf("after Reset: %q", p.String())
	}
	if p.OriginalString() != "oxx" {
		t.Error("editing changed the original pattern")
	}
}

func TestDiff(t *testing.T) {
	selected := []*beatmap.Note{
		mustNote(t, 0, beatmap.LevelMedium, beatmap.LaneDrum),
		mustNote(t, 1, beatmap.LevelMedium, beatmap.LaneDrum),
	}
	p, err := Build(selected, []float64{0, 1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}

	// "ooxx" -> turn slot 1 off, slot 3 on.
	p.Toggle(1)
	p.Toggle(3)

	add, remove := p.Diff()
	if len(add) != 1 || add[0].Time != 3 {
		t.Fatalf("add = %v", add)
	}
	if add[0].Level != beatmap.LevelMedium || add[0].Lane != beatmap.LaneDrum {
		t.Error("added note does not inherit level and lane")
	}
	if len(remove) != 1 || remove[0].Time != 1 {
		t.Fatalf("remove = %v", remove)
	}
}

// Builds a beatmap with drum markers at the given times over an 8s song and a
// 1s grid, with a selection pattern "oxox" at 0..3.
func applyToAllFixture(t *testing.T, extraTimes []float64) (*beatmap.Beatmap, *Pattern) {
	t.Helper()
	b := beatmap.New()
	b.Meta.BPM = 60
	b.Meta.TotalDuration = 8

	selected := []*beatmap.Note{
		mustNote(t, 0, beatmap.LevelEasy, beatmap.LaneDrum),
		mustNote(t, 2, beatmap.LevelEasy, beatmap.LaneDrum),
	}
	for _, n := range selected {
		b.AddNote(n)
	}
	for _, tm := range extraTimes {
		b.AddNote(mustNote(t, tm, beatmap.LevelEasy, beatmap.LaneDrum))
	}

	p, err := Build(selected, []float64{0, 1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	return b, p
}

func TestApplyToAllReplicates(t *testing.T) {
	// Original "oxox" also occurs at 4..7.
	b, p := applyToAllFixture(t, []float64{4, 6})

	// Edit to "ooox": add a marker at slot 1.
	p.Toggle(1)

	res := p.ApplyToAll(b, 8)
	if res.Matches != 1 {
		t.Fatalf("matches = %d, want 1", res.Matches)
	}
	// One add in the selection (t=1) and one in the match window (t=5).
	addTimes := map[float64]bool{}
	for _, n := range res.Add {
		addTimes[n.Time] = true
	}
	if len(res.Add) != 2 || !addTimes[1] || !addTimes[5] {
		t.Errorf("add times = %v, want {1, 5}", addTimes)
	}
	if len(res.Remove) != 0 {
		t.Errorf("remove = %v, want none", res.Remove)
	}
}

func TestApplyToAllNoMatches(t *testing.T) {
	// Markers at 4 and 5 form "oo", not the original "oxox".
	b, p := applyToAllFixture(t, []float64{4, 5})
	p.Toggle(1)

	res := p.ApplyToAll(b, 8)
	if res.Matches != 0 {
		t.Fatalf("matches = %d, want 0", res.Matches)
	}
	if len(res.Add) != 1 || res.Add[0].Time != 1 {
		t.Errorf("add = %v, want only the selection's own diff", res.Add)
	}
}

func TestApplyToAllLaneScoped(t *testing.T) {
	// A matching shape in another lane must not count.
	b, p := applyToAllFixture(t, nil)
	b.AddNote(mustNote(t, 4, beatmap.LevelEasy, beatmap.LaneBass))
	b.AddNote(mustNote(t, 6, beatmap.LevelEasy, beatmap.LaneBass))
	p.Toggle(1)

	res := p.ApplyToAll(b, 8)
	if res.Matches != 0 {
		t.Errorf("matches = %d, want 0 (other lane)", res.Matches)
	}
}

func TestApplyToAllRemoval(t *testing.T) {
	b, p := applyToAllFixture(t, []float64{4, 6})

	// Edit to "xxox": drop the first marker.
	p.Toggle(0)

	res := p.ApplyToAll(b, 8)
	if res.Matches != 1 {
		t.Fatalf("matches = %d, want 1", res.Matches)
	}
	removeTimes := map[float64]bool{}
	for _, n := range res.Remove {
		removeTimes[n.Time] = true
	}
	if len(res.Remove) != 2 || !removeTimes[0] || !removeTimes[4] {
		t.Errorf("remove times = %v, want {0, 4}", removeTimes)
	}
}

func TestApplyToAllSingleSlotFallsBack(t *testing.T) {
	b := beatmap.New()
	b.Meta.TotalDuration = 8
	n := mustNote(t, 0, beatmap.LevelEasy, beatmap.LaneDrum)
	b.AddNote(n)
	b.AddNote(mustNote(t, 4, beatmap.LevelEasy, beatmap.LaneDrum))

	p, err := Build([]*beatmap.Note{n}, []float64{0})
	if err != nil {
		t.Fatal(err)
	}
	p.Toggle(0)

	res := p.ApplyToAll(b, 8)
	if res.Matches != 0 {
		t.Errorf("matches = %d, want 0 for single-slot pattern", res.Matches)
	}
	if len(res.Remove) != 1 || res.Remove[0].Time != 0 {
		t.Errorf("remove = %v, want only the selection's own diff", res.Remove)
	}
}
