package grid

import (
	"math"
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name        string
		bpm         float64
		duration    float64
		subdivision int
		wantCount   int
	}{
		{"quarter notes at 120", 120, 10, SubdivisionQuarter, 80},
		{"whole beats at 120", 120, 10, 1, 20},
		{"sixteenths at 120", 120, 1, SubdivisionSixteenth, 32},
		{"half beats at 60", 60, 4, SubdivisionHalf, 8},
		{"zero bpm", 0, 10, SubdivisionQuarter, 0},
		{"negative bpm", -120, 10, SubdivisionQuarter, 0},
		{"zero duration", 120, 0, SubdivisionQuarter, 0},
		{"zero subdivision", 120, 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.bpm, tt.duration, tt.subdivision)
			if len(got) != tt.wantCount {
				t.Fatalf("Generate() returned %d positions, want %d", len(got), tt.wantCount)
			}
		})
	}
}

func TestGenerateOrdering(t *testing.T) {
	g := Generate(97.3, 33.7, SubdivisionSixteenth)
	if len(g) == 0 {
		t.Fatal("expected grid positions")
	}
	if g[0] != 0 {
		t.Errorf("first position = %v, want 0", g[0])
	}
	for i := 1; i < len(g); i++ {
		if g[i] <= g[i-1] {
			t.Fatalf("grid not strictly ascending at %d: %v <= %v", i, g[i], g[i-1])
		}
	}
	if last := g[len(g)-1]; last >= 33.7 {
		t.Errorf("last position %v not below duration", last)
	}
}

func TestSnap(t *testing.T) {
	g := []float64{0, 0.5, 1.0, 1.5, 2.0}

	tests := []struct {
		name string
		time float64
		want float64
	}{
		{"exact position", 1.0, 1.0},
		{"nearest below", 0.6, 0.5},
		{"nearest above", 0.9, 1.0},
		{"midpoint ties to lower index", 0.75, 0.5},
		{"before grid", -1, 0},
		{"after grid", 5, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Snap(tt.time, g); got != tt.want {
				t.Errorf("Snap(%v) = %v, want %v", tt.time, got, tt.want)
			}
		})
	}
}

func TestSnapEmptyGrid(t *testing.T) {
	if got := Snap(1.234, nil); got != 1.234 {
		t.Errorf("Snap on empty grid = %v, want input unchanged", got)
	}
}

func TestSnapIdempotent(t *testing.T) {
	g := Generate(120, 10, SubdivisionQuarter)
	for _, in := range []float64{0.1, 1.26, 4.99, 9.9} {
		once := Snap(in, g)
		twice := Snap(once, g)
		if once != twice {
			t.Errorf("Snap(Snap(%v)) = %v, want %v", in, twice, once)
		}
	}
}

func TestStep(t *testing.T) {
	tests := []struct {
		name        string
		bpm         float64
		subdivision int
		want        float64
	}{
		{"quarter at 120", 120, SubdivisionQuarter, 0.125},
		{"whole beat at 120", 120, 1, 0.5},
		{"sixteenth at 60", 60, SubdivisionSixteenth, 0.0625},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Step(tt.bpm, tt.subdivision); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Step() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBeatNumber(t *testing.T) {
	// 120 BPM: one beat every 0.5s, one sixteenth every 0.03125s.
	tests := []struct {
		time     float64
		wantBeat int
		wantSub  int
	}{
		{0, 0, 0},
		{0.03125, 0, 1},
		{0.5, 1, 0},
		{2.0, 4, 0},
		{2.25, 4, 8},
	}

	for _, tt := range tests {
		beat, sub := BeatNumber(tt.time, 120)
		if beat != tt.wantBeat || sub != tt.wantSub {
			t.Errorf("BeatNumber(%v) = (%d, %d), want (%d, %d)", tt.time, beat, sub, tt.wantBeat, tt.wantSub)
		}
	}
}
