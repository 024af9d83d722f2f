// Package grid generates beat-quantization grids and snaps times to them.
package grid

import "math"

// Common subdivisions per beat.
const (
	SubdivisionHalf      = 2
	SubdivisionQuarter   = 4
	SubdivisionEighth    = 8
	SubdivisionSixteenth = 16
)

// Generate returns ordered grid timestamps at the given subdivision: one
// timestamp per step of 60/bpm/subdivision seconds, covering [0, duration).
func Generate(bpm, duration float64, subdivision int) []float64 {
	if bpm <= 0 || duration <= 0 || subdivision < 1 {
		return nil
	}
	beatDuration := 60.0 / bpm
	step := beatDuration / float64(subdivision)

	n := int(math.Ceil(duration / step))
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		t := float64(i) * step
		if t < duration {
			out = append(out, t)
		}
	}
	return out
}

// Snap returns the grid element nearest to time. Ties resolve to the lower
// index. An empty grid leaves the time unchanged.
func Snap(time float64, grid []float64) float64 {
	if len(grid) == 0 {
		return time
	}
	best := grid[0]
	bestDist := math.Abs(grid[0] - time)
	for _, g := range grid[1:] {
		d := math.Abs(g - time)
		if d < bestDist {
			best = g
			bestDist = d
		}
	}
	return best
}

// Step returns the duration of one grid step at the given subdivision.
func Step(bpm float64, subdivision int) float64 {
	return 60.0 / bpm / float64(subdivision)
}

// TimeToIndex converts a time to the nearest grid index.
func TimeToIndex(time, bpm float64, subdivision int) int {
	return int(math.Round(time / Step(bpm, subdivision)))
}

// IndexToTime converts a grid index back to a time in seconds.
func IndexToTime(index int, bpm float64, subdivision int) float64 {
	return float64(index) * Step(bpm, subdivision)
}

// BeatNumber returns the beat and the sixteenth-subdivision within that beat
// for a given time.
func BeatNumber(time, bpm float64) (beat, sub int) {
	total := int(math.Round(time / Step(bpm, SubdivisionSixteenth)))
	return total / SubdivisionSixteenth, total % SubdivisionSixteenth
}
