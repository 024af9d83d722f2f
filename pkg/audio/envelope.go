// Package audio models the precomputed amplitude envelopes the editor
// consumes: per-track min/max/RMS arrays spanning a known duration. Decoding
// and playback live outside this module; envelopes arrive as plain data.
package audio

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/soundfold/beatsmith/pkg/beatmap"
)

// Track names for the separated stems plus the main mix.
const (
	TrackMain   = "main"
	TrackDrums  = "drums"
	TrackBass   = "bass"
	TrackVocals = "vocals"
	TrackOther  = "other"
)

// Tracks lists all track names in display order.
var Tracks = []string{TrackMain, TrackDrums, TrackBass, TrackVocals, TrackOther}

// laneToTrack maps beatmap lanes to envelope tracks; the base lane follows
// the main mix.
var laneToTrack = map[beatmap.Lane]string{
	beatmap.LaneBase:  TrackMain,
	beatmap.LaneDrum:  TrackDrums,
	beatmap.LaneBass:  TrackBass,
	beatmap.LaneVocal: TrackVocals,
	beatmap.LaneLead:  TrackOther,
}

var trackToLane = map[string]beatmap.Lane{
	TrackMain:   beatmap.LaneBase,
	TrackDrums:  beatmap.LaneDrum,
	TrackBass:   beatmap.LaneBass,
	TrackVocals: beatmap.LaneVocal,
	TrackOther:  beatmap.LaneLead,
}

// TrackForLane returns the envelope track backing a lane.
func TrackForLane(lane beatmap.Lane) string {
	if t, ok := laneToTrack[lane]; ok {
		return t
	}
	return TrackMain
}

// LaneForTrack returns the lane a track's peaks feed into.
func LaneForTrack(track string) beatmap.Lane {
	if l, ok := trackToLane[track]; ok {
		return l
	}
	return beatmap.LaneBase
}

// Envelope is a downsampled amplitude envelope: one min/max/RMS triple per
// fixed-width time slice.
type Envelope struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
	RMS []float64 `json:"rms"`
}

// DefaultEnvelopeSamples is the target envelope resolution.
const DefaultEnvelopeSamples = 8000

// BuildEnvelope downsamples normalized mono samples into an envelope of about
// targetSamples slices.
func BuildEnvelope(samples []float64, targetSamples int) *Envelope {
	if targetSamples < 1 {
		targetSamples = DefaultEnvelopeSamples
	}

	// Normalize to peak amplitude 1.
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	norm := samples
	if peak > 0 {
		norm = make([]float64, len(samples))
		for i, s := range samples {
			norm[i] = s / peak
		}
	}

	chunk := len(norm) / targetSamples
	if chunk < 1 {
		chunk = 1
	}

	env := &Envelope{}
	for i := 0; i < len(norm); i += chunk {
		end := i + chunk
		if end > len(norm) {
			end = len(norm)
		}
		lo, hi, sum := norm[i], norm[i], 0.0
		for _, s := range norm[i:end] {
			if s < lo {
				lo = s
			}
			if s > hi {
				hi = s
			}
			sum += s * s
		}
		env.Min = append(env.Min, lo)
		env.Max = append(env.Max, hi)
		env.RMS = append(env.RMS, math.Sqrt(sum/float64(end-i)))
	}
	return env
}

// Analysis is the envelope-file shape exchanged with the analysis tooling:
// one envelope per track plus the duration they span.
type Analysis struct {
	Duration  float64              `json:"duration"`
	Envelopes map[string]*Envelope `json:"envelopes"`
}

// LoadAnalysis reads an analysis file.
func LoadAnalysis(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis file: %w", err)
	}
	var a Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse analysis file: %w", err)
	}
	return &a, nil
}

// Save writes the analysis to a JSON file.
func (a *Analysis) Save(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RMSFor returns the RMS envelope for a track, or nil when absent.
func (a *Analysis) RMSFor(track string) []float64 {
	if env, ok := a.Envelopes[track]; ok && env != nil {
		return env.RMS
	}
	return nil
}
