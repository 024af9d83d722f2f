// Package peaks detects energy peaks in RMS envelopes using a two-threshold
// hysteresis scheme, so a sustained loud passage yields a single peak until
// the signal dips below the re-arm threshold.
package peaks

// Detection defaults.
const (
	DefaultThresholdPercent = 50.0
	DefaultRearmRatio       = 0.7
	MinPeakGapSeconds       = 0.05
)

// Settings configures peak detection for a single track.
type Settings struct {
	Enabled               bool
	ThresholdPercent      float64
	RearmThresholdPercent float64
	// Linked keeps the rearm threshold at DefaultRearmRatio of the main
	// threshold whenever the main threshold changes.
	Linked bool
}

// NewSettings returns detection settings with defaults.
func NewSettings() Settings {
	return Settings{
		ThresholdPercent:      DefaultThresholdPercent,
		RearmThresholdPercent: DefaultThresholdPercent * DefaultRearmRatio,
		Linked:                true,
	}
}

// SetThreshold updates the main threshold, dragging the rearm threshold along
// when linked.
func (s *Settings) SetThreshold(percent float64) {
	s.ThresholdPercent = percent
	if s.Linked {
		s.RearmThresholdPercent = percent * DefaultRearmRatio
	}
}

// State holds per-track detection settings and cached results. It is rebuilt
// from audio analysis each session, never persisted.
type State struct {
	Settings map[string]*Settings
	Peaks    map[string][]float64
}

// NewState returns state with default settings for the given track names.
func NewState(tracks []string) *State {
	st := &State{
		Settings: make(map[string]*Settings, len(tracks)),
		Peaks:    make(map[string][]float64, len(tracks)),
	}
	for _, name := range tracks {
		s := NewSettings()
		st.Settings[name] = &s
		st.Peaks[name] = nil
	}
	return st
}

// Detect scans an RMS envelope and returns peak times in seconds, strictly
// ascending and never closer together than minGap.
//
// Thresholds are percentages of the envelope's dynamic range: a sample at or
// above the main threshold starts a peak region, the region's local maximum
// is the candidate peak, and detection re-arms only once a sample falls below
// the rearm threshold. rearmPercent < 0 selects the default (70% of
// thresholdPercent). A flat or empty envelope yields no peaks.
func Detect(envelope []float64, duration, thresholdPercent, rearmPercent, minGap float64) []float64 {
	n := len(envelope)
	if n == 0 || duration <= 0 {
		return nil
	}

	lo, hi := envelope[0], envelope[0]
	for _, v := range envelope[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi-lo <= 0 {
		return nil
	}

	if rearmPercent < 0 {
		rearmPercent = thresholdPercent * DefaultRearmRatio
	}
	threshold := lo + (hi-lo)*thresholdPercent/100.0
	rearmThreshold := lo + (hi-lo)*rearmPercent/100.0

	samplesPerSecond := float64(n) / duration
	minGapSamples := int(minGap * samplesPerSecond)

	var peaks []float64
	armed := true
	lastPeak := -minGapSamples

	i := 0
	for i < n {
		v := envelope[i]
		if armed {
			if v >= threshold {
				// Walk the region above threshold, tracking its maximum.
				peakVal, peakIdx := v, i
				j := i + 1
				for j < n && envelope[j] >= threshold {
					if envelope[j] > peakVal {
						peakVal = envelope[j]
						peakIdx = j
					}
					j++
				}
				if peakIdx-lastPeak >= minGapSamples {
					peaks = append(peaks, float64(peakIdx)/float64(n)*duration)
					lastPeak = peakIdx
				}
				armed = false
				i = j
				continue
			}
		} else if v < rearmThreshold {
			armed = true
		}
		i++
	}
	return peaks
}

// DetectWithSettings runs Detect using per-track settings and the default
// minimum gap.
func DetectWithSettings(envelope []float64, duration float64, s Settings) []float64 {
	return Detect(envelope, duration, s.ThresholdPercent, s.RearmThresholdPercent, MinPeakGapSeconds)
}
