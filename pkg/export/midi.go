// Package export renders beatmaps into other formats, currently Standard
// MIDI Files for auditioning a map in a DAW.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/soundfold/beatsmith/pkg/beatmap"
)

// MIDIExporter turns a beatmap into a single-track SMF on the percussion
// channel, one drum voice per lane.
type MIDIExporter struct {
	ticksPerQuarter uint16
	noteTicks       uint32
}

// NewMIDIExporter creates an exporter with the default resolution.
func NewMIDIExporter() *MIDIExporter {
	return &MIDIExporter{
		ticksPerQuarter: 480,
		noteTicks:       120,
	}
}

// General MIDI percussion keys, one per lane.
var laneKeys = map[beatmap.Lane]uint8{
	beatmap.LaneBase:  36, // bass drum
	beatmap.LaneDrum:  38, // acoustic snare
	beatmap.LaneBass:  45, // low tom
	beatmap.LaneVocal: 46, // open hi-hat
	beatmap.LaneLead:  49, // crash cymbal
}

// Velocity per difficulty level.
var levelVelocities = map[int]uint8{
	beatmap.LevelEasy:   80,
	beatmap.LevelMedium: 100,
	beatmap.LevelHard:   127,
}

// Generate creates MIDI data from a beatmap. Notes land on channel 10 at
// their absolute times converted to ticks at the beatmap's tempo.
func (m *MIDIExporter) Generate(b *beatmap.Beatmap) ([]byte, error) {
	if b == nil {
		return nil, errors.New("nil beatmap")
	}
	tempo := b.Meta.BPM
	if tempo <= 0 {
		tempo = 120.0
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(m.ticksPerQuarter)

	var track smf.Track

	// Tempo meta event (FF 51 03).
	microsecondsPerBeat := uint32(60000000.0 / tempo)
	track.Add(0, smf.Message([]byte{
		0xFF, 0x51, 0x03,
		byte(microsecondsPerBeat >> 16),
		byte(microsecondsPerBeat >> 8),
		byte(microsecondsPerBeat),
	}))

	// Time signature 4/4.
	track.Add(0, smf.Message([]byte{0xFF, 0x58, 0x04, 0x04, 0x02, 0x18, 0x08}))

	ticksPerSecond := tempo / 60.0 * float64(m.ticksPerQuarter)

	// Flatten notes into on/off events at absolute ticks, then emit with
	// deltas. Each marker becomes a short percussion hit.
	type event struct {
		tick uint32
		msg  smf.Message
	}
	channel := uint8(9)
	var events []event
	for _, n := range b.Notes() {
		key, ok := laneKeys[n.Lane]
		if !ok {
			continue
		}
		velocity, ok := levelVelocities[n.Level]
		if !ok {
			velocity = 100
		}
		tick := uint32(n.Time * ticksPerSecond)
		events = append(events, event{tick, smf.Message(midi.NoteOn(channel, key, velocity))})
		events = append(events, event{tick + m.noteTicks, smf.Message(midi.NoteOff(channel, key))})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].tick < events[j].tick })

	var currentTick uint32
	for _, ev := range events {
		track.Add(ev.tick-currentTick, ev.msg)
		currentTick = ev.tick
	}

	// Pad to the full song duration so the file length matches the audio.
	if d := b.Meta.TotalDuration; d > 0 {
		if totalTicks := uint32(d * ticksPerSecond); currentTick < totalTicks {
			track.Add(totalTicks-currentTick, smf.Message([]byte{0xFF, 0x06, 0x00}))
		}
	}

	track.Close(0)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile generates MIDI data and writes it to a file.
func (m *MIDIExporter) WriteFile(b *beatmap.Beatmap, filename string) error {
	data, err := m.Generate(b)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
