package beatmap

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// noteJSON is the on-disk shape of a note. The lane is written under the
// historical "type" key.
type noteJSON struct {
	Time  float64 `json:"time"`
	Level int     `json:"level"`
	Type  Lane    `json:"type"`
}

// metaJSON is the on-disk shape of the meta block. Title and category are
// omitted entirely when empty rather than written as empty strings.
type metaJSON struct {
	Version       string  `json:"version"`
	Filename      string  `json:"filename"`
	Title         string  `json:"title,omitempty"`
	Category      string  `json:"category,omitempty"`
	Priority      int     `json:"priority"`
	BPM           float64 `json:"bpm"`
	TotalDuration float64 `json:"total_duration"`
}

type beatmapJSON struct {
	Meta  metaJSON   `json:"meta"`
	Notes []noteJSON `json:"notes"`
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// MarshalJSON writes the documented beatmap file shape: note times rounded to
// three decimals, bpm and duration to one. Notes are written time-ascending.
func (b *Beatmap) MarshalJSON() ([]byte, error) {
	doc := beatmapJSON{
		Meta: metaJSON{
			Version:       b.Meta.Version,
			Filename:      b.Meta.Filename,
			Title:         b.Meta.Title,
			Category:      b.Meta.Category,
			Priority:      b.Meta.Priority,
			BPM:           round1(b.Meta.BPM),
			TotalDuration: round1(b.Meta.TotalDuration),
		},
		Notes: make([]noteJSON, 0, len(b.notes)),
	}
	if doc.Meta.Version == "" {
		doc.Meta.Version = Version
	}
	for _, n := range b.notes {
		doc.Notes = append(doc.Notes, noteJSON{
			Time:  RoundTime(n.Time),
			Level: n.Level,
			Type:  n.Lane,
		})
	}
	return json.Marshal(doc)
}

// UnmarshalJSON replaces the beatmap contents with the decoded document.
// Every note is validated; an out-of-range level or unknown lane fails the
// whole load. The result is clean (not dirty).
func (b *Beatmap) UnmarshalJSON(data []byte) error {
	var doc beatmapJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	meta := Meta{
		Version:       doc.Meta.Version,
		Filename:      doc.Meta.Filename,
		Title:         doc.Meta.Title,
		Category:      doc.Meta.Category,
		Priority:      doc.Meta.Priority,
		BPM:           doc.Meta.BPM,
		TotalDuration: doc.Meta.TotalDuration,
	}
	if meta.Version == "" {
		meta.Version = Version
	}
	notes := make([]*Note, 0, len(doc.Notes))
	for i, nj := range doc.Notes {
		n, err := NewNote(nj.Time, nj.Level, nj.Type)
		if err != nil {
			return fmt.Errorf("note %d: %w", i, err)
		}
		notes = append(notes, n)
	}
	b.Meta = meta
	b.notes = notes
	b.Sort()
	b.dirty = false
	return nil
}

// Save writes the beatmap to path as indented JSON and clears the dirty flag.
func (b *Beatmap) Save(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write beatmap: %w", err)
	}
	b.dirty = false
	return nil
}

// Load reads a beatmap from a JSON file.
func Load(path string) (*Beatmap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read beatmap: %w", err)
	}
	b := New()
	if err := json.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("failed to parse beatmap: %w", err)
	}
	return b, nil
}
