package timeline

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Background is the composition backdrop, either a solid color or an image.
type Background struct {
	Type  string `json:"type"` // "color" or "image"
	Value string `json:"value"`
}

// DefaultBackground is used when a project does not set one.
var DefaultBackground = Background{Type: "color", Value: "transparent"}

// Project is the serialized editor document: the track-item list plus the
// output geometry. This JSON shape is the only persisted state.
type Project struct {
	ID                string     `json:"id"`
	Items             []Item     `json:"trackItems"`
	Background        Background `json:"background"`
	VideoWidth        int        `json:"videoWidth"`
	VideoHeight       int        `json:"videoHeight"`
	FPS               int        `json:"fps"`
	DurationInSeconds float64    `json:"durationInSeconds"`
}

// NewProject creates an empty project with defaults matching the editor.
func NewProject() Project {
	return Project{
		ID:                uuid.NewString(),
		Background:        DefaultBackground,
		VideoWidth:        1080,
		VideoHeight:       1920,
		FPS:               30,
		DurationInSeconds: 10,
	}
}

// projectWire decodes items as raw messages so one malformed item does not
// reject the whole document.
type projectWire struct {
	ID                string            `json:"id"`
	Items             []json.RawMessage `json:"trackItems"`
	Background        *Background       `json:"background"`
	VideoWidth        int               `json:"videoWidth"`
	VideoHeight       int               `json:"videoHeight"`
	FPS               int               `json:"fps"`
	DurationInSeconds float64           `json:"durationInSeconds"`
}

// DecodeProject parses a project document. Items that fail to decode are
// dropped with a warning; external ingestion routinely produces a few
// malformed entries and they must never reject the document.
func DecodeProject(data []byte, logger zerolog.Logger) (Project, error) {
	var w projectWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Project{}, fmt.Errorf("decode project: %w", err)
	}

	p := NewProject()
	if w.ID != "" {
		p.ID = w.ID
	}
	if w.Background != nil {
		p.Background = *w.Background
	}
	if w.VideoWidth > 0 {
		p.VideoWidth = w.VideoWidth
	}
	if w.VideoHeight > 0 {
		p.VideoHeight = w.VideoHeight
	}
	if w.FPS > 0 {
		p.FPS = w.FPS
	}
	if w.DurationInSeconds > 0 {
		p.DurationInSeconds = w.DurationInSeconds
	}

	p.Items = make([]Item, 0, len(w.Items))
	for i, raw := range w.Items {
		var it Item
		if err := json.Unmarshal(raw, &it); err != nil {
			logger.Warn().
				Str("event", "project.item_dropped").
				Int("index", i).
				Err(err).
				Msg("dropping undecodable track item")
			continue
		}
		p.Items = append(p.Items, it)
	}
	return p, nil
}
