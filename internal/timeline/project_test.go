package timeline

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemJSONRoundTrip(t *testing.T) {
	from := Milliseconds(500)
	item := Item{
		ID:           "clip-1",
		Type:         TypeVideo,
		Display:      TimeRange{From: 0, To: 5000},
		Trim:         &Trim{From: &from},
		PlaybackRate: 1.5,
		Details: VideoDetails{
			Src:    "https://cdn.example.com/clip.mp4",
			Width:  1920,
			Height: 1080,
			Crop:   &Crop{X: 10, Y: 20, Width: 640, Height: 360},
		},
	}

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var decoded Item
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, item, decoded)
}

func TestItemJSONDiscriminant(t *testing.T) {
	raw := `{
		"id": "cap-1",
		"type": "caption",
		"display": {"from": 1000, "to": 4000},
		"details": {
			"words": [{"word": "hello", "start": 1100, "end": 1400, "is_keyword": true}],
			"fontSize": 48,
			"fontFamily": "Inter",
			"color": "#ffffff"
		}
	}`

	var item Item
	require.NoError(t, json.Unmarshal([]byte(raw), &item))

	details, ok := item.Details.(CaptionDetails)
	require.True(t, ok, "expected caption details, got %T", item.Details)
	require.Len(t, details.Words, 1)
	assert.Equal(t, "hello", details.Words[0].Word)
	assert.Equal(t, Milliseconds(1100), details.Words[0].Start)
	assert.True(t, details.Words[0].IsKeyword)
}

func TestDecodeProjectDropsMalformedItems(t *testing.T) {
	raw := `{
		"id": "proj-1",
		"fps": 30,
		"trackItems": [
			{"id": "good", "type": "video", "display": {"from": 0, "to": 1000},
			 "details": {"src": "https://cdn.example.com/a.mp4", "width": 1, "height": 1}},
			{"id": "bad", "type": "video", "display": {"from": "zero", "to": 1000}, "details": {}}
		]
	}`

	p, err := DecodeProject([]byte(raw), zerolog.Nop())
	require.NoError(t, err)

	require.Len(t, p.Items, 1)
	assert.Equal(t, "good", p.Items[0].ID)
	assert.Equal(t, "proj-1", p.ID)
	assert.Equal(t, 30, p.FPS)
	assert.Equal(t, DefaultBackground, p.Background)
}

func TestDecodeProjectRejectsInvalidDocument(t *testing.T) {
	_, err := DecodeProject([]byte(`{"trackItems": "nope"`), zerolog.Nop())
	assert.Error(t, err)
}

func TestSourceByType(t *testing.T) {
	assert.Equal(t, "u", Item{Type: TypeAudio, Details: AudioDetails{Src: "u"}}.Source())
	assert.Equal(t, "", Item{Type: TypeText, Details: TextDetails{Text: "hi"}}.Source())
	assert.True(t, Item{Type: TypeVideo}.HasAudio())
	assert.False(t, Item{Type: TypeImage}.HasAudio())
}
