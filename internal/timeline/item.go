package timeline

import (
	"encoding/json"
	"fmt"
)

// ItemType discriminates the track item union.
type ItemType string

const (
	TypeVideo   ItemType = "video"
	TypeAudio   ItemType = "audio"
	TypeImage   ItemType = "image"
	TypeText    ItemType = "text"
	TypeCaption ItemType = "caption"
)

// zOrder is the fixed render priority per type: video/audio render beneath
// image, text and caption overlays. Unrecognized types sort last.
var zOrder = map[ItemType]int{
	TypeVideo:   0,
	TypeAudio:   0,
	TypeImage:   1,
	TypeText:    2,
	TypeCaption: 3,
}

const zOrderUnknown = 99

// Priority returns the z-order rank for the type.
func (t ItemType) Priority() int {
	if p, ok := zOrder[t]; ok {
		return p
	}
	return zOrderUnknown
}

// Known reports whether the type is part of the closed union.
func (t ItemType) Known() bool {
	_, ok := zOrder[t]
	return ok
}

// Crop is a rectangle within the source frame, in source pixels.
type Crop struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CaptionWord is a single transcribed word with absolute timing on the master
// timeline. Words need not be contiguous or ordered within a caption.
type CaptionWord struct {
	Word      string       `json:"word"`
	Start     Milliseconds `json:"start"`
	End       Milliseconds `json:"end"`
	IsKeyword bool         `json:"is_keyword,omitempty"`
}

// Details is the type-specific payload of an Item. Concrete types are
// VideoDetails, AudioDetails, ImageDetails, TextDetails and CaptionDetails.
type Details interface {
	isDetails()
}

// VideoDetails carries the source and layout of a video item.
type VideoDetails struct {
	Src      string  `json:"src"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Volume   float64 `json:"volume,omitempty"`
	X        int     `json:"x,omitempty"`
	Y        int     `json:"y,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`
	Crop     *Crop   `json:"crop,omitempty"`
}

// AudioDetails carries the source of an audio item.
type AudioDetails struct {
	Src    string  `json:"src"`
	Volume float64 `json:"volume,omitempty"`
}

// ImageDetails carries the source and layout of an image item.
type ImageDetails struct {
	Src      string  `json:"src"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	X        int     `json:"x,omitempty"`
	Y        int     `json:"y,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`
	Crop     *Crop   `json:"crop,omitempty"`
}

// TextDetails carries the content and typography of a text overlay.
type TextDetails struct {
	Text       string `json:"text"`
	FontSize   int    `json:"fontSize"`
	FontFamily string `json:"fontFamily"`
	FontURL    string `json:"fontUrl,omitempty"`
	Color      string `json:"color"`
	X          int    `json:"x,omitempty"`
	Y          int    `json:"y,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	TextAlign  string `json:"textAlign,omitempty"`
}

// CaptionDetails carries word-level timings and typography for burned-in
// captions.
type CaptionDetails struct {
	Words           []CaptionWord `json:"words"`
	FontSize        int           `json:"fontSize"`
	FontFamily      string        `json:"fontFamily"`
	FontURL         string        `json:"fontUrl,omitempty"`
	Color           string        `json:"color"`
	ActiveColor     string        `json:"activeColor,omitempty"`
	AppearedColor   string        `json:"appearedColor,omitempty"`
	BackgroundColor string        `json:"backgroundColor,omitempty"`
	TextAlign       string        `json:"textAlign,omitempty"`
	X               int           `json:"x,omitempty"`
	Y               int           `json:"y,omitempty"`
	Width           int           `json:"width,omitempty"`
	KeywordColor    string        `json:"isKeywordColor,omitempty"`
	LinesPerCaption int           `json:"linesPerCaption,omitempty"`
}

func (VideoDetails) isDetails()   {}
func (AudioDetails) isDetails()   {}
func (ImageDetails) isDetails()   {}
func (TextDetails) isDetails()    {}
func (CaptionDetails) isDetails() {}

// Item is one entry on the timeline. ID is unique within a project and Type
// is immutable after creation; edit operations replace Display, Trim and
// Details wholesale but never re-key the item.
type Item struct {
	ID           string
	Type         ItemType
	Display      TimeRange
	Trim         *Trim
	PlaybackRate float64
	Details      Details
}

// Source returns the media URL for types that carry one, or "" otherwise.
func (it Item) Source() string {
	switch d := it.Details.(type) {
	case VideoDetails:
		return d.Src
	case AudioDetails:
		return d.Src
	case ImageDetails:
		return d.Src
	default:
		return ""
	}
}

// HasAudio reports whether the item can contribute to the audio mix.
func (it Item) HasAudio() bool {
	switch it.Type {
	case TypeVideo, TypeAudio:
		return true
	default:
		return false
	}
}

// Rate returns the effective playback rate, defaulting to 1.0.
func (it Item) Rate() float64 {
	if it.PlaybackRate <= 0 {
		return 1.0
	}
	return it.PlaybackRate
}

// itemWire is the JSON shape of an item, mirroring the document the rendering
// engine consumes.
type itemWire struct {
	ID           string          `json:"id"`
	Type         ItemType        `json:"type"`
	Display      *TimeRange      `json:"display"`
	Trim         *Trim           `json:"trim,omitempty"`
	PlaybackRate float64         `json:"playbackRate,omitempty"`
	Details      json.RawMessage `json:"details"`
}

// MarshalJSON encodes the item with its type discriminant.
func (it Item) MarshalJSON() ([]byte, error) {
	details, err := json.Marshal(it.Details)
	if err != nil {
		return nil, fmt.Errorf("marshal %s details: %w", it.Type, err)
	}
	display := it.Display
	return json.Marshal(itemWire{
		ID:           it.ID,
		Type:         it.Type,
		Display:      &display,
		Trim:         it.Trim,
		PlaybackRate: it.PlaybackRate,
		Details:      details,
	})
}

// UnmarshalJSON decodes the item, selecting the concrete details type from
// the discriminant. Unrecognized types keep raw details untouched so the
// compositor can drop them explicitly.
func (it *Item) UnmarshalJSON(data []byte) error {
	var w itemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	it.ID = w.ID
	it.Type = w.Type
	it.Trim = w.Trim
	it.PlaybackRate = w.PlaybackRate
	if w.Display != nil {
		it.Display = *w.Display
	} else {
		it.Display = TimeRange{}
	}

	if len(w.Details) == 0 {
		it.Details = nil
		return nil
	}
	switch w.Type {
	case TypeVideo:
		var d VideoDetails
		if err := json.Unmarshal(w.Details, &d); err != nil {
			return fmt.Errorf("decode video details: %w", err)
		}
		it.Details = d
	case TypeAudio:
		var d AudioDetails
		if err := json.Unmarshal(w.Details, &d); err != nil {
			return fmt.Errorf("decode audio details: %w", err)
		}
		it.Details = d
	case TypeImage:
		var d ImageDetails
		if err := json.Unmarshal(w.Details, &d); err != nil {
			return fmt.Errorf("decode image details: %w", err)
		}
		it.Details = d
	case TypeText:
		var d TextDetails
		if err := json.Unmarshal(w.Details, &d); err != nil {
			return fmt.Errorf("decode text details: %w", err)
		}
		it.Details = d
	case TypeCaption:
		var d CaptionDetails
		if err := json.Unmarshal(w.Details, &d); err != nil {
			return fmt.Errorf("decode caption details: %w", err)
		}
		it.Details = d
	default:
		it.Details = nil
	}
	return nil
}
