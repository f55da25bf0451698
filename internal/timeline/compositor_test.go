package timeline

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func video(id string, from, to Milliseconds) Item {
	return Item{
		ID:      id,
		Type:    TypeVideo,
		Display: TimeRange{From: from, To: to},
		Details: VideoDetails{Src: "https://cdn.example.com/" + id + ".mp4", Width: 1920, Height: 1080},
	}
}

func caption(id string, from, to Milliseconds) Item {
	return Item{
		ID:      id,
		Type:    TypeCaption,
		Display: TimeRange{From: from, To: to},
		Details: CaptionDetails{Words: []CaptionWord{{Word: "hi", Start: from, End: to}}},
	}
}

func TestBuildPlanEndToEnd(t *testing.T) {
	// Caption listed first on input; video must still come out first because
	// of its lower z-order.
	items := []Item{
		caption("b", 1000, 4000),
		video("a", 0, 5000),
	}

	plan := BuildPlan(items, 30, zerolog.Nop())
	require.Len(t, plan, 2)

	assert.Equal(t, "a", plan[0].Item.ID)
	assert.Equal(t, 0, plan[0].FromFrame)
	assert.Equal(t, 150, plan[0].DurationInFrames)

	start, end, bounded := SourceWindow(plan[0].Item.Display, plan[0].Item.Trim, 30)
	assert.Equal(t, 0, start)
	assert.Equal(t, 150, end)
	assert.True(t, bounded)

	assert.Equal(t, "b", plan[1].Item.ID)
	assert.Equal(t, 30, plan[1].FromFrame)
	assert.Equal(t, 90, plan[1].DurationInFrames)
}

func TestBuildPlanStableOrderWithinPriority(t *testing.T) {
	items := []Item{
		video("first", 0, 1000),
		video("second", 500, 1500),
		caption("cap", 0, 1000),
		video("third", 0, 2000),
	}

	plan := BuildPlan(items, 30, zerolog.Nop())
	require.Len(t, plan, 4)

	assert.Equal(t, "first", plan[0].Item.ID)
	assert.Equal(t, "second", plan[1].Item.ID)
	assert.Equal(t, "third", plan[2].Item.ID)
	assert.Equal(t, "cap", plan[3].Item.ID)
}

func TestBuildPlanDropsInvalidItems(t *testing.T) {
	items := []Item{
		video("", 0, 1000),                 // missing id
		{ID: "x", Type: "hologram", Display: TimeRange{To: 1000}}, // unknown type
		video("reversed", 2000, 1000),      // to <= from
		video("negative", -500, 1000),      // from < 0
		video("ok", 0, 1000),
	}

	plan := BuildPlan(items, 30, zerolog.Nop())
	require.Len(t, plan, 1)
	assert.Equal(t, "ok", plan[0].Item.ID)
}

func TestBuildPlanDropsSubFrameDurations(t *testing.T) {
	// 10ms at 30fps collapses to zero frames after truncation.
	items := []Item{video("blip", 100, 110)}

	plan := BuildPlan(items, 30, zerolog.Nop())
	assert.Empty(t, plan)
}

func TestBuildPlanDeterministic(t *testing.T) {
	items := []Item{
		caption("c1", 0, 3000),
		video("v1", 0, 4000),
		video("v2", 1000, 2000),
	}

	first := BuildPlan(items, 30, zerolog.Nop())
	second := BuildPlan(items, 30, zerolog.Nop())
	assert.Equal(t, first, second)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(Item{Type: TypeVideo, Display: TimeRange{To: 1}}), ErrMissingID)
	assert.ErrorIs(t, Validate(Item{ID: "a", Type: "blob", Display: TimeRange{To: 1}}), ErrUnknownType)
	assert.ErrorIs(t, Validate(Item{ID: "a", Type: TypeVideo}), ErrInvalidDisplay)
	assert.NoError(t, Validate(video("a", 0, 1000)))
}
