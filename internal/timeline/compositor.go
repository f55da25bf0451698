// Package timeline converts millisecond-based track items into frame-exact
// render instructions shared by the live preview and the offline renderer.
package timeline

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/balintmendlik/cutroom/internal/metrics"
)

// PlanEntry is one frame-converted, validated item in the render plan. It is
// derived, never stored.
type PlanEntry struct {
	Item             Item
	FromFrame        int
	DurationInFrames int
}

// Validate checks an item for the structural requirements every consumer
// relies on. Failures drop the item, they never abort a plan build.
func Validate(it Item) error {
	if it.ID == "" {
		return ErrMissingID
	}
	if !it.Type.Known() {
		return ErrUnknownType
	}
	if !it.Display.Valid() {
		return ErrInvalidDisplay
	}
	return nil
}

// BuildPlan projects items into an ordered render plan: invalid items are
// dropped with a warning, survivors are stably sorted by type priority and
// converted to frame-domain placement. The projection is pure; identical
// input yields identical output in the editor and the offline renderer.
func BuildPlan(items []Item, fps int, logger zerolog.Logger) []PlanEntry {
	valid := make([]Item, 0, len(items))
	for _, it := range items {
		if err := Validate(it); err != nil {
			logger.Warn().
				Str("event", "plan.item_dropped").
				Str("item_id", it.ID).
				Str("item_type", string(it.Type)).
				Err(err).
				Msg("dropping invalid track item")
			metrics.IncItemDropped(dropReason(err))
			continue
		}
		valid = append(valid, it)
	}

	// Stable sort: ties keep original relative order, which is part of the
	// plan contract, not an implementation detail.
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Type.Priority() < valid[j].Type.Priority()
	})

	plan := make([]PlanEntry, 0, len(valid))
	for _, it := range valid {
		fromFrame := FrameAt(it.Display.From, fps)
		duration := FrameAt(it.Display.To, fps) - fromFrame
		if duration <= 0 {
			// Truncation can collapse sub-frame durations even after
			// validation passed in the millisecond domain.
			logger.Warn().
				Str("event", "plan.item_dropped").
				Str("item_id", it.ID).
				Str("reason", "zero_duration").
				Msg("dropping item with non-positive frame duration")
			metrics.IncItemDropped("zero_duration")
			continue
		}
		plan = append(plan, PlanEntry{
			Item:             it,
			FromFrame:        fromFrame,
			DurationInFrames: duration,
		})
	}
	metrics.ObservePlanBuild(len(plan))
	return plan
}

func dropReason(err error) string {
	switch err {
	case ErrMissingID:
		return "missing_id"
	case ErrUnknownType:
		return "unknown_type"
	case ErrInvalidDisplay:
		return "invalid_display"
	default:
		return "invalid"
	}
}
