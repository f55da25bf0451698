package timeline

// Milliseconds is a point or span on the master timeline, measured from zero.
type Milliseconds int64

// TimeRange is the window on the master timeline during which an item is
// visible or audible.
type TimeRange struct {
	From Milliseconds `json:"from"`
	To   Milliseconds `json:"to"`
}

// Duration returns the length of the range.
func (r TimeRange) Duration() Milliseconds {
	return r.To - r.From
}

// Valid reports whether the range is well-formed (To > From >= 0).
func (r TimeRange) Valid() bool {
	return r.From >= 0 && r.To > r.From
}

// Trim selects which portion of the source media plays, independent of where
// the item sits on the master timeline. Nil bounds mean "unset".
type Trim struct {
	From *Milliseconds `json:"from,omitempty"`
	To   *Milliseconds `json:"to,omitempty"`
}

// FrameAt converts a millisecond offset to a frame index at the given fps.
// Frame math always truncates; rounding would introduce gaps or overlaps
// between neighboring items.
func FrameAt(ms Milliseconds, fps int) int {
	if ms <= 0 {
		return 0
	}
	return int(int64(ms) * int64(fps) / 1000)
}

// SourceWindow computes the frame-domain playback window within the source
// media. When trim has either bound set, the window follows the trim; when
// trim is absent entirely, the source plays from frame 0 for exactly the
// display duration, so an untrimmed clip never outlives its visible slot.
// bounded is false when playback runs to the natural end of the source.
func SourceWindow(display TimeRange, trim *Trim, fps int) (startFromFrame, endAtFrame int, bounded bool) {
	if trim != nil && (trim.From != nil || trim.To != nil) {
		if trim.From != nil {
			startFromFrame = FrameAt(*trim.From, fps)
		}
		if trim.To != nil {
			return startFromFrame, FrameAt(*trim.To, fps), true
		}
		return startFromFrame, 0, false
	}
	return 0, FrameAt(display.Duration(), fps), true
}
