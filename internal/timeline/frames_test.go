package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ms(v Milliseconds) *Milliseconds { return &v }

func TestFrameAtTruncates(t *testing.T) {
	tests := []struct {
		name string
		ms   Milliseconds
		fps  int
		want int
	}{
		{"zero", 0, 30, 0},
		{"negative clamps to zero", -100, 30, 0},
		{"exact second", 1000, 30, 30},
		{"sub-frame truncates down", 1033, 30, 30},
		{"just below frame boundary", 999, 30, 29},
		{"60fps", 2500, 60, 150},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FrameAt(tc.ms, tc.fps))
		})
	}
}

func TestSourceWindowWithoutTrim(t *testing.T) {
	display := TimeRange{From: 2000, To: 7000}

	start, end, bounded := SourceWindow(display, nil, 30)

	// An untrimmed clip plays from source start for exactly its visible slot.
	assert.Equal(t, 0, start)
	assert.Equal(t, FrameAt(display.Duration(), 30), end)
	assert.Equal(t, 150, end)
	assert.True(t, bounded)
}

func TestSourceWindowEmptyTrimEqualsNoTrim(t *testing.T) {
	display := TimeRange{From: 0, To: 5000}

	start, end, bounded := SourceWindow(display, &Trim{}, 30)

	assert.Equal(t, 0, start)
	assert.Equal(t, 150, end)
	assert.True(t, bounded)
}

func TestSourceWindowWithBothTrimBounds(t *testing.T) {
	// Trim bounds are independent of display placement.
	display := TimeRange{From: 9000, To: 12000}
	trim := &Trim{From: ms(1500), To: ms(4500)}

	start, end, bounded := SourceWindow(display, trim, 30)

	assert.Equal(t, 45, start)
	assert.Equal(t, 135, end)
	assert.True(t, bounded)
}

func TestSourceWindowTrimFromOnlyIsUnbounded(t *testing.T) {
	display := TimeRange{From: 0, To: 3000}
	trim := &Trim{From: ms(2000)}

	start, _, bounded := SourceWindow(display, trim, 30)

	assert.Equal(t, 60, start)
	assert.False(t, bounded, "playback should run to the natural end of the source")
}

func TestSourceWindowTrimToOnly(t *testing.T) {
	display := TimeRange{From: 0, To: 3000}
	trim := &Trim{To: ms(2000)}

	start, end, bounded := SourceWindow(display, trim, 30)

	assert.Equal(t, 0, start)
	assert.Equal(t, 60, end)
	assert.True(t, bounded)
}

func TestRateDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1.0, Item{}.Rate())
	assert.Equal(t, 2.0, Item{PlaybackRate: 2.0}.Rate())
}
