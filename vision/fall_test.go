package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(x1, y1, x2, y2 int) Detection {
	return Detection{
		Class:      "person",
		Confidence: 0.9,
		X1:         x1,
		Y1:         y1,
		X2:         x2,
		Y2:         y2,
	}
}

func TestClassifyFallTable(t *testing.T) {
	const frameW, frameH = 640, 480

	tests := []struct {
		name   string
		det    Detection
		isFall bool
	}{
		{
			// aspect 0.67 and low in frame, but height 40 covers too little
			name:   "flat and low but too small",
			det:    box(100, 300, 160, 340),
			isFall: false,
		},
		{
			// tall and low, aspect 4.0 fails the lying-flat test
			name:   "tall standing person",
			det:    box(100, 250, 150, 450),
			isFall: false,
		},
		{
			// aspect 0.5, low, but height 100 <= 144
			name:   "wide but shallow",
			det:    box(100, 350, 300, 450),
			isFall: false,
		},
		{
			// height 200 > 144 but aspect 1.0 fails
			name:   "square box",
			det:    box(100, 250, 300, 450),
			isFall: false,
		},
		{
			// aspect 0.67, center 400 > 288, height 200 > 144
			name:   "lying flat low and large",
			det:    box(100, 250, 400, 450),
			isFall: true,
		},
		{
			name:   "zero width skipped",
			det:    box(100, 250, 100, 450),
			isFall: false,
		},
		{
			name:   "negative width skipped",
			det:    box(100, 250, 50, 450),
			isFall: false,
		},
		{
			// flat and large but high in the frame
			name:   "lying flat but high",
			det:    box(100, 10, 400, 210),
			isFall: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := ClassifyFall([]Detection{tt.det}, frameW, frameH)
			assert.Equal(t, tt.isFall, verdict.IsFall)
			if tt.isFall {
				require.NotNil(t, verdict.Box)
			} else {
				assert.Nil(t, verdict.Box)
			}
		})
	}
}

func TestClassifyFallOffendingBoxIsInput(t *testing.T) {
	detections := []Detection{
		box(100, 250, 150, 450),  // standing
		box(100, 250, 400, 450),  // fallen
		box(50, 250, 500, 450),   // also fallen, must not win
	}

	verdict := ClassifyFall(detections, 640, 480)

	require.True(t, verdict.IsFall)
	require.NotNil(t, verdict.Box)

	// first qualifying match wins and the box aliases the input slice
	assert.Same(t, &detections[1], verdict.Box)
}

func TestClassifyFallEmpty(t *testing.T) {
	verdict := ClassifyFall(nil, 640, 480)
	assert.False(t, verdict.IsFall)
	assert.Nil(t, verdict.Box)
}

func TestClassifyFallPure(t *testing.T) {
	detections := []Detection{
		box(100, 250, 400, 450),
		box(100, 250, 150, 450),
	}

	first := ClassifyFall(detections, 640, 480)
	for i := 0; i < 10; i++ {
		again := ClassifyFall(detections, 640, 480)
		assert.Equal(t, first.IsFall, again.IsFall)
		assert.Equal(t, first.Box, again.Box)
	}
}

func TestClassifyFallSkipsMalformedAndContinues(t *testing.T) {
	detections := []Detection{
		box(200, 250, 100, 450), // negative width, skipped silently
		box(100, 250, 400, 450), // qualifying
	}

	verdict := ClassifyFall(detections, 640, 480)
	require.True(t, verdict.IsFall)
	assert.Same(t, &detections[1], verdict.Box)
}
