package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 29.97002997002997},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
		{"abc", 0},
		{"30/0", 0},
		{"30/abc", 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, parseFrameRate(tt.in), 1e-9, "rate %q", tt.in)
	}
}

func TestRGBAFromRGB24(t *testing.T) {
	// 2x2 frame: red, green, blue, white
	data := []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 255, 255, 255,
	}

	img := rgbaFromRGB24(data, 2, 2)
	require.Equal(t, 2, img.Bounds().Dx())
	require.Equal(t, 2, img.Bounds().Dy())

	r, g, b, a := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{65535, 0, 0, 65535}, []uint32{r, g, b, a})

	r, g, b, _ = img.At(1, 0).RGBA()
	assert.Equal(t, []uint32{0, 65535, 0}, []uint32{r, g, b})

	r, g, b, _ = img.At(0, 1).RGBA()
	assert.Equal(t, []uint32{0, 0, 65535}, []uint32{r, g, b})

	r, g, b, _ = img.At(1, 1).RGBA()
	assert.Equal(t, []uint32{65535, 65535, 65535}, []uint32{r, g, b})
}

func TestFileSourceIntervalDefaults(t *testing.T) {
	fs := NewFileSource("missing.mp4")
	// before probing, the interval falls back to the default frame rate
	assert.Equal(t, float64(0), fs.fps)
	assert.InDelta(t, float64(time.Second)/30, float64(fs.Interval()), 1)
}
