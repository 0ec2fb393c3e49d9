package source

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"time"

	"fallwatch/common/config"
	"fallwatch/vision"
)

const (
	syntheticWidth  = 640
	syntheticHeight = 480

	// fallProbability is the per-tick chance of a walker falling over.
	fallProbability = 0.001
)

// walker is one simulated person wandering around the synthetic scene
type walker struct {
	x, y   int
	dx, dy int
	fallen bool
}

// SyntheticSource simulates an IP camera feed: a handful of walkers move
// around a static scene and occasionally fall over, permanently. The source
// fabricates the person detections itself instead of rendering people for a
// real detector, so its frames carry Detections directly.
type SyntheticSource struct {
	locator  string
	walkers  []*walker
	rnd      *rand.Rand
	fallProb float64
	template *image.RGBA
}

// NewSyntheticSource creates a simulated camera for the given locator string
func NewSyntheticSource(locator string) *SyntheticSource {
	return &SyntheticSource{
		locator: locator,
		walkers: []*walker{
			{x: 100, y: 200, dx: 2, dy: 1},
			{x: 300, y: 300, dx: -1, dy: 0},
			{x: 500, y: 250, dx: 0, dy: -1},
		},
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		fallProb: fallProbability,
		template: renderBackground(),
	}
}

// renderBackground draws the static scene: dark gray room with a floor strip
func renderBackground() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, syntheticWidth, syntheticHeight))

	background := image.NewUniform(color.RGBA{60, 63, 65, 255})
	draw.Draw(img, img.Bounds(), background, image.Point{}, draw.Src)

	floor := image.NewUniform(color.RGBA{100, 100, 100, 255})
	floorRect := image.Rect(0, syntheticHeight-50, syntheticWidth, syntheticHeight)
	draw.Draw(img, floorRect, floor, image.Point{}, draw.Src)

	return img
}

// Open is a no-op, the synthetic scene needs no external resource
func (ss *SyntheticSource) Open() error {
	return nil
}

// Next advances the simulation one tick and returns the frame together with
// the fabricated detections.
func (ss *SyntheticSource) Next(timeout time.Duration) (*Frame, error) {
	img := image.NewRGBA(ss.template.Bounds())
	copy(img.Pix, ss.template.Pix)

	detections := make([]vision.Detection, 0, len(ss.walkers))

	for i, w := range ss.walkers {
		if !w.fallen {
			w.x += w.dx
			w.y += w.dy

			// bounce off the scene bounds
			if w.x < 50 || w.x > syntheticWidth-50 {
				w.dx = -w.dx
			}
			if w.y < 100 || w.y > syntheticHeight-100 {
				w.dy = -w.dy
			}
		}

		// a walker falls over once and stays down
		if !w.fallen && ss.rnd.Float64() < ss.fallProb {
			w.fallen = true
			w.dx = 0
			w.dy = 0
		}

		detections = append(detections, ss.boxFor(w, i))
	}

	return &Frame{
		Image:      img,
		Detections: detections,
		Timestamp:  time.Now(),
	}, nil
}

// boxFor synthesizes the bounding box around a walker. Fallen walkers get a
// larger box with the vertical extents shifted upward.
func (ss *SyntheticSource) boxFor(w *walker, index int) vision.Detection {
	boxSize := 30
	if w.fallen {
		boxSize = 60
	}

	x1 := w.x - boxSize/2
	x2 := w.x + boxSize/2

	var y1, y2 int
	if w.fallen {
		y1 = w.y - boxSize
		y2 = w.y + boxSize/2
	} else {
		y1 = w.y - boxSize/2
		y2 = w.y + boxSize
	}

	return vision.Detection{
		Class:      config.PersonClass,
		Confidence: 0.9,
		X1:         x1,
		Y1:         y1,
		X2:         x2,
		Y2:         y2,
		Index:      index,
	}
}

// Interval is the fixed cadence of the simulated feed
func (ss *SyntheticSource) Interval() time.Duration {
	return config.SyntheticFrameInterval
}

// Close is a no-op
func (ss *SyntheticSource) Close() error {
	return nil
}
