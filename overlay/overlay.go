package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"fallwatch/common/log"
	"fallwatch/vision"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

const (
	// StatsBandHeight is the height of the status band drawn across the top.
	StatsBandHeight = 80

	boxThickness = 2
)

var (
	colorNormal  = color.RGBA{0, 255, 0, 255}
	colorFall    = color.RGBA{255, 0, 0, 255}
	colorAmber   = color.RGBA{255, 165, 0, 255}
	colorBand    = color.RGBA{40, 44, 52, 178}
	colorWhite   = color.RGBA{255, 255, 255, 255}
	colorGray    = color.RGBA{200, 200, 200, 255}
	colorOutline = color.RGBA{0, 0, 0, 255}
)

// Stats is a read-only snapshot of the pipeline's running counters, rendered
// in the right portion of the status band. The annotator never updates the
// counters itself; the pipeline driver does that before calling Annotate.
type Stats struct {
	Avg float64
	Max uint32
}

// Annotator draws detections and the statistics band onto frame copies for
// one camera.
type Annotator struct {
	cameraID int
	face     font.Face
}

// Font fallback chain for the overlay text. The basicfont face keeps the
// overlay readable when no system font is available.
var fontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
}

// NewAnnotator creates an annotator for the given camera id
func NewAnnotator(cameraID int) *Annotator {
	return &Annotator{
		cameraID: cameraID,
		face:     loadFontFace(16),
	}
}

func loadFontFace(points float64) font.Face {
	for _, path := range fontPaths {
		face, err := gg.LoadFontFace(path, points)
		if err != nil {
			continue
		}
		log.Debug(fmt.Sprintf("loaded overlay font: %s", path))
		return face
	}

	log.Warn("could not load any system font, falling back to builtin face")
	return basicfont.Face7x13
}

// Annotate returns a new frame with detection boxes, labels and the
// statistics band drawn on it. The input frame is never modified.
func (a *Annotator) Annotate(img image.Image, detections []vision.Detection, peopleCount int, verdict vision.FallVerdict, stats Stats) *image.RGBA {
	bounds := img.Bounds()
	annotated := image.NewRGBA(bounds)
	draw.Draw(annotated, bounds, img, bounds.Min, draw.Src)

	ctx := gg.NewContextForRGBA(annotated)
	ctx.SetFontFace(a.face)

	for i := range detections {
		det := &detections[i]

		boxColor := colorNormal
		if verdict.IsFall && sameBox(det, verdict.Box) {
			boxColor = colorFall
		}

		drawThickRectangle(annotated, det.X1, det.Y1, det.X2, det.Y2, boxColor, boxThickness)

		label := fmt.Sprintf("Person %d: %.2f", det.Index+1, det.Confidence)
		drawTextWithOutline(ctx, label, float64(det.X1), float64(det.Y1-10), boxColor, colorOutline)
	}

	a.drawStatsBand(ctx, bounds.Dx(), peopleCount, verdict.IsFall, stats)

	return annotated
}

// sameBox reports whether det is the verdict's offending box. The verdict
// box always aliases one of the input detections, so comparing coordinates
// matches the original box exactly.
func sameBox(det, box *vision.Detection) bool {
	if box == nil {
		return false
	}
	return det.X1 == box.X1 && det.Y1 == box.Y1 && det.X2 == box.X2 && det.Y2 == box.Y2
}

// drawStatsBand draws the semi-transparent band across the top of the frame:
// camera id, color-coded people count, fall banner, timestamp and running
// average/max counters.
func (a *Annotator) drawStatsBand(ctx *gg.Context, width, peopleCount int, fallDetected bool, stats Stats) {
	ctx.SetColor(colorBand)
	ctx.DrawRectangle(0, 0, float64(width), StatsBandHeight)
	ctx.Fill()

	drawTextWithOutline(ctx, fmt.Sprintf("Camera %d", a.cameraID), 10, 30, colorWhite, colorOutline)

	countColor := colorNormal
	if peopleCount > 20 {
		countColor = colorFall
	} else if peopleCount > 10 {
		countColor = colorAmber
	}
	drawTextWithOutline(ctx, fmt.Sprintf("People: %d", peopleCount), 10, 60, countColor, colorOutline)

	if fallDetected {
		ctx.SetColor(colorFall)
		ctx.DrawRectangle(float64(width/2-150), 10, 300, 40)
		ctx.Fill()
		drawTextWithOutline(ctx, "FALL DETECTED!", float64(width/2-120), 40, colorWhite, colorOutline)
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	drawTextWithOutline(ctx, timestamp, float64(width-250), 30, colorGray, colorOutline)

	statsText := fmt.Sprintf("Avg: %.1f | Max: %d", stats.Avg, stats.Max)
	drawTextWithOutline(ctx, statsText, float64(width-300), 60, colorGray, colorOutline)
}

// drawTextWithOutline draws text with an outline for better visibility
func drawTextWithOutline(ctx *gg.Context, text string, x, y float64, textColor, outlineColor color.RGBA) {
	offsets := []struct{ dx, dy float64 }{
		{-1, -1}, {-1, 0}, {-1, 1},
		{0, -1}, {0, 1},
		{1, -1}, {1, 0}, {1, 1},
	}

	ctx.SetColor(outlineColor)
	for _, offset := range offsets {
		ctx.DrawStringAnchored(text, x+offset.dx, y+offset.dy, 0, 0)
	}

	ctx.SetColor(textColor)
	ctx.DrawStringAnchored(text, x, y, 0, 0)
}

// drawThickRectangle draws a rectangle border with the given thickness
func drawThickRectangle(img *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	maxX := img.Bounds().Max.X
	maxY := img.Bounds().Max.Y

	for t := 0; t < thickness; t++ {
		for x := x1; x <= x2; x++ {
			if x < 0 || x >= maxX {
				continue
			}
			if y1+t >= 0 && y1+t < maxY {
				img.Set(x, y1+t, col)
			}
			if y2-t >= 0 && y2-t < maxY {
				img.Set(x, y2-t, col)
			}
		}

		for y := y1; y <= y2; y++ {
			if y < 0 || y >= maxY {
				continue
			}
			if x1+t >= 0 && x1+t < maxX {
				img.Set(x1+t, y, col)
			}
			if x2-t >= 0 && x2-t < maxX {
				img.Set(x2-t, y, col)
			}
		}
	}
}
