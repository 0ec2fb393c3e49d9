package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

var (
	placeholderFaceOnce sync.Once
	placeholderFace     font.Face
)

// Placeholder renders the frame served while a camera has no feed
func Placeholder(cameraID int) *image.RGBA {
	placeholderFaceOnce.Do(func() {
		placeholderFace = loadFontFace(24)
	})

	img := image.NewRGBA(image.Rect(0, 0, 640, 480))

	background := image.NewUniform(color.RGBA{40, 44, 52, 255})
	draw.Draw(img, img.Bounds(), background, image.Point{}, draw.Src)

	ctx := gg.NewContextForRGBA(img)
	ctx.SetFontFace(placeholderFace)

	text := fmt.Sprintf("Camera %d - No Feed", cameraID)
	ctx.SetColor(colorWhite)
	ctx.DrawStringAnchored(text, 320, 240, 0.5, 0.5)

	return img
}
