package charts

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Placeholder texts shown instead of a figure.
const (
	PendingText     = "Processing..."
	UnavailableText = "No data available / error in figure creation"
)

// Placeholder renders a plain PNG with centered text. It is used while a
// figure is being computed and when figure creation fails, so it must not
// fail itself; any encoding problem yields an empty image.
func (g *Generator) Placeholder(text string) []byte {
	img := image.NewRGBA(image.Rect(0, 0, g.width, g.frameHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	border := color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	for x := 0; x < g.width; x++ {
		img.Set(x, 0, border)
		img.Set(x, g.frameHeight-1, border)
	}
	for y := 0; y < g.frameHeight; y++ {
		img.Set(0, y, border)
		img.Set(g.width-1, y, border)
	}

	drawCenteredText(img, text, g.width/2, g.frameHeight/2)

	data, err := encodePNG(img)
	if err != nil {
		return nil
	}
	return data
}

// Pending is the loading-state placeholder.
func (g *Generator) Pending() []byte {
	return g.Placeholder(PendingText)
}

// Unavailable is the failure placeholder.
func (g *Generator) Unavailable() []byte {
	return g.Placeholder(UnavailableText)
}

// drawCenteredText draws one line of text centered on (cx, cy) using the
// fixed 7x13 face, which needs no font assets at runtime.
func drawCenteredText(img draw.Image, text string, cx, cy int) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff}),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(cx - width/2),
			Y: fixed.I(cy + face.Height/2 - face.Descent),
		},
	}
	d.DrawString(text)
}

// drawLabel draws one line of text with its baseline at (x, y).
func drawLabel(img draw.Image, text string, x, y int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
