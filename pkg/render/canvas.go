package render

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// screenCanvas draws arc primitives straight onto an ebiten image.
type screenCanvas struct {
	dst  *ebiten.Image
	face *text.GoTextFace
}

func (c *screenCanvas) Dot(x, y float64, clr color.NRGBA) {
	vector.DrawFilledRect(c.dst, float32(x-0.5), float32(y-1), 1, 2, clr, false)
}

func (c *screenCanvas) Circle(x, y, diameter float64, clr color.NRGBA) {
	vector.DrawFilledCircle(c.dst, float32(x), float32(y), float32(diameter/2), clr, true)
}

// Text places the baseline at y.
func (c *screenCanvas) Text(s string, x, y float64, clr color.NRGBA) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y-c.face.Metrics().HAscent)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(c.dst, s, c.face, op)
}
