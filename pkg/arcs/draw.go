package arcs

import (
	"image/color"
	"math"
)

const (
	// DashLength is the number of sub-steps in each visible run of the trail,
	// followed by a gap of the same length.
	DashLength = 5
	// ShapeAlpha is the opacity of the trail and bloom before the fade starts.
	ShapeAlpha = 192
	// LabelSize is the font size used for endpoint labels.
	LabelSize = 12
)

var (
	ColorTrail  = color.NRGBA{255, 255, 255, ShapeAlpha}
	ColorLabel  = color.NRGBA{255, 255, 255, 255}
	ColorShadow = color.NRGBA{0, 0, 0, 255}
)

// Canvas is the immediate-mode surface an arc draws onto. Colors are
// non-premultiplied so the alpha can be faded independently.
type Canvas interface {
	// Dot draws a 1x2 pixel mark centered on (x, y).
	Dot(x, y float64, c color.NRGBA)
	// Circle draws a filled circle centered on (x, y).
	Circle(x, y, diameter float64, c color.NRGBA)
	// Text draws s with its baseline origin at (x, y).
	Text(s string, x, y float64, c color.NRGBA)
}

func withAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(math.Max(0, math.Min(255, alpha)))
	return c
}

// Draw renders one frame of the arc: trail, bloom and endpoint labels.
// Nothing is drawn once the arc is done.
func Draw(c Canvas, a Arc, g Geometry) {
	state := StateOf(a, g)
	if state == Done {
		return
	}

	shapeAlpha := float64(ShapeAlpha)
	labelAlpha := 255.0
	if state == Fading {
		shapeAlpha = Alpha(a, g)
		labelAlpha = shapeAlpha
	}

	for step := 0.0; step < a.Phase && step <= g.Length; step++ {
		if int(step)%(2*DashLength) >= DashLength {
			continue
		}
		x, y := g.PointAt(step)
		c.Dot(x, y, withAlpha(ColorTrail, shapeAlpha))
	}

	if d := BloomDiameter(a, g); d > 0 && shapeAlpha > 0 {
		c.Circle(g.X2, g.Y2, d, withAlpha(ColorTrail, shapeAlpha))
	}

	src, dst := a.Src.Label(), a.Dst.Label()
	shadow, label := withAlpha(ColorShadow, labelAlpha), withAlpha(ColorLabel, labelAlpha)
	c.Text(src, g.X1+3, g.Y1+11, shadow)
	c.Text(dst, g.X2+3, g.Y2+11, shadow)
	c.Text(src, g.X1+2, g.Y1+10, label)
	c.Text(dst, g.X2+2, g.Y2+10, label)
}
