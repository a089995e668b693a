package arcs

import (
	"math"

	"github.com/sudorandom/netflow-map/pkg/geo"
)

// Geometry is the projected path of an arc on a canvas that wraps around
// both horizontally and vertically.
type Geometry struct {
	Width, Height int
	X1, Y1        float64
	X2, Y2        float64
	// DX and DY are the magnitudes of the shortest deltas; DirX and DirY are ±1.
	DX, DY     float64
	DirX, DirY float64
	// Length is the Chebyshev length of the path and the phase at arrival.
	Length float64
}

func NewGeometry(src, dst geo.Point, width, height int) Geometry {
	x1, y1 := geo.Equirectangular(src, width, height)
	x2, y2 := geo.Equirectangular(dst, width, height)
	return GeometryFromPixels(x1, y1, x2, y2, width, height)
}

// GeometryFromPixels builds the path between two already projected points.
func GeometryFromPixels(x1, y1, x2, y2 float64, width, height int) Geometry {
	dx, dirX := shortestDelta(x2-x1, float64(width))
	dy, dirY := shortestDelta(y2-y1, float64(height))
	return Geometry{
		Width: width, Height: height,
		X1: x1, Y1: y1, X2: x2, Y2: y2,
		DX: dx, DY: dy,
		DirX: dirX, DirY: dirY,
		Length: math.Max(dx, dy),
	}
}

// shortestDelta returns the magnitude and direction of the shorter way from
// one coordinate to another along an axis of the given size.
func shortestDelta(d, size float64) (mag, dir float64) {
	dir = 1
	if d < 0 {
		dir = -1
	}
	mag = math.Abs(d)
	if size > 0 && mag > size/2 {
		mag = math.Mod(size-mag, size)
		dir = -dir
	}
	return mag, dir
}

// PointAt returns the canvas position at sub-step a of the path, lifted by a
// sine bulge proportional to the horizontal distance.
func (g Geometry) PointAt(a float64) (x, y float64) {
	if g.Length == 0 {
		return g.X1, g.Y1
	}
	t := a / g.Length
	bulge := math.Sin(t*math.Pi) * (g.DX / 5)
	x = g.X1 + g.DirX*g.DX*t
	y = g.Y1 + g.DirY*g.DY*t - bulge
	return wrap(x, float64(g.Width)), wrap(y, float64(g.Height))
}

func wrap(v, size float64) float64 {
	if size <= 0 {
		return v
	}
	v = math.Mod(v, size)
	if v < 0 {
		v += size
	}
	return v
}
