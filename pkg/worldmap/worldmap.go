// Package worldmap rasterizes GeoJSON land polygons into the map background.
package worldmap

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"sort"

	"github.com/disintegration/imaging"
	geojson "github.com/paulmach/go.geojson"

	"github.com/sudorandom/netflow-map/pkg/geo"
	"github.com/sudorandom/netflow-map/pkg/utils"
)

type Style struct {
	Ocean   color.RGBA
	Land    color.RGBA
	Outline color.RGBA
	// Blur softens the outlines with a small Gaussian filter.
	Blur bool
}

// DefaultStyle draws green coastlines on black.
func DefaultStyle() Style {
	return Style{
		Ocean:   color.RGBA{0, 0, 0, 255},
		Land:    color.RGBA{0, 20, 5, 255},
		Outline: color.RGBA{0, 255, 0, 255},
		Blur:    true,
	}
}

type point struct{ x, y float64 }

type rasterizer struct {
	img           *image.RGBA
	width, height int
}

// Blank returns a background with no land on it.
func Blank(width, height int, style Style) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{style.Ocean}, image.Point{}, draw.Src)
	return img
}

// Parse decodes a GeoJSON FeatureCollection.
func Parse(data []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse world geojson: %w", err)
	}
	return fc, nil
}

// Load reads the GeoJSON at location (path or URL) and rasterizes it.
func Load(location string, width, height int, style Style) (*image.RGBA, error) {
	r, err := utils.Open(location, "[WORLD]")
	if err != nil {
		return nil, fmt.Errorf("failed to open world geojson: %w", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read world geojson: %w", err)
	}
	fc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Rasterize(fc, width, height, style), nil
}

// Rasterize fills every polygon of fc with the land color and strokes its
// rings, using the same equirectangular projection as the arcs.
func Rasterize(fc *geojson.FeatureCollection, width, height int, style Style) *image.RGBA {
	rz := &rasterizer{img: Blank(width, height, style), width: width, height: height}
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		switch {
		case f.Geometry.IsPolygon():
			rz.polygon(f.Geometry.Polygon, style)
		case f.Geometry.IsMultiPolygon():
			for _, poly := range f.Geometry.MultiPolygon {
				rz.polygon(poly, style)
			}
		}
	}
	if style.Blur {
		return blur(rz.img)
	}
	return rz.img
}

func (rz *rasterizer) polygon(rings [][][]float64, style Style) {
	rz.fillPolygon(rings, style.Land)
	for _, ring := range rings {
		rz.drawRing(ring, style.Outline)
	}
}

func (rz *rasterizer) project(coord []float64) point {
	if len(coord) < 2 {
		return point{}
	}
	// GeoJSON positions are [longitude, latitude].
	x, y := geo.ProjectLatLng(coord[1], coord[0], rz.width, rz.height)
	return point{x, y}
}

func (rz *rasterizer) set(x, y int, c color.RGBA) {
	if x < 0 || x >= rz.width || y < 0 || y >= rz.height {
		return
	}
	off := y*rz.img.Stride + x*4
	rz.img.Pix[off], rz.img.Pix[off+1], rz.img.Pix[off+2], rz.img.Pix[off+3] = c.R, c.G, c.B, 255
}

// fillPolygon is an even-odd scanline fill, so holes stay empty.
func (rz *rasterizer) fillPolygon(rings [][][]float64, c color.RGBA) {
	if len(rings) == 0 {
		return
	}
	projected := make([][]point, len(rings))
	minY, maxY := float64(rz.height), 0.0
	for i, ring := range rings {
		projected[i] = make([]point, len(ring))
		for j, coord := range ring {
			p := rz.project(coord)
			projected[i][j] = p
			minY = math.Min(minY, p.y)
			maxY = math.Max(maxY, p.y)
		}
	}

	var nodes []int
	for y := int(minY); y <= int(maxY); y++ {
		if y < 0 || y >= rz.height {
			continue
		}
		nodes = nodes[:0]
		fy := float64(y)
		for _, ring := range projected {
			for i := range ring {
				j := (i + 1) % len(ring)
				a, b := ring[i], ring[j]
				if (a.y < fy && b.y >= fy) || (b.y < fy && a.y >= fy) {
					nodes = append(nodes, int(a.x+(fy-a.y)/(b.y-a.y)*(b.x-a.x)))
				}
			}
		}
		sort.Ints(nodes)
		for i := 0; i+1 < len(nodes); i += 2 {
			for x := max(nodes[i], 0); x < min(nodes[i+1], rz.width); x++ {
				rz.set(x, y, c)
			}
		}
	}
}

func (rz *rasterizer) drawRing(coords [][]float64, c color.RGBA) {
	for i := 0; i+1 < len(coords); i++ {
		a, b := rz.project(coords[i]), rz.project(coords[i+1])
		// Skip segments that jump across the antimeridian.
		if math.Abs(a.x-b.x) > float64(rz.width)/2 {
			continue
		}
		rz.drawLine(int(a.x), int(a.y), int(b.x), int(b.y), c)
	}
}

// drawLine is Bresenham's line algorithm.
func (rz *rasterizer) drawLine(x1, y1, x2, y2 int, c color.RGBA) {
	dx, dy := abs(x2-x1), abs(y2-y1)
	sx, sy := -1, -1
	if x1 < x2 {
		sx = 1
	}
	if y1 < y2 {
		sy = 1
	}
	err := dx - dy
	for {
		rz.set(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

const blurSigma = 0.8

func blur(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, imaging.Blur(src, blurSigma), image.Point{}, draw.Src)
	return dst
}
