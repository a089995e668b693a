package geo

import "math"

// Equirectangular projects a point onto a width x height canvas with
// longitude -180 at the left edge and latitude 90 at the top.
func Equirectangular(p Point, width, height int) (x, y float64) {
	return ProjectLatLng(p.Latitude, p.Longitude, width, height)
}

// ProjectLatLng is Equirectangular for raw coordinates. Results are whole pixels.
func ProjectLatLng(lat, lng float64, width, height int) (x, y float64) {
	w, h := float64(width), float64(height)
	x = math.Floor((lng + 180.0) / 360.0 * w)
	y = math.Floor(h - (lat+90.0)/180.0*h)
	return x, y
}
