// Package geo resolves network addresses to points on the world map.
package geo

import (
	"fmt"
	"strings"

	"github.com/biter777/countries"
)

// Point is a resolved geographic location. It is never mutated after construction.
type Point struct {
	Latitude    float64
	Longitude   float64
	City        string
	CountryCode string
}

// NewPoint validates the coordinate ranges and returns the point.
func NewPoint(lat, lng float64, city, cc string) (Point, error) {
	if lat < -90 || lat > 90 {
		return Point{}, fmt.Errorf("%w: latitude %f", ErrOutOfRange, lat)
	}
	if lng < -180 || lng > 180 {
		return Point{}, fmt.Errorf("%w: longitude %f", ErrOutOfRange, lng)
	}
	return Point{Latitude: lat, Longitude: lng, City: city, CountryCode: strings.ToUpper(cc)}, nil
}

// SameLocation reports whether both points share coordinates. Names are ignored.
func (p Point) SameLocation(o Point) bool {
	return p.Latitude == o.Latitude && p.Longitude == o.Longitude
}

// Label is the text drawn next to the point on the map.
func (p Point) Label() string {
	if p.City != "" {
		return p.City
	}
	if p.CountryCode == "" {
		return "Unknown"
	}
	name := countries.ByName(p.CountryCode).String()
	if idx := strings.Index(name, " ("); idx != -1 {
		name = name[:idx]
	}
	return name
}
