// Package geo holds the coordinate type shared by location providers and alerts.
package geo

import (
	"fmt"
	"strconv"
)

// Unavailable is the location text used when no coordinates are known.
const Unavailable = "Location unavailable"

// mapLinkFormat renders a coordinate pair as a map link.
const mapLinkFormat = "https://maps.google.com/?q=%s,%s"

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether the coordinates are within WGS84 bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// MapLink renders the point as a map URL.
func (p Point) MapLink() string {
	return fmt.Sprintf(
		mapLinkFormat,
		strconv.FormatFloat(p.Lat, 'f', -1, 64),
		strconv.FormatFloat(p.Lng, 'f', -1, 64),
	)
}

// Describe returns the map link for p, or Unavailable when p is nil.
func Describe(p *Point) string {
	if p == nil {
		return Unavailable
	}

	return p.MapLink()
}
