// Package geo holds the coordinate primitives shared by the grid engine:
// geodetic and projected points, rings, viewport bounds and grid polygons.
package geo

import (
	"fmt"
	"math"
)

// GeodeticPoint is a longitude/latitude pair in degrees.
type GeodeticPoint struct {
	Lon float64 `json:"lon" yaml:"lon"`
	Lat float64 `json:"lat" yaml:"lat"`
}

// ProjectedPoint is an easting/northing pair in meters. It only has meaning
// relative to the zone and hemisphere it was projected into.
type ProjectedPoint struct {
	Easting  float64 `json:"easting" yaml:"easting"`
	Northing float64 `json:"northing" yaml:"northing"`
}

// Hemisphere selects the false northing of a zone projection.
type Hemisphere byte

const (
	North Hemisphere = 'N'
	South Hemisphere = 'S'
)

// HemisphereOf returns the hemisphere a latitude belongs to. The equator is north.
func HemisphereOf(lat float64) Hemisphere {
	if lat < 0 {
		return South
	}
	return North
}

func (h Hemisphere) String() string {
	switch h {
	case North:
		return "N"
	case South:
		return "S"
	}
	return fmt.Sprintf("Hemisphere(%d)", byte(h))
}

// Valid reports whether h is North or South.
func (h Hemisphere) Valid() bool {
	return h == North || h == South
}

// NormalizeLon wraps a longitude into [-180, 180).
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
