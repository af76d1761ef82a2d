// Package zones builds the static set of zone/band rectangles that serve as
// root boundaries for 100 km square generation.
package zones

import (
	"math"
	"sync"

	"github.com/woozymasta/mgrsgrid/internal/geo"
	"github.com/woozymasta/mgrsgrid/internal/mgrs"
	"github.com/woozymasta/mgrsgrid/internal/projection"
)

const (
	// ZoneWidth is the standard zone width in degrees.
	ZoneWidth = 6.0
	// densifyStep is the spacing of boundary vertices in degrees. Parallels
	// curve in the zone projection, so the rings carry intermediate vertices
	// including one on the central meridian.
	densifyStep = 1.0
)

// Descriptor is one zone/band rectangle.
type Descriptor struct {
	Number     int            `json:"zone" yaml:"zone"`
	Band       byte           `json:"band" yaml:"band"`
	Hemisphere geo.Hemisphere `json:"hemisphere" yaml:"hemisphere"`
	West       float64        `json:"west" yaml:"west"`
	East       float64        `json:"east" yaml:"east"`
	South      float64        `json:"south" yaml:"south"`
	North      float64        `json:"north" yaml:"north"`
	Exists     bool           `json:"exists" yaml:"exists"`
}

// ID returns the zone key, for example "05Q".
func (d Descriptor) ID() string {
	return mgrs.ZoneID(d.Number, d.Band)
}

// Bounds returns the rectangle as a geodetic box.
func (d Descriptor) Bounds() geo.Bounds {
	return geo.Bounds{West: d.West, South: d.South, East: d.East, North: d.North}
}

// Widened reports whether the rectangle is wider than a standard zone.
func (d Descriptor) Widened() bool {
	return d.East-d.West > ZoneWidth
}

// Ring returns the closed counter-clockwise boundary ring with vertices
// every degree along each edge.
func (d Descriptor) Ring() geo.Ring {
	var r geo.Ring
	edge := func(from, to geo.GeodeticPoint) {
		span := math.Max(math.Abs(to.Lon-from.Lon), math.Abs(to.Lat-from.Lat))
		steps := int(math.Ceil(span / densifyStep))
		if steps < 1 {
			steps = 1
		}
		for i := 0; i < steps; i++ {
			t := float64(i) / float64(steps)
			r = append(r, geo.GeodeticPoint{
				Lon: from.Lon + (to.Lon-from.Lon)*t,
				Lat: from.Lat + (to.Lat-from.Lat)*t,
			})
		}
	}

	sw := geo.GeodeticPoint{Lon: d.West, Lat: d.South}
	se := geo.GeodeticPoint{Lon: d.East, Lat: d.South}
	ne := geo.GeodeticPoint{Lon: d.East, Lat: d.North}
	nw := geo.GeodeticPoint{Lon: d.West, Lat: d.North}
	edge(sw, se)
	edge(se, ne)
	edge(ne, nw)
	edge(nw, sw)

	return append(r, sw)
}

// Polygon returns the rectangle as a zone-level grid polygon.
func (d Descriptor) Polygon() geo.GridPolygon {
	center := geo.GeodeticPoint{Lon: (d.West + d.East) / 2, Lat: (d.South + d.North) / 2}
	return geo.NewGridPolygon(d.ID(), d.ID(), "", geo.PrecisionZone, center, d.Ring())
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
)

// Default returns the generated set, building it on first use.
func Default() *Set {
	defaultOnce.Do(func() {
		defaultSet = Generate()
	})
	return defaultSet
}

// Generate builds the 60 × 20 zone/band rectangles with the irregular
// exceptions of the Norway and Svalbard areas.
func Generate() *Set {
	descs := make([]Descriptor, 0, projection.Zones*len(mgrs.BandLetters))

	for i := 0; i < len(mgrs.BandLetters); i++ {
		band := mgrs.BandLetters[i]
		south, north, _ := mgrs.BandRange(band)

		for zone := 1; zone <= projection.Zones; zone++ {
			west := -180 + float64(zone-1)*ZoneWidth
			d := Descriptor{
				Number:     zone,
				Band:       band,
				Hemisphere: mgrs.BandHemisphere(band),
				West:       west,
				East:       west + ZoneWidth,
				South:      south,
				North:      north,
				Exists:     true,
			}
			applyException(&d)
			descs = append(descs, d)
		}
	}

	return New(descs)
}

// applyException adjusts the rectangles that deviate from the regular grid.
func applyException(d *Descriptor) {
	switch d.Band {
	case 'V':
		// 32V takes the eastern half of 31V.
		switch d.Number {
		case 31:
			d.East = 3
		case 32:
			d.West = 3
		}
	case 'X':
		switch d.Number {
		case 31:
			d.East = 9
		case 33:
			d.West, d.East = 9, 21
		case 35:
			d.West, d.East = 21, 33
		case 37:
			d.West = 33
		case 32, 34, 36:
			d.Exists = false
		}
	}
}
