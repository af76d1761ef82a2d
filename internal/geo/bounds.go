package geo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
)

// Bounds is a geodetic box in degrees. West greater than East means the box
// crosses the antimeridian.
type Bounds struct {
	West  float64 `json:"west" yaml:"west"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	North float64 `json:"north" yaml:"north"`
}

// ParseBounds parses a "west,south,east,north" string.
func ParseBounds(s string) (Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}, fmt.Errorf("bounds %q: expected west,south,east,north", s)
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Bounds{}, fmt.Errorf("bounds %q: %w", s, err)
		}
		v[i] = f
	}

	b := Bounds{West: v[0], South: v[1], East: v[2], North: v[3]}
	if b.South > b.North {
		return Bounds{}, fmt.Errorf("bounds %q: south is above north", s)
	}
	return b, nil
}

// Wraps reports whether the box crosses the antimeridian.
func (b Bounds) Wraps() bool {
	return b.West > b.East
}

// Split returns the box as one or two non-wrapping boxes.
func (b Bounds) Split() []Bounds {
	if !b.Wraps() {
		return []Bounds{b}
	}
	return []Bounds{
		{West: b.West, South: b.South, East: 180, North: b.North},
		{West: -180, South: b.South, East: b.East, North: b.North},
	}
}

// Intersects reports whether two boxes overlap. Touching edges count.
func (b Bounds) Intersects(o Bounds) bool {
	for _, x := range b.Split() {
		for _, y := range o.Split() {
			if x.planar().Overlaps(y.planar()) {
				return true
			}
		}
	}
	return false
}

// planar returns a non-wrapping box with lon as X and lat as Y.
func (b Bounds) planar() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: b.West, Y: b.South},
		Max: geom.Point{X: b.East, Y: b.North},
	}
}

func boundsFromGeom(g *geom.Bounds) Bounds {
	return Bounds{West: g.Min.X, South: g.Min.Y, East: g.Max.X, North: g.Max.Y}
}

func (b Bounds) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.West, b.South, b.East, b.North)
}
