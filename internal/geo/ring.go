package geo

import (
	"errors"

	"github.com/ctessum/geom"
)

const (
	// MinRingPositions is the smallest closed ring: three vertices plus the
	// repeated first vertex.
	MinRingPositions = 4
	// MinDistinctVertices is the fewest distinct vertices an emitted ring
	// may have.
	MinDistinctVertices = 4
)

var (
	ErrRingOpen     = errors.New("ring is not closed")
	ErrRingTooShort = errors.New("ring has too few vertices")
	ErrRingSliver   = errors.New("ring area is below the minimum")
)

// Ring is an ordered sequence of geodetic points. A valid ring is closed.
type Ring []GeodeticPoint

// RingFromCoords builds a ring from [lon, lat] pairs.
func RingFromCoords(coords [][]float64) Ring {
	r := make(Ring, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		r = append(r, GeodeticPoint{Lon: c[0], Lat: c[1]})
	}
	return r
}

// Coords returns the ring as [lon, lat] pairs.
func (r Ring) Coords() [][]float64 {
	out := make([][]float64, len(r))
	for i, p := range r {
		out[i] = []float64{p.Lon, p.Lat}
	}
	return out
}

// Clone returns a copy that shares no memory with r.
func (r Ring) Clone() Ring {
	if r == nil {
		return nil
	}
	out := make(Ring, len(r))
	copy(out, r)
	return out
}

// IsClosed reports whether the first and last points are equal.
func (r Ring) IsClosed() bool {
	return len(r) > 1 && r[0] == r[len(r)-1]
}

// Close returns r with the first point appended when it is not closed yet.
func (r Ring) Close() Ring {
	if len(r) == 0 || r.IsClosed() {
		return r
	}
	return append(r.Clone(), r[0])
}

// polygon returns r as a single-ring planar polygon with lon as X and lat as Y.
func (r Ring) polygon() geom.Polygon {
	path := make(geom.Path, len(r))
	for i, p := range r {
		path[i] = geom.Point{X: p.Lon, Y: p.Lat}
	}
	return geom.Polygon{path}
}

// SignedArea is the shoelace area in degree² units, positive for
// counter-clockwise rings. Only its sign is used, for winding; geom exposes
// the unsigned area alone.
func (r Ring) SignedArea() float64 {
	if len(r) < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		sum += r[i].Lon*r[i+1].Lat - r[i+1].Lon*r[i].Lat
	}
	if !r.IsClosed() {
		last := r[len(r)-1]
		sum += last.Lon*r[0].Lat - r[0].Lon*last.Lat
	}
	return sum / 2
}

// Area is the unsigned planar area in degree² units.
func (r Ring) Area() float64 {
	return r.polygon().Area()
}

// IsCCW reports counter-clockwise winding.
func (r Ring) IsCCW() bool {
	return r.SignedArea() > 0
}

// Exterior returns r closed and wound counter-clockwise, the exterior ring
// order of RFC 7946.
func (r Ring) Exterior() Ring {
	out := r.Close()
	if out.IsCCW() {
		return out
	}
	out = out.Clone()
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Bounds returns the ring's bounding box. The box never wraps.
func (r Ring) Bounds() Bounds {
	if len(r) == 0 {
		return Bounds{}
	}
	return boundsFromGeom(r.polygon().Bounds())
}

// Distinct counts vertices, ignoring consecutive duplicates and the closing point.
func (r Ring) Distinct() int {
	n := 0
	for i, p := range r {
		if i > 0 && p == r[i-1] {
			continue
		}
		if i == len(r)-1 && i > 0 && p == r[0] {
			continue
		}
		n++
	}
	return n
}

// Validate checks what every emitted ring must satisfy: closed, at least
// MinDistinctVertices distinct vertices and an area strictly above minArea.
func (r Ring) Validate(minArea float64) error {
	if !r.IsClosed() {
		return ErrRingOpen
	}
	if r.Distinct() < MinDistinctVertices {
		return ErrRingTooShort
	}
	if r.Area() <= minArea {
		return ErrRingSliver
	}
	return nil
}
