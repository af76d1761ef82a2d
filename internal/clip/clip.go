// Package clip intersects grid cells with their parent boundary using GEOS.
//
// The raw intersection is tried first. When it fails on degenerate or
// self-intersecting operands, both operands are repaired with a zero-width
// buffer and the intersection is retried exactly once.
package clip

import (
	"fmt"

	"github.com/woozymasta/mgrsgrid/internal/geo"
	"github.com/woozymasta/mgrsgrid/internal/metrics"

	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-geos"
)

// bufferQuadSegs is the arc resolution of the repair buffer. A zero-width
// buffer has no arcs, so the smallest value is enough.
const bufferQuadSegs = 1

// IntersectFunc computes the intersection of two geometries. It may panic the
// way go-geos does on topology errors.
type IntersectFunc func(a, b *geos.Geom) *geos.Geom

// Clipper owns one GEOS context. A Clipper must not be shared between workers.
type Clipper struct {
	ctx       *geos.Context
	intersect IntersectFunc
	repairs   int
}

// Option configures a Clipper.
type Option func(*Clipper)

// WithIntersect replaces the intersection primitive.
func WithIntersect(fn IntersectFunc) Option {
	return func(c *Clipper) {
		c.intersect = fn
	}
}

// New creates a clipper with its own GEOS context.
func New(opts ...Option) *Clipper {
	c := &Clipper{
		ctx: geos.NewContext(),
		intersect: func(a, b *geos.Geom) *geos.Geom {
			return a.Intersection(b)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Repairs returns how many repair retries this clipper has performed.
func (c *Clipper) Repairs() int {
	return c.repairs
}

// Intersect clips subject against boundary and returns the polygonal pieces of
// the result as closed rings. An empty result is not an error.
func (c *Clipper) Intersect(subject, boundary geo.Ring) ([]geo.Ring, error) {
	a, err := c.polygon(subject)
	if err != nil {
		return nil, &Error{Op: "build subject", Err: err}
	}
	b, err := c.polygon(boundary)
	if err != nil {
		return nil, &Error{Op: "build boundary", Err: err}
	}

	res, rawErr := c.try(a, b)
	if rawErr != nil {
		c.repairs++
		metrics.RepairRetriesTotal.Inc()

		log.Debug().
			Err(rawErr).
			Msg("Intersection failed, retrying with repaired operands")

		ra, err := c.repair(a)
		if err != nil {
			return nil, &Error{Op: "repair subject", Repaired: true, Err: err}
		}
		rb, err := c.repair(b)
		if err != nil {
			return nil, &Error{Op: "repair boundary", Repaired: true, Err: err}
		}

		res, err = c.try(ra, rb)
		if err != nil {
			metrics.RepairFailuresTotal.Inc()
			return nil, &Error{Op: "intersect", Repaired: true, Err: err}
		}
	}

	return c.rings(res)
}

// Validity reports whether a ring forms a valid polygon, GEOS's reason when
// it does not, and its area in degree² units.
func (c *Clipper) Validity(r geo.Ring) (valid bool, reason string, area float64) {
	g, err := c.polygon(r)
	if err != nil {
		return false, err.Error(), r.Area()
	}

	err = guard(func() {
		valid = g.IsValid()
		if !valid {
			reason = g.IsValidReason()
		}
		area = g.Area()
	})
	if err != nil {
		return false, err.Error(), r.Area()
	}
	return valid, reason, area
}

func (c *Clipper) polygon(r geo.Ring) (g *geos.Geom, err error) {
	r = r.Close()
	if len(r) < geo.MinRingPositions {
		return nil, geo.ErrRingTooShort
	}
	err = guard(func() {
		g = c.ctx.NewPolygon([][][]float64{r.Coords()})
	})
	if err == nil && g == nil {
		err = fmt.Errorf("polygon construction returned nil")
	}
	return g, err
}

func (c *Clipper) try(a, b *geos.Geom) (res *geos.Geom, err error) {
	err = guard(func() {
		res = c.intersect(a, b)
	})
	if err == nil && res == nil {
		err = fmt.Errorf("intersection returned nil")
	}
	return res, err
}

func (c *Clipper) repair(g *geos.Geom) (res *geos.Geom, err error) {
	err = guard(func() {
		res = g.Buffer(0, bufferQuadSegs)
	})
	if err == nil && res == nil {
		err = fmt.Errorf("buffer returned nil")
	}
	return res, err
}

// rings flattens a polygonal result into exterior rings. Non-polygonal
// members of a collection (touching edges, points) are dropped.
func (c *Clipper) rings(g *geos.Geom) (out []geo.Ring, err error) {
	err = guard(func() {
		out = collect(g, out)
	})
	if err != nil {
		return nil, &Error{Op: "read result", Err: err}
	}
	return out, nil
}

func collect(g *geos.Geom, out []geo.Ring) []geo.Ring {
	if g.IsEmpty() {
		return out
	}

	switch g.TypeID() {
	case geos.TypeIDPolygon:
		r := geo.RingFromCoords(g.ExteriorRing().CoordSeq().ToCoords())
		if len(r) >= geo.MinRingPositions {
			out = append(out, r.Exterior())
		}
	case geos.TypeIDMultiPolygon, geos.TypeIDGeometryCollection:
		for i := 0; i < g.NumGeometries(); i++ {
			out = collect(g.Geometry(i), out)
		}
	}
	return out
}

// guard runs fn and turns a go-geos panic into an error.
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	fn()
	return nil
}
