// Package grid generates clipped, labelled grid cells inside a parent boundary.
//
// The same algorithm produces 100 km squares inside a zone rectangle and 10 km
// cells inside a 100 km square; only the cell size changes.
package grid

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/woozymasta/mgrsgrid/internal/clip"
	"github.com/woozymasta/mgrsgrid/internal/geo"
	"github.com/woozymasta/mgrsgrid/internal/metrics"
	"github.com/woozymasta/mgrsgrid/internal/mgrs"
	"github.com/woozymasta/mgrsgrid/internal/projection"

	"github.com/golang/geo/r2"
	"github.com/rs/zerolog/log"
)

const (
	Size100km = 100000
	Size10km  = 10000

	// DefaultMinArea is the smallest emitted ring area in degree² units.
	DefaultMinArea       = 1e-8
	DefaultSamplesCoarse = 20
	DefaultSamplesFine   = 8
)

// Params describes one generation pass.
type Params struct {
	ParentID   string         `json:"parent_id"`
	Parent     geo.Ring       `json:"parent"`
	Zone       int            `json:"zone"`
	Hemisphere geo.Hemisphere `json:"hemisphere"`
	CellSize   int            `json:"cell_size"`
	// SamplesPerEdge overrides the per-edge sample count when positive.
	SamplesPerEdge int `json:"samples_per_edge,omitempty"`
}

func (p Params) validate() error {
	if p.Zone < 1 || p.Zone > projection.Zones {
		return fmt.Errorf("zone %d out of range", p.Zone)
	}
	if !p.Hemisphere.Valid() {
		return fmt.Errorf("invalid hemisphere %v", p.Hemisphere)
	}
	if _, err := mgrs.DigitsForPrecision(p.CellSize); err != nil {
		return err
	}
	if len(p.Parent.Close()) < geo.MinRingPositions {
		return fmt.Errorf("parent %s: %w", p.ParentID, geo.ErrRingTooShort)
	}
	return nil
}

// Options tunes the generator.
type Options struct {
	MinArea       float64
	SamplesCoarse int
	SamplesFine   int
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		MinArea:       DefaultMinArea,
		SamplesCoarse: DefaultSamplesCoarse,
		SamplesFine:   DefaultSamplesFine,
	}
}

// Output is the result of one pass.
type Output struct {
	Features    []geo.GridPolygon
	Diagnostics Diagnostics
}

// Generator runs passes with its own projection service and clipper.
// It is not safe for concurrent use.
type Generator struct {
	proj *projection.Service
	clip *clip.Clipper
	opts Options
}

// New creates a generator. Zero option fields take their defaults.
func New(proj *projection.Service, clipper *clip.Clipper, opts Options) *Generator {
	def := DefaultOptions()
	if opts.MinArea <= 0 {
		opts.MinArea = def.MinArea
	}
	if opts.SamplesCoarse <= 0 {
		opts.SamplesCoarse = def.SamplesCoarse
	}
	if opts.SamplesFine <= 0 {
		opts.SamplesFine = def.SamplesFine
	}
	return &Generator{proj: proj, clip: clipper, opts: opts}
}

// SamplesFor returns the per-edge sample count for a cell size. Coarser cells
// show more projection curvature and get more samples.
func (g *Generator) SamplesFor(cellSize int) int {
	if cellSize >= Size100km {
		return g.opts.SamplesCoarse
	}
	return g.opts.SamplesFine
}

// Generate produces the clipped cells of one parent boundary. A pass that
// yields no features returns its diagnostics in an *EmptyError alongside the
// output.
func (g *Generator) Generate(p Params) (*Output, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	precision := strconv.Itoa(p.CellSize)
	defer func() {
		metrics.GenerationDurationMs.WithLabelValues(precision).Observe(float64(time.Since(start).Milliseconds()))
	}()

	parent := p.Parent.Close()
	diag := Diagnostics{
		ParentID:       p.ParentID,
		Zone:           p.Zone,
		Hemisphere:     p.Hemisphere,
		CellSize:       p.CellSize,
		ParentVertices: len(parent),
		Bounds:         r2.EmptyRect(),
	}

	// Projected bounding rectangle of the parent.
	for _, v := range parent {
		pp, err := g.proj.ToProjected(v, p.Zone, p.Hemisphere)
		if err != nil {
			diag.ProjectionFailures++
			continue
		}
		diag.ProjectedVertices++
		diag.Bounds = diag.Bounds.AddPoint(r2.Point{X: pp.Easting, Y: pp.Northing})
	}
	if diag.Bounds.IsEmpty() {
		return g.empty(diag, parent)
	}

	band, bandFromParent := parentBand(p.ParentID)
	samples := p.SamplesPerEdge
	if samples <= 0 {
		samples = g.SamplesFor(p.CellSize)
	}

	cs := float64(p.CellSize)
	ix0, ix1 := snap(diag.Bounds.X.Lo, diag.Bounds.X.Hi, cs)
	iy0, iy1 := snap(diag.Bounds.Y.Lo, diag.Bounds.Y.Hi, cs)

	var features []geo.GridPolygon
	parts := make(map[string]int)

	for iy := iy0; iy < iy1; iy++ {
		for ix := ix0; ix < ix1; ix++ {
			diag.Attempted++

			candidate, ok := g.candidate(p, ix, iy, samples, &diag)
			if !ok {
				diag.DegenerateCells++
				metrics.CellFailuresTotal.WithLabelValues("projection").Inc()
				continue
			}

			pieces, err := g.clip.Intersect(candidate, parent)
			if err != nil {
				diag.IntersectionFailures++
				metrics.CellFailuresTotal.WithLabelValues("geometry").Inc()
				log.Debug().
					Err(err).
					Str("parent", p.ParentID).
					Int("ix", ix).
					Int("iy", iy).
					Msg("Cell intersection failed, cell discarded")
				continue
			}

			kept := pieces[:0]
			for _, piece := range pieces {
				if piece.Validate(g.opts.MinArea) != nil {
					diag.Slivers++
					continue
				}
				kept = append(kept, piece)
			}
			if len(pieces) == 0 {
				diag.Outside++
			}
			if len(kept) == 0 {
				if len(pieces) > 0 {
					metrics.CellFailuresTotal.WithLabelValues("sliver").Inc()
				}
				continue
			}

			centerP := geo.ProjectedPoint{Easting: (float64(ix) + 0.5) * cs, Northing: (float64(iy) + 0.5) * cs}
			ref, center, err := g.label(p, centerP, band, bandFromParent)
			if err != nil {
				diag.EncodingFailures++
				metrics.CellFailuresTotal.WithLabelValues("encoding").Inc()
				log.Debug().
					Err(err).
					Str("parent", p.ParentID).
					Int("ix", ix).
					Int("iy", iy).
					Msg("Cell reference could not be derived, cell discarded")
				continue
			}

			refStr := ref.String()
			for _, piece := range kept {
				parts[refStr]++
				id := mgrs.PartID(refStr, parts[refStr])
				features = append(features, geo.NewGridPolygon(id, refStr, p.ParentID, p.CellSize, center, piece))
			}
		}
	}

	diag.Emitted = len(features)
	if len(features) == 0 {
		return g.empty(diag, parent)
	}

	metrics.GeneratedFeaturesTotal.WithLabelValues(precision).Add(float64(len(features)))
	log.Debug().
		Str("parent", p.ParentID).
		Int("cell_size", p.CellSize).
		Int("attempted", diag.Attempted).
		Int("emitted", diag.Emitted).
		Int("intersection_failures", diag.IntersectionFailures).
		Int("slivers", diag.Slivers).
		Dur("duration", time.Since(start)).
		Msg("Parent boundary generated")

	return &Output{Features: features, Diagnostics: diag}, nil
}

// candidate builds the densely sampled cell ring in geodetic space. Samples
// sit on a lattice shared by all cells, so neighbouring cells produce
// identical shared edges. Samples that fail to project are skipped.
func (g *Generator) candidate(p Params, ix, iy, k int, diag *Diagnostics) (geo.Ring, bool) {
	step := float64(p.CellSize) / float64(k)
	x0, y0 := ix*k, iy*k
	x1, y1 := x0+k, y0+k
	cm := projection.CentralMeridian(p.Zone)

	ring := make(geo.Ring, 0, 4*k+1)
	add := func(jx, jy int) {
		pt, err := g.proj.ToGeodetic(geo.ProjectedPoint{Easting: float64(jx) * step, Northing: float64(jy) * step}, p.Zone, p.Hemisphere)
		if err != nil {
			diag.ProjectionFailures++
			log.Trace().Err(err).Str("parent", p.ParentID).Msg("Sample point skipped")
			return
		}
		// Keep longitudes continuous across the antimeridian.
		pt.Lon = cm + geo.NormalizeLon(pt.Lon-cm)
		ring = append(ring, pt)
	}

	for i := 0; i < k; i++ {
		add(x0+i, y0)
	}
	for i := 0; i < k; i++ {
		add(x1, y0+i)
	}
	for i := 0; i < k; i++ {
		add(x1-i, y1)
	}
	for i := 0; i < k; i++ {
		add(x0, y1-i)
	}

	ring = ring.Close()
	if ring.Distinct() < geo.MinDistinctVertices {
		return nil, false
	}
	return ring, true
}

// label derives the cell reference from the projected cell centre, so clipped
// cells keep grid-aligned labels.
func (g *Generator) label(p Params, c geo.ProjectedPoint, band byte, bandOK bool) (mgrs.Reference, geo.GeodeticPoint, error) {
	center, err := g.proj.ToGeodetic(c, p.Zone, p.Hemisphere)
	if err != nil {
		return mgrs.Reference{}, geo.GeodeticPoint{}, &mgrs.Error{Input: fmt.Sprintf("%g,%g", c.Easting, c.Northing), Reason: "cell centre outside projection domain", Err: err}
	}
	if !bandOK {
		band, err = mgrs.LatitudeBand(center.Lat)
		if err != nil {
			return mgrs.Reference{}, center, err
		}
	}
	ref, err := mgrs.EncodePoint(g.proj, center, p.Zone, band, p.CellSize)
	return ref, center, err
}

func (g *Generator) empty(diag Diagnostics, parent geo.Ring) (*Output, error) {
	diag.ParentValid, diag.ParentInvalidReason, diag.ParentArea = g.clip.Validity(parent)
	metrics.EmptyParentsTotal.Inc()
	diag.log()
	return &Output{Diagnostics: diag}, &EmptyError{Diagnostics: diag}
}

// parentBand takes the band letter from the parent's reference.
func parentBand(parentID string) (byte, bool) {
	ref, err := mgrs.Parse(parentID)
	if err != nil {
		return 0, false
	}
	return ref.Band, true
}

// snap widens [lo, hi] outwards to multiples of size and returns the cell
// index range [first, last).
func snap(lo, hi, size float64) (int, int) {
	first := int(math.Floor(lo / size))
	last := int(math.Ceil(hi / size))
	if last <= first {
		last = first + 1
	}
	return first, last
}

// IsEmpty reports whether err is a zero-feature result.
func IsEmpty(err error) bool {
	var ee *EmptyError
	return errors.As(err, &ee)
}
