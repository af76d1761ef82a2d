package zones

import (
	"fmt"
	"os"
	"sort"

	"github.com/woozymasta/mgrsgrid/internal/geo"
	"github.com/woozymasta/mgrsgrid/internal/mgrs"

	geojson "github.com/paulmach/go.geojson"
	"github.com/rs/zerolog/log"
)

// Set is an immutable collection of zone descriptors, safe to share.
type Set struct {
	descs []Descriptor
	byID  map[string]int
	rings map[string]geo.Ring
}

// New builds a set from descriptors. Later duplicates of an id are ignored.
func New(descs []Descriptor) *Set {
	s := &Set{
		descs: make([]Descriptor, 0, len(descs)),
		byID:  make(map[string]int, len(descs)),
		rings: make(map[string]geo.Ring, len(descs)),
	}
	for _, d := range descs {
		id := d.ID()
		if _, dup := s.byID[id]; dup {
			continue
		}
		s.byID[id] = len(s.descs)
		s.descs = append(s.descs, d)
		if d.Exists {
			s.rings[id] = d.Ring()
		}
	}
	return s
}

// Len returns the number of descriptors, suppressed ones included.
func (s *Set) Len() int {
	return len(s.descs)
}

// All returns a copy of every descriptor.
func (s *Set) All() []Descriptor {
	out := make([]Descriptor, len(s.descs))
	copy(out, s.descs)
	return out
}

// Existing returns the descriptors that exist.
func (s *Set) Existing() []Descriptor {
	out := make([]Descriptor, 0, len(s.descs))
	for _, d := range s.descs {
		if d.Exists {
			out = append(out, d)
		}
	}
	return out
}

// Get looks a descriptor up by zone key.
func (s *Set) Get(id string) (Descriptor, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return s.descs[i], true
}

// Ring returns the boundary ring of an existing zone. Callers must not
// modify it.
func (s *Set) Ring(id string) (geo.Ring, bool) {
	r, ok := s.rings[id]
	return r, ok
}

// Visible returns the existing descriptors whose rectangle touches b.
func (s *Set) Visible(b geo.Bounds) []Descriptor {
	var out []Descriptor
	for _, d := range s.descs {
		if d.Exists && d.Bounds().Intersects(b) {
			out = append(out, d)
		}
	}
	return out
}

// Polygons returns every existing zone as a zone-level polygon.
func (s *Set) Polygons() []geo.GridPolygon {
	out := make([]geo.GridPolygon, 0, len(s.descs))
	for _, d := range s.descs {
		if d.Exists {
			out = append(out, d.Polygon())
		}
	}
	return out
}

// FeatureCollection returns the existing zones as GeoJSON.
func (s *Set) FeatureCollection() *geojson.FeatureCollection {
	return geo.NewFeatureCollection(s.Polygons())
}

// Load reads a zone set from a GeoJSON asset written by FeatureCollection.
// Every feature in the asset is an existing zone.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode zone asset %s: %w", path, err)
	}

	descs := make([]Descriptor, 0, len(fc.Features))
	for _, f := range fc.Features {
		p, err := geo.PolygonFromFeature(f)
		if err != nil {
			return nil, fmt.Errorf("zone asset %s: %w", path, err)
		}
		ref, err := mgrs.Parse(p.ID)
		if err != nil || ref.Square != "" {
			return nil, fmt.Errorf("zone asset %s: feature %q is not a zone key", path, p.ID)
		}

		descs = append(descs, Descriptor{
			Number:     ref.Zone,
			Band:       ref.Band,
			Hemisphere: ref.Hemisphere(),
			West:       p.BBox.West,
			East:       p.BBox.East,
			South:      p.BBox.South,
			North:      p.BBox.North,
			Exists:     true,
		})
	}

	sort.Slice(descs, func(i, j int) bool {
		if descs[i].Band != descs[j].Band {
			return descs[i].Band < descs[j].Band
		}
		return descs[i].Number < descs[j].Number
	})

	log.Debug().
		Str("path", path).
		Int("zones", len(descs)).
		Msg("Zone boundary asset loaded")

	return New(descs), nil
}
