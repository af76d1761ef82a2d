// Package projection converts between geodetic coordinates and the planar
// coordinates of a single transverse Mercator zone.
package projection

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/woozymasta/mgrsgrid/internal/geo"

	"github.com/ctessum/geom/proj"
)

const (
	// Zones is the number of six-degree longitudinal zones.
	Zones = 60
	// MaxLatitude bounds the valid domain away from the poles.
	MaxLatitude = 89.0
	// MaxMeridianOffset bounds how far from the central meridian a point may
	// lie before the zone projection is considered unusable.
	MaxMeridianOffset = 40.0

	geodeticDef = "+proj=longlat +ellps=WGS84 +datum=WGS84 +no_defs"
)

// ZoneRef names one projection: a zone number and a hemisphere.
type ZoneRef struct {
	Zone       int            `json:"zone"`
	Hemisphere geo.Hemisphere `json:"hemisphere"`
}

func (z ZoneRef) String() string {
	return fmt.Sprintf("%02d%s", z.Zone, z.Hemisphere)
}

type transformers struct {
	forward proj.Transformer
	inverse proj.Transformer
}

// Service converts points for any zone. Transformer pairs are built once per
// zone and hemisphere and reused. A Service is safe for concurrent use.
type Service struct {
	mu       sync.Mutex
	geodetic *proj.SR
	cache    map[ZoneRef]*transformers
}

// NewService creates a projection service with an empty transformer cache.
func NewService() (*Service, error) {
	sr, err := proj.Parse(geodeticDef)
	if err != nil {
		return nil, fmt.Errorf("parse geodetic definition: %w", err)
	}
	return &Service{
		geodetic: sr,
		cache:    make(map[ZoneRef]*transformers),
	}, nil
}

// Definition returns the projection string for a zone.
func Definition(zone int, h geo.Hemisphere) string {
	def := fmt.Sprintf("+proj=utm +zone=%d +ellps=WGS84 +datum=WGS84 +units=m +no_defs", zone)
	if h == geo.South {
		def += " +south"
	}
	return def
}

// CentralMeridian returns the central meridian of a zone in degrees.
func CentralMeridian(zone int) float64 {
	return float64(zone)*6 - 183
}

// Cached returns the number of memoized transformer pairs.
func (s *Service) Cached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

func (s *Service) transformers(ref ZoneRef) (*transformers, error) {
	if ref.Zone < 1 || ref.Zone > Zones {
		return nil, fmt.Errorf("zone %d out of range", ref.Zone)
	}
	if !ref.Hemisphere.Valid() {
		return nil, fmt.Errorf("invalid hemisphere %v", ref.Hemisphere)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.cache[ref]; ok {
		return t, nil
	}

	zoneSR, err := proj.Parse(Definition(ref.Zone, ref.Hemisphere))
	if err != nil {
		return nil, fmt.Errorf("parse zone %s definition: %w", ref, err)
	}
	forward, err := s.geodetic.NewTransform(zoneSR)
	if err != nil {
		return nil, fmt.Errorf("zone %s forward transform: %w", ref, err)
	}
	inverse, err := zoneSR.NewTransform(s.geodetic)
	if err != nil {
		return nil, fmt.Errorf("zone %s inverse transform: %w", ref, err)
	}

	t := &transformers{forward: forward, inverse: inverse}
	s.cache[ref] = t
	return t, nil
}

// ToProjected projects a geodetic point into the given zone.
func (s *Service) ToProjected(p geo.GeodeticPoint, zone int, h geo.Hemisphere) (geo.ProjectedPoint, error) {
	ref := ZoneRef{Zone: zone, Hemisphere: h}
	fail := func(reason string, err error) (geo.ProjectedPoint, error) {
		return geo.ProjectedPoint{}, &Error{Op: "forward", Ref: ref, X: p.Lon, Y: p.Lat, Reason: reason, Err: err}
	}

	t, err := s.transformers(ref)
	if err != nil {
		return fail("no transformer", err)
	}
	if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || math.Abs(p.Lat) > MaxLatitude {
		return fail("latitude outside domain", nil)
	}
	offset := geo.NormalizeLon(p.Lon - CentralMeridian(zone))
	if math.Abs(offset) > MaxMeridianOffset {
		return fail("too far from central meridian", nil)
	}

	e, n, err := t.forward(CentralMeridian(zone)+offset, p.Lat)
	if err != nil {
		return fail("transform failed", err)
	}
	if !finite(e) || !finite(n) {
		return fail("non-finite result", nil)
	}
	return geo.ProjectedPoint{Easting: e, Northing: n}, nil
}

// ToGeodetic brings a projected point of the given zone back to geodetic space.
func (s *Service) ToGeodetic(p geo.ProjectedPoint, zone int, h geo.Hemisphere) (geo.GeodeticPoint, error) {
	ref := ZoneRef{Zone: zone, Hemisphere: h}
	fail := func(reason string, err error) (geo.GeodeticPoint, error) {
		return geo.GeodeticPoint{}, &Error{Op: "inverse", Ref: ref, X: p.Easting, Y: p.Northing, Reason: reason, Err: err}
	}

	t, err := s.transformers(ref)
	if err != nil {
		return fail("no transformer", err)
	}
	if !finite(p.Easting) || !finite(p.Northing) {
		return fail("non-finite input", nil)
	}

	lon, lat, err := t.inverse(p.Easting, p.Northing)
	if err != nil {
		return fail("transform failed", err)
	}
	if !finite(lon) || !finite(lat) || math.Abs(lat) > MaxLatitude {
		return fail("latitude outside domain", nil)
	}
	if math.Abs(geo.NormalizeLon(lon-CentralMeridian(zone))) > MaxMeridianOffset {
		return fail("too far from central meridian", nil)
	}
	return geo.GeodeticPoint{Lon: geo.NormalizeLon(lon), Lat: lat}, nil
}

// ZoneForLongitude returns the standard zone number (1..60) of a longitude.
func ZoneForLongitude(lon float64) int {
	lon = geo.NormalizeLon(lon)
	z := int(math.Floor((lon+180)/6)) + 1
	if z > Zones {
		z = Zones
	}
	return z
}

// ZonesForBounds lists every zone and hemisphere overlapping a geodetic box.
// Both hemispheres are returned when the box straddles the equator.
func ZonesForBounds(b geo.Bounds) []ZoneRef {
	hemispheres := []geo.Hemisphere{geo.HemisphereOf(b.North)}
	if h := geo.HemisphereOf(b.South); h != hemispheres[0] {
		hemispheres = append(hemispheres, h)
	}

	seen := make(map[int]bool)
	for _, part := range b.Split() {
		first := ZoneForLongitude(part.West)
		if part.West >= 180 {
			// 180 normalizes to -180; the box only touches the last zone.
			first = Zones
		}
		last := Zones
		if part.East < 180 {
			last = ZoneForLongitude(part.East)
		}
		for z := first; z <= last; z++ {
			seen[z] = true
		}
	}

	zones := make([]int, 0, len(seen))
	for z := range seen {
		zones = append(zones, z)
	}
	sort.Ints(zones)

	out := make([]ZoneRef, 0, len(zones)*len(hemispheres))
	for _, z := range zones {
		for _, h := range hemispheres {
			out = append(out, ZoneRef{Zone: z, Hemisphere: h})
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
