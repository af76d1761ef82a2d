package projection

import (
	"errors"
	"math"
	"testing"

	"github.com/woozymasta/mgrsgrid/internal/geo"
)

func newService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService()
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func TestZoneForLongitude(t *testing.T) {
	cases := map[float64]int{
		-180:   1,
		-177:   1,
		-174.1: 1,
		-174:   2,
		-153:   5,
		0:      31,
		179.9:  60,
		180:    1,
		183:    1,
		-181:   60,
	}
	for lon, want := range cases {
		if got := ZoneForLongitude(lon); got != want {
			t.Errorf("ZoneForLongitude(%v)=%d want %d", lon, got, want)
		}
	}
}

func TestZonesForBounds(t *testing.T) {
	got := ZonesForBounds(geo.Bounds{West: -155, South: 18, East: -149, North: 22})
	want := []ZoneRef{{5, geo.North}, {6, geo.North}}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}

	equator := ZonesForBounds(geo.Bounds{West: 1, South: -1, East: 2, North: 1})
	if len(equator) != 2 || equator[0].Hemisphere != geo.North || equator[1].Hemisphere != geo.South {
		t.Fatalf("equator: %v", equator)
	}

	wrap := ZonesForBounds(geo.Bounds{West: 178, South: 10, East: -178, North: 11})
	if len(wrap) != 2 || wrap[0].Zone != 1 || wrap[1].Zone != 60 {
		t.Fatalf("wrap: %v", wrap)
	}

	// A box on the antimeridian itself touches zone 60 only.
	edge := ZonesForBounds(geo.Bounds{West: 180, South: 10, East: 180, North: 11})
	if len(edge) != 1 || edge[0] != (ZoneRef{60, geo.North}) {
		t.Fatalf("antimeridian edge: %v", edge)
	}
	edgeWrap := ZonesForBounds(geo.Bounds{West: 180, South: -11, East: -170, North: -10})
	if len(edgeWrap) != 3 || edgeWrap[0].Zone != 1 || edgeWrap[1].Zone != 2 || edgeWrap[2].Zone != 60 || edgeWrap[0].Hemisphere != geo.South {
		t.Fatalf("antimeridian wrap: %v", edgeWrap)
	}

	world := ZonesForBounds(geo.Bounds{West: -180, South: -80, East: 180, North: 84})
	if len(world) != 2*Zones {
		t.Fatalf("world: %d refs", len(world))
	}
}

func TestCentralMeridian(t *testing.T) {
	if CentralMeridian(1) != -177 || CentralMeridian(31) != 3 || CentralMeridian(60) != 177 {
		t.Fatalf("central meridians wrong")
	}
}

func TestForwardKnownPoint(t *testing.T) {
	s := newService(t)

	// On the central meridian the easting is the false easting.
	p, err := s.ToProjected(geo.GeodeticPoint{Lon: -153, Lat: 20}, 5, geo.North)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(p.Easting-500000) > 1e-3 {
		t.Fatalf("easting=%v", p.Easting)
	}
	// 20°N on the meridian is about 2212 km north of the equator (scaled).
	if p.Northing < 2.20e6 || p.Northing > 2.22e6 {
		t.Fatalf("northing=%v", p.Northing)
	}

	south, err := s.ToProjected(geo.GeodeticPoint{Lon: -153, Lat: -20}, 5, geo.South)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(south.Northing-(10e6-p.Northing)) > 1e-3 {
		t.Fatalf("south northing=%v", south.Northing)
	}
}

func TestRoundTrip(t *testing.T) {
	s := newService(t)

	for _, h := range []geo.Hemisphere{geo.North, geo.South} {
		for _, zone := range []int{1, 5, 31, 32, 60} {
			for e := 200000.0; e <= 800000; e += 150000 {
				for n := 1500000.0; n <= 8500000; n += 1000000 {
					in := geo.ProjectedPoint{Easting: e, Northing: n}
					g, err := s.ToGeodetic(in, zone, h)
					if err != nil {
						t.Fatalf("inverse %v zone %d%s: %v", in, zone, h, err)
					}
					out, err := s.ToProjected(g, zone, h)
					if err != nil {
						t.Fatalf("forward %v zone %d%s: %v", g, zone, h, err)
					}
					if rel(out.Easting, e) > 1e-6 || rel(out.Northing, n) > 1e-6 {
						t.Fatalf("round trip %v -> %v -> %v", in, g, out)
					}
				}
			}
		}
	}

	if s.Cached() != 10 {
		t.Fatalf("cached transformers=%d want 10", s.Cached())
	}
}

func TestDomainErrors(t *testing.T) {
	s := newService(t)

	bad := []struct {
		name string
		p    geo.GeodeticPoint
		zone int
		h    geo.Hemisphere
	}{
		{"pole", geo.GeodeticPoint{Lon: 0, Lat: 89.5}, 31, geo.North},
		{"far meridian", geo.GeodeticPoint{Lon: 90, Lat: 10}, 31, geo.North},
		{"zone", geo.GeodeticPoint{Lon: 0, Lat: 10}, 61, geo.North},
		{"hemisphere", geo.GeodeticPoint{Lon: 0, Lat: 10}, 31, geo.Hemisphere('X')},
		{"nan", geo.GeodeticPoint{Lon: math.NaN(), Lat: 10}, 31, geo.North},
	}
	for _, tt := range bad {
		_, err := s.ToProjected(tt.p, tt.zone, tt.h)
		var pe *Error
		if !errors.As(err, &pe) {
			t.Errorf("%s: err=%v", tt.name, err)
		}
	}

	if _, err := s.ToGeodetic(geo.ProjectedPoint{Easting: math.Inf(1), Northing: 0}, 31, geo.North); err == nil {
		t.Errorf("inverse accepted infinity")
	}
}

func TestZoneSeamLongitude(t *testing.T) {
	s := newService(t)

	// Zone 1 reaches across the antimeridian for points just west of it.
	p, err := s.ToProjected(geo.GeodeticPoint{Lon: 179.5, Lat: 10}, 1, geo.North)
	if err != nil {
		t.Fatal(err)
	}
	if p.Easting >= 500000 {
		t.Fatalf("expected western half, easting=%v", p.Easting)
	}
	g, err := s.ToGeodetic(p, 1, geo.North)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(g.Lon-179.5) > 1e-7 {
		t.Fatalf("lon=%v", g.Lon)
	}
}

func rel(got, want float64) float64 {
	return math.Abs(got-want) / math.Max(math.Abs(want), 1)
}
