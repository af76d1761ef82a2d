package clip

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/woozymasta/mgrsgrid/internal/geo"

	"github.com/twpayne/go-geos"
)

func square(w, s, e, n float64) geo.Ring {
	return geo.Ring{{Lon: w, Lat: s}, {Lon: e, Lat: s}, {Lon: e, Lat: n}, {Lon: w, Lat: n}, {Lon: w, Lat: s}}
}

// bowtie crosses itself at (1, 1).
func bowtie() geo.Ring {
	return geo.Ring{{Lon: 0, Lat: 0}, {Lon: 2, Lat: 2}, {Lon: 2, Lat: 0}, {Lon: 0, Lat: 2}, {Lon: 0, Lat: 0}}
}

// strictIntersect rejects invalid operands with a topology error, the way
// overlay engines without snapping fallbacks behave.
func strictIntersect(a, b *geos.Geom) *geos.Geom {
	if !a.IsValid() || !b.IsValid() {
		panic(errors.New("TopologyException: side location conflict"))
	}
	return a.Intersection(b)
}

func totalArea(rings []geo.Ring) float64 {
	var sum float64
	for _, r := range rings {
		sum += r.Area()
	}
	return sum
}

func TestIntersectOverlap(t *testing.T) {
	c := New()
	rings, err := c.Intersect(square(0, 0, 2, 2), square(1, 1, 3, 3))
	if err != nil {
		t.Fatal(err)
	}
	if len(rings) != 1 {
		t.Fatalf("pieces=%d", len(rings))
	}
	if math.Abs(rings[0].Area()-1) > 1e-12 {
		t.Fatalf("area=%v", rings[0].Area())
	}
	if !rings[0].IsClosed() || !rings[0].IsCCW() {
		t.Fatalf("ring not canonical: %v", rings[0])
	}
	if c.Repairs() != 0 {
		t.Fatalf("repair attempted on valid input")
	}
}

func TestIntersectDisjoint(t *testing.T) {
	c := New()
	rings, err := c.Intersect(square(0, 0, 1, 1), square(5, 5, 6, 6))
	if err != nil {
		t.Fatal(err)
	}
	if len(rings) != 0 {
		t.Fatalf("pieces=%d", len(rings))
	}
}

func TestIntersectSplitsAgainstNonConvexBoundary(t *testing.T) {
	// A U-shaped boundary; the cell spans both prongs above the base.
	u := geo.Ring{
		{Lon: 0, Lat: 0}, {Lon: 3, Lat: 0}, {Lon: 3, Lat: 3}, {Lon: 2, Lat: 3},
		{Lon: 2, Lat: 1}, {Lon: 1, Lat: 1}, {Lon: 1, Lat: 3}, {Lon: 0, Lat: 3}, {Lon: 0, Lat: 0},
	}
	rings, err := New().Intersect(square(0, 2, 3, 2.5), u)
	if err != nil {
		t.Fatal(err)
	}
	if len(rings) != 2 {
		t.Fatalf("pieces=%d", len(rings))
	}
	if math.Abs(totalArea(rings)-1) > 1e-12 {
		t.Fatalf("area=%v", totalArea(rings))
	}
}

func TestRepairRetry(t *testing.T) {
	c := New(WithIntersect(strictIntersect))

	rings, err := c.Intersect(bowtie(), square(0, 0, 2, 2))
	if err != nil {
		t.Fatalf("intersect after repair: %v", err)
	}
	if c.Repairs() != 1 {
		t.Fatalf("repairs=%d want 1", c.Repairs())
	}
	if len(rings) == 0 || totalArea(rings) <= 1e-8 {
		t.Fatalf("empty result after repair: %v", rings)
	}
}

func TestRepairRetriedOnlyOnce(t *testing.T) {
	calls := 0
	c := New(WithIntersect(func(a, b *geos.Geom) *geos.Geom {
		calls++
		panic(errors.New("TopologyException: found non-noded intersection"))
	}))

	_, err := c.Intersect(square(0, 0, 1, 1), square(0, 0, 1, 1))
	var ce *Error
	if !errors.As(err, &ce) || !ce.Repaired {
		t.Fatalf("err=%v", err)
	}
	if calls != 2 || c.Repairs() != 1 {
		t.Fatalf("calls=%d repairs=%d", calls, c.Repairs())
	}
	if !strings.Contains(err.Error(), "non-noded") {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestValidity(t *testing.T) {
	c := New()

	valid, reason, area := c.Validity(square(0, 0, 2, 2))
	if !valid || reason != "" || math.Abs(area-4) > 1e-12 {
		t.Fatalf("square: %v %q %v", valid, reason, area)
	}

	valid, reason, _ = c.Validity(bowtie())
	if valid || reason == "" {
		t.Fatalf("bowtie: %v %q", valid, reason)
	}

	valid, _, _ = c.Validity(geo.Ring{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}})
	if valid {
		t.Fatalf("two-point ring valid")
	}
}

func TestIntersectRejectsShortRing(t *testing.T) {
	_, err := New().Intersect(geo.Ring{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}}, square(0, 0, 1, 1))
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("err=%v", err)
	}
}
