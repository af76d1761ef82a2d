package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/woozymasta/mgrsgrid/internal/dispatch"
	"github.com/woozymasta/mgrsgrid/internal/geo"
	"github.com/woozymasta/mgrsgrid/internal/grid"
	"github.com/woozymasta/mgrsgrid/internal/zones"

	geojson "github.com/paulmach/go.geojson"
)

type stubGenerator struct{}

// Generate returns two pieces per parent and fails zone 06Q.
func (stubGenerator) Generate(p grid.Params) (*grid.Output, error) {
	if p.ParentID == "06Q" {
		return nil, errors.New("no features")
	}
	suffix := []string{"AA", "AB"}
	if p.CellSize == grid.Size10km {
		suffix = []string{"11", "12"}
	}
	var out grid.Output
	for _, s := range suffix {
		out.Features = append(out.Features, geo.NewGridPolygon(p.ParentID+s, p.ParentID+s, p.ParentID, p.CellSize, geo.GeodeticPoint{}, p.Parent))
	}
	return &out, nil
}

func newPool(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	d, err := dispatch.New(2, func(int) (dispatch.Generator, error) { return stubGenerator{}, nil })
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(d.Close)
	return d
}

func readCount(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatal(err)
	}
	return len(fc.Features)
}

func TestBatchRun(t *testing.T) {
	dir := t.TempDir()
	set := zones.Default()
	selected, err := selectZones(set, []string{"05Q,6Q"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(selected) != 2 {
		t.Fatalf("selected %d", len(selected))
	}

	b := &batch{pool: newPool(t), out: dir, format: "json", cells: true}
	if err := b.run(selected, set.Ring); err != nil {
		t.Fatal(err)
	}

	if n := readCount(t, filepath.Join(dir, "05Q", "100000.geojson")); n != 2 {
		t.Fatalf("squares=%d", n)
	}
	if n := readCount(t, filepath.Join(dir, "05Q", "10000.geojson")); n != 4 {
		t.Fatalf("cells=%d", n)
	}
	if exists(filepath.Join(dir, "06Q", "100000.geojson")) {
		t.Fatal("failed zone written")
	}
	if b.failed != 1 || b.files != 2 {
		t.Fatalf("failed=%d files=%d", b.failed, b.files)
	}

	// Existing files are skipped without --force.
	again := &batch{pool: newPool(t), out: dir, format: "json", cells: true}
	if err := again.run(selected[:1], set.Ring); err != nil {
		t.Fatal(err)
	}
	if again.files != 0 {
		t.Fatalf("rewrote %d files", again.files)
	}
}

func TestSelectZones(t *testing.T) {
	set := zones.Default()

	got, err := selectZones(set, nil, "2.5,60,3.5,61")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID() != "31V" || got[1].ID() != "32V" {
		t.Fatalf("bbox selection %v", got)
	}

	// Suppressed zones are skipped.
	got, err = selectZones(set, []string{"32X", "33X"}, "")
	if err != nil || len(got) != 1 || got[0].ID() != "33X" {
		t.Fatalf("limit selection %v %v", got, err)
	}

	if _, err := selectZones(set, []string{"99Z"}, ""); err == nil {
		t.Fatal("bad zone accepted")
	}
	if len(set.Existing()) == 0 {
		t.Fatal("no zones")
	}
}
