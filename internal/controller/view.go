package controller

import (
	"time"

	"github.com/woozymasta/mgrsgrid/internal/geo"

	geojson "github.com/paulmach/go.geojson"
)

// View is an immutable snapshot of what the current viewport shows.
type View struct {
	Bounds    geo.Bounds        `json:"bounds"`
	Zoom      int               `json:"zoom"`
	Zones     []geo.GridPolygon `json:"zones"`
	Squares   []geo.GridPolygon `json:"squares"`
	Cells     []geo.GridPolygon `json:"cells"`
	Stats     Stats             `json:"stats"`
	Entries   []EntryInfo       `json:"-"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FeatureCollection returns every visible polygon, zones first.
func (v *View) FeatureCollection() *geojson.FeatureCollection {
	return geo.NewFeatureCollection(v.Zones, v.Squares, v.Cells)
}

// Len returns the number of visible polygons.
func (v *View) Len() int {
	return len(v.Zones) + len(v.Squares) + len(v.Cells)
}
