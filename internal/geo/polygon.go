package geo

// PrecisionZone marks zone-level polygons, which are not metric cells.
const PrecisionZone = 0

// GridPolygon is one generated graticule cell (or one piece of a clipped cell).
type GridPolygon struct {
	// ID is unique within the parent's output. It equals Reference for the
	// first piece of a cell; later pieces carry a "-N" suffix.
	ID string `json:"id" yaml:"id"`
	// Reference is the bare grid reference of the cell.
	Reference string `json:"ref" yaml:"ref"`
	ParentID  string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Precision int    `json:"precision" yaml:"precision"`
	// Center is the projected cell centre brought back to geodetic space,
	// used as the label anchor even when the ring is clipped.
	Center GeodeticPoint `json:"center" yaml:"center"`
	Ring   Ring          `json:"ring" yaml:"ring"`
	BBox   Bounds        `json:"-" yaml:"-"`
}

// NewGridPolygon builds a polygon and caches the ring's bounding box.
func NewGridPolygon(id, ref, parentID string, precision int, center GeodeticPoint, ring Ring) GridPolygon {
	return GridPolygon{
		ID:        id,
		Reference: ref,
		ParentID:  parentID,
		Precision: precision,
		Center:    center,
		Ring:      ring,
		BBox:      ring.Bounds(),
	}
}

// Visible reports whether the polygon's bounding box touches b.
func (p GridPolygon) Visible(b Bounds) bool {
	return p.BBox.Intersects(b)
}

// FilterVisible returns the polygons whose bounding box touches b.
// The input slice is not modified.
func FilterVisible(polys []GridPolygon, b Bounds) []GridPolygon {
	out := make([]GridPolygon, 0, len(polys))
	for _, p := range polys {
		if p.Visible(b) {
			out = append(out, p)
		}
	}
	return out
}
