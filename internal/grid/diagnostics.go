package grid

import (
	"fmt"

	"github.com/woozymasta/mgrsgrid/internal/geo"

	"github.com/golang/geo/r2"
	"github.com/rs/zerolog/log"
)

// Diagnostics counts what happened to the candidate cells of one pass.
// Slivers counts clipped pieces that fail ring validation.
type Diagnostics struct {
	ParentID   string         `json:"parent_id"`
	Zone       int            `json:"zone"`
	Hemisphere geo.Hemisphere `json:"hemisphere"`
	CellSize   int            `json:"cell_size"`

	ParentVertices    int `json:"parent_vertices"`
	ProjectedVertices int `json:"projected_vertices"`
	// Bounds is the projected bounding rectangle of the parent.
	Bounds r2.Rect `json:"-"`

	Attempted            int `json:"attempted"`
	Emitted              int `json:"emitted"`
	Outside              int `json:"outside"`
	Slivers              int `json:"slivers"`
	DegenerateCells      int `json:"degenerate_cells"`
	IntersectionFailures int `json:"intersection_failures"`
	ProjectionFailures   int `json:"projection_failures"`
	EncodingFailures     int `json:"encoding_failures"`

	// Parent validity, filled only for passes without features.
	ParentValid         bool    `json:"parent_valid"`
	ParentInvalidReason string  `json:"parent_invalid_reason,omitempty"`
	ParentArea          float64 `json:"parent_area"`
}

func (d Diagnostics) log() {
	ev := log.Warn().
		Str("parent", d.ParentID).
		Int("zone", d.Zone).
		Str("hemisphere", d.Hemisphere.String()).
		Int("cell_size", d.CellSize).
		Int("attempted", d.Attempted).
		Int("intersection_failures", d.IntersectionFailures).
		Int("projection_failures", d.ProjectionFailures).
		Int("encoding_failures", d.EncodingFailures).
		Int("slivers", d.Slivers).
		Int("parent_vertices", d.ParentVertices).
		Int("projected_vertices", d.ProjectedVertices).
		Bool("parent_valid", d.ParentValid).
		Float64("parent_area", d.ParentArea)

	if d.ParentInvalidReason != "" {
		ev = ev.Str("parent_invalid_reason", d.ParentInvalidReason)
	}
	if !d.Bounds.IsEmpty() {
		ev = ev.
			Float64("min_easting", d.Bounds.X.Lo).
			Float64("max_easting", d.Bounds.X.Hi).
			Float64("min_northing", d.Bounds.Y.Lo).
			Float64("max_northing", d.Bounds.Y.Hi)
	}

	ev.Msg("Parent boundary produced no grid features")
}

// EmptyError is returned when a pass emits no features.
type EmptyError struct {
	Diagnostics Diagnostics
}

func (e *EmptyError) Error() string {
	d := e.Diagnostics
	return fmt.Sprintf("parent %s produced no features at %d m (attempted %d, intersection failures %d, projection failures %d)",
		d.ParentID, d.CellSize, d.Attempted, d.IntersectionFailures, d.ProjectionFailures)
}
