package server

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/woozymasta/mgrsgrid/internal/config"
	"github.com/woozymasta/mgrsgrid/internal/controller"
	"github.com/woozymasta/mgrsgrid/internal/geo"
	"github.com/woozymasta/mgrsgrid/internal/zones"

	"github.com/rs/zerolog/log"
)

// Engine is the controller surface the handlers use.
type Engine interface {
	Viewport(ctx context.Context, b geo.Bounds, zoom int) (*controller.View, error)
	Clear(ctx context.Context) (*controller.View, error)
	View() *controller.View
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config *config.Config
	Engine Engine
	Zones  *zones.Set
	// GridDir holds files written by gridgen; empty disables /grid/.
	GridDir string

	zonesJSON []byte
	zonesETag string
}

// NewServerContext encodes the zone set once and wires the engine.
func NewServerContext(cfg *config.Config, engine Engine, set *zones.Set, gridDir string) (*ServerContext, error) {
	log.Info().Int("zones", set.Len()).Msg("Initializing server context")

	data, err := geo.Marshal(set.FeatureCollection(), "json")
	if err != nil {
		return nil, fmt.Errorf("encode zones: %w", err)
	}

	h := fnv.New64a()
	_, _ = h.Write(data)

	log.Debug().
		Int("zones_existing", len(set.Existing())).
		Int("zones_bytes", len(data)).
		Str("grid_dir", gridDir).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:    cfg,
		Engine:    engine,
		Zones:     set,
		GridDir:   gridDir,
		zonesJSON: data,
		zonesETag: fmt.Sprintf(`"%x"`, h.Sum64()),
	}, nil
}
