// Package controller drives generation from viewport changes and caches the
// results per zone and per 100 km square.
//
// The cache is owned by a single goroutine: the one running Run, or the
// caller's goroutine when Run is not used. Other goroutines talk to the
// controller through Viewport and Clear, and read the published View.
package controller

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/woozymasta/mgrsgrid/internal/dispatch"
	"github.com/woozymasta/mgrsgrid/internal/geo"
	"github.com/woozymasta/mgrsgrid/internal/grid"
	"github.com/woozymasta/mgrsgrid/internal/metrics"
	"github.com/woozymasta/mgrsgrid/internal/zones"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Default zoom thresholds.
const (
	DefaultSquaresZoom = 5
	DefaultCellsZoom   = 8
)

// ErrStopped is returned by Viewport and Clear once Run has returned.
var ErrStopped = errors.New("controller stopped")

// Dispatcher is the part of dispatch.Dispatcher the controller uses.
type Dispatcher interface {
	Submit(req dispatch.Request, onResult dispatch.ResultFunc, onError dispatch.ErrorFunc) (uuid.UUID, error)
	Cancel(key string) bool
	Results() <-chan dispatch.Result
	Deliver(res dispatch.Result) bool
}

// Levels maps zoom to precision: below Squares only zones are shown, from
// Squares the 100 km squares and from Cells the 10 km cells.
type Levels struct {
	Squares int `json:"squares_100km" yaml:"squares_100km"`
	Cells   int `json:"cells_10km" yaml:"cells_10km"`
}

// DefaultLevels returns the standard zoom thresholds.
func DefaultLevels() Levels {
	return Levels{Squares: DefaultSquaresZoom, Cells: DefaultCellsZoom}
}

type event struct {
	fn   func()
	done chan struct{}
}

// Controller evaluates viewports against the zone set and the cache.
type Controller struct {
	zones  *zones.Set
	disp   Dispatcher
	cache  *Cache
	levels Levels

	bounds geo.Bounds
	zoom   int
	active bool

	events  chan event
	stopped chan struct{}
	view    atomic.Pointer[View]
}

// New creates a controller and publishes an empty view.
func New(set *zones.Set, disp Dispatcher, levels Levels) *Controller {
	c := &Controller{
		zones:   set,
		disp:    disp,
		cache:   NewCache(),
		levels:  levels,
		events:  make(chan event),
		stopped: make(chan struct{}),
	}
	c.publish()
	return c
}

// View returns the last published view. It is safe for any goroutine.
func (c *Controller) View() *View {
	return c.view.Load()
}

// OnViewportChange requests whatever the viewport needs and not yet pending
// or resolved, then publishes the visible features. It must run on the
// goroutine owning the controller.
func (c *Controller) OnViewportChange(b geo.Bounds, zoom int) *View {
	metrics.ViewportChangesTotal.Inc()

	c.bounds, c.zoom, c.active = b, zoom, true
	return c.evaluate(true)
}

// ClearAll cancels pending requests and empties the cache.
func (c *Controller) ClearAll() *View {
	for _, key := range c.cache.PendingKeys() {
		c.disp.Cancel(key)
	}
	n := c.cache.Len()
	c.cache.Reset()

	log.Info().Int("entries", n).Msg("Grid cache cleared")
	return c.publish()
}

// Handle passes a worker result to the dispatcher, which runs the matching
// callback on this goroutine.
func (c *Controller) Handle(res dispatch.Result) bool {
	return c.disp.Deliver(res)
}

// Run owns the controller until ctx is done, serving viewport requests and
// worker results.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.stopped)

	results := c.disp.Results()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			ev.fn()
			close(ev.done)
		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			c.Handle(res)
		}
	}
}

// Viewport runs OnViewportChange on the Run goroutine and returns its view.
func (c *Controller) Viewport(ctx context.Context, b geo.Bounds, zoom int) (*View, error) {
	var v *View
	err := c.do(ctx, func() { v = c.OnViewportChange(b, zoom) })
	return v, err
}

// Clear runs ClearAll on the Run goroutine.
func (c *Controller) Clear(ctx context.Context) (*View, error) {
	var v *View
	err := c.do(ctx, func() { v = c.ClearAll() })
	return v, err
}

func (c *Controller) do(ctx context.Context, fn func()) error {
	ev := event{fn: fn, done: make(chan struct{})}
	select {
	case c.events <- ev:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once accepted the event always completes.
	<-ev.done
	return nil
}

// evaluate dispatches the requests the current viewport needs. Failed keys
// are dispatched again only when retry is set, which is the case for viewport
// changes and never for re-evaluation after a result.
func (c *Controller) evaluate(retry bool) *View {
	if !c.active {
		return c.publish()
	}

	visible := c.zones.Visible(c.bounds)

	if c.zoom >= c.levels.Squares {
		for _, d := range visible {
			ring, ok := c.zones.Ring(d.ID())
			if !ok {
				continue
			}
			c.request(d.ID(), "", retry, grid.Params{
				ParentID:   d.ID(),
				Parent:     ring,
				Zone:       d.Number,
				Hemisphere: d.Hemisphere,
				CellSize:   grid.Size100km,
			})
		}
	}

	if c.zoom >= c.levels.Cells {
		for _, d := range visible {
			e, ok := c.cache.Get(d.ID())
			if !ok || e.State != Resolved {
				continue
			}
			for _, sq := range e.Features {
				if !sq.Visible(c.bounds) {
					continue
				}
				c.request(sq.ID, d.ID(), retry, grid.Params{
					ParentID:   sq.ID,
					Parent:     sq.Ring,
					Zone:       d.Number,
					Hemisphere: d.Hemisphere,
					CellSize:   grid.Size10km,
				})
			}
		}
	}

	return c.publish()
}

// request dispatches key unless it is already pending or resolved, or failed
// and retry is not set.
func (c *Controller) request(key, parent string, retry bool, p grid.Params) {
	if !retry && c.cache.State(key) == Failed {
		return
	}
	if !c.cache.Begin(key, parent, p.CellSize) {
		return
	}

	_, err := c.disp.Submit(dispatch.Request{Key: key, Params: p}, c.resolved, c.failed)
	if err != nil {
		c.cache.Fail(key, err)
		log.Error().Err(err).Str("key", key).Msg("Failed to submit generation request")
	}
}

func (c *Controller) resolved(key string, features []geo.GridPolygon) {
	if !c.cache.Resolve(key, features) {
		return
	}
	log.Debug().Str("key", key).Int("features", len(features)).Msg("Grid key resolved")

	// New parents may need children at the current zoom.
	c.evaluate(false)
}

func (c *Controller) failed(key string, err error) {
	if !c.cache.Fail(key, err) {
		return
	}
	log.Warn().Err(err).Str("key", key).Msg("Grid key failed, eligible for retry")
	c.publish()
}

func (c *Controller) publish() *View {
	v := &View{
		Bounds:    c.bounds,
		Zoom:      c.zoom,
		Stats:     c.cache.Stats(),
		UpdatedAt: time.Now(),
	}

	if c.active {
		for _, d := range c.zones.Visible(c.bounds) {
			v.Zones = append(v.Zones, d.Polygon())

			if c.zoom < c.levels.Squares {
				continue
			}
			e, ok := c.cache.Get(d.ID())
			if !ok || e.State != Resolved {
				continue
			}
			for _, sq := range e.Features {
				if !sq.Visible(c.bounds) {
					continue
				}
				v.Squares = append(v.Squares, sq)

				if c.zoom < c.levels.Cells {
					continue
				}
				if ce, ok := c.cache.Get(sq.ID); ok && ce.State == Resolved {
					v.Cells = append(v.Cells, geo.FilterVisible(ce.Features, c.bounds)...)
				}
			}
		}
	}

	metrics.CacheEntries.WithLabelValues(Pending.String()).Set(float64(v.Stats.Pending))
	metrics.CacheEntries.WithLabelValues(Resolved.String()).Set(float64(v.Stats.Resolved))
	metrics.CacheEntries.WithLabelValues(Failed.String()).Set(float64(v.Stats.Failed))

	v.Entries = c.cache.Entries()
	c.view.Store(v)
	return v
}
