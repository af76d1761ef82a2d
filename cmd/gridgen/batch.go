package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/woozymasta/mgrsgrid/internal/dispatch"
	"github.com/woozymasta/mgrsgrid/internal/geo"
	"github.com/woozymasta/mgrsgrid/internal/grid"
	"github.com/woozymasta/mgrsgrid/internal/zones"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// pool is the part of the dispatcher a batch drives.
type pool interface {
	Submit(req dispatch.Request, onResult dispatch.ResultFunc, onError dispatch.ErrorFunc) (uuid.UUID, error)
	Results() <-chan dispatch.Result
	Deliver(res dispatch.Result) bool
	Pending() int
}

// zoneJob tracks one zone through both passes.
type zoneJob struct {
	desc      zones.Descriptor
	squares   []geo.GridPolygon
	cells     []geo.GridPolygon
	remaining int
}

// batch generates zones through the worker pool and writes one file per
// zone and precision. Callbacks run on the goroutine calling run.
type batch struct {
	pool   pool
	out    string
	format string
	cells  bool
	force  bool

	jobs   map[string]*zoneJob
	failed int
	files  int
}

func (b *batch) path(zone string, precision int) string {
	ext := ".geojson"
	if b.format == "yaml" {
		ext = ".yaml"
	}
	return filepath.Join(b.out, zone, strconv.Itoa(precision)+ext)
}

// run submits every zone and delivers results until nothing is pending.
func (b *batch) run(descs []zones.Descriptor, rings func(id string) (geo.Ring, bool)) error {
	b.jobs = make(map[string]*zoneJob, len(descs))

	for _, d := range descs {
		id := d.ID()
		if !b.force && exists(b.path(id, grid.Size100km)) && (!b.cells || exists(b.path(id, grid.Size10km))) {
			log.Info().Str("zone", id).Msg("Zone files exist, skipping")
			continue
		}
		ring, ok := rings(id)
		if !ok {
			continue
		}

		b.jobs[id] = &zoneJob{desc: d}
		_, err := b.pool.Submit(dispatch.Request{Key: id, Params: grid.Params{
			ParentID:   id,
			Parent:     ring,
			Zone:       d.Number,
			Hemisphere: d.Hemisphere,
			CellSize:   grid.Size100km,
		}}, b.squaresDone, b.fail)
		if err != nil {
			return err
		}
	}

	for b.pool.Pending() > 0 {
		res, ok := <-b.pool.Results()
		if !ok {
			return dispatch.ErrClosed
		}
		b.pool.Deliver(res)
	}

	return nil
}

func (b *batch) squaresDone(key string, features []geo.GridPolygon) {
	job := b.jobs[key]
	job.squares = features
	b.write(key, grid.Size100km, features)

	if !b.cells {
		return
	}

	for _, sq := range features {
		_, err := b.pool.Submit(dispatch.Request{Key: sq.ID, Params: grid.Params{
			ParentID:   sq.ID,
			Parent:     sq.Ring,
			Zone:       job.desc.Number,
			Hemisphere: job.desc.Hemisphere,
			CellSize:   grid.Size10km,
		}}, func(_ string, cells []geo.GridPolygon) {
			job.cells = append(job.cells, cells...)
			b.cellsDone(key, job)
		}, func(k string, err error) {
			b.fail(k, err)
			b.cellsDone(key, job)
		})
		if err != nil {
			b.fail(sq.ID, err)
			continue
		}
		job.remaining++
	}

	if job.remaining == 0 {
		b.write(key, grid.Size10km, nil)
	}
}

func (b *batch) cellsDone(zone string, job *zoneJob) {
	job.remaining--
	if job.remaining > 0 {
		return
	}
	sort.Slice(job.cells, func(i, j int) bool { return job.cells[i].ID < job.cells[j].ID })
	b.write(zone, grid.Size10km, job.cells)
}

func (b *batch) fail(key string, err error) {
	b.failed++
	log.Error().Err(err).Str("key", key).Msg("Generation failed")
}

func (b *batch) write(zone string, precision int, features []geo.GridPolygon) {
	path := b.path(zone, precision)

	data, err := geo.Marshal(geo.NewFeatureCollection(features), b.format)
	if err == nil {
		err = os.MkdirAll(filepath.Dir(path), 0o755)
	}
	if err == nil {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		b.fail(zone, fmt.Errorf("write %s: %w", path, err))
		return
	}

	b.files++
	log.Info().
		Str("zone", zone).
		Int("precision", precision).
		Int("features", len(features)).
		Str("path", path).
		Msg("Grid file written")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
