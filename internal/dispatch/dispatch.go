// Package dispatch runs grid generation on a fixed pool of isolated workers
// and routes results back to per-key callbacks.
//
// Each worker owns its generator (projection service and GEOS context), so
// nothing mutable is shared between workers and the caller. Results come back
// on a channel; the caller hands them to Deliver from its own goroutine, which
// is where callbacks run.
package dispatch

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/woozymasta/mgrsgrid/internal/clip"
	"github.com/woozymasta/mgrsgrid/internal/geo"
	"github.com/woozymasta/mgrsgrid/internal/grid"
	"github.com/woozymasta/mgrsgrid/internal/metrics"
	"github.com/woozymasta/mgrsgrid/internal/projection"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultWorkers = 4
	queueSize      = 64
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("dispatcher closed")

// Generator is the work a worker performs.
type Generator interface {
	Generate(p grid.Params) (*grid.Output, error)
}

// Factory builds the generator of one worker.
type Factory func(worker int) (Generator, error)

// GeneratorFactory returns a factory building a fresh projection service and
// clipper for every worker.
func GeneratorFactory(opts grid.Options) Factory {
	return func(int) (Generator, error) {
		ps, err := projection.NewService()
		if err != nil {
			return nil, err
		}
		return grid.New(ps, clip.New(), opts), nil
	}
}

// Request is one generation job. Key is a zone key for 100 km requests and a
// 100 km feature id for 10 km requests.
type Request struct {
	Key string `json:"key"`
	grid.Params
}

// Result is what a worker sends back.
type Result struct {
	Key         string            `json:"key"`
	ID          uuid.UUID         `json:"id"`
	Worker      int               `json:"worker"`
	Features    []geo.GridPolygon `json:"features,omitempty"`
	Diagnostics grid.Diagnostics  `json:"diagnostics"`
	Err         error             `json:"-"`
	Duration    time.Duration     `json:"duration"`
}

// ResultFunc receives the features of a successful request.
type ResultFunc func(key string, features []geo.GridPolygon)

// ErrorFunc receives the failure of a request.
type ErrorFunc func(key string, err error)

type pending struct {
	id       uuid.UUID
	onResult ResultFunc
	onError  ErrorFunc
}

type job struct {
	id  uuid.UUID
	req Request
}

type worker struct {
	id   int
	gen  Generator
	jobs chan job
}

// Dispatcher is a fixed worker pool with a pending callback per key.
type Dispatcher struct {
	workers []*worker
	results chan Result
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending map[string]pending
	next    int
	closed  bool
}

// New starts n workers (DefaultWorkers when n < 1), each with a generator
// from factory.
func New(n int, factory Factory) (*Dispatcher, error) {
	if n < 1 {
		n = DefaultWorkers
	}

	d := &Dispatcher{
		workers: make([]*worker, 0, n),
		results: make(chan Result, queueSize),
		done:    make(chan struct{}),
		pending: make(map[string]pending),
	}

	for i := 0; i < n; i++ {
		gen, err := factory(i)
		if err != nil {
			return nil, fmt.Errorf("worker %d: %w", i, err)
		}
		d.workers = append(d.workers, &worker{id: i, gen: gen, jobs: make(chan job, queueSize)})
	}

	for _, w := range d.workers {
		d.wg.Add(1)
		go d.loop(w)
	}

	log.Debug().Int("workers", n).Msg("Dispatcher started")
	return d, nil
}

// Workers returns the pool size.
func (d *Dispatcher) Workers() int {
	return len(d.workers)
}

// Submit queues req on the next worker in round-robin order and stores the
// callbacks under req.Key, replacing any earlier entry for the key. A result
// of the replaced submission is then dropped as stale. onError may be nil.
func (d *Dispatcher) Submit(req Request, onResult ResultFunc, onError ErrorFunc) (uuid.UUID, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return uuid.Nil, ErrClosed
	}

	// Workers never see the caller's ring.
	req.Parent = req.Parent.Clone()

	id := uuid.New()
	d.pending[req.Key] = pending{id: id, onResult: onResult, onError: onError}
	w := d.workers[d.next%len(d.workers)]
	d.next++

	j := job{id: id, req: req}
	select {
	case w.jobs <- j:
	default:
		// Queue full: hand off without blocking the caller.
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			select {
			case w.jobs <- j:
			case <-d.done:
			}
		}()
	}
	d.mu.Unlock()

	metrics.DispatchSubmittedTotal.WithLabelValues(strconv.Itoa(req.CellSize)).Inc()
	log.Debug().
		Str("key", req.Key).
		Str("request_id", id.String()).
		Int("worker", w.id).
		Int("cell_size", req.CellSize).
		Msg("Generation request submitted")

	return id, nil
}

// Cancel removes the pending callbacks of key. A later result for it is
// dropped.
func (d *Dispatcher) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.pending[key]
	delete(d.pending, key)
	return ok
}

// Pending returns the number of keys awaiting a result.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Results is the channel workers report on. It is closed by Close.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

// Deliver invokes the callback registered for res exactly once and removes
// it. Results for unknown keys, or for a submission that has since been
// replaced or cancelled, are dropped and Deliver returns false.
func (d *Dispatcher) Deliver(res Result) bool {
	d.mu.Lock()
	p, ok := d.pending[res.Key]
	if !ok || p.id != res.ID {
		d.mu.Unlock()
		metrics.DispatchResultsTotal.WithLabelValues("stale").Inc()
		log.Trace().
			Str("key", res.Key).
			Str("request_id", res.ID.String()).
			Msg("Stale result dropped")
		return false
	}
	delete(d.pending, res.Key)
	d.mu.Unlock()

	if res.Err != nil {
		metrics.DispatchResultsTotal.WithLabelValues("error").Inc()
		log.Error().
			Err(res.Err).
			Str("key", res.Key).
			Str("request_id", res.ID.String()).
			Int("worker", res.Worker).
			Msg("Generation failed")

		if p.onError != nil {
			p.onError(res.Key, res.Err)
		}
		return true
	}

	metrics.DispatchResultsTotal.WithLabelValues("ok").Inc()
	log.Debug().
		Str("key", res.Key).
		Str("request_id", res.ID.String()).
		Int("worker", res.Worker).
		Int("features", len(res.Features)).
		Dur("duration", res.Duration).
		Msg("Generation result delivered")

	if p.onResult != nil {
		p.onResult(res.Key, res.Features)
	}
	return true
}

// Close stops all workers, clears every pending callback and closes the
// results channel. Nothing is delivered afterwards.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.pending = make(map[string]pending)
	d.mu.Unlock()

	close(d.done)
	d.wg.Wait()
	close(d.results)

	log.Debug().Msg("Dispatcher stopped")
}

func (d *Dispatcher) loop(w *worker) {
	defer d.wg.Done()

	for {
		select {
		case <-d.done:
			return
		case j := <-w.jobs:
			res := w.run(j)
			select {
			case d.results <- res:
			case <-d.done:
				return
			}
		}
	}
}

func (w *worker) run(j job) (res Result) {
	start := time.Now()
	res = Result{Key: j.req.Key, ID: j.id, Worker: w.id}

	defer func() {
		if r := recover(); r != nil {
			res.Features = nil
			res.Err = &Error{Key: j.req.Key, ID: j.id, Worker: w.id, Err: fmt.Errorf("generator panic: %v", r)}
		}
		res.Duration = time.Since(start)
	}()

	log.Trace().
		Str("key", j.req.Key).
		Str("request_id", j.id.String()).
		Int("worker", w.id).
		Msg("Worker generating")

	out, err := w.gen.Generate(j.req.Params)
	if out != nil {
		res.Features = out.Features
		res.Diagnostics = out.Diagnostics
	}
	if err != nil {
		res.Err = &Error{Key: j.req.Key, ID: j.id, Worker: w.id, Err: err}
	}
	return res
}
