package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/nodegrid/internal/attrstore"
	"github.com/specialistvlad/nodegrid/internal/builder"
	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/graph"
	"github.com/specialistvlad/nodegrid/internal/inmemoryattrs"
	"github.com/specialistvlad/nodegrid/internal/inmemorystore"
	"github.com/specialistvlad/nodegrid/internal/links"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/specialistvlad/nodegrid/internal/nodestore"
	"github.com/specialistvlad/nodegrid/internal/registry"
	"github.com/specialistvlad/nodegrid/internal/scheduler"
	"github.com/specialistvlad/nodegrid/internal/task"
)

var (
	// ErrNodeNotFound is returned when an operation addresses an unknown node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrSlotNotFound is returned when a logical slot does not exist.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrNodeExists is returned when a node id is registered twice.
	ErrNodeExists = nodestore.ErrExists
)

// Options configures an Engine.
type Options struct {
	Rate        float64
	JoinTimeout time.Duration
	MaxTasks    int64

	// Attrs and Nodes replace the default in-memory stores.
	Attrs attrstore.Store
	Nodes nodestore.Store
}

// snapshot is what the execution loop reads at the start of a tick.
type snapshot struct {
	links  links.Set
	graph  *graph.Graph
	report builder.Report
}

// Engine is the dataflow execution engine.
type Engine struct {
	session uuid.UUID
	kinds   *registry.Registry
	attrs   attrstore.Store
	nodes   nodestore.Store
	pool    *task.Pool
	sched   *scheduler.Scheduler

	// mu serializes structural edits.
	mu    sync.Mutex
	alloc nodeid.Allocator
	snap  atomic.Pointer[snapshot]

	// tickMu serializes ticks; tickGraph is the graph the last tick ran on.
	tickMu    sync.Mutex
	tickGraph *graph.Graph

	seq       atomic.Uint64
	last      atomic.Pointer[TickReport]
	obsMu     sync.RWMutex
	observers []func(TickReport)
}

// New creates a stopped engine. ctx supplies the logger used by background
// work.
func New(ctx context.Context, kinds *registry.Registry, opts Options) *Engine {
	if kinds == nil {
		kinds = registry.New()
	}
	if opts.Attrs == nil {
		opts.Attrs = inmemoryattrs.New()
	}
	if opts.Nodes == nil {
		opts.Nodes = inmemorystore.New()
	}
	if opts.Rate == 0 {
		opts.Rate = scheduler.DefaultRate
	}

	e := &Engine{
		session: uuid.New(),
		kinds:   kinds,
		attrs:   opts.Attrs,
		nodes:   opts.Nodes,
		pool:    task.NewPool(ctx, opts.MaxTasks),
	}
	e.sched = scheduler.New(func(ctx context.Context) { e.Tick(ctx) },
		scheduler.WithRate(opts.Rate),
		scheduler.WithJoinTimeout(opts.JoinTimeout),
	)
	e.snap.Store(&snapshot{graph: graph.New()})

	ctxlog.FromContext(ctx).Debug("Engine created.", "session", e.session, "rate", e.sched.Rate())
	return e
}

// Session returns the id of this engine instance.
func (e *Engine) Session() uuid.UUID { return e.session }

// Kinds returns the node kind catalog.
func (e *Engine) Kinds() *registry.Registry { return e.kinds }

// Attrs returns the attribute registry.
func (e *Engine) Attrs() attrstore.Store { return e.attrs }

// Pool returns the background task pool.
func (e *Engine) Pool() *task.Pool { return e.pool }

// SetRate changes the tick rate and returns the applied, clamped value.
func (e *Engine) SetRate(rate float64) float64 {
	return e.sched.SetRate(rate)
}

// Rate returns the current tick rate.
func (e *Engine) Rate() float64 { return e.sched.Rate() }

// Start starts the execution loop. It returns false if already running.
func (e *Engine) Start(ctx context.Context) bool {
	return e.sched.Start(ctx)
}

// Stop stops the execution loop with a bounded join.
func (e *Engine) Stop(ctx context.Context) error {
	return e.sched.Stop(ctx)
}

// State returns the scheduler state.
func (e *Engine) State() scheduler.State { return e.sched.State() }

// Close stops the loop, cancels background tasks and releases node resources.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	if err := e.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := e.pool.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, id := range e.nodes.IDs(ctx) {
		if n, ok := e.nodes.Get(ctx, id); ok {
			if err := closeNode(n); err != nil {
				errs = append(errs, fmt.Errorf("closing node %s: %w", id, err))
			}
		}
	}
	return errors.Join(errs...)
}
