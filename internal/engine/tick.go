package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/executor"
	"github.com/specialistvlad/nodegrid/internal/graph"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/specialistvlad/nodegrid/internal/scheduler"
	"github.com/specialistvlad/nodegrid/internal/task"
)

// TickReport describes one tick.
type TickReport struct {
	Seq       uint64          `json:"seq"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Nodes     int             `json:"nodes"`
	Order     []nodeid.NodeID `json:"order,omitempty"`
	Cycle     []nodeid.NodeID `json:"cycle,omitempty"`

	executor.Result
}

// Aborted reports whether the tick was aborted by a cycle.
func (r TickReport) Aborted() bool {
	return len(r.Cycle) > 0
}

// Status is a point-in-time view of the engine.
type Status struct {
	Session  uuid.UUID       `json:"session"`
	State    string          `json:"state"`
	Rate     float64         `json:"rate"`
	Interval time.Duration   `json:"interval"`
	Ticks    uint64          `json:"ticks"`
	Nodes    int             `json:"nodes"`
	Links    int             `json:"links"`
	LastTick *TickReport     `json:"last_tick,omitempty"`
	Tasks    int             `json:"tasks"`
	Sched    scheduler.State `json:"-"`
}

// Tick runs one evaluation of the whole graph. The scheduler calls it on
// its worker; tests call it directly.
func (e *Engine) Tick(ctx context.Context) (report TickReport) {
	logger := ctxlog.FromContext(ctx)
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	snap := e.snap.Load()
	if e.tickGraph != nil && e.tickGraph != snap.graph {
		// Catches values a previous tick propagated through links removed
		// while it was running.
		e.releaseInputs(ctx, e.tickGraph, snap.graph)
	}
	e.tickGraph = snap.graph
	ids := e.nodes.IDs(ctx)

	report = TickReport{Seq: e.seq.Add(1), StartedAt: time.Now(), Nodes: len(ids)}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		e.publish(report)
	}()

	order, err := graph.TopologicalSort(ids, snap.graph)
	if err != nil {
		var cycleErr *graph.CycleError
		if errors.As(err, &cycleErr) {
			report.Cycle = cycleErr.Remaining
		}
		logger.Warn("Cycle detected, tick skipped.", "seq", report.Seq, "nodes", report.Cycle)
		return report
	}
	report.Order = order

	report.Result = executor.RunTick(task.WithPool(ctx, e.pool), order, snap.graph, e.nodes)
	logger.Debug("Tick finished.", "seq", report.Seq, "executed", report.Executed,
		"propagated", report.Propagated, "faults", len(report.Faults))
	return report
}

// OnTick registers fn to receive every tick report. fn runs on the
// execution loop and must return quickly.
func (e *Engine) OnTick(fn func(TickReport)) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.observers = append(e.observers, fn)
}

func (e *Engine) publish(r TickReport) {
	e.last.Store(&r)
	e.obsMu.RLock()
	defer e.obsMu.RUnlock()
	for _, fn := range e.observers {
		fn(r)
	}
}

// LastTick returns the most recent tick report, if any.
func (e *Engine) LastTick() (TickReport, bool) {
	r := e.last.Load()
	if r == nil {
		return TickReport{}, false
	}
	return *r, true
}

// Status returns a point-in-time view of the engine.
func (e *Engine) Status(ctx context.Context) Status {
	st := Status{
		Session:  e.session,
		State:    e.sched.State().String(),
		Sched:    e.sched.State(),
		Rate:     e.sched.Rate(),
		Interval: e.sched.Interval(),
		Ticks:    e.sched.Ticks(),
		Nodes:    e.nodes.Len(),
		Links:    e.snap.Load().links.Len(),
		Tasks:    e.pool.Len(),
	}
	if r, ok := e.LastTick(); ok {
		st.LastTick = &r
	}
	return st
}
