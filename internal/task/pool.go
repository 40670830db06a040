// Package task runs slow node work (LLM calls, vector queries, network I/O)
// off the execution loop.
//
// A node's Process submits work to the Pool and returns immediately. The
// pool runs at most one task per node at a time, bounds total concurrency
// with a weighted semaphore, and hands the outcome to a callback that
// writes into the node's output state. Results therefore become visible
// to downstream nodes on a later tick.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent is the default bound on concurrently running tasks.
const DefaultMaxConcurrent = 8

// ErrClosed is delivered to callbacks of tasks submitted after Close.
var ErrClosed = errors.New("task pool closed")

// Func is the background work. It must honour ctx cancellation.
type Func func(ctx context.Context) error

// DoneFunc receives the outcome of a Func, including recovered panics and
// cancellation.
type DoneFunc func(err error)

// Pool runs background tasks keyed by node id.
type Pool struct {
	sem  *semaphore.Weighted
	base context.Context
	stop context.CancelFunc

	mu       sync.Mutex
	inflight map[nodeid.NodeID]context.CancelFunc
	closed   bool
	wg       sync.WaitGroup
}

// NewPool creates a pool allowing max concurrent tasks. Tasks inherit
// ctx's values but are only cancelled through the pool.
func NewPool(ctx context.Context, max int64) *Pool {
	if max <= 0 {
		max = DefaultMaxConcurrent
	}
	base, stop := context.WithCancel(context.WithoutCancel(ctx))
	return &Pool{
		sem:      semaphore.NewWeighted(max),
		base:     base,
		stop:     stop,
		inflight: make(map[nodeid.NodeID]context.CancelFunc),
	}
}

// Go submits fn for owner. It returns false, without running anything,
// when owner already has a task in flight or the pool is closed. A nil
// Pool runs fn synchronously.
func (p *Pool) Go(owner nodeid.NodeID, fn Func, done DoneFunc) bool {
	if p == nil {
		deliver(done, safeRun(context.Background(), fn))
		return true
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	if _, busy := p.inflight[owner]; busy {
		p.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(ctxlog.With(p.base, "nodeID", owner))
	p.inflight[owner] = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer p.finish(owner, cancel)

		if err := p.sem.Acquire(ctx, 1); err != nil {
			deliver(done, err)
			return
		}
		err := safeRun(ctx, fn)
		p.sem.Release(1)
		deliver(done, err)
	}()
	return true
}

func (p *Pool) finish(owner nodeid.NodeID, cancel context.CancelFunc) {
	cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, owner)
}

// Busy reports whether owner has a task in flight.
func (p *Pool) Busy(owner nodeid.NodeID) bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inflight[owner]
	return ok
}

// Len returns the number of tasks in flight.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inflight)
}

// Cancel cancels owner's task, if any.
func (p *Pool) Cancel(owner nodeid.NodeID) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if cancel, ok := p.inflight[owner]; ok {
		cancel()
	}
}

// Close cancels every task and waits for them to return, or for ctx.
func (p *Pool) Close(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.stop()

	waited := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		ctxlog.FromContext(ctx).Debug("Task pool closed.")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}

func safeRun(ctx context.Context, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return fn(ctx)
}

func deliver(done DoneFunc, err error) {
	if done != nil {
		done(err)
	}
}

type poolKey struct{}

// WithPool returns a context carrying p.
func WithPool(ctx context.Context, p *Pool) context.Context {
	return context.WithValue(ctx, poolKey{}, p)
}

// FromContext returns the pool carried by ctx, or nil. Calling Go on the
// nil pool runs the task inline.
func FromContext(ctx context.Context) *Pool {
	p, _ := ctx.Value(poolKey{}).(*Pool)
	return p
}
