package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/nodegrid/internal/ctxlog"
)

const (
	// MinRate is the lowest accepted tick rate in ticks per second.
	MinRate = 0.1
	// DefaultRate is the tick rate of a new scheduler.
	DefaultRate = 1.0
	// DefaultJoinTimeout bounds how long Stop waits for the worker.
	DefaultJoinTimeout = 2 * time.Second
)

// ErrJoinTimeout is returned by Stop when the worker did not exit in time.
var ErrJoinTimeout = errors.New("execution loop did not stop within the join timeout")

// State is the scheduler's lifecycle state.
type State int

const (
	Stopped State = iota
	Running
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TickFunc performs one tick of work.
type TickFunc func(ctx context.Context)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRate sets the initial rate.
func WithRate(rate float64) Option {
	return func(s *Scheduler) { s.rate = ClampRate(rate) }
}

// WithJoinTimeout sets how long Stop waits for the worker.
func WithJoinTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.joinTimeout = d
		}
	}
}

// Scheduler runs a TickFunc on a single background goroutine.
type Scheduler struct {
	tick        TickFunc
	joinTimeout time.Duration

	mu     sync.Mutex
	state  State
	rate   float64
	stopCh chan struct{}
	done   chan struct{}
	kick   chan struct{}

	ticks atomic.Uint64
}

// New creates a stopped scheduler.
func New(tick TickFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		tick:        tick,
		joinTimeout: DefaultJoinTimeout,
		rate:        DefaultRate,
		kick:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClampRate returns rate raised to at least MinRate.
func ClampRate(rate float64) float64 {
	if math.IsNaN(rate) || rate < MinRate {
		return MinRate
	}
	return rate
}

// IntervalFor returns the pause between ticks for a rate.
func IntervalFor(rate float64) time.Duration {
	return time.Duration(float64(time.Second) / ClampRate(rate))
}

// SetRate changes the tick rate and returns the value actually applied.
func (s *Scheduler) SetRate(rate float64) float64 {
	applied := ClampRate(rate)
	s.mu.Lock()
	s.rate = applied
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
	return applied
}

// Rate returns the current tick rate.
func (s *Scheduler) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// Interval returns the current pause between ticks.
func (s *Scheduler) Interval() time.Duration {
	return IntervalFor(s.Rate())
}

// State returns the lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ticks returns the number of completed ticks since creation.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks.Load()
}

// Start launches the worker. It returns false when already running. The
// worker keeps ctx's values (such as its logger) but not its cancellation;
// it runs until Stop is called.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := ctxlog.FromContext(ctx)
	if s.state == Running {
		logger.Debug("Execution loop already running, start ignored.")
		return false
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.stopCh, s.done = stop, done
	s.state = Running

	logger.Info("▶️ Execution loop started.", "rate", s.rate)
	go s.run(context.WithoutCancel(ctx), stop, done)
	return true
}

// Stop signals the worker and waits for it to exit, at most the join
// timeout. The scheduler is Stopped when Stop returns, even on timeout.
func (s *Scheduler) Stop(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return nil
	}
	stop, done := s.stopCh, s.done
	close(stop)
	s.state = Stopped
	s.stopCh, s.done = nil, nil
	s.mu.Unlock()

	timer := time.NewTimer(s.joinTimeout)
	defer timer.Stop()

	select {
	case <-done:
		logger.Info("⏹️ Execution loop stopped.")
		return nil
	case <-timer.C:
		logger.Warn("Execution loop did not stop in time.", "timeout", s.joinTimeout)
		return fmt.Errorf("%w (%s)", ErrJoinTimeout, s.joinTimeout)
	}
}

// markStopped moves to Stopped if stop still belongs to the current worker.
func (s *Scheduler) markStopped(stop chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh == stop {
		s.state = Stopped
		s.stopCh, s.done = nil, nil
	}
}

func (s *Scheduler) run(ctx context.Context, stop chan struct{}, done chan struct{}) {
	logger := ctxlog.FromContext(ctx)
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Execution loop crashed, stopping.", "panic", r)
			s.markStopped(stop)
		}
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}

		s.tick(ctx)
		s.ticks.Add(1)

		if !s.wait(stop, time.Now()) {
			return
		}
	}
}

// wait sleeps one interval counted from ended, the end of the last tick,
// so a slow tick never shortens the pause. A rate change retimes the
// pause against the same point. It returns false when stop fires.
func (s *Scheduler) wait(stop chan struct{}, ended time.Time) bool {
	timer := time.NewTimer(s.Interval())
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return false
		case <-timer.C:
			return true
		case <-s.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.Interval() - time.Since(ended))
		}
	}
}
