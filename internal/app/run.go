package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/nodegrid/internal/api"
	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/engine"
	"github.com/specialistvlad/nodegrid/internal/hclgraph"
	"github.com/specialistvlad/nodegrid/internal/scheduler"
	"github.com/specialistvlad/nodegrid/internal/statefile"
)

// shutdownTimeout bounds saving state and closing the API on exit.
const shutdownTimeout = 10 * time.Second

// Run loads the graph, runs the execution loop and serves the control API
// until the tick limit, the duration or ctx ends the run. On the way out it
// stops the loop with a bounded join and saves state if configured.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	store, closeStore, err := a.openStateStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	eng := engine.New(ctx, a.registry, engine.Options{
		Rate:        a.config.Rate,
		JoinTimeout: a.config.JoinTimeout,
		MaxTasks:    a.config.MaxTasks,
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if cerr := eng.Close(closeCtx); cerr != nil {
			a.logger.Warn("Engine closed with errors.", "error", cerr)
		}
	}()

	if err := a.load(ctx, eng, store); err != nil {
		return err
	}

	var srv *api.Server
	serveErr := make(chan error, 1)
	if a.config.HTTPPort > 0 {
		srv = api.New(ctx, eng)
		addr := fmt.Sprintf(":%d", a.config.HTTPPort)
		go func() {
			a.logger.Debug("Control API starting.", "port", a.config.HTTPPort)
			serveErr <- srv.Listen(addr)
		}()
	}

	ticksDone := make(chan struct{})
	if limit := uint64(a.config.Ticks); limit > 0 {
		var once sync.Once
		eng.OnTick(func(r engine.TickReport) {
			if r.Seq >= limit {
				once.Do(func() { close(ticksDone) })
			}
		})
	}

	var deadline <-chan time.Time
	if a.config.Duration > 0 {
		timer := time.NewTimer(a.config.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	a.logger.Info("🚀 Starting execution loop...", "rate", eng.Rate(), "ticks", a.config.Ticks, "duration", a.config.Duration)
	eng.Start(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("Interrupted, shutting down.")
	case <-ticksDone:
		a.logger.Debug("Tick limit reached.", "ticks", a.config.Ticks)
	case <-deadline:
		a.logger.Debug("Run duration elapsed.", "duration", a.config.Duration)
	case serr := <-serveErr:
		if serr != nil {
			err = fmt.Errorf("control API failed: %w", serr)
		}
	}

	return errors.Join(err, a.shutdown(ctx, eng, srv, store))
}

// load applies the graph definition or restores saved state. Saved state
// replaces the whole graph, so a definition is not loaded alongside it.
func (a *App) load(ctx context.Context, eng *engine.Engine, store statefile.Store) error {
	if a.config.StateIn != "" {
		if a.config.GraphPath != "" {
			a.logger.Warn("Graph definition ignored, restoring saved state instead.", "graph", a.config.GraphPath, "state", a.config.StateIn)
		}
		doc, err := store.Load(ctx, a.config.StateIn)
		if err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}
		if _, err := statefile.Restore(ctx, eng, doc); err != nil {
			a.logger.Warn("State restored with problems.", "error", err)
		}
		return nil
	}

	if a.config.GraphPath == "" {
		a.logger.Warn("No graph given, starting empty.")
		return nil
	}
	def, err := hclgraph.Load(ctx, a.config.GraphPath)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	if _, err := def.Apply(ctx, eng); err != nil {
		return fmt.Errorf("failed to apply graph: %w", err)
	}
	return nil
}

func (a *App) shutdown(ctx context.Context, eng *engine.Engine, srv *api.Server, store statefile.Store) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := eng.Stop(ctx); err != nil {
		if !errors.Is(err, scheduler.ErrJoinTimeout) {
			errs = append(errs, err)
		}
		a.logger.Warn("Execution loop did not stop cleanly.", "error", err)
	}

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("control API shutdown: %w", err))
		}
	}

	if a.config.StateOut != "" {
		doc, err := statefile.Capture(ctx, eng)
		if err == nil {
			err = store.Save(ctx, a.config.StateOut, doc)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to save state: %w", err))
		} else {
			a.logger.Info("💾 State saved.", "target", a.config.StateOut, "nodes", len(doc.Nodes))
		}
	}

	if s, ok := eng.LastTick(); ok {
		a.logger.Info("🏁 Execution finished.", "ticks", s.Seq)
	} else {
		a.logger.Info("🏁 Execution finished.", "ticks", 0)
	}
	return errors.Join(errs...)
}
