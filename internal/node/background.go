package node

import (
	"context"

	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Values published on a background node's "status" output.
const (
	StatusPending = "pending"
	StatusDone    = "done"
)

// StatusOutput is the output key Background reports progress on.
const StatusOutput = "status"

// Background runs fn on the task pool carried by ctx and tracks its
// progress on the node's "status" output, which the node must declare.
// When the node already has a task in flight the inputs are forgotten so
// the next tick submits again.
func (b *Base) Background(ctx context.Context, fn task.Func) error {
	st := b.State()
	logger := ctxlog.FromContext(ctx).With("nodeID", st.ID(), "kind", st.Kind())

	if err := b.SetOutputValue(StatusOutput, cty.StringVal(StatusPending)); err != nil {
		return err
	}
	accepted := task.FromContext(ctx).Go(st.ID(), fn, func(err error) {
		status := StatusDone
		if err != nil {
			status = "error: " + err.Error()
			logger.Warn("Background task failed.", "error", err)
		} else {
			logger.Debug("Background task finished.")
		}
		if serr := b.PublishOutput(StatusOutput, cty.StringVal(status)); serr != nil {
			logger.Error("Failed to publish task status.", "error", serr)
		}
	})
	if !accepted {
		b.ForgetInputs()
		logger.Debug("Task already in flight, will retry.")
	}
	return nil
}
