// Package socketio provides the SocketIO Emit node kind, which publishes
// changed values to a Socket.IO server.
package socketio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultTimeout bounds a whole connect-emit-await round.
const DefaultTimeout = 10 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct{}

// Emit connects, emits the value, optionally waits for a reply event and
// disconnects again.
type Emit struct {
	node.Base
}

// request is a frozen copy of the inputs for one round.
type request struct {
	URL                string
	Namespace          string
	Event              string
	Data               any
	OnEvent            string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

func (n *Emit) CreateInputs(d *node.Declarer) {
	d.Input("url", cty.String, cty.StringVal(""))
	d.Input("namespace", cty.String, cty.StringVal("/"))
	d.Input("event", cty.String, cty.StringVal("message"))
	d.Input("value", cty.DynamicPseudoType, cty.NilVal)
	d.Input("on_event", cty.String, cty.StringVal(""))
	d.Input("timeout", cty.String, cty.StringVal(DefaultTimeout.String()))
	d.Input("insecure_skip_verify", cty.Bool, cty.False)
}

func (n *Emit) CreateOutputs(d *node.Declarer) {
	d.Output("response", cty.DynamicPseudoType)
	d.Output(node.StatusOutput, cty.String)
}

func (n *Emit) Process(ctx context.Context) error {
	value := n.InputValue("value")
	rawURL := n.InputValue("url")
	if node.IsAbsent(value) || node.IsAbsent(rawURL) || rawURL.AsString() == "" {
		return nil
	}
	if !n.InputsChanged("url", "namespace", "event", "value", "on_event") {
		return nil
	}

	req, err := n.request()
	if err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx).With("nodeID", n.State().ID(), "url", req.URL, "event", req.Event)
	return n.Background(ctx, func(ctx context.Context) error {
		resp, err := roundTrip(ctx, logger, req)
		if err != nil {
			return err
		}
		if !node.IsAbsent(resp) {
			return n.PublishOutput("response", resp)
		}
		return nil
	})
}

func (n *Emit) request() (request, error) {
	req := request{
		URL:       n.InputValue("url").AsString(),
		Namespace: stringOr(n.InputValue("namespace"), "/"),
		Event:     stringOr(n.InputValue("event"), "message"),
		OnEvent:   stringOr(n.InputValue("on_event"), ""),
		Timeout:   DefaultTimeout,
	}
	if v := n.InputValue("insecure_skip_verify"); !node.IsAbsent(v) {
		req.InsecureSkipVerify = v.True()
	}
	if t := stringOr(n.InputValue("timeout"), ""); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return req, fmt.Errorf("failed to parse timeout: %w", err)
		}
		req.Timeout = d
	}
	data, err := toInterface(n.InputValue("value"))
	if err != nil {
		return req, err
	}
	req.Data = data
	return req, nil
}

type opResult struct {
	value cty.Value
	err   error
}

func roundTrip(ctx context.Context, logger *slog.Logger, req request) (cty.Value, error) {
	parsedURL, err := url.Parse(req.URL)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return cty.NilVal, fmt.Errorf("URL %q must be absolute", req.URL)
	}

	opCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if req.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(req.Namespace, opts)
	defer io.Disconnect()

	var connected atomic.Bool
	done := make(chan opResult, 1)
	finish := func(r opResult) {
		select {
		case done <- r:
		default:
		}
	}

	if req.OnEvent != "" {
		io.Once(types.EventName(req.OnEvent), func(data ...any) {
			if len(data) == 0 {
				finish(opResult{value: cty.NullVal(cty.DynamicPseudoType)})
				return
			}
			v, err := fromInterface(data[0])
			finish(opResult{value: v, err: err})
		})
	}
	io.On(types.EventName("connect"), func(...any) {
		connected.Store(true)
		logger.Info("Successfully connected.", "namespace", req.Namespace, "sid", io.Id())
		io.Emit(req.Event, req.Data)
		if req.OnEvent == "" {
			finish(opResult{})
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		finish(opResult{err: err})
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		if connected.Load() {
			return cty.NilVal, fmt.Errorf("timed out after connecting while waiting for event '%s'", req.OnEvent)
		}
		return cty.NilVal, errors.New("timed out while waiting for initial connection")
	case res := <-done:
		return res.value, res.err
	}
}

func stringOr(v cty.Value, def string) string {
	if node.IsAbsent(v) || v.AsString() == "" {
		return def
	}
	return v.AsString()
}

// Register registers the kinds with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(registry.Kind{
		Name:        "SocketIO Emit",
		Category:    "Network",
		Description: "Emits changed values to a Socket.IO server.",
		New:         func() node.Node { return &Emit{} },
	})
}
