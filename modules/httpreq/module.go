// Package httpreq provides the HTTP Request node kind. Requests run on
// the engine's task pool.
package httpreq

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// MaxBodySize caps how much of a response body is published.
const MaxBodySize = 1 << 20

// Module implements the registry.Module interface for this package.
type Module struct {
	Client *http.Client
}

// Request performs an HTTP request whenever its inputs change.
type Request struct {
	node.Base
	client *http.Client
}

func (n *Request) CreateInputs(d *node.Declarer) {
	d.Input("url", cty.String, cty.StringVal(""))
	d.Input("method", cty.String, cty.StringVal(http.MethodGet))
	d.Input("body", cty.String, cty.NilVal)
}

func (n *Request) CreateOutputs(d *node.Declarer) {
	d.Output("status_code", cty.Number)
	d.Output("body", cty.String)
	d.Output(node.StatusOutput, cty.String)
}

func (n *Request) Process(ctx context.Context) error {
	url, method := n.InputValue("url"), n.InputValue("method")
	if node.IsAbsent(url) || url.AsString() == "" {
		return nil
	}
	m := http.MethodGet
	if !node.IsAbsent(method) && method.AsString() != "" {
		m = strings.ToUpper(method.AsString())
	}
	var body string
	if v := n.InputValue("body"); !node.IsAbsent(v) {
		body = v.AsString()
	}
	if !n.InputsChanged("url", "method", "body") {
		return nil
	}

	logger := ctxlog.FromContext(ctx).With("nodeID", n.State().ID(), "method", m, "url", url.AsString())
	return n.Background(ctx, func(ctx context.Context) error {
		return n.do(ctx, logger, m, url.AsString(), body)
	})
}

func (n *Request) do(ctx context.Context, logger *slog.Logger, method, url, body string) error {
	logger.Info("Making HTTP request.")

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response.", "status", resp.Status)

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := n.PublishOutput("status_code", cty.NumberIntVal(int64(resp.StatusCode))); err != nil {
		return err
	}
	return n.PublishOutput("body", cty.StringVal(string(bodyBytes)))
}

// Close releases idle connections held by the node's client.
func (n *Request) Close() error {
	n.client.CloseIdleConnections()
	return nil
}

// Register registers the kinds with the engine.
func (m *Module) Register(r *registry.Registry) {
	if m.Client == nil {
		m.Client = NewClient(DefaultTimeout)
	}
	r.RegisterKind(registry.Kind{
		Name:        "HTTP Request",
		Category:    "Network",
		Description: "Performs an HTTP request and publishes the status code and body.",
		New:         func() node.Node { return &Request{client: m.Client} },
	})
}
