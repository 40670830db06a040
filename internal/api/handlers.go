package api

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/specialistvlad/nodegrid/internal/links"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/statefile"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

func (s *Server) health(c fiber.Ctx) error {
	s.logger().Debug("Health check endpoint hit.", "remoteAddr", c.IP())
	return c.SendString("OK")
}

func (s *Server) kinds(c fiber.Ctx) error {
	return c.JSON(s.eng.Kinds().Categories())
}

func (s *Server) listNodes(c fiber.Ctx) error {
	var out []NodeView
	for _, id := range s.eng.NodeIDs(s.ctx) {
		if n, ok := s.eng.Node(s.ctx, id); ok {
			out = append(out, viewOf(n.State()))
		}
	}
	if out == nil {
		out = []NodeView{}
	}
	return c.JSON(out)
}

func (s *Server) getNode(c fiber.Ctx) error {
	id, ok := nodeParam(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid node id")
	}
	n, ok := s.eng.Node(s.ctx, id)
	if !ok {
		return fail(c, fiber.StatusNotFound, "node not found")
	}
	return c.JSON(viewOf(n.State()))
}

// CreateNodeRequest is the body of POST /nodes.
type CreateNodeRequest struct {
	Kind     string        `json:"kind"`
	Label    string        `json:"label"`
	Position node.Position `json:"position"`
}

func (s *Server) createNode(c fiber.Ctx) error {
	var req CreateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	if req.Kind == "" {
		return fail(c, fiber.StatusBadRequest, "kind is required")
	}
	st, err := s.eng.CreateNode(s.ctx, req.Kind, req.Label, req.Position)
	if err != nil {
		return failErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(viewOf(st))
}

func (s *Server) deleteNode(c fiber.Ctx) error {
	id, ok := nodeParam(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid node id")
	}
	report, err := s.eng.UnregisterNode(s.ctx, id)
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(report)
}

// WidgetRequest is the body of PUT /nodes/:id/widgets/:key. A null value
// clears the widget.
type WidgetRequest struct {
	Value json.RawMessage `json:"value"`
}

func (s *Server) setWidget(c fiber.Ctx) error {
	id, ok := nodeParam(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid node id")
	}
	var req WidgetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	v, err := decodeValue(req.Value)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	n, ok := s.eng.Node(s.ctx, id)
	if !ok {
		return fail(c, fiber.StatusNotFound, "node not found")
	}
	key := c.Params("key")
	if _, ok := n.State().InputSpec(key); !ok {
		return fail(c, fiber.StatusNotFound, "input not found")
	}
	if err := s.eng.SetWidget(s.ctx, id, key, v); err != nil {
		return fail(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(viewOf(n.State()))
}

func (s *Server) getLinks(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"links":   nonNil(s.eng.Links()),
		"logical": s.eng.LogicalLinks(s.ctx),
		"report":  s.eng.LastBuild(),
	})
}

func (s *Server) putLinks(c fiber.Ctx) error {
	var ls []links.Link
	if err := c.Bind().JSON(&ls); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	return c.JSON(s.eng.UpdateLinks(s.ctx, ls))
}

// RateRequest is the body of PUT /rate.
type RateRequest struct {
	Rate *float64 `json:"rate"`
}

func (s *Server) setRate(c fiber.Ctx) error {
	var req RateRequest
	if err := c.Bind().JSON(&req); err != nil || req.Rate == nil {
		return fail(c, fiber.StatusBadRequest, "rate is required")
	}
	applied := s.eng.SetRate(*req.Rate)
	return c.JSON(fiber.Map{"rate": applied, "interval": s.eng.Status(s.ctx).Interval.String()})
}

func (s *Server) start(c fiber.Ctx) error {
	started := s.eng.Start(s.ctx)
	return c.JSON(fiber.Map{"started": started, "state": s.eng.State().String()})
}

func (s *Server) stop(c fiber.Ctx) error {
	if err := s.eng.Stop(s.ctx); err != nil {
		return c.JSON(fiber.Map{"state": s.eng.State().String(), "warning": err.Error()})
	}
	return c.JSON(fiber.Map{"state": s.eng.State().String()})
}

func (s *Server) status(c fiber.Ctx) error {
	return c.JSON(s.eng.Status(s.ctx))
}

func (s *Server) getState(c fiber.Ctx) error {
	doc, err := statefile.Capture(s.ctx, s.eng)
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(doc)
}

func (s *Server) postState(c fiber.Ctx) error {
	var doc statefile.Document
	if err := c.Bind().JSON(&doc); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	restored, err := statefile.Restore(s.ctx, s.eng, &doc)
	resp := fiber.Map{"ids": restored.IDs, "report": restored.Report}
	if err != nil {
		resp["problems"] = splitErrors(err)
	}
	return c.JSON(resp)
}

// decodeValue turns plain JSON into a cty value with an implied type.
func decodeValue(raw json.RawMessage) (cty.Value, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return cty.NilVal, nil
	}
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(raw, ty)
}

func splitErrors(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

func nonNil(ls []links.Link) []links.Link {
	if ls == nil {
		return []links.Link{}
	}
	return ls
}
