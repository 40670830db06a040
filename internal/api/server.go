package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/engine"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/specialistvlad/nodegrid/internal/registry"
)

// Server serves the control API for one engine.
type Server struct {
	ctx context.Context
	eng *engine.Engine
	app *fiber.App
}

// New creates a server for eng. ctx carries the logger and is used for
// engine calls made on behalf of requests.
func New(ctx context.Context, eng *engine.Engine) *Server {
	s := &Server{
		ctx: ctx,
		eng: eng,
		app: fiber.New(fiber.Config{AppName: "nodegrid", Immutable: true}),
	}
	s.app.Use(s.logRequests)
	s.routes()
	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	ctxlog.FromContext(s.ctx).Info("🛰️ Control API listening.", "address", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops the server, waiting for active requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	ctxlog.FromContext(s.ctx).Debug("Shutting down control API...")
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)
	s.app.Get("/kinds", s.kinds)

	s.app.Get("/nodes", s.listNodes)
	s.app.Post("/nodes", s.createNode)
	s.app.Get("/nodes/:id", s.getNode)
	s.app.Delete("/nodes/:id", s.deleteNode)
	s.app.Put("/nodes/:id/widgets/:key", s.setWidget)

	s.app.Get("/links", s.getLinks)
	s.app.Put("/links", s.putLinks)

	s.app.Put("/rate", s.setRate)
	s.app.Post("/run/start", s.start)
	s.app.Post("/run/stop", s.stop)
	s.app.Get("/status", s.status)

	s.app.Get("/state", s.getState)
	s.app.Post("/state", s.postState)
}

func (s *Server) logRequests(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	ctxlog.FromContext(s.ctx).Debug("Request handled.",
		"method", c.Method(), "path", c.Path(), "status", c.Response().StatusCode(), "duration", time.Since(start))
	return err
}

func (s *Server) logger() *slog.Logger {
	return ctxlog.FromContext(s.ctx)
}

func fail(c fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// failErr maps engine errors to status codes.
func failErr(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, engine.ErrNodeNotFound),
		errors.Is(err, engine.ErrSlotNotFound),
		errors.Is(err, node.ErrUnknownSlot):
		return fail(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrUnknownKind),
		errors.Is(err, engine.ErrNodeExists):
		return fail(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	return fail(c, fiber.StatusInternalServerError, err.Error())
}

func nodeParam(c fiber.Ctx) (nodeid.NodeID, bool) {
	id, err := nodeid.ParseNodeID(c.Params("id"))
	return id, err == nil
}
