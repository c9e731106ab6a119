// Package server exposes the editing session over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-playground/pkg/service"
	"github.com/mattsolo1/grove-playground/pkg/store"
	"github.com/mattsolo1/grove-playground/pkg/tree"
	"github.com/mattsolo1/grove-playground/pkg/workspace"
)

// Config holds server configuration
type Config struct {
	Addr           string
	AllowedOrigins string
}

// Server serves the editing API using Fiber.
type Server struct {
	app       *fiber.App
	svc       *service.Service
	addr      string
	log       *logrus.Entry
	accessLog io.WriteCloser
}

// New builds the Fiber app and registers routes. Call Listen to serve.
func New(svc *service.Service, cfg Config, log *logrus.Entry) *Server {
	s := &Server{
		svc:       svc,
		addr:      cfg.Addr,
		log:       log,
		accessLog: log.WriterLevel(logrus.DebugLevel),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "grove-playground",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "${status} ${method} ${path} ${latency}\n",
		Output: s.accessLog,
	}))
	origins := cfg.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://localhost:5173"
	}
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	s.registerRoutes()
	return s
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves until Shutdown is called.
func (s *Server) Listen() error {
	s.log.WithField("addr", s.addr).Info("HTTP server started")
	if err := s.app.Listen(s.addr); err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.accessLog.Close()
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.health)

	api := s.app.Group("/api/v1")

	api.Get("/workspace", s.getWorkspace)
	api.Put("/workspace/:key", s.openWorkspace)
	api.Get("/workspaces", s.listWorkspaces)

	api.Get("/files/:id", s.getFile)
	api.Put("/files/:id", s.editFile)
	api.Post("/files/:id/open", s.openFile)
	api.Delete("/files/:id/open", s.closeFile)

	api.Post("/items", s.createItem)
	api.Patch("/items/:id", s.renameItem)
	api.Delete("/items/:id", s.deleteItem)

	api.Post("/flush", s.flush)
	api.Get("/search", s.searchFiles)
	api.Get("/stats", s.stats)
}

// errorHandler maps service errors to status codes.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
	case errors.Is(err, tree.ErrNotFound), errors.Is(err, store.ErrNotFound), errors.Is(err, workspace.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, service.ErrNoWorkspace):
		code = fiber.StatusConflict
	case errors.Is(err, service.ErrNotAFile), errors.Is(err, tree.ErrNotAFolder),
		errors.Is(err, tree.ErrInvalidItem), errors.Is(err, tree.ErrDuplicateID):
		code = fiber.StatusBadRequest
	}

	if code >= fiber.StatusInternalServerError {
		s.log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("HTTP error")
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
