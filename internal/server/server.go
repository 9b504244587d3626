package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/onboarding/internal/config"
	"github.com/congo-pay/onboarding/internal/routes"
)

// Server wraps the Fiber application and the cleanup of what routes opened.
type Server struct {
	app     *fiber.App
	cfg     config.Config
	cleanup func()
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(ctx context.Context, deps routes.Deps) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               deps.Cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		BodyLimit:             12 * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(deps.Logger),
	})

	cleanup, err := routes.Setup(ctx, app, deps)
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: deps.Cfg, cleanup: cleanup}, nil
}

// Listen starts the HTTP server and blocks until it stops.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server and closes publishers.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	if s.cleanup != nil {
		s.cleanup()
	}
	return err
}

// errorHandler renders every error as {"error": message}. Unexpected errors
// are logged and hidden behind a generic 500.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			logger.Error("unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}
