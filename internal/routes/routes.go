package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/onboarding/internal/config"
	"github.com/congo-pay/onboarding/internal/middleware"
	"github.com/congo-pay/onboarding/internal/onboarding"
)

// Deps aggregates shared dependencies required to wire routes. Every
// backing service is optional in development; nil selects the in-memory or
// logging fallback.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Rabbit  *amqp.Connection
	Objects *minio.Client
	Logger  *slog.Logger
}

// Setup installs middleware, assembles the onboarding service and registers
// every route. The returned cleanup flushes publishers opened here.
func Setup(ctx context.Context, app *fiber.App, d Deps) (func(), error) {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	svc, cleanup, err := assemble(ctx, d)
	if err != nil {
		return nil, err
	}
	handler := onboarding.NewHandler(svc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	var throttle fiber.Handler
	if d.Cache != nil {
		throttle = middleware.IPThrottle(d.Cache, "signup", d.Cfg.SignupIPMaxPerMinute, d.Logger)
	}
	RegisterOnboardingRoutes(api, handler, throttle)
	RegisterAdminRoutes(api, handler, middleware.AdminToken(d.Cfg.AdminToken))
	RegisterAccountRoutes(api, handler)
	RegisterAuthRoutes(api, handler, throttle)

	return cleanup, nil
}
