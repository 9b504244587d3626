package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/congo-pay/onboarding/internal/config"
	"github.com/congo-pay/onboarding/internal/infra"
	"github.com/congo-pay/onboarding/internal/logging"
	"github.com/congo-pay/onboarding/internal/routes"
	"github.com/congo-pay/onboarding/internal/server"
	"github.com/congo-pay/onboarding/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server exited cleanly")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", slog.Any("error", err))
		}
	}()

	deps := routes.Deps{Cfg: cfg, Logger: logger}

	if cfg.DatabaseURL != "" {
		if cfg.MigrateOnStart {
			if err := infra.Migrate(cfg.DatabaseURL, true, logger); err != nil {
				return err
			}
		}
		var db *pgxpool.Pool
		if db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		defer db.Close()
		deps.DB = db
	}

	if cfg.RedisURL != "" {
		var cache *redis.Client
		if cache, err = infra.NewRedisClient(ctx, cfg.RedisURL); err != nil {
			return err
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", slog.Any("error", err))
			}
		}()
		deps.Cache = cache
	}

	if cfg.RabbitMQURL != "" {
		var conn *amqp.Connection
		if conn, err = infra.NewRabbitConnection(cfg.RabbitMQURL); err != nil {
			return err
		}
		defer conn.Close()
		deps.Rabbit = conn
	}

	if cfg.MinioEndpoint != "" {
		var objects *minio.Client
		if objects, err = infra.NewMinioClient(infra.ObjectStoreConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
		}); err != nil {
			return err
		}
		deps.Objects = objects
	}

	srv, err := server.New(ctx, deps)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", slog.String("addr", cfg.Address()), slog.String("env", cfg.AppEnv))
		return srv.Listen()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
