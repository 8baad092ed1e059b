package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/certificate"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/storage"
)

func main() {
	logging.Setup()
	if err := run(); err != nil {
		slog.Error("fiqhi backend stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	switch {
	case cfg.JWTSecret == "":
		return errors.New("JWT_SECRET environment variable is required")
	case cfg.DBPassword == "":
		return errors.New("DB_PASSWORD environment variable is required")
	}

	if err := database.Connect(cfg); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	db := database.DB
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Errors are also persisted to system_logs and pruned daily.
	pgLogs := logging.NewPGHandler(db)
	defer pgLogs.Stop()
	slog.SetDefault(slog.New(logging.NewMultiHandler(logging.NewJSONHandler(os.Stdout), pgLogs)))
	cleanupDone := make(chan struct{})
	defer close(cleanupDone)
	logging.StartCleanup(db, cfg.LogRetentionDays, cleanupDone)

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Env,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
		})
		if err != nil {
			slog.Error("sentry init failed", "error", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	var store storage.ObjectStore = storage.Disabled{}
	if cfg.StorageEnabled() {
		s3Store, err := storage.NewS3Store(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		store = s3Store
	} else {
		slog.Warn("certificate uploads disabled", "reason", "AWS_S3_BUCKET_NAME not set")
	}
	mailer := notify.New(cfg)
	m := metrics.New()

	cases := services.NewCaseService(db, m, mailer)
	assignments := services.NewAssignmentService(cases)

	app := newApp(cfg)
	routes.Setup(app, cfg, db, m, routes.Handlers{
		Auth:   handlers.NewAuthHandler(services.NewAuthService(db, cfg, mailer)),
		Users:  handlers.NewUserHandler(services.NewUserService(db)),
		Health: handlers.NewHealthHandler(),
		Fatwas: handlers.NewFatwaHandler(cases, assignments, services.NewFatwaService(cases)),
		Marriages: handlers.NewMarriageHandler(cases, assignments,
			services.NewMarriageService(cases, store, certificate.PDFRenderer{})),
		Reconciliation: handlers.NewReconciliationHandler(cases, assignments,
			services.NewReconciliationService(cases)),
		Registration: handlers.NewRegistrationHandler(services.NewRegistrationService(db, cfg, mailer, m)),
		Admin:        handlers.NewAdminHandler(assignments),
	})

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-listenErr:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig.String())
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

// newApp builds the fiber app with the global middleware chain. Routes are
// mounted separately.
func newApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		// Room for a maximum size certificate plus the multipart envelope.
		BodyLimit:    services.MaxCertificateSize + 1<<20,
		ErrorHandler: errorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{Repanic: true}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(securityHeaders)
	return app
}

func securityHeaders(c *fiber.Ctx) error {
	c.Set("X-Content-Type-Options", "nosniff")
	c.Set("X-Frame-Options", "DENY")
	c.Set("Referrer-Policy", "no-referrer")
	return c.Next()
}

// errorHandler renders errors that escaped the handlers (routing misses,
// body limit, panics) in the same envelope the handlers use.
func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		message = fe.Message
	}

	code := "internal"
	switch {
	case status == fiber.StatusUnauthorized:
		code = "unauthenticated"
	case status == fiber.StatusNotFound:
		code = "not_found"
	case status >= 500:
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err)
		message = "Internal server error"
	case status >= 400:
		code = "validation"
	}

	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Code: code, Message: message})
}
