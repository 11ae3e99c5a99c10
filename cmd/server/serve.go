package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/database"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/logging"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/mail"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/routes"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/services"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/tokens"
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// ERROR+ records also go to system_logs
	dbLogHandler := logging.NewDBHandler(db)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewStdoutHandler(os.Stdout, cfg.AppEnv),
		dbLogHandler,
	)))

	if pruned, err := logging.Prune(cmd.Context(), db, cfg.LogRetentionDays); err != nil {
		slog.Error("log retention prune failed", "error", err)
	} else if pruned > 0 {
		slog.Info("pruned old system logs", "deleted", pruned)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	mailer, err := mail.New(cfg)
	if err != nil {
		return err
	}

	// Services
	issuer := tokens.NewIssuer(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.ConfirmationCodeTTL)
	authService := services.NewAuthService(db, issuer, mailer)
	userService := services.NewUserService(db)
	catalogService := services.NewCatalogService(db)
	titleService := services.NewTitleService(db)
	reviewService := services.NewReviewService(db)
	commentService := services.NewCommentService(db)

	// Handlers
	h := routes.Handlers{
		Auth:    handlers.NewAuthHandler(authService),
		Health:  handlers.NewHealthHandler(db),
		User:    handlers.NewUserHandler(userService, cfg.PageSize),
		Catalog: handlers.NewCatalogHandler(catalogService, cfg.PageSize),
		Title:   handlers.NewTitleHandler(titleService, cfg.PageSize),
		Review:  handlers.NewReviewHandler(reviewService, cfg.PageSize),
		Comment: handlers.NewCommentHandler(commentService, cfg.PageSize),
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("metrics registration failed: %w", err)
	}
	prom := fiberprometheus.New("yamdb")

	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(compress.New())
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, db, h, prom)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)
	slog.SetDefault(slog.New(logging.NewStdoutHandler(os.Stdout, cfg.AppEnv)))

	if err := database.Close(db); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only client errors keep their message
	if code >= 500 {
		slog.Error("unhandled server error",
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"action", c.Method()+" "+c.Path(),
			"error", err.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
