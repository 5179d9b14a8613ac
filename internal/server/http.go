package server

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/verdano/trackly/internal/cache"
	"github.com/verdano/trackly/internal/config"
	"github.com/verdano/trackly/internal/database"
	"github.com/verdano/trackly/internal/domain/auth"
	"github.com/verdano/trackly/internal/domain/session"
	"github.com/verdano/trackly/internal/domain/user"
	"github.com/verdano/trackly/internal/migrations"
)

const shutdownTimeout = 10 * time.Second

// Start wires the application together and runs the HTTP server until a
// termination signal arrives.
func Start(cfg *config.Config, env *config.Environment) error {
	initLogger(cfg.Logging.Level)

	handle := database.NewHandle()
	db, err := handle.Connect(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return err
	}
	defer handle.Disconnect()
	slog.Info("Database connected successfully")

	if err := migrations.RunMigrations(cfg); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return err
	}
	slog.Info("Migrations completed successfully")

	var revocationCache session.RevocationCache
	if cfg.Redis.Enabled {
		if err := cache.ConnectRedis(&cfg.Redis); err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			return err
		}
		defer cache.CloseRedis()
		revocationCache = cache.NewSessionRevocationCache(cache.RedisClient)
	}

	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo)
	sessionRepo := session.NewRepository(db)
	sessionService := session.NewServiceWithCache(sessionRepo, cfg.Auth.SessionTTLDays, cfg.Auth.RenewalWindowDays, revocationCache)
	authService := auth.NewService(userRepo, userService, sessionService, env.CSRFSecret, cfg.Auth)
	authHandler := auth.NewHandler(authService, env, cfg.Auth.SessionTTLDays)

	app := fiber.New(fiber.Config{
		AppName: cfg.App.Name,
	})

	SetupRoutes(app, &Deps{
		Env:         env,
		Auth:        cfg.Auth,
		AuthHandler: authHandler,
		Users:       userRepo,
		Sessions:    sessionService,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	janitor := session.NewJanitor(sessionService, session.DefaultSweepInterval)
	go janitor.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		addr := cfg.Server.Address()
		slog.Info("Server starting", "address", addr)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		slog.Error("Failed to start server", "error", err)
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	// Final best-effort sweep before the process exits.
	janitor.RunOnce()

	return nil
}

func initLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}
