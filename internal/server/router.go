package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/verdano/trackly/internal/config"
	"github.com/verdano/trackly/internal/domain/auth"
	"github.com/verdano/trackly/internal/domain/session"
	"github.com/verdano/trackly/internal/domain/user"
	"github.com/verdano/trackly/internal/utils"
)

// Deps carries the wired services the routes need
type Deps struct {
	Env         *config.Environment
	Auth        config.AuthConfig
	AuthHandler *auth.Handler
	Users       user.Repository
	Sessions    session.Service
}

// SetupRoutes sets up the routes for the application
func SetupRoutes(app *fiber.App, d *Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})

	requireAuth := auth.RequireAuth(d.Users, d.Sessions)
	csrf := auth.CSRFProtection(d.Env.CSRFSecret)
	trackDevice := auth.TrackDevice(d.Env)

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", d.AuthHandler.Register)
	authRoutes.Post("/login", LoginRateLimiter(d.Auth), trackDevice, d.AuthHandler.Login)
	authRoutes.Post("/logout", requireAuth, csrf, d.AuthHandler.Logout)
	authRoutes.Get("/check", requireAuth, d.AuthHandler.CheckSession)
	authRoutes.Post("/revoke-all", requireAuth, csrf, d.AuthHandler.RevokeAllSessions)
}

// LoginRateLimiter limits login attempts per client IP over a sliding
// window. It fires independently of the per-account lockout: the two
// defend against different attacker models (distributed vs. single
// account brute force) and carry distinct error codes.
func LoginRateLimiter(cfg config.AuthConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.LoginRateLimit,
		Expiration: time.Duration(cfg.LoginRateWindowMins) * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.ErrorResponse(c, auth.ErrCodeTooManyAttempts)
		},
	})
}
