package auth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/verdano/trackly/internal/config"
	"github.com/verdano/trackly/internal/domain/user"
	"github.com/verdano/trackly/internal/utils"
)

type Handler struct {
	authService AuthService
	env         *config.Environment
	sessionTTL  time.Duration
}

// NewHandler creates the auth HTTP handler. sessionTTLDays controls the
// session cookie lifetime and must match the session service policy.
func NewHandler(s AuthService, env *config.Environment, sessionTTLDays int) *Handler {
	return &Handler{
		authService: s,
		env:         env,
		sessionTTL:  time.Duration(sessionTTLDays) * 24 * time.Hour,
	}
}

// Register creates a new account
func (h *Handler) Register(c *fiber.Ctx) error {
	var req user.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.ErrBadRequest)
	}

	u, err := h.authService.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailExists):
			return utils.ErrorResponse(c, ErrCodeEmailRegistered)
		case errors.Is(err, user.ErrEmailRequired), errors.Is(err, user.ErrPasswordRequired):
			return utils.ErrorResponse(c, utils.ErrBadRequest)
		default:
			slog.Error("Registration failed", "error", err)
			return utils.ErrorResponse(c, utils.ErrInternalServer)
		}
	}

	return utils.SuccessResponse(c, fiber.Map{
		"user": u.Public(),
	}, "Registration successful", fiber.StatusCreated)
}

// Login authenticates credentials, sets the session cookie and returns
// the CSRF token in the body. The CSRF token is deliberately not a
// cookie: a cross-site attacker can make the browser replay cookies but
// cannot read the body to echo the token back.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.ErrBadRequest)
	}

	res, err := h.authService.Login(req, CurrentDevice(c))
	if err != nil {
		var locked *AccountLockedError
		switch {
		case errors.As(err, &locked):
			return utils.ErrorResponse(c, ErrCodeAccountLocked.WithDetails(fiber.Map{
				"remainingMinutes": locked.RemainingMinutes,
			}))
		case errors.Is(err, ErrInvalidCredentials):
			return utils.ErrorResponse(c, ErrCodeInvalidCredentials)
		default:
			slog.Error("Login failed", "error", err)
			return utils.ErrorResponse(c, utils.ErrInternalServer)
		}
	}

	h.setSessionCookie(c, res.SessionToken)

	return utils.SuccessResponse(c, fiber.Map{
		"user":      res.User,
		"csrfToken": res.CSRFToken,
	}, "Login successful")
}

// Logout invalidates the current session and clears its cookie
func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.authService.Logout(CurrentSession(c)); err != nil {
		slog.Error("Logout failed", "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}

	h.clearSessionCookie(c)

	return utils.SuccessResponse(c, nil, "Logged out successfully")
}

// CheckSession returns the authenticated user along with a freshly
// derived CSRF token
func (h *Handler) CheckSession(c *fiber.Ctx) error {
	res, err := h.authService.CheckSession(CurrentUser(c), CurrentSession(c))
	if err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			return utils.ErrorResponse(c, ErrCodeNoActiveSession)
		}
		slog.Error("Session check failed", "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}

	return utils.SuccessResponse(c, fiber.Map{
		"user":      res.User,
		"csrfToken": res.CSRFToken,
	}, "Session is active")
}

// RevokeAllSessions logs the user out everywhere
func (h *Handler) RevokeAllSessions(c *fiber.Ctx) error {
	u := CurrentUser(c)
	if u == nil {
		return utils.ErrorResponse(c, ErrCodeAuthRequired)
	}

	if err := h.authService.RevokeAllSessions(u.ID); err != nil {
		slog.Error("Session revocation failed", "error", err, "user_id", u.ID.String())
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}

	h.clearSessionCookie(c)

	return utils.SuccessResponse(c, nil, "All sessions revoked successfully")
}

func (h *Handler) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HTTPOnly: true,
		Secure:   h.env.IsProduction(),
		SameSite: cookieSameSite(h.env),
	})
}

func (h *Handler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.env.IsProduction(),
		SameSite: cookieSameSite(h.env),
	})
}
