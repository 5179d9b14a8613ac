package auth

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/verdano/trackly/internal/utils"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoActiveSession is returned when a session check runs with no
	// resolved session or user
	ErrNoActiveSession = errors.New("no active session")
)

// AccountLockedError is returned while an account's lockout window is
// still open. It carries the remaining minutes, rounded up.
type AccountLockedError struct {
	RemainingMinutes int
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account is locked, try again in %d minutes", e.RemainingMinutes)
}

// Client-visible authentication errors with stable codes
var (
	ErrCodeInvalidCredentials = utils.NewAPIError("INVALID_CREDENTIALS", "Invalid credentials", fiber.StatusUnauthorized)
	ErrCodeAccountLocked      = utils.NewAPIError("ACCOUNT_LOCKED", "Account is locked. Please try again later", fiber.StatusUnauthorized)
	ErrCodeTooManyAttempts    = utils.NewAPIError("TOO_MANY_ATTEMPTS", "Too many login attempts, please try again after 15 minutes", fiber.StatusTooManyRequests)
	ErrCodeAuthRequired       = utils.NewAPIError("AUTHENTICATION_REQUIRED", "Authentication required", fiber.StatusUnauthorized)
	ErrCodeInvalidSession     = utils.NewAPIError("INVALID_OR_EXPIRED_SESSION", "Invalid or expired session", fiber.StatusUnauthorized)
	ErrCodeCSRFTokenMissing   = utils.NewAPIError("CSRF_TOKEN_MISSING", "CSRF token missing", fiber.StatusForbidden)
	ErrCodeInvalidCSRFToken   = utils.NewAPIError("INVALID_CSRF_TOKEN", "Invalid CSRF token", fiber.StatusForbidden)
	ErrCodeNoActiveSession    = utils.NewAPIError("NO_ACTIVE_SESSION", "No active session", fiber.StatusUnauthorized)
	ErrCodeEmailRegistered    = utils.NewAPIError("EMAIL_ALREADY_REGISTERED", "Email already registered", fiber.StatusBadRequest)
)
