package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdano/trackly/internal/config"
	"github.com/verdano/trackly/internal/domain/session"
	"github.com/verdano/trackly/internal/domain/user"
	"github.com/verdano/trackly/internal/utils"
)

const (
	// UserKey is the key used to store the resolved user in Fiber context
	UserKey = "auth_user"
	// SessionKey is the key used to store the resolved session in Fiber context
	SessionKey = "auth_session"
	// DeviceKey is the key used to store device info in Fiber context
	DeviceKey = "device_info"

	// SessionCookie carries the bearer session token
	SessionCookie = "session"
	// DeviceCookie carries the synthesized device identifier
	DeviceCookie = "deviceId"
	// CSRFHeader is the header the client echoes the CSRF token in
	CSRFHeader = "X-CSRF-Token"
	// DeviceHeader lets clients supply their own device identifier
	DeviceHeader = "X-Device-Id"

	deviceCookieMaxAge = 365 * 24 * time.Hour
)

// RequireAuth resolves the session cookie to a usable session and its
// owning user, attaching both to the request context. Validation updates
// the session's activity timestamp and applies the rolling expiry
// extension as a side effect.
func RequireAuth(users user.Repository, sessions session.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		if token == "" {
			return utils.ErrorResponse(c, ErrCodeAuthRequired)
		}

		sess, err := sessions.Validate(token, time.Now().UTC())
		if err != nil {
			if errors.Is(err, session.ErrInvalidSession) || errors.Is(err, session.ErrExpiredSession) {
				return utils.ErrorResponse(c, ErrCodeInvalidSession)
			}
			slog.Error("Session validation failed", "error", err)
			return utils.ErrorResponse(c, utils.ErrInternalServer)
		}

		userID, err := uuid.Parse(sess.UserID)
		if err != nil {
			slog.Error("Session carries malformed user id", "session_id", sess.ID.String(), "error", err)
			return utils.ErrorResponse(c, ErrCodeAuthRequired)
		}

		u, err := users.GetByID(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Orphaned session: the owning user is gone.
				return utils.ErrorResponse(c, ErrCodeAuthRequired)
			}
			slog.Error("User lookup failed", "error", err)
			return utils.ErrorResponse(c, utils.ErrInternalServer)
		}

		c.Locals(UserKey, u)
		c.Locals(SessionKey, sess)

		return c.Next()
	}
}

// CSRFProtection enforces the double-submit check on state-changing
// requests: the CSRF header must match the token derived from the
// session cookie. Nothing is looked up server-side; a token derived from
// a different session token cannot verify.
func CSRFProtection(csrfSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		csrfToken := c.Get(CSRFHeader)
		sessionToken := c.Cookies(SessionCookie)

		if csrfToken == "" || sessionToken == "" {
			return utils.ErrorResponse(c, ErrCodeCSRFTokenMissing)
		}

		if !VerifyCSRFToken(csrfToken, sessionToken, csrfSecret) {
			return utils.ErrorResponse(c, ErrCodeInvalidCSRFToken)
		}

		return c.Next()
	}
}

// TrackDevice attaches device metadata to the request and plants a
// device cookie when none is present. Best-effort: it never rejects a
// request.
func TrackDevice(env *config.Environment) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID := c.Get(DeviceHeader)
		if deviceID == "" {
			deviceID = c.Cookies(DeviceCookie)
		}

		userAgent := c.Get(fiber.HeaderUserAgent, "unknown")
		ip := c.IP()
		if ip == "" {
			ip = "unknown"
		}

		if deviceID == "" {
			deviceID = synthesizeDeviceID(userAgent, ip, time.Now())
			c.Cookie(&fiber.Cookie{
				Name:     DeviceCookie,
				Value:    deviceID,
				Path:     "/",
				MaxAge:   int(deviceCookieMaxAge.Seconds()),
				HTTPOnly: true,
				Secure:   env.IsProduction(),
				SameSite: cookieSameSite(env),
			})
		}

		c.Locals(DeviceKey, session.DeviceInfo{
			DeviceID:  deviceID,
			UserAgent: userAgent,
			IPAddress: ip,
		})

		return c.Next()
	}
}

// synthesizeDeviceID derives a fresh device identifier for clients that
// do not present one
func synthesizeDeviceID(userAgent, ip string, now time.Time) string {
	sum := sha256.Sum256([]byte(userAgent + ip + fmt.Sprintf("%d", now.UnixNano())))
	return hex.EncodeToString(sum[:])
}

// cookieSameSite returns the SameSite policy for the environment: None
// in production (the SPA is served from a different origin), Lax in
// development.
func cookieSameSite(env *config.Environment) string {
	if env.IsProduction() {
		return fiber.CookieSameSiteNoneMode
	}
	return fiber.CookieSameSiteLaxMode
}

// CurrentUser extracts the authenticated user from Fiber context
func CurrentUser(c *fiber.Ctx) *user.User {
	u, ok := c.Locals(UserKey).(*user.User)
	if !ok {
		return nil
	}
	return u
}

// CurrentSession extracts the authenticated session from Fiber context
func CurrentSession(c *fiber.Ctx) *session.Session {
	s, ok := c.Locals(SessionKey).(*session.Session)
	if !ok {
		return nil
	}
	return s
}

// CurrentDevice extracts the tracked device info from Fiber context
func CurrentDevice(c *fiber.Ctx) session.DeviceInfo {
	d, ok := c.Locals(DeviceKey).(session.DeviceInfo)
	if !ok {
		return session.DeviceInfo{}
	}
	return d
}
