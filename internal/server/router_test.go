package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/verdano/trackly/internal/config"
	"github.com/verdano/trackly/internal/domain/auth"
	"github.com/verdano/trackly/internal/domain/session"
	"github.com/verdano/trackly/internal/domain/user"
	"github.com/verdano/trackly/internal/utils"
)

const testSecret = "test-csrf-secret"

// apiResponse mirrors the JSON envelope the handlers produce
type apiResponse struct {
	Success bool `json:"success"`
	Data    struct {
		CSRFToken string `json:"csrfToken"`
		User      struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"user"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := utils.SetupTestDB(t, &user.User{}, &session.Session{})

	env := &config.Environment{
		Environment: config.EnvironmentDevelopment,
		CSRFSecret:  testSecret,
	}
	authCfg := config.AuthConfig{
		SessionTTLDays:      30,
		RenewalWindowDays:   15,
		LockoutWindowMins:   15,
		MaxFailedAttempts:   5,
		LoginRateLimit:      5,
		LoginRateWindowMins: 15,
	}

	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo)
	sessionService := session.NewService(session.NewRepository(db), authCfg.SessionTTLDays, authCfg.RenewalWindowDays)
	authService := auth.NewService(userRepo, userService, sessionService, env.CSRFSecret, authCfg)

	app := fiber.New()
	SetupRoutes(app, &Deps{
		Env:         env,
		Auth:        authCfg,
		AuthHandler: auth.NewHandler(authService, env, authCfg.SessionTTLDays),
		Users:       userRepo,
		Sessions:    sessionService,
	})

	return app, db
}

type testRequest struct {
	method  string
	path    string
	body    any
	cookies map[string]string
	headers map[string]string
}

func doRequest(t *testing.T, app *fiber.App, tr testRequest) (*http.Response, *apiResponse) {
	t.Helper()

	var reqBody *bytes.Reader
	if tr.body != nil {
		data, err := json.Marshal(tr.body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(tr.method, tr.path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	for k, v := range tr.headers {
		req.Header.Set(k, v)
	}
	for k, v := range tr.cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var parsed apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp, &parsed
}

func responseCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func register(t *testing.T, app *fiber.App, email, password string) {
	t.Helper()
	resp, body := doRequest(t, app, testRequest{
		method: "POST",
		path:   "/api/auth/register",
		body:   fiber.Map{"email": email, "password": password, "name": "Test User"},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.True(t, body.Success)
}

func login(t *testing.T, app *fiber.App, email, password string) (sessionToken, csrfToken string) {
	t.Helper()
	resp, body := doRequest(t, app, testRequest{
		method: "POST",
		path:   "/api/auth/login",
		body:   fiber.Map{"email": email, "password": password},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	cookie := responseCookie(resp, auth.SessionCookie)
	require.NotNil(t, cookie, "login must set the session cookie")
	require.NotEmpty(t, body.Data.CSRFToken)
	return cookie.Value, body.Data.CSRFToken
}

// TestAuthFlow walks the full register/login/CSRF/logout scenario over
// the wire.
func TestAuthFlow(t *testing.T) {
	app, _ := newTestApp(t)

	register(t, app, "a@x.com", "secret1")
	sessionToken, csrfToken := login(t, app, "a@x.com", "secret1")

	t.Run("check returns the user and the same csrf token", func(t *testing.T) {
		resp, body := doRequest(t, app, testRequest{
			method:  "GET",
			path:    "/api/auth/check",
			cookies: map[string]string{auth.SessionCookie: sessionToken},
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "a@x.com", body.Data.User.Email)
		assert.Equal(t, csrfToken, body.Data.CSRFToken)
	})

	t.Run("state-changing request with wrong csrf token", func(t *testing.T) {
		resp, body := doRequest(t, app, testRequest{
			method:  "POST",
			path:    "/api/auth/logout",
			cookies: map[string]string{auth.SessionCookie: sessionToken},
			headers: map[string]string{auth.CSRFHeader: "wrong"},
		})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "INVALID_CSRF_TOKEN", body.Error.Code)
	})

	t.Run("csrf token from a different session", func(t *testing.T) {
		foreign := auth.DeriveCSRFToken("some-other-session-token", testSecret)
		resp, body := doRequest(t, app, testRequest{
			method:  "POST",
			path:    "/api/auth/logout",
			cookies: map[string]string{auth.SessionCookie: sessionToken},
			headers: map[string]string{auth.CSRFHeader: foreign},
		})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "INVALID_CSRF_TOKEN", body.Error.Code)
	})

	t.Run("state-changing request without csrf token", func(t *testing.T) {
		resp, body := doRequest(t, app, testRequest{
			method:  "POST",
			path:    "/api/auth/logout",
			cookies: map[string]string{auth.SessionCookie: sessionToken},
		})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "CSRF_TOKEN_MISSING", body.Error.Code)
	})

	t.Run("logout with matching csrf token", func(t *testing.T) {
		resp, body := doRequest(t, app, testRequest{
			method:  "POST",
			path:    "/api/auth/logout",
			cookies: map[string]string{auth.SessionCookie: sessionToken},
			headers: map[string]string{auth.CSRFHeader: csrfToken},
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.True(t, body.Success)

		cleared := responseCookie(resp, auth.SessionCookie)
		require.NotNil(t, cleared)
		assert.Empty(t, cleared.Value, "logout must clear the session cookie")
	})

	t.Run("second logout with the dead token is rejected by the gate", func(t *testing.T) {
		resp, body := doRequest(t, app, testRequest{
			method:  "POST",
			path:    "/api/auth/logout",
			cookies: map[string]string{auth.SessionCookie: sessionToken},
			headers: map[string]string{auth.CSRFHeader: csrfToken},
		})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "INVALID_OR_EXPIRED_SESSION", body.Error.Code)
	})
}

func TestRequireAuth(t *testing.T) {
	app, _ := newTestApp(t)

	t.Run("missing session cookie", func(t *testing.T) {
		resp, body := doRequest(t, app, testRequest{method: "GET", path: "/api/auth/check"})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "AUTHENTICATION_REQUIRED", body.Error.Code)
	})

	t.Run("unknown session token", func(t *testing.T) {
		resp, body := doRequest(t, app, testRequest{
			method:  "GET",
			path:    "/api/auth/check",
			cookies: map[string]string{auth.SessionCookie: "bogus"},
		})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "INVALID_OR_EXPIRED_SESSION", body.Error.Code)
	})
}

// TestRequireAuth_OrphanedSession covers a session that outlives its
// owner: the row is still valid but the user it points at is gone, so
// the gate must treat the request as unauthenticated.
func TestRequireAuth_OrphanedSession(t *testing.T) {
	app, db := newTestApp(t)
	register(t, app, "a@x.com", "secret1")
	sessionToken, _ := login(t, app, "a@x.com", "secret1")

	require.NoError(t, db.Where("email = ?", "a@x.com").Delete(&user.User{}).Error)

	resp, body := doRequest(t, app, testRequest{
		method:  "GET",
		path:    "/api/auth/check",
		cookies: map[string]string{auth.SessionCookie: sessionToken},
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "AUTHENTICATION_REQUIRED", body.Error.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	app, _ := newTestApp(t)
	register(t, app, "a@x.com", "secret1")

	resp, body := doRequest(t, app, testRequest{
		method: "POST",
		path:   "/api/auth/login",
		body:   fiber.Map{"email": "a@x.com", "password": "wrong"},
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", body.Error.Code)
}

func TestLogin_SetsDeviceCookie(t *testing.T) {
	app, _ := newTestApp(t)
	register(t, app, "a@x.com", "secret1")

	resp, _ := doRequest(t, app, testRequest{
		method: "POST",
		path:   "/api/auth/login",
		body:   fiber.Map{"email": "a@x.com", "password": "secret1"},
	})

	device := responseCookie(resp, auth.DeviceCookie)
	require.NotNil(t, device, "first login should plant a device cookie")
	assert.Len(t, device.Value, 64)
}

func TestRevokeAllSessions(t *testing.T) {
	app, _ := newTestApp(t)
	register(t, app, "a@x.com", "secret1")
	sessionToken, csrfToken := login(t, app, "a@x.com", "secret1")

	resp, body := doRequest(t, app, testRequest{
		method:  "POST",
		path:    "/api/auth/revoke-all",
		cookies: map[string]string{auth.SessionCookie: sessionToken},
		headers: map[string]string{auth.CSRFHeader: csrfToken},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)

	resp, body = doRequest(t, app, testRequest{
		method:  "GET",
		path:    "/api/auth/check",
		cookies: map[string]string{auth.SessionCookie: sessionToken},
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_OR_EXPIRED_SESSION", body.Error.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	app, _ := newTestApp(t)
	register(t, app, "a@x.com", "secret1")

	resp, body := doRequest(t, app, testRequest{
		method: "POST",
		path:   "/api/auth/register",
		body:   fiber.Map{"email": "a@x.com", "password": "other"},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "EMAIL_ALREADY_REGISTERED", body.Error.Code)
}

// TestLoginRateLimiter verifies the IP-keyed limiter fires after five
// attempts regardless of credential correctness, independently of the
// per-account lockout.
func TestLoginRateLimiter(t *testing.T) {
	app, _ := newTestApp(t)

	for i := 1; i <= 5; i++ {
		resp, _ := doRequest(t, app, testRequest{
			method: "POST",
			path:   "/api/auth/login",
			body:   fiber.Map{"email": fmt.Sprintf("u%d@x.com", i), "password": "whatever"},
		})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "attempt %d should pass the limiter", i)
	}

	resp, body := doRequest(t, app, testRequest{
		method: "POST",
		path:   "/api/auth/login",
		body:   fiber.Map{"email": "u6@x.com", "password": "whatever"},
	})
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "TOO_MANY_ATTEMPTS", body.Error.Code)
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)
	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
