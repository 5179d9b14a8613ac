package auth

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdano/trackly/internal/config"
	"github.com/verdano/trackly/internal/domain/session"
	"github.com/verdano/trackly/internal/domain/user"
)

// LoginRequest represents the credentials presented at login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult represents a successful login. The session token travels
// back as an HTTP-only cookie; the CSRF token goes in the response body
// so the client can echo it in a header.
type LoginResult struct {
	User         user.PublicUser
	SessionToken string
	CSRFToken    string
}

// CheckResult represents a successful session check
type CheckResult struct {
	User      user.PublicUser
	CSRFToken string
}

// AuthService is the contract the handlers and middleware depend on
type AuthService interface {
	Register(req user.RegisterRequest) (*user.User, error)
	Login(req LoginRequest, device session.DeviceInfo) (*LoginResult, error)
	Logout(sess *session.Session) error
	CheckSession(u *user.User, sess *session.Session) (*CheckResult, error)
	RevokeAllSessions(userID uuid.UUID) error
}

// Service orchestrates credential verification, lockout bookkeeping and
// the session lifecycle
type Service struct {
	users      user.Repository
	userSvc    user.Service
	sessions   session.Service
	csrfSecret string
	cfg        config.AuthConfig
}

// NewService creates a new auth service
func NewService(users user.Repository, userSvc user.Service, sessions session.Service, csrfSecret string, cfg config.AuthConfig) *Service {
	return &Service{
		users:      users,
		userSvc:    userSvc,
		sessions:   sessions,
		csrfSecret: csrfSecret,
		cfg:        cfg,
	}
}

// Register creates a new user account
func (s *Service) Register(req user.RegisterRequest) (*user.User, error) {
	return s.userSvc.Register(req)
}

// Login verifies credentials and, on success, rotates the account onto a
// single fresh session.
//
// Two concurrent logins for the same user race on the invalidate-then-
// create step: each may invalidate the other's just-created session.
// Last write wins, which the single-active-session policy makes
// harmless; the loser simply has to log in again.
func (s *Service) Login(req LoginRequest, device session.DeviceInfo) (*LoginResult, error) {
	u, err := s.users.GetByEmail(user.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same failure as a wrong password so login cannot be used
			// to probe which emails exist.
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	lockoutWindow := time.Duration(s.cfg.LockoutWindowMins) * time.Minute
	now := time.Now().UTC()

	if u.IsLocked && u.LastFailedLoginAt != nil {
		elapsed := now.Sub(*u.LastFailedLoginAt)
		if elapsed < lockoutWindow {
			remaining := lockoutWindow - elapsed
			return nil, &AccountLockedError{
				RemainingMinutes: int(math.Ceil(remaining.Seconds() / 60)),
			}
		}

		// Lockout self-heals once the window has elapsed.
		u.IsLocked = false
		u.FailedLoginAttempts = 0
	}

	if !s.userSvc.VerifyPassword(u, req.Password) {
		u.FailedLoginAttempts++
		u.LastFailedLoginAt = &now
		if u.FailedLoginAttempts >= s.cfg.MaxFailedAttempts {
			u.IsLocked = true
		}
		if err := s.saveLoginState(u); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	u.FailedLoginAttempts = 0
	u.IsLocked = false
	u.LastLoginAt = &now
	if err := s.saveLoginState(u); err != nil {
		return nil, err
	}

	// Single active session per account: everything issued before this
	// login stops working.
	if err := s.sessions.InvalidateAllForUser(u.ID); err != nil {
		return nil, fmt.Errorf("failed to invalidate previous sessions: %w", err)
	}

	sess, err := s.sessions.Create(u.ID, device)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &LoginResult{
		User:         u.Public(),
		SessionToken: sess.Token,
		CSRFToken:    DeriveCSRFToken(sess.Token, s.csrfSecret),
	}, nil
}

// Logout soft-invalidates the session. Idempotent: logging out an
// already-invalid session is not an error.
func (s *Service) Logout(sess *session.Session) error {
	if sess == nil {
		return nil
	}
	return s.sessions.Invalidate(sess)
}

// CheckSession re-derives the CSRF token for an already-validated
// session. The session token itself is not rotated.
func (s *Service) CheckSession(u *user.User, sess *session.Session) (*CheckResult, error) {
	if u == nil || sess == nil {
		return nil, ErrNoActiveSession
	}

	return &CheckResult{
		User:      u.Public(),
		CSRFToken: DeriveCSRFToken(sess.Token, s.csrfSecret),
	}, nil
}

// RevokeAllSessions soft-invalidates every valid session the user has
func (s *Service) RevokeAllSessions(userID uuid.UUID) error {
	return s.sessions.InvalidateAllForUser(userID)
}

// saveLoginState persists the lockout counters and login timestamps via
// a column-scoped update that never touches the password hash.
func (s *Service) saveLoginState(u *user.User) error {
	state := user.LoginState{
		FailedLoginAttempts: u.FailedLoginAttempts,
		LastFailedLoginAt:   u.LastFailedLoginAt,
		IsLocked:            u.IsLocked,
		LastLoginAt:         u.LastLoginAt,
	}
	if err := s.users.UpdateLoginState(u.ID, state); err != nil {
		return fmt.Errorf("failed to update login state: %w", err)
	}
	return nil
}
