package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrInvalidSession is returned when the session token is unknown or soft-invalidated
	ErrInvalidSession = errors.New("invalid session")
	// ErrExpiredSession is returned when the session has expired
	ErrExpiredSession = errors.New("session expired")
)

const tokenBytes = 32 // 256 bits of entropy per bearer token

// RevocationCache mirrors session invalidations into a shared cache so
// that any instance can reject a revoked token before trusting its
// database row. The Redis-backed implementation lives in internal/cache.
type RevocationCache interface {
	RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error
	IsSessionRevoked(ctx context.Context, sessionID string) (bool, error)
}

// Service interface for session operations
type Service interface {
	Create(userID uuid.UUID, device DeviceInfo) (*Session, error)
	Validate(token string, now time.Time) (*Session, error)
	Invalidate(sess *Session) error
	InvalidateAllForUser(userID uuid.UUID) error
	Cleanup(now time.Time) (int64, error)
}

// service struct for session operations
type service struct {
	repo            Repository
	ttlDays         int
	renewalDays     int
	revocationCache RevocationCache
}

// NewService creates a session Service with the given lifetime policy:
// sessions live ttlDays and are renewed back to the full TTL whenever a
// validated session has fewer than renewalDays remaining.
func NewService(repo Repository, ttlDays, renewalDays int) Service {
	return &service{repo: repo, ttlDays: ttlDays, renewalDays: renewalDays}
}

// NewServiceWithCache creates a Service configured with the provided repository and an optional session revocation cache.
// If revocationCache is nil the service will operate without a revocation cache.
func NewServiceWithCache(repo Repository, ttlDays, renewalDays int, revocationCache RevocationCache) Service {
	return &service{repo: repo, ttlDays: ttlDays, renewalDays: renewalDays, revocationCache: revocationCache}
}

// generateToken generates a random bearer token for the session
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create creates a new valid session for the user with a fresh token
func (s *service) Create(userID uuid.UUID, device DeviceInfo) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now().UTC()
	sess := &Session{
		UserID:         userID.String(),
		Token:          token,
		DeviceID:       device.DeviceID,
		UserAgent:      device.UserAgent,
		IPAddress:      device.IPAddress,
		ExpiresAt:      ExtendedExpiry(now, s.ttlDays),
		LastActivityAt: now,
		IsValid:        true,
	}
	sess.ID = uuid.New()

	if err := s.repo.Create(sess); err != nil {
		return nil, err
	}

	return sess, nil
}

// Validate resolves a bearer token to a usable session. On success the
// session's activity timestamp is updated and, when it is inside the
// renewal window, its expiry is pushed back to the full TTL. The rolling
// renewal means an active session is rewritten at most once per
// renewalDays rather than on every request.
func (s *service) Validate(token string, now time.Time) (*Session, error) {
	sess, err := s.repo.FindByToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	if !sess.IsValid || s.isRevoked(sess) {
		return nil, ErrInvalidSession
	}

	if sess.IsExpired(now) {
		return nil, ErrExpiredSession
	}

	if err := s.repo.UpdateActivity(sess.ID, now); err != nil {
		return nil, err
	}
	sess.LastActivityAt = now

	renewalWindow := time.Duration(s.renewalDays) * 24 * time.Hour
	if sess.ExpiresAt.Sub(now) < renewalWindow {
		until := ExtendedExpiry(now, s.ttlDays)
		if err := s.repo.ExtendExpiry(sess.ID, until); err != nil {
			return nil, err
		}
		sess.ExpiresAt = until
	}

	return sess, nil
}

// Invalidate soft-invalidates a session. Invalidating an already-invalid
// session is a no-op, which makes logout idempotent.
func (s *service) Invalidate(sess *Session) error {
	if err := s.repo.Invalidate(sess.ID); err != nil {
		return err
	}
	sess.IsValid = false
	s.recordRevocation(sess)
	return nil
}

// InvalidateAllForUser soft-invalidates every valid session the user has.
// Used on login (single active session per account) and for "log out
// everywhere".
func (s *service) InvalidateAllForUser(userID uuid.UUID) error {
	if s.revocationCache != nil {
		sessions, err := s.repo.FindValidByUserID(userID)
		if err == nil {
			for i := range sessions {
				s.recordRevocation(&sessions[i])
			}
		} else {
			slog.Warn("Failed to list sessions for revocation cache", "error", err, "user_id", userID.String())
		}
	}
	return s.repo.InvalidateAllForUser(userID)
}

// Cleanup permanently deletes expired and invalidated sessions
func (s *service) Cleanup(now time.Time) (int64, error) {
	return s.repo.DeleteExpiredOrInvalid(now)
}

// isRevoked consults the revocation cache when one is configured. It
// catches sessions another instance invalidated whose row this instance
// has not re-read yet. Cache failures degrade to "not revoked"; the
// database row stays authoritative.
func (s *service) isRevoked(sess *Session) bool {
	if s.revocationCache == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	revoked, err := s.revocationCache.IsSessionRevoked(ctx, sess.ID.String())
	if err != nil {
		slog.Warn("Failed to check session revocation in Redis", "error", err, "session_id", sess.ID.String())
		return false
	}
	return revoked
}

// recordRevocation mirrors an invalidation into Redis when a cache is
// configured. Best-effort: the database row is authoritative.
func (s *service) recordRevocation(sess *Session) {
	if s.revocationCache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	if err := s.revocationCache.RevokeSession(ctx, sess.ID.String(), ttl); err != nil {
		slog.Warn("Failed to store session revocation in Redis", "error", err, "session_id", sess.ID.String())
	}
}
