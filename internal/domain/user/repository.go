package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoginState carries the per-attempt credential bookkeeping written on
// every login attempt, success or failure.
type LoginState struct {
	FailedLoginAttempts int
	LastFailedLoginAt   *time.Time
	IsLocked            bool
	LastLoginAt         *time.Time
}

// Repository interface for user operations
type Repository interface {
	Create(user *User) error
	GetByID(id uuid.UUID) (*User, error)
	GetByEmail(email string) (*User, error)
	UpdateLoginState(id uuid.UUID, state LoginState) error
	UpdatePassword(id uuid.UUID, hash string) error
}

// repository struct for user operations
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new user repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

// Create creates a new user
func (r *repository) Create(user *User) error {
	return r.db.Create(user).Error
}

// GetByID gets a user by ID
func (r *repository) GetByID(id uuid.UUID) (*User, error) {
	var user User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail gets a user by email. Callers are expected to pass an
// already-normalized address.
func (r *repository) GetByEmail(email string) (*User, error) {
	var user User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLoginState writes the lockout counters and login timestamps.
// The update is column-scoped: the password hash is never part of this
// write, so saving login bookkeeping cannot rehash or clobber it.
func (r *repository) UpdateLoginState(id uuid.UUID, state LoginState) error {
	return r.db.Model(&User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"failed_login_attempts": state.FailedLoginAttempts,
			"last_failed_login_at":  state.LastFailedLoginAt,
			"is_locked":             state.IsLocked,
			"last_login_at":         state.LastLoginAt,
		}).Error
}

// UpdatePassword replaces the stored hash. This is the only write that
// touches the password column.
func (r *repository) UpdatePassword(id uuid.UUID, hash string) error {
	return r.db.Model(&User{}).
		Where("id = ?", id).
		Update("password", hash).Error
}
