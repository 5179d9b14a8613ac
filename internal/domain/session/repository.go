package session

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(sess *Session) error
	FindByID(id uuid.UUID) (*Session, error)
	FindByToken(token string) (*Session, error)
	UpdateActivity(id uuid.UUID, t time.Time) error
	ExtendExpiry(id uuid.UUID, until time.Time) error
	Invalidate(id uuid.UUID) error
	InvalidateAllForUser(userID uuid.UUID) error
	FindValidByUserID(userID uuid.UUID) ([]Session, error)
	DeleteExpiredOrInvalid(now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) Create(sess *Session) error {
	return r.db.Create(sess).Error
}

func (r *repository) FindByID(id uuid.UUID) (*Session, error) {
	var sess Session
	err := r.db.Where("id = ?", id).First(&sess).Error
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *repository) FindByToken(token string) (*Session, error) {
	var sess Session
	err := r.db.Where("token = ?", token).First(&sess).Error
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *repository) UpdateActivity(id uuid.UUID, t time.Time) error {
	return r.db.Model(&Session{}).
		Where("id = ? AND is_valid = ?", id, true).
		Update("last_activity_at", t).Error
}

func (r *repository) ExtendExpiry(id uuid.UUID, until time.Time) error {
	return r.db.Model(&Session{}).
		Where("id = ? AND is_valid = ?", id, true).
		Update("expires_at", until).Error
}

// Invalidate soft-deletes a session. The row stays behind for the
// janitor so a request holding the token mid-flight sees "not usable"
// instead of a vanished record.
func (r *repository) Invalidate(id uuid.UUID) error {
	return r.db.Model(&Session{}).
		Where("id = ? AND is_valid = ?", id, true).
		Update("is_valid", false).Error
}

func (r *repository) InvalidateAllForUser(userID uuid.UUID) error {
	return r.db.Model(&Session{}).
		Where("user_id = ? AND is_valid = ?", userID.String(), true).
		Update("is_valid", false).Error
}

func (r *repository) FindValidByUserID(userID uuid.UUID) ([]Session, error) {
	var sessions []Session
	err := r.db.Where("user_id = ? AND is_valid = ?", userID.String(), true).Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteExpiredOrInvalid physically removes every session that is past
// its expiry or already soft-invalidated, returning the number deleted.
func (r *repository) DeleteExpiredOrInvalid(now time.Time) (int64, error) {
	res := r.db.Where("expires_at < ? OR is_valid = ?", now, false).Delete(&Session{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
