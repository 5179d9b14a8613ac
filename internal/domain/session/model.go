package session

import (
	"time"

	"github.com/verdano/trackly/internal/database"
)

// DeviceInfo describes the device a session was issued to. Informational
// only; nothing here is security-enforcing.
type DeviceInfo struct {
	DeviceID  string
	UserAgent string
	IPAddress string
}

type Session struct {
	database.BaseModel

	UserID string `gorm:"column:user_id;type:uuid;not null;index"`
	Token  string `gorm:"column:token;unique;not null"`

	DeviceID  string `gorm:"column:device_id;type:text"`
	UserAgent string `gorm:"column:user_agent;type:text"`
	IPAddress string `gorm:"column:ip_address;type:text"`

	ExpiresAt      time.Time `gorm:"column:expires_at;not null"`
	LastActivityAt time.Time `gorm:"column:last_activity_at"`
	IsValid        bool      `gorm:"column:is_valid;default:true"`
}

func (Session) TableName() string {
	return "sessions"
}

// IsExpired reports whether the session has passed its expiry at the given time
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsUsable reports whether the session can authenticate a request:
// it must be valid and not expired.
func (s *Session) IsUsable(now time.Time) bool {
	return s.IsValid && !s.IsExpired(now)
}

// ExtendedExpiry returns the expiry a session gets when renewed at the
// given time
func ExtendedExpiry(now time.Time, days int) time.Time {
	return now.Add(time.Duration(days) * 24 * time.Hour)
}

// Device returns the device metadata recorded on the session
func (s *Session) Device() DeviceInfo {
	return DeviceInfo{
		DeviceID:  s.DeviceID,
		UserAgent: s.UserAgent,
		IPAddress: s.IPAddress,
	}
}
