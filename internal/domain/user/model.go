package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/verdano/trackly/internal/database"
)

type User struct {
	database.BaseModel
	Email    string `gorm:"column:email;unique;not null"`
	Name     string `gorm:"column:name"`
	Password string `gorm:"column:password;not null"`

	FailedLoginAttempts int        `gorm:"column:failed_login_attempts;default:0"`
	LastFailedLoginAt   *time.Time `gorm:"column:last_failed_login_at"`
	IsLocked            bool       `gorm:"column:is_locked;default:false"`
	LastLoginAt         *time.Time `gorm:"column:last_login_at"`
}

func (User) TableName() string {
	return "users"
}

// PublicUser is the client-visible projection of a User. The password hash
// and lockout bookkeeping never leave the service.
type PublicUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// Public returns the client-visible fields of the user
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
	}
}
