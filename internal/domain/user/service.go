package user

import (
	"errors"
	"strings"
)

var (
	// ErrEmailExists is returned when trying to register with an email that already exists
	ErrEmailExists = errors.New("email already registered")
	// ErrEmailRequired is returned when trying to register with an empty email
	ErrEmailRequired = errors.New("email is required")
	// ErrPasswordRequired is returned when trying to register with an empty password
	ErrPasswordRequired = errors.New("password is required")
)

// RegisterRequest represents the input for user registration
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Service interface for user operations
type Service interface {
	Register(req RegisterRequest) (*User, error)
	GetByEmail(email string) (*User, error)
	VerifyPassword(u *User, password string) bool
	ChangePassword(u *User, newPassword string) error
}

// service struct for user operations
type service struct {
	repo Repository
}

// NewService creates a new user service
func NewService(repo Repository) Service {
	return &service{repo}
}

// NormalizeEmail trims and lowercases an email address so lookups and
// uniqueness are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register registers a new user. The password is hashed exactly once,
// before the insert; no later write path rehashes it.
func (s *service) Register(req RegisterRequest) (*User, error) {
	email := NormalizeEmail(req.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if req.Password == "" {
		return nil, ErrPasswordRequired
	}

	if _, err := s.repo.GetByEmail(email); err == nil {
		return nil, ErrEmailExists
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:    email,
		Name:     strings.TrimSpace(req.Name),
		Password: hashedPassword,
	}

	if err := s.repo.Create(user); err != nil {
		return nil, err
	}

	return user, nil
}

// GetByEmail gets a user by normalized email
func (s *service) GetByEmail(email string) (*User, error) {
	return s.repo.GetByEmail(NormalizeEmail(email))
}

// VerifyPassword verifies if the provided password matches the user's hashed password
func (s *service) VerifyPassword(u *User, password string) bool {
	return VerifyPassword(password, u.Password)
}

// ChangePassword hashes and stores a new password for the user
func (s *service) ChangePassword(u *User, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(u.ID, hash); err != nil {
		return err
	}
	u.Password = hash
	return nil
}
