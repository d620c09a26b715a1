package models

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted for a user
const MinPasswordLength = 5

var (
	ErrEmailRequired    = errors.New("users must have an email address")
	ErrPasswordTooShort = errors.New("password must be at least 5 characters")
)

// User is an account identified by email address
type User struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	IsStaff      bool       `gorm:"not null" json:"is_staff"`
	IsSuperuser  bool       `gorm:"not null" json:"is_superuser"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NormalizeEmail trims the address and lower-cases its domain part.
// The local part is case sensitive and left untouched.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// NewUser builds an active user with a hashed password
func NewUser(email, password, name string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	u := &User{
		Email:    email,
		Name:     strings.TrimSpace(name),
		IsActive: true,
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// NewSuperuser builds a user with staff and superuser flags set
func NewSuperuser(email, password, name string) (*User, error) {
	u, err := NewUser(email, password, name)
	if err != nil {
		return nil, err
	}
	u.IsStaff = true
	u.IsSuperuser = true
	return u, nil
}

// SetPassword validates and bcrypt-hashes password
func (u *User) SetPassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Roles returns the authorization roles implied by the user's flags
func (u *User) Roles() []string {
	roles := []string{"user"}
	if u.IsStaff {
		roles = append(roles, "staff")
	}
	if u.IsSuperuser {
		roles = append(roles, "superuser")
	}
	return roles
}

func (u User) String() string {
	return u.Email
}
