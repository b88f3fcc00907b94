package model

import (
	"regexp"
	"strings"
	"time"
)

// Role はユーザーの権限です
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// MinPasswordLength はパスワードの最小文字数です
const MinPasswordLength = 6

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ParseRole は文字列をRoleに変換します
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", NewValidationError("role", "must be user or admin")
	}
}

// User はユーザーのドメインモデルです
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail はメールアドレスを比較用に正規化します
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail はメールアドレスの形式を検証します
func ValidateEmail(email string) error {
	if email == "" {
		return NewValidationError("email", "is required")
	}
	if !emailRegex.MatchString(email) {
		return NewValidationError("email", "invalid email format")
	}
	return nil
}

// ValidatePassword はパスワードの長さを検証します
func ValidatePassword(password string) error {
	if password == "" {
		return NewValidationError("password", "is required")
	}
	if len(password) < MinPasswordLength {
		return NewValidationError("password", "must be at least 6 characters")
	}
	return nil
}
