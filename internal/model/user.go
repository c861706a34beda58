package model

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// User is an account that owns items.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks that a password meets the minimum requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// NormalizeEmail trims and validates an email address.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email address")
	}
	return email, nil
}
