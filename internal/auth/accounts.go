package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/holdfolio/internal/model"
	"github.com/erazemk/holdfolio/internal/store"
)

var (
	// ErrInvalidCredentials is returned when the email or password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when signing up with an email already in use.
	ErrEmailTaken = errors.New("email already registered")
)

// Register validates the credentials and creates a new account.
// Validation failures wrap store.ErrInvalid.
func Register(ctx context.Context, q store.Querier, email, password string) (*model.User, error) {
	email, err := model.NormalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	if err := model.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}

	existing, err := store.GetUserByEmail(ctx, q, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	return store.CreateUser(ctx, q, email, string(hash))
}

// Authenticate returns the user matching email and password.
func Authenticate(ctx context.Context, q store.Querier, email, password string) (*model.User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := store.GetUserByEmail(ctx, q, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword replaces the password of userID after checking the current one.
func ChangePassword(ctx context.Context, q store.Querier, userID, current, next string) error {
	user, err := store.GetUser(ctx, q, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if err := model.ValidatePassword(next); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return store.UpdateUserPassword(ctx, q, userID, string(hash))
}
