package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/holdfolio/internal/model"
)

const userColumns = `id, email, password_hash, created_at`

// CreateUser creates a new user.
func CreateUser(ctx context.Context, q Querier, email, passwordHash string) (*model.User, error) {
	id := uuid.NewString()
	_, err := q.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)`,
		id, email, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, q Querier, id string) (*model.User, error) {
	u := &model.User{}
	err := q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by email address, ignoring case.
func GetUserByEmail(ctx context.Context, q Querier, email string) (*model.User, error) {
	u := &model.User{}
	err := q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower(?)`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q Querier, id, passwordHash string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}
