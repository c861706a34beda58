package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ResolveJWTSecret returns configured when it is set. Otherwise it returns
// the secret stored in the settings table, generating and storing one on
// first use. INSERT OR IGNORE followed by a re-read keeps concurrent first
// starts consistent.
func ResolveJWTSecret(ctx context.Context, q Querier, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('jwt_secret', ?)`,
		hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt secret: %w", err)
	}

	var secret string
	err = q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'jwt_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt secret: %w", err)
	}

	return secret, nil
}
