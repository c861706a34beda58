package store

import (
	"context"
	"fmt"
	"time"
)

// RevokeToken adds a token's JTI to the revocation list and drops revocations
// whose tokens have expired anyway.
func RevokeToken(ctx context.Context, q Querier, jti string, expiresAt time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	_, _ = q.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, time.Now().UTC(),
	)

	return nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func IsTokenRevoked(ctx context.Context, q Querier, jti string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return count > 0, nil
}
