package store

import (
	"context"
	"fmt"
	"time"
)

// RevokeToken adds a token id to the revocation list until it expires.
// Expired revocations are pruned on the way.
func RevokeToken(ctx context.Context, q DBTX, jti string, expiresAt time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	if _, err := PruneRevokedTokens(ctx, q, time.Now()); err != nil {
		return err
	}
	return nil
}

// PruneRevokedTokens deletes revocations that expired before now.
func PruneRevokedTokens(ctx context.Context, q DBTX, now time.Time) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning revoked tokens: %w", err)
	}
	return result.RowsAffected()
}

// IsTokenRevoked reports whether a token id has been revoked.
func IsTokenRevoked(ctx context.Context, q DBTX, jti string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return n > 0, nil
}
