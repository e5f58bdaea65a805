package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TokenRevoker records revoked access token ids until the token would have
// expired anyway.
type TokenRevoker struct {
	rdb    goredis.Cmdable
	now    func() time.Time
	logger *slog.Logger
}

// NewTokenRevoker creates a revoker on rdb.
func NewTokenRevoker(rdb goredis.Cmdable, logger *slog.Logger) *TokenRevoker {
	if rdb == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenRevoker{rdb: rdb, now: time.Now, logger: logger.With("component", "token_revoker")}
}

// Revoke marks jti revoked until expiresAt. Already expired tokens are
// ignored.
func (r *TokenRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return errors.New("token id cannot be empty")
	}
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.rdb.Set(ctx, revokedKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	r.logger.Debug("token revoked", "jti", jti, "ttl", ttl)
	return nil
}

// IsRevoked reports whether jti has been revoked.
func (r *TokenRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.rdb.Get(ctx, revokedKey(jti)).Err()
	switch {
	case errors.Is(err, goredis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("check token revocation: %w", err)
	default:
		return true, nil
	}
}
