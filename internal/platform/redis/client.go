// Package redis holds the Redis-backed pieces of the application: access
// token revocation and the per-user missed-card tracker.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key this package writes.
const KeyPrefix = "cramdeck:"

// NewClient parses url, connects and pings.
func NewClient(ctx context.Context, url string, logger *slog.Logger) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if logger != nil {
		logger.Info("redis connected", "addr", opt.Addr, "db", opt.DB)
	}
	return rdb, nil
}

func revokedKey(jti string) string {
	return KeyPrefix + "revoked:" + jti
}

func missedKey(userID string) string {
	return KeyPrefix + "missed:" + userID
}
