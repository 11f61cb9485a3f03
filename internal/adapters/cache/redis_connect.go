package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Connect builds a Redis client from either a redis:// URL or a bare
// host:port address. Container and local configs hand us both shapes.
func Connect(_ context.Context, addr string) (*redis.Client, error) {
	if !strings.HasPrefix(addr, "redis://") {
		return redis.NewClient(&redis.Options{Addr: addr}), nil
	}
	opt, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}
