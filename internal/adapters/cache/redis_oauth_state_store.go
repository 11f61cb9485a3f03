package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

const oauthStatePrefix = "auth:oauth:state:"

// RedisOAuthStateStore stores short-lived OAuth state/PKCE envelopes.
// Consume relies on GETDEL so a state value can be redeemed exactly once
// even when two callbacks race.
type RedisOAuthStateStore struct {
	client *redis.Client
}

func NewRedisOAuthStateStore(client *redis.Client) *RedisOAuthStateStore {
	return &RedisOAuthStateStore{client: client}
}

func (s *RedisOAuthStateStore) Put(ctx context.Context, state string, value ports.OAuthState, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, oauthStatePrefix+state, raw, ttl).Err()
}

func (s *RedisOAuthStateStore) Consume(ctx context.Context, state string) (*ports.OAuthState, error) {
	raw, err := s.client.GetDel(ctx, oauthStatePrefix+state).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out ports.OAuthState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
