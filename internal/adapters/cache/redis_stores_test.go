package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisOAuthStateStoreConsumeIsSingleUse(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)
	store := NewRedisOAuthStateStore(client)
	ctx := context.Background()

	state := ports.OAuthState{
		Provider:     domain.ProviderGoogle,
		CodeVerifier: "verifier-1",
		RedirectURI:  "https://app.example.com/callback",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Put(ctx, "state-1", state, time.Minute); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := store.Consume(ctx, "state-1")
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if got == nil {
		t.Fatalf("expected stored state")
	}
	if got.Provider != domain.ProviderGoogle || got.CodeVerifier != "verifier-1" {
		t.Fatalf("state round-trip mismatch: %+v", got)
	}

	// Second redemption observes the state as absent.
	got, err = store.Consume(ctx, "state-1")
	if err != nil {
		t.Fatalf("second consume errored: %v", err)
	}
	if got != nil {
		t.Fatalf("expected consumed state to be gone, got %+v", got)
	}
}

func TestRedisOAuthStateStoreUnknownStateIsAbsent(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)
	store := NewRedisOAuthStateStore(client)

	got, err := store.Consume(context.Background(), "never-stored")
	if err != nil {
		t.Fatalf("consume errored: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown state, got %+v", got)
	}
}

func TestRedisOAuthStateStoreExpires(t *testing.T) {
	t.Parallel()

	mr, client := newTestRedis(t)
	store := NewRedisOAuthStateStore(client)
	ctx := context.Background()

	if err := store.Put(ctx, "state-ttl", ports.OAuthState{Provider: domain.ProviderFacebook}, time.Minute); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	got, err := store.Consume(ctx, "state-ttl")
	if err != nil {
		t.Fatalf("consume errored: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired state to be absent, got %+v", got)
	}
}

func TestRedisRateLimitStoreEnforcesWindow(t *testing.T) {
	t.Parallel()

	mr, client := newTestRedis(t)
	store := NewRedisRateLimitStore(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := store.Allow(ctx, "login:10.0.0.1", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d errored: %v", i, err)
		}
		if !allowed {
			t.Fatalf("request %d should fit the budget", i)
		}
	}

	allowed, err := store.Allow(ctx, "login:10.0.0.1", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow errored: %v", err)
	}
	if allowed {
		t.Fatalf("expected denial past the limit")
	}

	// A different key has its own budget.
	allowed, err = store.Allow(ctx, "login:10.0.0.2", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow errored: %v", err)
	}
	if !allowed {
		t.Fatalf("expected independent budget per key")
	}

	// The window resets after expiry.
	mr.FastForward(2 * time.Minute)
	allowed, err = store.Allow(ctx, "login:10.0.0.1", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow errored: %v", err)
	}
	if !allowed {
		t.Fatalf("expected fresh budget after window expiry")
	}
}

func TestRedisRateLimitStoreZeroLimitIsUnlimited(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)
	store := NewRedisRateLimitStore(client)

	for i := 0; i < 10; i++ {
		allowed, err := store.Allow(context.Background(), "open", 0, time.Minute)
		if err != nil {
			t.Fatalf("allow errored: %v", err)
		}
		if !allowed {
			t.Fatalf("zero limit must never deny")
		}
	}
}
