package cache

import (
	"context"
	"testing"
	"time"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

func TestMemoryOAuthStateStoreConsumeIsSingleUse(t *testing.T) {
	t.Parallel()

	store := NewMemoryOAuthStateStore()
	ctx := context.Background()

	if err := store.Put(ctx, "state-1", ports.OAuthState{
		Provider:     domain.ProviderGoogle,
		CodeVerifier: "verifier-1",
	}, time.Minute); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := store.Consume(ctx, "state-1")
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if got == nil || got.CodeVerifier != "verifier-1" {
		t.Fatalf("unexpected state: %+v", got)
	}

	got, err = store.Consume(ctx, "state-1")
	if err != nil {
		t.Fatalf("second consume errored: %v", err)
	}
	if got != nil {
		t.Fatalf("expected consumed state to be gone")
	}
}

func TestMemoryOAuthStateStoreExpires(t *testing.T) {
	t.Parallel()

	store := NewMemoryOAuthStateStore()
	ctx := context.Background()

	if err := store.Put(ctx, "state-ttl", ports.OAuthState{Provider: domain.ProviderFacebook}, -time.Second); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, err := store.Consume(ctx, "state-ttl")
	if err != nil {
		t.Fatalf("consume errored: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired state to be absent")
	}
}

func TestMemoryRateLimitStoreEnforcesBudget(t *testing.T) {
	t.Parallel()

	store := NewMemoryRateLimitStore()
	ctx := context.Background()

	var denied bool
	for i := 0; i < 10; i++ {
		allowed, err := store.Allow(ctx, "login:10.0.0.1", 3, time.Hour)
		if err != nil {
			t.Fatalf("allow errored: %v", err)
		}
		if !allowed {
			denied = true
			break
		}
	}
	if !denied {
		t.Fatalf("expected denial within 10 calls under a budget of 3")
	}

	allowed, err := store.Allow(ctx, "login:10.0.0.2", 3, time.Hour)
	if err != nil {
		t.Fatalf("allow errored: %v", err)
	}
	if !allowed {
		t.Fatalf("expected independent budget per key")
	}
}

func TestMemoryRateLimitStoreZeroLimitIsUnlimited(t *testing.T) {
	t.Parallel()

	store := NewMemoryRateLimitStore()
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
