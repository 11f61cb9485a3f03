package unit

import (
	"testing"
	"time"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
)

func TestShouldLock(t *testing.T) {
	t.Parallel()

	if domain.ShouldLock(domain.FailedLoginThreshold - 1) {
		t.Fatalf("expected no lock below threshold")
	}
	if !domain.ShouldLock(domain.FailedLoginThreshold) {
		t.Fatalf("expected lock at threshold")
	}
	if !domain.ShouldLock(domain.FailedLoginThreshold + 3) {
		t.Fatalf("expected lock above threshold")
	}
}

func TestIsLocked(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	if domain.IsLocked(nil, now) {
		t.Fatalf("nil lock must not be locked")
	}

	future := now.Add(10 * time.Minute)
	if !domain.IsLocked(&future, now) {
		t.Fatalf("future expiry must be locked")
	}

	past := now.Add(-time.Second)
	if domain.IsLocked(&past, now) {
		t.Fatalf("elapsed lock must not be locked")
	}
}

func TestRemainingLockRoundsUpToMinutes(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	until := now.Add(9*time.Minute + 30*time.Second)
	if got := domain.RemainingLock(&until, now); got != 10*time.Minute {
		t.Fatalf("expected 10m remaining, got %v", got)
	}

	exact := now.Add(5 * time.Minute)
	if got := domain.RemainingLock(&exact, now); got != 5*time.Minute {
		t.Fatalf("expected 5m remaining, got %v", got)
	}

	if got := domain.RemainingLock(nil, now); got != 0 {
		t.Fatalf("expected zero for unlocked account, got %v", got)
	}
}

func TestShouldResetAttempts(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	if domain.ShouldResetAttempts(nil, now) {
		t.Fatalf("no failures recorded, nothing to forgive")
	}

	recent := now.Add(-domain.AttemptResetWindow / 2)
	if domain.ShouldResetAttempts(&recent, now) {
		t.Fatalf("recent failure must still count")
	}

	stale := now.Add(-domain.AttemptResetWindow - time.Second)
	if !domain.ShouldResetAttempts(&stale, now) {
		t.Fatalf("stale failure must be forgiven")
	}
}

func TestLockExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	if got := domain.LockExpiry(now); !got.Equal(now.Add(domain.LockoutDuration)) {
		t.Fatalf("unexpected lock expiry %v", got)
	}
}
