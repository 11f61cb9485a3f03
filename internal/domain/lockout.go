package domain

import "time"

const (
	// FailedLoginThreshold is the number of consecutive failures that locks
	// an account.
	FailedLoginThreshold = 5
	// LockoutDuration is how long a locked account stays locked.
	LockoutDuration = 30 * time.Minute
	// AttemptResetWindow forgives stale failures: a failure older than this
	// no longer counts toward the lock threshold.
	AttemptResetWindow = 15 * time.Minute
)

// ShouldLock reports whether the given failure count has reached the lock
// threshold.
func ShouldLock(failedAttempts int) bool {
	return failedAttempts >= FailedLoginThreshold
}

// LockExpiry computes when a lock applied now would expire.
func LockExpiry(now time.Time) time.Time {
	return now.Add(LockoutDuration)
}

// IsLocked reports whether a lock expiry is still in force.
func IsLocked(lockUntil *time.Time, now time.Time) bool {
	return lockUntil != nil && lockUntil.After(now)
}

// RemainingLock returns how long a lock has left, rounded up to whole
// minutes for user-facing messages.
func RemainingLock(lockUntil *time.Time, now time.Time) time.Duration {
	if !IsLocked(lockUntil, now) {
		return 0
	}
	remaining := lockUntil.Sub(now)
	if rem := remaining % time.Minute; rem != 0 {
		remaining += time.Minute - rem
	}
	return remaining
}

// ShouldResetAttempts reports whether the failure counter should be forgiven
// before the next attempt is judged.
func ShouldResetAttempts(lastFailedLogin *time.Time, now time.Time) bool {
	return lastFailedLogin != nil && now.Sub(*lastFailedLogin) > AttemptResetWindow
}
