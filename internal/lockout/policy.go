// Package lockout holds the pure brute-force lockout policy.
package lockout

import (
	"math"
	"time"
)

// Policy maps failed-attempt counts and time to lock decisions. It has
// no side effects; persistence of the resulting state is the caller's
// problem.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// NewPolicy constructs a Policy.
func NewPolicy(maxAttempts int, window time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, Window: window}
}

// ShouldLock reports whether the given consecutive-failure count trips
// the lock. The threshold is inclusive: the MaxAttempts-th failure locks.
func (p Policy) ShouldLock(failedAttempts int) bool {
	return failedAttempts >= p.MaxAttempts
}

// IsLocked reports whether a lock is currently in force. A stored locked
// flag with an elapsed expiry counts as unlocked (lazy unlock); the
// caller is expected to clear the stale flag on its next write.
func (p Policy) IsLocked(locked bool, lockedUntil *time.Time, now time.Time) bool {
	return locked && lockedUntil != nil && now.Before(*lockedUntil)
}

// LockExpiry computes the lock deadline for a failure happening at now.
func (p Policy) LockExpiry(now time.Time) time.Time {
	return now.Add(p.Window)
}

// RemainingMinutes reports whole minutes until the lock elapses, rounded
// up, never below zero.
func RemainingMinutes(lockedUntil, now time.Time) int {
	remaining := lockedUntil.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Minutes()))
}
