package service

import (
	"math"
	"time"

	"github.com/medgraph/patient-portal-go/internal/config"
)

// Lockout policy engine: pure decisions over (failed-attempt count, current
// lock expiry). Persistence of the outcome is the orchestrator's job.

// LockRemaining reports whether the identity is locked at the given instant
// and, if so, for how much longer.
func LockRemaining(lockedUntil *time.Time, now time.Time) (bool, time.Duration) {
	if lockedUntil == nil || !lockedUntil.After(now) {
		return false, 0
	}
	return true, lockedUntil.Sub(now)
}

// OnFailedAttempt decides the consequence of a wrong password. newCount is
// the post-increment failure counter. Reaching the threshold trips a lock of
// config.LockoutDuration; below it, the attempts-remaining count is reported
// for logging only, never for the user-facing message.
func OnFailedAttempt(newCount int, now time.Time) (lockNow bool, until time.Time, attemptsRemaining int) {
	if newCount >= config.LockoutThreshold {
		return true, now.Add(config.LockoutDuration), 0
	}
	return false, time.Time{}, config.LockoutThreshold - newCount
}

// RemainingMinutes rounds a lock window up to whole minutes for the
// user-facing locked message.
func RemainingMinutes(remaining time.Duration) int {
	return int(math.Ceil(remaining.Minutes()))
}
