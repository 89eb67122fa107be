package ike

import (
	"math/rand"
	"time"
)

// jitter adds up to maxFactor*d to d
func jitter(d time.Duration, maxFactor float64) time.Duration {
	spread := int64(maxFactor * float64(d))
	if spread <= 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(spread+1))
}

// softLifetime is when an initiator rekeys an isakmp SA, between
// SOFT_LIFETIME_OFFSET and 1.5 times that before it expires.
// Returns 0 when the lifetime is too short to rekey
func softLifetime(lifetime time.Duration) time.Duration {
	soft := lifetime - jitter(SOFT_LIFETIME_OFFSET, 0.5)
	if soft <= 0 {
		return 0
	}
	return soft
}
