// Package session keeps unlocked wallet seeds in process memory with a
// bounded lifetime. Nothing here ever touches disk: locking a wallet,
// session expiry, and process exit all zero the seed buffer. Expired
// entries are treated as absent by every reader, so correctness never
// depends on a background sweeper.
package session

import (
	"time"
)

// Session lifetime bounds. The TTL is policy, not protocol: out-of-range
// values are clamped rather than rejected so a configuration mistake
// degrades safely.
const (
	// DefaultTTL is the session duration when none is requested.
	DefaultTTL = 15 * time.Minute

	// MinTTL is the shortest allowed session duration.
	MinTTL = 1 * time.Minute

	// MaxTTL is the longest allowed session duration.
	MaxTTL = 60 * time.Minute
)

// Info describes one live session. It carries no secret material and is
// safe to serialize for status output.
type Info struct {
	WalletID   string    `json:"wallet_id"`
	UnlockedAt time.Time `json:"unlocked_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// clampTTL bounds a requested session lifetime. Zero and negative values
// select the default.
func clampTTL(ttl time.Duration) time.Duration {
	switch {
	case ttl <= 0:
		return DefaultTTL
	case ttl < MinTTL:
		return MinTTL
	case ttl > MaxTTL:
		return MaxTTL
	}

	return ttl
}
