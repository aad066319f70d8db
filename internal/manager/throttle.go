package manager

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// unlockThrottle applies a per-wallet token bucket to password-gated
// operations so repeated wrong guesses cannot grind the KDF. Attempts are
// throttled, never locked out: tokens refill and the wallet stays usable.
type unlockThrottle struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// newUnlockThrottle creates a throttle allowing burst immediate attempts
// per wallet, refilling one attempt per interval.
func newUnlockThrottle(interval time.Duration, burst int) *unlockThrottle {
	return &unlockThrottle{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Every(interval),
		burst:    burst,
	}
}

// allow reports whether another attempt for the wallet may proceed now.
func (t *unlockThrottle) allow(walletID string) bool {
	return t.limiter(walletID).Allow()
}

// forget drops the wallet's limiter, freeing its state after the wallet
// is deleted.
func (t *unlockThrottle) forget(walletID string) {
	t.mu.Lock()
	delete(t.limiters, walletID)
	t.mu.Unlock()
}

// limiter returns the wallet's limiter, creating it on first use.
func (t *unlockThrottle) limiter(walletID string) *rate.Limiter {
	t.mu.RLock()
	l, exists := t.limiters[walletID]
	t.mu.RUnlock()

	if exists {
		return l
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Double-check after acquiring write lock
	if l, exists = t.limiters[walletID]; exists {
		return l
	}

	l = rate.NewLimiter(t.rate, t.burst)
	t.limiters[walletID] = l
	return l
}
