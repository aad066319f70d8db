package session

import (
	"sort"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"

	"github.com/keysmith/keysmith/internal/secmem"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// entry is one unlocked wallet. The seed lives in locked memory and is
// destroyed on lock, expiry, or replacement.
type entry struct {
	seed       *secmem.SecureBytes
	unlockedAt time.Time
	expiresAt  time.Time
}

// Manager holds the session table: at most one entry per wallet ID.
// Reads for different wallets proceed concurrently; unlock and lock are
// exclusive.
type Manager struct {
	mu      sync.RWMutex
	clock   clock.Clock
	entries map[string]*entry
}

// NewManager creates a session manager. A nil clock selects the system
// clock; tests inject clock.NewTestClock to drive expiry.
func NewManager(c clock.Clock) *Manager {
	if c == nil {
		c = clock.NewDefaultClock()
	}

	return &Manager{
		clock:   c,
		entries: make(map[string]*entry),
	}
}

// Put caches the seed for a wallet, replacing (and zeroing) any existing
// entry. The seed is copied into locked memory; the caller keeps
// ownership of the input slice and should zero it. The TTL is clamped to
// [MinTTL, MaxTTL]; zero selects DefaultTTL.
func (m *Manager) Put(walletID string, seed []byte, ttl time.Duration) error {
	if walletID == "" {
		return kserr.WithDetails(kserr.ErrInvalidInput, map[string]string{
			"reason": "empty wallet id",
		})
	}
	if len(seed) == 0 {
		return kserr.WithDetails(kserr.ErrInvalidInput, map[string]string{
			"reason": "empty seed",
		})
	}

	buf, err := secmem.SecureBytesFromSlice(seed)
	if err != nil {
		return kserr.Wrap(err, "copying seed into locked memory")
	}

	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.entries[walletID]; ok {
		old.seed.Destroy()
	}

	m.entries[walletID] = &entry{
		seed:       buf,
		unlockedAt: now,
		expiresAt:  now.Add(clampTTL(ttl)),
	}

	return nil
}

// WithSeed lends the seed of an unlocked wallet to fn. The slice is valid
// only for the duration of the call and must be treated as read-only; it
// must never be retained. fn runs under the read lock, so a concurrent
// Lock cannot zero the buffer mid-call — keep fn short.
//
// A locked wallet returns ErrWalletLocked; a present-but-expired session
// returns ErrSessionExpired and is evicted.
func (m *Manager) WithSeed(walletID string, fn func(seed []byte) error) error {
	now := m.clock.Now()

	m.mu.RLock()

	e, ok := m.entries[walletID]
	if !ok {
		m.mu.RUnlock()
		return kserr.WithDetails(kserr.ErrWalletLocked, map[string]string{
			"wallet_id": walletID,
		})
	}
	if !now.Before(e.expiresAt) {
		m.mu.RUnlock()
		m.evictExpired(walletID, now)

		return kserr.WithDetails(kserr.ErrSessionExpired, map[string]string{
			"wallet_id": walletID,
		})
	}

	defer m.mu.RUnlock()

	return fn(e.seed.Bytes())
}

// IsUnlocked reports whether the wallet has a live session. An expired
// entry encountered here is evicted and zeroed as a side effect.
func (m *Manager) IsUnlocked(walletID string) bool {
	now := m.clock.Now()

	m.mu.RLock()
	e, ok := m.entries[walletID]
	live := ok && now.Before(e.expiresAt)
	m.mu.RUnlock()

	if ok && !live {
		m.evictExpired(walletID, now)
	}

	return live
}

// ExpiresAt returns the expiry time of the wallet's live session. The
// second return is false when the wallet is locked or expired.
func (m *Manager) ExpiresAt(walletID string) (time.Time, bool) {
	now := m.clock.Now()

	m.mu.RLock()
	e, ok := m.entries[walletID]
	if ok && now.Before(e.expiresAt) {
		expires := e.expiresAt
		m.mu.RUnlock()

		return expires, true
	}
	m.mu.RUnlock()

	if ok {
		m.evictExpired(walletID, now)
	}

	return time.Time{}, false
}

// Lock ends the wallet's session and zeroes its seed. Locking a wallet
// without a session is a no-op.
func (m *Manager) Lock(walletID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[walletID]; ok {
		e.seed.Destroy()
		delete(m.entries, walletID)
	}
}

// LockAll ends every session and returns the number ended. Wired to
// process shutdown so no seed outlives the run.
func (m *Manager) LockAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(m.entries)
	for id, e := range m.entries {
		e.seed.Destroy()
		delete(m.entries, id)
	}

	return count
}

// ActiveCount returns the number of live sessions, evicting any expired
// entries encountered.
func (m *Manager) ActiveCount() int {
	return len(m.Active())
}

// Active returns a snapshot of all live sessions sorted by wallet ID.
// Expired entries encountered during the scan are evicted and zeroed.
func (m *Manager) Active() []Info {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]Info, 0, len(m.entries))
	for id, e := range m.entries {
		if !now.Before(e.expiresAt) {
			e.seed.Destroy()
			delete(m.entries, id)

			continue
		}

		infos = append(infos, Info{
			WalletID:   id,
			UnlockedAt: e.unlockedAt,
			ExpiresAt:  e.expiresAt,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].WalletID < infos[j].WalletID
	})

	return infos
}

// evictExpired removes an entry only if it is still present and still
// expired: a refresh that won the race between the caller's read and this
// write keeps its entry.
func (m *Manager) evictExpired(walletID string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[walletID]
	if !ok || now.Before(e.expiresAt) {
		return
	}

	e.seed.Destroy()
	delete(m.entries, walletID)
}
