package manager

import (
	"context"
	"time"

	"github.com/keysmith/keysmith/internal/metrics"
	"github.com/keysmith/keysmith/internal/secmem"
	"github.com/keysmith/keysmith/internal/session"
	"github.com/keysmith/keysmith/internal/wallet"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// Status reports a wallet's session state.
type Status struct {
	WalletID string      `json:"wallet_id"`
	Name     string      `json:"name"`
	Type     wallet.Type `json:"type"`
	Unlocked bool        `json:"unlocked"`

	// ExpiresAt is when the session lapses. Zero while locked.
	ExpiresAt time.Time `json:"expires_at"`
}

// Unlock decrypts the wallet's mnemonic and caches the derived seed in the
// session manager for the configured TTL. Watch-only and unknown wallets
// answer ErrWalletNotFound, never ErrInvalidPassword. A failed attempt
// leaves any existing session untouched.
func (m *Manager) Unlock(ctx context.Context, walletID string, password []byte) error {
	w, err := m.meta.GetWallet(ctx, walletID)
	if err != nil {
		return err
	}
	if !w.Type.HasSecret() {
		return noSecretErr(walletID)
	}

	if !m.unlocks.allow(walletID) {
		return throttledErr(walletID)
	}

	secret, err := m.secrets.Get(walletID, password)
	metrics.Global.RecordUnlockAttempt(err == nil)
	if err != nil {
		m.debug("wallet %s: unlock rejected", walletID)
		return err
	}
	defer secmem.Zero(secret)

	// The envelope authenticated, so a phrase that no longer validates
	// means the stored secret predates a breaking change or was written
	// by something else entirely.
	seed, err := wallet.MnemonicToSeed(string(secret), "")
	if err != nil {
		return kserr.WithDetails(kserr.ErrCorruptedData, map[string]string{
			"wallet_id": walletID,
			"reason":    "stored secret is not a valid mnemonic",
		})
	}
	defer secmem.Zero(seed)

	if err = m.sessions.Put(walletID, seed, m.sessionTTL); err != nil {
		return err
	}

	expires, _ := m.sessions.ExpiresAt(walletID)
	m.debug("wallet %s: unlocked name=%s until=%s", walletID, w.Name, expires.Format(time.RFC3339))
	return nil
}

// Lock discards the wallet's session. Locking a wallet that is not
// unlocked is a no-op.
func (m *Manager) Lock(walletID string) {
	m.sessions.Lock(walletID)
	m.debug("wallet %s: locked", walletID)
}

// LockAll discards every active session and returns how many were held.
func (m *Manager) LockAll() int {
	n := m.sessions.LockAll()
	if n > 0 {
		m.debug("locked %d sessions", n)
	}
	return n
}

// Status reports whether the wallet is unlocked and until when.
func (m *Manager) Status(ctx context.Context, walletID string) (*Status, error) {
	w, err := m.meta.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}

	st := &Status{WalletID: w.ID, Name: w.Name, Type: w.Type}
	if expires, ok := m.sessions.ExpiresAt(walletID); ok {
		st.Unlocked = true
		st.ExpiresAt = expires
	}
	return st, nil
}

// ActiveSessions lists the currently unlocked wallets.
func (m *Manager) ActiveSessions() []session.Info {
	return m.sessions.Active()
}
