// Package manager composes the chain registry, secret store, session
// manager, and metadata store into the user-facing wallet operations.
// Every other package owns one concern; this one owns the ordering rules
// between them: what gets persisted first, what gets rolled back when a
// later write fails, and which state gates which operation.
package manager

import (
	"time"

	"github.com/keysmith/keysmith/internal/chain"
	"github.com/keysmith/keysmith/internal/keystore"
	"github.com/keysmith/keysmith/internal/metadata"
	"github.com/keysmith/keysmith/internal/session"
	"github.com/keysmith/keysmith/internal/wallet"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// Defaults for policy knobs left unset in Config.
const (
	// DefaultWordCount is the mnemonic length used when the caller does
	// not choose one.
	DefaultWordCount = wallet.WordCount12

	// DefaultUnlockInterval is the sustained rate at which password-gated
	// operations may hit the KDF, per wallet.
	DefaultUnlockInterval = 2 * time.Second

	// DefaultUnlockBurst is how many password attempts may arrive
	// back-to-back before the interval applies.
	DefaultUnlockBurst = 5
)

// Config contains the collaborators and policy for a wallet manager.
type Config struct {
	// Registry resolves chain modules for derivation and validation.
	Registry *chain.Registry

	// Secrets is the encrypted mnemonic store.
	Secrets keystore.Store

	// Sessions holds decrypted seeds for unlocked wallets.
	Sessions *session.Manager

	// Metadata is the wallet and address catalog.
	Metadata *metadata.Store

	// Logger receives debug and error lines. Optional.
	Logger LogWriter

	// SessionTTL is how long an unlock lasts. Zero selects the session
	// manager's default; out-of-range values are clamped there.
	SessionTTL time.Duration

	// UnlockInterval and UnlockBurst shape the per-wallet throttle on
	// password-gated operations. Zero values select the defaults.
	UnlockInterval time.Duration
	UnlockBurst    int
}

// Manager exposes the wallet operations as one injectable component.
// All methods are safe for concurrent use.
type Manager struct {
	registry   *chain.Registry
	secrets    keystore.Store
	sessions   *session.Manager
	meta       *metadata.Store
	logger     LogWriter
	sessionTTL time.Duration
	unlocks    *unlockThrottle
}

// NewManager creates a wallet manager from its collaborators.
func NewManager(cfg *Config) *Manager {
	interval := cfg.UnlockInterval
	if interval <= 0 {
		interval = DefaultUnlockInterval
	}
	burst := cfg.UnlockBurst
	if burst <= 0 {
		burst = DefaultUnlockBurst
	}

	return &Manager{
		registry:   cfg.Registry,
		secrets:    cfg.Secrets,
		sessions:   cfg.Sessions,
		meta:       cfg.Metadata,
		logger:     cfg.Logger,
		sessionTTL: cfg.SessionTTL,
		unlocks:    newUnlockThrottle(interval, burst),
	}
}

// debug logs a debug message if a logger is configured.
func (m *Manager) debug(format string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(format, args...)
	}
}

// logError logs an error message if a logger is configured.
func (m *Manager) logError(format string, args ...any) {
	if m.logger != nil {
		m.logger.Error(format, args...)
	}
}

// noSecretErr is the answer for key-material operations on a wallet that
// holds none. Watch-only wallets respond exactly like missing ones so
// they stay structurally impossible to unlock or export.
func noSecretErr(walletID string) error {
	return kserr.WithSuggestion(kserr.WithDetails(kserr.ErrWalletNotFound, map[string]string{
		"wallet_id": walletID,
	}), "watch-only wallets hold no key material")
}

// throttledErr reports an attempt rejected by the per-wallet throttle.
func throttledErr(walletID string) error {
	return kserr.WithSuggestion(kserr.WithDetails(kserr.ErrRateLimited, map[string]string{
		"wallet_id": walletID,
	}), "too many password attempts; wait a moment and retry")
}
