package manager

import (
	"context"

	"github.com/keysmith/keysmith/internal/secmem"
	"github.com/keysmith/keysmith/internal/wallet"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// ExportMnemonic returns the wallet's phrase after password re-entry.
// Session state is deliberately irrelevant here: export is a rare,
// high-stakes action that must not inherit a loosely-timed unlock from an
// unrelated earlier command. Watch-only wallets answer ErrWalletNotFound.
func (m *Manager) ExportMnemonic(ctx context.Context, walletID string, password []byte) (string, error) {
	w, err := m.meta.GetWallet(ctx, walletID)
	if err != nil {
		return "", err
	}
	if !w.Type.HasSecret() {
		return "", noSecretErr(walletID)
	}

	if !m.unlocks.allow(walletID) {
		return "", throttledErr(walletID)
	}

	secret, err := m.secrets.Get(walletID, password)
	if err != nil {
		return "", err
	}

	phrase := string(secret)
	secmem.Zero(secret)

	m.debug("wallet %s: mnemonic exported", walletID)
	return phrase, nil
}

// ChangePassword re-encrypts the wallet's secret under a new password.
// The session is locked before the old password is even checked, so a
// seed unlocked under the old password never outlives the change.
func (m *Manager) ChangePassword(ctx context.Context, walletID string, oldPassword, newPassword []byte) error {
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

	m.sessions.Lock(walletID)

	if err = m.secrets.ChangePassword(walletID, oldPassword, newPassword); err != nil {
		return err
	}

	m.debug("wallet %s: password changed", walletID)
	return nil
}

// VerifyBackup checks a re-entered phrase against the stored mnemonic and
// marks the wallet's backup verified on a match. The password gates the
// comparison the same way it gates an export.
func (m *Manager) VerifyBackup(ctx context.Context, walletID string, password []byte, phrase string) error {
	stored, err := m.ExportMnemonic(ctx, walletID, password)
	if err != nil {
		return err
	}

	if wallet.NormalizeMnemonicInput(phrase) != stored {
		return kserr.WithSuggestion(kserr.WithDetails(kserr.ErrInvalidMnemonic, map[string]string{
			"reason": "phrase does not match this wallet",
		}), "Compare the written backup word by word, including word order")
	}

	if err = m.meta.SetBackupVerified(ctx, walletID, true); err != nil {
		return err
	}

	m.debug("wallet %s: backup verified", walletID)
	return nil
}
