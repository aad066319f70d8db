package manager

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/keysmith/keysmith/internal/wallet"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// GetWallet returns one wallet's metadata by ID.
func (m *Manager) GetWallet(ctx context.Context, walletID string) (*wallet.Wallet, error) {
	return m.meta.GetWallet(ctx, walletID)
}

// ResolveWallet finds a wallet by ID or by unique name, so commands accept
// either form. An ID match wins; a name that merely looks like a UUID is
// still found by the fallback lookup.
func (m *Manager) ResolveWallet(ctx context.Context, ref string) (*wallet.Wallet, error) {
	if _, err := uuid.Parse(ref); err == nil {
		w, err := m.meta.GetWallet(ctx, ref)
		if err == nil {
			return w, nil
		}
		if !errors.Is(err, kserr.ErrWalletNotFound) {
			return nil, err
		}
	}
	return m.meta.GetWalletByName(ctx, ref)
}

// ListWallets returns every wallet, oldest first.
func (m *Manager) ListWallets(ctx context.Context) ([]*wallet.Wallet, error) {
	return m.meta.ListWallets(ctx)
}

// RenameWallet gives the wallet a new unique name. Addresses, secrets,
// and sessions key on the wallet ID and are untouched.
func (m *Manager) RenameWallet(ctx context.Context, walletID, newName string) error {
	if err := wallet.ValidateWalletName(newName); err != nil {
		return err
	}
	if err := m.meta.RenameWallet(ctx, walletID, newName); err != nil {
		return err
	}
	m.debug("wallet %s: renamed to %s", walletID, newName)
	return nil
}

// MarkBackupVerified records that the user proved they hold the phrase,
// without re-checking it. VerifyBackup is the checked path.
func (m *Manager) MarkBackupVerified(ctx context.Context, walletID string) error {
	return m.meta.SetBackupVerified(ctx, walletID, true)
}

// DeleteWallet removes a wallet completely: session first, then the
// encrypted secret, then metadata. If the secret cannot be removed the
// metadata stays, because metadata pointing at a missing secret is
// recoverable while an orphaned secret with no record of its wallet is
// not.
func (m *Manager) DeleteWallet(ctx context.Context, walletID string) error {
	w, err := m.meta.GetWallet(ctx, walletID)
	if err != nil {
		return err
	}

	m.sessions.Lock(walletID)

	if w.Type.HasSecret() {
		if err = m.secrets.Delete(walletID); err != nil {
			return err
		}
	}

	if err = m.meta.DeleteWallet(ctx, walletID); err != nil {
		return err
	}
	m.unlocks.forget(walletID)

	m.debug("wallet %s: deleted name=%s type=%s", walletID, w.Name, w.Type)
	return nil
}
