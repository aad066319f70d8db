package manager

import (
	"context"

	"github.com/keysmith/keysmith/internal/chain"
	"github.com/keysmith/keysmith/internal/metadata"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// DeriveNewAddress derives the next sequential address for the wallet on
// one chain and persists it. The wallet must be unlocked. Index selection
// and the insert run together under the session's seed lease, and the
// metadata store's uniqueness rule guarantees a slot is never filled
// twice with different addresses.
func (m *Manager) DeriveNewAddress(ctx context.Context, walletID string, chainID chain.ID, account uint32) (*metadata.AddressRecord, error) {
	w, err := m.meta.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w.IsWatchOnly() {
		return nil, kserr.WithSuggestion(kserr.WithDetails(kserr.ErrWatchOnly, map[string]string{
			"wallet_id": walletID,
		}), "watch-only wallets track a fixed external address")
	}

	module, err := m.registry.Get(chainID)
	if err != nil {
		return nil, err
	}

	var record *metadata.AddressRecord
	err = m.sessions.WithSeed(walletID, func(seed []byte) error {
		index, idxErr := m.meta.NextAddressIndex(ctx, walletID, chainID, account)
		if idxErr != nil {
			return idxErr
		}

		addr, deriveErr := module.DeriveAddress(seed, account, index)
		if deriveErr != nil {
			return deriveErr
		}

		record = &metadata.AddressRecord{
			Address:   *addr,
			IsPrimary: addr.Account == 0 && addr.Index == 0,
		}
		return m.meta.InsertAddress(ctx, walletID, record)
	})
	if err != nil {
		return nil, err
	}

	m.debug("wallet %s: derived %s account=%d index=%d",
		walletID, chainID, record.Account, record.Index)
	return record, nil
}

// ListAddresses returns every address the wallet has derived or watches,
// ordered by chain, account, then index.
func (m *Manager) ListAddresses(ctx context.Context, walletID string) ([]*metadata.AddressRecord, error) {
	if _, err := m.meta.GetWallet(ctx, walletID); err != nil {
		return nil, err
	}
	return m.meta.ListAddresses(ctx, walletID)
}

// SetAddressLabel attaches a label to one derived address. An empty label
// clears it.
func (m *Manager) SetAddressLabel(ctx context.Context, walletID string, chainID chain.ID, account, index uint32, label string) error {
	if _, err := m.meta.GetWallet(ctx, walletID); err != nil {
		return err
	}
	if err := m.meta.SetAddressLabel(ctx, walletID, chainID, account, index, label); err != nil {
		return err
	}
	m.debug("wallet %s: labeled %s account=%d index=%d", walletID, chainID, account, index)
	return nil
}
