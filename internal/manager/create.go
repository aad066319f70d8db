package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/keysmith/keysmith/internal/chain"
	"github.com/keysmith/keysmith/internal/metadata"
	"github.com/keysmith/keysmith/internal/secmem"
	"github.com/keysmith/keysmith/internal/wallet"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// CreateResult reports a newly created wallet. Mnemonic is set only by
// CreateHDWallet and only on that one response; afterwards the phrase is
// reachable solely through the password-gated export.
type CreateResult struct {
	WalletID  string                    `json:"wallet_id"`
	Name      string                    `json:"name"`
	Type      wallet.Type               `json:"type"`
	Mnemonic  string                    `json:"mnemonic,omitempty"`
	Addresses []*metadata.AddressRecord `json:"addresses"`

	// Failures lists chains that could not derive. The wallet is still
	// created as long as at least one chain succeeded.
	Failures []chain.DeriveFailure `json:"failures,omitempty"`
}

// CreateHDWallet generates a fresh mnemonic, derives the requested chains,
// and persists the wallet. A chain failing to derive is reported in the
// result, not fatal; only every chain failing aborts the creation.
// wordCount zero selects DefaultWordCount.
func (m *Manager) CreateHDWallet(ctx context.Context, name string, password []byte, chainIDs []chain.ID, wordCount int) (*CreateResult, error) {
	w, err := wallet.New(name, wallet.TypeHD)
	if err != nil {
		return nil, err
	}
	if err = checkNewWalletInput(password, chainIDs); err != nil {
		return nil, err
	}

	if wordCount == 0 {
		wordCount = DefaultWordCount
	}
	mnemonic, err := wallet.GenerateMnemonic(wordCount)
	if err != nil {
		return nil, err
	}

	result, err := m.createFromMnemonic(ctx, w, mnemonic, password, chainIDs)
	if err != nil {
		return nil, err
	}

	// The one place the phrase is handed out unprompted.
	result.Mnemonic = mnemonic
	return result, nil
}

// ImportHDWallet restores a wallet from an existing phrase. The phrase is
// validated before anything is generated or persisted, and it is never
// echoed back; the caller already holds it.
func (m *Manager) ImportHDWallet(ctx context.Context, name, mnemonic string, password []byte, chainIDs []chain.ID) (*CreateResult, error) {
	normalized, err := wallet.ValidateMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}

	w, err := wallet.New(name, wallet.TypeImported)
	if err != nil {
		return nil, err
	}
	if err = checkNewWalletInput(password, chainIDs); err != nil {
		return nil, err
	}

	return m.createFromMnemonic(ctx, w, normalized, password, chainIDs)
}

// AddWatchOnly registers an external address to track. It writes metadata
// only: no code path from here reaches the secret store, which is what
// keeps watch-only wallets impossible to unlock later.
func (m *Manager) AddWatchOnly(ctx context.Context, name string, chainID chain.ID, address string) (*CreateResult, error) {
	w, err := wallet.New(name, wallet.TypeWatchOnly)
	if err != nil {
		return nil, err
	}

	module, err := m.registry.Get(chainID)
	if err != nil {
		return nil, err
	}

	address = strings.TrimSpace(address)
	if !module.ValidateAddress(address) {
		return nil, kserr.WithDetails(kserr.ErrInvalidAddress, map[string]string{
			"chain":   chainID.String(),
			"address": address,
		})
	}

	if err = m.meta.CreateWallet(ctx, w); err != nil {
		return nil, err
	}

	// No derivation path or public key: the address is external and the
	// wallet never learns more about it than the string itself.
	record := &metadata.AddressRecord{
		Address: chain.Address{
			ChainID: chainID,
			Family:  module.Family(),
			Address: address,
		},
		IsPrimary: true,
	}
	if err = m.meta.InsertAddress(ctx, w.ID, record); err != nil {
		m.unwind(ctx, w.ID)
		return nil, err
	}

	m.debug("wallet %s: watching %s address name=%s", w.ID, chainID, w.Name)

	return &CreateResult{
		WalletID:  w.ID,
		Name:      w.Name,
		Type:      w.Type,
		Addresses: []*metadata.AddressRecord{record},
	}, nil
}

// createFromMnemonic derives the initial addresses and persists a new HD
// wallet: metadata and addresses first, the encrypted secret last. When a
// later write fails the earlier ones are unwound, so a wallet either
// exists completely or not at all.
func (m *Manager) createFromMnemonic(ctx context.Context, w *wallet.Wallet, mnemonic string, password []byte, chainIDs []chain.ID) (*CreateResult, error) {
	seed, err := wallet.MnemonicToSeed(mnemonic, "")
	if err != nil {
		return nil, err
	}
	defer secmem.Zero(seed)

	requested := dedupeChains(chainIDs)
	addresses, failures := m.registry.DeriveAddresses(ctx, seed, requested, 0)
	if len(addresses) == 0 {
		return nil, allChainsFailed(failures)
	}
	records := newAddressRecords(addresses)

	if err = m.meta.CreateWallet(ctx, w); err != nil {
		return nil, err
	}
	if err = m.meta.InsertAddresses(ctx, w.ID, records); err != nil {
		m.unwind(ctx, w.ID)
		return nil, err
	}

	phrase := []byte(mnemonic)
	defer secmem.Zero(phrase)
	if err = m.secrets.Store(w.ID, phrase, password); err != nil {
		m.unwind(ctx, w.ID)
		return nil, err
	}

	m.debug("wallet %s: created name=%s type=%s addresses=%d failed=%d",
		w.ID, w.Name, w.Type, len(records), len(failures))

	return &CreateResult{
		WalletID:  w.ID,
		Name:      w.Name,
		Type:      w.Type,
		Addresses: records,
		Failures:  failures,
	}, nil
}

// unwind removes a half-created wallet's metadata after a later write
// failed. Best effort: the error being reported to the caller wins.
func (m *Manager) unwind(ctx context.Context, walletID string) {
	if err := m.meta.DeleteWallet(ctx, walletID); err != nil {
		m.logError("rolling back wallet %s: %v", walletID, err)
	}
}

// checkNewWalletInput validates the shared creation arguments up front so
// failures happen before anything is generated or persisted.
func checkNewWalletInput(password []byte, chainIDs []chain.ID) error {
	if len(password) == 0 {
		return kserr.WithDetails(kserr.ErrInvalidInput, map[string]string{
			"reason": "password must not be empty",
		})
	}
	if len(chainIDs) == 0 {
		return kserr.WithDetails(kserr.ErrInvalidInput, map[string]string{
			"reason": "at least one chain is required",
		})
	}
	return nil
}

// dedupeChains drops repeated chain IDs, keeping the first occurrence so
// the caller's ordering survives.
func dedupeChains(ids []chain.ID) []chain.ID {
	seen := make(map[chain.ID]struct{}, len(ids))
	out := make([]chain.ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// newAddressRecords wraps derived addresses as metadata rows. The
// account-0 index-0 address of each chain is that chain's primary.
func newAddressRecords(addresses []chain.Address) []*metadata.AddressRecord {
	records := make([]*metadata.AddressRecord, len(addresses))
	for i := range addresses {
		records[i] = &metadata.AddressRecord{
			Address:   addresses[i],
			IsPrimary: addresses[i].Account == 0 && addresses[i].Index == 0,
		}
	}
	return records
}

// allChainsFailed folds the per-chain failures into the abort error for a
// creation where nothing derived.
func allChainsFailed(failures []chain.DeriveFailure) error {
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.ChainID, f.Message))
	}
	return kserr.WithDetails(kserr.ErrDerivationFailed, map[string]string{
		"reason":   "every requested chain failed to derive",
		"failures": strings.Join(parts, "; "),
	})
}
