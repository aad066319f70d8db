// Package solana derives Solana addresses with SLIP-0010 Ed25519 keys on
// the all-hardened path m/44'/501'/account'/index'. A Solana address is
// the base58-encoded 32-byte Ed25519 public key.
package solana

import (
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/keysmith/keysmith/internal/chain"
)

// Purpose is the BIP44 purpose level.
const Purpose uint32 = 44

// Base58-encoded 32-byte keys land in this length range.
const (
	minAddressLen = 32
	maxAddressLen = 44
)

// Module derives addresses for Solana mainnet.
type Module struct{}

// New returns the Solana mainnet chain module.
func New() *Module {
	return &Module{}
}

// ID returns the canonical chain identifier.
func (m *Module) ID() chain.ID { return chain.Solana }

// Name returns the human-readable chain name.
func (m *Module) Name() string { return "Solana" }

// Family returns the Ed25519 key family.
func (m *Module) Family() chain.Family { return chain.FamilyEd25519 }

// CoinType returns the SLIP-44 coin type for Solana.
func (m *Module) CoinType() uint32 { return chain.CoinTypeSolana }

// Symbol returns the native asset ticker.
func (m *Module) Symbol() string { return "SOL" }

// DerivationPath returns the all-hardened path for an account and index.
// Ed25519 has no non-hardened derivation, so there is no change level.
func (m *Module) DerivationPath(account, index uint32) string {
	return fmt.Sprintf("m/%d'/%d'/%d'/%d'", Purpose, chain.CoinTypeSolana, account, index)
}

// DeriveAddress derives the base58 address at m/44'/501'/account'/index'
// from a BIP39 seed.
func (m *Module) DeriveAddress(seed []byte, account, index uint32) (*chain.Address, error) {
	if err := chain.CheckSeed(seed); err != nil {
		return nil, err
	}
	if err := chain.CheckIndexes(account, index); err != nil {
		return nil, err
	}

	n := derivePath(seed, []uint32{Purpose, chain.CoinTypeSolana, account, index})
	defer n.zero()

	pub := n.publicKey()

	return &chain.Address{
		ChainID:   chain.Solana,
		Family:    chain.FamilyEd25519,
		Address:   base58.Encode(pub),
		Path:      m.DerivationPath(account, index),
		PublicKey: hex.EncodeToString(pub),
		Account:   account,
		Index:     index,
	}, nil
}

// ValidateAddress reports whether addr decodes as a 32-byte base58 value.
func (m *Module) ValidateAddress(addr string) bool {
	if len(addr) < minAddressLen || len(addr) > maxAddressLen {
		return false
	}

	decoded, err := base58.Decode(addr)
	if err != nil {
		return false
	}

	return len(decoded) == 32
}
