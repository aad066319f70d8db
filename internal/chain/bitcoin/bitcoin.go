// Package bitcoin derives native-segwit Bitcoin addresses on the BIP84
// path m/84'/0'/account'/0/index.
package bitcoin

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/keysmith/keysmith/internal/chain"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// Purpose is the BIP84 purpose level (native segwit v0 accounts).
const Purpose uint32 = 84

// Module derives P2WPKH addresses on Bitcoin mainnet.
type Module struct {
	params *chaincfg.Params
}

// New returns the Bitcoin mainnet chain module.
func New() *Module {
	return &Module{params: &chaincfg.MainNetParams}
}

// ID returns the canonical chain identifier.
func (m *Module) ID() chain.ID { return chain.Bitcoin }

// Name returns the human-readable chain name.
func (m *Module) Name() string { return "Bitcoin" }

// Family returns the secp256k1 key family.
func (m *Module) Family() chain.Family { return chain.FamilySecp256k1 }

// CoinType returns the SLIP-44 coin type for Bitcoin.
func (m *Module) CoinType() uint32 { return chain.CoinTypeBitcoin }

// Symbol returns the native asset ticker.
func (m *Module) Symbol() string { return "BTC" }

// DerivationPath returns the BIP84 path for the given account and index.
func (m *Module) DerivationPath(account, index uint32) string {
	return fmt.Sprintf("m/%d'/%d'/%d'/0/%d", Purpose, chain.CoinTypeBitcoin, account, index)
}

// DeriveAddress derives the bech32 P2WPKH address at m/84'/0'/account'/0/index
// from a BIP39 seed. Intermediate extended keys are zeroed before returning.
func (m *Module) DeriveAddress(seed []byte, account, index uint32) (*chain.Address, error) {
	if err := chain.CheckSeed(seed); err != nil {
		return nil, err
	}
	if err := chain.CheckIndexes(account, index); err != nil {
		return nil, err
	}

	master, err := hdkeychain.NewMaster(seed, m.params)
	if err != nil {
		return nil, deriveErr(err)
	}
	defer master.Zero()

	steps := []uint32{
		hdkeychain.HardenedKeyStart + Purpose,
		hdkeychain.HardenedKeyStart + chain.CoinTypeBitcoin,
		hdkeychain.HardenedKeyStart + account,
		0,
		index,
	}

	key := master
	for _, step := range steps {
		child, derr := key.Derive(step)
		if key != master {
			key.Zero()
		}
		if derr != nil {
			return nil, deriveErr(derr)
		}
		key = child
	}
	defer key.Zero()

	pubKey, err := key.ECPubKey()
	if err != nil {
		return nil, deriveErr(err)
	}
	pubKeyBytes := pubKey.SerializeCompressed()

	witnessAddr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(pubKeyBytes), m.params,
	)
	if err != nil {
		return nil, deriveErr(err)
	}

	return &chain.Address{
		ChainID:   chain.Bitcoin,
		Family:    chain.FamilySecp256k1,
		Address:   witnessAddr.EncodeAddress(),
		Path:      m.DerivationPath(account, index),
		PublicKey: hex.EncodeToString(pubKeyBytes),
		Account:   account,
		Index:     index,
	}, nil
}

// ValidateAddress reports whether addr parses as a Bitcoin mainnet address.
// Accepts native segwit (bech32), legacy P2PKH, and P2SH encodings.
func (m *Module) ValidateAddress(addr string) bool {
	decoded, err := btcutil.DecodeAddress(addr, m.params)
	if err != nil {
		return false
	}
	return decoded.IsForNet(m.params)
}

func deriveErr(cause error) error {
	return kserr.WithDetails(kserr.ErrDerivationFailed, map[string]string{
		"chain": string(chain.Bitcoin),
		"cause": cause.Error(),
	})
}
