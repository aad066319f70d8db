// Package chain defines the derivation contract shared by all supported
// blockchains and the registry that fans address derivation out across them.
package chain

import (
	"strconv"
	"strings"

	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// ID represents a supported blockchain.
type ID string

// Supported blockchain identifiers.
const (
	Bitcoin   ID = "bitcoin"
	Ethereum  ID = "ethereum"
	Arbitrum  ID = "arbitrum"
	Optimism  ID = "optimism"
	Base      ID = "base"
	Polygon   ID = "polygon"
	Avalanche ID = "avalanche"
	Solana    ID = "solana"
)

// String returns the chain identifier string.
func (id ID) String() string {
	return string(id)
}

// aliases maps common ticker shorthands to canonical chain IDs.
//
//nolint:gochecknoglobals // Fixed alias table
var aliases = map[string]ID{
	"btc":   Bitcoin,
	"eth":   Ethereum,
	"arb":   Arbitrum,
	"op":    Optimism,
	"matic": Polygon,
	"avax":  Avalanche,
	"sol":   Solana,
}

// ParseID normalizes a user-supplied chain name to a canonical ID. It
// lowercases the input and resolves ticker aliases ("btc", "eth", "sol").
// The result is not guaranteed to be registered; check the registry.
func ParseID(s string) ID {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if id, ok := aliases[normalized]; ok {
		return id
	}
	return ID(normalized)
}

// Family identifies the signature scheme a chain derives keys on.
type Family string

// Supported key families.
const (
	FamilySecp256k1 Family = "secp256k1"
	FamilyEd25519   Family = "ed25519"

	// FamilySr25519 is declared for future Substrate support. No module
	// implements it.
	FamilySr25519 Family = "sr25519"
)

// String returns the family name.
func (f Family) String() string {
	return string(f)
}

// SLIP-44 coin types.
const (
	CoinTypeBitcoin  uint32 = 0
	CoinTypeEthereum uint32 = 60
	CoinTypeSolana   uint32 = 501
)

// HardenedOffset is the BIP32/SLIP-0010 hardened derivation offset (2^31).
const HardenedOffset uint32 = 0x80000000

// MaxIndex is the largest usable account or address index. Values at or
// above it collide with the hardened bit.
const MaxIndex uint32 = HardenedOffset - 1

// Seed length bounds, in bytes. BIP32 masters accept 128-512 bits; BIP39
// seeds are always 64 bytes.
const (
	MinSeedLen = 16
	MaxSeedLen = 64
)

// Address represents a derived blockchain address and its provenance.
type Address struct {
	// ChainID identifies the chain the address belongs to.
	ChainID ID `json:"chain_id"`

	// Family is the key family the address was derived on.
	Family Family `json:"family"`

	// Address is the chain-formatted address string.
	Address string `json:"address"`

	// Path is the full derivation path used.
	Path string `json:"path"`

	// PublicKey is the public key in hex format.
	PublicKey string `json:"public_key"`

	// Account is the account index within the derivation path.
	Account uint32 `json:"account"`

	// Index is the address index within the derivation path.
	Index uint32 `json:"index"`
}

// Module is one chain's derivation backend. Implementations are stateless
// and safe for concurrent use; the same (seed, account, index) input always
// yields the same address.
type Module interface {
	// ID returns the canonical chain identifier.
	ID() ID

	// Name returns the human-readable chain name.
	Name() string

	// Family returns the key family the module derives on.
	Family() Family

	// CoinType returns the SLIP-44 coin type.
	CoinType() uint32

	// Symbol returns the native asset ticker.
	Symbol() string

	// DerivationPath returns the full path for an account and index.
	DerivationPath(account, index uint32) string

	// DeriveAddress derives the address at (account, index) from a BIP39
	// seed. The seed is read, never retained.
	DeriveAddress(seed []byte, account, index uint32) (*Address, error)

	// ValidateAddress reports whether the string is a well-formed address
	// for this chain. Purely syntactic, no network access.
	ValidateAddress(address string) bool
}

// CheckSeed validates the seed length bounds shared by every module.
func CheckSeed(seed []byte) error {
	if len(seed) < MinSeedLen || len(seed) > MaxSeedLen {
		return kserr.WithDetails(kserr.ErrDerivationFailed, map[string]string{
			"reason":   "invalid seed length",
			"seed_len": strconv.Itoa(len(seed)),
		})
	}
	return nil
}

// CheckIndexes rejects account or address indexes that collide with the
// hardened bit.
func CheckIndexes(account, index uint32) error {
	if account > MaxIndex {
		return kserr.WithDetails(kserr.ErrDerivationFailed, map[string]string{
			"reason":  "account index exceeds maximum",
			"account": strconv.FormatUint(uint64(account), 10),
		})
	}
	if index > MaxIndex {
		return kserr.WithDetails(kserr.ErrDerivationFailed, map[string]string{
			"reason": "address index exceeds maximum",
			"index":  strconv.FormatUint(uint64(index), 10),
		})
	}
	return nil
}
