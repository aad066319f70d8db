// Package ethereum derives EIP-55 checksummed addresses on the BIP44
// path m/44'/60'/account'/0/index. The same derivation backs Ethereum
// mainnet and every EVM-compatible chain; NewEVMModule parameterizes
// the chain identity while the key material stays identical.
package ethereum

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/crypto/sha3"

	"github.com/keysmith/keysmith/internal/chain"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// Purpose is the BIP44 purpose level.
const Purpose uint32 = 44

// addressHexLen is the length of an address without the 0x prefix.
const addressHexLen = 40

// Module derives addresses for one EVM chain.
type Module struct {
	id     chain.ID
	name   string
	symbol string
}

// New returns the Ethereum mainnet chain module.
func New() *Module {
	return &Module{id: chain.Ethereum, name: "Ethereum", symbol: "ETH"}
}

// NewEVMModule returns a module for an EVM-compatible chain. Coin type
// stays 60, so the same seed yields the same address on every EVM chain.
func NewEVMModule(id chain.ID, name, symbol string) *Module {
	return &Module{id: id, name: name, symbol: symbol}
}

// ID returns the canonical chain identifier.
func (m *Module) ID() chain.ID { return m.id }

// Name returns the human-readable chain name.
func (m *Module) Name() string { return m.name }

// Family returns the secp256k1 key family.
func (m *Module) Family() chain.Family { return chain.FamilySecp256k1 }

// CoinType returns the SLIP-44 coin type shared by all EVM chains.
func (m *Module) CoinType() uint32 { return chain.CoinTypeEthereum }

// Symbol returns the native asset ticker.
func (m *Module) Symbol() string { return m.symbol }

// DerivationPath returns the BIP44 path for the given account and index.
func (m *Module) DerivationPath(account, index uint32) string {
	return fmt.Sprintf("m/%d'/%d'/%d'/0/%d", Purpose, chain.CoinTypeEthereum, account, index)
}

// DeriveAddress derives the EIP-55 checksummed address at
// m/44'/60'/account'/0/index from a BIP39 seed. The address is the last
// 20 bytes of Keccak-256 over the uncompressed public key without its
// 0x04 prefix.
func (m *Module) DeriveAddress(seed []byte, account, index uint32) (*chain.Address, error) {
	if err := chain.CheckSeed(seed); err != nil {
		return nil, err
	}
	if err := chain.CheckIndexes(account, index); err != nil {
		return nil, err
	}

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, m.deriveErr(err)
	}
	defer master.Zero()

	steps := []uint32{
		hdkeychain.HardenedKeyStart + Purpose,
		hdkeychain.HardenedKeyStart + chain.CoinTypeEthereum,
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
			return nil, m.deriveErr(derr)
		}
		key = child
	}
	defer key.Zero()

	pubKey, err := key.ECPubKey()
	if err != nil {
		return nil, m.deriveErr(err)
	}

	// Drop the 0x04 prefix before hashing; the last 20 bytes of the
	// digest are the address.
	uncompressed := pubKey.SerializeUncompressed()[1:]
	addrBytes := keccak256(uncompressed)[12:]

	return &chain.Address{
		ChainID:   m.id,
		Family:    chain.FamilySecp256k1,
		Address:   checksumAddress(addrBytes),
		Path:      m.DerivationPath(account, index),
		PublicKey: hex.EncodeToString(uncompressed),
		Account:   account,
		Index:     index,
	}, nil
}

// ValidateAddress reports whether addr is a well-formed EVM address.
// All-lowercase and all-uppercase forms carry no checksum information
// and are accepted; mixed-case input must satisfy EIP-55.
func (m *Module) ValidateAddress(addr string) bool {
	if len(addr) != addressHexLen+2 || !strings.HasPrefix(addr, "0x") {
		return false
	}

	hexPart := addr[2:]
	raw, err := hex.DecodeString(hexPart)
	if err != nil {
		return false
	}

	if hexPart == strings.ToLower(hexPart) || hexPart == strings.ToUpper(hexPart) {
		return true
	}

	return checksumAddress(raw) == addr
}

func (m *Module) deriveErr(cause error) error {
	return kserr.WithDetails(kserr.ErrDerivationFailed, map[string]string{
		"chain": string(m.id),
		"cause": cause.Error(),
	})
}

func keccak256(data []byte) []byte {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(data)
	return hasher.Sum(nil)
}

// checksumAddress converts a 20-byte address to its EIP-55 checksummed
// hex form: keccak the lowercase hex, uppercase each letter whose hash
// nibble is >= 8.
func checksumAddress(addr []byte) string {
	addrHex := hex.EncodeToString(addr)
	hash := keccak256([]byte(addrHex))

	result := make([]byte, addressHexLen)
	for i := 0; i < addressHexLen; i++ {
		result[i] = checksumChar(addrHex[i], hash[i/2], i%2 == 1)
	}

	return "0x" + string(result)
}

// checksumChar applies EIP-55 casing to a single hex character.
func checksumChar(c, hashByte byte, oddPosition bool) byte {
	if c >= '0' && c <= '9' {
		return c
	}

	nibble := hashByte >> 4
	if oddPosition {
		nibble = hashByte & 0x0F
	}

	if nibble >= 8 {
		return c - 32
	}
	return c
}
