package solana

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"

	"github.com/keysmith/keysmith/internal/chain"
	"github.com/keysmith/keysmith/internal/secmem"
)

// curveKey is the SLIP-0010 HMAC key for the Ed25519 curve.
const curveKey = "ed25519 seed"

// node is one step of a SLIP-0010 Ed25519 derivation chain.
type node struct {
	key       [32]byte
	chainCode [32]byte
}

// masterNode computes the SLIP-0010 master node: HMAC-SHA512 keyed by
// "ed25519 seed" over the BIP39 seed. The left half is the private key,
// the right half the chain code.
func masterNode(seed []byte) node {
	mac := hmac.New(sha512.New, []byte(curveKey))
	mac.Write(seed)
	sum := mac.Sum(nil)

	var n node
	copy(n.key[:], sum[:32])
	copy(n.chainCode[:], sum[32:])
	secmem.Zero(sum)

	return n
}

// child derives the hardened child at index. Ed25519 supports hardened
// derivation only, so the hardening bit is applied unconditionally:
// HMAC-SHA512 keyed by the parent chain code over
// 0x00 || parent_key || ser32(index | 0x80000000).
func (n node) child(index uint32) node {
	data := make([]byte, 0, 37)
	data = append(data, 0x00)
	data = append(data, n.key[:]...)
	data = binary.BigEndian.AppendUint32(data, index|chain.HardenedOffset)

	mac := hmac.New(sha512.New, n.chainCode[:])
	mac.Write(data)
	sum := mac.Sum(nil)

	var c node
	copy(c.key[:], sum[:32])
	copy(c.chainCode[:], sum[32:])
	secmem.Zero(sum)
	secmem.Zero(data)

	return c
}

// derivePath walks the all-hardened path from the master node, zeroing
// intermediate nodes as it goes.
func derivePath(seed []byte, path []uint32) node {
	n := masterNode(seed)
	for _, index := range path {
		next := n.child(index)
		n.zero()
		n = next
	}

	return n
}

// publicKey returns the Ed25519 public key for the node's private key.
func (n node) publicKey() ed25519.PublicKey {
	priv := ed25519.NewKeyFromSeed(n.key[:])
	pub := priv.Public().(ed25519.PublicKey)
	secmem.Zero(priv)

	return pub
}

// zero wipes the node's key material.
func (n *node) zero() {
	secmem.Zero(n.key[:])
	secmem.Zero(n.chainCode[:])
}
