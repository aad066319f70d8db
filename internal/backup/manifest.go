// Package backup creates and restores encrypted wallet backup files. A
// backup is a single JSON document: a cleartext manifest describing what
// is inside, an age-encrypted payload carrying the mnemonic and wallet
// records, and a SHA-256 checksum of the ciphertext so transport damage
// is detectable without a password.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/keysmith/keysmith/internal/metadata"
	"github.com/keysmith/keysmith/internal/wallet"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// Version is the current backup format version.
const Version = 1

// Backup is the on-disk backup document.
type Backup struct {
	// Version is the backup format version.
	Version int `json:"version"`

	// Manifest describes the backup contents in cleartext.
	Manifest Manifest `json:"manifest"`

	// EncryptedData is the age-encrypted WalletData payload.
	EncryptedData []byte `json:"encrypted_data"`

	// Checksum is the SHA-256 hex digest of EncryptedData.
	Checksum string `json:"checksum"`
}

// Manifest is the cleartext description of a backup. It carries no
// secret material.
type Manifest struct {
	// WalletID is the ID of the wallet at backup time. Restores mint a
	// fresh ID; this one identifies the source.
	WalletID string `json:"wallet_id"`

	// WalletName is the name of the backed-up wallet.
	WalletName string `json:"wallet_name"`

	// WalletType records how the wallet was created.
	WalletType wallet.Type `json:"wallet_type"`

	// CreatedAt is when the backup was created.
	CreatedAt time.Time `json:"created_at"`

	// Chains lists the chains with derived addresses in the backup.
	Chains []string `json:"chains"`

	// AddressCount is the number of addresses per chain.
	AddressCount map[string]int `json:"address_count"`

	// EncryptionMethod describes the payload encryption.
	EncryptionMethod string `json:"encryption_method"`
}

// WalletData is the decrypted payload of a backup.
type WalletData struct {
	// Mnemonic is the recovery phrase. Callers zero it after use.
	Mnemonic []byte `json:"mnemonic"`

	// Wallet is the wallet record at backup time.
	Wallet *wallet.Wallet `json:"wallet"`

	// Addresses are the derived address records, labels included.
	Addresses []*metadata.AddressRecord `json:"addresses,omitempty"`
}

// NewManifest builds a manifest for a wallet and its address records.
func NewManifest(w *wallet.Wallet, addrs []*metadata.AddressRecord) Manifest {
	counts := make(map[string]int)

	var chains []string
	for _, rec := range addrs {
		id := string(rec.ChainID)
		if counts[id] == 0 {
			chains = append(chains, id)
		}
		counts[id]++
	}

	return Manifest{
		WalletID:         w.ID,
		WalletName:       w.Name,
		WalletType:       w.Type,
		CreatedAt:        time.Now().UTC(),
		Chains:           chains,
		AddressCount:     counts,
		EncryptionMethod: "age-scrypt",
	}
}

// NewBackup assembles a backup document around an encrypted payload.
func NewBackup(manifest Manifest, encryptedData []byte) *Backup {
	return &Backup{
		Version:       Version,
		Manifest:      manifest,
		EncryptedData: encryptedData,
		Checksum:      CalculateChecksum(encryptedData),
	}
}

// CalculateChecksum computes the SHA-256 hex digest of data.
func CalculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// VerifyChecksum verifies that data matches the expected digest.
func VerifyChecksum(data []byte, expected string) error {
	if actual := CalculateChecksum(data); actual != expected {
		return corruptErr("checksum mismatch")
	}
	return nil
}

// Validate checks the document structure and the payload checksum.
func (b *Backup) Validate() error {
	switch {
	case b.Version != Version:
		return corruptErr("unsupported backup version")
	case b.Manifest.WalletName == "":
		return corruptErr("missing wallet name")
	case len(b.EncryptedData) == 0:
		return corruptErr("no encrypted data")
	}

	return VerifyChecksum(b.EncryptedData, b.Checksum)
}

func corruptErr(reason string) error {
	return kserr.WithDetails(kserr.ErrBackupCorrupted, map[string]string{
		"reason": reason,
	})
}
