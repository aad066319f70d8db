// Package keystore persists wallet secrets encrypted at rest. Each wallet
// gets one envelope file: the secret sealed with XChaCha20-Poly1305 under
// an Argon2id-derived key, with the wallet ID bound as additional data so
// an envelope cannot be swapped between wallets undetected.
package keystore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/keysmith/keysmith/internal/fileutil"
	"github.com/keysmith/keysmith/internal/metrics"
	"github.com/keysmith/keysmith/internal/secmem"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

const (
	// envelopeVersion is the current on-disk format version.
	envelopeVersion = 1

	// kdfArgon2id names the only supported key derivation function.
	kdfArgon2id = "argon2id"

	// saltSize is the Argon2id salt length in bytes.
	saltSize = 16

	// keySize is the derived AEAD key length in bytes.
	keySize = 32

	// secretFileExtension is the extension for envelope files.
	secretFileExtension = ".secret"

	// secretFilePermissions is the permission mode for envelope files.
	secretFilePermissions = 0o600

	// secretDirPermissions is the permission mode for the secrets directory.
	secretDirPermissions = 0o700
)

// KDFParams are the Argon2id cost parameters for one envelope. They are
// stored alongside the ciphertext so tuning the defaults never strands
// previously written entries.
type KDFParams struct {
	// Memory is the Argon2id memory cost in KiB.
	Memory uint32 `json:"memory"`

	// Time is the number of passes.
	Time uint32 `json:"time"`

	// Threads is the lane count.
	Threads uint8 `json:"threads"`
}

// DefaultKDFParams returns the production cost parameters: 64 MiB, 3
// passes, 4 lanes.
func DefaultKDFParams() KDFParams {
	return KDFParams{Memory: 64 * 1024, Time: 3, Threads: 4}
}

// valid reports whether every cost parameter is usable. argon2.IDKey
// panics on zero time or threads, so malformed stored params must be
// caught before key derivation.
func (p KDFParams) valid() bool {
	return p.Memory > 0 && p.Time > 0 && p.Threads > 0
}

// Store is the secret persistence contract the wallet manager depends on.
type Store interface {
	// Store encrypts and writes a new secret. Refuses to overwrite.
	Store(walletID string, secret, password []byte) error

	// Get decrypts and returns a stored secret. The caller owns the
	// returned bytes and zeroes them when done.
	Get(walletID string, password []byte) ([]byte, error)

	// ChangePassword re-encrypts a stored secret under a new password.
	ChangePassword(walletID string, oldPassword, newPassword []byte) error

	// Delete removes a stored secret. Deleting an absent entry is a no-op.
	Delete(walletID string) error

	// Exists reports whether a secret is stored for the wallet.
	Exists(walletID string) (bool, error)

	// List returns the wallet IDs with stored secrets.
	List() ([]string, error)
}

// envelope is the on-disk secret file. Byte slices marshal as base64.
type envelope struct {
	Version    int       `json:"version"`
	KDF        string    `json:"kdf"`
	KDFParams  KDFParams `json:"kdf_params"`
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
}

// FileStore implements Store with one envelope file per wallet under a
// secrets directory.
type FileStore struct {
	basePath string
	params   KDFParams
}

// NewFileStore returns a store rooted at basePath. Zero-valued fields in
// params fall back to the defaults.
func NewFileStore(basePath string, params KDFParams) *FileStore {
	defaults := DefaultKDFParams()
	if params.Memory == 0 {
		params.Memory = defaults.Memory
	}
	if params.Time == 0 {
		params.Time = defaults.Time
	}
	if params.Threads == 0 {
		params.Threads = defaults.Threads
	}

	return &FileStore{basePath: basePath, params: params}
}

// Store encrypts the secret under the password and writes the envelope
// atomically. An existing entry for the wallet is never overwritten.
func (s *FileStore) Store(walletID string, secret, password []byte) error {
	if err := checkWalletID(walletID); err != nil {
		return err
	}
	if len(secret) == 0 {
		return kserr.WithDetails(kserr.ErrInvalidInput, map[string]string{
			"reason": "empty secret",
		})
	}
	if len(password) == 0 {
		return kserr.WithDetails(kserr.ErrInvalidInput, map[string]string{
			"reason": "empty password",
		})
	}

	exists, err := s.Exists(walletID)
	if err != nil {
		return err
	}
	if exists {
		return kserr.WithDetails(kserr.ErrWalletExists, map[string]string{
			"wallet_id": walletID,
		})
	}

	if err := fileutil.EnsureDir(s.basePath, secretDirPermissions); err != nil {
		return kserr.Wrap(err, "creating secrets directory")
	}

	return s.write(walletID, secret, password)
}

// Get reads and decrypts the secret for a wallet. A wrong password and a
// tampered ciphertext are indistinguishable by design: both surface as
// ErrInvalidPassword.
func (s *FileStore) Get(walletID string, password []byte) ([]byte, error) {
	if err := checkWalletID(walletID); err != nil {
		return nil, err
	}

	path := s.secretPath(walletID)

	// SECURITY: checkWalletID restricts the ID to a canonical UUID, so the
	// joined path cannot traverse outside basePath.
	//nolint:gosec // G304: path derives from a validated UUID
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, kserr.WithDetails(kserr.ErrWalletNotFound, map[string]string{
			"wallet_id": walletID,
		})
	}
	if err != nil {
		return nil, kserr.Wrap(err, "reading secret file")
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, corruptErr(walletID, "envelope is not valid JSON")
	}

	if err := checkEnvelope(&env, walletID); err != nil {
		return nil, err
	}

	return open(&env, password, walletID)
}

// ChangePassword decrypts under the old password and atomically replaces
// the envelope with one sealed under the new password. Fresh salt and
// nonce are drawn; the current cost parameters apply to the new envelope.
func (s *FileStore) ChangePassword(walletID string, oldPassword, newPassword []byte) error {
	if len(newPassword) == 0 {
		return kserr.WithDetails(kserr.ErrInvalidInput, map[string]string{
			"reason": "empty password",
		})
	}

	secret, err := s.Get(walletID, oldPassword)
	if err != nil {
		return err
	}
	defer secmem.Zero(secret)

	return s.write(walletID, secret, newPassword)
}

// Delete removes the secret file. Deleting an absent entry is a no-op.
func (s *FileStore) Delete(walletID string) error {
	if err := checkWalletID(walletID); err != nil {
		return err
	}

	err := os.Remove(s.secretPath(walletID))
	if err != nil && !os.IsNotExist(err) {
		return kserr.Wrap(err, "removing secret file")
	}

	return nil
}

// Exists reports whether a secret is stored for the wallet.
func (s *FileStore) Exists(walletID string) (bool, error) {
	if err := checkWalletID(walletID); err != nil {
		return false, err
	}

	_, err := os.Stat(s.secretPath(walletID))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, kserr.Wrap(err, "checking secret file")
	}

	return true, nil
}

// List returns the wallet IDs with stored secrets. Files that do not look
// like envelope files are ignored.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, kserr.Wrap(err, "reading secrets directory")
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, secretFileExtension) {
			continue
		}
		id := strings.TrimSuffix(name, secretFileExtension)
		if checkWalletID(id) != nil {
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// write seals and atomically persists one envelope.
func (s *FileStore) write(walletID string, secret, password []byte) error {
	env, err := seal(secret, password, walletID, s.params)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return kserr.Wrap(err, "marshaling envelope")
	}

	if err := fileutil.WriteAtomic(s.secretPath(walletID), data, secretFilePermissions); err != nil {
		return kserr.Wrap(kserr.WithDetails(kserr.ErrStorageFailure, map[string]string{
			"wallet_id": walletID,
		}), "writing secret file: %v", err)
	}

	return nil
}

// secretPath returns the envelope path for a wallet ID. The ID has
// already been validated as a canonical UUID.
func (s *FileStore) secretPath(walletID string) string {
	return filepath.Join(s.basePath, walletID+secretFileExtension)
}

// seal encrypts a secret into a fresh envelope.
func seal(secret, password []byte, walletID string, params KDFParams) (*envelope, error) {
	salt, err := secmem.RandomBytes(saltSize)
	if err != nil {
		return nil, kserr.WithDetails(kserr.ErrEntropyFailure, map[string]string{
			"cause": err.Error(),
		})
	}

	nonce, err := secmem.RandomBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, kserr.WithDetails(kserr.ErrEntropyFailure, map[string]string{
			"cause": err.Error(),
		})
	}

	key := deriveKey(password, salt, params)
	defer secmem.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, kserr.Wrap(err, "initializing cipher")
	}

	return &envelope{
		Version:    envelopeVersion,
		KDF:        kdfArgon2id,
		KDFParams:  params,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, secret, []byte(walletID)),
	}, nil
}

// open decrypts an envelope. Authentication failure is reported uniformly
// as ErrInvalidPassword: a wrong password and a tampered ciphertext must
// not be distinguishable.
func open(env *envelope, password []byte, walletID string) ([]byte, error) {
	key := deriveKey(password, env.Salt, env.KDFParams)
	defer secmem.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, kserr.Wrap(err, "initializing cipher")
	}

	secret, err := aead.Open(nil, env.Nonce, env.Ciphertext, []byte(walletID))
	if err != nil {
		return nil, kserr.WithDetails(kserr.ErrInvalidPassword, map[string]string{
			"wallet_id": walletID,
		})
	}

	return secret, nil
}

// checkEnvelope validates the structural fields before any password is
// used. Malformed structure is corruption, not an authentication failure.
func checkEnvelope(env *envelope, walletID string) error {
	switch {
	case env.Version != envelopeVersion:
		return corruptErr(walletID, "unsupported envelope version")
	case env.KDF != kdfArgon2id:
		return corruptErr(walletID, "unsupported kdf")
	case !env.KDFParams.valid():
		return corruptErr(walletID, "invalid kdf parameters")
	case len(env.Salt) != saltSize:
		return corruptErr(walletID, "invalid salt length")
	case len(env.Nonce) != chacha20poly1305.NonceSizeX:
		return corruptErr(walletID, "invalid nonce length")
	case len(env.Ciphertext) < chacha20poly1305.Overhead:
		return corruptErr(walletID, "truncated ciphertext")
	}

	return nil
}

func corruptErr(walletID, reason string) error {
	return kserr.WithDetails(kserr.ErrCorruptedData, map[string]string{
		"wallet_id": walletID,
		"reason":    reason,
	})
}

func deriveKey(password, salt []byte, params KDFParams) []byte {
	start := time.Now()
	key := argon2.IDKey(password, salt, params.Time, params.Memory, params.Threads, keySize)
	metrics.Global.RecordKDF(time.Since(start))
	return key
}

// checkWalletID rejects anything that is not a canonical UUID string,
// which also rules out path traversal in file names.
func checkWalletID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return kserr.WithDetails(kserr.ErrInvalidInput, map[string]string{
			"reason":    "wallet id must be a canonical UUID",
			"wallet_id": id,
		})
	}

	return nil
}
