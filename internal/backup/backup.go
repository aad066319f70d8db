package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"filippo.io/age"

	"github.com/keysmith/keysmith/internal/fileutil"
	"github.com/keysmith/keysmith/internal/keystore"
	"github.com/keysmith/keysmith/internal/metadata"
	"github.com/keysmith/keysmith/internal/secmem"
	"github.com/keysmith/keysmith/internal/wallet"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

const (
	// Extension is the file extension for backup files.
	Extension = ".ksb"

	// dirPermissions is the permission mode for the backup directory.
	dirPermissions = 0o750

	// filePermissions is the permission mode for backup files.
	filePermissions = 0o600
)

// scryptWorkFactor is the age scrypt work factor (log2 of the iteration
// count). Tests lower it; production keeps the age default.
//
//nolint:gochecknoglobals // Tunable KDF cost shared by all backups
var scryptWorkFactor = 18

// SetScryptWorkFactor overrides the scrypt work factor. Only tests should
// lower it.
func SetScryptWorkFactor(logN int) {
	scryptWorkFactor = logN
}

// Service creates, verifies, and restores wallet backups.
type Service struct {
	backupDir string
	secrets   keystore.Store
	meta      *metadata.Store
}

// NewService creates a backup service writing to backupDir.
func NewService(backupDir string, secrets keystore.Store, meta *metadata.Store) *Service {
	return &Service{
		backupDir: backupDir,
		secrets:   secrets,
		meta:      meta,
	}
}

// Create writes an encrypted backup of a wallet and returns the document
// and its path. The wallet password both authorizes the export and
// encrypts the payload. The caller zeroes the password afterwards.
func (s *Service) Create(ctx context.Context, walletID string, password []byte) (*Backup, string, error) {
	w, err := s.meta.GetWallet(ctx, walletID)
	if err != nil {
		return nil, "", err
	}

	if w.IsWatchOnly() {
		return nil, "", kserr.WithSuggestion(
			kserr.WithDetails(kserr.ErrWatchOnly, map[string]string{
				"wallet_id": walletID,
			}),
			"watch-only wallets hold no secrets; re-add the address to recreate them")
	}

	// The keystore read is the authorization gate.
	mnemonic, err := s.secrets.Get(walletID, password)
	if err != nil {
		return nil, "", err
	}
	defer secmem.Zero(mnemonic)

	addrs, err := s.meta.ListAddresses(ctx, walletID)
	if err != nil {
		return nil, "", err
	}

	payload, err := json.Marshal(WalletData{
		Mnemonic:  mnemonic,
		Wallet:    w,
		Addresses: addrs,
	})
	if err != nil {
		return nil, "", kserr.Wrap(err, "serializing backup payload")
	}
	defer secmem.Zero(payload)

	encrypted, err := encrypt(payload, password)
	if err != nil {
		return nil, "", err
	}

	b := NewBackup(NewManifest(w, addrs), encrypted)

	path, err := s.writeBackup(b)
	if err != nil {
		return nil, "", err
	}

	return b, path, nil
}

// Verify checks a backup file's structure and checksum without
// decrypting. It proves the file is intact, not that the password is
// known.
func (s *Service) Verify(path string) (*Manifest, error) {
	b, err := s.readBackup(path)
	if err != nil {
		return nil, err
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}

	return &b.Manifest, nil
}

// VerifyWithDecryption checks a backup file and proves the password
// decrypts it. The caller zeroes the password afterwards.
func (s *Service) VerifyWithDecryption(path string, password []byte) (*Manifest, error) {
	b, err := s.readBackup(path)
	if err != nil {
		return nil, err
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}

	payload, err := decrypt(b.EncryptedData, password)
	if err != nil {
		return nil, err
	}
	secmem.Zero(payload)

	return &b.Manifest, nil
}

// Restore imports a backup as a new wallet. The restored wallet gets a
// fresh ID; newName overrides the backed-up name when non-empty. Since
// the user has just proven they hold a working backup, the restored
// wallet is marked backup-verified. The caller zeroes the password
// afterwards.
func (s *Service) Restore(ctx context.Context, path string, password []byte, newName string) (*wallet.Wallet, error) {
	b, err := s.readBackup(path)
	if err != nil {
		return nil, err
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}

	payload, err := decrypt(b.EncryptedData, password)
	if err != nil {
		return nil, err
	}
	defer secmem.Zero(payload)

	var data WalletData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, corruptErr("payload is not valid JSON")
	}
	defer secmem.Zero(data.Mnemonic)

	if data.Wallet == nil {
		return nil, corruptErr("payload missing wallet record")
	}

	mnemonic, err := wallet.ValidateMnemonic(string(data.Mnemonic))
	if err != nil {
		return nil, kserr.Wrap(err, "backup payload")
	}

	name := data.Wallet.Name
	if newName != "" {
		name = newName
	}

	restored, err := wallet.New(name, data.Wallet.Type)
	if err != nil {
		return nil, err
	}
	restored.BackupVerified = true

	if err := s.meta.CreateWallet(ctx, restored); err != nil {
		return nil, err
	}

	if err := s.secrets.Store(restored.ID, []byte(mnemonic), password); err != nil {
		_ = s.meta.DeleteWallet(ctx, restored.ID)
		return nil, err
	}

	if len(data.Addresses) > 0 {
		if err := s.meta.InsertAddresses(ctx, restored.ID, data.Addresses); err != nil {
			_ = s.secrets.Delete(restored.ID)
			_ = s.meta.DeleteWallet(ctx, restored.ID)

			return nil, err
		}
	}

	return restored, nil
}

// List returns the backup file names in the backup directory.
func (s *Service) List() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, kserr.Wrap(err, "reading backup directory")
	}

	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == Extension {
			backups = append(backups, entry.Name())
		}
	}

	return backups, nil
}

// BackupPath returns the path a backup file name resolves to.
func (s *Service) BackupPath(filename string) string {
	return filepath.Join(s.backupDir, filename)
}

func (s *Service) writeBackup(b *Backup) (string, error) {
	if err := fileutil.EnsureDir(s.backupDir, dirPermissions); err != nil {
		return "", kserr.Wrap(err, "creating backup directory")
	}

	timestamp := time.Now().Format("2006-01-02-150405")
	filename := fmt.Sprintf("%s-%s%s", b.Manifest.WalletName, timestamp, Extension)
	path := filepath.Join(s.backupDir, filename)

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", kserr.Wrap(err, "serializing backup")
	}

	if err := fileutil.WriteAtomic(path, data, filePermissions); err != nil {
		return "", kserr.Wrap(err, "writing backup file")
	}

	return path, nil
}

func (s *Service) readBackup(path string) (*Backup, error) {
	//nolint:gosec // G304: the path is user-supplied by design
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, kserr.WithDetails(kserr.ErrBackupNotFound, map[string]string{
			"path": path,
		})
	}
	if err != nil {
		return nil, kserr.Wrap(err, "reading backup file")
	}

	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, corruptErr("backup is not valid JSON")
	}

	return &b, nil
}

// encrypt seals the payload for an age scrypt recipient derived from the
// password.
func encrypt(plaintext, password []byte) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(string(password))
	if err != nil {
		return nil, kserr.Wrap(err, "creating scrypt recipient")
	}
	recipient.SetWorkFactor(scryptWorkFactor)

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, kserr.Wrap(err, "initializing encryption")
	}

	if _, err := w.Write(plaintext); err != nil {
		return nil, kserr.Wrap(err, "writing encrypted data")
	}

	if err := w.Close(); err != nil {
		return nil, kserr.Wrap(err, "finalizing encryption")
	}

	return buf.Bytes(), nil
}

// decrypt opens an age payload with a scrypt identity derived from the
// password. Failure reports ErrInvalidPassword: with the checksum already
// verified, a decryption failure means the password is wrong.
func decrypt(ciphertext, password []byte) ([]byte, error) {
	identity, err := age.NewScryptIdentity(string(password))
	if err != nil {
		return nil, kserr.Wrap(err, "creating scrypt identity")
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, kserr.ErrInvalidPassword
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, kserr.ErrInvalidPassword
	}

	return plaintext, nil
}
