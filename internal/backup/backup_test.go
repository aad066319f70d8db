package backup_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keysmith/keysmith/internal/backup"
	"github.com/keysmith/keysmith/internal/chain"
	"github.com/keysmith/keysmith/internal/keystore"
	"github.com/keysmith/keysmith/internal/metadata"
	"github.com/keysmith/keysmith/internal/wallet"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

func TestMain(m *testing.M) {
	backup.SetScryptWorkFactor(10) // Fast for tests
	os.Exit(m.Run())
}

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon " +
		"abandon abandon abandon abandon about"
	testPassword = "correct horse battery staple"
)

type testEnv struct {
	svc     *backup.Service
	secrets keystore.Store
	meta    *metadata.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()

	secrets := keystore.NewFileStore(
		filepath.Join(dir, "secrets"),
		keystore.KDFParams{Memory: 64, Time: 1, Threads: 1},
	)

	meta, err := metadata.Open(filepath.Join(dir, "keysmith.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, meta.Close())
	})

	return &testEnv{
		svc:     backup.NewService(filepath.Join(dir, "backups"), secrets, meta),
		secrets: secrets,
		meta:    meta,
	}
}

func testAddress(chainID chain.ID, index uint32, label string) *metadata.AddressRecord {
	return &metadata.AddressRecord{
		Address: chain.Address{
			ChainID:   chainID,
			Family:    chain.FamilySecp256k1,
			Address:   fmt.Sprintf("addr-%s-%d", chainID, index),
			Path:      fmt.Sprintf("m/84'/0'/0'/0/%d", index),
			PublicKey: "02" + strings.Repeat("ab", 32),
			Index:     index,
		},
		Label:     label,
		IsPrimary: index == 0,
	}
}

// seedTestWallet stores a wallet with a secret and two addresses.
func seedTestWallet(t *testing.T, env *testEnv, name string) *wallet.Wallet {
	t.Helper()

	ctx := context.Background()

	w, err := wallet.New(name, wallet.TypeHD)
	require.NoError(t, err)
	require.NoError(t, env.meta.CreateWallet(ctx, w))
	require.NoError(t, env.secrets.Store(w.ID, []byte(testMnemonic), []byte(testPassword)))

	recs := []*metadata.AddressRecord{
		testAddress(chain.Bitcoin, 0, "cold storage"),
		testAddress(chain.Ethereum, 0, ""),
	}
	require.NoError(t, env.meta.InsertAddresses(ctx, w.ID, recs))

	return w
}

func TestService_CreateAndVerify(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	w := seedTestWallet(t, env, "main")

	b, path, err := env.svc.Create(context.Background(), w.ID, []byte(testPassword))
	require.NoError(t, err)

	assert.Equal(t, backup.Version, b.Version)
	assert.Equal(t, backup.Extension, filepath.Ext(path))
	assert.FileExists(t, path)

	manifest, err := env.svc.Verify(path)
	require.NoError(t, err)
	assert.Equal(t, w.ID, manifest.WalletID)
	assert.Equal(t, "main", manifest.WalletName)
	assert.Equal(t, wallet.TypeHD, manifest.WalletType)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, manifest.Chains)
	assert.Equal(t, map[string]int{"bitcoin": 1, "ethereum": 1}, manifest.AddressCount)
	assert.Equal(t, "age-scrypt", manifest.EncryptionMethod)
	assert.WithinDuration(t, time.Now().UTC(), manifest.CreatedAt, time.Minute)
}

// The recovery phrase must never land on disk in cleartext.
func TestService_Create_NoPlaintextMnemonic(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	w := seedTestWallet(t, env, "main")

	_, path, err := env.svc.Create(context.Background(), w.ID, []byte(testPassword))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(data, []byte("abandon")))
}

func TestService_Create_WrongPassword(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	w := seedTestWallet(t, env, "main")

	_, _, err := env.svc.Create(context.Background(), w.ID, []byte("wrong"))
	assert.ErrorIs(t, err, kserr.ErrInvalidPassword)
}

func TestService_Create_MissingWallet(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	_, _, err := env.svc.Create(context.Background(),
		"00000000-0000-0000-0000-000000000000", []byte(testPassword))
	assert.ErrorIs(t, err, kserr.ErrWalletNotFound)
}

func TestService_Create_WatchOnly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	w, err := wallet.New("watcher", wallet.TypeWatchOnly)
	require.NoError(t, err)
	require.NoError(t, env.meta.CreateWallet(ctx, w))

	_, _, err = env.svc.Create(ctx, w.ID, []byte(testPassword))
	assert.ErrorIs(t, err, kserr.ErrWatchOnly)
}

func TestService_Verify_Missing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	_, err := env.svc.Verify(env.svc.BackupPath("nope.ksb"))
	assert.ErrorIs(t, err, kserr.ErrBackupNotFound)
}

func TestService_Verify_Corrupted(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	w := seedTestWallet(t, env, "main")

	_, path, err := env.svc.Create(context.Background(), w.ID, []byte(testPassword))
	require.NoError(t, err)

	t.Run("not json", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.ksb")
		require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o600))

		_, err := env.svc.Verify(bad)
		assert.ErrorIs(t, err, kserr.ErrBackupCorrupted)
	})

	t.Run("flipped ciphertext byte", func(t *testing.T) {
		var b backup.Backup
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &b))

		b.EncryptedData[0] ^= 0xFF
		tampered, err := json.Marshal(&b)
		require.NoError(t, err)

		bad := filepath.Join(t.TempDir(), "tampered.ksb")
		require.NoError(t, os.WriteFile(bad, tampered, 0o600))

		_, err = env.svc.Verify(bad)
		assert.ErrorIs(t, err, kserr.ErrBackupCorrupted)
	})

	t.Run("unsupported version", func(t *testing.T) {
		var b backup.Backup
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &b))

		b.Version = 99
		tampered, err := json.Marshal(&b)
		require.NoError(t, err)

		bad := filepath.Join(t.TempDir(), "versioned.ksb")
		require.NoError(t, os.WriteFile(bad, tampered, 0o600))

		_, err = env.svc.Verify(bad)
		assert.ErrorIs(t, err, kserr.ErrBackupCorrupted)
	})
}

func TestService_VerifyWithDecryption(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	w := seedTestWallet(t, env, "main")

	_, path, err := env.svc.Create(context.Background(), w.ID, []byte(testPassword))
	require.NoError(t, err)

	manifest, err := env.svc.VerifyWithDecryption(path, []byte(testPassword))
	require.NoError(t, err)
	assert.Equal(t, "main", manifest.WalletName)

	_, err = env.svc.VerifyWithDecryption(path, []byte("wrong"))
	assert.ErrorIs(t, err, kserr.ErrInvalidPassword)
}

// A restore on a clean machine recreates the wallet under a fresh ID with
// its secret and address records intact.
func TestService_Restore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	source := newTestEnv(t)
	w := seedTestWallet(t, source, "main")

	_, path, err := source.svc.Create(ctx, w.ID, []byte(testPassword))
	require.NoError(t, err)

	target := newTestEnv(t)
	restored, err := target.svc.Restore(ctx, path, []byte(testPassword), "")
	require.NoError(t, err)

	assert.NotEqual(t, w.ID, restored.ID)
	assert.Equal(t, "main", restored.Name)
	assert.Equal(t, wallet.TypeHD, restored.Type)
	assert.True(t, restored.BackupVerified)

	// The secret round-trips under the same password.
	mnemonic, err := target.secrets.Get(restored.ID, []byte(testPassword))
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, string(mnemonic))

	// Address records, labels included, come back.
	addrs, err := target.meta.ListAddresses(ctx, restored.ID)
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	assert.Equal(t, chain.Bitcoin, addrs[0].ChainID)
	assert.Equal(t, "cold storage", addrs[0].Label)
	assert.Equal(t, chain.Ethereum, addrs[1].ChainID)
}

func TestService_Restore_NewName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	env := newTestEnv(t)
	w := seedTestWallet(t, env, "main")

	_, path, err := env.svc.Create(ctx, w.ID, []byte(testPassword))
	require.NoError(t, err)

	// Restoring beside the original requires a new name.
	restored, err := env.svc.Restore(ctx, path, []byte(testPassword), "main-restored")
	require.NoError(t, err)
	assert.Equal(t, "main-restored", restored.Name)

	wallets, err := env.meta.ListWallets(ctx)
	require.NoError(t, err)
	assert.Len(t, wallets, 2)
}

func TestService_Restore_NameCollision(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	env := newTestEnv(t)
	w := seedTestWallet(t, env, "main")

	_, path, err := env.svc.Create(ctx, w.ID, []byte(testPassword))
	require.NoError(t, err)

	_, err = env.svc.Restore(ctx, path, []byte(testPassword), "")
	assert.ErrorIs(t, err, kserr.ErrWalletExists)
}

func TestService_Restore_WrongPassword(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	env := newTestEnv(t)
	w := seedTestWallet(t, env, "main")

	_, path, err := env.svc.Create(ctx, w.ID, []byte(testPassword))
	require.NoError(t, err)

	target := newTestEnv(t)
	_, err = target.svc.Restore(ctx, path, []byte("wrong"), "")
	assert.ErrorIs(t, err, kserr.ErrInvalidPassword)

	// Nothing half-restored.
	wallets, err := target.meta.ListWallets(ctx)
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func TestService_List(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	// Absent directory lists cleanly.
	names, err := env.svc.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	w := seedTestWallet(t, env, "main")
	_, path, err := env.svc.Create(context.Background(), w.ID, []byte(testPassword))
	require.NoError(t, err)

	// Foreign files are ignored.
	require.NoError(t, os.WriteFile(
		env.svc.BackupPath("notes.txt"), []byte("x"), 0o600))

	names, err = env.svc.List()
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, filepath.Base(path), names[0])
}

func TestCalculateChecksum(t *testing.T) {
	t.Parallel()

	first := backup.CalculateChecksum([]byte("data one"))
	second := backup.CalculateChecksum([]byte("data one"))
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	assert.NotEqual(t, first, backup.CalculateChecksum([]byte("data two")))
}

func TestVerifyChecksum(t *testing.T) {
	t.Parallel()

	data := []byte("payload")
	require.NoError(t, backup.VerifyChecksum(data, backup.CalculateChecksum(data)))

	err := backup.VerifyChecksum(data, "deadbeef")
	assert.ErrorIs(t, err, kserr.ErrBackupCorrupted)
}
