package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// createTestBackup backs up the named wallet and returns the written path.
func createTestBackup(t *testing.T, name string) string {
	t.Helper()

	cmd, buf := newTestCmd()
	require.NoError(t, runBackupCreate(cmd, []string{name}))

	files, err := app.Backups.List()
	require.NoError(t, err)
	require.NotEmpty(t, files)

	assert.Contains(t, buf.String(), "Backup written to")
	return app.Backups.BackupPath(files[len(files)-1])
}

func TestBackupCreateAndList(t *testing.T) {
	setupTestEnv(t)
	importTestWallet(t, "saved", []string{"bitcoin", "ethereum"})
	path := createTestBackup(t, "saved")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	cmd, buf := newTestCmd()
	require.NoError(t, runBackupList(cmd, nil))
	assert.Contains(t, buf.String(), filepath.Base(path))
}

func TestBackupCreateWatchOnly(t *testing.T) {
	setupTestEnv(t)
	resetCommandFlags(t)

	watchCmd, _ := newTestCmd()
	require.NoError(t, runWalletWatch(watchCmd, []string{"cold", "ethereum", ethVectorAddress}))

	withMockPrompts(t, testPassword, testMnemonic, true)
	cmd, _ := newTestCmd()
	err := runBackupCreate(cmd, []string{"cold"})
	require.Error(t, err)
	assert.True(t, kserr.Is(err, kserr.ErrWatchOnly))
}

func TestBackupVerify(t *testing.T) {
	setupTestEnv(t)
	importTestWallet(t, "checked", []string{"bitcoin"})
	path := createTestBackup(t, "checked")

	cmd, buf := newTestCmd()
	require.NoError(t, runBackupVerify(cmd, []string{path}))
	got := buf.String()
	assert.Contains(t, got, "Backup OK")
	assert.Contains(t, got, "checked")
}

func TestBackupVerifyByBareName(t *testing.T) {
	setupTestEnv(t)
	importTestWallet(t, "named", []string{"bitcoin"})
	path := createTestBackup(t, "named")

	cmd, buf := newTestCmd()
	require.NoError(t, runBackupVerify(cmd, []string{filepath.Base(path)}))
	assert.Contains(t, buf.String(), "Backup OK")
}

func TestBackupVerifyWithDecryption(t *testing.T) {
	setupTestEnv(t)
	importTestWallet(t, "proven", []string{"bitcoin"})
	path := createTestBackup(t, "proven")

	verifyDecrypt = true
	cmd, buf := newTestCmd()
	require.NoError(t, runBackupVerify(cmd, []string{path}))
	assert.Contains(t, buf.String(), "decrypts with the supplied password")
}

func TestBackupVerifyDecryptWrongPassword(t *testing.T) {
	setupTestEnv(t)
	importTestWallet(t, "denied", []string{"bitcoin"})
	path := createTestBackup(t, "denied")

	withMockPrompts(t, "wrong password here", testMnemonic, true)
	verifyDecrypt = true
	cmd, _ := newTestCmd()
	err := runBackupVerify(cmd, []string{path})
	require.Error(t, err)
	assert.True(t, kserr.Is(err, kserr.ErrInvalidPassword))
}

func TestBackupVerifyTamperedFile(t *testing.T) {
	setupTestEnv(t)
	importTestWallet(t, "tampered", []string{"bitcoin"})
	path := createTestBackup(t, "tampered")

	data, err := os.ReadFile(path) //nolint:gosec // test-owned path
	require.NoError(t, err)
	data[len(data)/2] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cmd, _ := newTestCmd()
	err = runBackupVerify(cmd, []string{path})
	require.Error(t, err)
	assert.True(t, kserr.Is(err, kserr.ErrBackupCorrupted))
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	setupTestEnv(t)
	importTestWallet(t, "original", []string{"bitcoin", "ethereum"})
	path := createTestBackup(t, "original")

	restoreName = "restored"
	cmd, buf := newTestCmd()
	require.NoError(t, runBackupRestore(cmd, []string{path}))
	assert.Contains(t, buf.String(), "Restored wallet 'restored'")

	ctx := context.Background()
	wlt, err := app.Manager.ResolveWallet(ctx, "restored")
	require.NoError(t, err)

	// The restored secret decrypts under the same password.
	phrase, err := app.Manager.ExportMnemonic(ctx, wlt.ID, []byte(testPassword))
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, phrase)

	// Address metadata came along.
	addrs, err := app.Manager.ListAddresses(ctx, wlt.ID)
	require.NoError(t, err)
	assert.Len(t, addrs, 2)
}

func TestBackupRestoreNameCollision(t *testing.T) {
	setupTestEnv(t)
	importTestWallet(t, "twin", []string{"bitcoin"})
	path := createTestBackup(t, "twin")

	cmd, _ := newTestCmd()
	err := runBackupRestore(cmd, []string{path})
	require.Error(t, err)
	assert.True(t, kserr.Is(err, kserr.ErrWalletExists))
}

func TestBackupVerifyMissingFile(t *testing.T) {
	setupTestEnv(t)
	resetCommandFlags(t)

	cmd, _ := newTestCmd()
	err := runBackupVerify(cmd, []string{"no-such-backup.ksb"})
	require.Error(t, err)
	assert.True(t, kserr.Is(err, kserr.ErrBackupNotFound))
}

func TestBackupListEmpty(t *testing.T) {
	setupTestEnv(t)
	resetCommandFlags(t)

	cmd, buf := newTestCmd()
	require.NoError(t, runBackupList(cmd, nil))
	assert.Contains(t, buf.String(), "No backups")
}
