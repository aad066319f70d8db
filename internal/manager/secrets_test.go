package manager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keysmith/keysmith/internal/chain"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

func TestManager_ExportMnemonic(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	id := importWallet(t, env, "main")

	// No session required: the password is the gate.
	require.False(t, env.sessions.IsUnlocked(id))

	phrase, err := env.mgr.ExportMnemonic(ctx, id, []byte(testPassword))
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, phrase)
}

func TestManager_ExportMnemonic_WrongPassword(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	id := importWallet(t, env, "main")

	_, err := env.mgr.ExportMnemonic(ctx, id, []byte("wrong"))
	require.ErrorIs(t, err, kserr.ErrInvalidPassword)
}

func TestManager_ExportMnemonic_WatchOnly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.mgr.AddWatchOnly(ctx, "cold", chain.Bitcoin, btcAddr0)
	require.NoError(t, err)

	_, err = env.mgr.ExportMnemonic(ctx, res.WalletID, []byte(testPassword))
	require.ErrorIs(t, err, kserr.ErrWalletNotFound)
	require.NotErrorIs(t, err, kserr.ErrInvalidPassword)
}

func TestManager_ChangePassword(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	id := importWallet(t, env, "main")

	require.NoError(t, env.mgr.Unlock(ctx, id, []byte(testPassword)))

	newPassword := []byte("a different password")
	require.NoError(t, env.mgr.ChangePassword(ctx, id, []byte(testPassword), newPassword))

	// The old-password session did not survive the change.
	assert.False(t, env.sessions.IsUnlocked(id))

	err := env.mgr.Unlock(ctx, id, []byte(testPassword))
	require.ErrorIs(t, err, kserr.ErrInvalidPassword)

	require.NoError(t, env.mgr.Unlock(ctx, id, newPassword))
}

func TestManager_ChangePassword_WrongOld(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	id := importWallet(t, env, "main")

	require.NoError(t, env.mgr.Unlock(ctx, id, []byte(testPassword)))

	err := env.mgr.ChangePassword(ctx, id, []byte("wrong"), []byte("irrelevant"))
	require.ErrorIs(t, err, kserr.ErrInvalidPassword)

	// The session is dropped before the old password is checked, so even
	// a failed change leaves the wallet locked.
	assert.False(t, env.sessions.IsUnlocked(id))

	// The secret itself is untouched.
	phrase, err := env.mgr.ExportMnemonic(ctx, id, []byte(testPassword))
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, phrase)
}

func TestManager_ChangePassword_WatchOnly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.mgr.AddWatchOnly(ctx, "cold", chain.Bitcoin, btcAddr0)
	require.NoError(t, err)

	err = env.mgr.ChangePassword(ctx, res.WalletID, []byte(testPassword), []byte("new"))
	require.ErrorIs(t, err, kserr.ErrWalletNotFound)
}

func TestManager_VerifyBackup(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	id := importWallet(t, env, "main")

	w, err := env.mgr.GetWallet(ctx, id)
	require.NoError(t, err)
	require.False(t, w.BackupVerified)

	// The re-entered phrase may be messy; it is normalized before the
	// comparison.
	messy := "1. abandon 2. abandon 3. abandon 4. abandon 5. abandon 6. abandon " +
		"7. abandon 8. abandon 9. abandon 10. abandon 11. abandon 12. about"
	require.NoError(t, env.mgr.VerifyBackup(ctx, id, []byte(testPassword), messy))

	w, err = env.mgr.GetWallet(ctx, id)
	require.NoError(t, err)
	assert.True(t, w.BackupVerified)
}

func TestManager_VerifyBackup_WrongPhrase(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	id := importWallet(t, env, "main")

	err := env.mgr.VerifyBackup(ctx, id, []byte(testPassword), altMnemonic)
	require.ErrorIs(t, err, kserr.ErrInvalidMnemonic)

	w, err := env.mgr.GetWallet(ctx, id)
	require.NoError(t, err)
	assert.False(t, w.BackupVerified)
}

func TestManager_VerifyBackup_WrongPassword(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	id := importWallet(t, env, "main")

	err := env.mgr.VerifyBackup(ctx, id, []byte("wrong"), testMnemonic)
	require.ErrorIs(t, err, kserr.ErrInvalidPassword)

	w, err := env.mgr.GetWallet(ctx, id)
	require.NoError(t, err)
	assert.False(t, w.BackupVerified)
}

func TestManager_MarkBackupVerified(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	id := importWallet(t, env, "main")

	require.NoError(t, env.mgr.MarkBackupVerified(ctx, id))

	w, err := env.mgr.GetWallet(ctx, id)
	require.NoError(t, err)
	assert.True(t, w.BackupVerified)
}
