package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kserr "github.com/keysmith/keysmith/pkg/errors"
)

func TestSessionUnlockLockCycle(t *testing.T) {
	setupTestEnv(t)
	importTestWallet(t, "cycle", []string{"bitcoin"})

	cmd, buf := newTestCmd()
	require.NoError(t, runSessionUnlock(cmd, []string{"cycle"}))
	assert.Contains(t, buf.String(), "Unlocked 'cycle' until")

	statusCmd, statusBuf := newTestCmd()
	require.NoError(t, runSessionStatus(statusCmd, []string{"cycle"}))
	assert.Contains(t, statusBuf.String(), "unlocked")

	lockCmd, lockBuf := newTestCmd()
	require.NoError(t, runSessionLock(lockCmd, []string{"cycle"}))
	assert.Contains(t, lockBuf.String(), "Locked 'cycle'")

	afterCmd, afterBuf := newTestCmd()
	require.NoError(t, runSessionStatus(afterCmd, []string{"cycle"}))
	assert.Contains(t, afterBuf.String(), "locked")
}

func TestSessionUnlockWrongPassword(t *testing.T) {
	setupTestEnv(t)
	importTestWallet(t, "guarded", []string{"bitcoin"})
	withMockPrompts(t, "not the password", testMnemonic, true)

	cmd, _ := newTestCmd()
	err := runSessionUnlock(cmd, []string{"guarded"})
	require.Error(t, err)
	assert.True(t, kserr.Is(err, kserr.ErrInvalidPassword))
}

func TestSessionUnlockWatchOnly(t *testing.T) {
	setupTestEnv(t)
	resetCommandFlags(t)

	watchCmd, _ := newTestCmd()
	require.NoError(t, runWalletWatch(watchCmd, []string{"observer", "ethereum", ethVectorAddress}))

	withMockPrompts(t, testPassword, testMnemonic, true)
	cmd, _ := newTestCmd()
	err := runSessionUnlock(cmd, []string{"observer"})
	require.Error(t, err)
	assert.True(t, kserr.Is(err, kserr.ErrWalletNotFound))
}

func TestSessionLockAll(t *testing.T) {
	setupTestEnv(t)
	importTestWallet(t, "first", []string{"bitcoin"})
	importTestWallet(t, "second", []string{"bitcoin"})

	for _, name := range []string{"first", "second"} {
		cmd, _ := newTestCmd()
		require.NoError(t, runSessionUnlock(cmd, []string{name}))
	}
	require.Equal(t, 2, app.Sessions.ActiveCount())

	lockAll = true
	cmd, buf := newTestCmd()
	require.NoError(t, runSessionLock(cmd, nil))
	assert.Contains(t, buf.String(), "Locked 2 session(s)")
	assert.Equal(t, 0, app.Sessions.ActiveCount())
}

func TestSessionStatusNoSessions(t *testing.T) {
	setupTestEnv(t)
	resetCommandFlags(t)

	cmd, buf := newTestCmd()
	require.NoError(t, runSessionStatus(cmd, nil))
	assert.Contains(t, buf.String(), "No active sessions")
}

func TestSessionStatusListsActive(t *testing.T) {
	setupTestEnv(t)
	importTestWallet(t, "active", []string{"bitcoin"})

	cmd, _ := newTestCmd()
	require.NoError(t, runSessionUnlock(cmd, []string{"active"}))

	statusCmd, buf := newTestCmd()
	require.NoError(t, runSessionStatus(statusCmd, nil))
	got := buf.String()
	assert.Contains(t, got, "Active sessions:")
	assert.Contains(t, got, "expires in")
}

func TestSessionUnlockUnknownWallet(t *testing.T) {
	setupTestEnv(t)
	resetCommandFlags(t)
	withMockPrompts(t, testPassword, testMnemonic, true)

	cmd, _ := newTestCmd()
	err := runSessionUnlock(cmd, []string{"ghost"})
	require.Error(t, err)
	assert.True(t, kserr.Is(err, kserr.ErrWalletNotFound))
}
