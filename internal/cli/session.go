package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/keysmith/keysmith/internal/secmem"
	"github.com/keysmith/keysmith/internal/session"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// unlockTTLMinutes overrides the configured session lifetime.
	unlockTTLMinutes int
	// lockAll ends every session instead of one wallet's.
	lockAll bool
)

// sessionCmd is the parent command for session operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Unlock and lock wallets",
	Long: `Manage wallet unlock sessions.

Unlocking decrypts a wallet's seed into locked process memory for a limited
time (default: 15 minutes). While unlocked, address derivation works without
re-entering the password. Locking, or the timer running out, zeroes the seed.

Sessions live only in this process: they end when the process exits.`,
}

// sessionUnlockCmd unlocks a wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionUnlockCmd = &cobra.Command{
	Use:   "unlock <wallet>",
	Short: "Unlock a wallet for derivation",
	Long: `Unlock a wallet: the password decrypts the stored mnemonic, the seed is
derived and cached in memory until the session expires.

Watch-only wallets cannot be unlocked; they hold no key material.`,
	Example: `  keysmith session unlock main
  keysmith session unlock main --ttl 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionUnlock,
}

// sessionLockCmd locks one or all wallets.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionLockCmd = &cobra.Command{
	Use:   "lock [wallet]",
	Short: "Lock a wallet, zeroing its cached seed",
	Long: `Lock a wallet immediately, zeroing its cached seed.

Locking an already-locked wallet is a no-op. With --all, every active
session is ended.`,
	Example: `  keysmith session lock main
  keysmith session lock --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessionLock,
}

// sessionStatusCmd shows active sessions.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionStatusCmd = &cobra.Command{
	Use:     "status [wallet]",
	Short:   "Show active sessions and remaining time",
	Long:    `Show active unlock sessions and their remaining time, or one wallet's state.`,
	Example: `  keysmith session status`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runSessionStatus,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionUnlockCmd)
	sessionCmd.AddCommand(sessionLockCmd)
	sessionCmd.AddCommand(sessionStatusCmd)

	sessionUnlockCmd.Flags().IntVar(&unlockTTLMinutes, "ttl", 0, "session lifetime in minutes (default from config)")
	sessionLockCmd.Flags().BoolVar(&lockAll, "all", false, "lock every unlocked wallet")
}

func runSessionUnlock(cmd *cobra.Command, args []string) error {
	// The app is assembled on first use, so a TTL override must land in
	// the config before the manager is built.
	if unlockTTLMinutes > 0 && app == nil {
		cfg.Security.SessionTTLMinutes = unlockTTLMinutes
	}

	a, err := getApp()
	if err != nil {
		return err
	}

	wlt, err := resolveWalletArg(cmd, a, args[0])
	if err != nil {
		return err
	}

	password, err := promptPasswordFn("Wallet password: ")
	if err != nil {
		return err
	}
	defer secmem.Zero(password)

	ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
	defer cancel()

	if err = a.Manager.Unlock(ctx, wlt.ID, password); err != nil {
		return err
	}

	status, err := a.Manager.Status(ctx, wlt.ID)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, status)
	}
	out(w, "Unlocked '%s' until %s\n", wlt.Name, status.ExpiresAt.Format(time.RFC3339))
	return nil
}

func runSessionLock(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	if lockAll || len(args) == 0 {
		count := a.Manager.LockAll()
		if formatter.IsJSON() {
			return writeJSON(w, map[string]int{"locked": count})
		}
		out(w, "Locked %d session(s)\n", count)
		return nil
	}

	wlt, err := resolveWalletArg(cmd, a, args[0])
	if err != nil {
		return err
	}

	a.Manager.Lock(wlt.ID)
	if formatter.IsJSON() {
		return writeJSON(w, map[string]string{"locked": wlt.ID})
	}
	out(w, "Locked '%s'\n", wlt.Name)
	return nil
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	if len(args) == 1 {
		wlt, err := resolveWalletArg(cmd, a, args[0])
		if err != nil {
			return err
		}

		ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
		defer cancel()

		status, err := a.Manager.Status(ctx, wlt.ID)
		if err != nil {
			return err
		}

		if formatter.IsJSON() {
			return writeJSON(w, status)
		}
		if status.Unlocked {
			out(w, "'%s' is unlocked, %s remaining\n", status.Name, formatRemaining(status.ExpiresAt))
		} else {
			out(w, "'%s' is locked\n", status.Name)
		}
		return nil
	}

	sessions := a.Manager.ActiveSessions()
	if formatter.IsJSON() {
		return writeJSON(w, struct {
			Sessions []session.Info `json:"sessions"`
		}{Sessions: sessions})
	}

	if len(sessions) == 0 {
		outln(w, "No active sessions")
		return nil
	}

	outln(w, "Active sessions:")
	for _, info := range sessions {
		out(w, "  %s: expires in %s\n", info.WalletID, formatRemaining(info.ExpiresAt))
	}
	return nil
}
