package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/keysmith/keysmith/internal/metadata"
	"github.com/keysmith/keysmith/internal/output"
	"github.com/keysmith/keysmith/internal/secmem"
	"github.com/keysmith/keysmith/internal/wallet"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// deleteForce skips the interactive confirmation on wallet delete.
	deleteForce bool
)

// walletCmd is the parent command for wallet operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallets",
	Long:  `Create, import, list, and manage HD and watch-only wallets.`,
}

// walletListCmd lists all wallets.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List all wallets",
	Long:    `List every wallet in the metadata store with its type and backup state.`,
	Example: `  keysmith wallet list`,
	Aliases: []string{"ls"},
	RunE:    runWalletList,
}

// walletInfoCmd shows one wallet in detail.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletInfoCmd = &cobra.Command{
	Use:   "info <wallet>",
	Short: "Show wallet details and addresses",
	Long: `Show a wallet's metadata, session state, and derived addresses.

The wallet may be referenced by name or by ID.`,
	Example: `  keysmith wallet info main`,
	Args:    cobra.ExactArgs(1),
	RunE:    runWalletInfo,
}

// walletDeleteCmd deletes a wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletDeleteCmd = &cobra.Command{
	Use:   "delete <wallet>",
	Short: "Delete a wallet and its encrypted secret",
	Long: `Delete a wallet: its session is locked, its encrypted secret is removed,
and its metadata and addresses are erased.

This is irreversible. Unless the wallet's backup phrase is stored elsewhere,
its funds become unrecoverable.`,
	Example: `  keysmith wallet delete old-wallet`,
	Args:    cobra.ExactArgs(1),
	RunE:    runWalletDelete,
}

// walletRenameCmd renames a wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletRenameCmd = &cobra.Command{
	Use:     "rename <wallet> <new-name>",
	Short:   "Rename a wallet",
	Long:    `Rename a wallet. The new name must be unique and use only letters, digits, - and _.`,
	Example: `  keysmith wallet rename main savings`,
	Args:    cobra.ExactArgs(2),
	RunE:    runWalletRename,
}

// walletVerifyBackupCmd checks a re-entered phrase against the stored one.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletVerifyBackupCmd = &cobra.Command{
	Use:   "verify-backup <wallet>",
	Short: "Verify a written-down recovery phrase",
	Long: `Verify that a written-down recovery phrase matches the wallet.

You will be prompted for the wallet password and then for the phrase.
On a match the wallet is marked backup-verified.`,
	Example: `  keysmith wallet verify-backup main`,
	Args:    cobra.ExactArgs(1),
	RunE:    runWalletVerifyBackup,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletListCmd)
	walletCmd.AddCommand(walletInfoCmd)
	walletCmd.AddCommand(walletDeleteCmd)
	walletCmd.AddCommand(walletRenameCmd)
	walletCmd.AddCommand(walletVerifyBackupCmd)

	walletDeleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation prompt")
}

// resolveWalletArg resolves a name-or-ID reference through the manager.
func resolveWalletArg(cmd *cobra.Command, a *App, ref string) (*wallet.Wallet, error) {
	ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
	defer cancel()
	return a.Manager.ResolveWallet(ctx, ref)
}

func runWalletList(cmd *cobra.Command, _ []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
	defer cancel()

	wallets, err := a.Manager.ListWallets(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, wallets)
	}

	if len(wallets) == 0 {
		outln(w, "No wallets. Create one with 'keysmith wallet create <name>'.")
		return nil
	}

	table := newWalletTable()
	for _, wlt := range wallets {
		table.AddRow(
			wlt.Name,
			string(wlt.Type),
			boolMark(wlt.BackupVerified),
			wlt.CreatedAt.Format("2006-01-02"),
			wlt.ID,
		)
	}
	return table.Render(w)
}

func runWalletInfo(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

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
	addrs, err := a.Manager.ListAddresses(ctx, wlt.ID)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, struct {
			Wallet    *wallet.Wallet            `json:"wallet"`
			Unlocked  bool                      `json:"unlocked"`
			ExpiresAt string                    `json:"expires_at,omitempty"`
			Addresses []*metadata.AddressRecord `json:"addresses"`
		}{
			Wallet:    wlt,
			Unlocked:  status.Unlocked,
			ExpiresAt: formatExpiry(status.ExpiresAt),
			Addresses: addrs,
		})
	}

	out(w, "Name:            %s\n", wlt.Name)
	out(w, "ID:              %s\n", wlt.ID)
	out(w, "Type:            %s\n", wlt.Type)
	out(w, "Backup verified: %s\n", boolMark(wlt.BackupVerified))
	out(w, "Created:         %s\n", wlt.CreatedAt.Format(time.RFC3339))
	if status.Unlocked {
		out(w, "Session:         unlocked until %s\n", status.ExpiresAt.Format(time.RFC3339))
	} else if wlt.Type.HasSecret() {
		outln(w, "Session:         locked")
	}

	if len(addrs) == 0 {
		return nil
	}
	outln(w)
	return renderAddressTable(w, addrs)
}

func runWalletDelete(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	wlt, err := resolveWalletArg(cmd, a, args[0])
	if err != nil {
		return err
	}

	if !deleteForce {
		question := fmt.Sprintf("Delete wallet '%s'? This cannot be undone.", wlt.Name)
		if !promptConfirmFn(question) {
			outln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
	defer cancel()

	if err = a.Manager.DeleteWallet(ctx, wlt.ID); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, map[string]string{"deleted": wlt.ID})
	}
	out(w, "Deleted wallet '%s'\n", wlt.Name)
	return nil
}

func runWalletRename(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	wlt, err := resolveWalletArg(cmd, a, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
	defer cancel()

	if err = a.Manager.RenameWallet(ctx, wlt.ID, args[1]); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, map[string]string{"id": wlt.ID, "name": args[1]})
	}
	out(w, "Renamed '%s' to '%s'\n", wlt.Name, args[1])
	return nil
}

func runWalletVerifyBackup(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	wlt, err := resolveWalletArg(cmd, a, args[0])
	if err != nil {
		return err
	}
	if !wlt.Type.HasSecret() {
		return kserr.WithSuggestion(kserr.ErrWatchOnly, "watch-only wallets have no recovery phrase")
	}

	password, err := promptPasswordFn("Wallet password: ")
	if err != nil {
		return err
	}
	defer secmem.Zero(password)

	phrase, err := promptMnemonicFn()
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
	defer cancel()

	if err = a.Manager.VerifyBackup(ctx, wlt.ID, password, phrase); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, map[string]any{"wallet_id": wlt.ID, "backup_verified": true})
	}
	output.Successf(w, "Backup verified for wallet '%s'", wlt.Name)
	return nil
}
