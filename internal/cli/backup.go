package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keysmith/keysmith/internal/backup"
	"github.com/keysmith/keysmith/internal/config"
	"github.com/keysmith/keysmith/internal/secmem"
)

// resolveBackupPath accepts either a bare file name (resolved against the
// backups directory) or an explicit path.
func resolveBackupPath(a *App, arg string) string {
	arg = config.ExpandPath(arg)
	if strings.ContainsRune(arg, os.PathSeparator) {
		return arg
	}
	if _, err := os.Stat(arg); err == nil {
		return arg
	}
	return a.Backups.BackupPath(arg)
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// restoreName renames the wallet on restore.
	restoreName string
	// verifyDecrypt additionally proves the password during verify.
	verifyDecrypt bool
)

// backupCmd is the parent command for backup operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage encrypted wallet backups",
	Long: `Create, verify, and restore encrypted wallet backup files.

A backup holds the recovery phrase and address metadata, encrypted with the
wallet password. The file is self-contained: it restores on a fresh machine
with nothing but the password.`,
}

// backupCreateCmd creates a backup.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupCreateCmd = &cobra.Command{
	Use:   "create <wallet>",
	Short: "Create a wallet backup",
	Long: `Create an encrypted backup file for a wallet.

The file is written to the backups directory with a timestamped name.
Creating a backup requires the wallet password.`,
	Example: `  keysmith backup create main`,
	Args:    cobra.ExactArgs(1),
	RunE:    runBackupCreate,
}

// backupVerifyCmd verifies a backup file.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupVerifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Verify a backup file",
	Long: `Verify a backup file's structure and checksum.

With --decrypt, the wallet password is requested and the payload is
decrypted to prove the backup is actually restorable.`,
	Example: `  keysmith backup verify ~/.keysmith/backups/main-20250115-120301.ksb
  keysmith backup verify main-20250115-120301.ksb --decrypt`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupVerify,
}

// backupRestoreCmd restores a wallet from a backup.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupRestoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore a wallet from a backup",
	Long: `Restore a wallet from an encrypted backup file.

The restored wallet gets a fresh ID. Its name must not collide with an
existing wallet; use --name to restore beside the original.`,
	Example: `  keysmith backup restore main-20250115-120301.ksb
  keysmith backup restore main-20250115-120301.ksb --name main-restored`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupRestore,
}

// backupListCmd lists backup files.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List backup files",
	Long:    `List the backup files in the backups directory.`,
	Example: `  keysmith backup list`,
	Aliases: []string{"ls"},
	RunE:    runBackupList,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupVerifyCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupListCmd)

	backupVerifyCmd.Flags().BoolVar(&verifyDecrypt, "decrypt", false, "also decrypt the payload to prove the password")
	backupRestoreCmd.Flags().StringVar(&restoreName, "name", "", "name for the restored wallet (default: original name)")
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
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

	b, path, err := a.Backups.Create(ctx, wlt.ID, password)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, struct {
			Path     string          `json:"path"`
			Manifest backup.Manifest `json:"manifest"`
		}{Path: path, Manifest: b.Manifest})
	}

	out(w, "Backup written to %s\n", path)
	out(w, "Covers %d chain(s); keep the file and the password separately.\n", len(b.Manifest.Chains))
	return nil
}

func runBackupVerify(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	path := resolveBackupPath(a, args[0])

	var manifest *backup.Manifest
	if verifyDecrypt {
		password, pwErr := promptPasswordFn("Wallet password: ")
		if pwErr != nil {
			return pwErr
		}
		defer secmem.Zero(password)
		manifest, err = a.Backups.VerifyWithDecryption(path, password)
	} else {
		manifest, err = a.Backups.Verify(path)
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, struct {
			Valid     bool             `json:"valid"`
			Decrypted bool             `json:"decrypted"`
			Manifest  *backup.Manifest `json:"manifest"`
		}{Valid: true, Decrypted: verifyDecrypt, Manifest: manifest})
	}

	out(w, "Backup OK: wallet '%s' (%s), %d chain(s), created %s\n",
		manifest.WalletName, manifest.WalletType,
		len(manifest.Chains), manifest.CreatedAt.Format("2006-01-02 15:04"))
	if verifyDecrypt {
		outln(w, "Payload decrypts with the supplied password.")
	}
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	password, err := promptPasswordFn("Backup password: ")
	if err != nil {
		return err
	}
	defer secmem.Zero(password)

	ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
	defer cancel()

	wlt, err := a.Backups.Restore(ctx, resolveBackupPath(a, args[0]), password, restoreName)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, wlt)
	}
	out(w, "Restored wallet '%s' (%s)\n", wlt.Name, wlt.ID)
	return nil
}

func runBackupList(cmd *cobra.Command, _ []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	files, err := a.Backups.List()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, map[string][]string{"backups": files})
	}

	if len(files) == 0 {
		outln(w, "No backups")
		return nil
	}
	for _, f := range files {
		outln(w, f)
	}
	return nil
}
