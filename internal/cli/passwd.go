package cli

import (
	"github.com/spf13/cobra"

	"github.com/keysmith/keysmith/internal/output"
	"github.com/keysmith/keysmith/internal/secmem"
)

// passwdCmd changes a wallet's encryption password.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var passwdCmd = &cobra.Command{
	Use:   "passwd <wallet>",
	Short: "Change a wallet's encryption password",
	Long: `Change the password a wallet's recovery phrase is encrypted under.

The wallet's session, if any, is locked first: a seed unlocked under the
old password never outlives the change. The phrase itself is untouched.`,
	Example: `  keysmith passwd main`,
	Args:    cobra.ExactArgs(1),
	RunE:    runPasswd,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(passwdCmd)
}

func runPasswd(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	wlt, err := resolveWalletArg(cmd, a, args[0])
	if err != nil {
		return err
	}

	oldPassword, err := promptPasswordFn("Current password: ")
	if err != nil {
		return err
	}
	defer secmem.Zero(oldPassword)

	newPassword, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer secmem.Zero(newPassword)

	ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
	defer cancel()

	if err = a.Manager.ChangePassword(ctx, wlt.ID, oldPassword, newPassword); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, map[string]string{"wallet_id": wlt.ID, "status": "password changed"})
	}
	output.Successf(w, "Password changed for '%s'", wlt.Name)
	return nil
}
