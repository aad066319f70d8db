package cli

import (
	"github.com/spf13/cobra"

	"github.com/keysmith/keysmith/internal/secmem"
)

// exportCmd reveals a wallet's recovery phrase.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var exportCmd = &cobra.Command{
	Use:   "export <wallet>",
	Short: "Reveal a wallet's recovery phrase",
	Long: `Decrypt and display a wallet's recovery phrase.

The password is always required, even while the wallet is unlocked: an
export must not ride on a session started minutes ago for something else.

Anyone who sees the phrase controls the funds. Clear your terminal
afterwards and never paste the phrase anywhere.`,
	Example: `  keysmith export main`,
	Args:    cobra.ExactArgs(1),
	RunE:    runExport,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
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

	mnemonic, err := a.Manager.ExportMnemonic(ctx, wlt.ID, password)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, map[string]string{"wallet_id": wlt.ID, "mnemonic": mnemonic})
	}

	out(w, "Recovery phrase for '%s':\n\n", wlt.Name)
	printMnemonic(w, mnemonic)
	outln(w)
	outln(w, "Anyone holding these words controls this wallet. Clear your terminal.")
	return nil
}
