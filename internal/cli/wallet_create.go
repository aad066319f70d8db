package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keysmith/keysmith/internal/chain"
	"github.com/keysmith/keysmith/internal/manager"
	"github.com/keysmith/keysmith/internal/output"
	"github.com/keysmith/keysmith/internal/secmem"
	"github.com/keysmith/keysmith/internal/wallet"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// createWords is the number of words for mnemonic generation.
	createWords int
	// createChains names the chains to derive addresses for.
	createChains []string
	// importMnemonic carries the phrase for non-interactive import.
	importMnemonic string
)

// walletCreateCmd creates a new HD wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new HD wallet",
	Long: `Create a new HD wallet with a freshly generated BIP39 mnemonic phrase.

The mnemonic is displayed exactly once - write it down and store it securely.
It is then encrypted under the password you choose and is only retrievable
again through 'keysmith export'.

An address is derived at index 0 for every requested chain. A chain that
fails to derive is reported but does not abort the creation.`,
	Example: `  keysmith wallet create main
  keysmith wallet create main --words 24
  keysmith wallet create main --chains bitcoin,ethereum,solana`,
	Args: cobra.ExactArgs(1),
	RunE: runWalletCreate,
}

// walletImportCmd imports a wallet from an existing phrase.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Import a wallet from a recovery phrase",
	Long: `Import a wallet from an existing BIP39 recovery phrase.

The phrase is validated before anything is stored; a typo is reported with
the broken word and a suggested correction. The phrase is not echoed back.`,
	Example: `  keysmith wallet import restored
  keysmith wallet import restored --chains bitcoin,ethereum`,
	Args: cobra.ExactArgs(1),
	RunE: runWalletImport,
}

// walletWatchCmd adds a watch-only wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletWatchCmd = &cobra.Command{
	Use:   "watch <name> <chain> <address>",
	Short: "Track an external address (watch-only)",
	Long: `Track an external address without any key material.

A watch-only wallet stores nothing but the address. It can never be
unlocked, exported, or used to derive further addresses.`,
	Example: `  keysmith wallet watch cold bitcoin bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu`,
	Args:    cobra.ExactArgs(3),
	RunE:    runWalletWatch,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletImportCmd)
	walletCmd.AddCommand(walletWatchCmd)

	walletCreateCmd.Flags().IntVar(&createWords, "words", wallet.WordCount12, "mnemonic word count (12 or 24)")
	walletCreateCmd.Flags().StringSliceVar(&createChains, "chains", nil, "chains to derive (default from config)")
	walletImportCmd.Flags().StringSliceVar(&createChains, "chains", nil, "chains to derive (default from config)")
	walletImportCmd.Flags().StringVar(&importMnemonic, "mnemonic", "", "recovery phrase (prompted when omitted)")
}

// requestedChains resolves the --chains flag against the configured default.
func requestedChains() []chain.ID {
	names := createChains
	if len(names) == 0 {
		names = cfg.Wallets.DefaultChains
	}

	ids := make([]chain.ID, 0, len(names))
	for _, name := range names {
		ids = append(ids, chain.ParseID(name))
	}
	return ids
}

func runWalletCreate(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer secmem.Zero(password)

	ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
	defer cancel()

	result, err := a.Manager.CreateHDWallet(ctx, args[0], password, requestedChains(), createWords)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, result)
	}

	out(w, "Created wallet '%s' (%s)\n\n", result.Name, result.WalletID)
	outln(w, "Recovery phrase (shown ONCE - write it down now):")
	outln(w)
	printMnemonic(w, result.Mnemonic)
	outln(w)
	outln(w, "Anyone holding these words controls the wallet's funds.")
	outln(w, "Keysmith stores them encrypted and will not display them again")
	outln(w, "without the password ('keysmith export').")
	outln(w)

	if err = renderCreateAddresses(w, result); err != nil {
		return err
	}

	outln(w)
	outln(w, "Confirm your written copy with 'keysmith wallet verify-backup "+result.Name+"'.")
	return nil
}

func runWalletImport(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	phrase := importMnemonic
	if strings.TrimSpace(phrase) == "" {
		phrase, err = promptMnemonicFn()
		if err != nil {
			return err
		}
	}

	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer secmem.Zero(password)

	ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
	defer cancel()

	result, err := a.Manager.ImportHDWallet(ctx, args[0], phrase, password, requestedChains())
	if err != nil {
		return importErrWithHints(err, phrase)
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, result)
	}

	out(w, "Imported wallet '%s' (%s)\n\n", result.Name, result.WalletID)
	return renderCreateAddresses(w, result)
}

func runWalletWatch(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
	defer cancel()

	result, err := a.Manager.AddWatchOnly(ctx, args[0], chain.ParseID(args[1]), args[2])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, result)
	}

	out(w, "Watching %s address %s as wallet '%s'\n", args[1], args[2], result.Name)
	return nil
}

// printMnemonic renders the phrase in numbered columns so it is easy to
// copy to paper without losing word order.
func printMnemonic(w io.Writer, mnemonic string) {
	words := strings.Fields(mnemonic)
	for i, word := range words {
		out(w, "  %2d. %-12s", i+1, word)
		if (i+1)%4 == 0 {
			outln(w)
		}
	}
	if len(words)%4 != 0 {
		outln(w)
	}
}

// renderCreateAddresses prints the derived addresses and any per-chain
// failures from a create or import.
func renderCreateAddresses(w io.Writer, result *manager.CreateResult) error {
	if err := renderAddressTable(w, result.Addresses); err != nil {
		return err
	}

	for _, failure := range result.Failures {
		outln(w)
		output.Warnf(w, "%s derivation failed: %s", failure.ChainID, failure.Message)
	}
	return nil
}

// importErrWithHints augments an invalid-mnemonic error with typo
// suggestions for the words that missed the wordlist.
func importErrWithHints(err error, phrase string) error {
	if !kserr.Is(err, kserr.ErrInvalidMnemonic) {
		return err
	}

	typos := wallet.DetectTypos(phrase)
	if len(typos) == 0 {
		return err
	}
	return kserr.WithSuggestion(err, wallet.FormatTypoSuggestions(typos))
}
