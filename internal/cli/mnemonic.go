package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/keysmith/keysmith/internal/wallet"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// mnemonicWords is the word count for mnemonic generation.
	mnemonicWords int
)

// mnemonicCmd is the parent command for mnemonic operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var mnemonicCmd = &cobra.Command{
	Use:   "mnemonic",
	Short: "Generate and validate recovery phrases",
	Long: `Work with BIP39 recovery phrases outside any wallet.

These commands never touch the keystore: a generated phrase is printed and
forgotten, and validation checks a phrase you already hold.`,
}

// mnemonicGenerateCmd generates a standalone phrase.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var mnemonicGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a recovery phrase",
	Long: `Generate a BIP39 recovery phrase without creating a wallet.

The phrase is printed once and not stored anywhere. Use
'keysmith wallet import' to build a wallet from it later.`,
	Example: `  keysmith mnemonic generate
  keysmith mnemonic generate --words 24`,
	RunE: runMnemonicGenerate,
}

// mnemonicValidateCmd validates a phrase.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var mnemonicValidateCmd = &cobra.Command{
	Use:   "validate [words...]",
	Short: "Validate a recovery phrase",
	Long: `Validate a BIP39 recovery phrase: word count, wordlist membership,
and checksum. Misspelled words get a suggested correction.

Pass the phrase as arguments or enter it at the prompt. Prefer the prompt
when the phrase guards real funds - arguments can end up in shell history.`,
	Example: `  keysmith mnemonic validate
  keysmith mnemonic validate legal winner thank year wave sausage worth useful legal winner thank yellow`,
	RunE: runMnemonicValidate,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(mnemonicCmd)
	mnemonicCmd.AddCommand(mnemonicGenerateCmd)
	mnemonicCmd.AddCommand(mnemonicValidateCmd)

	mnemonicGenerateCmd.Flags().IntVar(&mnemonicWords, "words", wallet.WordCount12, "word count (12 or 24)")
}

func runMnemonicGenerate(cmd *cobra.Command, _ []string) error {
	mnemonic, err := wallet.GenerateMnemonic(mnemonicWords)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, map[string]any{
			"mnemonic":   mnemonic,
			"word_count": mnemonicWords,
			"entropy":    wallet.EntropyBits(mnemonicWords),
		})
	}

	printMnemonic(w, mnemonic)
	outln(w)
	outln(w, "This phrase is not stored. Write it down before closing the terminal.")
	return nil
}

func runMnemonicValidate(cmd *cobra.Command, args []string) error {
	phrase := strings.Join(args, " ")
	if strings.TrimSpace(phrase) == "" {
		var err error
		phrase, err = promptMnemonicFn()
		if err != nil {
			return err
		}
	}

	normalized, err := wallet.ValidateMnemonic(phrase)
	if err != nil {
		return importErrWithHints(err, phrase)
	}

	wordCount := len(strings.Fields(normalized))

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, map[string]any{
			"valid":      true,
			"word_count": wordCount,
			"entropy":    wallet.EntropyBits(wordCount),
		})
	}

	out(w, "Valid %d-word mnemonic (%d bits of entropy)\n", wordCount, wallet.EntropyBits(wordCount))
	return nil
}
