package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/keysmith/keysmith/internal/chain"
	"github.com/keysmith/keysmith/internal/metadata"
	"github.com/keysmith/keysmith/internal/output"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// addressWallet is the wallet reference for address operations.
	addressWallet string
	// addressChain is the chain for derive/label operations.
	addressChain string
	// addressAccount is the BIP44 account index.
	addressAccount uint32
	// addressIndex is the address index for label operations.
	addressIndex uint32
	// addressLabel is the label text to assign.
	addressLabel string
	// addressQR renders the derived address as a terminal QR code.
	addressQR bool
)

// addressCmd is the parent command for address operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var addressCmd = &cobra.Command{
	Use:     "address",
	Short:   "Derive and list addresses",
	Long:    `Derive new addresses from an unlocked wallet and manage existing ones.`,
	Aliases: []string{"addr"},
}

// addressDeriveCmd derives the next address on a chain.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var addressDeriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive the next address for a chain",
	Long: `Derive the next sequential address for a wallet on one chain.

The wallet must be unlocked first ('keysmith session unlock'). The new
address is persisted; deriving again continues at the following index.`,
	Example: `  keysmith address derive --wallet main --chain bitcoin
  keysmith address derive --wallet main --chain solana --qr`,
	RunE: runAddressDerive,
}

// addressListCmd lists a wallet's addresses.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var addressListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List a wallet's addresses",
	Long:    `List every derived or watched address of a wallet, optionally for one chain.`,
	Example: `  keysmith address list --wallet main
  keysmith address list --wallet main --chain ethereum`,
	Aliases: []string{"ls"},
	RunE:    runAddressList,
}

// addressLabelCmd labels an address.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var addressLabelCmd = &cobra.Command{
	Use:     "label",
	Short:   "Label an address",
	Long:    `Assign a label to a derived address, identified by chain, account, and index.`,
	Example: `  keysmith address label --wallet main --chain bitcoin --index 1 --label "exchange deposits"`,
	RunE:    runAddressLabel,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(addressCmd)
	addressCmd.AddCommand(addressDeriveCmd)
	addressCmd.AddCommand(addressListCmd)
	addressCmd.AddCommand(addressLabelCmd)

	for _, c := range []*cobra.Command{addressDeriveCmd, addressListCmd, addressLabelCmd} {
		c.Flags().StringVarP(&addressWallet, "wallet", "w", "", "wallet name or ID (required)")
		_ = c.MarkFlagRequired("wallet")
		c.Flags().StringVarP(&addressChain, "chain", "c", "", "chain ID")
	}
	_ = addressDeriveCmd.MarkFlagRequired("chain")
	_ = addressLabelCmd.MarkFlagRequired("chain")

	addressDeriveCmd.Flags().Uint32Var(&addressAccount, "account", 0, "account index")
	addressDeriveCmd.Flags().BoolVar(&addressQR, "qr", false, "render the address as a QR code (TTY only)")
	addressLabelCmd.Flags().Uint32Var(&addressAccount, "account", 0, "account index")
	addressLabelCmd.Flags().Uint32Var(&addressIndex, "index", 0, "address index")
	addressLabelCmd.Flags().StringVar(&addressLabel, "label", "", "label text (empty clears)")
}

func runAddressDerive(cmd *cobra.Command, _ []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	wlt, err := resolveWalletArg(cmd, a, addressWallet)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
	defer cancel()

	record, err := a.Manager.DeriveNewAddress(ctx, wlt.ID, chain.ParseID(addressChain), addressAccount)
	if err != nil {
		if kserr.Is(err, kserr.ErrWalletLocked) || kserr.Is(err, kserr.ErrSessionExpired) {
			return kserr.WithSuggestion(err, "run 'keysmith session unlock "+wlt.Name+"' first")
		}
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, record)
	}

	out(w, "%s\n", record.Address.Address)
	out(w, "path: %s\n", record.Path)

	if addressQR {
		outln(w)
		return output.RenderQR(os.Stdout, record.Address.Address, output.DefaultQRConfig())
	}
	return nil
}

func runAddressList(cmd *cobra.Command, _ []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	wlt, err := resolveWalletArg(cmd, a, addressWallet)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
	defer cancel()

	addrs, err := a.Manager.ListAddresses(ctx, wlt.ID)
	if err != nil {
		return err
	}

	if addressChain != "" {
		id := chain.ParseID(addressChain)
		filtered := make([]*metadata.AddressRecord, 0, len(addrs))
		for _, rec := range addrs {
			if rec.ChainID == id {
				filtered = append(filtered, rec)
			}
		}
		addrs = filtered
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, addrs)
	}

	if len(addrs) == 0 {
		outln(w, "No addresses")
		return nil
	}
	return renderAddressTable(w, addrs)
}

func runAddressLabel(cmd *cobra.Command, _ []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	wlt, err := resolveWalletArg(cmd, a, addressWallet)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, defaultCmdTimeout)
	defer cancel()

	id := chain.ParseID(addressChain)
	if err = a.Manager.SetAddressLabel(ctx, wlt.ID, id, addressAccount, addressIndex, addressLabel); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return writeJSON(w, map[string]any{
			"wallet_id": wlt.ID,
			"chain":     id,
			"account":   addressAccount,
			"index":     addressIndex,
			"label":     addressLabel,
		})
	}
	out(w, "Labeled %s address %d/%d\n", id, addressAccount, addressIndex)
	return nil
}
