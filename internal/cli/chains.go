package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keysmith/keysmith/internal/output"
)

// chainsCmd lists the supported chains.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List supported chains",
	Long: `List every chain registered for address derivation, with its key
family, SLIP-44 coin type, and derivation path template.`,
	Example: `  keysmith chains`,
	RunE:    runChains,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(chainsCmd)
}

func runChains(cmd *cobra.Command, _ []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	modules := a.Registry.All()
	w := cmd.OutOrStdout()

	if formatter.IsJSON() {
		type chainEntry struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Symbol   string `json:"symbol"`
			Family   string `json:"family"`
			CoinType uint32 `json:"coin_type"`
			Path     string `json:"path"`
		}
		entries := make([]chainEntry, len(modules))
		for i, m := range modules {
			entries[i] = chainEntry{
				ID:       m.ID().String(),
				Name:     m.Name(),
				Symbol:   m.Symbol(),
				Family:   m.Family().String(),
				CoinType: m.CoinType(),
				Path:     m.DerivationPath(0, 0),
			}
		}
		return writeJSON(w, entries)
	}

	table := output.NewTable("ID", "NAME", "SYMBOL", "FAMILY", "COIN", "PATH")
	for _, m := range modules {
		table.AddRow(
			m.ID().String(),
			m.Name(),
			m.Symbol(),
			m.Family().String(),
			fmt.Sprintf("%d", m.CoinType()),
			m.DerivationPath(0, 0),
		)
	}
	return table.Render(w)
}
