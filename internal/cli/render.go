package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/keysmith/keysmith/internal/metadata"
	"github.com/keysmith/keysmith/internal/output"
)

// newWalletTable returns the table layout shared by wallet listings.
func newWalletTable() *output.Table {
	return output.NewTable("NAME", "TYPE", "BACKUP", "CREATED", "ID")
}

// renderAddressTable writes address records in the standard column layout.
func renderAddressTable(w io.Writer, addrs []*metadata.AddressRecord) error {
	table := output.NewTable("CHAIN", "ADDRESS", "PATH", "LABEL")
	for _, rec := range addrs {
		label := rec.Label
		if label == "" && rec.IsPrimary {
			label = "(primary)"
		}
		table.AddRow(rec.ChainID.String(), rec.Address.Address, rec.Path, label)
	}
	return table.Render(w)
}

// boolMark renders a boolean as yes/no for table cells.
func boolMark(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// formatExpiry renders a session expiry, empty when unset.
func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// formatRemaining renders the time left until t, floored to seconds.
func formatRemaining(t time.Time) string {
	remaining := time.Until(t).Truncate(time.Second)
	if remaining < 0 {
		remaining = 0
	}
	if remaining >= time.Minute {
		return fmt.Sprintf("%dm%02ds", int(remaining.Minutes()), int(remaining.Seconds())%60)
	}
	return fmt.Sprintf("%ds", int(remaining.Seconds()))
}
