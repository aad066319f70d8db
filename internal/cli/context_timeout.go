package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// defaultCmdTimeout bounds a single command's storage work. Derivation is
// sub-millisecond; this covers the KDF and SQLite on a slow disk.
const defaultCmdTimeout = 30 * time.Second

// contextWithTimeout returns a timeout context rooted in the command context.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, d)
}
