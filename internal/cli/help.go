package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// walkCommands applies fn to cmd and every command beneath it.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// enrichParentLong appends the list of available subcommands to a parent
// command's Long text, so group help never drifts from the registered
// commands. Hidden and deprecated subcommands are skipped.
func enrichParentLong(cmd *cobra.Command) {
	if !cmd.HasSubCommands() {
		return
	}

	var sb strings.Builder
	sb.WriteString(cmd.Long)
	sb.WriteString("\n\nSubcommands:\n")

	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-16s %s\n", sub.Name(), sub.Short))
	}

	cmd.Long = sb.String()
}
