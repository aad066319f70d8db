package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/keysmith/keysmith/internal/version"
)

// Build metadata, injected at link time via -ldflags.
//
//nolint:gochecknoglobals // set by the build
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// versionCheck also queries GitHub for the latest release.
	versionCheck bool
)

// versionCmd prints build information.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Show the keysmith version, commit, and build date.

With --check, the latest published release is looked up on GitHub and
compared against this build. This is the only keysmith command that
touches the network.`,
	Example: `  keysmith version
  keysmith version --check`,
	RunE: runVersion,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()

	var updateInfo *version.Info
	if versionCheck && !version.IsDevBuild(buildVersion) {
		ctx, cancel := contextWithTimeout(cmd, version.DefaultTimeout)
		defer cancel()

		info, err := version.Check(ctx, buildVersion)
		if err != nil {
			// An unreachable release feed must not fail the command.
			logger.Error("release check failed: %v", err)
		} else {
			updateInfo = info
		}
	}

	if formatter.IsJSON() {
		payload := struct {
			Version string        `json:"version"`
			Commit  string        `json:"commit"`
			Date    string        `json:"date"`
			Go      string        `json:"go"`
			Update  *version.Info `json:"update,omitempty"`
		}{buildVersion, buildCommit, buildDate, runtime.Version(), updateInfo}
		return writeJSON(w, payload)
	}

	out(w, "keysmith %s (commit %s, built %s, %s)\n", buildVersion, buildCommit, buildDate, runtime.Version())
	switch {
	case updateInfo == nil && versionCheck:
		outln(w, "Release check skipped or unavailable.")
	case updateInfo != nil && updateInfo.IsNewer:
		out(w, "Update available: %s\n", updateInfo.Latest)
	case updateInfo != nil:
		outln(w, "Up to date.")
	}
	return nil
}
