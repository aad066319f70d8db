package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"

	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// envPrefix is the prefix envconfig prepends to every override name.
const envPrefix = "keysmith"

// Environment variable names.
const (
	EnvHome         = "KEYSMITH_HOME"
	EnvSessionTTL   = "KEYSMITH_SESSION_TTL"
	EnvChains       = "KEYSMITH_CHAINS"
	EnvOutputFormat = "KEYSMITH_OUTPUT_FORMAT"
	EnvVerbose      = "KEYSMITH_VERBOSE"
	EnvLogLevel     = "KEYSMITH_LOG_LEVEL"
	EnvLogFile      = "KEYSMITH_LOG_FILE"
	EnvNoColor      = "NO_COLOR"
)

// envOverrides mirrors the settings that may be overridden from the
// environment. Every field is a pointer so an unset variable can be told
// apart from an explicit zero: nil means leave the configured value alone.
// Verbose stays a string because parseBool accepts yes/on spellings that
// strconv.ParseBool rejects.
type envOverrides struct {
	Home         *string
	SessionTTL   *int `split_words:"true"`
	Chains       *[]string
	OutputFormat *string `split_words:"true"`
	Verbose      *string
	LogLevel     *string `split_words:"true"`
	LogFile      *string `split_words:"true"`
}

// ApplyEnvironment applies KEYSMITH_* environment variable overrides to
// the configuration.
func ApplyEnvironment(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return kserr.WithDetails(kserr.ErrConfigInvalid, map[string]string{
			"reason": err.Error(),
		})
	}

	if env.Home != nil && strings.TrimSpace(*env.Home) != "" {
		cfg.Home = strings.TrimSpace(*env.Home)
	}

	// KEYSMITH_SESSION_TTL sets the session timeout in minutes
	if env.SessionTTL != nil && *env.SessionTTL > 0 {
		cfg.Security.SessionTTLMinutes = *env.SessionTTL
	}

	if env.Chains != nil {
		if chains := cleanChainList(*env.Chains); len(chains) > 0 {
			cfg.Wallets.DefaultChains = chains
		}
	}

	if env.OutputFormat != nil {
		cfg.Output.DefaultFormat = strings.ToLower(strings.TrimSpace(*env.OutputFormat))
	}

	if env.Verbose != nil {
		cfg.Output.Verbose = parseBool(*env.Verbose)
	}

	if env.LogLevel != nil {
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*env.LogLevel))
	}

	if env.LogFile != nil && strings.TrimSpace(*env.LogFile) != "" {
		cfg.Logging.File = strings.TrimSpace(*env.LogFile)
	}

	// NO_COLOR disables colored output regardless of its value, per the
	// no-color.org convention
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}

	return nil
}

// cleanChainList lowercases and trims a comma-split chain list, dropping
// empty entries.
func cleanChainList(raw []string) []string {
	chains := make([]string, 0, len(raw))
	for _, c := range raw {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			chains = append(chains, c)
		}
	}
	return chains
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}
