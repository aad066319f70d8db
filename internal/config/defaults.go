package config

// File and directory names under the keysmith home.
const (
	secretsDirName   = "secrets"
	backupsDirName   = "backups"
	metadataFileName = "wallets.db"
)

// DefaultChains are the chains a new wallet derives addresses for when the
// caller does not name any.
//
//nolint:gochecknoglobals // Configuration default, consumed by Defaults
var DefaultChains = []string{"bitcoin", "ethereum", "solana"}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.keysmith",
		Security: SecurityConfig{
			SessionTTLMinutes:     15,
			UnlockIntervalSeconds: 2,
			UnlockBurst:           5,
		},
		KDF: KDFConfig{
			// 64 MiB, 3 passes, 4 lanes. Interactive-use Argon2id costs:
			// slow enough to hurt offline guessing, fast enough that
			// unlocking a wallet does not feel broken.
			MemoryMiB: 64,
			Passes:    3,
			Lanes:     4,
		},
		Wallets: WalletsConfig{
			DefaultChains: append([]string(nil), DefaultChains...),
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.keysmith/keysmith.log",
		},
	}
}
