// Package config provides configuration management for Keysmith.
//
// Configuration lives in a single YAML file under the keysmith home
// directory. Defaults are applied first, then the file, then KEYSMITH_*
// environment overrides, so a missing or partial file always yields a
// usable configuration.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Home     string         `yaml:"home"`
	Security SecurityConfig `yaml:"security"`
	KDF      KDFConfig      `yaml:"kdf"`
	Wallets  WalletsConfig  `yaml:"wallets"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SecurityConfig defines session and unlock policy.
type SecurityConfig struct {
	// SessionTTLMinutes is how long an unlocked wallet stays unlocked.
	SessionTTLMinutes int `yaml:"session_ttl_minutes"`

	// UnlockIntervalSeconds is how often a spent password attempt is
	// restored, per wallet.
	UnlockIntervalSeconds int `yaml:"unlock_interval_seconds"`

	// UnlockBurst is how many password attempts a wallet allows in a row
	// before throttling starts.
	UnlockBurst int `yaml:"unlock_burst"`
}

// KDFConfig defines Argon2id cost parameters for the secret store.
type KDFConfig struct {
	MemoryMiB uint32 `yaml:"memory_mib"`
	Passes    uint32 `yaml:"passes"`
	Lanes     uint8  `yaml:"lanes"`
}

// WalletsConfig defines wallet creation defaults.
type WalletsConfig struct {
	// DefaultChains are derived for a new wallet when the caller does not
	// name any chains explicitly.
	DefaultChains []string `yaml:"default_chains"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kserr.WithDetails(kserr.ErrConfigNotFound, map[string]string{
				"path": path,
			})
		}
		return nil, kserr.Wrap(err, "reading config %s", path)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, kserr.WithDetails(kserr.ErrConfigInvalid, map[string]string{
			"path":   path,
			"reason": err.Error(),
		})
	}

	return cfg, nil
}

// LoadOrDefault reads configuration from the specified file, falling back
// to Defaults when the file does not exist yet. First runs work without a
// `keysmith init` step this way.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, kserr.ErrConfigNotFound) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return kserr.Wrap(err, "creating config directory %s", dir)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return kserr.Wrap(err, "encoding config")
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return kserr.Wrap(err, "writing config %s", path)
	}
	return nil
}

// Validate checks the values a hand-edited file could break.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Home) == "" {
		return invalid("home directory is not set")
	}
	if c.Security.SessionTTLMinutes <= 0 {
		return invalid("security.session_ttl_minutes must be positive")
	}
	if c.KDF.MemoryMiB < 8 {
		return invalid("kdf.memory_mib must be at least 8")
	}
	if c.KDF.Passes == 0 {
		return invalid("kdf.passes must be at least 1")
	}
	if c.KDF.Lanes == 0 {
		return invalid("kdf.lanes must be at least 1")
	}

	switch c.Output.DefaultFormat {
	case "auto", "table", "json":
	default:
		return invalid("output.default_format must be auto, table, or json")
	}

	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return invalid("output.color must be auto, always, or never")
	}

	return nil
}

func invalid(reason string) error {
	return kserr.WithDetails(kserr.ErrConfigInvalid, map[string]string{
		"reason": reason,
	})
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// GetHome returns the keysmith home directory path as configured,
// tilde and all.
func (c *Config) GetHome() string {
	return c.Home
}

// HomeDir returns the keysmith home directory with a leading ~ expanded.
func (c *Config) HomeDir() string {
	return ExpandPath(c.Home)
}

// SecretsDir returns the directory holding encrypted wallet secrets.
func (c *Config) SecretsDir() string {
	return filepath.Join(c.HomeDir(), secretsDirName)
}

// MetadataPath returns the path of the wallet metadata database.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.HomeDir(), metadataFileName)
}

// BackupsDir returns the default directory for wallet backup files.
func (c *Config) BackupsDir() string {
	return filepath.Join(c.HomeDir(), backupsDirName)
}

// SessionTTL returns the configured session lifetime as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Security.SessionTTLMinutes) * time.Minute
}

// UnlockInterval returns how often a spent password attempt is restored.
func (c *Config) UnlockInterval() time.Duration {
	return time.Duration(c.Security.UnlockIntervalSeconds) * time.Second
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// DefaultHome returns the default keysmith home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".keysmith"
	}
	return filepath.Join(home, ".keysmith")
}

// ExpandPath resolves a leading ~ against the current user's home
// directory. Paths without a tilde come back unchanged.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
