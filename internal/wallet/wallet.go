package wallet

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/mrz1836/go-sanitize"

	kserr "github.com/keysmith/keysmith/pkg/errors"
)

const (
	// MaxAddressDerivation prevents resource exhaustion and integer overflow.
	MaxAddressDerivation = 100000

	// MaxNameLength is the maximum wallet name length.
	MaxNameLength = 64
)

// walletNameRegex validates wallet names: alphanumeric + underscore + hyphen, 1-64 chars.
var walletNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Type identifies how a wallet was created and what material it holds.
type Type string

const (
	// TypeHD is an HD wallet whose mnemonic was generated locally.
	TypeHD Type = "hd"

	// TypeImported is an HD wallet restored from an existing mnemonic.
	TypeImported Type = "imported"

	// TypeWatchOnly tracks an external address and holds no key material.
	TypeWatchOnly Type = "watch-only"
)

// Valid reports whether t is a known wallet type.
func (t Type) Valid() bool {
	switch t {
	case TypeHD, TypeImported, TypeWatchOnly:
		return true
	default:
		return false
	}
}

// HasSecret reports whether wallets of this type keep an encrypted mnemonic
// in the secret store.
func (t Type) HasSecret() bool {
	return t == TypeHD || t == TypeImported
}

// Wallet is the metadata record for a wallet. Key material never lives here:
// the mnemonic sits encrypted in the keystore and decrypted seeds exist only
// inside the session manager.
type Wallet struct {
	// ID is the immutable wallet identifier (UUIDv4).
	ID string `json:"id"`

	// Name is the unique human-chosen identifier.
	Name string `json:"name"`

	// Type records how the wallet was created.
	Type Type `json:"type"`

	// BackupVerified is set once the user has proven they hold the phrase.
	BackupVerified bool `json:"backup_verified"`

	// CreatedAt is the wallet creation timestamp (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// IsWatchOnly reports whether the wallet has no key material.
func (w *Wallet) IsWatchOnly() bool {
	return w.Type == TypeWatchOnly
}

// New creates a wallet record with a fresh UUIDv4 identifier.
func New(name string, walletType Type) (*Wallet, error) {
	if err := ValidateWalletName(name); err != nil {
		return nil, err
	}
	if !walletType.Valid() {
		return nil, kserr.WithDetails(kserr.ErrInvalidInput, map[string]string{
			"wallet_type": string(walletType),
		})
	}

	return &Wallet{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      walletType,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ValidateWalletName checks if a wallet name is valid. Invalid names carry a
// sanitized suggestion when one can be derived from the input.
func ValidateWalletName(name string) error {
	if walletNameRegex.MatchString(name) {
		return nil
	}

	err := kserr.WithDetails(kserr.ErrInvalidWalletName, map[string]string{
		"name": name,
	})
	if suggested := SuggestWalletName(name); suggested != "" && suggested != name {
		return kserr.WithSuggestion(err, fmt.Sprintf("Try %q instead", suggested))
	}
	return kserr.WithSuggestion(err, "wallet name must be 1-64 alphanumeric characters, underscores, or hyphens")
}

// SuggestWalletName provides a sanitized version of an invalid wallet name.
// It uses sanitize.PathName to clean the input, keeping only ASCII alphanumeric
// characters, hyphens, and underscores. The result is truncated to 64 characters.
// Returns empty string if the input cannot be sanitized to a valid name.
func SuggestWalletName(name string) string {
	suggested := sanitize.PathName(name)
	if suggested == "" {
		return ""
	}
	if len(suggested) > MaxNameLength {
		suggested = suggested[:MaxNameLength]
	}
	return suggested
}
