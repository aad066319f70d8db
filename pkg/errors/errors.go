// Package errors provides structured error handling for Keysmith.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitAuth       = 3 // Authentication or session state failure
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Permission denied or fatal security failure
)

// KeysmithError is the structured error type for Keysmith.
type KeysmithError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *KeysmithError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *KeysmithError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for KeysmithError.
func (e *KeysmithError) Is(target error) bool {
	var t *KeysmithError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &KeysmithError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &KeysmithError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &KeysmithError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	// User input errors: recoverable by correcting the input, never retried
	// automatically.
	ErrInvalidMnemonic = &KeysmithError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	ErrInvalidPassword = &KeysmithError{
		Code:     "INVALID_PASSWORD",
		Message:  "incorrect password",
		ExitCode: ExitAuth,
	}

	ErrInvalidAddress = &KeysmithError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrInvalidWalletName = &KeysmithError{
		Code:     "INVALID_WALLET_NAME",
		Message:  "invalid wallet name",
		ExitCode: ExitInput,
	}

	// State errors: recoverable by caller action (unlock first, pick a
	// different chain).
	ErrWalletNotFound = &KeysmithError{
		Code:     "WALLET_NOT_FOUND",
		Message:  "wallet not found",
		ExitCode: ExitNotFound,
	}

	ErrWalletExists = &KeysmithError{
		Code:     "WALLET_EXISTS",
		Message:  "wallet already exists",
		ExitCode: ExitInput,
	}

	ErrWalletLocked = &KeysmithError{
		Code:     "WALLET_LOCKED",
		Message:  "wallet is locked",
		ExitCode: ExitAuth,
	}

	ErrSessionExpired = &KeysmithError{
		Code:     "SESSION_EXPIRED",
		Message:  "session has expired",
		ExitCode: ExitAuth,
	}

	ErrUnsupportedChain = &KeysmithError{
		Code:     "UNSUPPORTED_CHAIN",
		Message:  "chain is not supported",
		ExitCode: ExitInput,
	}

	ErrWatchOnly = &KeysmithError{
		Code:     "WATCH_ONLY_WALLET",
		Message:  "operation not available for watch-only wallets",
		ExitCode: ExitInput,
	}

	ErrRateLimited = &KeysmithError{
		Code:     "RATE_LIMITED",
		Message:  "too many attempts, slow down",
		ExitCode: ExitAuth,
	}

	// Storage errors: potentially transient; the caller may retry, the core
	// never retries on its own.
	ErrStorageFailure = &KeysmithError{
		Code:     "STORAGE_FAILURE",
		Message:  "storage operation failed",
		ExitCode: ExitGeneral,
	}

	ErrCorruptedData = &KeysmithError{
		Code:     "CORRUPTED_DATA",
		Message:  "stored data is corrupted",
		ExitCode: ExitGeneral,
	}

	// Fatal errors: abort the operation, never downgrade to a weaker
	// fallback.
	ErrEntropyFailure = &KeysmithError{
		Code:     "ENTROPY_FAILURE",
		Message:  "secure random source unavailable",
		ExitCode: ExitPermission,
	}

	ErrDerivationFailed = &KeysmithError{
		Code:     "DERIVATION_FAILED",
		Message:  "address derivation failed",
		ExitCode: ExitGeneral,
	}

	// Config-specific errors.
	ErrConfigNotFound = &KeysmithError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &KeysmithError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	// Backup-specific errors.
	ErrBackupNotFound = &KeysmithError{
		Code:     "BACKUP_NOT_FOUND",
		Message:  "backup file not found",
		ExitCode: ExitNotFound,
	}

	ErrBackupCorrupted = &KeysmithError{
		Code:     "BACKUP_CORRUPTED",
		Message:  "backup file is corrupted - checksum mismatch",
		ExitCode: ExitInput,
	}
)

// New creates a new KeysmithError with the given code and message.
func New(code, message string) *KeysmithError {
	return &KeysmithError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var ke *KeysmithError
	if errors.As(err, &ke) {
		return &KeysmithError{
			Code:       ke.Code,
			Message:    fmt.Sprintf("%s: %s", msg, ke.Message),
			Details:    ke.Details,
			Suggestion: ke.Suggestion,
			Cause:      err,
			ExitCode:   ke.ExitCode,
		}
	}

	return &KeysmithError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var ke *KeysmithError
	if errors.As(err, &ke) {
		return &KeysmithError{
			Code:       ke.Code,
			Message:    ke.Message,
			Details:    details,
			Suggestion: ke.Suggestion,
			Cause:      ke.Cause,
			ExitCode:   ke.ExitCode,
		}
	}

	return &KeysmithError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var ke *KeysmithError
	if errors.As(err, &ke) {
		return &KeysmithError{
			Code:       ke.Code,
			Message:    ke.Message,
			Details:    ke.Details,
			Suggestion: suggestion,
			Cause:      ke.Cause,
			ExitCode:   ke.ExitCode,
		}
	}

	return &KeysmithError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ke *KeysmithError
	if errors.As(err, &ke) {
		return ke.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var ke *KeysmithError
	if errors.As(err, &ke) {
		return ke.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
