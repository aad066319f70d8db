package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kserr "github.com/keysmith/keysmith/pkg/errors"
)

var (
	errInner     = errors.New("inner")
	errRootCause = errors.New("root cause")
	errPlain     = errors.New("plain error")
	errPlainCode = errors.New("plain")
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, kserr.ExitSuccess},
		{"general error", kserr.ErrGeneral, kserr.ExitGeneral},
		{"input error", kserr.ErrInvalidInput, kserr.ExitInput},
		{"invalid password", kserr.ErrInvalidPassword, kserr.ExitAuth},
		{"wallet locked", kserr.ErrWalletLocked, kserr.ExitAuth},
		{"session expired", kserr.ErrSessionExpired, kserr.ExitAuth},
		{"wallet not found", kserr.ErrWalletNotFound, kserr.ExitNotFound},
		{"entropy failure", kserr.ErrEntropyFailure, kserr.ExitPermission},
		{"storage failure", kserr.ErrStorageFailure, kserr.ExitGeneral},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code := kserr.ExitCode(tt.err)
			assert.Equal(t, tt.expected, code)
		})
	}
}

func TestExitCodeWrappedError(t *testing.T) {
	t.Parallel()
	wrapped := kserr.Wrap(kserr.ErrWalletNotFound, "wallet main")
	code := kserr.ExitCode(wrapped)
	assert.Equal(t, kserr.ExitNotFound, code)
}

func TestSentinelErrors(t *testing.T) {
	t.Parallel()
	// Verify that wrapping preserves error identity
	sentinels := []error{
		kserr.ErrGeneral,
		kserr.ErrInvalidInput,
		kserr.ErrInvalidMnemonic,
		kserr.ErrInvalidPassword,
		kserr.ErrInvalidAddress,
		kserr.ErrWalletNotFound,
		kserr.ErrWalletExists,
		kserr.ErrWalletLocked,
		kserr.ErrSessionExpired,
		kserr.ErrUnsupportedChain,
		kserr.ErrWatchOnly,
		kserr.ErrStorageFailure,
		kserr.ErrEntropyFailure,
	}

	for _, sentinel := range sentinels {
		sentinel := sentinel
		wrapped := kserr.Wrap(sentinel, "wrapped")
		require.ErrorIs(t, wrapped, sentinel)
	}
}

func TestErrorCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err      error
		expected string
	}{
		{kserr.ErrGeneral, "GENERAL_ERROR"},
		{kserr.ErrInvalidInput, "INVALID_INPUT"},
		{kserr.ErrInvalidMnemonic, "INVALID_MNEMONIC"},
		{kserr.ErrInvalidPassword, "INVALID_PASSWORD"},
		{kserr.ErrWalletLocked, "WALLET_LOCKED"},
		{kserr.ErrSessionExpired, "SESSION_EXPIRED"},
		{kserr.ErrUnsupportedChain, "UNSUPPORTED_CHAIN"},
		{kserr.ErrWatchOnly, "WATCH_ONLY_WALLET"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()
			var ke *kserr.KeysmithError
			require.ErrorAs(t, tt.err, &ke)
			assert.Equal(t, tt.expected, ke.Code)
		})
	}
}

func TestWithDetails(t *testing.T) {
	t.Parallel()
	details := map[string]string{
		"chain":    "bitcoin",
		"account":  "0",
		"position": "3",
	}

	err := kserr.WithDetails(kserr.ErrInvalidMnemonic, details)

	var ke *kserr.KeysmithError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, details, ke.Details)
}

func TestWithSuggestion(t *testing.T) {
	t.Parallel()
	suggestion := "Unlock the wallet with 'keysmith session unlock'"
	err := kserr.WithSuggestion(kserr.ErrWalletLocked, suggestion)

	var ke *kserr.KeysmithError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, suggestion, ke.Suggestion)
}

func TestWithDetailsAndSuggestion(t *testing.T) {
	t.Parallel()
	details := map[string]string{"key": "value"}
	suggestion := "Try this instead"

	err := kserr.WithDetails(kserr.ErrGeneral, details)
	err = kserr.WithSuggestion(err, suggestion)

	var ke *kserr.KeysmithError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, details, ke.Details)
	assert.Equal(t, suggestion, ke.Suggestion)
}

func TestWrap(t *testing.T) {
	t.Parallel()
	wrapped := kserr.Wrap(kserr.ErrWalletNotFound, "wallet %s", "main")
	assert.Contains(t, wrapped.Error(), "wallet main")
	assert.ErrorIs(t, wrapped, kserr.ErrWalletNotFound)
}

func TestNew(t *testing.T) {
	t.Parallel()
	err := kserr.New("CUSTOM_ERROR", "custom error message")
	assert.Equal(t, "custom error message", err.Error())

	var ke *kserr.KeysmithError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, "CUSTOM_ERROR", ke.Code)
}

func TestKeysmithError_Error(t *testing.T) {
	t.Parallel()

	t.Run("message only", func(t *testing.T) {
		t.Parallel()
		err := &kserr.KeysmithError{Code: "TEST", Message: "something failed"}
		assert.Equal(t, "something failed", err.Error())
	})

	t.Run("with details sorted", func(t *testing.T) {
		t.Parallel()
		err := &kserr.KeysmithError{
			Code:    "TEST",
			Message: "failed",
			Details: map[string]string{"beta": "2", "alpha": "1"},
		}
		assert.Equal(t, "failed (alpha: 1) (beta: 2)", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		t.Parallel()
		err := &kserr.KeysmithError{
			Code:    "TEST",
			Message: "outer",
			Cause:   errInner,
		}
		assert.Equal(t, "outer: inner", err.Error())
	})

	t.Run("with details and cause", func(t *testing.T) {
		t.Parallel()
		err := &kserr.KeysmithError{
			Code:    "TEST",
			Message: "outer",
			Details: map[string]string{"key": "val"},
			Cause:   errInner,
		}
		assert.Equal(t, "outer (key: val): inner", err.Error())
	})
}

func TestKeysmithError_Error_deterministic(t *testing.T) {
	t.Parallel()
	err := &kserr.KeysmithError{
		Code:    "TEST",
		Message: "msg",
		Details: map[string]string{
			"charlie": "3",
			"alpha":   "1",
			"bravo":   "2",
			"delta":   "4",
		},
	}
	first := err.Error()
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, err.Error(), "Error() output must be deterministic (iteration %d)", i)
	}
}

func TestKeysmithError_Unwrap(t *testing.T) {
	t.Parallel()

	t.Run("with cause", func(t *testing.T) {
		t.Parallel()
		err := &kserr.KeysmithError{Code: "TEST", Message: "wrapper", Cause: errRootCause}
		assert.Equal(t, errRootCause, err.Unwrap())
	})

	t.Run("nil cause", func(t *testing.T) {
		t.Parallel()
		err := &kserr.KeysmithError{Code: "TEST", Message: "no cause"}
		assert.NoError(t, err.Unwrap())
	})
}

func TestKeysmithError_Is(t *testing.T) {
	t.Parallel()

	t.Run("matching code", func(t *testing.T) {
		t.Parallel()
		a := &kserr.KeysmithError{Code: "SAME_CODE", Message: "a"}
		b := &kserr.KeysmithError{Code: "SAME_CODE", Message: "b"}
		assert.True(t, a.Is(b))
	})

	t.Run("different code", func(t *testing.T) {
		t.Parallel()
		a := &kserr.KeysmithError{Code: "CODE_A", Message: "a"}
		b := &kserr.KeysmithError{Code: "CODE_B", Message: "b"}
		assert.False(t, a.Is(b))
	})

	t.Run("non-KeysmithError target", func(t *testing.T) {
		t.Parallel()
		a := &kserr.KeysmithError{Code: "TEST", Message: "a"}
		assert.False(t, a.Is(errPlain))
	})
}

func TestAs(t *testing.T) {
	t.Parallel()

	t.Run("KeysmithError target", func(t *testing.T) {
		t.Parallel()
		err := kserr.Wrap(kserr.ErrWalletNotFound, "wrapped")
		var ke *kserr.KeysmithError
		assert.True(t, kserr.As(err, &ke))
		assert.Equal(t, "WALLET_NOT_FOUND", ke.Code)
	})

	t.Run("non-KeysmithError", func(t *testing.T) {
		t.Parallel()
		var ke *kserr.KeysmithError
		assert.False(t, kserr.As(errPlain, &ke))
	})
}

func TestIs(t *testing.T) {
	t.Parallel()

	t.Run("matching sentinel", func(t *testing.T) {
		t.Parallel()
		wrapped := kserr.Wrap(kserr.ErrWalletNotFound, "context")
		assert.True(t, kserr.Is(wrapped, kserr.ErrWalletNotFound))
	})

	t.Run("non-matching", func(t *testing.T) {
		t.Parallel()
		wrapped := kserr.Wrap(kserr.ErrWalletNotFound, "context")
		assert.False(t, kserr.Is(wrapped, kserr.ErrInvalidPassword))
	})

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()
		assert.False(t, kserr.Is(nil, kserr.ErrGeneral))
	})
}

func TestCode_edgeCases(t *testing.T) {
	t.Parallel()

	t.Run("KeysmithError", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "WALLET_NOT_FOUND", kserr.Code(kserr.ErrWalletNotFound))
	})

	t.Run("non-KeysmithError", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "GENERAL_ERROR", kserr.Code(errPlainCode))
	})

	t.Run("nil", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "GENERAL_ERROR", kserr.Code(nil))
	})
}

func TestWrap_edgeCases(t *testing.T) {
	t.Parallel()

	t.Run("nil input", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, kserr.Wrap(nil, "context"))
	})

	t.Run("non-KeysmithError", func(t *testing.T) {
		t.Parallel()
		wrapped := kserr.Wrap(errPlain, "context")
		var ke *kserr.KeysmithError
		require.ErrorAs(t, wrapped, &ke)
		assert.Equal(t, "GENERAL_ERROR", ke.Code)
		assert.Equal(t, "context", ke.Message)
		assert.Equal(t, errPlain, ke.Cause)
	})

	t.Run("format args", func(t *testing.T) {
		t.Parallel()
		wrapped := kserr.Wrap(kserr.ErrWalletNotFound, "wallet %s index %d", "main", 0)
		assert.Contains(t, wrapped.Error(), "wallet main index 0")
	})

	t.Run("field preservation", func(t *testing.T) {
		t.Parallel()
		original := kserr.WithDetails(kserr.ErrWalletNotFound, map[string]string{"key": "val"})
		original = kserr.WithSuggestion(original, "try this")
		wrapped := kserr.Wrap(original, "context")

		var ke *kserr.KeysmithError
		require.ErrorAs(t, wrapped, &ke)
		assert.Equal(t, "WALLET_NOT_FOUND", ke.Code)
		assert.Equal(t, map[string]string{"key": "val"}, ke.Details)
		assert.Equal(t, "try this", ke.Suggestion)
		assert.Equal(t, kserr.ExitNotFound, ke.ExitCode)
	})
}

func TestWithDetails_edgeCases(t *testing.T) {
	t.Parallel()

	t.Run("nil input", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, kserr.WithDetails(nil, map[string]string{"k": "v"}))
	})

	t.Run("non-KeysmithError input", func(t *testing.T) {
		t.Parallel()
		result := kserr.WithDetails(errPlain, map[string]string{"k": "v"})
		var ke *kserr.KeysmithError
		require.ErrorAs(t, result, &ke)
		assert.Equal(t, "GENERAL_ERROR", ke.Code)
		assert.Equal(t, "plain error", ke.Message)
		assert.Equal(t, map[string]string{"k": "v"}, ke.Details)
		assert.Equal(t, errPlain, ke.Cause)
	})
}

func TestWithSuggestion_edgeCases(t *testing.T) {
	t.Parallel()

	t.Run("nil input", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, kserr.WithSuggestion(nil, "suggestion"))
	})

	t.Run("non-KeysmithError input", func(t *testing.T) {
		t.Parallel()
		result := kserr.WithSuggestion(errPlain, "try this")
		var ke *kserr.KeysmithError
		require.ErrorAs(t, result, &ke)
		assert.Equal(t, "GENERAL_ERROR", ke.Code)
		assert.Equal(t, "plain error", ke.Message)
		assert.Equal(t, "try this", ke.Suggestion)
		assert.Equal(t, errPlain, ke.Cause)
	})
}

func TestExitCode_nonKeysmithError(t *testing.T) {
	t.Parallel()
	assert.Equal(t, kserr.ExitGeneral, kserr.ExitCode(errPlain))
}
