package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/keysmith/keysmith/internal/secmem"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// minPasswordLen is the shortest accepted encryption password. The Argon2id
// cost does the heavy lifting; this only blocks trivially guessable input.
const minPasswordLen = 8

// Prompt indirection points, replaced by tests.
//
//nolint:gochecknoglobals // test seam for interactive prompts
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptMnemonicFn    = promptMnemonic
	promptConfirmFn     = promptConfirm
)

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	password, err := term.ReadPassword(syscall.Stdin)
	outln(os.Stderr) // newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}

	return password, nil
}

// promptNewPassword prompts for a new password with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassword() ([]byte, error) {
	password, err := promptPasswordFn("Enter encryption password: ")
	if err != nil {
		return nil, err
	}

	if len(password) < minPasswordLen {
		secmem.Zero(password)
		return nil, kserr.WithSuggestion(
			kserr.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", minPasswordLen),
		)
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		secmem.Zero(password)
		return nil, err
	}
	defer secmem.Zero(confirm)

	if string(password) != string(confirm) {
		secmem.Zero(password)
		return nil, kserr.WithSuggestion(
			kserr.ErrInvalidInput,
			"passwords do not match",
		)
	}

	return password, nil
}

// promptMnemonic reads a full recovery phrase from stdin, all words on one
// line. The phrase is returned as typed; validation happens downstream so
// the error can name the broken word.
func promptMnemonic() (string, error) {
	out(os.Stderr, "Enter mnemonic (all words on one line): ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", kserr.WithSuggestion(kserr.ErrInvalidInput, "no input provided")
	}

	phrase := strings.TrimSpace(line)
	if phrase == "" {
		return "", kserr.WithSuggestion(kserr.ErrInvalidInput, "no input provided")
	}
	return phrase, nil
}

// promptConfirm asks the user a yes/no question, defaulting to no.
func promptConfirm(question string) bool {
	out(os.Stderr, "%s [y/N]: ", question)

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
