// Package wallet provides the key-material primitives for Keysmith:
// BIP39 mnemonic generation, validation, and seed derivation, plus the
// wallet record types shared across the subsystem.
package wallet

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"
	"github.com/tyler-smith/go-bip39/wordlists"

	"github.com/keysmith/keysmith/internal/secmem"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// Word counts accepted when generating a new mnemonic. Import accepts the
// full BIP39 range (see ValidWordCounts).
const (
	WordCount12 = 12
	WordCount24 = 24
)

// ValidWordCounts are the word counts accepted when validating an existing
// phrase. Generation is restricted to 12 and 24.
//
//nolint:gochecknoglobals // Fixed BIP39 constant set
var ValidWordCounts = []int{12, 15, 18, 21, 24}

// SeedSize is the length in bytes of a BIP39 master seed.
const SeedSize = 64

var (
	// whitespaceRegex matches one or more whitespace characters.
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// numberedListRegex matches numbered list prefixes like "1." "2)" "3:"
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)

	// bulletListRegex matches bullet prefixes like "- " "* " "• "
	bulletListRegex = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)
)

// EntropyBits returns the entropy size encoded by a mnemonic of the given
// word count, or 0 if the count is not a valid BIP39 length.
func EntropyBits(wordCount int) int {
	switch wordCount {
	case 12:
		return 128
	case 15:
		return 160
	case 18:
		return 192
	case 21:
		return 224
	case 24:
		return 256
	default:
		return 0
	}
}

// GenerateMnemonic creates a new BIP39 mnemonic phrase.
// wordCount must be 12 (128 bits entropy) or 24 (256 bits entropy).
// Entropy is drawn from secmem.Reader; if the CSPRNG fails the wallet
// creation is aborted, never downgraded to a weaker source.
func GenerateMnemonic(wordCount int) (string, error) {
	if wordCount != WordCount12 && wordCount != WordCount24 {
		return "", kserr.WithDetails(kserr.ErrInvalidInput, map[string]string{
			"word_count": strconv.Itoa(wordCount),
			"allowed":    "12, 24",
		})
	}

	entropy, err := secmem.RandomBytes(EntropyBits(wordCount) / 8)
	if err != nil {
		return "", kserr.WithDetails(kserr.ErrEntropyFailure, map[string]string{
			"cause": err.Error(),
		})
	}
	defer secmem.Zero(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", kserr.Wrap(err, "encoding mnemonic")
	}

	return mnemonic, nil
}

// ValidateMnemonic checks a phrase against BIP39 and returns its canonical
// normalized form. Failures are reported with a distinct reason: wrong word
// count, unknown word (with its position and a spelling suggestion), or
// checksum mismatch.
func ValidateMnemonic(phrase string) (string, error) {
	normalized := NormalizeMnemonicInput(phrase)
	if normalized == "" {
		return "", kserr.WithDetails(kserr.ErrInvalidMnemonic, map[string]string{
			"reason": "empty phrase",
		})
	}

	words := strings.Fields(normalized)
	if !isValidWordCount(len(words)) {
		return "", kserr.WithSuggestion(
			kserr.WithDetails(kserr.ErrInvalidMnemonic, map[string]string{
				"reason":     "wrong word count",
				"word_count": strconv.Itoa(len(words)),
			}),
			"A mnemonic has 12, 15, 18, 21 or 24 words",
		)
	}

	for i, word := range words {
		if IsValidWord(word) {
			continue
		}
		err := kserr.WithDetails(kserr.ErrInvalidMnemonic, map[string]string{
			"reason":   "unknown word",
			"word":     word,
			"position": strconv.Itoa(i + 1),
		})
		if suggestion := SuggestWord(word); suggestion != "" {
			err = kserr.WithSuggestion(err, fmt.Sprintf("Did you mean '%s'?", suggestion))
		}
		return "", err
	}

	// Word count and wordlist membership already verified; the remaining
	// failure mode is the checksum.
	if _, err := bip39.MnemonicToByteArray(normalized); err != nil {
		return "", kserr.WithSuggestion(
			kserr.WithDetails(kserr.ErrInvalidMnemonic, map[string]string{
				"reason": "checksum mismatch",
			}),
			"One or more words are valid but in the wrong place - re-check the phrase against your backup",
		)
	}

	return normalized, nil
}

// NormalizeMnemonicInput cleans and normalizes mnemonic input by:
// - Converting to lowercase
// - Removing numbered list prefixes (1. 2) 3: etc.)
// - Removing bullet prefixes (- * •)
// - Replacing commas with spaces
// - Trimming leading and trailing whitespace
// - Collapsing multiple whitespace characters to single spaces
func NormalizeMnemonicInput(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// MnemonicToSeed converts a BIP39 mnemonic phrase to a 64-byte master seed
// using PBKDF2-HMAC-SHA512 with 2048 rounds. The passphrase is optional.
// Pure function: the same inputs always produce the same seed, which is what
// makes recovery from the phrase alone possible.
// The returned seed must be zeroed by the caller after use.
func MnemonicToSeed(mnemonic, passphrase string) ([]byte, error) {
	normalized, err := ValidateMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}

	return bip39.NewSeed(normalized, passphrase), nil
}

// WordList returns the BIP39 English word list (sorted).
func WordList() []string {
	return wordlists.English
}

// IsValidWord checks if a word is in the BIP39 word list.
func IsValidWord(word string) bool {
	word = strings.ToLower(word)
	list := wordlists.English
	i := sort.SearchStrings(list, word)
	return i < len(list) && list[i] == word
}

// MaxCompletions caps the number of words returned by CompleteWord.
const MaxCompletions = 10

// CompleteWord returns the wordlist entries starting with prefix, at most
// MaxCompletions of them. An empty prefix returns nil rather than the whole
// list.
func CompleteWord(prefix string) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil
	}

	list := wordlists.English
	start := sort.SearchStrings(list, prefix)

	var matches []string
	for i := start; i < len(list) && len(matches) < MaxCompletions; i++ {
		if !strings.HasPrefix(list[i], prefix) {
			break
		}
		matches = append(matches, list[i])
	}
	return matches
}

// MaxTypoDistance is the maximum Levenshtein distance to consider a suggestion.
// Words with distance > 2 are considered too different to suggest.
const MaxTypoDistance = 2

// TypoInfo contains information about a detected typo and its suggestion.
type TypoInfo struct {
	// Index is the word position in the mnemonic (0-based).
	Index int
	// Word is the original (possibly misspelled) word.
	Word string
	// Suggestion is the closest BIP39 word, or empty if none found.
	Suggestion string
	// Distance is the Levenshtein distance to the suggestion.
	Distance int
}

// SuggestWord finds the closest BIP39 word to the input using Levenshtein distance.
// Returns empty string if no word is close enough (distance > MaxTypoDistance).
func SuggestWord(input string) string {
	input = strings.ToLower(input)

	minDist := math.MaxInt
	var suggestion string

	for _, word := range wordlists.English {
		dist := levenshtein.ComputeDistance(input, word)
		if dist < minDist {
			minDist = dist
			suggestion = word
		}
		// Early exit for exact match
		if dist == 0 {
			return word
		}
	}

	if minDist <= MaxTypoDistance {
		return suggestion
	}
	return ""
}

// DetectTypos scans a mnemonic phrase and returns information about detected typos.
// It identifies words that are not in the BIP39 word list and suggests corrections.
func DetectTypos(mnemonic string) []TypoInfo {
	if mnemonic == "" {
		return nil
	}

	normalized := NormalizeMnemonicInput(mnemonic)
	words := strings.Fields(normalized)
	var typos []TypoInfo

	for i, word := range words {
		if !IsValidWord(word) {
			suggestion := SuggestWord(word)
			distance := 0
			if suggestion != "" {
				distance = levenshtein.ComputeDistance(word, suggestion)
			}
			typos = append(typos, TypoInfo{
				Index:      i,
				Word:       word,
				Suggestion: suggestion,
				Distance:   distance,
			})
		}
	}

	return typos
}

// FormatTypoSuggestions formats typo information into human-readable suggestions.
func FormatTypoSuggestions(typos []TypoInfo) string {
	if len(typos) == 0 {
		return ""
	}

	var b strings.Builder
	for i, typo := range typos {
		if i > 0 {
			b.WriteByte('\n')
		}
		// Word position is 1-indexed for human readability
		b.WriteString("Word ")
		b.WriteString(strconv.Itoa(typo.Index + 1))
		b.WriteString(": '")
		b.WriteString(typo.Word)
		b.WriteByte('\'')
		if typo.Suggestion != "" {
			b.WriteString(" - did you mean '")
			b.WriteString(typo.Suggestion)
			b.WriteString("'?")
		} else {
			b.WriteString(" is not a valid BIP39 word")
		}
	}
	return b.String()
}

func isValidWordCount(n int) bool {
	for _, c := range ValidWordCounts {
		if n == c {
			return true
		}
	}
	return false
}
