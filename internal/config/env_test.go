package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"1", "1", true},
		{"true", "true", true},
		{"TRUE", "TRUE", true},
		{"yes", "yes", true},
		{"YES", "YES", true},
		{"on", "on", true},
		{"ON", "ON", true},
		{"with spaces", "  true  ", true},
		{"0", "0", false},
		{"false", "false", false},
		{"FALSE", "FALSE", false},
		{"no", "no", false},
		{"off", "off", false},
		{"empty", "", false},
		{"random", "random", false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := parseBool(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestCleanChainList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"already clean", []string{"bitcoin", "ethereum"}, []string{"bitcoin", "ethereum"}},
		{"mixed case", []string{"Bitcoin", "ETHEREUM"}, []string{"bitcoin", "ethereum"}},
		{"padded", []string{" bitcoin ", "\tsolana"}, []string{"bitcoin", "solana"}},
		{"empty entries dropped", []string{"bitcoin", "", "  "}, []string{"bitcoin"}},
		{"all empty", []string{"", " "}, []string{}},
		{"nil", nil, []string{}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := cleanChainList(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}
