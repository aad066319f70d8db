package cli

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keysmith/keysmith/internal/output"
)

func TestChainsListsAllRegistered(t *testing.T) {
	setupTestEnv(t)
	resetCommandFlags(t)

	cmd, buf := newTestCmd()
	require.NoError(t, runChains(cmd, nil))

	got := buf.String()
	for _, id := range []string{
		"bitcoin", "ethereum", "arbitrum", "optimism",
		"base", "polygon", "avalanche", "solana",
	} {
		assert.Contains(t, got, id)
	}
	assert.Contains(t, got, "secp256k1")
	assert.Contains(t, got, "ed25519")
	assert.Contains(t, got, "m/84'/0'/0'/0/0")
	assert.Contains(t, got, "m/44'/60'/0'/0/0")
}

func TestChainsJSON(t *testing.T) {
	setupTestEnv(t)
	resetCommandFlags(t)
	formatter = output.NewFormatter(output.FormatJSON, os.Stdout)

	cmd, buf := newTestCmd()
	require.NoError(t, runChains(cmd, nil))

	var entries []struct {
		ID       string `json:"id"`
		Family   string `json:"family"`
		CoinType uint32 `json:"coin_type"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entries))
	assert.Len(t, entries, 8)

	byID := make(map[string]uint32, len(entries))
	for _, e := range entries {
		byID[e.ID] = e.CoinType
	}
	assert.Equal(t, uint32(0), byID["bitcoin"])
	assert.Equal(t, uint32(60), byID["ethereum"])
	assert.Equal(t, uint32(501), byID["solana"])
}
