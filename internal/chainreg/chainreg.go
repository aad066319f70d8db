// Package chainreg assembles the default chain registry. It lives apart
// from package chain so the registry type stays free of imports on the
// individual chain modules.
package chainreg

import (
	"github.com/keysmith/keysmith/internal/chain"
	"github.com/keysmith/keysmith/internal/chain/bitcoin"
	"github.com/keysmith/keysmith/internal/chain/ethereum"
	"github.com/keysmith/keysmith/internal/chain/solana"
)

// Default builds the standard registry: bitcoin, ethereum, the EVM
// chains, then solana, in display order.
func Default() *chain.Registry {
	registry := chain.NewRegistry()

	modules := []chain.Module{
		bitcoin.New(),
		ethereum.New(),
		ethereum.NewEVMModule(chain.Arbitrum, "Arbitrum One", "ETH"),
		ethereum.NewEVMModule(chain.Optimism, "Optimism", "ETH"),
		ethereum.NewEVMModule(chain.Base, "Base", "ETH"),
		ethereum.NewEVMModule(chain.Polygon, "Polygon", "POL"),
		ethereum.NewEVMModule(chain.Avalanche, "Avalanche C-Chain", "AVAX"),
		solana.New(),
	}

	for _, m := range modules {
		if err := registry.Register(m); err != nil {
			// Only a duplicate or nil module can fail here.
			panic(err)
		}
	}

	return registry
}
