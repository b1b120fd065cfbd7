package chains

import "github.com/luminawallet/lumina-go/params"

// Binding is the resolved, read-only combination of an origin's active chain
// with registry metadata. It is recomputed per request and never persisted,
// so a registry update is picked up by the next request automatically.
type Binding struct {
	// Chain is set for account-based chains.
	Chain *params.Chain
	// Network is set for EVM-compatible networks.
	Network *params.Network
}

// IsEVM reports whether the binding points at an EVM-style chain.
func (b *Binding) IsEVM() bool {
	return b.Network != nil
}

// EVMChainID returns the numeric chain id of the bound EVM network, zero for
// account-based bindings.
func (b *Binding) EVMChainID() uint64 {
	if b.Network == nil {
		return 0
	}
	return b.Network.ChainID
}

// ChainKey returns the registry key of the bound account-based chain, empty
// for EVM bindings.
func (b *Binding) ChainKey() string {
	if b.Chain == nil {
		return ""
	}
	return b.Chain.ChainKey
}
