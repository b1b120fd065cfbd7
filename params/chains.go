package params

// Ecosystem is a family of chains sharing one request/response shape. The
// account-based ecosystem covers Cosmos-SDK style chains; the Ethereum
// ecosystem covers EVM-compatible chains.
type Ecosystem string

const (
	EcosystemCosmos   Ecosystem = "COSMOS"
	EcosystemEthereum Ecosystem = "ETHEREUM"
)

// BroadcastMode selects how a node should handle a submitted transaction.
type BroadcastMode string

const (
	BroadcastModeSync  BroadcastMode = "sync"
	BroadcastModeAsync BroadcastMode = "async"
	BroadcastModeBlock BroadcastMode = "block"
)

// Chain describes an account-based chain known to the registry.
type Chain struct {
	// ChainKey is the registry key, stable across chain-id upgrades
	// (e.g. "cosmoshub" stays while "cosmoshub-3" becomes "cosmoshub-4").
	ChainKey string `json:"chainKey"`
	// ChainName is the display name shown on approval surfaces.
	ChainName string `json:"chainName"`
	// ChainID is the mainnet chain id, e.g. "cosmoshub-4".
	ChainID string `json:"chainId"`
	// TestnetChainID is the testnet variant id, empty if none.
	TestnetChainID string `json:"testnetChainId,omitempty"`
	// LCDURL is the REST endpoint used for transaction broadcast.
	LCDURL string `json:"lcdUrl,omitempty"`
	RPCURL string `json:"rpcUrl,omitempty"`
	// EVMChainID is non-zero when the chain also exposes an EVM endpoint
	// and participates in the Ethereum ecosystem.
	EVMChainID   uint64 `json:"evmChainId,omitempty"`
	BaseDenom    string `json:"baseDenom,omitempty"`
	Decimals     uint64 `json:"decimals,omitempty"`
	Bech32Prefix string `json:"bech32Prefix,omitempty"`
	IsTestnet    bool   `json:"isTest"`
	// Experimental marks a user-added custom chain. Experimental chains
	// carry their own endpoints and are consulted before the node
	// directory when resolving a broadcast target.
	Experimental bool `json:"experimental"`
}

// Network describes an EVM-compatible network known to the registry.
type Network struct {
	ChainID                uint64 `json:"chainId"`
	ChainName              string `json:"chainName"`
	RPCURL                 string `json:"rpcUrl"`
	BlockExplorerURL       string `json:"blockExplorerUrl,omitempty"`
	NativeCurrencyName     string `json:"nativeCurrencyName,omitempty"`
	NativeCurrencySymbol   string `json:"nativeCurrencySymbol,omitempty"`
	NativeCurrencyDecimals uint64 `json:"nativeCurrencyDecimals"`
	IsTest                 bool   `json:"isTest"`
	Enabled                bool   `json:"enabled"`
}
