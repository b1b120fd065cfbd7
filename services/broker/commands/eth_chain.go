package commands

import (
	"context"
	"encoding/json"

	"github.com/luminawallet/lumina-go/approvals"
	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/rpc/chains"
	"github.com/luminawallet/lumina-go/services/broker/chainutils"
)

// ChainIDCommand implements eth_chainId from the resolved binding, so an
// unbound origin sees the fallback chain, not an error.
type ChainIDCommand struct {
	Resolver *ChainResolver
}

func (c *ChainIDCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	binding, err := c.Resolver.ResolveActiveChain(request.Origin, params.EcosystemEthereum)
	if err != nil {
		return nil, err
	}

	return chainutils.GetHexChainID(binding.EVMChainID()), nil
}

type switchChainParams struct {
	ChainID string `json:"chainId"`
}

// SwitchEthereumChainCommand implements wallet_switchEthereumChain. Unknown
// chain ids surface ErrUnrecognizedChainID (distinct from the account-based
// invalid-chain error to preserve EIP-3326 semantics at the boundary) and
// leave the session untouched.
type SwitchEthereumChainCommand struct {
	Resolver *ChainResolver
}

func (c *SwitchEthereumChainCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var p []switchChainParams
	if err := request.UnmarshalParams(&p); err != nil {
		return nil, err
	}
	if len(p) < 1 {
		return nil, ErrEmptyRPCParams
	}

	requestedChainID, err := chainutils.ParseHexChainID(p[0].ChainID)
	if err != nil {
		return nil, ErrUnrecognizedChainID
	}

	binding, err := c.Resolver.SwitchEVMChain(request.Origin, requestedChainID)
	if err != nil {
		return nil, err
	}

	return chainutils.GetHexChainID(binding.EVMChainID()), nil
}

// AddEthereumChainCommand implements wallet_addEthereumChain: after consent
// the network lands in the registry as an experimental entry and the origin
// is switched onto it.
type AddEthereumChainCommand struct {
	Registry  *chains.Manager
	Resolver  *ChainResolver
	Approvals ApprovalsInterface
}

type addChainCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint64 `json:"decimals"`
}

type addChainParams struct {
	ChainID           string            `json:"chainId"`
	ChainName         string            `json:"chainName"`
	RPCURLs           []string          `json:"rpcUrls"`
	NativeCurrency    *addChainCurrency `json:"nativeCurrency"`
	BlockExplorerURLs []string          `json:"blockExplorerUrls"`
}

func (c *AddEthereumChainCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var p []addChainParams
	if err := request.UnmarshalParams(&p); err != nil {
		return nil, err
	}
	if len(p) < 1 || len(p[0].RPCURLs) == 0 {
		return nil, ErrEmptyRPCParams
	}

	chainID, err := chainutils.ParseHexChainID(p[0].ChainID)
	if err != nil {
		return nil, ErrUnrecognizedChainID
	}

	// Already known chains just switch.
	if c.Resolver.Registry.FindNetwork(chainID) == nil {
		payload, _ := json.Marshal(p[0])
		decision, err := c.Approvals.RequestApproval(approvals.Request{
			CorrelationKey: RequestCorrelationKey(request.Origin, request.ID, "add-chain"),
			Kind:           approvals.KindConnect,
			Origin:         request.Origin,
			ChainIDs:       []string{p[0].ChainID},
			Payload:        payload,
		})
		if err != nil {
			return nil, err
		}
		if !decision.Approved {
			return nil, ErrUserRejected
		}

		network := &params.Network{
			ChainID:   chainID,
			ChainName: p[0].ChainName,
			RPCURL:    p[0].RPCURLs[0],
			Enabled:   true,
		}
		if len(p[0].BlockExplorerURLs) > 0 {
			network.BlockExplorerURL = p[0].BlockExplorerURLs[0]
		}
		if p[0].NativeCurrency != nil {
			network.NativeCurrencyName = p[0].NativeCurrency.Name
			network.NativeCurrencySymbol = p[0].NativeCurrency.Symbol
			network.NativeCurrencyDecimals = p[0].NativeCurrency.Decimals
		}
		if err := c.Registry.UpsertNetwork(network); err != nil {
			return nil, err
		}
	}

	if _, err := c.Resolver.SwitchEVMChain(request.Origin, chainID); err != nil {
		return nil, err
	}

	return nil, nil
}
