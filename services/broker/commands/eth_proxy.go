package commands

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/rpc"
)

// EthProxyCommand forwards a read-only EVM method to the node endpoint of the
// origin's resolved chain. One instance serves every proxied method; the
// request's own method name travels through unchanged.
type EthProxyCommand struct {
	Resolver *ChainResolver
	Client   rpc.ClientInterface
}

func (c *EthProxyCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	binding, err := c.Resolver.ResolveActiveChain(request.Origin, params.EcosystemEthereum)
	if err != nil {
		return nil, err
	}

	var args []interface{}
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &args); err != nil {
			return nil, ErrInvalidParamType
		}
	}

	var result json.RawMessage
	if err := c.Client.Call(ctx, binding.EVMChainID(), &result, request.Method, args...); err != nil {
		return nil, errors.Wrapf(err, "proxying %s", request.Method)
	}

	return result, nil
}
