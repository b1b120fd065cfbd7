package commands

import (
	"context"
	"database/sql"

	"github.com/luminawallet/lumina-go/account"
	"github.com/luminawallet/lumina-go/rpc/chains"
	persistence "github.com/luminawallet/lumina-go/services/broker/database"
)

// GetKeyCommand returns the public key material for one granted chain.
type GetKeyCommand struct {
	Db       *sql.DB
	Registry *chains.Manager
	Accounts account.Manager
}

type getKeyParams struct {
	ChainID string `json:"chainId"`
}

func requireGranted(db *sql.DB, origin, chainID string) error {
	granted, err := persistence.GrantedChains(db, origin)
	if err != nil {
		return err
	}
	for _, id := range granted {
		if id == chainID {
			return nil
		}
	}
	return ErrOriginNotPermitted
}

func (c *GetKeyCommand) keyForChainID(ctx context.Context, origin, chainID string) (*account.Key, error) {
	if err := requireGranted(c.Db, origin, chainID); err != nil {
		return nil, err
	}

	chain, err := c.Registry.GetChainByID(chainID)
	if err == chains.ErrChainNotFound {
		return nil, ErrInvalidChainID
	}
	if err != nil {
		return nil, err
	}

	return c.Accounts.GetKey(ctx, chain.ChainKey)
}

func (c *GetKeyCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var p getKeyParams
	if err := request.UnmarshalParams(&p); err != nil {
		return nil, err
	}

	return c.keyForChainID(ctx, request.Origin, p.ChainID)
}

// GetKeysCommand is the batch variant: keys for every requested chain the
// origin was granted. Ungranted or unknown ids are skipped, not errors, so a
// dApp can probe its grants in one call.
type GetKeysCommand struct {
	GetKeyCommand
}

type getKeysParams struct {
	ChainIDs []string `json:"chainIds"`
}

func (c *GetKeysCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var p getKeysParams
	if err := request.UnmarshalParams(&p); err != nil {
		return nil, err
	}

	keys := make(map[string]*account.Key)
	for _, chainID := range p.ChainIDs {
		key, err := c.keyForChainID(ctx, request.Origin, chainID)
		if err == ErrOriginNotPermitted || err == ErrInvalidChainID {
			continue
		}
		if err != nil {
			return nil, err
		}
		keys[chainID] = key
	}
	return keys, nil
}
