package commands

import (
	"context"
	"database/sql"

	mapset "github.com/deckarep/golang-set"

	"github.com/luminawallet/lumina-go/account"
	persistence "github.com/luminawallet/lumina-go/services/broker/database"
	"github.com/luminawallet/lumina-go/signal"
)

// ConnectionStatusCommand reports whether every requested chain id was
// already granted to the origin. It never opens a popup.
type ConnectionStatusCommand struct {
	Db *sql.DB
}

type connectionStatusParams struct {
	ChainIDs []string `json:"chainIds"`
}

type connectionStatusResult struct {
	Connected bool     `json:"connected"`
	ChainIDs  []string `json:"chainIds,omitempty"`
}

func (c *ConnectionStatusCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var p connectionStatusParams
	if err := request.UnmarshalParams(&p); err != nil {
		return nil, err
	}

	granted, err := persistence.GrantedChains(c.Db, request.Origin)
	if err != nil {
		return nil, err
	}
	grantedSet := mapset.NewSet()
	for _, id := range granted {
		grantedSet.Add(id)
	}

	var connectedIDs []string
	connected := len(p.ChainIDs) > 0
	for _, id := range p.ChainIDs {
		if grantedSet.Contains(id) {
			connectedIDs = append(connectedIDs, id)
		} else {
			connected = false
		}
	}

	return connectionStatusResult{Connected: connected, ChainIDs: connectedIDs}, nil
}

// DisconnectCommand removes the origin's session and every grant. The
// backend is told as well so it can drop per-origin caches.
type DisconnectCommand struct {
	Db       *sql.DB
	Accounts account.Manager
}

func (c *DisconnectCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	session, err := persistence.SelectSession(c.Db, request.Origin, request.Ecosystem)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrOriginNotPermitted
	}

	if err := persistence.DeleteSession(c.Db, request.Origin, request.Ecosystem); err != nil {
		return nil, err
	}
	if err := persistence.RevokeOrigin(c.Db, request.Origin); err != nil {
		return nil, err
	}
	if err := c.Accounts.Disconnect(ctx, session.ChainKey, request.Origin); err != nil {
		return nil, err
	}

	signal.SendBrokerPermissionRevoked(signal.BrokerPermissionRevokedSignal{
		Origin: request.Origin,
	})

	return nil, nil
}

// GetSupportedChainsCommand lists every chain id the registry accepts,
// mainnet and testnet variants alike.
type GetSupportedChainsCommand struct {
	Registry interface {
		SupportedChainIDs() ([]string, error)
	}
}

func (c *GetSupportedChainsCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	return c.Registry.SupportedChainIDs()
}
