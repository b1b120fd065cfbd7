package commands

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/rpc/chains"
)

// SendTxCommand implements send-tx: it forwards an already-signed transaction
// to the broadcast gateway. Signing was consented separately, so no popup
// opens here.
type SendTxCommand struct {
	Db          *sql.DB
	Registry    *chains.Manager
	Broadcaster BroadcasterInterface
}

type sendTxParams struct {
	ChainID string          `json:"chainId"`
	Tx      json.RawMessage `json:"tx"`
	Mode    string          `json:"mode,omitempty"`
}

type sendTxResult struct {
	TxHash string `json:"txHash"`
}

func (c *SendTxCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var p sendTxParams
	if err := request.UnmarshalParams(&p); err != nil {
		return nil, err
	}

	if err := requireGranted(c.Db, request.Origin, p.ChainID); err != nil {
		return nil, err
	}
	chain, err := c.Registry.GetChainByID(p.ChainID)
	if err == chains.ErrChainNotFound {
		return nil, ErrInvalidChainID
	}
	if err != nil {
		return nil, err
	}

	mode := params.BroadcastMode(p.Mode)
	if mode == "" {
		mode = params.BroadcastModeSync
	}

	hash, err := c.Broadcaster.Submit(ctx, chain.ChainKey, p.Tx, mode)
	if err != nil {
		return nil, err
	}

	return sendTxResult{TxHash: strings.ToUpper(hex.EncodeToString(hash))}, nil
}
