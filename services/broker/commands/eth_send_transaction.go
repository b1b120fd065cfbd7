package commands

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/luminawallet/lumina-go/account"
	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/rpc"
	"github.com/luminawallet/lumina-go/transactions"
)

// SendTransactionCommand implements eth_sendTransaction: consent, backend
// signing, then eth_sendRawTransaction against the resolved chain's node.
// Broadcast failures surface to the caller untouched, there is no retry.
type SendTransactionCommand struct {
	Db        *sql.DB
	Accounts  account.Manager
	Approvals ApprovalsInterface
	Resolver  *ChainResolver
	Client    rpc.ClientInterface
}

func (c *SendTransactionCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var argsList []transactions.SendTxArgs
	if err := request.UnmarshalParams(&argsList); err != nil {
		return nil, err
	}
	if len(argsList) < 1 {
		return nil, ErrEmptyRPCParams
	}
	txArgs := argsList[0]
	if !txArgs.Valid() {
		return nil, transactions.ErrInvalidSendTxArgs
	}

	if err := requireSharedAccount(c.Db, request.Origin, txArgs.From); err != nil {
		return nil, err
	}

	binding, err := c.Resolver.ResolveActiveChain(request.Origin, params.EcosystemEthereum)
	if err != nil {
		return nil, err
	}

	if err := requestSignApproval(c.Approvals, request, nil); err != nil {
		return nil, err
	}

	txArgsJSON, err := json.Marshal(txArgs)
	if err != nil {
		return nil, err
	}
	rawTx, err := c.Accounts.SignEVMTransaction(ctx, binding.EVMChainID(), txArgsJSON)
	if err != nil {
		return nil, err
	}

	var hash string
	err = c.Client.Call(ctx, binding.EVMChainID(), &hash, "eth_sendRawTransaction", hexutil.Encode(rawTx))
	if err != nil {
		return nil, err
	}

	return hash, nil
}
