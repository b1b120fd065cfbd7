package broker

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/luminawallet/lumina-go/approvals"
	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/services/broker/commands"
	persistence "github.com/luminawallet/lumina-go/services/broker/database"
)

// method names of the account-based ecosystem
const (
	MethodConnectionStatus   = "connection-status"
	MethodDisconnect         = "disconnect"
	MethodEnableAccess       = "enable-access"
	MethodGetKey             = "get-key"
	MethodGetKeys            = "get-keys"
	MethodSignDirect         = "sign-direct"
	MethodSignAmino          = "sign-amino"
	MethodSendTx             = "send-tx"
	MethodGetSupportedChains = "get-supported-chains"
	MethodSuggestToken       = "suggest-token"
	MethodSuggestCW20Token   = "suggest-cw20-token"
)

type API struct {
	s *Service
	r *CommandRegistry

	proxy *commands.EthProxyCommand
}

func NewAPI(s *Service) *API {
	r := NewCommandRegistry()

	resolver := &commands.ChainResolver{
		Db:       s.db,
		Registry: s.registry,
		Config:   s.config,
		Logger:   s.logger,
	}

	// Account-based handler set
	r.Register(params.EcosystemCosmos, MethodConnectionStatus, &commands.ConnectionStatusCommand{Db: s.db})
	r.Register(params.EcosystemCosmos, MethodDisconnect, &commands.DisconnectCommand{
		Db:       s.db,
		Accounts: s.accounts,
	})
	r.Register(params.EcosystemCosmos, MethodEnableAccess, &commands.EnableAccessCommand{
		Db:        s.db,
		Registry:  s.registry,
		Accounts:  s.accounts,
		Approvals: s.ledger,
	})
	getKey := commands.GetKeyCommand{
		Db:       s.db,
		Registry: s.registry,
		Accounts: s.accounts,
	}
	r.Register(params.EcosystemCosmos, MethodGetKey, &getKey)
	r.Register(params.EcosystemCosmos, MethodGetKeys, &commands.GetKeysCommand{GetKeyCommand: getKey})
	r.Register(params.EcosystemCosmos, MethodSignDirect, &commands.SignDirectCommand{
		Db:        s.db,
		Registry:  s.registry,
		Accounts:  s.accounts,
		Approvals: s.ledger,
	})
	r.Register(params.EcosystemCosmos, MethodSignAmino, &commands.SignAminoCommand{
		Db:        s.db,
		Registry:  s.registry,
		Accounts:  s.accounts,
		Approvals: s.ledger,
	})
	r.Register(params.EcosystemCosmos, MethodSendTx, &commands.SendTxCommand{
		Db:          s.db,
		Registry:    s.registry,
		Broadcaster: s.broadcaster,
	})
	r.Register(params.EcosystemCosmos, MethodGetSupportedChains, &commands.GetSupportedChainsCommand{Registry: s.registry})
	r.Register(params.EcosystemCosmos, MethodSuggestToken, &commands.SuggestTokenCommand{
		Db:        s.db,
		Registry:  s.registry,
		Approvals: s.ledger,
	})
	r.Register(params.EcosystemCosmos, MethodSuggestCW20Token, &commands.SuggestTokenCommand{
		Db:        s.db,
		Registry:  s.registry,
		Approvals: s.ledger,
		CW20:      true,
	})

	// EVM-compatible handler set
	r.Register(params.EcosystemEthereum, "eth_accounts", &commands.AccountsCommand{
		Db:       s.db,
		Accounts: s.accounts,
	})
	requestAccounts := &commands.RequestAccountsCommand{
		Db:        s.db,
		Accounts:  s.accounts,
		Approvals: s.ledger,
		Resolver:  resolver,
	}
	r.Register(params.EcosystemEthereum, "eth_requestAccounts", requestAccounts)
	r.Register(params.EcosystemEthereum, "wallet_requestPermissions", &commands.RequestPermissionsCommand{
		RequestAccounts: requestAccounts,
	})
	r.Register(params.EcosystemEthereum, "eth_chainId", &commands.ChainIDCommand{Resolver: resolver})
	r.Register(params.EcosystemEthereum, "wallet_switchEthereumChain", &commands.SwitchEthereumChainCommand{Resolver: resolver})
	r.Register(params.EcosystemEthereum, "wallet_addEthereumChain", &commands.AddEthereumChainCommand{
		Registry:  s.registry,
		Resolver:  resolver,
		Approvals: s.ledger,
	})
	r.Register(params.EcosystemEthereum, "wallet_watchAsset", &commands.WatchAssetCommand{
		Db:        s.db,
		Resolver:  resolver,
		Approvals: s.ledger,
	})
	r.Register(params.EcosystemEthereum, "personal_sign", &commands.PersonalSignCommand{
		Db:        s.db,
		Accounts:  s.accounts,
		Approvals: s.ledger,
	})
	r.Register(params.EcosystemEthereum, "eth_sign", &commands.PersonalSignCommand{
		Db:          s.db,
		Accounts:    s.accounts,
		Approvals:   s.ledger,
		LegacyOrder: true,
	})
	r.Register(params.EcosystemEthereum, "eth_signTypedData_v4", &commands.SignTypedDataCommand{
		Db:        s.db,
		Accounts:  s.accounts,
		Approvals: s.ledger,
	})
	r.Register(params.EcosystemEthereum, "eth_sendTransaction", &commands.SendTransactionCommand{
		Db:        s.db,
		Accounts:  s.accounts,
		Approvals: s.ledger,
		Resolver:  resolver,
		Client:    s.rpcClient,
	})

	proxy := &commands.EthProxyCommand{
		Resolver: resolver,
		Client:   s.rpcClient,
	}
	for _, method := range []string{
		"eth_blockNumber",
		"eth_getBalance",
		"eth_getTransactionCount",
		"eth_getTransactionByHash",
		"eth_getTransactionReceipt",
		"eth_call",
		"eth_estimateGas",
		"eth_gasPrice",
	} {
		r.Register(params.EcosystemEthereum, method, proxy)
	}

	return &API{
		s:     s,
		r:     r,
		proxy: proxy,
	}
}

// ErrUnsupportedMethod is returned for account-based methods the broker does
// not know. EVM methods never hit it: unknown ones fall through to the node.
var ErrUnsupportedMethod = errors.New("unsupported method")

// CallRPC dispatches one inbound request. Every path ends in a result or a
// typed error; panics inside handlers are contained here so a malformed
// request can never take the broker down.
func (api *API) CallRPC(ctx context.Context, request commands.RPCRequest) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			api.s.logger.Error("handler panic",
				zap.String("method", request.Method),
				zap.String("origin", request.Origin),
				zap.Any("panic", r))
			result = nil
			err = errors.Errorf("internal error: %v", r)
		}
	}()

	if request.Ecosystem == "" {
		request.Ecosystem = params.EcosystemEthereum
	}

	// Global precondition, checked before any handler runs.
	if !api.s.accounts.HasWallet() {
		return nil, commands.ErrNoWallet
	}

	if command, exists := api.r.GetCommand(request.Ecosystem, request.Method); exists {
		return command.Execute(ctx, request)
	}

	if request.Ecosystem == params.EcosystemEthereum {
		return api.proxy.Execute(ctx, request)
	}

	return nil, ErrUnsupportedMethod
}

// CallRPCJSON is the string-in/string-out variant used over the RPC bridge.
func (api *API) CallRPCJSON(ctx context.Context, inputJSON string) (string, error) {
	request, err := commands.RPCRequestFromJSON(inputJSON)
	if err != nil {
		return "", err
	}

	result, err := api.CallRPC(ctx, request)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ApprovalAcceptedArgs carries the UI's positive decision for a pending
// approval.
type ApprovalAcceptedArgs struct {
	CorrelationKey string          `json:"correlationKey"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// ApprovalRejectedArgs carries a rejection or a surface closure.
type ApprovalRejectedArgs struct {
	CorrelationKey string `json:"correlationKey"`
}

// ApprovalAccepted is invoked by the approval surface. Duplicate calls for a
// resolved key are ignored by the ledger.
func (api *API) ApprovalAccepted(args ApprovalAcceptedArgs) {
	api.s.ledger.Resolve(args.CorrelationKey, approvals.Decision{
		Approved: true,
		Payload:  args.Payload,
	})
}

func (api *API) ApprovalRejected(args ApprovalRejectedArgs) {
	api.s.ledger.Resolve(args.CorrelationKey, approvals.Decision{Approved: false})
}

// SurfaceClosed reports that a popup disappeared without a decision.
func (api *API) SurfaceClosed(surfaceID string) {
	api.s.ledger.NotifySurfaceClosed(surfaceID)
}

// PendingApprovals lets a restarted surface recover what to render.
func (api *API) PendingApprovals() []approvals.Request {
	return api.s.ledger.Pending()
}

// RecallPermission drops everything granted to an origin.
func (api *API) RecallPermission(origin string) error {
	if err := persistence.DeleteSession(api.s.db, origin, params.EcosystemCosmos); err != nil {
		return err
	}
	if err := persistence.DeleteSession(api.s.db, origin, params.EcosystemEthereum); err != nil {
		return err
	}
	return persistence.RevokeOrigin(api.s.db, origin)
}
