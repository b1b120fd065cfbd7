package commands

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/luminawallet/lumina-go/account"
	"github.com/luminawallet/lumina-go/approvals"
	"github.com/luminawallet/lumina-go/params"
	persistence "github.com/luminawallet/lumina-go/services/broker/database"
)

// AccountsCommand implements eth_accounts. A locked wallet answers with an
// empty array instead of a popup; everything else requires a prior
// eth_requestAccounts grant.
type AccountsCommand struct {
	Db       *sql.DB
	Accounts account.Manager
}

func FormatAccountAddressToResponse(address string) []string {
	if address == "" {
		return []string{}
	}
	return []string{strings.ToLower(address)}
}

func (c *AccountsCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	if c.Accounts.IsLocked() {
		return []string{}, nil
	}

	session, err := persistence.SelectSession(c.Db, request.Origin, params.EcosystemEthereum)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return []string{}, nil
	}

	return FormatAccountAddressToResponse(session.SharedAccount), nil
}

// RequestAccountsCommand implements eth_requestAccounts: an existing session
// answers immediately, otherwise the connect consent flow runs and the shared
// account comes back in the decision payload.
type RequestAccountsCommand struct {
	Db        *sql.DB
	Accounts  account.Manager
	Approvals ApprovalsInterface
	Resolver  *ChainResolver
}

type requestAccountsDecision struct {
	Account string `json:"account"`
	ChainID uint64 `json:"chainId,omitempty"`
}

func (c *RequestAccountsCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	session, err := persistence.SelectSession(c.Db, request.Origin, params.EcosystemEthereum)
	if err != nil {
		return nil, err
	}

	if session == nil || session.SharedAccount == "" {
		binding, err := c.Resolver.ResolveActiveChain(request.Origin, params.EcosystemEthereum)
		if err != nil {
			return nil, err
		}

		chainID := binding.EVMChainID()
		decision, err := c.Approvals.RequestApproval(approvals.Request{
			CorrelationKey: ConnectCorrelationKey(request.Origin, []string{fmt.Sprintf("%d", chainID)}),
			Kind:           approvals.KindConnect,
			Origin:         request.Origin,
			ChainIDs:       []string{fmt.Sprintf("%d", chainID)},
			Payload:        request.Params,
		})
		if err != nil {
			return nil, err
		}
		if !decision.Approved {
			return nil, ErrUserRejected
		}

		var approved requestAccountsDecision
		if err := json.Unmarshal(decision.Payload, &approved); err != nil || approved.Account == "" {
			return nil, ErrUserRejected
		}
		if approved.ChainID == 0 {
			approved.ChainID = chainID
		}

		session = &persistence.Session{
			Origin:        request.Origin,
			Ecosystem:     params.EcosystemEthereum,
			EVMChainID:    approved.ChainID,
			SharedAccount: approved.Account,
			Name:          request.DAppName,
			IconURL:       request.DAppIconURL,
		}
		if err := persistence.UpsertSession(c.Db, session); err != nil {
			return nil, err
		}
	}

	return FormatAccountAddressToResponse(session.SharedAccount), nil
}

// RequestPermissionsCommand implements wallet_requestPermissions. Only the
// eth_accounts capability is supported; asking for it behaves like
// eth_requestAccounts and the response mirrors EIP-2255.
type RequestPermissionsCommand struct {
	RequestAccounts *RequestAccountsCommand
}

type Permission struct {
	ParentCapability string `json:"parentCapability"`
	Date             string `json:"date"`
}

func (r *RPCRequest) getRequestPermissionsCapability() (string, error) {
	var paramMaps []map[string]interface{}
	if err := r.UnmarshalParams(&paramMaps); err != nil {
		return "", err
	}
	if len(paramMaps) < 1 || len(paramMaps[0]) != 1 {
		return "", ErrInvalidParamType
	}
	for capability := range paramMaps[0] {
		return capability, nil
	}
	return "", ErrEmptyRPCParams
}

func (c *RequestPermissionsCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	capability, err := request.getRequestPermissionsCapability()
	if err != nil {
		return nil, err
	}

	if capability == "eth_accounts" {
		if _, err := c.RequestAccounts.Execute(ctx, request); err != nil {
			return nil, err
		}
	}

	date := time.Now().UnixNano() / int64(time.Millisecond)
	return []Permission{{
		ParentCapability: capability,
		Date:             fmt.Sprintf("%d", date),
	}}, nil
}
