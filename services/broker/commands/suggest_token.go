package commands

import (
	"context"
	"database/sql"

	"github.com/luminawallet/lumina-go/approvals"
	"github.com/luminawallet/lumina-go/rpc/chains"
	persistence "github.com/luminawallet/lumina-go/services/broker/database"
)

// SuggestTokenCommand implements suggest-token and suggest-cw20-token. The
// approved token is persisted so wallet pages can display it; nothing else
// happens on the chain.
type SuggestTokenCommand struct {
	Db        *sql.DB
	Registry  *chains.Manager
	Approvals ApprovalsInterface

	// CW20 distinguishes the contract-token variant of the method.
	CW20 bool
}

type suggestTokenParams struct {
	ChainID         string `json:"chainId"`
	ContractAddress string `json:"contractAddress,omitempty"`
	Denom           string `json:"denom,omitempty"`
}

func (c *SuggestTokenCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var p suggestTokenParams
	if err := request.UnmarshalParams(&p); err != nil {
		return nil, err
	}
	if c.CW20 && p.ContractAddress == "" {
		return nil, ErrInvalidParamType
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

	decision, err := c.Approvals.RequestApproval(approvals.Request{
		CorrelationKey: RequestCorrelationKey(request.Origin, request.ID, "suggest-token"),
		Kind:           approvals.KindSuggestToken,
		Origin:         request.Origin,
		ChainIDs:       []string{p.ChainID},
		Payload:        request.Params,
	})
	if err != nil {
		return nil, err
	}
	if !decision.Approved {
		return nil, ErrUserRejected
	}

	err = persistence.AddSuggestedToken(c.Db, &persistence.SuggestedToken{
		Origin:          request.Origin,
		ChainKey:        chain.ChainKey,
		ContractAddress: p.ContractAddress,
		Denom:           p.Denom,
		IsCW20:          c.CW20,
	})
	if err != nil {
		return nil, err
	}

	return nil, nil
}
