package commands

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/luminawallet/lumina-go/account"
	"github.com/luminawallet/lumina-go/approvals"
	"github.com/luminawallet/lumina-go/rpc/chains"
)

// SignDirectCommand implements sign-direct: consent first, then the backend
// signs the proto sign doc. The broker never sees key material.
type SignDirectCommand struct {
	Db        *sql.DB
	Registry  *chains.Manager
	Accounts  account.Manager
	Approvals ApprovalsInterface
}

type signDirectParams struct {
	ChainID   string `json:"chainId"`
	Signer    string `json:"signer"`
	BodyBytes []byte `json:"bodyBytes"`
	AuthInfo  []byte `json:"authInfoBytes"`
}

// requestSignApproval runs the shared consent step of all signing commands.
func requestSignApproval(approver ApprovalsInterface, request RPCRequest, chainIDs []string) error {
	decision, err := approver.RequestApproval(approvals.Request{
		CorrelationKey: RequestCorrelationKey(request.Origin, request.ID, "sign"),
		Kind:           approvals.KindSign,
		Origin:         request.Origin,
		ChainIDs:       chainIDs,
		Payload:        request.Params,
	})
	if err != nil {
		return err
	}
	if !decision.Approved {
		return ErrUserRejected
	}
	return nil
}

func (c *SignDirectCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var p signDirectParams
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

	if err := requestSignApproval(c.Approvals, request, []string{p.ChainID}); err != nil {
		return nil, err
	}

	return c.Accounts.SignDirect(ctx, account.SignDirectRequest{
		ChainKey:  chain.ChainKey,
		Signer:    p.Signer,
		BodyBytes: p.BodyBytes,
		AuthInfo:  p.AuthInfo,
		ChainID:   p.ChainID,
	})
}

// SignAminoCommand implements sign-amino for chains still on the legacy
// envelope.
type SignAminoCommand struct {
	Db        *sql.DB
	Registry  *chains.Manager
	Accounts  account.Manager
	Approvals ApprovalsInterface
}

type signAminoParams struct {
	ChainID string          `json:"chainId"`
	Signer  string          `json:"signer"`
	SignDoc json.RawMessage `json:"signDoc"`
}

func (c *SignAminoCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var p signAminoParams
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

	if err := requestSignApproval(c.Approvals, request, []string{p.ChainID}); err != nil {
		return nil, err
	}

	return c.Accounts.SignAmino(ctx, account.SignAminoRequest{
		ChainKey: chain.ChainKey,
		Signer:   p.Signer,
		SignDoc:  p.SignDoc,
	})
}
