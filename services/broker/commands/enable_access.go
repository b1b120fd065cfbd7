package commands

import (
	"context"
	"database/sql"
	"encoding/json"

	mapset "github.com/deckarep/golang-set"

	"github.com/luminawallet/lumina-go/account"
	"github.com/luminawallet/lumina-go/approvals"
	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/rpc/chains"
	persistence "github.com/luminawallet/lumina-go/services/broker/database"
)

// EnableAccessCommand implements enable-access: it filters the requested
// chain ids down to the ones the registry knows, asks for consent when the
// set contains anything not yet granted (or the wallet is locked), and
// answers with the valid ids only.
type EnableAccessCommand struct {
	Db        *sql.DB
	Registry  *chains.Manager
	Accounts  account.Manager
	Approvals ApprovalsInterface
}

type enableAccessParams struct {
	ChainIDs []string `json:"chainIds"`
}

type enableAccessResult struct {
	ChainIDs []string `json:"chainIds"`
}

// validateChainIDs splits requested ids into the registry-supported subset
// and reports whether any of them lacks a prior grant.
func validateChainIDs(db *sql.DB, registry *chains.Manager, origin string, requested []string) (valid []string, isNewChainPresent bool, err error) {
	supported, err := registry.SupportedChainIDs()
	if err != nil {
		return nil, false, err
	}
	granted, err := persistence.GrantedChains(db, origin)
	if err != nil {
		return nil, false, err
	}

	supportedSet := mapset.NewSet()
	for _, id := range supported {
		supportedSet.Add(id)
	}
	grantedSet := mapset.NewSet()
	for _, id := range granted {
		grantedSet.Add(id)
	}

	for _, id := range requested {
		if !supportedSet.Contains(id) {
			continue
		}
		valid = append(valid, id)
		if !grantedSet.Contains(id) {
			isNewChainPresent = true
		}
	}
	return valid, isNewChainPresent, nil
}

func (c *EnableAccessCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var p enableAccessParams
	if err := request.UnmarshalParams(&p); err != nil {
		return nil, err
	}

	validChainIDs, isNewChainPresent, err := validateChainIDs(c.Db, c.Registry, request.Origin, p.ChainIDs)
	if err != nil {
		return nil, err
	}
	if len(validChainIDs) == 0 {
		return nil, ErrInvalidChainID
	}

	if isNewChainPresent || c.Accounts.IsLocked() {
		payload, _ := json.Marshal(enableAccessParams{ChainIDs: validChainIDs})
		decision, err := c.Approvals.RequestApproval(approvals.Request{
			CorrelationKey: ConnectCorrelationKey(request.Origin, validChainIDs),
			Kind:           approvals.KindConnect,
			Origin:         request.Origin,
			ChainIDs:       validChainIDs,
			Payload:        payload,
		})
		if err != nil {
			return nil, err
		}
		if !decision.Approved {
			return nil, ErrUserRejected
		}

		if err := persistence.GrantChains(c.Db, request.Origin, validChainIDs); err != nil {
			return nil, err
		}
	}

	if err := c.ensureSession(request, validChainIDs[0]); err != nil {
		return nil, err
	}

	return enableAccessResult{ChainIDs: validChainIDs}, nil
}

// ensureSession creates the origin's session on first connect and refreshes
// the dApp metadata on later ones. The active chain only moves when the
// session had none.
func (c *EnableAccessCommand) ensureSession(request RPCRequest, firstChainID string) error {
	session, err := persistence.SelectSession(c.Db, request.Origin, params.EcosystemCosmos)
	if err != nil {
		return err
	}
	if session == nil {
		session = &persistence.Session{
			Origin:    request.Origin,
			Ecosystem: params.EcosystemCosmos,
		}
	}
	if session.ChainKey == "" {
		chain, err := c.Registry.GetChainByID(firstChainID)
		if err != nil {
			return err
		}
		session.ChainKey = chain.ChainKey
	}
	session.Name = request.DAppName
	session.IconURL = request.DAppIconURL
	return persistence.UpsertSession(c.Db, session)
}
