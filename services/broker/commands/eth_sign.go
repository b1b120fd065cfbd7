package commands

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/luminawallet/lumina-go/account"
	"github.com/luminawallet/lumina-go/approvals"
	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/services/broker/chainutils"
	persistence "github.com/luminawallet/lumina-go/services/broker/database"
)

// requireSharedAccount checks the signing address belongs to the origin's
// session. dApps may only sign with the account they were granted.
func requireSharedAccount(db *sql.DB, origin string, address common.Address) error {
	session, err := persistence.SelectSession(db, origin, params.EcosystemEthereum)
	if err != nil {
		return err
	}
	if session == nil || !strings.EqualFold(session.SharedAccount, address.Hex()) {
		return ErrOriginNotPermitted
	}
	return nil
}

// PersonalSignCommand implements personal_sign and the legacy eth_sign.
// Params ordering differs between the two: personal_sign is [data, address],
// eth_sign is [address, data].
type PersonalSignCommand struct {
	Db        *sql.DB
	Accounts  account.Manager
	Approvals ApprovalsInterface

	// LegacyOrder flips param interpretation for eth_sign.
	LegacyOrder bool
}

func (c *PersonalSignCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var raw []string
	if err := request.UnmarshalParams(&raw); err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, ErrEmptyRPCParams
	}

	dataParam, addressParam := raw[0], raw[1]
	if c.LegacyOrder {
		dataParam, addressParam = raw[1], raw[0]
	}

	if !common.IsHexAddress(addressParam) {
		return nil, ErrInvalidParamType
	}
	address := common.HexToAddress(addressParam)
	data, err := hexutil.Decode(dataParam)
	if err != nil {
		data = []byte(dataParam)
	}

	if err := requireSharedAccount(c.Db, request.Origin, address); err != nil {
		return nil, err
	}

	if err := requestSignApproval(c.Approvals, request, nil); err != nil {
		return nil, err
	}

	signature, err := c.Accounts.PersonalSign(ctx, address, data)
	if err != nil {
		return nil, err
	}
	return hexutil.Encode(signature), nil
}

// SignTypedDataCommand implements eth_signTypedData_v4.
type SignTypedDataCommand struct {
	Db        *sql.DB
	Accounts  account.Manager
	Approvals ApprovalsInterface
}

func (c *SignTypedDataCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := request.UnmarshalParams(&raw); err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, ErrEmptyRPCParams
	}

	var addressParam string
	if err := json.Unmarshal(raw[0], &addressParam); err != nil || !common.IsHexAddress(addressParam) {
		return nil, ErrInvalidParamType
	}
	address := common.HexToAddress(addressParam)

	// The typed payload may arrive as a JSON object or a pre-encoded string.
	typedJSON := raw[1]
	var asString string
	if err := json.Unmarshal(raw[1], &asString); err == nil {
		typedJSON = json.RawMessage(asString)
	}

	if err := requireSharedAccount(c.Db, request.Origin, address); err != nil {
		return nil, err
	}

	if err := requestSignApproval(c.Approvals, request, nil); err != nil {
		return nil, err
	}

	signature, err := c.Accounts.SignTypedData(ctx, address, typedJSON)
	if err != nil {
		return nil, err
	}
	return hexutil.Encode(signature), nil
}

// WatchAssetCommand implements wallet_watchAsset by reusing the
// suggested-token store of the account-based ecosystem.
type WatchAssetCommand struct {
	Db        *sql.DB
	Resolver  *ChainResolver
	Approvals ApprovalsInterface
}

type watchAssetParams struct {
	Type    string `json:"type"`
	Options struct {
		Address  string `json:"address"`
		Symbol   string `json:"symbol"`
		Decimals uint64 `json:"decimals"`
	} `json:"options"`
}

func (c *WatchAssetCommand) Execute(ctx context.Context, request RPCRequest) (interface{}, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var p watchAssetParams
	if err := request.UnmarshalParams(&p); err != nil {
		return nil, err
	}
	if !common.IsHexAddress(p.Options.Address) {
		return nil, ErrInvalidParamType
	}

	binding, err := c.Resolver.ResolveActiveChain(request.Origin, params.EcosystemEthereum)
	if err != nil {
		return nil, err
	}

	decision, err := c.Approvals.RequestApproval(approvals.Request{
		CorrelationKey: RequestCorrelationKey(request.Origin, request.ID, "watch-asset"),
		Kind:           approvals.KindSuggestToken,
		Origin:         request.Origin,
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
		ChainKey:        chainutils.GetHexChainID(binding.EVMChainID()),
		ContractAddress: p.Options.Address,
	})
	if err != nil {
		return nil, err
	}

	return true, nil
}
