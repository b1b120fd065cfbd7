package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/luminawallet/lumina-go/approvals"
	"github.com/luminawallet/lumina-go/params"
)

// errors surfaced to dApps. The vocabulary is fixed: callers match on these
// strings, so handlers return the sentinels and wrap only internal failures.
var (
	ErrNoWallet            = errors.New("no wallet")
	ErrInvalidChainID      = errors.New("invalid chain id")
	ErrUnrecognizedChainID = errors.New("unrecognized chain id")
	ErrUserRejected        = errors.New("user rejected the request")
	ErrRequestsExceeded    = approvals.ErrRequestsExceeded

	ErrRequestMissingOrigin  = errors.New("request missing origin")
	ErrOriginNotPermitted    = errors.New("origin is not permitted by user")
	ErrEmptyRPCParams        = errors.New("empty rpc params")
	ErrInvalidParamType      = errors.New("invalid parameter type")
	ErrWalletResponseTimeout = errors.New("timeout waiting for wallet response")
)

// RPCRequest is one inbound request after the transport tagged it with its
// origin and ecosystem. ID is a caller-supplied correlation token, opaque and
// unique only within the issuing page context; internal keys always combine
// it with the origin.
type RPCRequest struct {
	JSONRPC   string           `json:"jsonrpc,omitempty"`
	ID        json.RawMessage  `json:"id"`
	Origin    string           `json:"origin"`
	Ecosystem params.Ecosystem `json:"ecosystem"`
	Method    string           `json:"method"`
	Params    json.RawMessage  `json:"params,omitempty"`

	DAppName    string `json:"name,omitempty"`
	DAppIconURL string `json:"iconUrl,omitempty"`
}

func RPCRequestFromJSON(inputJSON string) (RPCRequest, error) {
	var request RPCRequest

	err := json.Unmarshal([]byte(inputJSON), &request)
	if err != nil {
		return RPCRequest{}, fmt.Errorf("error unmarshalling JSON: %v", err)
	}
	return request, nil
}

func (r *RPCRequest) Validate() error {
	if r.Origin == "" {
		return ErrRequestMissingOrigin
	}
	return nil
}

// UnmarshalParams decodes the request params into out.
func (r *RPCRequest) UnmarshalParams(out interface{}) error {
	if len(r.Params) == 0 {
		return ErrEmptyRPCParams
	}
	if err := json.Unmarshal(r.Params, out); err != nil {
		return ErrInvalidParamType
	}
	return nil
}

// RPCCommand is one entry of the dispatch table. Commands are pure with
// respect to the dispatcher: everything they mutate goes through the injected
// stores, so they are testable against fakes.
type RPCCommand interface {
	Execute(ctx context.Context, request RPCRequest) (interface{}, error)
}

// ApprovalsInterface is the slice of the approval ledger commands depend on.
type ApprovalsInterface interface {
	RequestApproval(req approvals.Request) (approvals.Decision, error)
}

// BroadcasterInterface submits a signed transaction for an account-based
// chain and returns its hash bytes.
type BroadcasterInterface interface {
	Submit(ctx context.Context, chainKey string, tx json.RawMessage, mode params.BroadcastMode) ([]byte, error)
}

// ConnectCorrelationKey derives the approval correlation key of a connection
// request from its semantics, so an origin re-asking for the same chains
// attaches to the already-open surface instead of racing it.
func ConnectCorrelationKey(origin string, chainIDs []string) string {
	sorted := make([]string, len(chainIDs))
	copy(sorted, chainIDs)
	sort.Strings(sorted)
	return fmt.Sprintf("%s/connect/%s", origin, strings.Join(sorted, ","))
}

// RequestCorrelationKey scopes a caller-supplied id to its origin. Used for
// signing requests, whose semantics are unique per request.
func RequestCorrelationKey(origin string, id json.RawMessage, kind string) string {
	return fmt.Sprintf("%s/%s/%s", origin, kind, string(id))
}
